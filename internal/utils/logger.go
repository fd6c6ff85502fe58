package utils

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger.
var Log = logrus.New()

// ConfigureLogger sets level and format from config values.
func ConfigureLogger(level string, json bool) {
	if lvl, err := logrus.ParseLevel(strings.TrimSpace(level)); err == nil {
		Log.SetLevel(lvl)
	}
	if json {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// LogEvent prints a standardized line with module/action/request_id.
// Avoid logging sensitive payload; message should be summarized.
func LogEvent(requestID, module, action, message string) {
	Entry(requestID, module, action).Info(message)
}

// Entry returns a logger scoped to module/action, for callers that need
// another level or extra fields.
func Entry(requestID, module, action string) *logrus.Entry {
	fields := logrus.Fields{
		"module": strings.ToLower(module),
		"action": action,
	}
	if req := strings.TrimSpace(requestID); req != "" {
		fields["request_id"] = req
	}
	return Log.WithFields(fields)
}
