package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Env struct {
	AppAddr  string `envconfig:"APP_ADDR" default:":8080"`
	GinMode  string `envconfig:"GIN_MODE"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogJSON  bool   `envconfig:"LOG_JSON" default:"false"`

	DBDSN string `envconfig:"DB_DSN" default:"root:@tcp(127.0.0.1:3306)/vehicle_rental?parseTime=true&loc=UTC&charset=utf8mb4&timeout=5s&readTimeout=30s&writeTimeout=30s"`

	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	WebhookSecret string `envconfig:"WEBHOOK_SECRET" required:"true"`

	OmisePublicKey   string `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey   string `envconfig:"OMISE_SECRET_KEY"`
	PaymentCurrency  string `envconfig:"PAYMENT_CURRENCY" default:"thb"`
	PaymentReturnURI string `envconfig:"PAYMENT_RETURN_URI"`

	RabbitURL      string `envconfig:"RABBIT_URL"`
	ExpiryExchange string `envconfig:"EXPIRY_EXCHANGE" default:"booking.expiry"`
	ExpiryQueue    string `envconfig:"EXPIRY_QUEUE" default:"booking.expiry.q"`
	EventsExchange string `envconfig:"EVENTS_EXCHANGE" default:"booking.events"`

	BookingTimeout time.Duration `envconfig:"BOOKING_TIMEOUT" default:"15m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	SweepBatchSize int           `envconfig:"SWEEP_BATCH_SIZE" default:"500"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	// RATE_LIMIT_REQUESTS=0 disables per-IP limiting.
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"100"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`

	OtelEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OtelEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`
}

// LoadEnv reads an optional .env file and then the process environment.
func LoadEnv() (Env, error) {
	_ = godotenv.Load(".env")

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, err
	}
	env.GinMode = strings.TrimSpace(env.GinMode)
	env.PaymentCurrency = strings.ToLower(strings.TrimSpace(env.PaymentCurrency))
	return env, nil
}

// QueueEnabled reports whether the delayed expiry queue is configured. The
// periodic sweep covers expiry on its own when it is not.
func (e Env) QueueEnabled() bool {
	return strings.TrimSpace(e.RabbitURL) != ""
}
