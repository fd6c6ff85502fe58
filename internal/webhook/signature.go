// Package webhook authenticates and decodes payment processor notifications.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rental/internal/domain"
)

// Omise signs every webhook delivery with these two headers.
const (
	SignatureHeader = "Omise-Signature"
	TimestampHeader = "Omise-Signature-Timestamp"
)

// DefaultTolerance bounds the age of a signed notification.
const DefaultTolerance = 5 * time.Minute

// Signature is what a delivery carries in its headers. Values holds one or
// more comma separated hex digests; there are two while a secret is rotated.
type Signature struct {
	Timestamp string
	Values    string
}

// FromHeaders reads a Signature with get, e.g. http.Header.Get.
func FromHeaders(get func(string) string) Signature {
	return Signature{
		Timestamp: strings.TrimSpace(get(TimestampHeader)),
		Values:    strings.TrimSpace(get(SignatureHeader)),
	}
}

// Sign computes the headers for payload at ts.
func Sign(secret string, payload []byte, ts time.Time) Signature {
	unix := strconv.FormatInt(ts.Unix(), 10)
	return Signature{Timestamp: unix, Values: hex.EncodeToString(mac(secret, unix, payload))}
}

// Verify checks sig against payload. Any failure is an InvalidSignatureError
// and the payload must not be used.
func Verify(secret string, sig Signature, payload []byte, now time.Time, tolerance time.Duration) error {
	if secret == "" {
		return domain.InvalidSignatureError{Reason: "secret not configured"}
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if sig.Timestamp == "" || sig.Values == "" {
		return domain.InvalidSignatureError{Reason: "missing signature headers"}
	}

	unix, err := strconv.ParseInt(sig.Timestamp, 10, 64)
	if err != nil {
		return domain.InvalidSignatureError{Reason: "malformed timestamp"}
	}
	age := now.Sub(time.Unix(unix, 0))
	if age > tolerance || age < -tolerance {
		return domain.InvalidSignatureError{Reason: fmt.Sprintf("timestamp outside tolerance (%s)", age.Round(time.Second))}
	}

	expected := mac(secret, sig.Timestamp, payload)
	for _, v := range strings.Split(sig.Values, ",") {
		got, err := hex.DecodeString(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		if hmac.Equal(got, expected) {
			return nil
		}
	}
	return domain.InvalidSignatureError{Reason: "signature mismatch"}
}

func mac(secret, ts string, payload []byte) []byte {
	h := hmac.New(sha256.New, signingKey(secret))
	h.Write([]byte(ts))
	h.Write([]byte("."))
	h.Write(payload)
	return h.Sum(nil)
}

// signingKey decodes the dashboard secret, which Omise shows base64 encoded.
// A value that does not decode is used as raw bytes.
func signingKey(secret string) []byte {
	if key, err := base64.StdEncoding.DecodeString(secret); err == nil && len(key) > 0 {
		return key
	}
	return []byte(secret)
}
