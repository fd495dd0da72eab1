package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	SignatureHeader = "X-MX-Signature"
	TimestampHeader = "X-MX-Timestamp"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Verifier checks the provider's HMAC-SHA256 signature over "<timestamp>.<raw body>".
type Verifier struct {
	Secret string
	// Skip disables verification entirely. Local testing only.
	Skip bool
	// Tolerance bounds the timestamp age when > 0.
	Tolerance time.Duration
	Now       func() time.Time
}

func (v Verifier) Verify(payload []byte, timestampHeader, signatureHeader string) error {
	if v.Skip {
		return nil
	}

	secret := strings.TrimSpace(v.Secret)
	ts := strings.TrimSpace(timestampHeader)
	sig := strings.TrimPrefix(strings.TrimSpace(signatureHeader), "sha256=")
	if secret == "" {
		return fmt.Errorf("%w: secret not configured", ErrInvalidSignature)
	}
	if sig == "" || ts == "" {
		return fmt.Errorf("%w: missing signature or timestamp header", ErrInvalidSignature)
	}

	decodedSig, err := hex.DecodeString(strings.ToLower(sig))
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidSignature)
	}
	if !hmac.Equal(computeMAC(secret, ts, payload), decodedSig) {
		return fmt.Errorf("%w: mismatch", ErrInvalidSignature)
	}

	if v.Tolerance > 0 {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: timestamp is not unix seconds", ErrInvalidSignature)
		}
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		age := now().Sub(time.Unix(secs, 0))
		if age < 0 {
			age = -age
		}
		if age > v.Tolerance {
			return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
		}
	}
	return nil
}

// Sign returns the hex signature a provider would send for payload.
func Sign(secret, timestamp string, payload []byte) string {
	return hex.EncodeToString(computeMAC(secret, timestamp, payload))
}

func computeMAC(secret, timestamp string, payload []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	return mac.Sum(nil)
}
