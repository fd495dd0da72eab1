package webhook

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestVerifyAcceptsValidSignature(t *testing.T) {
	body := []byte(`{"type":"invoice.paid"}`)
	v := Verifier{Secret: "s3cret"}

	assert.NoError(t, v.Verify(body, "1700000000", Sign("s3cret", "1700000000", body)))
	assert.NoError(t, v.Verify(body, "1700000000", "sha256="+Sign("s3cret", "1700000000", body)))
}

func TestVerifyRejects(t *testing.T) {
	body := []byte(`{"type":"invoice.paid","data":{"amount_minor":"100"}}`)
	good := Sign("s3cret", "1700000000", body)

	tests := []struct {
		name    string
		v       Verifier
		payload []byte
		ts      string
		sig     string
	}{
		{"tampered body", Verifier{Secret: "s3cret"}, []byte(`{"type":"invoice.paid","data":{"amount_minor":"999"}}`), "1700000000", good},
		{"other timestamp", Verifier{Secret: "s3cret"}, body, "1700000001", good},
		{"wrong secret", Verifier{Secret: "other"}, body, "1700000000", good},
		{"missing signature", Verifier{Secret: "s3cret"}, body, "1700000000", ""},
		{"missing timestamp", Verifier{Secret: "s3cret"}, body, "", good},
		{"non hex", Verifier{Secret: "s3cret"}, body, "1700000000", "zz-not-hex"},
		{"no secret configured", Verifier{}, body, "1700000000", good},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.v.Verify(tt.payload, tt.ts, tt.sig), ErrInvalidSignature)
		})
	}
}

func TestVerifySkip(t *testing.T) {
	v := Verifier{Skip: true}
	assert.NoError(t, v.Verify([]byte("anything"), "", ""))
}

func TestVerifyTolerance(t *testing.T) {
	now := time.Unix(1700000000, 0)
	body := []byte(`{}`)
	v := Verifier{Secret: "s3cret", Tolerance: 5 * time.Minute, Now: func() time.Time { return now }}

	fresh := strconv.FormatInt(now.Add(-time.Minute).Unix(), 10)
	assert.NoError(t, v.Verify(body, fresh, Sign("s3cret", fresh, body)))

	stale := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
	assert.ErrorIs(t, v.Verify(body, stale, Sign("s3cret", stale, body)), ErrInvalidSignature)
}
