package invoice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testInput() Input {
	return Input{
		OrderID:     "order-1",
		Amount:      "12.99",
		Currency:    "USD",
		UserName:    "DiscordBuyer",
		UserEmail:   "buyer@example.com",
		SiteName:    "GuildPay",
		RedirectURL: "http://app/success?order=order-1",
		CancelURL:   "http://app/products/p1?canceled=1",
		WebsiteURL:  "http://app",
		WebhookURL:  "http://app/api/webhooks/maxelpay",
		Metadata:    map[string]string{"order_id": "order-1"},
	}
}

func TestEncryptRoundTrip(t *testing.T) {
	enc, err := encryptPayload(testSecret, []byte(`{"hello":"world"}`))
	require.NoError(t, err)
	plain, err := decryptPayload(testSecret, enc)
	require.NoError(t, err)
	assert.Equal(t, `{"hello":"world"}`, string(plain))
}

func TestEncryptRejectsBadSecret(t *testing.T) {
	_, err := encryptPayload("too-short", []byte("x"))
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestCreateInvoiceSendsEncryptedPayload(t *testing.T) {
	var payload checkoutPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/stg/merchant/order/checkout", r.URL.Path)
		assert.Equal(t, "key_1", r.Header.Get("api-key"))

		raw, _ := io.ReadAll(r.Body)
		var envelope map[string]string
		require.NoError(t, json.Unmarshal(raw, &envelope))
		plain, err := decryptPayload(testSecret, envelope["data"])
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(plain, &payload))

		_, _ = w.Write([]byte(`{"order_id":"inv_42","payment_url":"https://pay.example/inv_42"}`))
	}))
	defer srv.Close()

	c := NewClient(config.Provider{APIBase: srv.URL, Env: "stg", APIKey: "key_1", APISecret: testSecret})
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }

	res, err := c.CreateInvoice(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "inv_42", res.InvoiceID)
	assert.Equal(t, "https://pay.example/inv_42", res.CheckoutURL)

	assert.Equal(t, "order-1", payload.OrderID)
	assert.Equal(t, "12.99", payload.Amount)
	assert.Equal(t, "1700000000", payload.Timestamp)
	assert.Nil(t, payload.Metadata)
}

func TestCreateInvoiceForwardsMetadataWhenEnabled(t *testing.T) {
	var payload checkoutPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var envelope map[string]string
		_ = json.Unmarshal(raw, &envelope)
		plain, _ := decryptPayload(testSecret, envelope["data"])
		_ = json.Unmarshal(plain, &payload)
		_, _ = w.Write([]byte(`{"result":"https://pay.example/x"}`))
	}))
	defer srv.Close()

	c := NewClient(config.Provider{APIBase: srv.URL, Env: "prod", APIKey: "k", APISecret: testSecret, ForwardMetadata: true})
	res, err := c.CreateInvoice(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, "order-1", res.InvoiceID)
	assert.Equal(t, map[string]string{"order_id": "order-1"}, payload.Metadata)
}

func TestParseCheckoutResponseFallbacks(t *testing.T) {
	tests := []struct {
		body    string
		id, url string
	}{
		{`{"invoice_id":"a","checkout_url":"u1"}`, "a", "u1"},
		{`{"id":"b","url":"u2"}`, "b", "u2"},
		{`{"data":{"id":"c","payment_url":"u3"}}`, "c", "u3"},
		{`{"data":{"url":"u4"}}`, "order-1", "u4"},
		{`{"id":17,"result":"u5"}`, "17", "u5"},
	}
	for _, tt := range tests {
		res, err := parseCheckoutResponse([]byte(tt.body), "order-1")
		require.NoError(t, err, tt.body)
		assert.Equal(t, tt.id, res.InvoiceID, tt.body)
		assert.Equal(t, tt.url, res.CheckoutURL, tt.body)
	}

	_, err := parseCheckoutResponse([]byte(`not json`), "order-1")
	assert.Error(t, err)
}

func TestCreateInvoiceProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`bad key`))
	}))
	defer srv.Close()

	c := NewClient(config.Provider{APIBase: srv.URL, Env: "stg", APIKey: "k", APISecret: testSecret})
	_, err := c.CreateInvoice(context.Background(), testInput())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status=401"))
}

func TestCreateInvoiceRequiresConfiguration(t *testing.T) {
	_, err := NewClient(config.Provider{}).CreateInvoice(context.Background(), testInput())
	assert.Error(t, err)
}
