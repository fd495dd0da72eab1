// Package invoice creates orders and their hosted checkout invoices.
package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

// Input is what the provider needs to open a checkout for one order.
type Input struct {
	OrderID     string
	Amount      string
	Currency    string
	UserName    string
	UserEmail   string
	SiteName    string
	RedirectURL string
	CancelURL   string
	WebsiteURL  string
	WebhookURL  string
	Metadata    map[string]string
}

type Result struct {
	InvoiceID   string
	CheckoutURL string
}

// Creator opens a checkout invoice.
type Creator interface {
	CreateInvoice(ctx context.Context, in Input) (*Result, error)
}

// Client is the MaxelPay checkout API.
type Client struct {
	BaseURL         string
	Env             string
	APIKey          string
	Secret          string
	ForwardMetadata bool
	HTTPClient      *http.Client
	Now             func() time.Time
}

func NewClient(cfg config.Provider) *Client {
	return &Client{
		BaseURL:         strings.TrimRight(cfg.APIBase, "/"),
		Env:             cfg.Env,
		APIKey:          cfg.APIKey,
		Secret:          cfg.APISecret,
		ForwardMetadata: cfg.ForwardMetadata,
		HTTPClient:      &http.Client{Timeout: 15 * time.Second},
		Now:             time.Now,
	}
}

// NewCreator returns the mock in mock mode and the HTTP client otherwise.
func NewCreator(cfg config.Provider) Creator {
	if cfg.Mock {
		return Mock{}
	}
	return NewClient(cfg)
}

type checkoutPayload struct {
	OrderID     string            `json:"orderID"`
	Amount      string            `json:"amount"`
	Currency    string            `json:"currency"`
	Timestamp   string            `json:"timestamp"`
	UserName    string            `json:"userName"`
	SiteName    string            `json:"siteName"`
	UserEmail   string            `json:"userEmail"`
	RedirectURL string            `json:"redirectUrl"`
	WebsiteURL  string            `json:"websiteUrl"`
	CancelURL   string            `json:"cancelUrl"`
	WebhookURL  string            `json:"webhookUrl"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func (c *Client) CreateInvoice(ctx context.Context, in Input) (*Result, error) {
	if c.BaseURL == "" {
		return nil, errors.New("MAXELPAY_API_BASE is not configured")
	}
	if c.APIKey == "" {
		return nil, errors.New("MAXELPAY_API_KEY is not configured")
	}
	if c.Secret == "" {
		return nil, errors.New("MAXELPAY_API_SECRET is not configured")
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	payload := checkoutPayload{
		OrderID:     in.OrderID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Timestamp:   strconv.FormatInt(now().Unix(), 10),
		UserName:    in.UserName,
		SiteName:    in.SiteName,
		UserEmail:   in.UserEmail,
		RedirectURL: in.RedirectURL,
		WebsiteURL:  in.WebsiteURL,
		CancelURL:   in.CancelURL,
		WebhookURL:  in.WebhookURL,
	}
	if c.ForwardMetadata {
		payload.Metadata = in.Metadata
	}

	plain, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	encrypted, err := encryptPayload(c.Secret, plain)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"data": encrypted})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/%s/merchant/order/checkout", c.BaseURL, c.Env)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("maxelpay create invoice failed: status=%d body=%s", resp.StatusCode, string(respBody))
	}

	return parseCheckoutResponse(respBody, in.OrderID)
}

// parseCheckoutResponse reads the invoice id and checkout url from the
// response shapes the provider is known to return.
func parseCheckoutResponse(body []byte, orderID string) (*Result, error) {
	var data map[string]any
	_ = json.Unmarshal(body, &data)
	nested, _ := data["data"].(map[string]any)

	invoiceID := firstString(
		lookup(data, "order_id"), lookup(data, "invoice_id"), lookup(data, "id"), lookup(nested, "id"),
	)
	if invoiceID == "" {
		invoiceID = orderID
	}
	checkoutURL := firstString(
		lookup(data, "payment_url"), lookup(data, "checkout_url"), lookup(data, "url"), lookup(data, "result"),
		lookup(nested, "payment_url"), lookup(nested, "url"),
	)
	if checkoutURL == "" {
		log.Warnf("[Invoice] Unknown checkout response shape: %s", string(body))
		return nil, errors.New("missing checkout URL in response")
	}
	return &Result{InvoiceID: invoiceID, CheckoutURL: checkoutURL}, nil
}

func lookup(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func firstString(values ...any) string {
	for _, v := range values {
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

// Mock returns a stub checkout without calling the provider.
type Mock struct{}

func (Mock) CreateInvoice(ctx context.Context, in Input) (*Result, error) {
	return &Result{InvoiceID: "mock_" + in.OrderID, CheckoutURL: "https://example.com/checkout/mock"}, nil
}
