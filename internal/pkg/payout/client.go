package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
)

// Client is the HTTP payout provider.
type Client struct {
	BaseURL    string
	APIKey     string
	Layout     config.PayoutPayload
	HTTPClient *http.Client
}

type providerResponse struct {
	ID     string `json:"id"`
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

func NewClient(cfg config.Provider, layout config.PayoutPayload, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		BaseURL:    strings.TrimRight(cfg.APIBase, "/"),
		APIKey:     cfg.APIKey,
		Layout:     layout,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// NewProvider returns the mock provider in mock mode and the HTTP client otherwise.
func NewProvider(cfg config.Provider, layout config.PayoutPayload, timeout time.Duration) Provider {
	if cfg.Mock {
		return NewMock()
	}
	return NewClient(cfg, layout, timeout)
}

func (c *Client) Submit(ctx context.Context, req Request) (*Result, error) {
	if req.AmountMinor == nil || req.AmountMinor.Sign() <= 0 {
		return nil, errors.New("payout amount must be positive")
	}
	body, err := json.Marshal(BuildPayload(c.Layout, req))
	if err != nil {
		return nil, err
	}
	out, err := c.do(ctx, http.MethodPost, "/v1/payouts", body, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("payout submit: %w", err)
	}
	if out.ExternalID == "" {
		return nil, errors.New("payout submit: response has no payout id")
	}
	return out, nil
}

func (c *Client) Poll(ctx context.Context, externalID string) (*Result, error) {
	if strings.TrimSpace(externalID) == "" {
		return nil, errors.New("payout has no external id")
	}
	out, err := c.do(ctx, http.MethodGet, "/v1/payouts/"+url.PathEscape(externalID), nil, "")
	if err != nil {
		return nil, fmt.Errorf("payout poll: %w", err)
	}
	// The status endpoint answers {status, tx_hash} without echoing the id.
	if out.ExternalID == "" {
		out.ExternalID = externalID
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, idempotencyKey string) (*Result, error) {
	if c.BaseURL == "" || c.APIKey == "" {
		return nil, errors.New("MAXELPAY_API_BASE/MAXELPAY_API_KEY are not configured")
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out providerResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &Result{ExternalID: strings.TrimSpace(out.ID), TxHash: out.TxHash, Status: out.Status}, nil
}
