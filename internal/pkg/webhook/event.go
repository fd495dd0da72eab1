package webhook

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
)

const (
	EventInvoicePaid      = "invoice.paid"
	EventInvoiceExpired   = "invoice.expired"
	EventInvoiceCanceled  = "invoice.canceled"
	EventInvoiceCancelled = "invoice.cancelled"
)

// Column widths of webhook_events.delivery_id and invoice_id.
const (
	maxDeliveryIDLength = 191
	maxInvoiceIDLength  = 191
)

var ErrMalformedEvent = errors.New("malformed webhook event")

type rawEvent struct {
	EventID string `json:"event_id"`
	ID      string `json:"id"`
	Type    string `json:"type"`
	Data    struct {
		InvoiceID   string                 `json:"invoice_id"`
		AmountMinor json.Number            `json:"amount_minor"`
		Asset       string                 `json:"asset"`
		Chain       string                 `json:"chain"`
		Status      string                 `json:"status"`
		TxHash      string                 `json:"tx_hash"`
		Metadata    map[string]interface{} `json:"metadata"`
	} `json:"data"`
}

// Event is a parsed provider delivery.
type Event struct {
	DeliveryID string
	Type       string
	InvoiceID  string
	OrderID    string // from data.metadata.order_id
	// Gross is nil when the event carries no amount.
	Gross *big.Int
	Asset string
	Chain string
}

// ParseEvent decodes a raw body. Invalid JSON, a missing type or a non-integer
// amount_minor are reported as ErrMalformedEvent.
func ParseEvent(payload []byte) (*Event, error) {
	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if strings.TrimSpace(raw.Type) == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}

	evt := &Event{
		DeliveryID: deliveryID(raw, payload),
		Type:       strings.TrimSpace(raw.Type),
		InvoiceID:  strings.TrimSpace(raw.Data.InvoiceID),
		Asset:      strings.TrimSpace(raw.Data.Asset),
		Chain:      strings.TrimSpace(raw.Data.Chain),
	}
	if v, ok := raw.Data.Metadata["order_id"].(string); ok {
		evt.OrderID = strings.TrimSpace(v)
	}
	if amount := raw.Data.AmountMinor.String(); amount != "" {
		gross, err := money.ParseMinor(amount)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
		evt.Gross = gross
	}
	return evt, nil
}

// deliveryID prefers the provider's event id and falls back to a payload hash.
// Ids too long for the column are replaced by their hash.
func deliveryID(raw rawEvent, payload []byte) string {
	id := strings.TrimSpace(raw.EventID)
	if id == "" {
		id = strings.TrimSpace(raw.ID)
	}
	if id == "" {
		return hashID(payload)
	}
	if len(id) > maxDeliveryIDLength {
		return hashID([]byte(id))
	}
	return id
}

func hashID(b []byte) string {
	sum := sha256.Sum256(b)
	return "hash:" + hex.EncodeToString(sum[:])
}
