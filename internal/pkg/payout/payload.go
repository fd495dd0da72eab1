package payout

import (
	"encoding/json"

	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
)

// DefaultPayload is the provider's native field layout.
func DefaultPayload() config.PayoutPayload {
	return config.PayoutPayload{
		AmountField:    "amount_minor",
		AmountEncoding: "string",
		AmountUnit:     "minor",
		AmountDecimals: 6,
		AddressField:   "to",
		NetworkField:   "chain",
	}
}

// BuildPayload renders the submit body for req using the configured field names and amount encoding.
func BuildPayload(layout config.PayoutPayload, req Request) map[string]any {
	amount := req.AmountMinor.String()
	if layout.AmountUnit == "decimal" {
		amount = money.FormatMinor(req.AmountMinor, layout.AmountDecimals)
	}

	var amountValue any = amount
	if layout.AmountEncoding == "number" {
		amountValue = json.Number(amount)
	}

	return map[string]any{
		layout.AmountField:  amountValue,
		layout.AddressField: req.ToAddress,
		layout.NetworkField: req.Chain,
		"asset":             req.Asset,
		"idempotency_key":   req.IdempotencyKey,
		"metadata": map[string]string{
			"orderId":  req.OrderID,
			"serverId": req.ServerID,
		},
	}
}
