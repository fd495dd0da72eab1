// Package payout talks to the external payout provider that moves funds to seller wallets.
package payout

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// ErrProviderFailed is returned when the provider reports a payout as failed.
var ErrProviderFailed = errors.New("payout provider reported failure")

// Request is one payout submission. IdempotencyKey must be stable across retries.
type Request struct {
	IdempotencyKey string
	ToAddress      string
	Asset          string
	Chain          string
	AmountMinor    *big.Int
	OrderID        string
	ServerID       string
}

// Result is the provider's view of a payout after submit or poll.
type Result struct {
	ExternalID string
	TxHash     string
	Status     string
}

// Provider submits payouts and reports their progress.
type Provider interface {
	Submit(ctx context.Context, req Request) (*Result, error)
	Poll(ctx context.Context, externalID string) (*Result, error)
}

// MapStatus translates a provider status into the next payout status. ok is false
// when the status implies no transition. A "failed" status yields ErrProviderFailed.
func MapStatus(providerStatus string) (next models.PayoutStatus, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "sent", "broadcasted":
		return models.PayoutStatusSent, true, nil
	case "confirmed":
		return models.PayoutStatusConfirmed, true, nil
	case "failed":
		return "", false, ErrProviderFailed
	}
	return "", false, nil
}
