package payout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Mock confirms every payout immediately without calling anything.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Submit(ctx context.Context, req Request) (*Result, error) {
	return &Result{
		ExternalID: "mock_" + req.IdempotencyKey,
		TxHash:     mockTxHash(req.IdempotencyKey),
		Status:     "confirmed",
	}, nil
}

func (m *Mock) Poll(ctx context.Context, externalID string) (*Result, error) {
	return &Result{ExternalID: externalID, TxHash: mockTxHash(externalID), Status: "confirmed"}, nil
}

func mockTxHash(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return "0x" + hex.EncodeToString(sum[:])
}
