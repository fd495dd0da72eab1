package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository/repotest"
	"github.com/ManuelReschke/GuildPay/internal/pkg/alerts"
	"github.com/ManuelReschke/GuildPay/internal/pkg/payout"
)

// fakeProvider merges submissions by idempotency key the way a real provider must.
type fakeProvider struct {
	mu          sync.Mutex
	submissions []payout.Request
	byKey       map[string]string
	created     int
	submitErr   func(req payout.Request) error
	submitState string
	pollState   map[string]string
	pollErr     error
	polls       int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{byKey: map[string]string{}, pollState: map[string]string{}, submitState: "pending"}
}

func (f *fakeProvider) Submit(ctx context.Context, req payout.Request) (*payout.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, req)
	if f.submitErr != nil {
		if err := f.submitErr(req); err != nil {
			return nil, err
		}
	}
	id, ok := f.byKey[req.IdempotencyKey]
	if !ok {
		f.created++
		id = fmt.Sprintf("po_%d", f.created)
		f.byKey[req.IdempotencyKey] = id
	}
	return &payout.Result{ExternalID: id, Status: f.submitState}, nil
}

func (f *fakeProvider) Poll(ctx context.Context, externalID string) (*payout.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	return &payout.Result{ExternalID: externalID, Status: f.pollState[externalID], TxHash: "0xtx"}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alerts.Alert
}

func (n *recordingNotifier) Notify(ctx context.Context, a alerts.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

type denyLease struct{}

func (denyLease) Acquire(ctx context.Context, queue, id string) (func(), bool, error) {
	return func() {}, false, nil
}

type brokenLease struct{}

func (brokenLease) Acquire(ctx context.Context, queue, id string) (func(), bool, error) {
	return func() {}, false, errors.New("redis unavailable")
}

func seedPayout(t *testing.T, l *repotest.Ledger, orderID, amount string) *models.Payout {
	t.Helper()
	p := &models.Payout{
		OrderID:     orderID,
		ServerID:    "server-1",
		ToAddress:   "0xSELLER",
		Asset:       "USDC",
		Chain:       "POLYGON",
		AmountMinor: amount,
	}
	require.NoError(t, l.Repos().Payout.Create(context.Background(), p))
	return p
}

func getPayout(t *testing.T, l *repotest.Ledger, id string) *models.Payout {
	t.Helper()
	p, err := l.Repos().Payout.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}
