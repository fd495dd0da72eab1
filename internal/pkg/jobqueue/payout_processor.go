package jobqueue

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/alerts"
	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
	"github.com/ManuelReschke/GuildPay/internal/pkg/payout"
)

const QueuePayouts = "payouts"

// BatchResult summarizes one tick.
type BatchResult struct {
	Selected int
	Advanced int
	Retried  int
	Failed   int
	Skipped  int
	Waiting  int
}

// PayoutOptions tunes the payout worker.
type PayoutOptions struct {
	BatchSize      int
	RequestTimeout time.Duration
	Retry          RetryPolicy
	// FailFast fails a payout as soon as the provider reports it failed.
	FailFast bool
	// TrackSent keeps polling SENT payouts until they are confirmed or failed.
	TrackSent bool
}

// PayoutProcessor drives payouts from QUEUED to a terminal status.
type PayoutProcessor struct {
	repo     repository.PayoutRepository
	provider payout.Provider
	notifier alerts.Notifier
	lease    Lease
	stats    Stats
	opts     PayoutOptions
}

func NewPayoutProcessor(repo repository.PayoutRepository, provider payout.Provider, notifier alerts.Notifier, lease Lease, stats Stats, opts PayoutOptions) *PayoutProcessor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 25
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if notifier == nil {
		notifier = alerts.LogNotifier{}
	}
	if lease == nil {
		lease = NoopLease{}
	}
	if stats == nil {
		stats = NewMemoryStats()
	}
	return &PayoutProcessor{repo: repo, provider: provider, notifier: notifier, lease: lease, stats: stats, opts: opts}
}

func (p *PayoutProcessor) selectable() []models.PayoutStatus {
	statuses := []models.PayoutStatus{models.PayoutStatusQueued, models.PayoutStatusRequested}
	if p.opts.TrackSent {
		statuses = append(statuses, models.PayoutStatusSent)
	}
	return statuses
}

// ProcessBatch advances up to BatchSize payouts, oldest first, one at a time.
// Only the selection query can fail the batch; row errors are recorded on the row.
func (p *PayoutProcessor) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	rows, err := p.repo.ListByStatus(ctx, p.selectable(), p.opts.BatchSize)
	if err != nil {
		return result, err
	}
	result.Selected = len(rows)

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		outcome := p.processOne(ctx, row)
		p.stats.Incr(ctx, QueuePayouts, outcome)
		switch outcome {
		case OutcomeAdvanced:
			result.Advanced++
		case OutcomeRetry:
			result.Retried++
		case OutcomeFailed:
			result.Failed++
		case OutcomeSkipped:
			result.Skipped++
		case OutcomeWaiting:
			result.Waiting++
		}
	}

	if result.Selected > 0 {
		log.Infof("[PayoutWorker] Batch done: selected=%d advanced=%d retried=%d failed=%d skipped=%d waiting=%d",
			result.Selected, result.Advanced, result.Retried, result.Failed, result.Skipped, result.Waiting)
	}
	return result, nil
}

func (p *PayoutProcessor) processOne(ctx context.Context, row models.Payout) string {
	release, ok, err := p.lease.Acquire(ctx, QueuePayouts, row.ID)
	if err != nil {
		log.Warnf("[PayoutWorker] Lease unavailable for %s, processing anyway: %v", row.ID, err)
	} else if !ok {
		return OutcomeSkipped
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	change, callErr := p.advance(callCtx, row)
	cancel()

	if callErr != nil {
		change = p.failure(row, callErr)
		log.Warnf("[PayoutWorker] Payout %s attempt %d failed: %v", row.ID, change.Attempts, callErr)
	}
	if change == nil {
		return OutcomeWaiting
	}

	if err := p.repo.Transition(ctx, row.ID, row.Status, *change); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			log.Debugf("[PayoutWorker] Payout %s changed concurrently, skipping", row.ID)
			return OutcomeSkipped
		}
		log.Errorf("[PayoutWorker] Failed to store payout %s: %v", row.ID, err)
		return OutcomeSkipped
	}

	switch {
	case change.Status == models.PayoutStatusFailed:
		p.alert(ctx, row, change)
		return OutcomeFailed
	case callErr != nil:
		return OutcomeRetry
	}
	log.Infof("[PayoutWorker] Payout %s %s -> %s", row.ID, row.Status, change.Status)
	return OutcomeAdvanced
}

// advance performs the provider call for the row's current status. A nil change
// with a nil error means the provider has nothing new yet.
func (p *PayoutProcessor) advance(ctx context.Context, row models.Payout) (*repository.PayoutChange, error) {
	if row.Status == models.PayoutStatusQueued || row.ExternalID == nil || *row.ExternalID == "" {
		return p.submit(ctx, row)
	}
	return p.poll(ctx, row)
}

func (p *PayoutProcessor) submit(ctx context.Context, row models.Payout) (*repository.PayoutChange, error) {
	amount, err := money.ParseMinor(row.AmountMinor)
	if err != nil {
		return nil, err
	}
	res, err := p.provider.Submit(ctx, payout.Request{
		IdempotencyKey: row.ID,
		ToAddress:      row.ToAddress,
		Asset:          row.Asset,
		Chain:          row.Chain,
		AmountMinor:    amount,
		OrderID:        row.OrderID,
		ServerID:       row.ServerID,
	})
	if err != nil {
		return nil, err
	}

	next, moved, err := payout.MapStatus(res.Status)
	if err != nil {
		return nil, err
	}
	change := &repository.PayoutChange{
		Status:     models.PayoutStatusRequested,
		Attempts:   row.Attempts + 1,
		ExternalID: &res.ExternalID,
		TxHash:     optional(res.TxHash),
	}
	if moved {
		change.Status = next
	}
	return change, nil
}

func (p *PayoutProcessor) poll(ctx context.Context, row models.Payout) (*repository.PayoutChange, error) {
	res, err := p.provider.Poll(ctx, *row.ExternalID)
	if err != nil {
		return nil, err
	}
	next, moved, err := payout.MapStatus(res.Status)
	if err != nil {
		return nil, err
	}
	if !moved || next == row.Status {
		return nil, nil
	}
	return &repository.PayoutChange{
		Status:   next,
		Attempts: row.Attempts,
		TxHash:   optional(res.TxHash),
	}, nil
}

func (p *PayoutProcessor) failure(row models.Payout, err error) *repository.PayoutChange {
	attempts := row.Attempts + 1
	status := row.Status
	if p.opts.Retry.Exhausted(attempts) || (p.opts.FailFast && errors.Is(err, payout.ErrProviderFailed)) {
		status = models.PayoutStatusFailed
	}
	return &repository.PayoutChange{
		Status:    status,
		Attempts:  attempts,
		LastError: errorText(err),
	}
}

func (p *PayoutProcessor) alert(ctx context.Context, row models.Payout, change *repository.PayoutChange) {
	a := alerts.Alert{
		Kind:     alerts.KindPayoutFailed,
		ID:       row.ID,
		OrderID:  row.OrderID,
		Attempts: change.Attempts,
		At:       time.Now().UTC(),
	}
	if change.LastError != nil {
		a.LastError = *change.LastError
	}
	if err := p.notifier.Notify(ctx, a); err != nil {
		log.Errorf("[PayoutWorker] Failed to publish alert for payout %s: %v", row.ID, err)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
