package jobqueue

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/alerts"
	"github.com/ManuelReschke/GuildPay/internal/pkg/discord"
)

const QueueRoleGrants = "role_grants"

var (
	errNoRoleConfigured = errors.New("product has no role configured")
	errNoGuild          = errors.New("product has no server guild")
)

type RoleOptions struct {
	BatchSize      int
	RequestTimeout time.Duration
	Retry          RetryPolicy
}

// RoleProcessor grants Discord roles for QUEUED role grants.
type RoleProcessor struct {
	repo     repository.RoleGrantRepository
	granter  discord.RoleGranter
	notifier alerts.Notifier
	lease    Lease
	stats    Stats
	opts     RoleOptions
}

func NewRoleProcessor(repo repository.RoleGrantRepository, granter discord.RoleGranter, notifier alerts.Notifier, lease Lease, stats Stats, opts RoleOptions) *RoleProcessor {
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
	return &RoleProcessor{repo: repo, granter: granter, notifier: notifier, lease: lease, stats: stats, opts: opts}
}

func (p *RoleProcessor) ProcessBatch(ctx context.Context) (BatchResult, error) {
	var result BatchResult

	rows, err := p.repo.ListByStatus(ctx, []models.RoleGrantStatus{models.RoleGrantStatusQueued}, p.opts.BatchSize)
	if err != nil {
		return result, err
	}
	result.Selected = len(rows)

	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		outcome := p.processOne(ctx, row)
		p.stats.Incr(ctx, QueueRoleGrants, outcome)
		switch outcome {
		case OutcomeAdvanced:
			result.Advanced++
		case OutcomeRetry:
			result.Retried++
		case OutcomeFailed:
			result.Failed++
		case OutcomeSkipped:
			result.Skipped++
		}
	}

	if result.Selected > 0 {
		log.Infof("[RoleWorker] Batch done: selected=%d granted=%d retried=%d failed=%d skipped=%d",
			result.Selected, result.Advanced, result.Retried, result.Failed, result.Skipped)
	}
	return result, nil
}

func (p *RoleProcessor) processOne(ctx context.Context, row models.RoleGrant) string {
	release, ok, err := p.lease.Acquire(ctx, QueueRoleGrants, row.ID)
	if err != nil {
		log.Warnf("[RoleWorker] Lease unavailable for %s, processing anyway: %v", row.ID, err)
	} else if !ok {
		return OutcomeSkipped
	}
	defer release()

	callCtx, cancel := context.WithTimeout(ctx, p.opts.RequestTimeout)
	grantErr := p.grant(callCtx, row)
	cancel()

	change := repository.RoleGrantChange{
		Status:   models.RoleGrantStatusDone,
		Attempts: row.Attempts + 1,
	}
	if grantErr != nil {
		change.Status = models.RoleGrantStatusQueued
		if p.opts.Retry.Exhausted(change.Attempts) {
			change.Status = models.RoleGrantStatusFailed
		}
		change.LastError = errorText(grantErr)
		log.Warnf("[RoleWorker] Role grant %s attempt %d failed: %v", row.ID, change.Attempts, grantErr)
	}

	if err := p.repo.Transition(ctx, row.ID, row.Status, change); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			log.Debugf("[RoleWorker] Role grant %s changed concurrently, skipping", row.ID)
		} else {
			log.Errorf("[RoleWorker] Failed to store role grant %s: %v", row.ID, err)
		}
		return OutcomeSkipped
	}

	switch change.Status {
	case models.RoleGrantStatusFailed:
		a := alerts.Alert{
			Kind:      alerts.KindRoleGrantFailed,
			ID:        row.ID,
			OrderID:   row.OrderID,
			Attempts:  change.Attempts,
			LastError: *change.LastError,
			At:        time.Now().UTC(),
		}
		if err := p.notifier.Notify(ctx, a); err != nil {
			log.Errorf("[RoleWorker] Failed to publish alert for role grant %s: %v", row.ID, err)
		}
		return OutcomeFailed
	case models.RoleGrantStatusDone:
		log.Infof("[RoleWorker] Granted role for order %s to %s", row.OrderID, row.DiscordID)
		return OutcomeAdvanced
	}
	return OutcomeRetry
}

func (p *RoleProcessor) grant(ctx context.Context, row models.RoleGrant) error {
	product := row.Product
	if product == nil || !product.HasRole() {
		return errNoRoleConfigured
	}
	if product.Server == nil || product.Server.GuildID == "" {
		return errNoGuild
	}
	return p.granter.GrantRole(ctx, product.Server.GuildID, row.DiscordID, *product.RoleID)
}
