package repotest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
)

func TestTransactionRollsBackOnError(t *testing.T) {
	l := NewLedger()
	f := SeedCatalog(t, l, FixtureOptions{})
	order := SeedOrder(t, l, f, "", "inv_1")

	boom := errors.New("boom")
	err := l.Transaction(context.Background(), func(repos *repository.Repositories) error {
		require.NoError(t, repos.Order.MarkPaid(context.Background(), order.ID, models.OrderStatusPending, "100", "3", "97"))
		require.NoError(t, repos.Payout.Create(context.Background(), &models.Payout{OrderID: order.ID, AmountMinor: "97"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := l.Repos().Order.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	assert.Empty(t, l.Payouts())
}

func TestInsertIfAbsentTagsOutcome(t *testing.T) {
	l := NewLedger()
	repo := l.Repos().WebhookEvent

	outcome, first, err := repo.InsertIfAbsent(context.Background(), &models.WebhookEvent{DeliveryID: "evt_1", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, repository.Inserted, outcome)

	outcome, second, err := repo.InsertIfAbsent(context.Background(), &models.WebhookEvent{DeliveryID: "evt_1", Type: "invoice.paid"})
	require.NoError(t, err)
	assert.Equal(t, repository.AlreadyPresent, outcome)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, l.WebhookEvents(), 1)
}

func TestUniqueConstraints(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	repos := l.Repos()

	require.NoError(t, repos.Payout.Create(ctx, &models.Payout{OrderID: "o1", AmountMinor: "1"}))
	assert.ErrorIs(t, repos.Payout.Create(ctx, &models.Payout{OrderID: "o1", AmountMinor: "1"}), gorm.ErrDuplicatedKey)

	require.NoError(t, repos.RoleGrant.Create(ctx, &models.RoleGrant{OrderID: "o1", DiscordID: "d1", ProductID: "p"}))
	assert.ErrorIs(t, repos.RoleGrant.Create(ctx, &models.RoleGrant{OrderID: "o1", DiscordID: "d1", ProductID: "p"}), gorm.ErrDuplicatedKey)
}

func TestTransitionRequiresExpectedStatus(t *testing.T) {
	l := NewLedger()
	ctx := context.Background()
	p := &models.Payout{OrderID: "o1", AmountMinor: "5"}
	require.NoError(t, l.Repos().Payout.Create(ctx, p))

	err := l.Repos().Payout.Transition(ctx, p.ID, models.PayoutStatusRequested, repository.PayoutChange{Status: models.PayoutStatusSent})
	assert.ErrorIs(t, err, repository.ErrStatusMismatch)

	ext := "ext_1"
	require.NoError(t, l.Repos().Payout.Transition(ctx, p.ID, models.PayoutStatusQueued, repository.PayoutChange{
		Status:     models.PayoutStatusRequested,
		Attempts:   1,
		ExternalID: &ext,
	}))
	stored, err := l.Repos().Payout.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutStatusRequested, stored.Status)
	assert.Equal(t, "ext_1", *stored.ExternalID)
	assert.Equal(t, 1, stored.Attempts)
}
