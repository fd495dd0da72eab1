package jobqueue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository/repotest"
)

type grantCall struct{ guild, user, role string }

type fakeGranter struct {
	mu    sync.Mutex
	calls []grantCall
	err   error
}

func (g *fakeGranter) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, grantCall{guildID, userID, roleID})
	return g.err
}

func seedRoleGrant(t *testing.T, l *repotest.Ledger, opts repotest.FixtureOptions) *models.RoleGrant {
	t.Helper()
	f := repotest.SeedCatalog(t, l, opts)
	order := repotest.SeedOrder(t, l, f, "123456789", "inv_1")
	g := &models.RoleGrant{OrderID: order.ID, ProductID: f.Product.ID, DiscordID: "123456789"}
	require.NoError(t, l.Repos().RoleGrant.Create(context.Background(), g))
	return g
}

func getGrant(t *testing.T, l *repotest.Ledger, id string) *models.RoleGrant {
	t.Helper()
	g, err := l.Repos().RoleGrant.GetByID(context.Background(), id)
	require.NoError(t, err)
	return g
}

func newRoleProcessor(l *repotest.Ledger, granter *fakeGranter, notifier *recordingNotifier) *RoleProcessor {
	return NewRoleProcessor(l.Repos().RoleGrant, granter, notifier, nil, nil, RoleOptions{Retry: DefaultRetryPolicy()})
}

func TestRoleGrantSucceeds(t *testing.T) {
	l := repotest.NewLedger()
	g := seedRoleGrant(t, l, repotest.FixtureOptions{RoleID: "999"})
	granter := &fakeGranter{}
	proc := newRoleProcessor(l, granter, &recordingNotifier{})

	res, err := proc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Advanced)
	assert.Equal(t, []grantCall{{"111222333444555666", "123456789", "999"}}, granter.calls)

	stored := getGrant(t, l, g.ID)
	assert.Equal(t, models.RoleGrantStatusDone, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Nil(t, stored.LastError)

	res, err = proc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Selected)
}

func TestRoleGrantFailsAfterFiveAttempts(t *testing.T) {
	l := repotest.NewLedger()
	g := seedRoleGrant(t, l, repotest.FixtureOptions{RoleID: "999"})
	granter := &fakeGranter{err: errors.New("discord role grant failed: status=403")}
	notifier := &recordingNotifier{}
	proc := newRoleProcessor(l, granter, notifier)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := proc.ProcessBatch(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, getGrant(t, l, g.ID).Attempts)
	}
	stored := getGrant(t, l, g.ID)
	assert.Equal(t, models.RoleGrantStatusFailed, stored.Status)
	assert.Contains(t, *stored.LastError, "status=403")

	res, err := proc.ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Selected)
	assert.Len(t, granter.calls, 5)
	require.Len(t, notifier.alerts, 1)
	assert.Equal(t, g.ID, notifier.alerts[0].ID)
}

func TestRoleGrantMissingRoleCountsAsAttempt(t *testing.T) {
	l := repotest.NewLedger()
	g := seedRoleGrant(t, l, repotest.FixtureOptions{})
	granter := &fakeGranter{}
	proc := newRoleProcessor(l, granter, &recordingNotifier{})

	res, err := proc.ProcessBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Retried)

	stored := getGrant(t, l, g.ID)
	assert.Equal(t, models.RoleGrantStatusQueued, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Contains(t, *stored.LastError, "no role configured")
	assert.Empty(t, granter.calls)
}

func TestRoleGrantRecoversAfterTransientError(t *testing.T) {
	l := repotest.NewLedger()
	g := seedRoleGrant(t, l, repotest.FixtureOptions{RoleID: "999"})
	granter := &fakeGranter{err: errors.New("rate limited")}
	proc := newRoleProcessor(l, granter, &recordingNotifier{})
	ctx := context.Background()

	_, err := proc.ProcessBatch(ctx)
	require.NoError(t, err)
	granter.err = nil
	_, err = proc.ProcessBatch(ctx)
	require.NoError(t, err)

	stored := getGrant(t, l, g.ID)
	assert.Equal(t, models.RoleGrantStatusDone, stored.Status)
	assert.Equal(t, 2, stored.Attempts)
	assert.Nil(t, stored.LastError)
}
