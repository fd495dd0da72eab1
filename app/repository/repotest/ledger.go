// Package repotest provides an in-memory repository.Ledger for package tests.
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
)

type state struct {
	servers   map[string]models.Server
	wallets   map[string]models.Wallet
	products  map[string]models.Product
	orders    map[string]models.Order
	payouts   map[string]models.Payout
	grants    map[string]models.RoleGrant
	events    map[string]models.WebhookEvent
	sequence  int64
	createdAt time.Time
}

func newState() *state {
	return &state{
		servers:   map[string]models.Server{},
		wallets:   map[string]models.Wallet{},
		products:  map[string]models.Product{},
		orders:    map[string]models.Order{},
		payouts:   map[string]models.Payout{},
		grants:    map[string]models.RoleGrant{},
		events:    map[string]models.WebhookEvent{},
		createdAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *state) clone() *state {
	c := *s
	c.servers = cloneMap(s.servers)
	c.wallets = cloneMap(s.wallets)
	c.products = cloneMap(s.products)
	c.orders = cloneMap(s.orders)
	c.payouts = cloneMap(s.payouts)
	c.grants = cloneMap(s.grants)
	c.events = cloneMap(s.events)
	return &c
}

func cloneMap[T any](in map[string]T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// tick returns strictly increasing timestamps so creation order is deterministic.
func (s *state) tick() time.Time {
	s.sequence++
	return s.createdAt.Add(time.Duration(s.sequence) * time.Millisecond)
}

// Ledger is a mutex-guarded in-memory implementation of repository.Ledger.
// Transactions hold the lock for their whole duration and roll back on error.
type Ledger struct {
	mu    sync.Mutex
	state *state

	// Fail, when set, is consulted before every operation ("Payout.Create",
	// "Order.MarkPaid", ...) and its error is returned instead of running it.
	Fail func(op string) error
}

func NewLedger() *Ledger {
	return &Ledger{state: newState()}
}

func (l *Ledger) Repos() *repository.Repositories {
	return l.bind(true)
}

func (l *Ledger) Transaction(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := l.state.clone()
	if err := fn(l.bind(false)); err != nil {
		l.state = snapshot
		return err
	}
	return nil
}

func (l *Ledger) bind(locking bool) *repository.Repositories {
	b := &binding{ledger: l, locking: locking}
	return &repository.Repositories{
		Catalog:      &catalogRepo{b},
		Order:        &orderRepo{b},
		Payout:       &payoutRepo{b},
		RoleGrant:    &roleGrantRepo{b},
		WebhookEvent: &webhookEventRepo{b},
	}
}

type binding struct {
	ledger  *Ledger
	locking bool
}

// enter acquires the ledger for one operation and returns the live state.
func (b *binding) enter(op string) (*state, func(), error) {
	release := func() {}
	if b.locking {
		b.ledger.mu.Lock()
		release = b.ledger.mu.Unlock
	}
	if b.ledger.Fail != nil {
		if err := b.ledger.Fail(op); err != nil {
			release()
			return nil, func() {}, err
		}
	}
	return b.ledger.state, release, nil
}

// Snapshot accessors for assertions.

func (l *Ledger) Orders() []models.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedValues(l.state.orders, func(o models.Order) time.Time { return o.CreatedAt })
}

func (l *Ledger) Payouts() []models.Payout {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedValues(l.state.payouts, func(p models.Payout) time.Time { return p.CreatedAt })
}

func (l *Ledger) RoleGrants() []models.RoleGrant {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedValues(l.state.grants, func(g models.RoleGrant) time.Time { return g.CreatedAt })
}

func (l *Ledger) WebhookEvents() []models.WebhookEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedValues(l.state.events, func(e models.WebhookEvent) time.Time { return e.CreatedAt })
}

func sortedValues[T any](in map[string]T, key func(T) time.Time) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	sort.SliceStable(out, func(i, j int) bool { return key(out[i]).Before(key(out[j])) })
	return out
}

func notFound() error {
	return gorm.ErrRecordNotFound
}
