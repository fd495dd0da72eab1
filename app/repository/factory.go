package repository

import (
	"context"

	"gorm.io/gorm"
)

// NewRepositories binds every repository to db, which may be a transaction handle.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Catalog:      NewCatalogRepository(db),
		Order:        NewOrderRepository(db),
		Payout:       NewPayoutRepository(db),
		RoleGrant:    NewRoleGrantRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}

// GormLedger is the MySQL-backed Ledger.
type GormLedger struct {
	db    *gorm.DB
	repos *Repositories
}

// NewLedger creates a ledger over an explicitly constructed gorm handle.
func NewLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{
		db:    db,
		repos: NewRepositories(db),
	}
}

func (l *GormLedger) Repos() *Repositories {
	return l.repos
}

func (l *GormLedger) Transaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}

// DB exposes the underlying handle for health checks.
func (l *GormLedger) DB() *gorm.DB {
	return l.db
}
