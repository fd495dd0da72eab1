package repository

import (
	"context"
	"errors"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// ErrStatusMismatch is returned by conditional updates when the row is no
// longer in the expected status (another worker or request got there first).
var ErrStatusMismatch = errors.New("status mismatch")

// InsertOutcome tags the result of an insert-if-absent operation.
type InsertOutcome int

const (
	Inserted InsertOutcome = iota + 1
	AlreadyPresent
)

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case AlreadyPresent:
		return "already_present"
	}
	return "unknown"
}

// CatalogRepository covers the seller-configured records: servers, wallets and products.
type CatalogRepository interface {
	GetOrCreateServer(ctx context.Context, guildID, name string) (*models.Server, error)
	GetServerByGuildID(ctx context.Context, guildID string) (*models.Server, error)
	UpdateServer(ctx context.Context, server *models.Server) error
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	GetWallet(ctx context.Context, id string) (*models.Wallet, error)
	ListWallets(ctx context.Context, serverID string) ([]models.Wallet, error)
	FirstWallet(ctx context.Context, serverID string) (*models.Wallet, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	ListProducts(ctx context.Context, serverID string) ([]models.Product, error)
}

// OrderRepository defines the order operations used by the invoice endpoint and webhook handler.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// GetForUpdate and FindByInvoiceIDForUpdate lock the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*models.Order, error)
	FindByInvoiceIDForUpdate(ctx context.Context, invoiceID string) (*models.Order, error)
	SetInvoiceID(ctx context.Context, id, invoiceID string) error
	MarkPaid(ctx context.Context, id string, from models.OrderStatus, gross, fee, net string) error
	// ClosePending moves PENDING orders matching invoiceID or orderID to status and returns the row count.
	ClosePending(ctx context.Context, invoiceID, orderID string, status models.OrderStatus) (int64, error)
}

// PayoutChange is the full set of worker-owned columns written by a transition.
// Nil ExternalID/TxHash keep the stored value; nil LastError clears it.
type PayoutChange struct {
	Status     models.PayoutStatus
	Attempts   int
	ExternalID *string
	TxHash     *string
	LastError  *string
}

type PayoutRepository interface {
	Create(ctx context.Context, payout *models.Payout) error
	GetByID(ctx context.Context, id string) (*models.Payout, error)
	ExistsForOrder(ctx context.Context, orderID string) (bool, error)
	// ListByStatus returns rows oldest first.
	ListByStatus(ctx context.Context, statuses []models.PayoutStatus, limit int) ([]models.Payout, error)
	Transition(ctx context.Context, id string, from models.PayoutStatus, change PayoutChange) error
}

// RoleGrantChange mirrors PayoutChange for role grants.
type RoleGrantChange struct {
	Status    models.RoleGrantStatus
	Attempts  int
	LastError *string
}

type RoleGrantRepository interface {
	Create(ctx context.Context, grant *models.RoleGrant) error
	GetByID(ctx context.Context, id string) (*models.RoleGrant, error)
	Exists(ctx context.Context, orderID, discordID string) (bool, error)
	// ListByStatus returns rows oldest first with Product and Product.Server loaded.
	ListByStatus(ctx context.Context, statuses []models.RoleGrantStatus, limit int) ([]models.RoleGrant, error)
	Transition(ctx context.Context, id string, from models.RoleGrantStatus, change RoleGrantChange) error
}

type WebhookEventRepository interface {
	// InsertIfAbsent stores the event unless its DeliveryID exists and returns the stored row.
	InsertIfAbsent(ctx context.Context, event *models.WebhookEvent) (InsertOutcome, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id string, orderID *string) error
	RecordError(ctx context.Context, id, message string) error
}

// Repositories groups all repositories bound to one connection or transaction.
type Repositories struct {
	Catalog      CatalogRepository
	Order        OrderRepository
	Payout       PayoutRepository
	RoleGrant    RoleGrantRepository
	WebhookEvent WebhookEventRepository
}

// Ledger is the transactional store shared by the HTTP handlers and the workers.
type Ledger interface {
	Repos() *Repositories
	// Transaction runs fn with repositories bound to one database transaction.
	// Returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(repos *Repositories) error) error
}
