package repository_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/database"
)

// openTestLedger connects to TEST_DB_DSN, e.g.
// "user:pass@tcp(127.0.0.1:3306)/guildpay_test?parseTime=True&loc=UTC&clientFoundRows=true".
func openTestLedger(t *testing.T) *repository.GormLedger {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set, skipping MySQL repository tests")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))

	for _, table := range []string{"webhook_events", "role_grants", "payouts", "orders", "products", "wallets", "servers"} {
		require.NoError(t, db.Exec("DELETE FROM "+table).Error)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return repository.NewLedger(db)
}

func seedOrder(t *testing.T, l *repository.GormLedger) *models.Order {
	t.Helper()
	ctx := context.Background()
	repos := l.Repos()
	server, err := repos.Catalog.GetOrCreateServer(ctx, "111222333444555666", "Test Guild")
	require.NoError(t, err)
	wallet := &models.Wallet{ServerID: server.ID, Chain: "POLYGON", Asset: "USDC", Address: "0xSELLER"}
	require.NoError(t, repos.Catalog.CreateWallet(ctx, wallet))
	product := &models.Product{ServerID: server.ID, Name: "VIP", PriceMinor: 1299, Currency: "USDC", Chain: "POLYGON", WalletID: &wallet.ID, Active: true}
	require.NoError(t, repos.Catalog.CreateProduct(ctx, product))
	order := &models.Order{ProductID: product.ID}
	require.NoError(t, repos.Order.Create(ctx, order))
	require.NoError(t, repos.Order.SetInvoiceID(ctx, order.ID, "inv_"+order.ID))
	return order
}

func TestGormInsertIfAbsent(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	repo := l.Repos().WebhookEvent

	outcome, first, err := repo.InsertIfAbsent(ctx, &models.WebhookEvent{DeliveryID: "evt_1", Type: "invoice.paid", Raw: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, repository.Inserted, outcome)
	assert.False(t, first.IsProcessed())

	outcome, second, err := repo.InsertIfAbsent(ctx, &models.WebhookEvent{DeliveryID: "evt_1", Type: "invoice.paid", Raw: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, repository.AlreadyPresent, outcome)
	assert.Equal(t, first.ID, second.ID)

	require.NoError(t, repo.MarkProcessed(ctx, first.ID, nil))
	_, stored, err := repo.InsertIfAbsent(ctx, &models.WebhookEvent{DeliveryID: "evt_1", Type: "invoice.paid", Raw: []byte(`{}`)})
	require.NoError(t, err)
	assert.True(t, stored.IsProcessed())
}

func TestGormRecordErrorKeepsRunesWhole(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	repo := l.Repos().WebhookEvent

	_, evt, err := repo.InsertIfAbsent(ctx, &models.WebhookEvent{DeliveryID: "evt_utf8", Type: "invoice.paid", Raw: []byte(`{}`)})
	require.NoError(t, err)
	require.NoError(t, repo.RecordError(ctx, evt.ID, strings.Repeat("a", 999)+"é trailing"))

	_, stored, err := repo.InsertIfAbsent(ctx, &models.WebhookEvent{DeliveryID: "evt_utf8", Type: "invoice.paid", Raw: []byte(`{}`)})
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(stored.ProcessingError))
	assert.Equal(t, strings.Repeat("a", 999), stored.ProcessingError)
}

func TestGormTransactionRollsBack(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	order := seedOrder(t, l)

	boom := errors.New("boom")
	err := l.Transaction(ctx, func(repos *repository.Repositories) error {
		locked, err := repos.Order.FindByInvoiceIDForUpdate(ctx, *order.InvoiceID)
		require.NoError(t, err)
		require.NoError(t, repos.Order.MarkPaid(ctx, locked.ID, models.OrderStatusPending, "100", "3", "97"))
		require.NoError(t, repos.Payout.Create(ctx, &models.Payout{OrderID: locked.ID, ServerID: "s", ToAddress: "0x", Asset: "USDC", Chain: "POLYGON", AmountMinor: "97"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := l.Repos().Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, stored.Status)
	exists, err := l.Repos().Payout.ExistsForOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGormConditionalUpdates(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	order := seedOrder(t, l)
	repos := l.Repos()

	require.NoError(t, repos.Order.MarkPaid(ctx, order.ID, models.OrderStatusPending, "10000", "300", "9700"))
	assert.ErrorIs(t, repos.Order.MarkPaid(ctx, order.ID, models.OrderStatusPending, "1", "0", "1"), repository.ErrStatusMismatch)

	p := &models.Payout{OrderID: order.ID, ServerID: "s", ToAddress: "0x", Asset: "USDC", Chain: "POLYGON", AmountMinor: "9700"}
	require.NoError(t, repos.Payout.Create(ctx, p))
	assert.ErrorIs(t, repos.Payout.Create(ctx, &models.Payout{OrderID: order.ID, ServerID: "s", ToAddress: "0x", Asset: "USDC", Chain: "POLYGON", AmountMinor: "1"}), gorm.ErrDuplicatedKey)

	ext := "ext_1"
	change := repository.PayoutChange{Status: models.PayoutStatusRequested, Attempts: 1, ExternalID: &ext}
	require.NoError(t, repos.Payout.Transition(ctx, p.ID, models.PayoutStatusQueued, change))
	assert.ErrorIs(t, repos.Payout.Transition(ctx, p.ID, models.PayoutStatusQueued, change), repository.ErrStatusMismatch)

	rows, err := repos.Payout.ListByStatus(ctx, []models.PayoutStatus{models.PayoutStatusRequested}, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ext_1", *rows[0].ExternalID)
}
