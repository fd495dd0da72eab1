package repotest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/app/models"
)

// Fixture is a seller setup with one wallet and one active product.
type Fixture struct {
	Server  *models.Server
	Wallet  *models.Wallet
	Product *models.Product
}

// FixtureOptions tweaks the seeded catalog.
type FixtureOptions struct {
	RoleID     string
	PriceMinor int64
	NoWallet   bool
	Inactive   bool
}

// SeedCatalog creates a server, wallet and product.
func SeedCatalog(t *testing.T, l *Ledger, opts FixtureOptions) Fixture {
	t.Helper()
	ctx := context.Background()
	repos := l.Repos()

	server, err := repos.Catalog.GetOrCreateServer(ctx, "111222333444555666", "Test Guild")
	require.NoError(t, err)

	f := Fixture{Server: server}
	price := opts.PriceMinor
	if price == 0 {
		price = 1299
	}
	product := &models.Product{
		ServerID:   server.ID,
		Name:       "VIP Access",
		PriceMinor: price,
		Currency:   "USDC",
		Chain:      "POLYGON",
		Active:     !opts.Inactive,
	}
	if opts.RoleID != "" {
		role := opts.RoleID
		product.RoleID = &role
	}
	if !opts.NoWallet {
		wallet := &models.Wallet{
			ServerID: server.ID,
			Label:    "main",
			Chain:    "POLYGON",
			Asset:    "USDC",
			Address:  "0xSELLER",
		}
		require.NoError(t, repos.Catalog.CreateWallet(ctx, wallet))
		product.WalletID = &wallet.ID
		f.Wallet = wallet
	}
	require.NoError(t, repos.Catalog.CreateProduct(ctx, product))
	f.Product = product
	return f
}

// SeedOrder creates a PENDING order for the fixture product with an invoice id.
func SeedOrder(t *testing.T, l *Ledger, f Fixture, buyerDiscordID, invoiceID string) *models.Order {
	t.Helper()
	ctx := context.Background()
	order := &models.Order{ProductID: f.Product.ID}
	if buyerDiscordID != "" {
		buyer := buyerDiscordID
		order.BuyerDiscordID = &buyer
	}
	require.NoError(t, l.Repos().Order.Create(ctx, order))
	if invoiceID != "" {
		require.NoError(t, l.Repos().Order.SetInvoiceID(ctx, order.ID, invoiceID))
		order.InvoiceID = &invoiceID
	}
	return order
}
