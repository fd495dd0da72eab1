package repotest

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
)

type catalogRepo struct{ *binding }

func (r *catalogRepo) GetOrCreateServer(ctx context.Context, guildID, name string) (*models.Server, error) {
	s, release, err := r.enter("Catalog.GetOrCreateServer")
	defer release()
	if err != nil {
		return nil, err
	}
	for _, srv := range s.servers {
		if srv.GuildID == guildID {
			out := srv
			return &out, nil
		}
	}
	srv := models.Server{GuildID: guildID, Name: name}
	_ = srv.BeforeCreate(nil)
	srv.CreatedAt = s.tick()
	srv.UpdatedAt = srv.CreatedAt
	s.servers[srv.ID] = srv
	return &srv, nil
}

func (r *catalogRepo) GetServerByGuildID(ctx context.Context, guildID string) (*models.Server, error) {
	s, release, err := r.enter("Catalog.GetServerByGuildID")
	defer release()
	if err != nil {
		return nil, err
	}
	for _, srv := range s.servers {
		if srv.GuildID == guildID {
			out := srv
			return &out, nil
		}
	}
	return nil, notFound()
}

func (r *catalogRepo) UpdateServer(ctx context.Context, server *models.Server) error {
	s, release, err := r.enter("Catalog.UpdateServer")
	defer release()
	if err != nil {
		return err
	}
	if _, ok := s.servers[server.ID]; !ok {
		return notFound()
	}
	stored := *server
	stored.Wallets = nil
	stored.UpdatedAt = s.tick()
	s.servers[server.ID] = stored
	return nil
}

func (r *catalogRepo) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	s, release, err := r.enter("Catalog.CreateWallet")
	defer release()
	if err != nil {
		return err
	}
	_ = wallet.BeforeCreate(nil)
	wallet.CreatedAt = s.tick()
	wallet.UpdatedAt = wallet.CreatedAt
	s.wallets[wallet.ID] = *wallet
	return nil
}

func (r *catalogRepo) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	s, release, err := r.enter("Catalog.GetWallet")
	defer release()
	if err != nil {
		return nil, err
	}
	w, ok := s.wallets[id]
	if !ok {
		return nil, notFound()
	}
	return &w, nil
}

func (r *catalogRepo) ListWallets(ctx context.Context, serverID string) ([]models.Wallet, error) {
	s, release, err := r.enter("Catalog.ListWallets")
	defer release()
	if err != nil {
		return nil, err
	}
	return walletsOf(s, serverID), nil
}

func (r *catalogRepo) FirstWallet(ctx context.Context, serverID string) (*models.Wallet, error) {
	s, release, err := r.enter("Catalog.FirstWallet")
	defer release()
	if err != nil {
		return nil, err
	}
	wallets := walletsOf(s, serverID)
	if len(wallets) == 0 {
		return nil, notFound()
	}
	return &wallets[0], nil
}

func walletsOf(s *state, serverID string) []models.Wallet {
	var out []models.Wallet
	for _, w := range s.wallets {
		if w.ServerID == serverID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *catalogRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	s, release, err := r.enter("Catalog.CreateProduct")
	defer release()
	if err != nil {
		return err
	}
	_ = product.BeforeCreate(nil)
	product.CreatedAt = s.tick()
	product.UpdatedAt = product.CreatedAt
	stored := *product
	stored.Server, stored.Wallet = nil, nil
	s.products[product.ID] = stored
	return nil
}

func (r *catalogRepo) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	s, release, err := r.enter("Catalog.GetProduct")
	defer release()
	if err != nil {
		return nil, err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, notFound()
	}
	return loadProduct(s, p), nil
}

func loadProduct(s *state, p models.Product) *models.Product {
	if srv, ok := s.servers[p.ServerID]; ok {
		p.Server = &srv
	}
	if p.WalletID != nil {
		if w, ok := s.wallets[*p.WalletID]; ok {
			p.Wallet = &w
		}
	}
	return &p
}

func (r *catalogRepo) UpdateProduct(ctx context.Context, product *models.Product) error {
	s, release, err := r.enter("Catalog.UpdateProduct")
	defer release()
	if err != nil {
		return err
	}
	if _, ok := s.products[product.ID]; !ok {
		return notFound()
	}
	stored := *product
	stored.Server, stored.Wallet = nil, nil
	stored.UpdatedAt = s.tick()
	s.products[product.ID] = stored
	return nil
}

func (r *catalogRepo) ListProducts(ctx context.Context, serverID string) ([]models.Product, error) {
	s, release, err := r.enter("Catalog.ListProducts")
	defer release()
	if err != nil {
		return nil, err
	}
	var out []models.Product
	for _, p := range s.products {
		if p.ServerID == serverID {
			out = append(out, *loadProduct(s, p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type orderRepo struct{ *binding }

func (r *orderRepo) Create(ctx context.Context, order *models.Order) error {
	s, release, err := r.enter("Order.Create")
	defer release()
	if err != nil {
		return err
	}
	_ = order.BeforeCreate(nil)
	if _, ok := s.orders[order.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	order.CreatedAt = s.tick()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	stored.Product = nil
	s.orders[order.ID] = stored
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	s, release, err := r.enter("Order.GetByID")
	defer release()
	if err != nil {
		return nil, err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, notFound()
	}
	return &o, nil
}

func (r *orderRepo) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	s, release, err := r.enter("Order.GetForUpdate")
	defer release()
	if err != nil {
		return nil, err
	}
	o, ok := s.orders[id]
	if !ok {
		return nil, notFound()
	}
	return &o, nil
}

func (r *orderRepo) FindByInvoiceIDForUpdate(ctx context.Context, invoiceID string) (*models.Order, error) {
	s, release, err := r.enter("Order.FindByInvoiceIDForUpdate")
	defer release()
	if err != nil {
		return nil, err
	}
	for _, o := range s.orders {
		if o.InvoiceID != nil && *o.InvoiceID == invoiceID {
			out := o
			return &out, nil
		}
	}
	return nil, notFound()
}

func (r *orderRepo) SetInvoiceID(ctx context.Context, id, invoiceID string) error {
	s, release, err := r.enter("Order.SetInvoiceID")
	defer release()
	if err != nil {
		return err
	}
	o, ok := s.orders[id]
	if !ok {
		return notFound()
	}
	for otherID, other := range s.orders {
		if otherID != id && other.InvoiceID != nil && *other.InvoiceID == invoiceID {
			return gorm.ErrDuplicatedKey
		}
	}
	o.InvoiceID = &invoiceID
	o.UpdatedAt = s.tick()
	s.orders[id] = o
	return nil
}

func (r *orderRepo) MarkPaid(ctx context.Context, id string, from models.OrderStatus, gross, fee, net string) error {
	s, release, err := r.enter("Order.MarkPaid")
	defer release()
	if err != nil {
		return err
	}
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return repository.ErrStatusMismatch
	}
	o.Status = models.OrderStatusPaid
	o.GrossMinor, o.FeeMinor, o.NetMinor = &gross, &fee, &net
	o.UpdatedAt = s.tick()
	s.orders[id] = o
	return nil
}

func (r *orderRepo) ClosePending(ctx context.Context, invoiceID, orderID string, status models.OrderStatus) (int64, error) {
	s, release, err := r.enter("Order.ClosePending")
	defer release()
	if err != nil {
		return 0, err
	}
	if invoiceID == "" && orderID == "" {
		return 0, nil
	}
	var n int64
	for id, o := range s.orders {
		if o.Status != models.OrderStatusPending {
			continue
		}
		matchInvoice := invoiceID != "" && o.InvoiceID != nil && *o.InvoiceID == invoiceID
		matchID := orderID != "" && id == orderID
		if !matchInvoice && !matchID {
			continue
		}
		o.Status = status
		o.UpdatedAt = s.tick()
		s.orders[id] = o
		n++
	}
	return n, nil
}

type payoutRepo struct{ *binding }

func (r *payoutRepo) Create(ctx context.Context, payout *models.Payout) error {
	s, release, err := r.enter("Payout.Create")
	defer release()
	if err != nil {
		return err
	}
	for _, p := range s.payouts {
		if p.OrderID == payout.OrderID {
			return gorm.ErrDuplicatedKey
		}
	}
	_ = payout.BeforeCreate(nil)
	payout.CreatedAt = s.tick()
	payout.UpdatedAt = payout.CreatedAt
	s.payouts[payout.ID] = *payout
	return nil
}

func (r *payoutRepo) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	s, release, err := r.enter("Payout.GetByID")
	defer release()
	if err != nil {
		return nil, err
	}
	p, ok := s.payouts[id]
	if !ok {
		return nil, notFound()
	}
	return &p, nil
}

func (r *payoutRepo) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	s, release, err := r.enter("Payout.ExistsForOrder")
	defer release()
	if err != nil {
		return false, err
	}
	for _, p := range s.payouts {
		if p.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (r *payoutRepo) ListByStatus(ctx context.Context, statuses []models.PayoutStatus, limit int) ([]models.Payout, error) {
	s, release, err := r.enter("Payout.ListByStatus")
	defer release()
	if err != nil {
		return nil, err
	}
	want := make(map[models.PayoutStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []models.Payout
	for _, p := range s.payouts {
		if want[p.Status] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *payoutRepo) Transition(ctx context.Context, id string, from models.PayoutStatus, change repository.PayoutChange) error {
	s, release, err := r.enter("Payout.Transition")
	defer release()
	if err != nil {
		return err
	}
	p, ok := s.payouts[id]
	if !ok || p.Status != from {
		return repository.ErrStatusMismatch
	}
	p.Status = change.Status
	p.Attempts = change.Attempts
	p.LastError = change.LastError
	if change.ExternalID != nil {
		p.ExternalID = change.ExternalID
	}
	if change.TxHash != nil {
		p.TxHash = change.TxHash
	}
	p.UpdatedAt = s.tick()
	s.payouts[id] = p
	return nil
}

type roleGrantRepo struct{ *binding }

func (r *roleGrantRepo) Create(ctx context.Context, grant *models.RoleGrant) error {
	s, release, err := r.enter("RoleGrant.Create")
	defer release()
	if err != nil {
		return err
	}
	for _, g := range s.grants {
		if g.OrderID == grant.OrderID && g.DiscordID == grant.DiscordID {
			return gorm.ErrDuplicatedKey
		}
	}
	_ = grant.BeforeCreate(nil)
	grant.CreatedAt = s.tick()
	grant.UpdatedAt = grant.CreatedAt
	stored := *grant
	stored.Product = nil
	s.grants[grant.ID] = stored
	return nil
}

func (r *roleGrantRepo) GetByID(ctx context.Context, id string) (*models.RoleGrant, error) {
	s, release, err := r.enter("RoleGrant.GetByID")
	defer release()
	if err != nil {
		return nil, err
	}
	g, ok := s.grants[id]
	if !ok {
		return nil, notFound()
	}
	return &g, nil
}

func (r *roleGrantRepo) Exists(ctx context.Context, orderID, discordID string) (bool, error) {
	s, release, err := r.enter("RoleGrant.Exists")
	defer release()
	if err != nil {
		return false, err
	}
	for _, g := range s.grants {
		if g.OrderID == orderID && g.DiscordID == discordID {
			return true, nil
		}
	}
	return false, nil
}

func (r *roleGrantRepo) ListByStatus(ctx context.Context, statuses []models.RoleGrantStatus, limit int) ([]models.RoleGrant, error) {
	s, release, err := r.enter("RoleGrant.ListByStatus")
	defer release()
	if err != nil {
		return nil, err
	}
	want := make(map[models.RoleGrantStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []models.RoleGrant
	for _, g := range s.grants {
		if !want[g.Status] {
			continue
		}
		if p, ok := s.products[g.ProductID]; ok {
			g.Product = loadProduct(s, p)
		}
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *roleGrantRepo) Transition(ctx context.Context, id string, from models.RoleGrantStatus, change repository.RoleGrantChange) error {
	s, release, err := r.enter("RoleGrant.Transition")
	defer release()
	if err != nil {
		return err
	}
	g, ok := s.grants[id]
	if !ok || g.Status != from {
		return repository.ErrStatusMismatch
	}
	g.Status = change.Status
	g.Attempts = change.Attempts
	g.LastError = change.LastError
	g.UpdatedAt = s.tick()
	s.grants[id] = g
	return nil
}

type webhookEventRepo struct{ *binding }

func (r *webhookEventRepo) InsertIfAbsent(ctx context.Context, event *models.WebhookEvent) (repository.InsertOutcome, *models.WebhookEvent, error) {
	s, release, err := r.enter("WebhookEvent.InsertIfAbsent")
	defer release()
	if err != nil {
		return 0, nil, err
	}
	for _, e := range s.events {
		if e.DeliveryID == event.DeliveryID {
			out := e
			return repository.AlreadyPresent, &out, nil
		}
	}
	_ = event.BeforeCreate(nil)
	event.CreatedAt = s.tick()
	event.UpdatedAt = event.CreatedAt
	s.events[event.ID] = *event
	out := *event
	return repository.Inserted, &out, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, id string, orderID *string) error {
	s, release, err := r.enter("WebhookEvent.MarkProcessed")
	defer release()
	if err != nil {
		return err
	}
	e, ok := s.events[id]
	if !ok {
		return notFound()
	}
	now := s.tick()
	e.ProcessedAt = &now
	e.ProcessingError = ""
	if orderID != nil {
		resolved := *orderID
		e.OrderID = &resolved
	}
	e.UpdatedAt = now
	s.events[e.ID] = e
	return nil
}

func (r *webhookEventRepo) RecordError(ctx context.Context, id, message string) error {
	s, release, err := r.enter("WebhookEvent.RecordError")
	defer release()
	if err != nil {
		return err
	}
	e, ok := s.events[id]
	if !ok {
		return notFound()
	}
	e.ProcessingError = message
	e.UpdatedAt = s.tick()
	s.events[id] = e
	return nil
}
