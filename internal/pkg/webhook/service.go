package webhook

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
)

type Outcome string

const (
	OutcomeProcessed    Outcome = "processed"
	OutcomeDuplicate    Outcome = "duplicate"
	OutcomeAlreadyPaid  Outcome = "already_paid"
	OutcomeUnknownOrder Outcome = "unknown_order"
	OutcomeIgnored      Outcome = "ignored"
)

// Result describes what one delivery did to the ledger.
type Result struct {
	Outcome         Outcome
	DeliveryID      string
	OrderID         string
	PayoutQueued    bool
	RoleGrantQueued bool
	OrdersClosed    int64
}

// PayloadArchiver keeps a copy of raw deliveries outside the database.
type PayloadArchiver interface {
	Archive(ctx context.Context, deliveryID string, payload []byte) error
}

// Service applies verified provider events to the ledger. Every state change
// happens inside one ledger transaction together with marking the delivery processed.
type Service struct {
	ledger   repository.Ledger
	feeBPS   int64
	archiver PayloadArchiver
}

func NewService(ledger repository.Ledger, feeBPS int64, archiver PayloadArchiver) (*Service, error) {
	if feeBPS < 0 || feeBPS > 10000 {
		return nil, money.ErrInvalidFeeBPS
	}
	return &Service{ledger: ledger, feeBPS: feeBPS, archiver: archiver}, nil
}

// Process records the delivery and applies it. A delivery that was already
// processed is acknowledged without side effects; one that was recorded but
// never finished is resumed.
func (s *Service) Process(ctx context.Context, payload []byte) (*Result, error) {
	evt, err := ParseEvent(payload)
	if err != nil {
		return nil, err
	}

	record := &models.WebhookEvent{
		DeliveryID: evt.DeliveryID,
		Type:       evt.Type,
		Raw:        datatypes.JSON(payload),
	}
	if evt.InvoiceID != "" && len(evt.InvoiceID) <= maxInvoiceIDLength {
		inv := evt.InvoiceID
		record.InvoiceID = &inv
	}

	outcome, stored, err := s.ledger.Repos().WebhookEvent.InsertIfAbsent(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("record webhook event: %w", err)
	}
	if outcome == repository.AlreadyPresent {
		if stored.IsProcessed() {
			log.Infof("[Webhook] Duplicate delivery %s ignored", evt.DeliveryID)
			return &Result{Outcome: OutcomeDuplicate, DeliveryID: evt.DeliveryID}, nil
		}
		log.Warnf("[Webhook] Resuming unfinished delivery %s", evt.DeliveryID)
	} else if s.archiver != nil {
		if err := s.archiver.Archive(ctx, evt.DeliveryID, payload); err != nil {
			log.Warnf("[Webhook] Failed to archive delivery %s: %v", evt.DeliveryID, err)
		}
	}

	result, err := s.apply(ctx, stored.ID, evt)
	if err != nil {
		if recErr := s.ledger.Repos().WebhookEvent.RecordError(ctx, stored.ID, err.Error()); recErr != nil {
			log.Errorf("[Webhook] Failed to record processing error for %s: %v", evt.DeliveryID, recErr)
		}
		return nil, err
	}
	result.DeliveryID = evt.DeliveryID
	return result, nil
}

func (s *Service) apply(ctx context.Context, eventID string, evt *Event) (*Result, error) {
	switch evt.Type {
	case EventInvoicePaid:
		return s.applyPaid(ctx, eventID, evt)
	case EventInvoiceExpired:
		return s.applyClosed(ctx, eventID, evt, models.OrderStatusExpired)
	case EventInvoiceCanceled, EventInvoiceCancelled:
		return s.applyClosed(ctx, eventID, evt, models.OrderStatusCanceled)
	}

	err := s.ledger.Transaction(ctx, func(repos *repository.Repositories) error {
		return repos.WebhookEvent.MarkProcessed(ctx, eventID, nil)
	})
	if err != nil {
		return nil, err
	}
	log.Debugf("[Webhook] Ignoring event type %q", evt.Type)
	return &Result{Outcome: OutcomeIgnored}, nil
}

func (s *Service) applyClosed(ctx context.Context, eventID string, evt *Event, status models.OrderStatus) (*Result, error) {
	result := &Result{Outcome: OutcomeProcessed}
	err := s.ledger.Transaction(ctx, func(repos *repository.Repositories) error {
		// Only an order that exists is linked to the delivery.
		var orderID *string
		order, err := resolveOrder(ctx, repos, evt)
		switch {
		case err == nil:
			orderID = &order.ID
			result.OrderID = order.ID
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("resolve order: %w", err)
		}

		n, err := repos.Order.ClosePending(ctx, evt.InvoiceID, evt.OrderID, status)
		if err != nil {
			return fmt.Errorf("close pending orders: %w", err)
		}
		result.OrdersClosed = n
		return repos.WebhookEvent.MarkProcessed(ctx, eventID, orderID)
	})
	if err != nil {
		return nil, err
	}
	if result.OrdersClosed > 0 {
		log.Infof("[Webhook] Marked %d pending order(s) %s for invoice %s", result.OrdersClosed, status, evt.InvoiceID)
	}
	return result, nil
}

func (s *Service) applyPaid(ctx context.Context, eventID string, evt *Event) (*Result, error) {
	result := &Result{}
	err := s.ledger.Transaction(ctx, func(repos *repository.Repositories) error {
		order, err := resolveOrder(ctx, repos, evt)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Outcome = OutcomeUnknownOrder
			return repos.WebhookEvent.MarkProcessed(ctx, eventID, nil)
		}
		if err != nil {
			return fmt.Errorf("resolve order: %w", err)
		}
		result.OrderID = order.ID

		if order.Status == models.OrderStatusPaid {
			result.Outcome = OutcomeAlreadyPaid
			return repos.WebhookEvent.MarkProcessed(ctx, eventID, &order.ID)
		}

		gross := evt.Gross
		if gross == nil {
			gross = new(big.Int)
		}
		split, err := money.SplitFee(gross, s.feeBPS)
		if err != nil {
			return err
		}
		g, f, n := split.Strings()
		if err := repos.Order.MarkPaid(ctx, order.ID, order.Status, g, f, n); err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		product, err := repos.Catalog.GetProduct(ctx, order.ProductID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load product: %w", err)
		}
		if product == nil {
			log.Warnf("[Webhook] Order %s references missing product %s, nothing to fulfil", order.ID, order.ProductID)
		} else {
			if result.PayoutQueued, err = enqueuePayout(ctx, repos, order, product, evt, split.Net); err != nil {
				return err
			}
			if result.RoleGrantQueued, err = enqueueRoleGrant(ctx, repos, order, product); err != nil {
				return err
			}
		}

		result.Outcome = OutcomeProcessed
		return repos.WebhookEvent.MarkProcessed(ctx, eventID, &order.ID)
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == OutcomeProcessed {
		log.Infof("[Webhook] Order %s paid (payout queued: %t, role grant queued: %t)", result.OrderID, result.PayoutQueued, result.RoleGrantQueued)
	}
	return result, nil
}

// resolveOrder locks the target order, preferring the metadata order id over the invoice id.
func resolveOrder(ctx context.Context, repos *repository.Repositories, evt *Event) (*models.Order, error) {
	if evt.OrderID != "" {
		order, err := repos.Order.GetForUpdate(ctx, evt.OrderID)
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) {
			return order, err
		}
	}
	if evt.InvoiceID != "" {
		return repos.Order.FindByInvoiceIDForUpdate(ctx, evt.InvoiceID)
	}
	return nil, gorm.ErrRecordNotFound
}

type destination struct {
	Address string
	Asset   string
	Chain   string
}

// resolveDestination picks the product wallet, then the server's first wallet,
// then the server's legacy payout address.
func resolveDestination(ctx context.Context, repos *repository.Repositories, product *models.Product, evt *Event) (*destination, error) {
	wallet := product.Wallet
	if wallet == nil {
		w, err := repos.Catalog.FirstWallet(ctx, product.ServerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		wallet = w
	}

	var dest destination
	switch {
	case wallet != nil:
		dest = destination{Address: wallet.Address, Asset: wallet.Asset, Chain: wallet.Chain}
	case product.Server != nil && product.Server.PayoutWallet != "":
		dest = destination{Address: product.Server.PayoutWallet, Chain: product.Server.Chain}
	default:
		return nil, nil
	}

	dest.Asset = firstNonEmpty(evt.Asset, dest.Asset, product.Currency)
	dest.Chain = firstNonEmpty(evt.Chain, dest.Chain, product.Chain)
	return &dest, nil
}

func enqueuePayout(ctx context.Context, repos *repository.Repositories, order *models.Order, product *models.Product, evt *Event, net *big.Int) (bool, error) {
	if net.Sign() <= 0 {
		return false, nil
	}
	dest, err := resolveDestination(ctx, repos, product, evt)
	if err != nil {
		return false, fmt.Errorf("resolve payout wallet: %w", err)
	}
	if dest == nil || dest.Asset == "" || dest.Chain == "" {
		log.Warnf("[Webhook] No usable payout wallet for server %s, order %s not paid out", product.ServerID, order.ID)
		return false, nil
	}

	exists, err := repos.Payout.ExistsForOrder(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("check payout: %w", err)
	}
	if exists {
		return false, nil
	}

	payout := &models.Payout{
		OrderID:     order.ID,
		ServerID:    product.ServerID,
		ToAddress:   dest.Address,
		Asset:       dest.Asset,
		Chain:       dest.Chain,
		AmountMinor: net.String(),
		Status:      models.PayoutStatusQueued,
	}
	if err := repos.Payout.Create(ctx, payout); err != nil {
		return false, fmt.Errorf("create payout: %w", err)
	}
	return true, nil
}

func enqueueRoleGrant(ctx context.Context, repos *repository.Repositories, order *models.Order, product *models.Product) (bool, error) {
	if !order.HasBuyer() || !product.HasRole() {
		return false, nil
	}
	exists, err := repos.RoleGrant.Exists(ctx, order.ID, *order.BuyerDiscordID)
	if err != nil {
		return false, fmt.Errorf("check role grant: %w", err)
	}
	if exists {
		return false, nil
	}

	grant := &models.RoleGrant{
		OrderID:   order.ID,
		ProductID: product.ID,
		DiscordID: *order.BuyerDiscordID,
		Status:    models.RoleGrantStatusQueued,
	}
	if err := repos.RoleGrant.Create(ctx, grant); err != nil {
		return false, fmt.Errorf("create role grant: %w", err)
	}
	return true, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
