package invoice

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
	"github.com/ManuelReschke/GuildPay/internal/pkg/config"
	"github.com/ManuelReschke/GuildPay/internal/pkg/money"
)

const (
	DefaultEmail    = "buyer@example.com"
	DefaultUsername = "DiscordBuyer"
	Currency        = "USD"
)

var (
	ErrProductUnavailable = errors.New("product not found")
	ErrInvalidPrice       = errors.New("product is missing a valid price")
)

// Request is a buyer's checkout request.
type Request struct {
	ProductID      string `json:"productId" validate:"required,max=64"`
	BuyerDiscordID string `json:"buyerDiscordId" validate:"omitempty,numeric,max=32"`
	Email          string `json:"email" validate:"omitempty,email,max=254"`
	Username       string `json:"username" validate:"omitempty,max=100"`
}

type Checkout struct {
	OrderID     string `json:"orderId"`
	CheckoutURL string `json:"checkoutUrl"`
}

// Service creates PENDING orders and opens their provider invoice.
type Service struct {
	ledger   repository.Ledger
	creator  Creator
	validate *validator.Validate

	appURL     string
	siteName   string
	webhookURL string
}

func NewService(ledger repository.Ledger, creator Creator, app config.App, provider config.Provider) *Service {
	webhookURL := provider.WebhookURL
	if webhookURL == "" {
		webhookURL = app.URL + "/api/webhooks/maxelpay"
	}
	return &Service{
		ledger:     ledger,
		creator:    creator,
		validate:   validator.New(),
		appURL:     app.URL,
		siteName:   app.SiteName,
		webhookURL: webhookURL,
	}
}

// Validate checks the request shape and fills defaults.
func (s *Service) Validate(req *Request) error {
	if err := s.validate.Struct(req); err != nil {
		return err
	}
	if req.Email == "" {
		req.Email = DefaultEmail
	}
	if req.Username == "" {
		req.Username = DefaultUsername
	}
	return nil
}

// Create persists the order before the provider call so every invoice refers to
// an existing PENDING order.
func (s *Service) Create(ctx context.Context, req Request) (*Checkout, error) {
	if err := s.Validate(&req); err != nil {
		return nil, err
	}

	repos := s.ledger.Repos()
	product, err := repos.Catalog.GetProduct(ctx, req.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if !product.Active {
		return nil, ErrProductUnavailable
	}
	if product.PriceMinor <= 0 {
		return nil, ErrInvalidPrice
	}

	order := &models.Order{ProductID: product.ID}
	if req.BuyerDiscordID != "" {
		buyer := req.BuyerDiscordID
		order.BuyerDiscordID = &buyer
	}
	if err := repos.Order.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	inv, err := s.creator.CreateInvoice(ctx, Input{
		OrderID:     order.ID,
		Amount:      money.CentsToUSD(product.PriceMinor),
		Currency:    Currency,
		UserName:    req.Username,
		UserEmail:   req.Email,
		SiteName:    s.siteName,
		RedirectURL: fmt.Sprintf("%s/success?order=%s", s.appURL, url.QueryEscape(order.ID)),
		CancelURL:   fmt.Sprintf("%s/products/%s?canceled=1", s.appURL, url.PathEscape(product.ID)),
		WebsiteURL:  s.appURL,
		WebhookURL:  s.webhookURL,
		Metadata:    map[string]string{"order_id": order.ID, "product_id": product.ID},
	})
	if err != nil {
		log.Errorf("[Invoice] Provider call failed for order %s: %v", order.ID, err)
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	if err := repos.Order.SetInvoiceID(ctx, order.ID, inv.InvoiceID); err != nil {
		return nil, fmt.Errorf("store invoice id: %w", err)
	}
	log.Infof("[Invoice] Order %s opened invoice %s", order.ID, inv.InvoiceID)

	return &Checkout{OrderID: order.ID, CheckoutURL: inv.CheckoutURL}, nil
}
