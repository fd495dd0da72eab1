package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/app/repository"
)

var (
	ErrServerNotFound  = errors.New("server not found")
	ErrWalletNotFound  = errors.New("wallet not found")
	ErrWalletNotOwned  = errors.New("wallet belongs to another server")
	ErrNoWallet        = errors.New("server has no payout wallet")
	ErrProductNotFound = errors.New("product not found")
)

type WalletInput struct {
	GuildID    string `validate:"required,numeric,max=32"`
	ServerName string `validate:"max=100"`
	Label      string `validate:"max=100"`
	Chain      string `validate:"required,max=32"`
	Asset      string `validate:"required,max=32"`
	Address    string `validate:"required,max=128"`
}

type ProductInput struct {
	GuildID    string `validate:"required,numeric,max=32"`
	Name       string `validate:"required,max=100"`
	PriceMinor int64  `validate:"gt=0"`
	RoleID     string `validate:"omitempty,numeric,max=32"`
	// WalletID is optional; the server's oldest wallet is used when empty.
	WalletID string
}

// ProductUpdate carries the mutable product fields. Nil fields are left unchanged
// and an empty RoleID removes the role.
type ProductUpdate struct {
	PriceMinor *int64
	RoleID     *string
	Active     *bool
}

// Service writes and reads the seller catalog on behalf of the bot and operators.
type Service struct {
	ledger   repository.Ledger
	validate *validator.Validate
}

func NewService(ledger repository.Ledger) *Service {
	return &Service{ledger: ledger, validate: validator.New()}
}

// AddWallet registers a payout wallet, creating the server on first use.
func (s *Service) AddWallet(ctx context.Context, in WalletInput) (*models.Wallet, error) {
	in.Chain = strings.ToUpper(strings.TrimSpace(in.Chain))
	in.Asset = strings.ToUpper(strings.TrimSpace(in.Asset))
	in.Address = strings.TrimSpace(in.Address)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	var wallet *models.Wallet
	err := s.ledger.Transaction(ctx, func(repos *repository.Repositories) error {
		server, err := repos.Catalog.GetOrCreateServer(ctx, in.GuildID, in.ServerName)
		if err != nil {
			return fmt.Errorf("load server: %w", err)
		}
		wallet = &models.Wallet{
			ServerID: server.ID,
			Label:    in.Label,
			Chain:    in.Chain,
			Asset:    in.Asset,
			Address:  in.Address,
		}
		return repos.Catalog.CreateWallet(ctx, wallet)
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Catalog] Added %s/%s wallet %s for guild %s", wallet.Asset, wallet.Chain, wallet.ID, in.GuildID)
	return wallet, nil
}

func (s *Service) ListWallets(ctx context.Context, guildID string) ([]models.Wallet, error) {
	server, err := s.server(ctx, s.ledger.Repos(), guildID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Repos().Catalog.ListWallets(ctx, server.ID)
}

// CreateProduct adds an active product. Currency and chain follow the chosen wallet.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	var product *models.Product
	err := s.ledger.Transaction(ctx, func(repos *repository.Repositories) error {
		server, err := s.server(ctx, repos, in.GuildID)
		if err != nil {
			return err
		}
		wallet, err := s.walletFor(ctx, repos, server, in.WalletID)
		if err != nil {
			return err
		}

		product = &models.Product{
			ServerID:   server.ID,
			Name:       strings.TrimSpace(in.Name),
			PriceMinor: in.PriceMinor,
			Currency:   wallet.Asset,
			Chain:      wallet.Chain,
			WalletID:   &wallet.ID,
			Active:     true,
		}
		if in.RoleID != "" {
			role := in.RoleID
			product.RoleID = &role
		}
		return repos.Catalog.CreateProduct(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	log.Infof("[Catalog] Created product %s (%s) for guild %s", product.ID, product.Name, in.GuildID)
	return product, nil
}

func (s *Service) UpdateProduct(ctx context.Context, productID string, upd ProductUpdate) (*models.Product, error) {
	if upd.PriceMinor != nil && *upd.PriceMinor <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if upd.RoleID != nil && *upd.RoleID != "" {
		if err := s.validate.Var(*upd.RoleID, "numeric,max=32"); err != nil {
			return nil, err
		}
	}

	var product *models.Product
	err := s.ledger.Transaction(ctx, func(repos *repository.Repositories) error {
		p, err := repos.Catalog.GetProduct(ctx, productID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		if err != nil {
			return err
		}
		if upd.PriceMinor != nil {
			p.PriceMinor = *upd.PriceMinor
		}
		if upd.RoleID != nil {
			if *upd.RoleID == "" {
				p.RoleID = nil
			} else {
				role := *upd.RoleID
				p.RoleID = &role
			}
		}
		if upd.Active != nil {
			p.Active = *upd.Active
		}
		product = p
		return repos.Catalog.UpdateProduct(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, guildID string) ([]models.Product, error) {
	server, err := s.server(ctx, s.ledger.Repos(), guildID)
	if err != nil {
		return nil, err
	}
	return s.ledger.Repos().Catalog.ListProducts(ctx, server.ID)
}

func (s *Service) server(ctx context.Context, repos *repository.Repositories, guildID string) (*models.Server, error) {
	server, err := repos.Catalog.GetServerByGuildID(ctx, guildID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrServerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load server: %w", err)
	}
	return server, nil
}

func (s *Service) walletFor(ctx context.Context, repos *repository.Repositories, server *models.Server, walletID string) (*models.Wallet, error) {
	if walletID == "" {
		w, err := repos.Catalog.FirstWallet(ctx, server.ID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoWallet
		}
		return w, err
	}
	w, err := repos.Catalog.GetWallet(ctx, walletID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.ServerID != server.ID {
		return nil, ErrWalletNotOwned
	}
	return w, nil
}
