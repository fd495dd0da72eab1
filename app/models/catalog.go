package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Server is one Discord guild that sells products.
type Server struct {
	ID           string    `gorm:"type:char(36);primaryKey" json:"id"`
	GuildID      string    `gorm:"type:varchar(32);not null;uniqueIndex" json:"guild_id" validate:"required,numeric"`
	Name         string    `gorm:"type:varchar(100)" json:"name"`
	PayoutWallet string    `gorm:"type:varchar(128)" json:"payout_wallet,omitempty"` // legacy single-address setup
	Chain        string    `gorm:"type:varchar(32)" json:"chain,omitempty"`
	Wallets      []Wallet  `gorm:"foreignKey:ServerID" json:"wallets,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Server) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// Wallet is a payout destination owned by a server.
type Wallet struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	ServerID  string    `gorm:"type:char(36);not null;index:idx_wallets_server_created,priority:1" json:"server_id"`
	Label     string    `gorm:"type:varchar(100)" json:"label,omitempty"`
	Chain     string    `gorm:"type:varchar(32);not null" json:"chain" validate:"required,max=32"`
	Asset     string    `gorm:"type:varchar(32);not null" json:"asset" validate:"required,max=32"`
	Address   string    `gorm:"type:varchar(128);not null" json:"address" validate:"required,max=128"`
	CreatedAt time.Time `gorm:"autoCreateTime;index:idx_wallets_server_created,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// Product is a purchasable item. PriceMinor is USD cents; Currency/Chain describe the payout asset.
type Product struct {
	ID         string    `gorm:"type:char(36);primaryKey" json:"id"`
	ServerID   string    `gorm:"type:char(36);not null;index" json:"server_id"`
	Server     *Server   `gorm:"foreignKey:ServerID" json:"server,omitempty"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,max=100"`
	PriceMinor int64     `gorm:"not null;default:0" json:"price_minor" validate:"gte=0"`
	Currency   string    `gorm:"type:varchar(32)" json:"currency"`
	Chain      string    `gorm:"type:varchar(32)" json:"chain"`
	RoleID     *string   `gorm:"type:varchar(32)" json:"role_id,omitempty"`
	WalletID   *string   `gorm:"type:char(36);index" json:"wallet_id,omitempty"`
	Wallet     *Wallet   `gorm:"foreignKey:WalletID" json:"wallet,omitempty"`
	Active     bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// HasRole reports whether a Discord role is configured for the product.
func (p *Product) HasRole() bool {
	return p.RoleID != nil && *p.RoleID != ""
}
