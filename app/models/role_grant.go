package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoleGrantStatus string

const (
	RoleGrantStatusQueued RoleGrantStatus = "QUEUED"
	RoleGrantStatusDone   RoleGrantStatus = "DONE"
	RoleGrantStatusFailed RoleGrantStatus = "FAILED"
)

// RoleGrant grants the product's Discord role to the buyer of one order.
type RoleGrant struct {
	ID        string          `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID   string          `gorm:"type:char(36);not null;uniqueIndex:ux_role_grants_order_discord,priority:1" json:"order_id"`
	ProductID string          `gorm:"type:char(36);not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	DiscordID string          `gorm:"type:varchar(32);not null;uniqueIndex:ux_role_grants_order_discord,priority:2" json:"discord_id"`
	Status    RoleGrantStatus `gorm:"type:varchar(16);not null;default:'QUEUED';index:idx_role_grants_status_created,priority:1" json:"status"`
	Attempts  int             `gorm:"not null;default:0" json:"attempts"`
	LastError *string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index:idx_role_grants_status_created,priority:2" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (g *RoleGrant) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if g.Status == "" {
		g.Status = RoleGrantStatusQueued
	}
	return nil
}
