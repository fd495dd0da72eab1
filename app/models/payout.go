package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PayoutStatus string

const (
	PayoutStatusQueued    PayoutStatus = "QUEUED"
	PayoutStatusRequested PayoutStatus = "REQUESTED"
	PayoutStatusSent      PayoutStatus = "SENT"
	PayoutStatusConfirmed PayoutStatus = "CONFIRMED"
	PayoutStatusFailed    PayoutStatus = "FAILED"
)

// Payout instructs the external provider to pay a seller wallet for one order.
// OrderID is unique: one payout per order.
type Payout struct {
	ID          string       `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID     string       `gorm:"type:char(36);not null;uniqueIndex" json:"order_id"`
	ServerID    string       `gorm:"type:char(36);not null;index" json:"server_id"`
	ToAddress   string       `gorm:"type:varchar(128);not null" json:"to_address"`
	Asset       string       `gorm:"type:varchar(32);not null" json:"asset"`
	Chain       string       `gorm:"type:varchar(32);not null" json:"chain"`
	AmountMinor string       `gorm:"type:varchar(78);not null" json:"amount_minor"`
	Status      PayoutStatus `gorm:"type:varchar(16);not null;default:'QUEUED';index:idx_payouts_status_created,priority:1" json:"status"`
	ExternalID  *string      `gorm:"type:varchar(191)" json:"external_id,omitempty"`
	TxHash      *string      `gorm:"type:varchar(191)" json:"tx_hash,omitempty"`
	Attempts    int          `gorm:"not null;default:0" json:"attempts"`
	LastError   *string      `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index:idx_payouts_status_created,priority:2" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = PayoutStatusQueued
	}
	return nil
}

// IsTerminal reports whether no further provider calls are made for the payout.
func (s PayoutStatus) IsTerminal() bool {
	return s == PayoutStatusConfirmed || s == PayoutStatusFailed
}
