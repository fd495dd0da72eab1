package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusExpired  OrderStatus = "EXPIRED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// orderTransitions is the partial order orders move along. Nothing returns to PENDING
// and PAID is final; a late payment may still settle an expired or canceled order.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:  {OrderStatusPaid, OrderStatusExpired, OrderStatusCanceled},
	OrderStatusExpired:  {OrderStatusPaid},
	OrderStatusCanceled: {OrderStatusPaid},
}

// CanTransition reports whether an order may move from one status to another.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Order is one purchase attempt. Amounts are integer strings in the smallest
// unit and are only set once the order is PAID.
type Order struct {
	ID             string      `gorm:"type:char(36);primaryKey" json:"id"`
	ProductID      string      `gorm:"type:char(36);not null;index" json:"product_id"`
	Product        *Product    `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	BuyerDiscordID *string     `gorm:"type:varchar(32)" json:"buyer_discord_id,omitempty"`
	Status         OrderStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	InvoiceID      *string     `gorm:"type:varchar(191);uniqueIndex" json:"invoice_id,omitempty"`
	GrossMinor     *string     `gorm:"type:varchar(78)" json:"gross_minor,omitempty"`
	FeeMinor       *string     `gorm:"type:varchar(78)" json:"fee_minor,omitempty"`
	NetMinor       *string     `gorm:"type:varchar(78)" json:"net_minor,omitempty"`
	CreatedAt      time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}

// HasBuyer reports whether the order carries a Discord buyer id.
func (o *Order) HasBuyer() bool {
	return o.BuyerDiscordID != nil && *o.BuyerDiscordID != ""
}
