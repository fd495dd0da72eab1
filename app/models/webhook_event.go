package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WebhookEvent stores provider deliveries with deduplication metadata for
// idempotent processing. DeliveryID is unique; ProcessedAt marks a delivery
// whose business transaction has committed.
type WebhookEvent struct {
	ID              string         `gorm:"type:char(36);primaryKey" json:"id"`
	DeliveryID      string         `gorm:"type:varchar(191);not null;uniqueIndex" json:"delivery_id"`
	Type            string         `gorm:"type:varchar(100);not null;index" json:"type"`
	InvoiceID       *string        `gorm:"type:varchar(191);index" json:"invoice_id,omitempty"`
	OrderID         *string        `gorm:"type:char(36);index" json:"order_id,omitempty"`
	Raw             datatypes.JSON `gorm:"type:json;not null" json:"raw"`
	ProcessedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// IsProcessed reports whether the delivery's side effects are already applied.
func (e *WebhookEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}
