package repository

import (
	"context"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/GuildPay/app/models"
)

const maxProcessingErrorLen = 1000

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a webhook event repository backed by GORM.
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) InsertIfAbsent(ctx context.Context, event *models.WebhookEvent) (InsertOutcome, *models.WebhookEvent, error) {
	// The id is assigned up front so the stored row tells us whether this call inserted it.
	if err := event.BeforeCreate(nil); err != nil {
		return 0, nil, err
	}

	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "delivery_id"}},
		DoNothing: true,
	}).Create(event).Error; err != nil {
		return 0, nil, err
	}

	var stored models.WebhookEvent
	if err := r.db.WithContext(ctx).Where("delivery_id = ?", event.DeliveryID).First(&stored).Error; err != nil {
		return 0, nil, err
	}
	if stored.ID == event.ID {
		return Inserted, &stored, nil
	}
	return AlreadyPresent, &stored, nil
}

func (r *webhookEventRepository) MarkProcessed(ctx context.Context, id string, orderID *string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": "",
	}
	if orderID != nil {
		updates["order_id"] = *orderID
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *webhookEventRepository) RecordError(ctx context.Context, id, message string) error {
	if len(message) > maxProcessingErrorLen {
		cut := maxProcessingErrorLen
		for cut > 0 && !utf8.RuneStart(message[cut]) {
			cut--
		}
		message = message[:cut]
	}
	return r.db.WithContext(ctx).Model(&models.WebhookEvent{}).
		Where("id = ?", id).
		Update("processing_error", message).Error
}
