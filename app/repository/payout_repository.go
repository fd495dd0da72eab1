package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
)

type payoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository creates a payout repository backed by GORM.
func NewPayoutRepository(db *gorm.DB) PayoutRepository {
	return &payoutRepository{db: db}
}

func (r *payoutRepository) Create(ctx context.Context, payout *models.Payout) error {
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *payoutRepository) GetByID(ctx context.Context, id string) (*models.Payout, error) {
	var payout models.Payout
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&payout).Error; err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *payoutRepository) ExistsForOrder(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payout{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

func (r *payoutRepository) ListByStatus(ctx context.Context, statuses []models.PayoutStatus, limit int) ([]models.Payout, error) {
	var payouts []models.Payout
	err := r.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&payouts).Error
	return payouts, err
}

func (r *payoutRepository) Transition(ctx context.Context, id string, from models.PayoutStatus, change PayoutChange) error {
	updates := map[string]interface{}{
		"status":     change.Status,
		"attempts":   change.Attempts,
		"last_error": change.LastError,
	}
	if change.ExternalID != nil {
		updates["external_id"] = *change.ExternalID
	}
	if change.TxHash != nil {
		updates["tx_hash"] = *change.TxHash
	}

	res := r.db.WithContext(ctx).Model(&models.Payout{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}
