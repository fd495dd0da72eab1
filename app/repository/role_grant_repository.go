package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
)

type roleGrantRepository struct {
	db *gorm.DB
}

// NewRoleGrantRepository creates a role grant repository backed by GORM.
func NewRoleGrantRepository(db *gorm.DB) RoleGrantRepository {
	return &roleGrantRepository{db: db}
}

func (r *roleGrantRepository) Create(ctx context.Context, grant *models.RoleGrant) error {
	return r.db.WithContext(ctx).Omit("Product").Create(grant).Error
}

func (r *roleGrantRepository) GetByID(ctx context.Context, id string) (*models.RoleGrant, error) {
	var grant models.RoleGrant
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *roleGrantRepository) Exists(ctx context.Context, orderID, discordID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.RoleGrant{}).
		Where("order_id = ? AND discord_id = ?", orderID, discordID).
		Count(&count).Error
	return count > 0, err
}

func (r *roleGrantRepository) ListByStatus(ctx context.Context, statuses []models.RoleGrantStatus, limit int) ([]models.RoleGrant, error) {
	var grants []models.RoleGrant
	err := r.db.WithContext(ctx).
		Preload("Product.Server").
		Where("status IN ?", statuses).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&grants).Error
	return grants, err
}

func (r *roleGrantRepository) Transition(ctx context.Context, id string, from models.RoleGrantStatus, change RoleGrantChange) error {
	res := r.db.WithContext(ctx).Model(&models.RoleGrant{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     change.Status,
			"attempts":   change.Attempts,
			"last_error": change.LastError,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}
