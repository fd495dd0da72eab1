package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/GuildPay/app/models"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository backed by GORM.
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetForUpdate(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByInvoiceIDForUpdate(ctx context.Context, invoiceID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("invoice_id = ?", invoiceID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) SetInvoiceID(ctx context.Context, id, invoiceID string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", id).
		Update("invoice_id", invoiceID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepository) MarkPaid(ctx context.Context, id string, from models.OrderStatus, gross, fee, net string) error {
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":      models.OrderStatusPaid,
			"gross_minor": gross,
			"fee_minor":   fee,
			"net_minor":   net,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusMismatch
	}
	return nil
}

func (r *orderRepository) ClosePending(ctx context.Context, invoiceID, orderID string, status models.OrderStatus) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("status = ?", models.OrderStatusPending)
	switch {
	case invoiceID != "" && orderID != "":
		q = q.Where("(invoice_id = ? OR id = ?)", invoiceID, orderID)
	case invoiceID != "":
		q = q.Where("invoice_id = ?", invoiceID)
	case orderID != "":
		q = q.Where("id = ?", orderID)
	default:
		return 0, nil
	}

	res := q.Update("status", status)
	return res.RowsAffected, res.Error
}
