package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/GuildPay/app/models"
)

type catalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a catalog repository backed by GORM.
func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetOrCreateServer(ctx context.Context, guildID, name string) (*models.Server, error) {
	server := &models.Server{GuildID: guildID, Name: name}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoNothing: true,
	}).Create(server).Error; err != nil {
		return nil, err
	}
	return r.GetServerByGuildID(ctx, guildID)
}

func (r *catalogRepository) GetServerByGuildID(ctx context.Context, guildID string) (*models.Server, error) {
	var server models.Server
	if err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).First(&server).Error; err != nil {
		return nil, err
	}
	return &server, nil
}

func (r *catalogRepository) UpdateServer(ctx context.Context, server *models.Server) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(server).Error
}

func (r *catalogRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	return r.db.WithContext(ctx).Create(wallet).Error
}

func (r *catalogRepository) GetWallet(ctx context.Context, id string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *catalogRepository) ListWallets(ctx context.Context, serverID string) ([]models.Wallet, error) {
	var wallets []models.Wallet
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at ASC, id ASC").
		Find(&wallets).Error
	return wallets, err
}

func (r *catalogRepository) FirstWallet(ctx context.Context, serverID string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).
		Where("server_id = ?", serverID).
		Order("created_at ASC, id ASC").
		First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *catalogRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

func (r *catalogRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Server").
		Preload("Wallet").
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *catalogRepository) UpdateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(product).Error
}

func (r *catalogRepository) ListProducts(ctx context.Context, serverID string) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Wallet").
		Where("server_id = ?", serverID).
		Order("created_at ASC").
		Find(&products).Error
	return products, err
}
