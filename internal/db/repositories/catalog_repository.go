package repositories

import (
	"context"
	"fmt"

	gormModels "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/gorm"
)

// CatalogRepository reads the category > product > level tree of a campaign.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func activeOrdered(db *gorm.DB) *gorm.DB {
	return db.Where("is_active = ?", true).Order("sort_order")
}

// ListCategories returns the active tree of a campaign in display order.
func (r *CatalogRepository) ListCategories(ctx context.Context, campaignID string) ([]gormModels.ProductCategory, error) {
	var categories []gormModels.ProductCategory
	err := r.db.WithContext(ctx).
		Preload("Products", activeOrdered).
		Preload("Products.Levels", activeOrdered).
		Where("campaign_id = ? AND is_active = ?", campaignID, true).
		Order("sort_order").
		Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *CatalogRepository) GetCategory(ctx context.Context, id string) (*gormModels.ProductCategory, error) {
	var category gormModels.ProductCategory
	err := r.db.WithContext(ctx).
		Preload("Products", activeOrdered).
		Preload("Products.Levels", activeOrdered).
		Where("id = ? AND is_active = ?", id, true).
		Take(&category).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch category: %w", err)
	}
	return &category, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, id string) (*gormModels.Product, error) {
	var product gormModels.Product
	err := r.db.WithContext(ctx).
		Preload("Levels", activeOrdered).
		Where("id = ? AND is_active = ?", id, true).
		Take(&product).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	return &product, nil
}

func (r *CatalogRepository) GetLevel(ctx context.Context, id string) (*gormModels.Level, error) {
	return r.getLevel(ctx, r.db, id)
}

// GetLevelForUpdate serialises inventory changes on one level.
func (r *CatalogRepository) GetLevelForUpdate(ctx context.Context, id string) (*gormModels.Level, error) {
	return r.getLevel(ctx, forUpdate(r.db), id)
}

func (r *CatalogRepository) getLevel(ctx context.Context, db *gorm.DB, id string) (*gormModels.Level, error) {
	var level gormModels.Level
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&level).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch level: %w", err)
	}
	return &level, nil
}

// LevelsByCampaign returns every active level of a campaign.
func (r *CatalogRepository) LevelsByCampaign(ctx context.Context, campaignID string) ([]gormModels.Level, error) {
	var levels []gormModels.Level
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND is_active = ?", campaignID, true).
		Find(&levels).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	return levels, nil
}

func unattached(db *gorm.DB, levelID string) *gorm.DB {
	return db.Model(&gormModels.LevelInstance{}).
		Where("level_id = ? AND contract_id IS NULL AND declined_at IS NULL AND deleted_at IS NULL", levelID)
}

// CountUnattached returns the level's available inventory.
func (r *CatalogRepository) CountUnattached(ctx context.Context, levelID string) (int64, error) {
	var count int64
	if err := unattached(r.db.WithContext(ctx), levelID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count inventory: %w", err)
	}
	return count, nil
}

// CountSold returns the instances of a level held by live contracts.
func (r *CatalogRepository) CountSold(ctx context.Context, levelID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&gormModels.LevelInstance{}).
		Where("level_id = ? AND contract_id IS NOT NULL AND declined_at IS NULL AND deleted_at IS NULL", levelID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count sold instances: %w", err)
	}
	return count, nil
}

// LockUnattached locks one available instance of the level, or returns nil
// when the level is sold out.
func (r *CatalogRepository) LockUnattached(ctx context.Context, levelID string) (*gormModels.LevelInstance, error) {
	var instance gormModels.LevelInstance
	err := unattached(forUpdate(r.db).WithContext(ctx), levelID).
		Order("created_at").
		Take(&instance).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock inventory: %w", err)
	}
	return &instance, nil
}

// UnattachedIDs returns up to limit available instance ids, newest first.
func (r *CatalogRepository) UnattachedIDs(ctx context.Context, levelID string, limit int) ([]string, error) {
	var ids []string
	err := unattached(r.db.WithContext(ctx), levelID).
		Order("created_at DESC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory: %w", err)
	}
	return ids, nil
}
