package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const copySuffix = " (copy)"

// InventoryService duplicates catalogue subtrees and values inventory.
type InventoryService struct {
	db     *gorm.DB
	orders *OrderManager
	cache  common.CacheInterface
	ttl    time.Duration
	group  singleflight.Group

	mu          sync.Mutex
	generations map[string]uint64
}

var _ StatsInvalidator = (*InventoryService)(nil)

func NewInventoryService(db *gorm.DB, orders *OrderManager, cache common.CacheInterface, ttl time.Duration) *InventoryService {
	return &InventoryService{db: db, orders: orders, cache: cache, ttl: ttl, generations: make(map[string]uint64)}
}

// DuplicateCategory clones the category with all of its products and
// levels and appends the clone to the campaign.
func (s *InventoryService) DuplicateCategory(ctx context.Context, categoryID string) (*gormModels.ProductCategory, error) {
	var clone *gormModels.ProductCategory
	err := db.RunInTx(ctx, s.db, "duplicate_category", func(tx *gorm.DB) error {
		src, err := repositories.NewCatalogRepository(tx).GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if src == nil {
			return NotFound("category")
		}
		clone, err = s.cloneCategory(ctx, tx, src)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(clone.CampaignID)
	return clone, nil
}

// DuplicateProduct clones the product and its levels into the same category.
func (s *InventoryService) DuplicateProduct(ctx context.Context, productID string) (*gormModels.Product, error) {
	var clone *gormModels.Product
	err := db.RunInTx(ctx, s.db, "duplicate_product", func(tx *gorm.DB) error {
		src, err := repositories.NewCatalogRepository(tx).GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if src == nil {
			return NotFound("product")
		}
		clone, err = s.cloneProduct(ctx, tx, src, src.CategoryID, src.Name+copySuffix)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(clone.CampaignID)
	return clone, nil
}

func (s *InventoryService) DuplicateLevel(ctx context.Context, levelID string) (*gormModels.Level, error) {
	var clone *gormModels.Level
	err := db.RunInTx(ctx, s.db, "duplicate_level", func(tx *gorm.DB) error {
		src, err := repositories.NewCatalogRepository(tx).GetLevel(ctx, levelID)
		if err != nil {
			return err
		}
		if src == nil {
			return NotFound("level")
		}
		clone, err = s.cloneLevel(ctx, tx, src, src.ProductID, src.Name+copySuffix)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate(clone.CampaignID)
	return clone, nil
}

func (s *InventoryService) cloneCategory(ctx context.Context, tx *gorm.DB, src *gormModels.ProductCategory) (*gormModels.ProductCategory, error) {
	pos, err := s.orders.Append(ctx, tx, Categories, src.CampaignID)
	if err != nil {
		return nil, err
	}

	clone := gormModels.ProductCategory{
		CampaignID:  src.CampaignID,
		Name:        src.Name + copySuffix,
		Description: src.Description,
	}
	clone.SortOrder = pos
	clone.IsActive = true
	if err := tx.WithContext(ctx).Create(&clone).Error; err != nil {
		return nil, fmt.Errorf("failed to clone category: %w", err)
	}

	for i := range src.Products {
		product, err := s.cloneProduct(ctx, tx, &src.Products[i], clone.ID, src.Products[i].Name)
		if err != nil {
			return nil, err
		}
		clone.Products = append(clone.Products, *product)
	}
	return &clone, nil
}

// cloneProduct expects src.Levels to hold the active levels in order.
func (s *InventoryService) cloneProduct(ctx context.Context, tx *gorm.DB, src *gormModels.Product, categoryID, name string) (*gormModels.Product, error) {
	pos, err := s.orders.Append(ctx, tx, Products, categoryID)
	if err != nil {
		return nil, err
	}

	clone := gormModels.Product{
		CampaignID:  src.CampaignID,
		CategoryID:  categoryID,
		Name:        name,
		Description: src.Description,
	}
	clone.SortOrder = pos
	clone.IsActive = true
	if err := tx.WithContext(ctx).Create(&clone).Error; err != nil {
		return nil, fmt.Errorf("failed to clone product: %w", err)
	}

	for i := range src.Levels {
		level, err := s.cloneLevel(ctx, tx, &src.Levels[i], clone.ID, src.Levels[i].Name)
		if err != nil {
			return nil, err
		}
		clone.Levels = append(clone.Levels, *level)
	}
	return &clone, nil
}

// cloneLevel copies catalogue fields only and mints fresh stock.
func (s *InventoryService) cloneLevel(ctx context.Context, tx *gorm.DB, src *gormModels.Level, productID, name string) (*gormModels.Level, error) {
	pos, err := s.orders.Append(ctx, tx, Levels, productID)
	if err != nil {
		return nil, err
	}

	clone := gormModels.Level{
		CampaignID:  src.CampaignID,
		ProductID:   productID,
		Name:        name,
		Description: src.Description,
		Benefits:    src.Benefits,
		Cost:        src.Cost,
		Amount:      src.Amount,
	}
	clone.SortOrder = pos
	clone.IsActive = true
	if err := tx.WithContext(ctx).Create(&clone).Error; err != nil {
		return nil, fmt.Errorf("failed to clone level: %w", err)
	}

	if !clone.Unlimited() {
		if err := mintInstances(ctx, tx, &clone, clone.Amount); err != nil {
			return nil, err
		}
	}
	return &clone, nil
}

func inventoryKey(campaignID string) string {
	return string(constants.CachePrefixInventoryStats) + campaignID
}

func categoryKey(campaignID string) string {
	return string(constants.CachePrefixCategoryStats) + campaignID
}

// Invalidate drops both cached views of the campaign and bumps its
// generation so loads already in flight do not repopulate them.
func (s *InventoryService) Invalidate(campaignID string) {
	s.mu.Lock()
	s.generations[campaignID]++
	s.mu.Unlock()

	s.cache.Delete(inventoryKey(campaignID))
	s.cache.Delete(categoryKey(campaignID))
}

func (s *InventoryService) generation(campaignID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[campaignID]
}

// cached serves key from the cache, collapsing concurrent misses into one
// load. A load that overlaps an Invalidate of the campaign is returned to
// its callers but not stored.
func (s *InventoryService) cached(campaignID, key, pattern string, dest interface{}, load func() (interface{}, error)) (interface{}, error) {
	if s.cache.Get(key, dest) {
		metrics.Get().CacheHitsTotal.WithLabelValues(pattern).Inc()
		return dest, nil
	}
	metrics.Get().CacheMissesTotal.WithLabelValues(pattern).Inc()

	gen := s.generation(campaignID)
	v, err, _ := s.group.Do(fmt.Sprintf("%s#%d", key, gen), func() (interface{}, error) {
		v, err := load()
		if err != nil {
			return nil, err
		}
		if s.generation(campaignID) == gen {
			s.cache.Set(key, v, s.ttl)
		}
		return v, nil
	})
	return v, err
}

// InventoryStats values the campaign's active levels. Unlimited levels are
// counted but add nothing to TotalValue.
func (s *InventoryService) InventoryStats(ctx context.Context, campaignID string) (*dtos.InventoryStats, error) {
	var hit dtos.InventoryStats
	v, err := s.cached(campaignID, inventoryKey(campaignID), string(constants.CachePrefixInventoryStats), &hit, func() (interface{}, error) {
		levels, err := repositories.NewCatalogRepository(s.db).LevelsByCampaign(ctx, campaignID)
		if err != nil {
			return nil, err
		}

		stats := &dtos.InventoryStats{CampaignID: campaignID, TotalValue: decimal.Zero}
		for _, level := range levels {
			stats.LevelsCount++
			if level.Unlimited() {
				stats.UnlimitedLevelsCount++
				continue
			}
			stats.TotalValue = stats.TotalValue.Add(level.Cost.Mul(decimal.NewFromInt(int64(level.Amount))))
		}
		return stats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dtos.InventoryStats), nil
}

// CategoryStats rolls the same figures up per category, in display order.
func (s *InventoryService) CategoryStats(ctx context.Context, campaignID string) ([]dtos.CategoryStats, error) {
	var hit []dtos.CategoryStats
	v, err := s.cached(campaignID, categoryKey(campaignID), string(constants.CachePrefixCategoryStats), &hit, func() (interface{}, error) {
		categories, err := repositories.NewCatalogRepository(s.db).ListCategories(ctx, campaignID)
		if err != nil {
			return nil, err
		}

		out := make([]dtos.CategoryStats, 0, len(categories))
		for _, category := range categories {
			row := dtos.CategoryStats{
				CategoryID:    category.ID,
				Name:          category.Name,
				ProductsCount: len(category.Products),
				TotalValue:    decimal.Zero,
			}
			for _, product := range category.Products {
				for _, level := range product.Levels {
					row.LevelsCount++
					if level.Unlimited() {
						row.UnlimitedLevelsCount++
						continue
					}
					row.TotalValue = row.TotalValue.Add(level.Cost.Mul(decimal.NewFromInt(int64(level.Amount))))
				}
			}
			out = append(out, row)
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return *(v.(*[]dtos.CategoryStats)), nil
}
