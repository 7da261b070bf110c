package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/gorm"
)

// CatalogService manages the category > product > level tree and the other
// draggable lists of a campaign.
type CatalogService struct {
	db     *gorm.DB
	orders *OrderManager
	stats  StatsInvalidator
	now    func() time.Time
}

func NewCatalogService(db *gorm.DB, orders *OrderManager, stats StatsInvalidator) *CatalogService {
	if stats == nil {
		stats = noopInvalidator{}
	}
	return &CatalogService{db: db, orders: orders, stats: stats, now: time.Now}
}

func (s *CatalogService) Tree(ctx context.Context, campaignID string) ([]gormModels.ProductCategory, error) {
	return repositories.NewCatalogRepository(s.db).ListCategories(ctx, campaignID)
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", Validation("name is required")
	}
	return name, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, campaignID string, req dtos.CreateCategoryRequest) (*gormModels.ProductCategory, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}

	category := gormModels.ProductCategory{CampaignID: campaignID, Name: name, Description: req.Description}
	category.IsActive = true

	err = db.RunInTx(ctx, s.db, "create_category", func(tx *gorm.DB) error {
		pos, err := s.orders.Append(ctx, tx, Categories, campaignID)
		if err != nil {
			return err
		}
		category.SortOrder = pos
		return tx.WithContext(ctx).Create(&category).Error
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(campaignID)
	return &category, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, categoryID string, req dtos.CreateProductRequest) (*gormModels.Product, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}

	product := gormModels.Product{CategoryID: categoryID, Name: name, Description: req.Description}
	product.IsActive = true

	err = db.RunInTx(ctx, s.db, "create_product", func(tx *gorm.DB) error {
		category, err := repositories.NewCatalogRepository(tx).GetCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return NotFound("category")
		}
		product.CampaignID = category.CampaignID

		pos, err := s.orders.Append(ctx, tx, Products, categoryID)
		if err != nil {
			return err
		}
		product.SortOrder = pos
		return tx.WithContext(ctx).Create(&product).Error
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(product.CampaignID)
	return &product, nil
}

// CreateLevel adds a level and mints its inventory.
func (s *CatalogService) CreateLevel(ctx context.Context, productID string, req dtos.CreateLevelRequest) (*gormModels.Level, error) {
	name, err := requireName(req.Name)
	if err != nil {
		return nil, err
	}
	if req.Cost.IsNegative() {
		return nil, Validation("cost must not be negative")
	}
	if req.Amount < constants.UnlimitedAmount {
		return nil, Validation("amount must be -1 or a non-negative count")
	}

	level := gormModels.Level{
		ProductID:   productID,
		Name:        name,
		Description: req.Description,
		Benefits:    req.Benefits,
		Cost:        req.Cost.Round(2),
		Amount:      req.Amount,
	}
	level.IsActive = true

	err = db.RunInTx(ctx, s.db, "create_level", func(tx *gorm.DB) error {
		product, err := repositories.NewCatalogRepository(tx).GetProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return NotFound("product")
		}
		level.CampaignID = product.CampaignID

		pos, err := s.orders.Append(ctx, tx, Levels, productID)
		if err != nil {
			return err
		}
		level.SortOrder = pos
		if err := tx.WithContext(ctx).Create(&level).Error; err != nil {
			return err
		}

		if !level.Unlimited() {
			return mintInstances(ctx, tx, &level, level.Amount)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(level.CampaignID)
	return &level, nil
}

// UpdateLevel edits a level. A new cost reaches unsold stock and draft
// contracts; a new amount resizes the unsold stock.
func (s *CatalogService) UpdateLevel(ctx context.Context, levelID string, req dtos.UpdateLevelRequest) (*gormModels.Level, error) {
	var level *gormModels.Level

	err := db.RunInTx(ctx, s.db, "update_level", func(tx *gorm.DB) error {
		var err error
		level, err = repositories.NewCatalogRepository(tx).GetLevelForUpdate(ctx, levelID)
		if err != nil {
			return err
		}
		if level == nil {
			return NotFound("level")
		}

		fields := map[string]interface{}{}
		if req.Name != nil {
			name, err := requireName(*req.Name)
			if err != nil {
				return err
			}
			fields["name"] = name
			level.Name = name
		}
		if req.Description != nil {
			fields["description"] = *req.Description
			level.Description = *req.Description
		}
		if req.Benefits != nil {
			fields["benefits"] = *req.Benefits
			level.Benefits = *req.Benefits
		}

		costChanged := false
		if req.Cost != nil {
			if req.Cost.IsNegative() {
				return Validation("cost must not be negative")
			}
			cost := req.Cost.Round(2)
			costChanged = !cost.Equal(level.Cost)
			fields["cost"] = cost
			level.Cost = cost
		}

		if req.Amount != nil && *req.Amount != level.Amount {
			if err := resizeInventory(ctx, tx, level, *req.Amount, s.now()); err != nil {
				return err
			}
			fields["amount"] = *req.Amount
			level.Amount = *req.Amount
		}

		if len(fields) == 0 {
			return nil
		}
		err = tx.WithContext(ctx).Model(&gormModels.Level{}).Where("id = ?", level.ID).Updates(fields).Error
		if err != nil {
			return fmt.Errorf("failed to update level: %w", err)
		}

		if costChanged {
			return resyncCost(ctx, tx, level)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(level.CampaignID)
	return level, nil
}

func (s *CatalogService) CreateTimeline(ctx context.Context, campaignID string, req dtos.CreateTimelineRequest) (*gormModels.Timeline, error) {
	title, err := requireName(req.Title)
	if err != nil {
		return nil, err
	}

	timeline := gormModels.Timeline{CampaignID: campaignID, Title: title, StartsOn: req.StartsOn}
	timeline.IsActive = true

	err = db.RunInTx(ctx, s.db, "create_timeline", func(tx *gorm.DB) error {
		pos, err := s.orders.Append(ctx, tx, Timelines, campaignID)
		if err != nil {
			return err
		}
		timeline.SortOrder = pos
		return tx.WithContext(ctx).Create(&timeline).Error
	})
	if err != nil {
		return nil, err
	}
	return &timeline, nil
}

// CampaignOf returns the campaign that owns an item of collection c.
func (s *CatalogService) CampaignOf(ctx context.Context, c Collection, id string) (string, error) {
	return s.campaignOf(ctx, s.db, c, id)
}

func (s *CatalogService) campaignOf(ctx context.Context, tx *gorm.DB, c Collection, id string) (string, error) {
	var ids []string
	err := tx.WithContext(ctx).Table(c.Table).Where("id = ?", id).Pluck("campaign_id", &ids).Error
	if err != nil {
		return "", fmt.Errorf("failed to resolve campaign: %w", err)
	}
	if len(ids) == 0 {
		return "", NotFound(c.Name + " item")
	}
	return ids[0], nil
}

// Reorder moves an item of any ordered collection and returns its new
// position.
func (s *CatalogService) Reorder(ctx context.Context, c Collection, id string, target int) (int, error) {
	var pos int
	var campaignID string
	err := db.RunInTx(ctx, s.db, "reorder_"+c.Name, func(tx *gorm.DB) error {
		var err error
		if campaignID, err = s.campaignOf(ctx, tx, c, id); err != nil {
			return err
		}
		pos, err = s.orders.Reorder(ctx, tx, c, id, target)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.stats.Invalidate(campaignID)
	return pos, nil
}

// Remove soft-deletes an item. Categories and products take their children
// with them, top-down, and every sibling set touched is renumbered.
func (s *CatalogService) Remove(ctx context.Context, c Collection, id string) error {
	var campaignID string
	err := db.RunInTx(ctx, s.db, "remove_"+c.Name, func(tx *gorm.DB) error {
		var err error
		if campaignID, err = s.campaignOf(ctx, tx, c, id); err != nil {
			return err
		}

		switch c.Name {
		case Categories.Name:
			return s.removeCategory(ctx, tx, id)
		case Products.Name:
			return s.removeProduct(ctx, tx, id)
		case Levels.Name:
			return s.removeLevel(ctx, tx, id)
		default:
			return s.orders.Remove(ctx, tx, c, id)
		}
	})
	if err != nil {
		return err
	}

	s.stats.Invalidate(campaignID)
	return nil
}

func (s *CatalogService) removeCategory(ctx context.Context, tx *gorm.DB, id string) error {
	if err := s.orders.Remove(ctx, tx, Categories, id); err != nil {
		return err
	}

	var productIDs []string
	err := tx.WithContext(ctx).Model(&gormModels.Product{}).
		Where("category_id = ? AND is_active = ?", id, true).
		Order("sort_order DESC").
		Pluck("id", &productIDs).Error
	if err != nil {
		return fmt.Errorf("failed to list products: %w", err)
	}
	for _, productID := range productIDs {
		if err := s.removeProduct(ctx, tx, productID); err != nil {
			return err
		}
	}
	return nil
}

func (s *CatalogService) removeProduct(ctx context.Context, tx *gorm.DB, id string) error {
	if err := s.orders.Remove(ctx, tx, Products, id); err != nil {
		return err
	}

	var levelIDs []string
	err := tx.WithContext(ctx).Model(&gormModels.Level{}).
		Where("product_id = ? AND is_active = ?", id, true).
		Order("sort_order DESC").
		Pluck("id", &levelIDs).Error
	if err != nil {
		return fmt.Errorf("failed to list levels: %w", err)
	}
	for _, levelID := range levelIDs {
		if err := s.removeLevel(ctx, tx, levelID); err != nil {
			return err
		}
	}
	return nil
}

// removeLevel drops the level and its unsold stock. Units already on
// contracts stay with them.
func (s *CatalogService) removeLevel(ctx context.Context, tx *gorm.DB, id string) error {
	if err := s.orders.Remove(ctx, tx, Levels, id); err != nil {
		return err
	}
	return dropStock(ctx, tx, id, s.now())
}
