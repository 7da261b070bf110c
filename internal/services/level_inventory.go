package services

import (
	"context"
	"fmt"
	"time"

	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db/repositories"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/gorm"
)

// A limited level always satisfies amount == sold + unattached, where sold
// counts active instances held by contracts. Unlimited levels use any
// unattached stock first and mint on demand once it runs out.

func mintInstances(ctx context.Context, tx *gorm.DB, level *gormModels.Level, n int) error {
	if n <= 0 {
		return nil
	}
	instances := make([]gormModels.LevelInstance, n)
	for i := range instances {
		instances[i] = gormModels.LevelInstance{
			CampaignID: level.CampaignID,
			LevelID:    level.ID,
			Cost:       level.Cost,
		}
	}
	if err := tx.WithContext(ctx).Create(&instances).Error; err != nil {
		return fmt.Errorf("failed to mint inventory: %w", err)
	}
	return nil
}

// reserveInstance attaches one unit of the level to the contract.
func reserveInstance(ctx context.Context, tx *gorm.DB, contract *gormModels.Contract, levelID string) (*gormModels.LevelInstance, error) {
	catalog := repositories.NewCatalogRepository(tx)

	level, err := catalog.GetLevelForUpdate(ctx, levelID)
	if err != nil {
		return nil, err
	}
	if level == nil {
		return nil, NotFound("level")
	}
	if level.CampaignID != contract.CampaignID {
		return nil, Validation("level %s belongs to another campaign", levelID)
	}

	instance, err := catalog.LockUnattached(ctx, level.ID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		if !level.Unlimited() {
			return nil, Rejection("level %q is sold out", level.Name)
		}
		minted := gormModels.LevelInstance{
			CampaignID: level.CampaignID,
			LevelID:    level.ID,
			ContractID: &contract.ID,
			Cost:       level.Cost,
		}
		if err := tx.WithContext(ctx).Create(&minted).Error; err != nil {
			return nil, fmt.Errorf("failed to create instance: %w", err)
		}
		return &minted, nil
	}

	err = tx.WithContext(ctx).Model(&gormModels.LevelInstance{}).
		Where("id = ?", instance.ID).
		Updates(map[string]interface{}{"contract_id": contract.ID, "cost": level.Cost}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to attach instance: %w", err)
	}
	instance.ContractID = &contract.ID
	instance.Cost = level.Cost
	return instance, nil
}

// releaseInstance returns an instance to its level's stock at the current
// price. Instances of removed levels are dropped instead.
func releaseInstance(ctx context.Context, tx *gorm.DB, instance gormModels.LevelInstance, now time.Time) error {
	level, err := repositories.NewCatalogRepository(tx).GetLevelForUpdate(ctx, instance.LevelID)
	if err != nil {
		return err
	}

	q := tx.WithContext(ctx).Model(&gormModels.LevelInstance{}).Where("id = ?", instance.ID)
	if level == nil {
		return q.Update("deleted_at", now).Error
	}
	return q.Updates(map[string]interface{}{"contract_id": nil, "cost": level.Cost}).Error
}

// resizeInventory brings the level's unattached stock to amount - sold.
// Shrinking below what is already sold is rejected.
func resizeInventory(ctx context.Context, tx *gorm.DB, level *gormModels.Level, amount int, now time.Time) error {
	if amount == constants.UnlimitedAmount {
		return nil
	}
	if amount < 0 {
		return Validation("amount must be -1 or a non-negative count")
	}

	catalog := repositories.NewCatalogRepository(tx)
	sold, err := catalog.CountSold(ctx, level.ID)
	if err != nil {
		return err
	}
	if int64(amount) < sold {
		return Rejection("level %q already has %d sold units", level.Name, sold)
	}

	available, err := catalog.CountUnattached(ctx, level.ID)
	if err != nil {
		return err
	}

	want := int64(amount) - sold
	switch {
	case want > available:
		return mintInstances(ctx, tx, level, int(want-available))
	case want < available:
		ids, err := catalog.UnattachedIDs(ctx, level.ID, int(available-want))
		if err != nil {
			return err
		}
		return tx.WithContext(ctx).Model(&gormModels.LevelInstance{}).
			Where("id IN ?", ids).
			Update("deleted_at", now).Error
	}
	return nil
}

// resyncCost applies a new level price to stock and to draft contracts.
// Instances on sent or finalized contracts keep the price they were sold at.
func resyncCost(ctx context.Context, tx *gorm.DB, level *gormModels.Level) error {
	drafts := tx.Session(&gorm.Session{NewDB: true}).
		Model(&gormModels.Contract{}).
		Select("id").
		Where("status = ? AND is_active = ?", constants.ContractDraft, true)

	err := tx.WithContext(ctx).Model(&gormModels.LevelInstance{}).
		Where("level_id = ? AND declined_at IS NULL AND deleted_at IS NULL", level.ID).
		Where("(contract_id IS NULL OR contract_id IN (?))", drafts).
		Update("cost", level.Cost).Error
	if err != nil {
		return fmt.Errorf("failed to resync instance costs: %w", err)
	}
	return nil
}

// dropStock removes a deleted level's unattached instances.
func dropStock(ctx context.Context, tx *gorm.DB, levelID string, now time.Time) error {
	return tx.WithContext(ctx).Model(&gormModels.LevelInstance{}).
		Where("level_id = ? AND contract_id IS NULL AND deleted_at IS NULL", levelID).
		Update("deleted_at", now).Error
}
