package repositories

import (
	"context"
	"fmt"

	gormModels "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/gorm"
)

type IncentiveRepository struct {
	db *gorm.DB
}

func NewIncentiveRepository(db *gorm.DB) *IncentiveRepository {
	return &IncentiveRepository{db: db}
}

func (r *IncentiveRepository) Get(ctx context.Context, id string) (*gormModels.Incentive, error) {
	var incentive gormModels.Incentive
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&incentive).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch incentive: %w", err)
	}
	return &incentive, nil
}

// ListActive returns the campaign's incentives in display order.
func (r *IncentiveRepository) ListActive(ctx context.Context, campaignID string) ([]gormModels.Incentive, error) {
	var incentives []gormModels.Incentive
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND is_active = ?", campaignID, true).
		Order("sort_order").
		Find(&incentives).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list incentives: %w", err)
	}
	return incentives, nil
}

// RewardsFor returns the rewards of one volunteer with their incentive.
func (r *IncentiveRepository) RewardsFor(ctx context.Context, ucID string) ([]gormModels.Reward, error) {
	var rewards []gormModels.Reward
	err := r.db.WithContext(ctx).
		Preload("Incentive").
		Where("user_campaign_id = ?", ucID).
		Order("created_at").
		Find(&rewards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}

// RewardsByCampaign returns every reward granted in a campaign.
func (r *IncentiveRepository) RewardsByCampaign(ctx context.Context, campaignID string) ([]gormModels.Reward, error) {
	var rewards []gormModels.Reward
	err := r.db.WithContext(ctx).
		Preload("Incentive").
		Joins("JOIN incentives ON incentives.id = rewards.incentive_id").
		Where("incentives.campaign_id = ?", campaignID).
		Order("rewards.created_at").
		Find(&rewards).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign rewards: %w", err)
	}
	return rewards, nil
}
