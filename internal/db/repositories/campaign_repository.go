package repositories

import (
	"context"
	"fmt"
	"time"

	"chamberhub/campaigns/internal/constants"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/gorm"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Get returns nil when the campaign does not exist or was deleted.
func (r *CampaignRepository) Get(ctx context.Context, id string) (*gormModels.Campaign, error) {
	return r.get(ctx, r.db, id)
}

func (r *CampaignRepository) GetForUpdate(ctx context.Context, id string) (*gormModels.Campaign, error) {
	return r.get(ctx, forUpdate(r.db), id)
}

func (r *CampaignRepository) get(ctx context.Context, db *gorm.DB, id string) (*gormModels.Campaign, error) {
	var campaign gormModels.Campaign
	err := db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&campaign).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch campaign: %w", err)
	}
	return &campaign, nil
}

func (r *CampaignRepository) ListByChamber(ctx context.Context, chamberID string) ([]gormModels.Campaign, error) {
	var campaigns []gormModels.Campaign
	err := r.db.WithContext(ctx).
		Where("chamber_id = ? AND is_active = ?", chamberID, true).
		Order("year DESC, created_at DESC").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// ListEndedLive returns live campaigns whose end date has passed.
func (r *CampaignRepository) ListEndedLive(ctx context.Context, now time.Time) ([]gormModels.Campaign, error) {
	var campaigns []gormModels.Campaign
	err := r.db.WithContext(ctx).
		Where("status = ? AND is_active = ? AND end_date IS NOT NULL AND end_date < ?", constants.CampaignLive, true, now).
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list ended campaigns: %w", err)
	}
	return campaigns, nil
}

// GetUserCampaign returns nil for unknown or removed memberships.
func (r *CampaignRepository) GetUserCampaign(ctx context.Context, id string) (*gormModels.UserCampaign, error) {
	var uc gormModels.UserCampaign
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND is_active = ?", id, true).
		Take(&uc).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user campaign: %w", err)
	}
	return &uc, nil
}

func (r *CampaignRepository) GetUserCampaignForUpdate(ctx context.Context, id string) (*gormModels.UserCampaign, error) {
	var uc gormModels.UserCampaign
	err := forUpdate(r.db).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&uc).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock user campaign: %w", err)
	}
	return &uc, nil
}

// ActiveUserCampaigns returns the active memberships of campaignID among ids.
func (r *CampaignRepository) ActiveUserCampaigns(ctx context.Context, campaignID string, ids []string) ([]gormModels.UserCampaign, error) {
	var ucs []gormModels.UserCampaign
	if len(ids) == 0 {
		return ucs, nil
	}
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND is_active = ? AND id IN ?", campaignID, true, ids).
		Find(&ucs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user campaigns: %w", err)
	}
	return ucs, nil
}

func (r *CampaignRepository) ListUserCampaigns(ctx context.Context, campaignID string) ([]gormModels.UserCampaign, error) {
	var ucs []gormModels.UserCampaign
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("campaign_id = ? AND is_active = ?", campaignID, true).
		Order("created_at").
		Find(&ucs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user campaigns: %w", err)
	}
	return ucs, nil
}

func (r *CampaignRepository) GetMember(ctx context.Context, id string) (*gormModels.Member, error) {
	var member gormModels.Member
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&member).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch member: %w", err)
	}
	return &member, nil
}
