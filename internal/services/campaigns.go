package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"gorm.io/gorm"
)

// campaignTransitions lists the forward-only status moves.
var campaignTransitions = map[constants.CampaignStatus][]constants.CampaignStatus{
	constants.CampaignCreated: {constants.CampaignOpen, constants.CampaignLive},
	constants.CampaignOpen:    {constants.CampaignLive},
	constants.CampaignLive:    {constants.CampaignDone},
}

func canTransition(from, to constants.CampaignStatus) bool {
	for _, next := range campaignTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type CampaignService struct {
	db     *gorm.DB
	events common.EventPublisher
	now    func() time.Time
}

func NewCampaignService(db *gorm.DB, events common.EventPublisher) *CampaignService {
	return &CampaignService{db: db, events: events, now: time.Now}
}

func (s *CampaignService) Create(ctx context.Context, chamberID string, req dtos.CreateCampaignRequest) (*gormModels.Campaign, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, Validation("campaign name is required")
	}
	if req.Year <= 0 {
		return nil, Validation("campaign year is required")
	}
	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return nil, Validation("end date is before start date")
	}

	campaign := gormModels.Campaign{
		ChamberID: chamberID,
		Name:      name,
		Year:      req.Year,
		Status:    constants.CampaignCreated,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  true,
	}
	if err := s.db.WithContext(ctx).Create(&campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	return &campaign, nil
}

func (s *CampaignService) Get(ctx context.Context, id string) (*gormModels.Campaign, error) {
	campaign, err := repositories.NewCampaignRepository(s.db).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, NotFound("campaign")
	}
	return campaign, nil
}

func (s *CampaignService) List(ctx context.Context, chamberID string) ([]gormModels.Campaign, error) {
	return repositories.NewCampaignRepository(s.db).ListByChamber(ctx, chamberID)
}

// Transition moves the campaign forward. Moving backwards or skipping past
// done is rejected.
func (s *CampaignService) Transition(ctx context.Context, id string, to constants.CampaignStatus) (*gormModels.Campaign, error) {
	if !to.Valid() {
		return nil, Validation("unknown campaign status %q", to)
	}

	var campaign *gormModels.Campaign
	var from constants.CampaignStatus
	err := db.RunInTx(ctx, s.db, "campaign_transition", func(tx *gorm.DB) error {
		var err error
		campaign, err = repositories.NewCampaignRepository(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if campaign == nil {
			return NotFound("campaign")
		}
		from = campaign.Status
		if !canTransition(from, to) {
			return Rejection("campaign cannot move from %s to %s", from, to)
		}

		if err := tx.WithContext(ctx).Model(&gormModels.Campaign{}).Where("id = ?", id).Update("status", to).Error; err != nil {
			return fmt.Errorf("failed to update campaign status: %w", err)
		}
		campaign.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, common.NewEvent(constants.EventCampaignStatus, campaign.ID, campaign.ID,
		map[string]string{"from": string(from), "to": string(to)}))
	return campaign, nil
}

// Delete soft-deletes the campaign. Rows are never removed.
func (s *CampaignService) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&gormModels.Campaign{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{"is_active": false, "deleted_at": s.now()})
	if res.Error != nil {
		return fmt.Errorf("failed to delete campaign: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return NotFound("campaign")
	}
	return nil
}

// CloseEnded moves every live campaign whose end date has passed to done.
func (s *CampaignService) CloseEnded(ctx context.Context) (int, error) {
	campaigns, err := repositories.NewCampaignRepository(s.db).ListEndedLive(ctx, s.now())
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, c := range campaigns {
		if _, err := s.Transition(ctx, c.ID, constants.CampaignDone); err != nil {
			if ErrorCode(err) == constants.ErrCodeRejected {
				continue
			}
			return closed, err
		}
		closed++
	}
	return closed, nil
}

func (s *CampaignService) CreateMember(ctx context.Context, chamberID string, req dtos.CreateMemberRequest) (*gormModels.Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, Validation("member name is required")
	}
	member := gormModels.Member{ChamberID: chamberID, Name: name, Email: strings.TrimSpace(req.Email)}
	if err := s.db.WithContext(ctx).Create(&member).Error; err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return &member, nil
}
