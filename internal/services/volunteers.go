package services

import (
	"context"
	"errors"
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

type VolunteerService struct {
	db      *gorm.DB
	credits *CreditService
	events  common.EventPublisher
	now     func() time.Time
}

func NewVolunteerService(db *gorm.DB, credits *CreditService, events common.EventPublisher) *VolunteerService {
	return &VolunteerService{db: db, credits: credits, events: events, now: time.Now}
}

func (s *VolunteerService) List(ctx context.Context, campaignID string) ([]gormModels.UserCampaign, error) {
	return repositories.NewCampaignRepository(s.db).ListUserCampaigns(ctx, campaignID)
}

func (s *VolunteerService) Get(ctx context.Context, ucID string) (*gormModels.UserCampaign, error) {
	uc, err := repositories.NewCampaignRepository(s.db).GetUserCampaign(ctx, ucID)
	if err != nil {
		return nil, err
	}
	if uc == nil {
		return nil, NotFound("volunteer")
	}
	return uc, nil
}

// Add enrols a user in the campaign, creating the user on first sight.
func (s *VolunteerService) Add(ctx context.Context, campaignID string, req dtos.AddVolunteerRequest) (*gormModels.UserCampaign, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, Validation("email is required")
	}
	if req.Role == "" {
		req.Role = constants.RoleVolunteer
	}
	if !req.Role.Valid() || req.Role == constants.RolePublic || req.Role == constants.RoleSuperAdmin {
		return nil, Validation("role %q cannot be assigned in a campaign", req.Role)
	}

	var uc gormModels.UserCampaign
	err := db.RunInTx(ctx, s.db, "add_volunteer", func(tx *gorm.DB) error {
		campaign, err := repositories.NewCampaignRepository(tx).Get(ctx, campaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return NotFound("campaign")
		}

		var user gormModels.User
		err = tx.WithContext(ctx).Where("email = ?", email).Take(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			user = gormModels.User{Email: email, Name: strings.TrimSpace(req.Name), IsActive: true}
			err = tx.WithContext(ctx).Create(&user).Error
		}
		if err != nil {
			return fmt.Errorf("failed to resolve user: %w", err)
		}

		var existing int64
		err = tx.WithContext(ctx).Model(&gormModels.UserCampaign{}).
			Where("user_id = ? AND campaign_id = ? AND is_active = ?", user.ID, campaignID, true).
			Count(&existing).Error
		if err != nil {
			return err
		}
		if existing > 0 {
			return Rejection("%s is already part of this campaign", email)
		}

		uc = gormModels.UserCampaign{UserID: user.ID, CampaignID: campaignID, Role: req.Role, IsActive: true, User: user}
		return tx.WithContext(ctx).Omit("User").Create(&uc).Error
	})
	if err != nil {
		return nil, err
	}
	return &uc, nil
}

// Remove takes a volunteer out of the campaign in one transaction: their
// editable contracts move to reassignTo, their share of unfinalized
// contracts is redistributed and the membership is soft-deleted. Credit
// rows on finalized contracts stay as history.
func (s *VolunteerService) Remove(ctx context.Context, ucID, reassignTo string) (int, error) {
	var uc *gormModels.UserCampaign
	var redistributed int

	err := db.RunInTx(ctx, s.db, "remove_volunteer", func(tx *gorm.DB) error {
		campaigns := repositories.NewCampaignRepository(tx)

		var err error
		uc, err = campaigns.GetUserCampaignForUpdate(ctx, ucID)
		if err != nil {
			return err
		}
		if uc == nil {
			return NotFound("volunteer")
		}

		authored, err := repositories.NewContractRepository(tx).EditableCreatedBy(ctx, ucID)
		if err != nil {
			return err
		}
		if len(authored) > 0 {
			if reassignTo == "" {
				return Rejection("volunteer still owns %d open contracts; choose who takes them over", len(authored))
			}
			if reassignTo == ucID {
				return Validation("contracts cannot be reassigned to the volunteer being removed")
			}

			target, err := campaigns.GetUserCampaign(ctx, reassignTo)
			if err != nil {
				return err
			}
			if target == nil || target.CampaignID != uc.CampaignID {
				return Validation("reassignment target must be an active member of the campaign")
			}

			contracts, err := s.credits.lockAll(ctx, tx, authored)
			if err != nil {
				return err
			}
			for _, c := range contracts {
				if err := s.credits.reassignTx(ctx, tx, c, target.ID); err != nil {
					return err
				}
			}
		}

		redistributed, err = s.credits.redistributeTx(ctx, tx, ucID)
		if err != nil {
			return err
		}

		return tx.WithContext(ctx).Model(&gormModels.UserCampaign{}).
			Where("id = ?", ucID).
			Updates(map[string]interface{}{"is_active": false, "deleted_at": s.now()}).Error
	})
	if err != nil {
		return 0, err
	}

	publish(ctx, s.events, common.NewEvent(constants.EventVolunteerRemoved, uc.CampaignID, uc.ID,
		map[string]string{"user_id": uc.UserID}))
	return redistributed, nil
}
