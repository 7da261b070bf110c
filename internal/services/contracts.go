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
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ContractService drives contracts through draft > sent > approved/signed,
// with declined as the other terminal state.
type ContractService struct {
	db         *gorm.DB
	credits    *CreditService
	incentives *IncentiveService
	signer     *common.SignLinkSigner
	events     common.EventPublisher
	stats      StatsInvalidator
	now        func() time.Time
}

func NewContractService(
	db *gorm.DB,
	credits *CreditService,
	incentives *IncentiveService,
	signer *common.SignLinkSigner,
	events common.EventPublisher,
	stats StatsInvalidator,
) *ContractService {
	if stats == nil {
		stats = noopInvalidator{}
	}
	return &ContractService{
		db:         db,
		credits:    credits,
		incentives: incentives,
		signer:     signer,
		events:     events,
		stats:      stats,
		now:        time.Now,
	}
}

func (s *ContractService) Get(ctx context.Context, id string) (*gormModels.Contract, error) {
	contract, err := repositories.NewContractRepository(s.db).GetWithDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, NotFound("contract")
	}
	return contract, nil
}

func (s *ContractService) List(ctx context.Context, campaignID string, status constants.ContractStatus) ([]gormModels.Contract, error) {
	return repositories.NewContractRepository(s.db).ListByCampaign(ctx, campaignID, status)
}

// Create opens a draft for the creator's campaign, reserving one instance
// per level and splitting credit equally with SharedWith.
func (s *ContractService) Create(ctx context.Context, creatorID string, req dtos.CreateContractRequest) (*gormModels.Contract, error) {
	if req.PaymentType == "" {
		req.PaymentType = constants.PaymentCash
	}
	if !req.PaymentType.Valid() {
		return nil, Validation("unknown payment type %q", req.PaymentType)
	}
	if req.MemberID == "" {
		return nil, Validation("member_id is required")
	}

	var contract gormModels.Contract
	err := db.RunInTx(ctx, s.db, "create_contract", func(tx *gorm.DB) error {
		campaigns := repositories.NewCampaignRepository(tx)

		creator, err := campaigns.GetUserCampaign(ctx, creatorID)
		if err != nil {
			return err
		}
		if creator == nil {
			return NotFound("volunteer")
		}

		campaign, err := campaigns.Get(ctx, creator.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return NotFound("campaign")
		}
		if campaign.Status == constants.CampaignDone {
			return Rejection("campaign %q is closed", campaign.Name)
		}

		member, err := campaigns.GetMember(ctx, req.MemberID)
		if err != nil {
			return err
		}
		if member == nil || member.ChamberID != campaign.ChamberID {
			return Validation("member does not belong to the campaign's chamber")
		}

		shared, err := s.credits.validateShared(ctx, tx, campaign.ID, creator.ID, req.SharedWith)
		if err != nil {
			return err
		}

		contract = gormModels.Contract{
			CampaignID:  campaign.ID,
			CreatedByID: creator.ID,
			MemberID:    member.ID,
			Status:      constants.ContractDraft,
			PaymentType: req.PaymentType,
			Note:        req.Note,
			IsActive:    true,
		}
		if err := tx.WithContext(ctx).Create(&contract).Error; err != nil {
			return fmt.Errorf("failed to create contract: %w", err)
		}

		for _, levelID := range req.LevelIDs {
			if _, err := reserveInstance(ctx, tx, &contract, levelID); err != nil {
				return err
			}
		}

		_, err = s.credits.assignEqual(ctx, tx, &contract, shared)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(contract.CampaignID)
	return s.Get(ctx, contract.ID)
}

// AttachLevel reserves one more unit for a draft contract.
func (s *ContractService) AttachLevel(ctx context.Context, contractID, levelID string) (*gormModels.Contract, error) {
	var campaignID string
	err := db.RunInTx(ctx, s.db, "attach_level", func(tx *gorm.DB) error {
		contract, err := s.lock(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract.Status != constants.ContractDraft {
			return Rejection("levels can only be added to draft contracts")
		}
		campaignID = contract.CampaignID

		_, err = reserveInstance(ctx, tx, contract, levelID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(campaignID)
	return s.Get(ctx, contractID)
}

// DetachInstance takes a unit off a draft contract and returns it to stock.
func (s *ContractService) DetachInstance(ctx context.Context, contractID, instanceID string) (*gormModels.Contract, error) {
	var campaignID string
	err := db.RunInTx(ctx, s.db, "detach_instance", func(tx *gorm.DB) error {
		contract, err := s.lock(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract.Status != constants.ContractDraft {
			return Rejection("levels can only be removed from draft contracts")
		}
		campaignID = contract.CampaignID

		instances, err := repositories.NewContractRepository(tx).ActiveInstances(ctx, contract.ID)
		if err != nil {
			return err
		}
		for _, instance := range instances {
			if instance.ID == instanceID {
				return releaseInstance(ctx, tx, instance, s.now())
			}
		}
		return NotFound("level instance")
	})
	if err != nil {
		return nil, err
	}

	s.stats.Invalidate(campaignID)
	return s.Get(ctx, contractID)
}

func (s *ContractService) lock(ctx context.Context, tx *gorm.DB, contractID string) (*gormModels.Contract, error) {
	contract, err := repositories.NewContractRepository(tx).GetForUpdate(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, NotFound("contract")
	}
	return contract, nil
}

func (s *ContractService) transition(ctx context.Context, tx *gorm.DB, contract *gormModels.Contract, to constants.ContractStatus, fields map[string]interface{}) error {
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["status"] = to

	err := tx.WithContext(ctx).Model(&gormModels.Contract{}).
		Where("id = ?", contract.ID).
		Updates(fields).Error
	if err != nil {
		return fmt.Errorf("failed to move contract to %s: %w", to, err)
	}
	contract.Status = to
	return nil
}

func (s *ContractService) activeTotal(ctx context.Context, tx *gorm.DB, contractID string) (decimal.Decimal, int, error) {
	instances, err := repositories.NewContractRepository(tx).ActiveInstances(ctx, contractID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	total := decimal.Zero
	for _, instance := range instances {
		total = total.Add(instance.Cost)
	}
	return total, len(instances), nil
}

// Send issues the member signing link for a draft.
func (s *ContractService) Send(ctx context.Context, contractID string) (*dtos.SendContractResponse, error) {
	var contract *gormModels.Contract
	err := db.RunInTx(ctx, s.db, "send_contract", func(tx *gorm.DB) error {
		var err error
		contract, err = s.lock(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract.Status != constants.ContractDraft {
			return Rejection("a %s contract cannot be sent", contract.Status)
		}

		_, count, err := s.activeTotal(ctx, tx, contract.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			return Validation("contract has no levels")
		}

		return s.transition(ctx, tx, contract, constants.ContractSent, nil)
	})
	if err != nil {
		return nil, err
	}

	metrics.Get().ContractTransitionsTotal.WithLabelValues(string(constants.ContractSent)).Inc()

	token, err := s.signer.Issue(contract.ID)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.events, common.NewEvent(constants.EventContractSent, contract.CampaignID, contract.ID,
		map[string]string{"member_id": contract.MemberID}))

	return &dtos.SendContractResponse{ContractID: contract.ID, SignToken: token}, nil
}

// Approve finalizes a draft or sent contract while the campaign is selling.
// Approving twice is rejected, so of two racing approvals only one wins.
func (s *ContractService) Approve(ctx context.Context, contractID string) (*gormModels.Contract, error) {
	var contract *gormModels.Contract
	var rewards []gormModels.Reward

	err := db.RunInTx(ctx, s.db, "approve_contract", func(tx *gorm.DB) error {
		var err error
		contract, err = s.lock(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract.Status != constants.ContractDraft && contract.Status != constants.ContractSent {
			return Rejection("a %s contract cannot be approved", contract.Status)
		}

		campaign, err := repositories.NewCampaignRepository(tx).Get(ctx, contract.CampaignID)
		if err != nil {
			return err
		}
		if campaign == nil {
			return NotFound("campaign")
		}
		if campaign.Status != constants.CampaignLive && campaign.Status != constants.CampaignOpen {
			return Rejection("contracts cannot be approved while the campaign is %s", campaign.Status)
		}

		total, count, err := s.activeTotal(ctx, tx, contract.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			return Validation("contract has no levels")
		}

		now := s.now()
		if err := s.transition(ctx, tx, contract, constants.ContractApproved, map[string]interface{}{"approved_at": now}); err != nil {
			return err
		}
		contract.ApprovedAt = &now

		if _, err := repositories.NewContractRepository(tx).CreateInvoice(ctx, contract, total); err != nil {
			return err
		}

		rewards, err = s.incentives.evaluateForContract(ctx, tx, contract.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.afterFinalized(ctx, contract, constants.EventContractApproved, rewards)
	return s.Get(ctx, contract.ID)
}

// Decline closes the contract and puts one fresh unit per declined instance
// back on sale at the level's current price.
func (s *ContractService) Decline(ctx context.Context, contractID string) (*gormModels.Contract, error) {
	var contract *gormModels.Contract

	err := db.RunInTx(ctx, s.db, "decline_contract", func(tx *gorm.DB) error {
		var err error
		contract, err = s.lock(ctx, tx, contractID)
		if err != nil {
			return err
		}
		switch contract.Status {
		case constants.ContractDraft, constants.ContractSent, constants.ContractApproved:
		default:
			return Rejection("a %s contract cannot be declined", contract.Status)
		}

		instances, err := repositories.NewContractRepository(tx).ActiveInstances(ctx, contract.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if err := s.transition(ctx, tx, contract, constants.ContractDeclined, map[string]interface{}{"declined_at": now}); err != nil {
			return err
		}
		contract.DeclinedAt = &now

		catalog := repositories.NewCatalogRepository(tx)
		for _, instance := range instances {
			err := tx.WithContext(ctx).Model(&gormModels.LevelInstance{}).
				Where("id = ?", instance.ID).
				Update("declined_at", now).Error
			if err != nil {
				return fmt.Errorf("failed to decline instance: %w", err)
			}

			level, err := catalog.GetLevelForUpdate(ctx, instance.LevelID)
			if err != nil {
				return err
			}
			if level == nil {
				continue
			}
			if err := mintInstances(ctx, tx, level, 1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.Get().ContractTransitionsTotal.WithLabelValues(string(constants.ContractDeclined)).Inc()
	s.stats.Invalidate(contract.CampaignID)
	publish(ctx, s.events, common.NewEvent(constants.EventContractDeclined, contract.CampaignID, contract.ID, nil))

	return s.Get(ctx, contract.ID)
}

// Delete removes a draft, its credit rows and its reservations.
func (s *ContractService) Delete(ctx context.Context, contractID string) error {
	var campaignID string
	err := db.RunInTx(ctx, s.db, "delete_contract", func(tx *gorm.DB) error {
		contract, err := s.lock(ctx, tx, contractID)
		if err != nil {
			return err
		}
		if contract.Status != constants.ContractDraft {
			return Rejection("only draft contracts can be deleted")
		}
		campaignID = contract.CampaignID

		repo := repositories.NewContractRepository(tx)
		instances, err := repo.ActiveInstances(ctx, contract.ID)
		if err != nil {
			return err
		}

		now := s.now()
		for _, instance := range instances {
			if err := releaseInstance(ctx, tx, instance, now); err != nil {
				return err
			}
		}

		if err := repo.ReplaceCredits(ctx, contract.ID, nil); err != nil {
			return err
		}

		return tx.WithContext(ctx).Model(&gormModels.Contract{}).
			Where("id = ?", contract.ID).
			Updates(map[string]interface{}{"is_active": false, "deleted_at": now}).Error
	})
	if err != nil {
		return err
	}

	s.stats.Invalidate(campaignID)
	return nil
}

// Sign records the member's signature through a single-use link.
func (s *ContractService) Sign(ctx context.Context, token, signature string) (*gormModels.Contract, error) {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return nil, Validation("signature is required")
	}

	claims, err := s.signer.Validate(ctx, token)
	if errors.Is(err, common.ErrSignLinkInvalid) || errors.Is(err, common.ErrSignLinkUsed) {
		return nil, InvalidLink(err)
	}
	if err != nil {
		return nil, err
	}

	var contract *gormModels.Contract
	var rewards []gormModels.Reward

	err = db.RunInTx(ctx, s.db, "sign_contract", func(tx *gorm.DB) error {
		var err error
		contract, err = s.lock(ctx, tx, claims.ContractID)
		if err != nil {
			return err
		}
		if contract.Status != constants.ContractSent || contract.Signature != nil || contract.SignedAt != nil {
			return Rejection("contract is not awaiting a signature")
		}

		total, _, err := s.activeTotal(ctx, tx, contract.ID)
		if err != nil {
			return err
		}

		now := s.now()
		err = s.transition(ctx, tx, contract, constants.ContractSigned, map[string]interface{}{
			"signature": signature,
			"signed_at": now,
		})
		if err != nil {
			return err
		}
		contract.Signature = &signature
		contract.SignedAt = &now

		if _, err := repositories.NewContractRepository(tx).CreateInvoice(ctx, contract, total); err != nil {
			return err
		}

		rewards, err = s.incentives.evaluateForContract(ctx, tx, contract.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := s.signer.MarkUsed(ctx, claims); err != nil {
		logging.Warn("Failed to mark sign link used", "contract_id", contract.ID, "error", err.Error())
	}

	s.afterFinalized(ctx, contract, constants.EventContractSigned, rewards)
	return s.Get(ctx, contract.ID)
}

func (s *ContractService) afterFinalized(ctx context.Context, contract *gormModels.Contract, eventType constants.EventType, rewards []gormModels.Reward) {
	metrics.Get().ContractTransitionsTotal.WithLabelValues(string(contract.Status)).Inc()
	s.stats.Invalidate(contract.CampaignID)

	events := []*common.Event{common.NewEvent(eventType, contract.CampaignID, contract.ID,
		map[string]string{"member_id": contract.MemberID})}
	events = append(events, rewardEvents(contract.CampaignID, rewards)...)
	publish(ctx, s.events, events...)
}
