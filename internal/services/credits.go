package services

import (
	"context"
	"fmt"
	"sort"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db"
	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	one = decimal.NewFromInt(1)

	// creditTolerance bounds how far a contract's portions may drift from 1
	// after rounding to PortionScale digits.
	creditTolerance = decimal.New(1, -12)
)

// equalPortions splits 1 into n shares rounded to PortionScale digits. The
// first share carries the rounding remainder so the shares sum to exactly 1.
func equalPortions(n int) []decimal.Decimal {
	portion := one.DivRound(decimal.NewFromInt(int64(n)), constants.PortionScale)
	portions := make([]decimal.Decimal, n)
	for i := range portions {
		portions[i] = portion
	}
	portions[0] = one.Sub(portion.Mul(decimal.NewFromInt(int64(n - 1))))
	return portions
}

// CreditService attributes contract revenue to volunteers.
type CreditService struct {
	db         *gorm.DB
	invariants Invariants
}

func NewCreditService(db *gorm.DB, invariants Invariants) *CreditService {
	return &CreditService{db: db, invariants: invariants}
}

// SetCredits replaces the credit set of a draft or sent contract with an
// equal split between the creator and shareWith.
func (s *CreditService) SetCredits(ctx context.Context, contractID string, shareWith []string) ([]gormModels.ContractCreditInfo, error) {
	var credits []gormModels.ContractCreditInfo

	err := db.RunInTx(ctx, s.db, "set_credits", func(tx *gorm.DB) error {
		contract, err := repositories.NewContractRepository(tx).GetForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return NotFound("contract")
		}
		if !contract.CreditsEditable() {
			return Rejection("credits of a %s contract cannot be changed", contract.Status)
		}

		shared, err := s.validateShared(ctx, tx, contract.CampaignID, contract.CreatedByID, shareWith)
		if err != nil {
			return err
		}

		credits, err = s.assignEqual(ctx, tx, contract, shared)
		return err
	})
	if err != nil {
		return nil, err
	}
	return credits, nil
}

// validateShared dedupes the list, drops the creator and checks that every
// remaining id is an active member of the campaign.
func (s *CreditService) validateShared(ctx context.Context, tx *gorm.DB, campaignID, creatorID string, ids []string) ([]string, error) {
	shared := make([]string, 0, len(ids))
	for _, id := range common.UniqueStrings(ids) {
		if id != creatorID {
			shared = append(shared, id)
		}
	}

	ucs, err := repositories.NewCampaignRepository(tx).ActiveUserCampaigns(ctx, campaignID, shared)
	if err != nil {
		return nil, err
	}
	if len(ucs) != len(shared) {
		return nil, Validation("every shared volunteer must be an active member of the campaign")
	}
	return shared, nil
}

func (s *CreditService) assignEqual(ctx context.Context, tx *gorm.DB, contract *gormModels.Contract, shared []string) ([]gormModels.ContractCreditInfo, error) {
	portions := equalPortions(len(shared) + 1)

	rows := make([]gormModels.ContractCreditInfo, 0, len(shared)+1)
	rows = append(rows, gormModels.ContractCreditInfo{
		ContractID:     contract.ID,
		UserCampaignID: contract.CreatedByID,
		Portion:        portions[0],
	})
	for i, ucID := range shared {
		rows = append(rows, gormModels.ContractCreditInfo{
			ContractID:     contract.ID,
			UserCampaignID: ucID,
			Portion:        portions[i+1],
		})
	}

	if err := repositories.NewContractRepository(tx).ReplaceCredits(ctx, contract.ID, rows); err != nil {
		return nil, err
	}
	return rows, s.checkSum(ctx, tx, contract.ID)
}

// Reassign makes newCreatorID the creator of every listed contract. On
// editable contracts the previous creator's share moves with the role.
func (s *CreditService) Reassign(ctx context.Context, contractIDs []string, newCreatorID string) ([]gormModels.Contract, error) {
	ids := common.UniqueStrings(contractIDs)
	if len(ids) == 0 {
		return nil, Validation("no contracts to reassign")
	}
	sort.Strings(ids)

	var result []gormModels.Contract
	err := db.RunInTx(ctx, s.db, "reassign_contracts", func(tx *gorm.DB) error {
		newCreator, err := repositories.NewCampaignRepository(tx).GetUserCampaign(ctx, newCreatorID)
		if err != nil {
			return err
		}
		if newCreator == nil {
			return NotFound("volunteer")
		}

		contracts, err := s.lockAll(ctx, tx, ids)
		if err != nil {
			return err
		}
		for _, c := range contracts {
			if c.CampaignID != newCreator.CampaignID {
				return Validation("contract %s belongs to another campaign", c.ID)
			}
		}

		result = make([]gormModels.Contract, 0, len(contracts))
		for _, c := range contracts {
			if err := s.reassignTx(ctx, tx, c, newCreator.ID); err != nil {
				return err
			}
			result = append(result, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// lockAll locks the contracts in id order.
func (s *CreditService) lockAll(ctx context.Context, tx *gorm.DB, ids []string) ([]*gormModels.Contract, error) {
	repo := repositories.NewContractRepository(tx)
	contracts := make([]*gormModels.Contract, 0, len(ids))
	for _, id := range ids {
		c, err := repo.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, NotFound("contract " + id)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func (s *CreditService) reassignTx(ctx context.Context, tx *gorm.DB, contract *gormModels.Contract, newCreatorID string) error {
	if contract.CreatedByID == newCreatorID {
		return nil
	}

	if contract.CreditsEditable() {
		if err := s.transferShare(ctx, tx, contract.ID, contract.CreatedByID, newCreatorID); err != nil {
			return err
		}
	}

	err := tx.WithContext(ctx).Model(&gormModels.Contract{}).
		Where("id = ?", contract.ID).
		Update("created_by_id", newCreatorID).Error
	if err != nil {
		return fmt.Errorf("failed to reassign contract: %w", err)
	}
	contract.CreatedByID = newCreatorID

	return s.checkSum(ctx, tx, contract.ID)
}

// transferShare moves from's credit row to to, merging into an existing row.
func (s *CreditService) transferShare(ctx context.Context, tx *gorm.DB, contractID, from, to string) error {
	credits, err := repositories.NewContractRepository(tx).ListCredits(ctx, contractID)
	if err != nil {
		return err
	}

	var fromRow, toRow *gormModels.ContractCreditInfo
	for i := range credits {
		switch credits[i].UserCampaignID {
		case from:
			fromRow = &credits[i]
		case to:
			toRow = &credits[i]
		}
	}
	if fromRow == nil {
		return nil
	}

	q := tx.WithContext(ctx).Model(&gormModels.ContractCreditInfo{})
	if toRow == nil {
		return q.Where("id = ?", fromRow.ID).Update("user_campaign_id", to).Error
	}

	if err := q.Where("id = ?", toRow.ID).Update("portion", toRow.Portion.Add(fromRow.Portion)).Error; err != nil {
		return fmt.Errorf("failed to merge credit: %w", err)
	}
	return tx.WithContext(ctx).Where("id = ?", fromRow.ID).Delete(&gormModels.ContractCreditInfo{}).Error
}

// RedistributeOnRemoval drops the volunteer's share from every contract that
// is not finalized and rescales the remaining shares to sum to 1. Returns the
// number of contracts changed.
func (s *CreditService) RedistributeOnRemoval(ctx context.Context, ucID string) (int, error) {
	var changed int
	err := db.RunInTx(ctx, s.db, "redistribute_credits", func(tx *gorm.DB) error {
		var err error
		changed, err = s.redistributeTx(ctx, tx, ucID)
		return err
	})
	return changed, err
}

func (s *CreditService) redistributeTx(ctx context.Context, tx *gorm.DB, ucID string) (int, error) {
	repo := repositories.NewContractRepository(tx)

	contractIDs, err := repo.CreditedContractIDs(ctx, ucID)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, contractID := range contractIDs {
		// Status is read under the row lock, so an approval racing with the
		// removal either finished first or waits for this transaction.
		contract, err := repo.GetForUpdate(ctx, contractID)
		if err != nil {
			return changed, err
		}
		if contract == nil || contract.Finalized() {
			continue
		}

		credits, err := repo.ListCredits(ctx, contractID)
		if err != nil {
			return changed, err
		}

		var removed *gormModels.ContractCreditInfo
		remaining := make([]gormModels.ContractCreditInfo, 0, len(credits))
		remainingTotal := decimal.Zero
		for i := range credits {
			if credits[i].UserCampaignID == ucID {
				removed = &credits[i]
				continue
			}
			remaining = append(remaining, credits[i])
			remainingTotal = remainingTotal.Add(credits[i].Portion)
		}
		if removed == nil {
			continue
		}

		if err := tx.WithContext(ctx).Where("id = ?", removed.ID).Delete(&gormModels.ContractCreditInfo{}).Error; err != nil {
			return changed, fmt.Errorf("failed to remove credit: %w", err)
		}
		changed++

		if len(remaining) == 0 || remainingTotal.IsZero() {
			logging.Warn("Contract left without credited volunteers",
				"contract_id", contractID,
				"removed_user_campaign_id", ucID,
			)
			continue
		}

		for _, row := range remaining {
			portion := row.Portion.DivRound(remainingTotal, constants.PortionScale)
			err := tx.WithContext(ctx).Model(&gormModels.ContractCreditInfo{}).
				Where("id = ?", row.ID).
				Update("portion", portion).Error
			if err != nil {
				return changed, fmt.Errorf("failed to rescale credit: %w", err)
			}
		}

		if err := s.checkSum(ctx, tx, contractID); err != nil {
			return changed, err
		}
	}

	metrics.Get().CreditRedistributions.Add(float64(changed))
	return changed, nil
}

// checkSum asserts that a credited contract's portions sum to 1.
func (s *CreditService) checkSum(ctx context.Context, tx *gorm.DB, contractID string) error {
	credits, err := repositories.NewContractRepository(tx).ListCredits(ctx, contractID)
	if err != nil {
		return err
	}
	if len(credits) == 0 {
		return nil
	}

	sum := decimal.Zero
	for _, c := range credits {
		sum = sum.Add(c.Portion)
	}
	if sum.Sub(one).Abs().GreaterThan(creditTolerance) {
		return s.invariants.Check("credit_sum",
			fmt.Errorf("portions of contract %s sum to %s", contractID, sum.String()),
			"contract_id", contractID)
	}
	return nil
}
