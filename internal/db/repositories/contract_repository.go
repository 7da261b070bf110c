package repositories

import (
	"context"
	"fmt"

	"chamberhub/campaigns/internal/constants"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ContractRepository struct {
	db *gorm.DB
}

func NewContractRepository(db *gorm.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// GetForUpdate locks the contract row. Deleted contracts are reported as nil.
func (r *ContractRepository) GetForUpdate(ctx context.Context, id string) (*gormModels.Contract, error) {
	var contract gormModels.Contract
	err := forUpdate(r.db).WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		Take(&contract).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock contract: %w", err)
	}
	return &contract, nil
}

// GetWithDetails loads the contract with its instances and credit rows.
func (r *ContractRepository) GetWithDetails(ctx context.Context, id string) (*gormModels.Contract, error) {
	var contract gormModels.Contract
	err := r.db.WithContext(ctx).
		Preload("LevelInstances", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Preload("Credits", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at")
		}).
		Where("id = ? AND is_active = ?", id, true).
		Take(&contract).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch contract: %w", err)
	}
	return &contract, nil
}

func (r *ContractRepository) ListByCampaign(ctx context.Context, campaignID string, status constants.ContractStatus) ([]gormModels.Contract, error) {
	var contracts []gormModels.Contract
	q := r.db.WithContext(ctx).
		Preload("LevelInstances").
		Preload("Credits").
		Where("campaign_id = ? AND is_active = ?", campaignID, true)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("created_at DESC").Find(&contracts).Error; err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	return contracts, nil
}

// ListCredits returns the credit rows of one contract.
func (r *ContractRepository) ListCredits(ctx context.Context, contractID string) ([]gormModels.ContractCreditInfo, error) {
	var credits []gormModels.ContractCreditInfo
	err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at").
		Find(&credits).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credits: %w", err)
	}
	return credits, nil
}

// ReplaceCredits deletes every credit row of the contract and inserts rows.
func (r *ContractRepository) ReplaceCredits(ctx context.Context, contractID string, rows []gormModels.ContractCreditInfo) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("contract_id = ?", contractID).Delete(&gormModels.ContractCreditInfo{}).Error; err != nil {
		return fmt.Errorf("failed to clear credits: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert credits: %w", err)
	}
	return nil
}

// CreditedContractIDs returns the ids of contracts where ucID holds a row.
func (r *ContractRepository) CreditedContractIDs(ctx context.Context, ucID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&gormModels.ContractCreditInfo{}).
		Where("user_campaign_id = ?", ucID).
		Order("contract_id").
		Pluck("contract_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list credited contracts: %w", err)
	}
	return ids, nil
}

// EditableCreatedBy returns the ids of active draft or sent contracts
// authored by ucID.
func (r *ContractRepository) EditableCreatedBy(ctx context.Context, ucID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&gormModels.Contract{}).
		Where("created_by_id = ? AND is_active = ? AND status IN ?", ucID, true,
			[]constants.ContractStatus{constants.ContractDraft, constants.ContractSent}).
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list editable contracts: %w", err)
	}
	return ids, nil
}

// ActiveInstances returns the instances of a contract that still count
// toward its total.
func (r *ContractRepository) ActiveInstances(ctx context.Context, contractID string) ([]gormModels.LevelInstance, error) {
	var instances []gormModels.LevelInstance
	err := r.db.WithContext(ctx).
		Preload("Level").
		Where("contract_id = ? AND declined_at IS NULL AND deleted_at IS NULL", contractID).
		Order("created_at").
		Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contract instances: %w", err)
	}
	return instances, nil
}

// FinalizedWithInstances loads the approved or signed contracts among ids.
func (r *ContractRepository) FinalizedWithInstances(ctx context.Context, ids []string) ([]gormModels.Contract, error) {
	var contracts []gormModels.Contract
	if len(ids) == 0 {
		return contracts, nil
	}
	err := r.db.WithContext(ctx).
		Preload("LevelInstances").
		Where("id IN ? AND is_active = ? AND status IN ?", ids, true,
			[]constants.ContractStatus{constants.ContractApproved, constants.ContractSigned}).
		Find(&contracts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load finalized contracts: %w", err)
	}
	return contracts, nil
}

// CreateInvoice records the invoice for a contract that just became final.
// A second call for the same contract is a no-op.
func (r *ContractRepository) CreateInvoice(ctx context.Context, contract *gormModels.Contract, amount decimal.Decimal) (*gormModels.Invoice, error) {
	db := r.db.WithContext(ctx)

	var existing gormModels.Invoice
	err := db.Where("contract_id = ?", contract.ID).Take(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !notFound(err) {
		return nil, fmt.Errorf("failed to check invoice: %w", err)
	}

	invoice := gormModels.Invoice{
		ContractID: contract.ID,
		CampaignID: contract.CampaignID,
		Amount:     amount,
	}
	if err := db.Create(&invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return &invoice, nil
}
