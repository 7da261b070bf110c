package gorm

import (
	"time"

	"chamberhub/campaigns/internal/constants"

	"github.com/shopspring/decimal"
)

type Contract struct {
	Base
	CampaignID  string                   `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	CreatedByID string                   `gorm:"column:created_by_id;type:uuid;index;not null" json:"created_by_id"`
	MemberID    string                   `gorm:"column:member_id;type:uuid;index;not null" json:"member_id"`
	Status      constants.ContractStatus `gorm:"column:status;type:varchar(16);not null;default:'draft'" json:"status"`
	PaymentType constants.PaymentType    `gorm:"column:payment_type;type:varchar(16);not null;default:'cash'" json:"payment_type"`
	Note        string                   `gorm:"column:note;type:text" json:"note,omitempty"`
	Signature   *string                  `gorm:"column:signature;type:text" json:"signature,omitempty"`
	SignedAt    *time.Time               `gorm:"column:signed_at" json:"signed_at,omitempty"`
	ApprovedAt  *time.Time               `gorm:"column:approved_at" json:"approved_at,omitempty"`
	DeclinedAt  *time.Time               `gorm:"column:declined_at" json:"declined_at,omitempty"`
	IsActive    bool                     `gorm:"column:is_active;not null;default:true" json:"is_active"`
	DeletedAt   *time.Time               `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	LevelInstances []LevelInstance      `gorm:"foreignKey:ContractID" json:"level_instances,omitempty"`
	Credits        []ContractCreditInfo `gorm:"foreignKey:ContractID" json:"credits,omitempty"`
}

func (Contract) TableName() string {
	return "contracts"
}

// TotalCost sums the non-deleted, non-declined instances. LevelInstances
// must be loaded.
func (c Contract) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, li := range c.LevelInstances {
		if li.Active() {
			total = total.Add(li.Cost)
		}
	}
	return total
}

// Finalized contracts keep their credit rows untouched. A contract that was
// approved and later declined still counts as finalized.
func (c Contract) Finalized() bool {
	return c.Status == constants.ContractApproved || c.Status == constants.ContractSigned || c.ApprovedAt != nil
}

// CreditsEditable reports whether the credit set may still be replaced.
func (c Contract) CreditsEditable() bool {
	return c.Status == constants.ContractDraft || c.Status == constants.ContractSent
}

// ContractCreditInfo is one volunteer's share of a contract's revenue.
type ContractCreditInfo struct {
	Base
	ContractID     string          `gorm:"column:contract_id;type:uuid;not null;uniqueIndex:idx_credit_contract_uc" json:"contract_id"`
	UserCampaignID string          `gorm:"column:user_campaign_id;type:uuid;not null;uniqueIndex:idx_credit_contract_uc;index" json:"user_campaign_id"`
	Portion        decimal.Decimal `gorm:"column:portion;type:decimal(20,14);not null" json:"portion"`
}

func (ContractCreditInfo) TableName() string {
	return "contract_credit_infos"
}

// Invoice is created once per contract when it is approved or signed.
type Invoice struct {
	Base
	ContractID string          `gorm:"column:contract_id;type:uuid;uniqueIndex;not null" json:"contract_id"`
	CampaignID string          `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(14,2);not null" json:"amount"`
}

func (Invoice) TableName() string {
	return "invoices"
}
