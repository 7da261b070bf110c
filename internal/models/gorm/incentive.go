package gorm

import (
	"time"

	"chamberhub/campaigns/internal/constants"

	"github.com/shopspring/decimal"
)

type Incentive struct {
	Base
	Orderable
	CampaignID string                  `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	Name       string                  `gorm:"column:name;not null" json:"name"`
	Threshold  decimal.Decimal         `gorm:"column:threshold;type:decimal(14,2);not null" json:"threshold"`
	Value      decimal.Decimal         `gorm:"column:value;type:decimal(14,2);not null" json:"value"`
	Type       constants.IncentiveType `gorm:"column:type;type:varchar(16);not null" json:"type"`
}

func (Incentive) TableName() string {
	return "incentives"
}

// Reward is an incentive granted to a volunteer. PaidAt nil means owed.
type Reward struct {
	Base
	IncentiveID    string     `gorm:"column:incentive_id;type:uuid;not null;uniqueIndex:idx_reward_incentive_uc" json:"incentive_id"`
	UserCampaignID string     `gorm:"column:user_campaign_id;type:uuid;not null;uniqueIndex:idx_reward_incentive_uc;index" json:"user_campaign_id"`
	PaidAt         *time.Time `gorm:"column:paid_at" json:"paid_at,omitempty"`

	Incentive Incentive `gorm:"foreignKey:IncentiveID" json:"incentive,omitempty"`
}

func (Reward) TableName() string {
	return "rewards"
}
