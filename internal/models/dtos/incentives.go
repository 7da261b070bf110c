package dtos

import (
	"chamberhub/campaigns/internal/constants"

	"github.com/shopspring/decimal"
)

type CreateIncentiveRequest struct {
	CampaignID string                  `json:"campaign_id"`
	Name       string                  `json:"name"`
	Threshold  decimal.Decimal         `json:"threshold"`
	Value      decimal.Decimal         `json:"value"`
	Type       constants.IncentiveType `json:"type"`
}

type RevenueSnapshot struct {
	Cash  decimal.Decimal `json:"cash"`
	Trade decimal.Decimal `json:"trade"`
	Total decimal.Decimal `json:"total"`
}

type PayoutMetrics struct {
	TotalCash    decimal.Decimal `json:"total_cash"`
	TotalTrade   decimal.Decimal `json:"total_trade"`
	TotalOverall decimal.Decimal `json:"total_overall"`
	TotalPaid    decimal.Decimal `json:"total_paid"`
	TotalOwed    decimal.Decimal `json:"total_owed"`
}

type RewardPaidUpdate struct {
	RewardID string `json:"reward_id"`
	Paid     bool   `json:"paid"`
}

type SetPaidRequest struct {
	Updates []RewardPaidUpdate `json:"updates"`
}

type MarkPaidRequest struct {
	RewardIDs []string `json:"reward_ids"`
}

type PaidUpdateResult struct {
	Paid   int64 `json:"paid"`
	Unpaid int64 `json:"unpaid"`
}
