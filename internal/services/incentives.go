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
	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IsAchievedBy reports whether revenue meets the incentive's threshold.
// Trip and other incentives are granted by hand and never auto-achieved.
func IsAchievedBy(incentive gormModels.Incentive, revenue dtos.RevenueSnapshot) bool {
	switch incentive.Type {
	case constants.IncentiveCash:
		return revenue.Cash.GreaterThanOrEqual(incentive.Threshold)
	case constants.IncentiveTrade:
		return revenue.Trade.GreaterThanOrEqual(incentive.Threshold)
	default:
		return false
	}
}

type IncentiveService struct {
	db     *gorm.DB
	orders *OrderManager
	now    func() time.Time
}

func NewIncentiveService(db *gorm.DB, orders *OrderManager) *IncentiveService {
	return &IncentiveService{db: db, orders: orders, now: time.Now}
}

func (s *IncentiveService) Create(ctx context.Context, campaignID string, req dtos.CreateIncentiveRequest) (*gormModels.Incentive, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, Validation("incentive name is required")
	}
	if req.Threshold.IsNegative() || req.Value.IsNegative() {
		return nil, Validation("threshold and value must not be negative")
	}
	if !req.Type.Valid() {
		return nil, Validation("unknown incentive type %q", req.Type)
	}

	incentive := gormModels.Incentive{
		CampaignID: campaignID,
		Name:       name,
		Threshold:  req.Threshold.Round(2),
		Value:      req.Value.Round(2),
		Type:       req.Type,
	}
	incentive.IsActive = true

	err := db.RunInTx(ctx, s.db, "create_incentive", func(tx *gorm.DB) error {
		pos, err := s.orders.Append(ctx, tx, Incentives, campaignID)
		if err != nil {
			return err
		}
		incentive.SortOrder = pos
		return tx.WithContext(ctx).Create(&incentive).Error
	})
	if err != nil {
		return nil, err
	}
	return &incentive, nil
}

func (s *IncentiveService) List(ctx context.Context, campaignID string) ([]gormModels.Incentive, error) {
	return repositories.NewIncentiveRepository(s.db).ListActive(ctx, campaignID)
}

// Revenue returns the volunteer's attributed revenue.
func (s *IncentiveService) Revenue(ctx context.Context, ucID string) (dtos.RevenueSnapshot, error) {
	return s.revenueTx(ctx, s.db, ucID)
}

// revenueTx sums total cost times portion over every approved or signed
// contract the volunteer is credited on, split by payment type.
func (s *IncentiveService) revenueTx(ctx context.Context, tx *gorm.DB, ucID string) (dtos.RevenueSnapshot, error) {
	snapshot := dtos.RevenueSnapshot{Cash: decimal.Zero, Trade: decimal.Zero, Total: decimal.Zero}

	var credits []gormModels.ContractCreditInfo
	if err := tx.WithContext(ctx).Where("user_campaign_id = ?", ucID).Find(&credits).Error; err != nil {
		return snapshot, fmt.Errorf("failed to load credits: %w", err)
	}
	if len(credits) == 0 {
		return snapshot, nil
	}

	portions := make(map[string]decimal.Decimal, len(credits))
	ids := make([]string, 0, len(credits))
	for _, c := range credits {
		portions[c.ContractID] = c.Portion
		ids = append(ids, c.ContractID)
	}

	contracts, err := repositories.NewContractRepository(tx).FinalizedWithInstances(ctx, ids)
	if err != nil {
		return snapshot, err
	}

	for _, contract := range contracts {
		share := contract.TotalCost().Mul(portions[contract.ID])
		if contract.PaymentType == constants.PaymentTrade {
			snapshot.Trade = snapshot.Trade.Add(share)
		} else {
			snapshot.Cash = snapshot.Cash.Add(share)
		}
	}

	snapshot.Cash = snapshot.Cash.Round(2)
	snapshot.Trade = snapshot.Trade.Round(2)
	snapshot.Total = snapshot.Cash.Add(snapshot.Trade)
	return snapshot, nil
}

// EvaluateRewards grants every newly achieved incentive of the volunteer's
// campaign and returns the rewards created.
func (s *IncentiveService) EvaluateRewards(ctx context.Context, ucID string) ([]gormModels.Reward, error) {
	var created []gormModels.Reward
	err := db.RunInTx(ctx, s.db, "evaluate_rewards", func(tx *gorm.DB) error {
		var err error
		created, err = s.evaluateRewardsTx(ctx, tx, ucID)
		return err
	})
	return created, err
}

func (s *IncentiveService) evaluateRewardsTx(ctx context.Context, tx *gorm.DB, ucID string) ([]gormModels.Reward, error) {
	uc, err := repositories.NewCampaignRepository(tx).GetUserCampaign(ctx, ucID)
	if err != nil {
		return nil, err
	}
	if uc == nil {
		return nil, nil
	}

	incentives, err := repositories.NewIncentiveRepository(tx).ListActive(ctx, uc.CampaignID)
	if err != nil || len(incentives) == 0 {
		return nil, err
	}

	revenue, err := s.revenueTx(ctx, tx, ucID)
	if err != nil {
		return nil, err
	}

	var granted []string
	err = tx.WithContext(ctx).Model(&gormModels.Reward{}).
		Where("user_campaign_id = ?", ucID).
		Pluck("incentive_id", &granted).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load rewards: %w", err)
	}
	has := make(map[string]bool, len(granted))
	for _, id := range granted {
		has[id] = true
	}

	var created []gormModels.Reward
	for _, incentive := range incentives {
		if has[incentive.ID] || !IsAchievedBy(incentive, revenue) {
			continue
		}
		reward := gormModels.Reward{IncentiveID: incentive.ID, UserCampaignID: ucID}
		// A concurrent approval for the same volunteer may have granted it.
		res := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&reward)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to create reward: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		reward.Incentive = incentive
		created = append(created, reward)
	}

	metrics.Get().RewardsCreatedTotal.Add(float64(len(created)))
	return created, nil
}

// evaluateForContract runs reward evaluation for every volunteer credited on
// the contract.
func (s *IncentiveService) evaluateForContract(ctx context.Context, tx *gorm.DB, contractID string) ([]gormModels.Reward, error) {
	credits, err := repositories.NewContractRepository(tx).ListCredits(ctx, contractID)
	if err != nil {
		return nil, err
	}

	var all []gormModels.Reward
	for _, c := range credits {
		rewards, err := s.evaluateRewardsTx(ctx, tx, c.UserCampaignID)
		if err != nil {
			return nil, err
		}
		all = append(all, rewards...)
	}
	return all, nil
}

func (s *IncentiveService) Rewards(ctx context.Context, ucID string) ([]gormModels.Reward, error) {
	return repositories.NewIncentiveRepository(s.db).RewardsFor(ctx, ucID)
}

// PayoutMetrics aggregates the volunteer's reward values by incentive type
// and by paid state.
func (s *IncentiveService) PayoutMetrics(ctx context.Context, ucID string) (*dtos.PayoutMetrics, error) {
	rewards, err := repositories.NewIncentiveRepository(s.db).RewardsFor(ctx, ucID)
	if err != nil {
		return nil, err
	}

	m := &dtos.PayoutMetrics{
		TotalCash:    decimal.Zero,
		TotalTrade:   decimal.Zero,
		TotalOverall: decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalOwed:    decimal.Zero,
	}
	for _, r := range rewards {
		value := r.Incentive.Value
		switch r.Incentive.Type {
		case constants.IncentiveCash:
			m.TotalCash = m.TotalCash.Add(value)
		case constants.IncentiveTrade:
			m.TotalTrade = m.TotalTrade.Add(value)
		}
		m.TotalOverall = m.TotalOverall.Add(value)
		if r.PaidAt != nil {
			m.TotalPaid = m.TotalPaid.Add(value)
		} else {
			m.TotalOwed = m.TotalOwed.Add(value)
		}
	}
	return m, nil
}

// SetPaid partitions the updates into paid and unpaid ids and applies both
// in one transaction. Rewards outside the campaign are ignored.
func (s *IncentiveService) SetPaid(ctx context.Context, campaignID string, updates []dtos.RewardPaidUpdate) (*dtos.PaidUpdateResult, error) {
	var paidIDs, unpaidIDs []string
	for _, u := range updates {
		if u.Paid {
			paidIDs = append(paidIDs, u.RewardID)
		} else {
			unpaidIDs = append(unpaidIDs, u.RewardID)
		}
	}

	result := &dtos.PaidUpdateResult{}
	err := db.RunInTx(ctx, s.db, "set_rewards_paid", func(tx *gorm.DB) error {
		var err error
		if result.Paid, err = s.setPaidTx(ctx, tx, campaignID, paidIDs, true); err != nil {
			return err
		}
		result.Unpaid, err = s.setPaidTx(ctx, tx, campaignID, unpaidIDs, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *IncentiveService) MarkPaid(ctx context.Context, campaignID string, rewardIDs []string) (int64, error) {
	var n int64
	err := db.RunInTx(ctx, s.db, "mark_rewards_paid", func(tx *gorm.DB) error {
		var err error
		n, err = s.setPaidTx(ctx, tx, campaignID, rewardIDs, true)
		return err
	})
	return n, err
}

func (s *IncentiveService) MarkUnpaid(ctx context.Context, campaignID string, rewardIDs []string) (int64, error) {
	var n int64
	err := db.RunInTx(ctx, s.db, "mark_rewards_unpaid", func(tx *gorm.DB) error {
		var err error
		n, err = s.setPaidTx(ctx, tx, campaignID, rewardIDs, false)
		return err
	})
	return n, err
}

func (s *IncentiveService) setPaidTx(ctx context.Context, tx *gorm.DB, campaignID string, rewardIDs []string, paid bool) (int64, error) {
	ids := common.UniqueStrings(rewardIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	campaignIncentives := tx.Session(&gorm.Session{NewDB: true}).
		Model(&gormModels.Incentive{}).
		Select("id").
		Where("campaign_id = ?", campaignID)

	var paidAt interface{}
	if paid {
		paidAt = s.now()
	}

	res := tx.WithContext(ctx).Model(&gormModels.Reward{}).
		Where("id IN ? AND incentive_id IN (?)", ids, campaignIncentives).
		Update("paid_at", paidAt)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update rewards: %w", res.Error)
	}
	return res.RowsAffected, nil
}
