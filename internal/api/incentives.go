package api

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// CreateIncentiveHandler handles POST /api/v1/incentives
func CreateIncentiveHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		var req dtos.CreateIncentiveRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, req.CampaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		incentive, err := deps.Services.Incentives.Create(r.Context(), req.CampaignID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Incentive created", incentive, http.StatusCreated)
	}
}

// ListIncentivesHandler handles GET /api/v1/campaigns/{id}/incentives
func ListIncentivesHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		incentives, err := deps.Services.Incentives.List(r.Context(), campaignID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Incentives fetched", incentives)
	}
}

// PayoutMetricsHandler handles GET /api/v1/volunteers/{id}/payouts
func PayoutMetricsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		ucID := chi.URLParam(r, "id")
		if err := authorizeVolunteer(r.Context(), deps, claims, ucID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		metrics, err := deps.Services.Incentives.PayoutMetrics(r.Context(), ucID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Payout metrics fetched", metrics)
	}
}

// VolunteerRewardsHandler handles GET /api/v1/volunteers/{id}/rewards
func VolunteerRewardsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		ucID := chi.URLParam(r, "id")
		if err := authorizeVolunteer(r.Context(), deps, claims, ucID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		rewards, err := deps.Services.Incentives.Rewards(r.Context(), ucID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Rewards fetched", rewards)
	}
}

// EvaluateRewardsHandler handles POST /api/v1/volunteers/{id}/rewards/evaluate
func EvaluateRewardsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		ucID := chi.URLParam(r, "id")
		if err := authorizeVolunteer(r.Context(), deps, claims, ucID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		created, err := deps.Services.Incentives.EvaluateRewards(r.Context(), ucID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Rewards evaluated", created)
	}
}

// SetRewardsPaidHandler handles POST /api/v1/campaigns/{id}/rewards/paid
func SetRewardsPaidHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		var req dtos.SetPaidRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		result, err := deps.Services.Incentives.SetPaid(r.Context(), campaignID, req.Updates)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Rewards updated", result)
	}
}

// MarkRewardsHandler handles POST /api/v1/campaigns/{id}/rewards/mark-paid
// and /mark-unpaid.
func MarkRewardsHandler(deps *Dependencies, paid bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		var req dtos.MarkPaidRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		mark := deps.Services.Incentives.MarkUnpaid
		if paid {
			mark = deps.Services.Incentives.MarkPaid
		}
		n, err := mark(r.Context(), campaignID, req.RewardIDs)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Rewards updated", map[string]int64{"updated": n})
	}
}
