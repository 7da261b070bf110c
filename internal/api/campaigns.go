package api

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// CreateCampaignHandler handles POST /api/v1/campaigns
// The campaign is created in the caller's chamber.
func CreateCampaignHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}
		if claims.ChamberID() == "" {
			common.RespondError(w, initTime, nil, "Token is not bound to a chamber", http.StatusUnprocessableEntity)
			return
		}

		var req dtos.CreateCampaignRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		campaign, err := deps.Services.Campaigns.Create(r.Context(), claims.ChamberID(), req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Campaign created", campaign, http.StatusCreated)
	}
}

// ListCampaignsHandler handles GET /api/v1/campaigns
func ListCampaignsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaigns, err := deps.Services.Campaigns.List(r.Context(), claims.ChamberID())
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Campaigns fetched", campaigns)
	}
}

// GetCampaignHandler handles GET /api/v1/campaigns/{id}
func GetCampaignHandler(deps *Dependencies) http.HandlerFunc {
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

		campaign, err := deps.Services.Campaigns.Get(r.Context(), campaignID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Campaign fetched", campaign)
	}
}

// CampaignStatusHandler handles PUT /api/v1/campaigns/{id}/status
func CampaignStatusHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		var req dtos.CampaignStatusRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		campaign, err := deps.Services.Campaigns.Transition(r.Context(), campaignID, req.Status)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Campaign status updated", campaign)
	}
}

// DeleteCampaignHandler handles DELETE /api/v1/campaigns/{id}
func DeleteCampaignHandler(deps *Dependencies) http.HandlerFunc {
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

		if err := deps.Services.Campaigns.Delete(r.Context(), campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Campaign deleted", nil)
	}
}

// CreateMemberHandler handles POST /api/v1/members
func CreateMemberHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}
		if claims.ChamberID() == "" {
			common.RespondError(w, initTime, nil, "Token is not bound to a chamber", http.StatusUnprocessableEntity)
			return
		}

		var req dtos.CreateMemberRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		member, err := deps.Services.Campaigns.CreateMember(r.Context(), claims.ChamberID(), req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Member created", member, http.StatusCreated)
	}
}
