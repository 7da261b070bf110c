package api

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/models/dtos"

	"github.com/go-chi/chi/v5"
)

// ListVolunteersHandler handles GET /api/v1/campaigns/{id}/volunteers
func ListVolunteersHandler(deps *Dependencies) http.HandlerFunc {
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

		volunteers, err := deps.Services.Volunteers.List(r.Context(), campaignID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Volunteers fetched", volunteers)
	}
}

// AddVolunteerHandler handles POST /api/v1/campaigns/{id}/volunteers
func AddVolunteerHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		var req dtos.AddVolunteerRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		uc, err := deps.Services.Volunteers.Add(r.Context(), campaignID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Volunteer added", uc, http.StatusCreated)
	}
}

// RemoveVolunteerHandler handles DELETE /api/v1/volunteers/{id}. The
// reassignment target comes from the body or the reassign_to query value.
func RemoveVolunteerHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		ucID := chi.URLParam(r, "id")
		req := dtos.RemoveVolunteerRequest{ReassignTo: r.URL.Query().Get("reassign_to")}
		if r.ContentLength > 0 && !decodeJSON(w, r, initTime, &req) {
			return
		}

		uc, err := deps.Services.Volunteers.Get(r.Context(), ucID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, uc.CampaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		redistributed, err := deps.Services.Volunteers.Remove(r.Context(), ucID, req.ReassignTo)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Volunteer removed", map[string]int{"contracts_redistributed": redistributed})
	}
}
