package api

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/go-chi/chi/v5"
)

// CreateContractHandler handles POST /api/v1/contracts
func CreateContractHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		var req dtos.CreateContractRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		creatorID := claims.UserCampaignID()
		if claims.Role() != constants.RoleVolunteer && req.CreatorID != "" {
			creatorID = req.CreatorID
		}
		if creatorID == "" {
			common.RespondError(w, initTime, nil, "creator_id is required", http.StatusUnprocessableEntity)
			return
		}

		creator, err := deps.Services.Volunteers.Get(r.Context(), creatorID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, creator.CampaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		contract, err := deps.Services.Contracts.Create(r.Context(), creatorID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNote(claims, contract)
		common.RespondSuccess(w, initTime, "Contract created", contract, http.StatusCreated)
	}
}

// GetContractHandler handles GET /api/v1/contracts/{id}
func GetContractHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		if err := authorizeContract(r.Context(), deps, claims, contractID, false); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		contract, err := deps.Services.Contracts.Get(r.Context(), contractID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNote(claims, contract)
		common.RespondSuccess(w, initTime, "Contract fetched", contract)
	}
}

// ListContractsHandler handles GET /api/v1/campaigns/{id}/contracts?status=
func ListContractsHandler(deps *Dependencies) http.HandlerFunc {
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

		status := constants.ContractStatus(r.URL.Query().Get("status"))
		contracts, err := deps.Services.Contracts.List(r.Context(), campaignID, status)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNotes(claims, contracts)
		common.RespondSuccess(w, initTime, "Contracts fetched", contracts)
	}
}

// AttachLevelHandler handles POST /api/v1/contracts/{id}/levels
func AttachLevelHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		var req dtos.AttachLevelRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeContract(r.Context(), deps, claims, contractID, true); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		contract, err := deps.Services.Contracts.AttachLevel(r.Context(), contractID, req.LevelID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNote(claims, contract)
		common.RespondSuccess(w, initTime, "Level attached", contract)
	}
}

// DetachInstanceHandler handles DELETE /api/v1/contracts/{id}/levels/{instanceID}
func DetachInstanceHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		if err := authorizeContract(r.Context(), deps, claims, contractID, true); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		contract, err := deps.Services.Contracts.DetachInstance(r.Context(), contractID, chi.URLParam(r, "instanceID"))
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNote(claims, contract)
		common.RespondSuccess(w, initTime, "Level removed", contract)
	}
}

// SetCreditsHandler handles PUT /api/v1/contracts/{id}/credits
func SetCreditsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		var req dtos.SetCreditsRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeContract(r.Context(), deps, claims, contractID, true); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		credits, err := deps.Services.Credits.SetCredits(r.Context(), contractID, req.UserCampaignIDs)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Credits updated", credits)
	}
}

// ReassignContractsHandler handles POST /api/v1/contracts/reassign
func ReassignContractsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		var req dtos.ReassignContractsRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		target, err := deps.Services.Volunteers.Get(r.Context(), req.NewCreatorID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		// The service checks every contract shares the target's campaign.
		if err := authorizeCampaign(r.Context(), deps, claims, target.CampaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		contracts, err := deps.Services.Credits.Reassign(r.Context(), req.ContractIDs, req.NewCreatorID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNotes(claims, contracts)
		common.RespondSuccess(w, initTime, "Contracts reassigned", contracts)
	}
}

// redactNote clears the note unless the caller created the contract.
func redactNote(claims auth.UserClaims, contract *gormModels.Contract) {
	if contract != nil && contract.CreatedByID != claims.UserCampaignID() {
		contract.Note = ""
	}
}

func redactNotes(claims auth.UserClaims, contracts []gormModels.Contract) {
	for i := range contracts {
		redactNote(claims, &contracts[i])
	}
}

// contractAction builds the handlers for POST /contracts/{id}/approve and
// /decline, which share their shape.
func contractAction(deps *Dependencies, message string, edit bool, action func(*Dependencies, *http.Request, string) (*gormModels.Contract, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		if err := authorizeContract(r.Context(), deps, claims, contractID, edit); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		contract, err := action(deps, r, contractID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		redactNote(claims, contract)
		common.RespondSuccess(w, initTime, message, contract)
	}
}

// ApproveContractHandler handles POST /api/v1/contracts/{id}/approve
func ApproveContractHandler(deps *Dependencies) http.HandlerFunc {
	return contractAction(deps, "Contract approved", false, func(d *Dependencies, r *http.Request, id string) (*gormModels.Contract, error) {
		return d.Services.Contracts.Approve(r.Context(), id)
	})
}

// DeclineContractHandler handles POST /api/v1/contracts/{id}/decline
func DeclineContractHandler(deps *Dependencies) http.HandlerFunc {
	return contractAction(deps, "Contract declined", false, func(d *Dependencies, r *http.Request, id string) (*gormModels.Contract, error) {
		return d.Services.Contracts.Decline(r.Context(), id)
	})
}

// SendContractHandler handles POST /api/v1/contracts/{id}/send
func SendContractHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		if err := authorizeContract(r.Context(), deps, claims, contractID, true); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		sent, err := deps.Services.Contracts.Send(r.Context(), contractID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Contract sent", sent)
	}
}

// DeleteContractHandler handles DELETE /api/v1/contracts/{id}
func DeleteContractHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		contractID := chi.URLParam(r, "id")
		if err := authorizeContract(r.Context(), deps, claims, contractID, true); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		if err := deps.Services.Contracts.Delete(r.Context(), contractID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Contract deleted", nil)
	}
}

// SignContractHandler handles POST /api/v1/public/contracts/sign. The sign
// link token is the only credential.
func SignContractHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()

		var req dtos.SignContractRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}

		contract, err := deps.Services.Contracts.Sign(r.Context(), req.Token, req.Signature)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Contract signed", map[string]interface{}{
			"contract_id": contract.ID,
			"status":      contract.Status,
			"signed_at":   contract.SignedAt,
		})
	}
}
