package api

import (
	"context"
	"net/http"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/services"
)

// requireClaims returns the caller or answers 401.
func requireClaims(w http.ResponseWriter, r *http.Request, initTime time.Time) auth.UserClaims {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		common.RespondError(w, initTime, nil, "Unauthorized: missing claims", http.StatusUnauthorized)
	}
	return claims
}

// authorizeCampaign checks that campaignID belongs to the caller's chamber
// and, for campaign-bound tokens, is the campaign the token was issued for.
func authorizeCampaign(ctx context.Context, deps *Dependencies, claims auth.UserClaims, campaignID string) error {
	if claims.Role() == constants.RoleSuperAdmin {
		return nil
	}

	campaign, err := deps.Services.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return err
	}
	if campaign.ChamberID != claims.ChamberID() {
		return services.NotFound("campaign")
	}
	if claims.CampaignID() != "" && claims.CampaignID() != campaignID {
		return services.Forbidden("token is scoped to another campaign")
	}
	return nil
}

// authorizeItem resolves the campaign of a catalogue item and authorizes it.
func authorizeItem(ctx context.Context, deps *Dependencies, claims auth.UserClaims, c services.Collection, id string) error {
	campaignID, err := deps.Services.Catalog.CampaignOf(ctx, c, id)
	if err != nil {
		return err
	}
	return authorizeCampaign(ctx, deps, claims, campaignID)
}

// authorizeContract resolves the contract's campaign. With edit set,
// volunteers are limited to contracts they created.
func authorizeContract(ctx context.Context, deps *Dependencies, claims auth.UserClaims, contractID string, edit bool) error {
	contract, err := deps.Services.Contracts.Get(ctx, contractID)
	if err != nil {
		return err
	}
	if edit && claims.Role() == constants.RoleVolunteer && contract.CreatedByID != claims.UserCampaignID() {
		return services.Forbidden("only the contract's creator can change it")
	}
	return authorizeCampaign(ctx, deps, claims, contract.CampaignID)
}

// authorizeVolunteer lets volunteers act on their own membership only.
func authorizeVolunteer(ctx context.Context, deps *Dependencies, claims auth.UserClaims, ucID string) error {
	if claims.Role() == constants.RoleVolunteer && claims.UserCampaignID() != ucID {
		return services.Forbidden("volunteers can only view their own figures")
	}
	uc, err := deps.Services.Volunteers.Get(ctx, ucID)
	if err != nil {
		return err
	}
	return authorizeCampaign(ctx, deps, claims, uc.CampaignID)
}
