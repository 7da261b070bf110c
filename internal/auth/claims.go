package auth

import (
	"chamberhub/campaigns/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

// UserClaims is what handlers know about the caller. Bearer tokens and API
// keys both resolve to it.
type UserClaims interface {
	UserID() string
	Role() constants.Role
	ChamberID() string
	CampaignID() string
	UserCampaignID() string
	Source() string
	Can(capability constants.Capability) bool
}

// JWTClaims are issued by the identity service for a user acting inside one
// campaign.
type JWTClaims struct {
	UserUUID         string         `json:"uid"`
	ChamberUUID      string         `json:"chamber_id"`
	CampaignUUID     string         `json:"campaign_id,omitempty"`
	UserCampaignUUID string         `json:"user_campaign_id,omitempty"`
	RoleValue        constants.Role `json:"role"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) UserID() string         { return c.UserUUID }
func (c *JWTClaims) Role() constants.Role   { return c.RoleValue }
func (c *JWTClaims) ChamberID() string      { return c.ChamberUUID }
func (c *JWTClaims) CampaignID() string     { return c.CampaignUUID }
func (c *JWTClaims) UserCampaignID() string { return c.UserCampaignUUID }
func (c *JWTClaims) Source() string         { return "JWT" }
func (c *JWTClaims) Can(capability constants.Capability) bool {
	return constants.Can(c.RoleValue, capability)
}

// APIKeyClaims identify a chamber integration. Keys act as the chamber's
// admin but are never tied to a campaign membership.
type APIKeyClaims struct {
	KeyID       string
	ChamberUUID string
}

func (c *APIKeyClaims) UserID() string         { return "" }
func (c *APIKeyClaims) Role() constants.Role   { return constants.RoleChamberAdmin }
func (c *APIKeyClaims) ChamberID() string      { return c.ChamberUUID }
func (c *APIKeyClaims) CampaignID() string     { return "" }
func (c *APIKeyClaims) UserCampaignID() string { return "" }
func (c *APIKeyClaims) Source() string         { return "API_KEY" }
func (c *APIKeyClaims) Can(capability constants.Capability) bool {
	return constants.Can(constants.RoleChamberAdmin, capability)
}
