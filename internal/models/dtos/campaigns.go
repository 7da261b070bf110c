package dtos

import (
	"time"

	"chamberhub/campaigns/internal/constants"
)

type CreateCampaignRequest struct {
	Name      string     `json:"name"`
	Year      int        `json:"year"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

type CampaignStatusRequest struct {
	Status constants.CampaignStatus `json:"status"`
}

type AddVolunteerRequest struct {
	Email string         `json:"email"`
	Name  string         `json:"name"`
	Role  constants.Role `json:"role"`
}

// RemoveVolunteerRequest names who inherits the volunteer's editable
// contracts, if any remain.
type RemoveVolunteerRequest struct {
	ReassignTo string `json:"reassign_to,omitempty"`
}

type CreateMemberRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
