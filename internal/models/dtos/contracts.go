package dtos

import (
	"chamberhub/campaigns/internal/constants"
)

type CreateContractRequest struct {
	// CreatorID is only honoured for admins. Volunteers create as themselves.
	CreatorID   string                `json:"creator_id,omitempty"`
	MemberID    string                `json:"member_id"`
	PaymentType constants.PaymentType `json:"payment_type"`
	Note        string                `json:"note"`
	LevelIDs    []string              `json:"level_ids"`
	SharedWith  []string              `json:"shared_with"`
}

type AttachLevelRequest struct {
	LevelID string `json:"level_id"`
}

// SetCreditsRequest lists the volunteers sharing credit with the creator.
type SetCreditsRequest struct {
	UserCampaignIDs []string `json:"user_campaign_ids"`
}

type ReassignContractsRequest struct {
	ContractIDs  []string `json:"contract_ids"`
	NewCreatorID string   `json:"new_creator_id"`
}

type SendContractResponse struct {
	ContractID string `json:"contract_id"`
	SignToken  string `json:"sign_token"`
}

type SignContractRequest struct {
	Token     string `json:"token"`
	Signature string `json:"signature"`
}
