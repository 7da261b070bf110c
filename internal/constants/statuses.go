package constants

type (
	CampaignStatus string
	ContractStatus string
	PaymentType    string
	IncentiveType  string
)

const (
	CampaignCreated CampaignStatus = "created"
	CampaignOpen    CampaignStatus = "open" // renewal
	CampaignLive    CampaignStatus = "live"
	CampaignDone    CampaignStatus = "done"
)

const (
	ContractDraft    ContractStatus = "draft"
	ContractSent     ContractStatus = "sent"
	ContractApproved ContractStatus = "approved"
	ContractDeclined ContractStatus = "declined"
	ContractSigned   ContractStatus = "signed"
)

const (
	PaymentCash  PaymentType = "cash"
	PaymentTrade PaymentType = "trade"
)

const (
	IncentiveCash  IncentiveType = "cash"
	IncentiveTrip  IncentiveType = "trip"
	IncentiveTrade IncentiveType = "trade"
	IncentiveOther IncentiveType = "other"
)

// UnlimitedAmount marks a level with no inventory cap.
const UnlimitedAmount = -1

// PortionScale is the number of fractional digits kept on credit portions.
const PortionScale = 14

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignCreated, CampaignOpen, CampaignLive, CampaignDone:
		return true
	}
	return false
}

func (p PaymentType) Valid() bool {
	return p == PaymentCash || p == PaymentTrade
}

func (t IncentiveType) Valid() bool {
	switch t {
	case IncentiveCash, IncentiveTrip, IncentiveTrade, IncentiveOther:
		return true
	}
	return false
}
