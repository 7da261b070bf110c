package constants

type (
	APIStatus   string
	CachePrefix string
	EventType   string
)

const (
	APIStatusOk    APIStatus = "ok"
	APIStatusError APIStatus = "error"

	CachePrefixInventoryStats CachePrefix = "INV_STATS_"
	CachePrefixCategoryStats  CachePrefix = "CAT_STATS_"
	CachePrefixUsedSignToken  CachePrefix = "used_sign_token:"
)

// Notification events published after a successful commit.
const (
	EventContractSent     EventType = "contract.sent"
	EventContractApproved EventType = "contract.approved"
	EventContractDeclined EventType = "contract.declined"
	EventContractSigned   EventType = "contract.signed"
	EventRewardEarned     EventType = "reward.earned"
	EventVolunteerRemoved EventType = "volunteer.removed"
	EventCampaignStatus   EventType = "campaign.status"
)

const (
	EventStream        = "campaign:events"
	EventConsumerGroup = "notification-workers"
)
