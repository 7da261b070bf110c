package gorm

import (
	"time"

	"chamberhub/campaigns/internal/constants"
)

type Chamber struct {
	Base
	Name     string `gorm:"column:name;not null" json:"name"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// TableName specifies the table name for GORM
func (Chamber) TableName() string {
	return "chambers"
}

type User struct {
	Base
	Email    string `gorm:"column:email;uniqueIndex;not null" json:"email"`
	Name     string `gorm:"column:name" json:"name"`
	IsActive bool   `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}

// Campaign is one year's fundraising drive for a chamber. Rows are only ever
// soft-deleted.
type Campaign struct {
	Base
	ChamberID string                   `gorm:"column:chamber_id;type:uuid;index;not null" json:"chamber_id"`
	Name      string                   `gorm:"column:name;not null" json:"name"`
	Year      int                      `gorm:"column:year;not null" json:"year"`
	Status    constants.CampaignStatus `gorm:"column:status;type:varchar(16);not null;default:'created'" json:"status"`
	StartDate *time.Time               `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate   *time.Time               `gorm:"column:end_date" json:"end_date,omitempty"`
	IsActive  bool                     `gorm:"column:is_active;not null;default:true" json:"is_active"`
	DeletedAt *time.Time               `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// UserCampaign is a volunteer's membership and role in one campaign.
type UserCampaign struct {
	Base
	UserID     string         `gorm:"column:user_id;type:uuid;index;not null" json:"user_id"`
	CampaignID string         `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	Role       constants.Role `gorm:"column:role;type:varchar(32);not null" json:"role"`
	IsActive   bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	DeletedAt  *time.Time     `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (UserCampaign) TableName() string {
	return "user_campaigns"
}

// Member is a chamber member business that contracts are sold to.
type Member struct {
	Base
	ChamberID string `gorm:"column:chamber_id;type:uuid;index;not null" json:"chamber_id"`
	Name      string `gorm:"column:name;not null" json:"name"`
	Email     string `gorm:"column:email" json:"email"`
}

func (Member) TableName() string {
	return "members"
}

// ApiKey is an integration credential. The id itself is the secret sent in
// the X-API-Key header.
type ApiKey struct {
	Base
	ChamberID string `gorm:"column:chamber_id;type:uuid;index;not null" json:"chamber_id"`
	Status    bool   `gorm:"column:status;not null;default:true" json:"status"`
}

func (ApiKey) TableName() string {
	return "api_keys"
}
