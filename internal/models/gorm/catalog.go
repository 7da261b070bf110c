package gorm

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCategory struct {
	Base
	Orderable
	CampaignID  string `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	Name        string `gorm:"column:name;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	Products []Product `gorm:"foreignKey:CategoryID" json:"products,omitempty"`
}

func (ProductCategory) TableName() string {
	return "product_categories"
}

type Product struct {
	Base
	Orderable
	CampaignID  string `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	CategoryID  string `gorm:"column:category_id;type:uuid;index;not null" json:"category_id"`
	Name        string `gorm:"column:name;not null" json:"name"`
	Description string `gorm:"column:description;type:text" json:"description"`

	Levels []Level `gorm:"foreignKey:ProductID" json:"levels,omitempty"`
}

func (Product) TableName() string {
	return "products"
}

// Level is a sponsorship tier. Amount -1 means unlimited inventory.
type Level struct {
	Base
	Orderable
	CampaignID  string          `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	ProductID   string          `gorm:"column:product_id;type:uuid;index;not null" json:"product_id"`
	Name        string          `gorm:"column:name;not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	Benefits    string          `gorm:"column:benefits;type:text" json:"benefits"`
	Cost        decimal.Decimal `gorm:"column:cost;type:decimal(14,2);not null" json:"cost"`
	Amount      int             `gorm:"column:amount;not null" json:"amount"`
}

func (Level) TableName() string {
	return "levels"
}

func (l Level) Unlimited() bool {
	return l.Amount < 0
}

// LevelInstance is one reserved or purchased unit of a Level. Instances
// without a contract are the level's available inventory.
type LevelInstance struct {
	Base
	CampaignID string          `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	LevelID    string          `gorm:"column:level_id;type:uuid;index;not null" json:"level_id"`
	ContractID *string         `gorm:"column:contract_id;type:uuid;index" json:"contract_id,omitempty"`
	Cost       decimal.Decimal `gorm:"column:cost;type:decimal(14,2);not null" json:"cost"`
	DeclinedAt *time.Time      `gorm:"column:declined_at" json:"declined_at,omitempty"`
	DeletedAt  *time.Time      `gorm:"column:deleted_at" json:"deleted_at,omitempty"`

	Level *Level `gorm:"foreignKey:LevelID" json:"level,omitempty"`
}

func (LevelInstance) TableName() string {
	return "level_instances"
}

// Active reports whether the instance still counts toward a contract total.
func (li LevelInstance) Active() bool {
	return li.DeclinedAt == nil && li.DeletedAt == nil
}

// Timeline is a campaign milestone shown as a draggable list.
type Timeline struct {
	Base
	Orderable
	CampaignID string     `gorm:"column:campaign_id;type:uuid;index;not null" json:"campaign_id"`
	Title      string     `gorm:"column:title;not null" json:"title"`
	StartsOn   *time.Time `gorm:"column:starts_on" json:"starts_on,omitempty"`
}

func (Timeline) TableName() string {
	return "timelines"
}
