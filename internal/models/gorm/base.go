package gorm

import (
	"time"

	"github.com/google/uuid"
	gormdb "gorm.io/gorm"
)

// Base carries the uuid key and timestamps shared by every table.
type Base struct {
	ID        string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the id client-side so the same models work on Postgres
// and on the SQLite test databases.
func (b *Base) BeforeCreate(_ *gormdb.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Orderable is embedded by every entity that lives in a draggable list.
// Only active rows take part in a sibling set.
type Orderable struct {
	SortOrder int        `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	DeletedAt *time.Time `gorm:"column:deleted_at" json:"deleted_at,omitempty"`
}

// All lists the models in dependency order for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Chamber{},
		&User{},
		&Campaign{},
		&UserCampaign{},
		&Member{},
		&ProductCategory{},
		&Product{},
		&Level{},
		&Contract{},
		&LevelInstance{},
		&ContractCreditInfo{},
		&Invoice{},
		&Incentive{},
		&Reward{},
		&Timeline{},
		&ApiKey{},
	}
}
