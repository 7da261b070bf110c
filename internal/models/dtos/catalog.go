package dtos

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateCategoryRequest struct {
	CampaignID  string `json:"campaign_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CreateProductRequest struct {
	CategoryID  string `json:"category_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateLevelRequest uses amount -1 for unlimited inventory.
type CreateLevelRequest struct {
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Benefits    string          `json:"benefits"`
	Cost        decimal.Decimal `json:"cost"`
	Amount      int             `json:"amount"`
}

// UpdateLevelRequest leaves nil fields unchanged.
type UpdateLevelRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Benefits    *string          `json:"benefits,omitempty"`
	Cost        *decimal.Decimal `json:"cost,omitempty"`
	Amount      *int             `json:"amount,omitempty"`
}

type CreateTimelineRequest struct {
	Title    string     `json:"title"`
	StartsOn *time.Time `json:"starts_on,omitempty"`
}

type ReorderRequest struct {
	Order int `json:"order"`
}

// InventoryStats values a campaign's catalogue. Unlimited levels have no
// finite value; they count toward LevelsCount and UnlimitedLevelsCount only.
type InventoryStats struct {
	CampaignID           string          `json:"campaign_id"`
	TotalValue           decimal.Decimal `json:"total_value"`
	LevelsCount          int             `json:"levels_count"`
	UnlimitedLevelsCount int             `json:"unlimited_levels_count"`
}

type CategoryStats struct {
	CategoryID           string          `json:"category_id"`
	Name                 string          `json:"name"`
	ProductsCount        int             `json:"products_count"`
	LevelsCount          int             `json:"levels_count"`
	UnlimitedLevelsCount int             `json:"unlimited_levels_count"`
	TotalValue           decimal.Decimal `json:"total_value"`
}
