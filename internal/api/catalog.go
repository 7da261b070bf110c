package api

import (
	"net/http"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/models/dtos"
	"chamberhub/campaigns/internal/services"

	"github.com/go-chi/chi/v5"
)

// collectionParam resolves the {kind} path segment.
func collectionParam(w http.ResponseWriter, r *http.Request, initTime time.Time) (services.Collection, bool) {
	c, ok := services.CollectionByName(chi.URLParam(r, "kind"))
	if !ok {
		common.RespondError(w, initTime, nil, "Unknown collection", http.StatusNotFound)
	}
	return c, ok
}

// GetCatalogTreeHandler handles GET /api/v1/campaigns/{id}/catalog
func GetCatalogTreeHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		tree, err := deps.Services.Catalog.Tree(r.Context(), campaignID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Catalog fetched", tree)
	}
}

// CreateCategoryHandler handles POST /api/v1/catalog/categories
func CreateCategoryHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		var req dtos.CreateCategoryRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, req.CampaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		category, err := deps.Services.Catalog.CreateCategory(r.Context(), req.CampaignID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Category created", category, http.StatusCreated)
	}
}

// CreateProductHandler handles POST /api/v1/catalog/products
func CreateProductHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		var req dtos.CreateProductRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeItem(r.Context(), deps, claims, services.Categories, req.CategoryID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		product, err := deps.Services.Catalog.CreateProduct(r.Context(), req.CategoryID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Product created", product, http.StatusCreated)
	}
}

// CreateLevelHandler handles POST /api/v1/catalog/levels
func CreateLevelHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		var req dtos.CreateLevelRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeItem(r.Context(), deps, claims, services.Products, req.ProductID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		level, err := deps.Services.Catalog.CreateLevel(r.Context(), req.ProductID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Level created", level, http.StatusCreated)
	}
}

// UpdateLevelHandler handles PATCH /api/v1/catalog/levels/{id}
func UpdateLevelHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		levelID := chi.URLParam(r, "id")
		var req dtos.UpdateLevelRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeItem(r.Context(), deps, claims, services.Levels, levelID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		level, err := deps.Services.Catalog.UpdateLevel(r.Context(), levelID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Level updated", level)
	}
}

// CreateTimelineHandler handles POST /api/v1/campaigns/{id}/timelines
func CreateTimelineHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		var req dtos.CreateTimelineRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		timeline, err := deps.Services.Catalog.CreateTimeline(r.Context(), campaignID, req)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Timeline entry created", timeline, http.StatusCreated)
	}
}

// ReorderHandler handles PUT /api/v1/catalog/{kind}/{id}/order
func ReorderHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}
		c, ok := collectionParam(w, r, initTime)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		var req dtos.ReorderRequest
		if !decodeJSON(w, r, initTime, &req) {
			return
		}
		if err := authorizeItem(r.Context(), deps, claims, c, id); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		pos, err := deps.Services.Catalog.Reorder(r.Context(), c, id, req.Order)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Order updated", dtos.ReorderRequest{Order: pos})
	}
}

// RemoveItemHandler handles DELETE /api/v1/catalog/{kind}/{id}
func RemoveItemHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}
		c, ok := collectionParam(w, r, initTime)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		if err := authorizeItem(r.Context(), deps, claims, c, id); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		if err := deps.Services.Catalog.Remove(r.Context(), c, id); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Item removed", nil)
	}
}

// DuplicateHandler handles POST /api/v1/catalog/{kind}/{id}/duplicate for
// categories, products and levels.
func DuplicateHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}
		c, ok := collectionParam(w, r, initTime)
		if !ok {
			return
		}

		id := chi.URLParam(r, "id")
		if err := authorizeItem(r.Context(), deps, claims, c, id); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		var (
			clone interface{}
			err   error
		)
		inventory := deps.Services.Inventory
		switch c.Name {
		case services.Categories.Name:
			clone, err = inventory.DuplicateCategory(r.Context(), id)
		case services.Products.Name:
			clone, err = inventory.DuplicateProduct(r.Context(), id)
		case services.Levels.Name:
			clone, err = inventory.DuplicateLevel(r.Context(), id)
		default:
			common.RespondError(w, initTime, nil, c.Name+" cannot be duplicated", http.StatusUnprocessableEntity)
			return
		}
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Item duplicated", clone, http.StatusCreated)
	}
}

// InventoryStatsHandler handles GET /api/v1/campaigns/{id}/inventory/stats
func InventoryStatsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		stats, err := deps.Services.Inventory.InventoryStats(r.Context(), campaignID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Inventory stats fetched", stats)
	}
}

// CategoryStatsHandler handles GET /api/v1/campaigns/{id}/inventory/categories
func CategoryStatsHandler(deps *Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		initTime := time.Now()
		claims := requireClaims(w, r, initTime)
		if claims == nil {
			return
		}

		campaignID := chi.URLParam(r, "id")
		if err := authorizeCampaign(r.Context(), deps, claims, campaignID); err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}

		stats, err := deps.Services.Inventory.CategoryStats(r.Context(), campaignID)
		if err != nil {
			handleServiceError(w, r, initTime, err)
			return
		}
		common.RespondSuccess(w, initTime, "Category stats fetched", stats)
	}
}
