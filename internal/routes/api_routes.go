package routes

import (
	"chamberhub/campaigns/internal/api"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// RegisterAPIRoutes registers all API v1 routes and handlers. Every
// authenticated group is gated by a capability; tenancy is checked in the
// handlers.
func RegisterAPIRoutes(r chi.Router, metricsReg *metrics.MetricsRegistry, deps *api.Dependencies, publicLimiter *middleware.IPRateLimiter) {
	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(middleware.InFlightMiddleware(metricsReg, "api_v1"))

		// Public: the sign link token is the credential
		v1.Group(func(public chi.Router) {
			public.Use(publicLimiter.Middleware)
			public.Post("/public/contracts/sign", api.SignContractHandler(deps))
		})

		v1.Group(func(authed chi.Router) {
			authed.Use(middleware.AuthMiddleware(deps.Verifier, deps.Repo.Keys))

			// Read access for volunteers and admins
			authed.Group(func(view chi.Router) {
				view.Use(middleware.RequireCapability(constants.CapViewCatalog))
				view.Get("/campaigns", api.ListCampaignsHandler(deps))
				view.Get("/campaigns/{id}", api.GetCampaignHandler(deps))
				view.Get("/campaigns/{id}/catalog", api.GetCatalogTreeHandler(deps))
				view.Get("/campaigns/{id}/incentives", api.ListIncentivesHandler(deps))
				view.Get("/campaigns/{id}/volunteers", api.ListVolunteersHandler(deps))
				view.Get("/campaigns/{id}/inventory/stats", api.InventoryStatsHandler(deps))
				view.Get("/campaigns/{id}/inventory/categories", api.CategoryStatsHandler(deps))
			})

			authed.Group(func(payouts chi.Router) {
				payouts.Use(middleware.RequireCapability(constants.CapViewPayouts))
				payouts.Get("/volunteers/{id}/payouts", api.PayoutMetricsHandler(deps))
				payouts.Get("/volunteers/{id}/rewards", api.VolunteerRewardsHandler(deps))
				payouts.Post("/volunteers/{id}/rewards/evaluate", api.EvaluateRewardsHandler(deps))
			})

			// Contract authoring
			authed.Group(func(edit chi.Router) {
				edit.Use(middleware.RequireCapability(constants.CapEditContracts))
				edit.Get("/campaigns/{id}/contracts", api.ListContractsHandler(deps))
				edit.Post("/contracts", api.CreateContractHandler(deps))
				edit.Get("/contracts/{id}", api.GetContractHandler(deps))
				edit.Delete("/contracts/{id}", api.DeleteContractHandler(deps))
				edit.Post("/contracts/{id}/levels", api.AttachLevelHandler(deps))
				edit.Delete("/contracts/{id}/levels/{instanceID}", api.DetachInstanceHandler(deps))
				edit.Put("/contracts/{id}/credits", api.SetCreditsHandler(deps))
				edit.Post("/contracts/{id}/send", api.SendContractHandler(deps))
			})

			// Admin decisions
			authed.Group(func(decide chi.Router) {
				decide.Use(middleware.RequireCapability(constants.CapDecideContracts))
				decide.Post("/contracts/reassign", api.ReassignContractsHandler(deps))
				decide.Post("/contracts/{id}/approve", api.ApproveContractHandler(deps))
				decide.Post("/contracts/{id}/decline", api.DeclineContractHandler(deps))
			})

			authed.Group(func(catalog chi.Router) {
				catalog.Use(middleware.RequireCapability(constants.CapManageCatalog))
				catalog.Post("/catalog/categories", api.CreateCategoryHandler(deps))
				catalog.Post("/catalog/products", api.CreateProductHandler(deps))
				catalog.Post("/catalog/levels", api.CreateLevelHandler(deps))
				catalog.Patch("/catalog/levels/{id}", api.UpdateLevelHandler(deps))
				catalog.Post("/campaigns/{id}/timelines", api.CreateTimelineHandler(deps))
				catalog.Put("/catalog/{kind}/{id}/order", api.ReorderHandler(deps))
				catalog.Delete("/catalog/{kind}/{id}", api.RemoveItemHandler(deps))
				catalog.Post("/catalog/{kind}/{id}/duplicate", api.DuplicateHandler(deps))
			})

			authed.Group(func(campaigns chi.Router) {
				campaigns.Use(middleware.RequireCapability(constants.CapManageCampaigns))
				campaigns.Post("/campaigns", api.CreateCampaignHandler(deps))
				campaigns.Put("/campaigns/{id}/status", api.CampaignStatusHandler(deps))
				campaigns.Delete("/campaigns/{id}", api.DeleteCampaignHandler(deps))
				campaigns.Post("/members", api.CreateMemberHandler(deps))
			})

			authed.Group(func(volunteers chi.Router) {
				volunteers.Use(middleware.RequireCapability(constants.CapManageVolunteers))
				volunteers.Post("/campaigns/{id}/volunteers", api.AddVolunteerHandler(deps))
				volunteers.Delete("/volunteers/{id}", api.RemoveVolunteerHandler(deps))
			})

			authed.Group(func(incentives chi.Router) {
				incentives.Use(middleware.RequireCapability(constants.CapManageIncentives))
				incentives.Post("/incentives", api.CreateIncentiveHandler(deps))
			})

			authed.Group(func(payouts chi.Router) {
				payouts.Use(middleware.RequireCapability(constants.CapManagePayouts))
				payouts.Post("/campaigns/{id}/rewards/paid", api.SetRewardsPaidHandler(deps))
				payouts.Post("/campaigns/{id}/rewards/mark-paid", api.MarkRewardsHandler(deps, true))
				payouts.Post("/campaigns/{id}/rewards/mark-unpaid", api.MarkRewardsHandler(deps, false))
			})
		})
	})
}
