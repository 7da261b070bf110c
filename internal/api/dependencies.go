package api

import (
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/config"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/db/repositories"
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/services"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Repositories struct {
	Keys *repositories.KeysRepo
}

type Services struct {
	Cache      common.CacheInterface
	Events     common.EventPublisher
	Signer     *common.SignLinkSigner
	Orders     *services.OrderManager
	Credits    *services.CreditService
	Incentives *services.IncentiveService
	Inventory  *services.InventoryService
	Catalog    *services.CatalogService
	Contracts  *services.ContractService
	Campaigns  *services.CampaignService
	Volunteers *services.VolunteerService
}

type Dependencies struct {
	Repo     *Repositories
	Services *Services
	Verifier *auth.TokenVerifier
	SQL      *sqlx.DB
	Redis    *redis.Client
	UpSince  time.Time
}

// InitDependencies wires the services over the given stores. Without a
// Redis client the in-process cache, token store and a log-only event
// publisher are used.
func InitDependencies(cfg *config.Config, gormDB *gorm.DB, sqlDB *sqlx.DB, redisClient *redis.Client) *Dependencies {
	var (
		cache  common.CacheInterface
		used   common.UsedTokenStore
		events common.EventPublisher
	)
	if redisClient != nil {
		cache = common.NewRedisCacheService(redisClient)
		used = common.NewRedisTokenStore(redisClient)
		events = common.NewRedisEventStream(redisClient, constants.EventStream)
	} else {
		logging.Warn("Redis disabled, using in-process cache and log-only events")
		cache = common.NewCacheService(cfg.CacheTTL, 2*cfg.CacheTTL)
		used = common.NewMemoryTokenStore()
		events = common.LogEventPublisher{}
	}

	invariants := services.Invariants{Strict: cfg.StrictInvariants}
	orders := services.NewOrderManager(invariants)
	credits := services.NewCreditService(gormDB, invariants)
	incentives := services.NewIncentiveService(gormDB, orders)
	inventory := services.NewInventoryService(gormDB, orders, cache, cfg.CacheTTL)
	signer := common.NewSignLinkSigner(cfg.SigningSecret, cfg.SignLinkTTL, used)

	svc := &Services{
		Cache:      cache,
		Events:     events,
		Signer:     signer,
		Orders:     orders,
		Credits:    credits,
		Incentives: incentives,
		Inventory:  inventory,
		Catalog:    services.NewCatalogService(gormDB, orders, inventory),
		Contracts:  services.NewContractService(gormDB, credits, incentives, signer, events, inventory),
		Campaigns:  services.NewCampaignService(gormDB, events),
		Volunteers: services.NewVolunteerService(gormDB, credits, events),
	}

	repos := &Repositories{}
	if sqlDB != nil {
		repos.Keys = repositories.NewApiKeysRepo(sqlDB)
	}

	return &Dependencies{
		Repo:     repos,
		Services: svc,
		Verifier: auth.NewTokenVerifier(cfg.SigningSecret),
		SQL:      sqlDB,
		Redis:    redisClient,
		UpSince:  time.Now(),
	}
}
