package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/models/dtos"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Setup test database. One connection keeps every transaction on the same
// in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open test database")

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(gormModels.All()...), "Failed to migrate")
	return database
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*common.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event *common.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []constants.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]constants.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// fixture wires every service over one test database with a live campaign,
// a member and a handful of volunteers.
type fixture struct {
	db         *gorm.DB
	ctx        context.Context
	chamber    gormModels.Chamber
	campaign   gormModels.Campaign
	member     gormModels.Member
	volunteers []gormModels.UserCampaign

	events     *recordingPublisher
	orders     *OrderManager
	credits    *CreditService
	incentives *IncentiveService
	inventory  *InventoryService
	catalog    *CatalogService
	contracts  *ContractService
	campaigns  *CampaignService
	volunteer  *VolunteerService
	signer     *common.SignLinkSigner
}

func newFixture(t *testing.T, volunteerCount int) *fixture {
	t.Helper()

	database := setupTestDB(t)
	f := &fixture{db: database, ctx: context.Background(), events: &recordingPublisher{}}

	strict := Invariants{Strict: true}
	f.orders = NewOrderManager(strict)
	f.credits = NewCreditService(database, strict)
	f.incentives = NewIncentiveService(database, f.orders)
	f.inventory = NewInventoryService(database, f.orders, common.NewCacheService(time.Minute, time.Minute), time.Minute)
	f.catalog = NewCatalogService(database, f.orders, f.inventory)
	f.signer = common.NewSignLinkSigner([]byte("test-secret"), time.Hour, common.NewMemoryTokenStore())
	f.contracts = NewContractService(database, f.credits, f.incentives, f.signer, f.events, f.inventory)
	f.campaigns = NewCampaignService(database, f.events)
	f.volunteer = NewVolunteerService(database, f.credits, f.events)

	f.chamber = gormModels.Chamber{Name: "Springfield Chamber", IsActive: true}
	require.NoError(t, database.Create(&f.chamber).Error)

	f.campaign = gormModels.Campaign{
		ChamberID: f.chamber.ID,
		Name:      "Annual Drive",
		Year:      2026,
		Status:    constants.CampaignLive,
		IsActive:  true,
	}
	require.NoError(t, database.Create(&f.campaign).Error)

	f.member = gormModels.Member{ChamberID: f.chamber.ID, Name: "Kwik-E-Mart"}
	require.NoError(t, database.Create(&f.member).Error)

	for i := 0; i < volunteerCount; i++ {
		f.volunteers = append(f.volunteers, f.addVolunteer(t, fmt.Sprintf("volunteer%d@example.com", i)))
	}
	return f
}

func (f *fixture) addVolunteer(t *testing.T, email string) gormModels.UserCampaign {
	t.Helper()
	uc, err := f.volunteer.Add(f.ctx, f.campaign.ID, dtos.AddVolunteerRequest{Email: email})
	require.NoError(t, err)
	return *uc
}

func (f *fixture) category(t *testing.T, name string) *gormModels.ProductCategory {
	t.Helper()
	c, err := f.catalog.CreateCategory(f.ctx, f.campaign.ID, dtos.CreateCategoryRequest{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) product(t *testing.T, categoryID, name string) *gormModels.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, categoryID, dtos.CreateProductRequest{Name: name})
	require.NoError(t, err)
	return p
}

func (f *fixture) levelIn(t *testing.T, productID, name, cost string, amount int) *gormModels.Level {
	t.Helper()
	l, err := f.catalog.CreateLevel(f.ctx, productID, dtos.CreateLevelRequest{Name: name, Cost: dec(cost), Amount: amount})
	require.NoError(t, err)
	return l
}

// level creates a level under a fresh category and product.
func (f *fixture) level(t *testing.T, cost string, amount int) *gormModels.Level {
	t.Helper()
	c := f.category(t, "Sponsorships")
	p := f.product(t, c.ID, "Golf Outing")
	return f.levelIn(t, p.ID, "Gold", cost, amount)
}

func (f *fixture) contract(t *testing.T, creator gormModels.UserCampaign, levelIDs ...string) *gormModels.Contract {
	t.Helper()
	c, err := f.contracts.Create(f.ctx, creator.ID, dtos.CreateContractRequest{
		MemberID: f.member.ID,
		LevelIDs: levelIDs,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) portions(t *testing.T, contractID string) map[string]decimal.Decimal {
	t.Helper()
	var rows []gormModels.ContractCreditInfo
	require.NoError(t, f.db.Where("contract_id = ?", contractID).Find(&rows).Error)
	out := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		out[r.UserCampaignID] = r.Portion
	}
	return out
}

func requireSumIsOne(t *testing.T, portions map[string]decimal.Decimal) {
	t.Helper()
	sum := decimal.Zero
	for _, p := range portions {
		sum = sum.Add(p)
	}
	require.True(t, sum.Sub(decimal.NewFromInt(1)).Abs().LessThanOrEqual(dec("0.000000000001")),
		"portions sum to %s", sum)
}

func (f *fixture) orderOf(t *testing.T, table, id string) int {
	t.Helper()
	var orders []int
	require.NoError(t, f.db.Table(table).Where("id = ?", id).Pluck("sort_order", &orders).Error)
	require.Len(t, orders, 1)
	return orders[0]
}

func (f *fixture) unattached(t *testing.T, levelID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&gormModels.LevelInstance{}).
		Where("level_id = ? AND contract_id IS NULL AND declined_at IS NULL AND deleted_at IS NULL", levelID).
		Count(&n).Error)
	return n
}
