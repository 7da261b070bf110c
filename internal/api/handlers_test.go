package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"chamberhub/campaigns/internal/auth"
	"chamberhub/campaigns/internal/config"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/middleware"
	"chamberhub/campaigns/internal/models/dtos"
	"chamberhub/campaigns/internal/models/entities"
	gormModels "chamberhub/campaigns/internal/models/gorm"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	deps      *Dependencies
	router    http.Handler
	db        *gorm.DB
	chamber   gormModels.Chamber
	campaign  gormModels.Campaign
	member    gormModels.Member
	volunteer *gormModels.UserCampaign
	other     *gormModels.UserCampaign
	level     *gormModels.Level
}

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

	require.NoError(t, database.AutoMigrate(gormModels.All()...))
	return database
}

// newTestEnv wires the handlers the way the production router does, over
// SQLite and without Redis.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	cfg := &config.Config{
		AppEnv:           "test",
		SigningSecret:    []byte("test-secret"),
		SignLinkTTL:      time.Hour,
		StrictInvariants: true,
		CacheTTL:         time.Minute,
	}
	database := setupTestDB(t)
	env := &testEnv{deps: InitDependencies(cfg, database, nil, nil), db: database}
	svc := env.deps.Services

	env.chamber = gormModels.Chamber{Name: "Springfield Chamber", IsActive: true}
	require.NoError(t, database.Create(&env.chamber).Error)
	env.campaign = gormModels.Campaign{ChamberID: env.chamber.ID, Name: "Annual Drive", Year: 2026, Status: constants.CampaignLive, IsActive: true}
	require.NoError(t, database.Create(&env.campaign).Error)
	env.member = gormModels.Member{ChamberID: env.chamber.ID, Name: "Kwik-E-Mart"}
	require.NoError(t, database.Create(&env.member).Error)

	var err error
	env.volunteer, err = svc.Volunteers.Add(ctx, env.campaign.ID, dtos.AddVolunteerRequest{Email: "lisa@example.com"})
	require.NoError(t, err)
	env.other, err = svc.Volunteers.Add(ctx, env.campaign.ID, dtos.AddVolunteerRequest{Email: "bart@example.com"})
	require.NoError(t, err)

	category, err := svc.Catalog.CreateCategory(ctx, env.campaign.ID, dtos.CreateCategoryRequest{Name: "Sponsorships"})
	require.NoError(t, err)
	product, err := svc.Catalog.CreateProduct(ctx, category.ID, dtos.CreateProductRequest{Name: "Golf Outing"})
	require.NoError(t, err)
	env.level, err = svc.Catalog.CreateLevel(ctx, product.ID, dtos.CreateLevelRequest{Name: "Gold", Cost: decimal.NewFromInt(500), Amount: 3})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(middleware.RequestIDMiddleware)
	r.Post("/public/contracts/sign", SignContractHandler(env.deps))
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.AuthMiddleware(env.deps.Verifier, nil))
		authed.With(middleware.RequireCapability(constants.CapEditContracts)).Post("/contracts", CreateContractHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapEditContracts)).Get("/contracts/{id}", GetContractHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapEditContracts)).Get("/campaigns/{id}/contracts", ListContractsHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapEditContracts)).Post("/contracts/{id}/send", SendContractHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapEditContracts)).Delete("/contracts/{id}", DeleteContractHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapDecideContracts)).Post("/contracts/{id}/approve", ApproveContractHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapManageCatalog)).Post("/catalog/categories", CreateCategoryHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapManageCatalog)).Put("/catalog/{kind}/{id}/order", ReorderHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapViewPayouts)).Get("/volunteers/{id}/payouts", PayoutMetricsHandler(env.deps))
		authed.With(middleware.RequireCapability(constants.CapManageCampaigns)).Put("/campaigns/{id}/status", CampaignStatusHandler(env.deps))
	})
	env.router = r
	return env
}

func (e *testEnv) token(t *testing.T, claims auth.JWTClaims) string {
	t.Helper()
	if claims.UserUUID == "" {
		claims.UserUUID = "user-under-test"
	}
	token, err := e.deps.Verifier.Issue(claims, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) admin(t *testing.T) string {
	return e.token(t, auth.JWTClaims{ChamberUUID: e.chamber.ID, RoleValue: constants.RoleChamberAdmin})
}

func (e *testEnv) volunteerToken(t *testing.T, uc *gormModels.UserCampaign) string {
	return e.token(t, auth.JWTClaims{
		UserUUID:         uc.UserID,
		ChamberUUID:      e.chamber.ID,
		CampaignUUID:     uc.CampaignID,
		UserCampaignUUID: uc.ID,
		RoleValue:        constants.RoleVolunteer,
	})
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var resp envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (e *testEnv) createContract(t *testing.T, token, creatorID string) gormModels.Contract {
	t.Helper()
	code, resp := e.do(t, http.MethodPost, "/contracts", token, dtos.CreateContractRequest{
		CreatorID: creatorID,
		MemberID:  e.member.ID,
		LevelIDs:  []string{e.level.ID},
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)

	var contract gormModels.Contract
	require.NoError(t, json.Unmarshal(resp.Data, &contract))
	return contract
}

func TestVolunteerCreatesAndAdminApproves(t *testing.T) {
	env := newTestEnv(t)

	// The creator id in the body is ignored for volunteers.
	contract := env.createContract(t, env.volunteerToken(t, env.volunteer), env.other.ID)
	require.Equal(t, env.volunteer.ID, contract.CreatedByID, "volunteers always create as themselves")
	require.Equal(t, constants.ContractDraft, contract.Status)

	code, _ := env.do(t, http.MethodPost, "/contracts/"+contract.ID+"/approve", env.volunteerToken(t, env.volunteer), nil)
	require.Equal(t, http.StatusForbidden, code)

	code, resp := env.do(t, http.MethodPost, "/contracts/"+contract.ID+"/approve", env.admin(t), nil)
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, resp = env.do(t, http.MethodPost, "/contracts/"+contract.ID+"/approve", env.admin(t), nil)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "error", resp.Status)
}

func TestContractNoteVisibleToCreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	creator := env.volunteerToken(t, env.volunteer)

	code, resp := env.do(t, http.MethodPost, "/contracts", creator, dtos.CreateContractRequest{
		MemberID: env.member.ID,
		LevelIDs: []string{env.level.ID},
		Note:     "call after the board meeting",
	})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var created gormModels.Contract
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.Equal(t, "call after the board meeting", created.Note)

	noteFor := func(token string) string {
		code, resp := env.do(t, http.MethodGet, "/contracts/"+created.ID, token, nil)
		require.Equal(t, http.StatusOK, code, resp.Message)
		var contract gormModels.Contract
		require.NoError(t, json.Unmarshal(resp.Data, &contract))
		return contract.Note
	}
	require.Equal(t, "call after the board meeting", noteFor(creator))
	require.Empty(t, noteFor(env.volunteerToken(t, env.other)))
	require.Empty(t, noteFor(env.admin(t)))

	code, resp = env.do(t, http.MethodGet, "/campaigns/"+env.campaign.ID+"/contracts", env.admin(t), nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var listed []gormModels.Contract
	require.NoError(t, json.Unmarshal(resp.Data, &listed))
	require.Len(t, listed, 1)
	require.Empty(t, listed[0].Note)
}

func TestVolunteerCannotTouchOthersContracts(t *testing.T) {
	env := newTestEnv(t)
	contract := env.createContract(t, env.volunteerToken(t, env.volunteer), "")

	code, _ := env.do(t, http.MethodDelete, "/contracts/"+contract.ID, env.volunteerToken(t, env.other), nil)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, http.MethodDelete, "/contracts/"+contract.ID, env.volunteerToken(t, env.volunteer), nil)
	require.Equal(t, http.StatusOK, code)
}

func TestSendAndPublicSign(t *testing.T) {
	env := newTestEnv(t)
	code, _ := env.do(t, http.MethodPost, "/contracts", env.admin(t), dtos.CreateContractRequest{MemberID: env.member.ID})
	require.Equal(t, http.StatusUnprocessableEntity, code, "admins must name the creator")

	contract := env.createContract(t, env.admin(t), env.volunteer.ID)

	code, resp := env.do(t, http.MethodPost, "/contracts/"+contract.ID+"/send", env.admin(t), nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var sent dtos.SendContractResponse
	require.NoError(t, json.Unmarshal(resp.Data, &sent))
	require.NotEmpty(t, sent.SignToken)

	code, _ = env.do(t, http.MethodPost, "/public/contracts/sign", "", dtos.SignContractRequest{Token: sent.SignToken})
	require.Equal(t, http.StatusUnprocessableEntity, code)

	code, resp = env.do(t, http.MethodPost, "/public/contracts/sign", "", dtos.SignContractRequest{Token: sent.SignToken, Signature: "Apu N."})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, _ = env.do(t, http.MethodPost, "/public/contracts/sign", "", dtos.SignContractRequest{Token: sent.SignToken, Signature: "Apu N."})
	require.Equal(t, http.StatusBadRequest, code, "links are single use")
}

func TestAdminIsConfinedToChamber(t *testing.T) {
	env := newTestEnv(t)
	outsider := env.token(t, auth.JWTClaims{ChamberUUID: "another-chamber", RoleValue: constants.RoleChamberAdmin})

	code, _ := env.do(t, http.MethodPost, "/catalog/categories", outsider, dtos.CreateCategoryRequest{CampaignID: env.campaign.ID, Name: "Dinner"})
	require.Equal(t, http.StatusNotFound, code, "other chambers' campaigns are invisible")

	code, _ = env.do(t, http.MethodPost, "/catalog/categories", env.admin(t), dtos.CreateCategoryRequest{CampaignID: env.campaign.ID, Name: "Dinner"})
	require.Equal(t, http.StatusCreated, code)

	superAdmin := env.token(t, auth.JWTClaims{RoleValue: constants.RoleSuperAdmin})
	code, _ = env.do(t, http.MethodPost, "/catalog/categories", superAdmin, dtos.CreateCategoryRequest{CampaignID: env.campaign.ID, Name: "Gala"})
	require.Equal(t, http.StatusCreated, code)
}

func TestCampaignScopedToken(t *testing.T) {
	env := newTestEnv(t)
	scoped := env.token(t, auth.JWTClaims{ChamberUUID: env.chamber.ID, CampaignUUID: "last-year", RoleValue: constants.RoleChamberAdmin})

	code, _ := env.do(t, http.MethodPut, "/campaigns/"+env.campaign.ID+"/status", scoped, dtos.CampaignStatusRequest{Status: constants.CampaignDone})
	require.Equal(t, http.StatusForbidden, code)

	code, resp := env.do(t, http.MethodPut, "/campaigns/"+env.campaign.ID+"/status", env.admin(t), dtos.CampaignStatusRequest{Status: constants.CampaignDone})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, _ = env.do(t, http.MethodPut, "/campaigns/"+env.campaign.ID+"/status", env.admin(t), dtos.CampaignStatusRequest{Status: constants.CampaignLive})
	require.Equal(t, http.StatusConflict, code, "transitions only move forward")
}

func TestPayoutsVisibleToOwnerOnly(t *testing.T) {
	env := newTestEnv(t)

	code, resp := env.do(t, http.MethodGet, "/volunteers/"+env.volunteer.ID+"/payouts", env.volunteerToken(t, env.volunteer), nil)
	require.Equal(t, http.StatusOK, code, resp.Message)
	var metrics dtos.PayoutMetrics
	require.NoError(t, json.Unmarshal(resp.Data, &metrics))
	require.True(t, metrics.TotalOwed.IsZero())

	code, _ = env.do(t, http.MethodGet, "/volunteers/"+env.other.ID+"/payouts", env.volunteerToken(t, env.volunteer), nil)
	require.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(t, http.MethodGet, "/volunteers/"+env.other.ID+"/payouts", env.admin(t), nil)
	require.Equal(t, http.StatusOK, code)
}

func TestReorderRoutes(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPut, "/catalog/widgets/"+env.level.ID+"/order", env.admin(t), dtos.ReorderRequest{Order: 0})
	require.Equal(t, http.StatusNotFound, code)

	code, resp := env.do(t, http.MethodPut, "/catalog/levels/"+env.level.ID+"/order", env.admin(t), dtos.ReorderRequest{Order: 5})
	require.Equal(t, http.StatusOK, code, resp.Message)
	var got dtos.ReorderRequest
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	require.Equal(t, 0, got.Order, "targets past the end clamp to the last slot")
}

func TestMalformedBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/contracts", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+env.admin(t))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheckReportsMissingDatabase(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	HealthCheckHandler(env.deps)(rec, httptest.NewRequest(http.MethodGet, "/healthCheck", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp entities.HealthCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "down", resp.Status)
	require.Equal(t, "down", resp.Services["postgres"].Status)
	_, hasRedis := resp.Services["redis"]
	require.False(t, hasRedis, "redis is only reported when configured")
}
