package jobs

import (
	"context"
	"testing"
	"time"

	"chamberhub/campaigns/internal/common"
	"chamberhub/campaigns/internal/constants"
	"chamberhub/campaigns/internal/metrics"
	gormModels "chamberhub/campaigns/internal/models/gorm"
	"chamberhub/campaigns/internal/services"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func TestCampaignLifecycleJobClosesEndedCampaigns(t *testing.T) {
	database := setupTestDB(t)
	ctx := context.Background()

	chamber := gormModels.Chamber{Name: "Springfield Chamber"}
	require.NoError(t, database.Create(&chamber).Error)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)
	ended := gormModels.Campaign{ChamberID: chamber.ID, Name: "2025", Year: 2025, Status: constants.CampaignLive, EndDate: &past, IsActive: true}
	running := gormModels.Campaign{ChamberID: chamber.ID, Name: "2026", Year: 2026, Status: constants.CampaignLive, EndDate: &future, IsActive: true}
	open := gormModels.Campaign{ChamberID: chamber.ID, Name: "2024", Year: 2024, Status: constants.CampaignOpen, EndDate: &past, IsActive: true}
	for _, c := range []*gormModels.Campaign{&ended, &running, &open} {
		require.NoError(t, database.Create(c).Error)
	}

	job := NewCampaignLifecycleJob(services.NewCampaignService(database, common.LogEventPublisher{}), metrics.Get())

	closed, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, closed)

	statusOf := func(id string) constants.CampaignStatus {
		var c gormModels.Campaign
		require.NoError(t, database.First(&c, "id = ?", id).Error)
		return c.Status
	}
	require.Equal(t, constants.CampaignDone, statusOf(ended.ID))
	require.Equal(t, constants.CampaignLive, statusOf(running.ID))
	require.Equal(t, constants.CampaignOpen, statusOf(open.ID))

	// A second sweep finds nothing left to close.
	closed, err = job.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, closed)
}

func TestCampaignLifecycleJobStopsOnCancel(t *testing.T) {
	database := setupTestDB(t)
	job := NewCampaignLifecycleJob(services.NewCampaignService(database, common.LogEventPublisher{}), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.RunScheduled(ctx, time.Hour)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled job did not stop after cancel")
	}
}
