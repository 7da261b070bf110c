package jobs

import (
	"context"
	"time"

	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/services"
)

// Jobs holds the background jobs so callers can trigger them by hand.
type Jobs struct {
	CampaignLifecycle *CampaignLifecycleJob
}

// InitializeJobs initializes and starts all background jobs
func InitializeJobs(ctx context.Context, campaigns *services.CampaignService, interval time.Duration) *Jobs {
	lifecycle := NewCampaignLifecycleJob(campaigns, metrics.Get())

	// Start scheduled sweep in background
	go lifecycle.RunScheduled(ctx, interval)

	return &Jobs{CampaignLifecycle: lifecycle}
}
