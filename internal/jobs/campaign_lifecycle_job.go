package jobs

import (
	"context"
	"time"

	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
	"chamberhub/campaigns/internal/services"
)

// CampaignLifecycleJob closes live campaigns whose end date has passed.
type CampaignLifecycleJob struct {
	campaigns *services.CampaignService
	metrics   *metrics.MetricsRegistry
}

func NewCampaignLifecycleJob(campaigns *services.CampaignService, metricsReg *metrics.MetricsRegistry) *CampaignLifecycleJob {
	return &CampaignLifecycleJob{campaigns: campaigns, metrics: metricsReg}
}

// Run executes one sweep and returns how many campaigns were closed.
func (j *CampaignLifecycleJob) Run(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		if j.metrics != nil {
			j.metrics.CampaignJobDuration.Observe(time.Since(start).Seconds())
		}
	}()

	closed, err := j.campaigns.CloseEnded(ctx)
	if err != nil {
		logging.Error("Campaign lifecycle sweep failed", "closed", closed, "error", err)
		return closed, err
	}

	logging.Info("Campaign lifecycle sweep completed",
		"closed", closed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return closed, nil
}

// RunScheduled runs the sweep once at start and then on every tick until
// ctx is cancelled.
func (j *CampaignLifecycleJob) RunScheduled(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if _, err := j.Run(ctx); err != nil {
		logging.Warn("Campaign lifecycle initial run failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx); err != nil {
				logging.Warn("Campaign lifecycle scheduled run failed", "error", err)
			}
		case <-ctx.Done():
			logging.Info("Shutting down campaign lifecycle job")
			return
		}
	}
}
