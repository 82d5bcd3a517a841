package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/internal/heartbeat"
	"github.com/alphastack/discovery/pkg/logger"
)

// HeartbeatJob re-checks data-source freshness on a fixed interval
type HeartbeatJob struct {
	monitor  *heartbeat.Monitor
	interval time.Duration
	logger   *logger.Logger
}

// NewHeartbeatJob creates a new heartbeat job
func NewHeartbeatJob(monitor *heartbeat.Monitor, interval time.Duration, log *logger.Logger) *HeartbeatJob {
	return &HeartbeatJob{
		monitor:  monitor,
		interval: interval,
		logger:   log,
	}
}

// Name returns the job name
func (j *HeartbeatJob) Name() string {
	return "heartbeat_check"
}

// Schedule returns the cron schedule
func (j *HeartbeatJob) Schedule() string {
	return fmt.Sprintf("@every %s", j.interval)
}

// Run checks all sources. Degraded sources are logged but do not fail
// the job; a DOWN source is an observation, not a scheduling error.
func (j *HeartbeatJob) Run(ctx context.Context) error {
	snapshot := j.monitor.Check(ctx)

	for name, health := range snapshot.Sources {
		if health.Status == contracts.SourceOK {
			continue
		}
		j.logger.WithFields(map[string]interface{}{
			"source": name,
			"status": string(health.Status),
			"detail": health.Detail,
		}).Warn("Data source degraded")
	}
	return nil
}
