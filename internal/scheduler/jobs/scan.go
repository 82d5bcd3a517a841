package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/alphastack/discovery/internal/scan"
	"github.com/alphastack/discovery/pkg/logger"
)

// ScanRefreshJob keeps the scan cache warm so API reads rarely see a
// stale snapshot
type ScanRefreshJob struct {
	cache    *scan.Cache
	interval time.Duration
	logger   *logger.Logger
}

// NewScanRefreshJob creates a new scan refresh job
func NewScanRefreshJob(cache *scan.Cache, interval time.Duration, log *logger.Logger) *ScanRefreshJob {
	return &ScanRefreshJob{
		cache:    cache,
		interval: interval,
		logger:   log,
	}
}

// Name returns the job name
func (j *ScanRefreshJob) Name() string {
	return "scan_refresh"
}

// Schedule returns the cron schedule
func (j *ScanRefreshJob) Schedule() string {
	return fmt.Sprintf("@every %s", j.interval)
}

// Run refreshes the cache. A refresh already in flight makes this a
// no-op, so overlapping ticks are harmless.
func (j *ScanRefreshJob) Run(ctx context.Context) error {
	return j.cache.Refresh(ctx)
}
