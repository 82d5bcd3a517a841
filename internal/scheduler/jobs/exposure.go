package jobs

import (
	"context"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/internal/execution"
	"github.com/alphastack/discovery/pkg/logger"
)

// ExposureSnapshotJob persists the exposure ledger so caps survive a
// restart mid-session
type ExposureSnapshotJob struct {
	executor *execution.Executor
	repo     contracts.ExposureRepository
	logger   *logger.Logger
}

// NewExposureSnapshotJob creates a new exposure snapshot job
func NewExposureSnapshotJob(executor *execution.Executor, repo contracts.ExposureRepository, log *logger.Logger) *ExposureSnapshotJob {
	return &ExposureSnapshotJob{
		executor: executor,
		repo:     repo,
		logger:   log,
	}
}

// Name returns the job name
func (j *ExposureSnapshotJob) Name() string {
	return "exposure_snapshot"
}

// Schedule returns the cron schedule
func (j *ExposureSnapshotJob) Schedule() string {
	return "@every 1m"
}

// Run saves the current ledger state for its trading date. The ledger
// itself rolls at the date boundary, so the previous day's final
// snapshot stays on its own row.
func (j *ExposureSnapshotJob) Run(ctx context.Context) error {
	return j.repo.Save(ctx, j.executor.Exposure())
}
