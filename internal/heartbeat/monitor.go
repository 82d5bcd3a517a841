package heartbeat

import (
	"context"
	"sync"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
	"github.com/alphastack/discovery/pkg/config"
	"github.com/alphastack/discovery/pkg/logger"
)

// Checker probes one upstream data source and reports the timestamp of
// its freshest data. An error means the source could not be contacted
// at all.
type Checker interface {
	Name() string
	Check(ctx context.Context) (lastDataAt time.Time, err error)
}

// Source pairs a checker with its freshness threshold
type Source struct {
	Checker   Checker
	Threshold time.Duration
}

// Monitor polls every source on an interval and keeps the last
// snapshot. A source is OK when its data age is within the threshold,
// STALE when the probe succeeded but the data is older, and DOWN when
// the probe itself failed. The snapshot is persisted so the last known
// state survives restarts.
type Monitor struct {
	mu       sync.RWMutex
	snapshot *contracts.HeartbeatSnapshot

	sources      []Source
	repo         contracts.HeartbeatRepository // optional
	checkTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
}

// NewMonitor creates a monitor over the given sources
func NewMonitor(cfg config.HeartbeatConfig, sources []Source, repo contracts.HeartbeatRepository, log *logger.Logger) *Monitor {
	return &Monitor{
		sources:      sources,
		repo:         repo,
		checkTimeout: cfg.CheckTimeout,
		now:          time.Now,
		log:          log.WithField("component", "heartbeat"),
	}
}

// Restore loads the last persisted snapshot so the gate has a state
// before the first interval fires
func (m *Monitor) Restore(ctx context.Context) {
	if m.repo == nil {
		return
	}
	snapshot, err := m.repo.GetLatest(ctx)
	if err != nil {
		m.log.WithError(err).Warn("Could not restore heartbeat snapshot")
		return
	}
	if snapshot == nil {
		return
	}
	m.mu.Lock()
	m.snapshot = snapshot
	m.mu.Unlock()
}

// Check probes every source concurrently, each independently
// time-boxed, and commits a new snapshot
func (m *Monitor) Check(ctx context.Context) *contracts.HeartbeatSnapshot {
	now := m.now()
	previous := m.Snapshot()

	results := make([]contracts.SourceHealth, len(m.sources))
	var wg sync.WaitGroup
	wg.Add(len(m.sources))
	for i, src := range m.sources {
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = m.checkOne(ctx, src, previous, now)
		}(i, src)
	}
	wg.Wait()

	snapshot := &contracts.HeartbeatSnapshot{
		Sources:   make(map[string]contracts.SourceHealth, len(m.sources)),
		CheckedAt: now,
	}
	for i, src := range m.sources {
		snapshot.Sources[src.Checker.Name()] = results[i]
	}

	m.mu.Lock()
	m.snapshot = snapshot
	m.mu.Unlock()

	m.persist(snapshot)
	return snapshot
}

// checkOne probes a single source. A DOWN source keeps the previous
// lastOkAt so operators can see how long it has been gone.
func (m *Monitor) checkOne(ctx context.Context, src Source, previous *contracts.HeartbeatSnapshot, now time.Time) contracts.SourceHealth {
	name := src.Checker.Name()
	health := contracts.SourceHealth{
		LastCheckedAt:      now,
		FreshnessThreshold: src.Threshold,
	}

	ctx, cancel := context.WithTimeout(ctx, m.checkTimeout)
	defer cancel()

	lastDataAt, err := src.Checker.Check(ctx)
	if err != nil {
		health.Status = contracts.SourceDown
		health.Detail = err.Error()
		if previous != nil {
			health.LastOkAt = previous.Sources[name].LastOkAt
		}
		m.log.WithError(err).WithField("source", name).Warn("Heartbeat check failed")
		return health
	}

	health.LastOkAt = lastDataAt
	if now.Sub(lastDataAt) > src.Threshold {
		health.Status = contracts.SourceStale
		health.Detail = "data older than freshness threshold"
		return health
	}

	health.Status = contracts.SourceOK
	return health
}

// persist stores the snapshot, best effort
func (m *Monitor) persist(snapshot *contracts.HeartbeatSnapshot) {
	if m.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.repo.Save(ctx, snapshot); err != nil {
		m.log.WithError(err).Warn("Could not persist heartbeat snapshot")
	}
}

// Snapshot returns the last computed snapshot, possibly nil before the
// first check
func (m *Monitor) Snapshot() *contracts.HeartbeatSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// AllHealthy reports whether every source in the last snapshot is OK.
// It satisfies the scan cache's health gate.
func (m *Monitor) AllHealthy() bool {
	return m.Snapshot().AllHealthy()
}
