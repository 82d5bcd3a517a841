package execution

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/internal/contracts"
)

func TestLedgerReserveCommit(t *testing.T) {
	l := NewLedger(2000, 500, time.UTC)

	require.NoError(t, l.Reserve("AAPL", 300))
	l.Commit("AAPL", 300, 300)

	snap := l.Snapshot()
	assert.Equal(t, 300.0, snap.DailyNotionalUsed)
	assert.Equal(t, 300.0, snap.PerSymbolNotional["AAPL"])
}

func TestLedgerDailyCap(t *testing.T) {
	l := NewLedger(1000, 1000, time.UTC)

	require.NoError(t, l.Reserve("AAPL", 600))
	l.Commit("AAPL", 600, 600)

	err := l.Reserve("TSLA", 500)
	require.Error(t, err)

	capErr, ok := err.(*CapError)
	require.True(t, ok)
	assert.Equal(t, contracts.RejectDailyCap, capErr.Reason)
	assert.Equal(t, 1000.0, capErr.Limit)
	assert.Equal(t, 1100.0, capErr.Attempted)
}

func TestLedgerSymbolCap(t *testing.T) {
	l := NewLedger(5000, 500, time.UTC)

	require.NoError(t, l.Reserve("AAPL", 400))
	l.Commit("AAPL", 400, 400)

	err := l.Reserve("AAPL", 200)
	require.Error(t, err)

	capErr := err.(*CapError)
	assert.Equal(t, contracts.RejectSymbolCap, capErr.Reason)
	assert.Equal(t, 500.0, capErr.Limit)
	assert.Equal(t, 600.0, capErr.Attempted)

	// Another symbol is unaffected
	assert.NoError(t, l.Reserve("TSLA", 200))
}

// Reservations count against caps while in flight, so two concurrent
// intents cannot both pass a check the pair would violate.
func TestLedgerReservationBlocksConcurrentOverrun(t *testing.T) {
	l := NewLedger(1000, 1000, time.UTC)

	require.NoError(t, l.Reserve("AAPL", 600))

	err := l.Reserve("TSLA", 600)
	require.Error(t, err, "pending reservation must count against the daily cap")

	// Released reservation frees the headroom again
	l.Release("AAPL", 600)
	assert.NoError(t, l.Reserve("TSLA", 600))
	assert.Equal(t, 0.0, l.Snapshot().DailyNotionalUsed, "reservations are not exposure")
}

func TestLedgerPartialCommit(t *testing.T) {
	l := NewLedger(2000, 500, time.UTC)

	require.NoError(t, l.Reserve("AAPL", 300))
	// Only one $150 leg was accepted
	l.Commit("AAPL", 300, 150)

	snap := l.Snapshot()
	assert.Equal(t, 150.0, snap.DailyNotionalUsed)
	assert.Equal(t, 150.0, snap.PerSymbolNotional["AAPL"])

	// The unplaced $150 is free headroom again
	assert.NoError(t, l.Reserve("AAPL", 350))
}

func TestLedgerConcurrentReservations(t *testing.T) {
	l := NewLedger(1000, 1000, time.UTC)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0.0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Reserve("AAPL", 100); err == nil {
				l.Commit("AAPL", 100, 100)
				mu.Lock()
				granted += 100
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	snap := l.Snapshot()
	assert.Equal(t, granted, snap.DailyNotionalUsed)
	assert.LessOrEqual(t, snap.DailyNotionalUsed, 1000.0, "cap must hold under contention")
	assert.Equal(t, 1000.0, snap.DailyNotionalUsed, "exactly ten reservations fit")
}

func TestLedgerDailyRoll(t *testing.T) {
	l := NewLedger(1000, 1000, time.UTC)

	day := time.Date(2026, 8, 28, 15, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day }
	l.date = l.today()

	require.NoError(t, l.Reserve("AAPL", 1000))
	l.Commit("AAPL", 1000, 1000)
	require.Error(t, l.Reserve("AAPL", 1))

	// Next trading day: counters reset
	l.now = func() time.Time { return day.Add(24 * time.Hour) }
	assert.NoError(t, l.Reserve("AAPL", 1000))
	assert.Equal(t, "2026-08-29", l.Snapshot().Date)
}

func TestLedgerRestore(t *testing.T) {
	l := NewLedger(2000, 500, time.UTC)

	l.Restore(&contracts.ExposureSnapshot{
		Date:              l.Snapshot().Date,
		DailyNotionalUsed: 1800,
		PerSymbolNotional: map[string]float64{"AAPL": 400},
	})

	assert.Equal(t, 1800.0, l.Snapshot().DailyNotionalUsed)
	require.Error(t, l.Reserve("TSLA", 300), "restored exposure counts against caps")

	// Stale snapshot from a previous day is ignored
	fresh := NewLedger(2000, 500, time.UTC)
	fresh.Restore(&contracts.ExposureSnapshot{Date: "2020-01-01", DailyNotionalUsed: 1800})
	assert.Equal(t, 0.0, fresh.Snapshot().DailyNotionalUsed)
}

func TestLedgerReset(t *testing.T) {
	l := NewLedger(1000, 1000, time.UTC)
	require.NoError(t, l.Reserve("AAPL", 800))
	l.Commit("AAPL", 800, 800)

	l.Reset()
	assert.Equal(t, 0.0, l.Snapshot().DailyNotionalUsed)
	assert.NoError(t, l.Reserve("AAPL", 1000))
}
