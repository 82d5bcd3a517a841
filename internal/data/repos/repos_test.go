package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphastack/discovery/internal/contracts"
)

// Integration tests: run only against a real database.

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(context.Background(), pool))
	return pool
}

func TestDiscoveryRepositoryRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewDiscoveryRepository(pool)
	ctx := context.Background()

	entry := &contracts.CacheEntry{
		Key: "test:scan:roundtrip",
		Payload: []contracts.ScoreResult{
			{
				Symbol:    "VIGL",
				Composite: 87,
				Components: map[string]float64{
					contracts.ComponentVolume: 92,
				},
				Action:   contracts.ActionBuy,
				Price:    10.5,
				ScoredAt: time.Now().UTC().Truncate(time.Second),
			},
		},
		Source:          "live",
		UpdatedAt:       time.Now().UTC().Truncate(time.Second),
		PreFilterCount:  120,
		PostFilterCount: 1,
	}

	require.NoError(t, repo.ReplaceLatest(ctx, entry))

	got, err := repo.GetLatest(ctx, entry.Key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.Key, got.Key)
	assert.Equal(t, "live", got.Source)
	assert.Equal(t, 120, got.PreFilterCount)
	require.Len(t, got.Payload, 1)
	assert.Equal(t, "VIGL", got.Payload[0].Symbol)

	// Replace swaps in place: a second write leaves exactly one snapshot
	entry.Payload = nil
	entry.Source = "live"
	entry.PostFilterCount = 0
	require.NoError(t, repo.ReplaceLatest(ctx, entry))

	got, err = repo.GetLatest(ctx, entry.Key)
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
}

func TestDiscoveryRepositoryMissingKey(t *testing.T) {
	pool := testPool(t)
	repo := NewDiscoveryRepository(pool)

	got, err := repo.GetLatest(context.Background(), "test:scan:never-written")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExposureRepositoryRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewExposureRepository(pool)
	ctx := context.Background()

	snapshot := &contracts.ExposureSnapshot{
		Date:              "2099-01-02",
		DailyNotionalUsed: 1250,
		PerSymbolNotional: map[string]float64{"VIGL": 500, "QUBT": 750},
	}

	require.NoError(t, repo.Save(ctx, snapshot))

	got, err := repo.Get(ctx, snapshot.Date)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1250.0, got.DailyNotionalUsed)
	assert.Equal(t, 500.0, got.PerSymbolNotional["VIGL"])

	missing, err := repo.Get(ctx, "2099-01-03")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHeartbeatRepositoryRoundTrip(t *testing.T) {
	pool := testPool(t)
	repo := NewHeartbeatRepository(pool)
	ctx := context.Background()

	snapshot := &contracts.HeartbeatSnapshot{
		Sources: map[string]contracts.SourceHealth{
			"polygon": {
				Status:             contracts.SourceOK,
				LastOkAt:           time.Now().UTC().Truncate(time.Second),
				LastCheckedAt:      time.Now().UTC().Truncate(time.Second),
				FreshnessThreshold: 10 * time.Minute,
			},
		},
		CheckedAt: time.Now().UTC().Truncate(time.Second),
	}

	require.NoError(t, repo.Save(ctx, snapshot))

	got, err := repo.GetLatest(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, contracts.SourceOK, got.Sources["polygon"].Status)
}

func TestOrderRepositoryLifecycle(t *testing.T) {
	pool := testPool(t)
	repo := NewOrderRepository(pool)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	order := &contracts.BracketOrder{
		ID:              "test-order-" + now.Format("20060102150405"),
		Symbol:          "TESTSYM",
		Notional:        150,
		LimitPrice:      10,
		TakeProfitPrice: 12,
		StopPrice:       9,
		Leg:             1,
		Status:          contracts.StatusSubmitted,
		CreatedAt:       now,
	}

	require.NoError(t, repo.Save(ctx, order))

	require.NoError(t, repo.MarkFilled(ctx, order.ID, now.Add(time.Minute)))

	orders, err := repo.GetBySymbolAndDate(ctx, "TESTSYM", now)
	require.NoError(t, err)
	require.NotEmpty(t, orders)

	var found *contracts.BracketOrder
	for _, o := range orders {
		if o.ID == order.ID {
			found = o
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, contracts.StatusFilled, found.Status)

	assert.Error(t, repo.MarkFilled(ctx, "no-such-order", now))
}
