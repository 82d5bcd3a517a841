package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alphastack/discovery/internal/contracts"
)

// DiscoveryRepository implements contracts.DiscoveryRepository
// ⭐ SSOT: scan snapshot persistence lives here only
type DiscoveryRepository struct {
	pool *pgxpool.Pool
}

// NewDiscoveryRepository creates a new discovery repository
func NewDiscoveryRepository(pool *pgxpool.Pool) *DiscoveryRepository {
	return &DiscoveryRepository{pool: pool}
}

// ReplaceLatest swaps the stored snapshot for the entry's key. The
// upsert replaces the whole row so readers never see a half-written
// payload.
func (r *DiscoveryRepository) ReplaceLatest(ctx context.Context, entry *contracts.CacheEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("marshal scan payload: %w", err)
	}

	query := `
		INSERT INTO discovery.scan_snapshots (
			key, payload, source, updated_at,
			pre_filter_count, post_filter_count
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at,
			pre_filter_count = EXCLUDED.pre_filter_count,
			post_filter_count = EXCLUDED.post_filter_count
	`

	_, err = r.pool.Exec(ctx, query,
		entry.Key, payload, entry.Source, entry.UpdatedAt,
		entry.PreFilterCount, entry.PostFilterCount,
	)
	if err != nil {
		return fmt.Errorf("failed to replace scan snapshot: %w", err)
	}
	return nil
}

// GetLatest returns the stored snapshot for the key, or nil when none
// has been written yet
func (r *DiscoveryRepository) GetLatest(ctx context.Context, key string) (*contracts.CacheEntry, error) {
	query := `
		SELECT key, payload, source, updated_at,
		       pre_filter_count, post_filter_count
		FROM discovery.scan_snapshots
		WHERE key = $1
	`

	var entry contracts.CacheEntry
	var payload []byte
	err := r.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key, &payload, &entry.Source, &entry.UpdatedAt,
		&entry.PreFilterCount, &entry.PostFilterCount,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan snapshot: %w", err)
	}

	if err := json.Unmarshal(payload, &entry.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal scan payload: %w", err)
	}
	return &entry, nil
}
