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

// HeartbeatRepository implements contracts.HeartbeatRepository. Only
// the most recent snapshot is kept; a restart only needs the last
// known source states.
type HeartbeatRepository struct {
	pool *pgxpool.Pool
}

// NewHeartbeatRepository creates a new heartbeat repository
func NewHeartbeatRepository(pool *pgxpool.Pool) *HeartbeatRepository {
	return &HeartbeatRepository{pool: pool}
}

// Save replaces the stored snapshot
func (r *HeartbeatRepository) Save(ctx context.Context, snapshot *contracts.HeartbeatSnapshot) error {
	sources, err := json.Marshal(snapshot.Sources)
	if err != nil {
		return fmt.Errorf("marshal heartbeat sources: %w", err)
	}

	query := `
		INSERT INTO discovery.heartbeat (id, sources, checked_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET
			sources = EXCLUDED.sources,
			checked_at = EXCLUDED.checked_at
	`

	if _, err := r.pool.Exec(ctx, query, sources, snapshot.CheckedAt); err != nil {
		return fmt.Errorf("failed to save heartbeat: %w", err)
	}
	return nil
}

// GetLatest returns the stored snapshot, or nil when none exists
func (r *HeartbeatRepository) GetLatest(ctx context.Context) (*contracts.HeartbeatSnapshot, error) {
	query := `SELECT sources, checked_at FROM discovery.heartbeat WHERE id = 1`

	var snapshot contracts.HeartbeatSnapshot
	var sources []byte
	err := r.pool.QueryRow(ctx, query).Scan(&sources, &snapshot.CheckedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get heartbeat: %w", err)
	}

	if err := json.Unmarshal(sources, &snapshot.Sources); err != nil {
		return nil, fmt.Errorf("unmarshal heartbeat sources: %w", err)
	}
	return &snapshot, nil
}
