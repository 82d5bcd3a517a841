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

// ExposureRepository implements contracts.ExposureRepository
// ⭐ SSOT: exposure ledger persistence lives here only
type ExposureRepository struct {
	pool *pgxpool.Pool
}

// NewExposureRepository creates a new exposure repository
func NewExposureRepository(pool *pgxpool.Pool) *ExposureRepository {
	return &ExposureRepository{pool: pool}
}

// Get returns the ledger snapshot for a trading date (YYYY-MM-DD), or
// nil when nothing was saved for that date
func (r *ExposureRepository) Get(ctx context.Context, date string) (*contracts.ExposureSnapshot, error) {
	query := `
		SELECT trade_date, daily_notional_used, per_symbol
		FROM discovery.exposure_ledger
		WHERE trade_date = $1
	`

	var snapshot contracts.ExposureSnapshot
	var perSymbol []byte
	err := r.pool.QueryRow(ctx, query, date).Scan(
		&snapshot.Date, &snapshot.DailyNotionalUsed, &perSymbol,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exposure ledger: %w", err)
	}

	if err := json.Unmarshal(perSymbol, &snapshot.PerSymbolNotional); err != nil {
		return nil, fmt.Errorf("unmarshal per-symbol exposure: %w", err)
	}
	return &snapshot, nil
}

// Save upserts the snapshot for its trading date
func (r *ExposureRepository) Save(ctx context.Context, snapshot *contracts.ExposureSnapshot) error {
	perSymbol, err := json.Marshal(snapshot.PerSymbolNotional)
	if err != nil {
		return fmt.Errorf("marshal per-symbol exposure: %w", err)
	}

	query := `
		INSERT INTO discovery.exposure_ledger (
			trade_date, daily_notional_used, per_symbol, updated_at
		) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (trade_date) DO UPDATE SET
			daily_notional_used = EXCLUDED.daily_notional_used,
			per_symbol = EXCLUDED.per_symbol,
			updated_at = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		snapshot.Date, snapshot.DailyNotionalUsed, perSymbol,
	)
	if err != nil {
		return fmt.Errorf("failed to save exposure ledger: %w", err)
	}
	return nil
}
