package contracts

import (
	"context"
	"time"
)

// ⭐ SSOT: repository interfaces are defined here only

// DiscoveryRepository manages the "latest scored candidates" view
type DiscoveryRepository interface {
	// ReplaceLatest atomically swaps the stored snapshot for the key
	ReplaceLatest(ctx context.Context, entry *CacheEntry) error
	GetLatest(ctx context.Context, key string) (*CacheEntry, error)
}

// ExposureRepository persists the daily exposure ledger across restarts
type ExposureRepository interface {
	Get(ctx context.Context, date string) (*ExposureSnapshot, error)
	Save(ctx context.Context, snapshot *ExposureSnapshot) error
}

// HeartbeatRepository persists the last heartbeat snapshot
type HeartbeatRepository interface {
	Save(ctx context.Context, snapshot *HeartbeatSnapshot) error
	GetLatest(ctx context.Context) (*HeartbeatSnapshot, error)
}

// OrderRepository records submitted bracket legs and fills
type OrderRepository interface {
	Save(ctx context.Context, order *BracketOrder) error
	MarkFilled(ctx context.Context, orderID string, filledAt time.Time) error
	GetBySymbolAndDate(ctx context.Context, symbol string, date time.Time) ([]*BracketOrder, error)
}
