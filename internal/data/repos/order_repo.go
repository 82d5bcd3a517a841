package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alphastack/discovery/internal/contracts"
)

// OrderRepository implements contracts.OrderRepository
// ⭐ SSOT: bracket order persistence lives here only
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Save upserts one bracket leg keyed by broker order ID
func (r *OrderRepository) Save(ctx context.Context, order *contracts.BracketOrder) error {
	query := `
		INSERT INTO discovery.bracket_orders (
			id, symbol, notional, limit_price,
			take_profit_price, stop_price, leg, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status
	`

	_, err := r.pool.Exec(ctx, query,
		order.ID, order.Symbol, order.Notional, order.LimitPrice,
		order.TakeProfitPrice, order.StopPrice, order.Leg,
		string(order.Status), order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save bracket order: %w", err)
	}
	return nil
}

// MarkFilled records a fill time and flips the order status
func (r *OrderRepository) MarkFilled(ctx context.Context, orderID string, filledAt time.Time) error {
	query := `
		UPDATE discovery.bracket_orders
		SET status = $2, filled_at = $3
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, orderID, string(contracts.StatusFilled), filledAt)
	if err != nil {
		return fmt.Errorf("failed to mark order filled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s not found", orderID)
	}
	return nil
}

// GetBySymbolAndDate returns the legs created for a symbol on a
// calendar date (UTC)
func (r *OrderRepository) GetBySymbolAndDate(ctx context.Context, symbol string, date time.Time) ([]*contracts.BracketOrder, error) {
	query := `
		SELECT id, symbol, notional, limit_price,
		       take_profit_price, stop_price, leg, status, created_at
		FROM discovery.bracket_orders
		WHERE symbol = $1
		  AND created_at >= $2
		  AND created_at < $2 + INTERVAL '1 day'
		ORDER BY created_at
	`

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	rows, err := r.pool.Query(ctx, query, symbol, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query bracket orders: %w", err)
	}
	defer rows.Close()

	orders := make([]*contracts.BracketOrder, 0)
	for rows.Next() {
		var order contracts.BracketOrder
		var status string
		err := rows.Scan(
			&order.ID, &order.Symbol, &order.Notional, &order.LimitPrice,
			&order.TakeProfitPrice, &order.StopPrice, &order.Leg,
			&status, &order.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		order.Status = contracts.Status(status)
		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}
	return orders, nil
}
