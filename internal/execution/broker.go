package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
)

// Broker places bracket orders with the trading venue. The Alpaca
// client implements this; PaperBroker stands in for dry runs and tests.
type Broker interface {
	PlaceBracketOrder(ctx context.Context, order *contracts.BracketOrder) (*contracts.BracketOrder, error)
}

// PaperBroker accepts every order and assigns synthetic IDs. It keeps
// the orders it saw so tests can assert on exact legs.
type PaperBroker struct {
	mu     sync.Mutex
	seq    int
	orders []*contracts.BracketOrder

	// FailSymbols simulates venue rejections per symbol
	FailSymbols map[string]error
	// FailLegs simulates a rejection of specific legs (1 or 2)
	FailLegs map[int]error
}

// NewPaperBroker creates an always-accepting broker
func NewPaperBroker() *PaperBroker {
	return &PaperBroker{}
}

// PlaceBracketOrder records the order and returns it as SUBMITTED
func (b *PaperBroker) PlaceBracketOrder(ctx context.Context, order *contracts.BracketOrder) (*contracts.BracketOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.FailSymbols[order.Symbol]; ok {
		return nil, err
	}
	if err, ok := b.FailLegs[order.Leg]; ok {
		return nil, err
	}

	b.seq++
	placed := *order
	placed.ID = fmt.Sprintf("paper-%d", b.seq)
	placed.Status = contracts.StatusSubmitted
	placed.CreatedAt = time.Now()
	b.orders = append(b.orders, &placed)
	return &placed, nil
}

// Orders returns everything placed so far
func (b *PaperBroker) Orders() []*contracts.BracketOrder {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*contracts.BracketOrder, len(b.orders))
	copy(out, b.orders)
	return out
}
