package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/alphastack/discovery/internal/contracts"
)

// CapError reports which notional cap a reservation would exceed,
// with the limit and the total that the intent would have produced
type CapError struct {
	Reason    contracts.RejectionReason
	Limit     float64
	Attempted float64
}

func (e *CapError) Error() string {
	return fmt.Sprintf("%s: limit $%.2f, would be $%.2f", e.Reason, e.Limit, e.Attempted)
}

// Ledger tracks daily and per-symbol notional exposure. Committed
// counters only ever reflect successfully placed orders; in-flight
// submissions hold a reservation so concurrent intents cannot race
// past a cap between check and placement. Counters roll over at
// midnight in the trading timezone.
type Ledger struct {
	mu sync.Mutex

	date          string
	dailyUsed     float64
	dailyPending  float64
	symbolUsed    map[string]float64
	symbolPending map[string]float64

	maxDaily  float64
	maxSymbol float64
	loc       *time.Location
	now       func() time.Time
}

// NewLedger creates an empty ledger for the given caps and timezone
func NewLedger(maxDaily, maxSymbol float64, loc *time.Location) *Ledger {
	l := &Ledger{
		maxDaily:      maxDaily,
		maxSymbol:     maxSymbol,
		loc:           loc,
		now:           time.Now,
		symbolUsed:    make(map[string]float64),
		symbolPending: make(map[string]float64),
	}
	l.date = l.today()
	return l
}

func (l *Ledger) today() string {
	return l.now().In(l.loc).Format("2006-01-02")
}

// rollIfNewDay resets all counters at the daily boundary. Caller holds mu.
func (l *Ledger) rollIfNewDay() {
	today := l.today()
	if today == l.date {
		return
	}
	l.date = today
	l.dailyUsed = 0
	l.dailyPending = 0
	l.symbolUsed = make(map[string]float64)
	l.symbolPending = make(map[string]float64)
}

// Reserve holds notional against both caps for an in-flight
// submission. Returns a CapError naming the violated cap; on error
// nothing is held.
func (l *Ledger) Reserve(symbol string, amount float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDay()

	if total := l.dailyUsed + l.dailyPending + amount; total > l.maxDaily {
		return &CapError{Reason: contracts.RejectDailyCap, Limit: l.maxDaily, Attempted: total}
	}
	if total := l.symbolUsed[symbol] + l.symbolPending[symbol] + amount; total > l.maxSymbol {
		return &CapError{Reason: contracts.RejectSymbolCap, Limit: l.maxSymbol, Attempted: total}
	}

	l.dailyPending += amount
	l.symbolPending[symbol] += amount
	return nil
}

// Commit converts a reservation into used exposure. accepted is the
// notional the broker actually took; the remainder of the reservation
// is released so a partial leg failure never leaves phantom exposure.
func (l *Ledger) Commit(symbol string, reserved, accepted float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDay()

	l.dailyPending -= reserved
	l.symbolPending[symbol] -= reserved
	if l.symbolPending[symbol] <= 0 {
		delete(l.symbolPending, symbol)
	}

	if accepted > 0 {
		l.dailyUsed += accepted
		l.symbolUsed[symbol] += accepted
	}
}

// Release drops a reservation without recording any exposure
func (l *Ledger) Release(symbol string, reserved float64) {
	l.Commit(symbol, reserved, 0)
}

// Snapshot returns the committed exposure for the current day
func (l *Ledger) Snapshot() *contracts.ExposureSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDay()

	perSymbol := make(map[string]float64, len(l.symbolUsed))
	for sym, used := range l.symbolUsed {
		perSymbol[sym] = used
	}
	return &contracts.ExposureSnapshot{
		Date:              l.date,
		DailyNotionalUsed: l.dailyUsed,
		PerSymbolNotional: perSymbol,
	}
}

// Restore loads persisted exposure after a restart. Snapshots from a
// previous trading day are ignored.
func (l *Ledger) Restore(snapshot *contracts.ExposureSnapshot) {
	if snapshot == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollIfNewDay()

	if snapshot.Date != l.date {
		return
	}
	l.dailyUsed = snapshot.DailyNotionalUsed
	for sym, used := range snapshot.PerSymbolNotional {
		l.symbolUsed[sym] = used
	}
}

// Reset clears all counters, used by the scheduled daily reset job
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.date = l.today()
	l.dailyUsed = 0
	l.dailyPending = 0
	l.symbolUsed = make(map[string]float64)
	l.symbolPending = make(map[string]float64)
}
