package heartbeat

import (
	"context"
	"time"
)

// FuncChecker adapts a client probe function into a Checker, so data
// source clients stay unaware of the monitor
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) (time.Time, error)
}

// NewFuncChecker wraps a probe function
func NewFuncChecker(name string, fn func(ctx context.Context) (time.Time, error)) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

// Name returns the source name
func (c *FuncChecker) Name() string { return c.name }

// Check runs the probe
func (c *FuncChecker) Check(ctx context.Context) (time.Time, error) {
	return c.fn(ctx)
}
