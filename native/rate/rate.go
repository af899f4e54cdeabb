// Package rate simulates the BCH/USD exchange rate used to price the catalog.
package rate

import (
	"errors"
	"sync"
	"time"

	"nexuscash/core/money"
	"nexuscash/core/random"
)

const (
	// DefaultRate is the BCH/USD rate the demo boots with.
	DefaultRate = 300.0
	// MinRate and MaxRate bound every simulated sync.
	MinRate = 180.0
	MaxRate = 700.0
	// MaxDrift is the absolute fractional drift applied per sync.
	MaxDrift = 0.04
)

// ErrInvalidRate is returned when a non-positive or non-finite rate is supplied.
var ErrInvalidRate = errors.New("rate: invalid exchange rate")

// Quote is a point-in-time view of the engine.
type Quote struct {
	Rate     float64   `json:"rate"`
	SyncedAt time.Time `json:"syncedAt"`
}

// Engine holds the mutable simulated exchange rate.
type Engine struct {
	mu       sync.RWMutex
	rate     float64
	syncedAt time.Time
	rand     random.Source
	now      func() time.Time
}

// Option customises the engine.
type Option func(*Engine)

// WithClock sets the function used to stamp syncs.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.now = clock }
}

// WithRandom injects the drift source.
func WithRandom(src random.Source) Option {
	return func(e *Engine) { e.rand = src }
}

// NewEngine constructs an engine at the initial rate. A non-positive initial
// rate falls back to DefaultRate.
func NewEngine(initial float64, opts ...Option) *Engine {
	if initial <= 0 || !money.Finite(initial) {
		initial = DefaultRate
	}
	e := &Engine{rate: initial, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	if e.rand == nil {
		e.rand = random.NewSource(0)
	}
	e.syncedAt = e.now()
	return e
}

// Rate returns the current rate.
func (e *Engine) Rate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rate
}

// Quote returns the current rate and the time it was last synced.
func (e *Engine) Quote() Quote {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Quote{Rate: e.rate, SyncedAt: e.syncedAt}
}

// Sync applies a uniform drift in [-4%, +4%) and clamps the result to the
// allowed band. It returns the previous and the new rate.
func (e *Engine) Sync() (previous, next float64) {
	drift := e.rand.Float64()*(2*MaxDrift) - MaxDrift
	e.mu.Lock()
	defer e.mu.Unlock()
	previous = e.rate
	next = Drift(previous, drift)
	e.rate = next
	e.syncedAt = e.now()
	return previous, next
}

// Set overrides the rate, for operators pinning a demo price.
func (e *Engine) Set(value float64) error {
	if value <= 0 || !money.Finite(value) {
		return ErrInvalidRate
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = money.RoundUSD(value)
	e.syncedAt = e.now()
	return nil
}

// Drift computes the clamped, cent-rounded rate after applying drift.
func Drift(current, drift float64) float64 {
	return money.RoundUSD(money.Clamp(current*(1+drift), MinRate, MaxRate))
}
