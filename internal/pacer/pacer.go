// Package pacer provides an adaptive request gate for quota-limited APIs.
//
// The upstream quota is not published, so the gate starts at a floor
// interval, widens it multiplicatively when the server pushes back and
// narrows it again after successful calls.
package pacer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults mirror the pacing the indexer has historically run with.
const (
	DefaultFloor         = 1250 * time.Millisecond
	DefaultCeiling       = 2 * time.Second
	DefaultBackoffFactor = 1.2
	DefaultRelaxFactor   = 0.85
	DefaultRelaxAfter    = 1
)

// Config holds the tunable parameters of an Adaptive gate.
type Config struct {
	Floor         time.Duration // Minimum interval between requests
	Ceiling       time.Duration // Maximum interval reached by Backoff
	BackoffFactor float64       // Multiplier applied on Backoff (> 1)
	RelaxFactor   float64       // Multiplier applied on Relax (0 < f < 1)
	RelaxAfter    int           // Consecutive successes before one Relax step
}

// DefaultConfig returns the default pacing configuration.
func DefaultConfig() Config {
	return Config{
		Floor:         DefaultFloor,
		Ceiling:       DefaultCeiling,
		BackoffFactor: DefaultBackoffFactor,
		RelaxFactor:   DefaultRelaxFactor,
		RelaxAfter:    DefaultRelaxAfter,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Floor <= 0 {
		return fmt.Errorf("pacer floor must be positive, got %s", c.Floor)
	}
	if c.Ceiling < c.Floor {
		return fmt.Errorf("pacer ceiling %s is below floor %s", c.Ceiling, c.Floor)
	}
	if c.BackoffFactor <= 1 {
		return fmt.Errorf("pacer backoff factor must be > 1, got %g", c.BackoffFactor)
	}
	if c.RelaxFactor <= 0 || c.RelaxFactor >= 1 {
		return fmt.Errorf("pacer relax factor must be in (0, 1), got %g", c.RelaxFactor)
	}
	if c.RelaxAfter < 1 {
		return fmt.Errorf("pacer relax-after must be >= 1, got %d", c.RelaxAfter)
	}
	return nil
}

// Adaptive is a single global pacing gate. All callers sharing one
// Adaptive serialize through Wait, so it is safe to share between
// goroutines.
type Adaptive struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *zap.Logger

	mu       sync.Mutex
	interval time.Duration
	streak   int
}

// Option configures an Adaptive gate.
type Option func(*Adaptive)

// WithLogger sets the logger used to report interval changes.
func WithLogger(l *zap.Logger) Option {
	return func(a *Adaptive) {
		a.logger = l
	}
}

// New creates an Adaptive gate starting at the configured floor.
// Invalid configurations fall back to DefaultConfig.
func New(cfg Config, opts ...Option) *Adaptive {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	a := &Adaptive{
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(cfg.Floor), 1),
		logger:   zap.NewNop(),
		interval: cfg.Floor,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Wait blocks until at least the current interval has elapsed since the
// previous call returned, or ctx is done.
func (a *Adaptive) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// Interval returns the current inter-request interval.
func (a *Adaptive) Interval() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.interval
}

// Backoff widens the interval by the backoff factor, up to the ceiling,
// and resets the success streak.
func (a *Adaptive) Backoff() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.streak = 0
	next := time.Duration(float64(a.interval) * a.cfg.BackoffFactor)
	if next > a.cfg.Ceiling {
		next = a.cfg.Ceiling
	}
	a.set(next)
	a.logger.Debug("pacer backoff", zap.Duration("interval", next))
	return next
}

// Relax records a successful call. Once RelaxAfter consecutive successes
// have been seen the interval shrinks by the relax factor, never below the
// floor.
func (a *Adaptive) Relax() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.streak++
	if a.streak < a.cfg.RelaxAfter {
		return a.interval
	}
	a.streak = 0

	next := time.Duration(float64(a.interval) * a.cfg.RelaxFactor)
	if next < a.cfg.Floor {
		next = a.cfg.Floor
	}
	if next != a.interval {
		a.logger.Debug("pacer relax", zap.Duration("interval", next))
	}
	a.set(next)
	return next
}

// Reset returns the interval to the floor.
func (a *Adaptive) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.streak = 0
	a.set(a.cfg.Floor)
}

// set must be called with mu held.
func (a *Adaptive) set(d time.Duration) {
	if d == a.interval {
		return
	}
	a.interval = d
	a.limiter.SetLimit(rate.Every(d))
}
