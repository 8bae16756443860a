package housekeeping

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingSessions = errors.New("housekeeping: session expirer is required")
	errInvalidInterval = errors.New("housekeeping: sweep interval must be positive")
	errInvalidTimeout  = errors.New("housekeeping: session timeout must be positive")
)

// SessionExpirer removes sessions last updated before the cutoff and
// returns how many were removed.
type SessionExpirer interface {
	Expire(before time.Time) int
}

// SweeperConfig assembles the expiry sweep dependencies.
type SweeperConfig struct {
	Sessions SessionExpirer
	// Interval is how often the sweep runs.
	Interval time.Duration
	// Timeout is how long an untouched session survives.
	Timeout time.Duration
	Clock   func() time.Time
	Logger  *zap.Logger
}

// Sweeper garbage-collects abandoned submission flows on a fixed interval.
// Expired users get no notification; a later event restarts from scratch.
type Sweeper struct {
	sessions SessionExpirer
	interval time.Duration
	timeout  time.Duration
	clock    func() time.Time
	logger   *zap.Logger
}

// NewSweeper constructs a Sweeper from the provided configuration.
func NewSweeper(cfg SweeperConfig) (*Sweeper, error) {
	if cfg.Sessions == nil {
		return nil, errMissingSessions
	}
	if cfg.Interval <= 0 {
		return nil, errInvalidInterval
	}
	if cfg.Timeout <= 0 {
		return nil, errInvalidTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{
		sessions: cfg.Sessions,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Run sweeps until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep expires stale sessions once. A panic inside the expirer is
// contained so the loop keeps running.
func (s *Sweeper) Sweep() {
	defer func() {
		if recovered := recover(); recovered != nil {
			s.logger.Error("session sweep panicked", zap.Any("panic", recovered))
		}
	}()

	cutoff := s.clock().Add(-s.timeout)
	removed := s.sessions.Expire(cutoff)
	if removed > 0 {
		s.logger.Info("expired stale sessions", zap.Int("removed", removed))
	}
}
