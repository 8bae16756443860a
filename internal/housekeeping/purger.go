package housekeeping

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var errMissingPurge = errors.New("housekeeping: purge callback is required")

// PurgerConfig assembles the inactivity purge dependencies.
type PurgerConfig struct {
	// Quiet is the sustained inactivity after which the purge fires.
	// A zero duration disables the purger entirely.
	Quiet time.Duration
	// Purge clears the catalog, sessions, and counters.
	Purge  func()
	Logger *zap.Logger
}

// Purger runs a single-shot timer that is rearmed on every user-facing
// activity. If it fires uninterrupted, the whole contest state is cleared.
type Purger struct {
	mu      sync.Mutex
	quiet   time.Duration
	purge   func()
	timer   *time.Timer
	stopped bool
	logger  *zap.Logger
}

// NewPurger constructs a Purger from the provided configuration.
func NewPurger(cfg PurgerConfig) (*Purger, error) {
	if cfg.Purge == nil {
		return nil, errMissingPurge
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Purger{quiet: cfg.Quiet, purge: cfg.Purge, logger: logger}, nil
}

// Enabled reports whether a quiescent duration was configured.
func (p *Purger) Enabled() bool {
	return p.quiet > 0
}

// Start arms the initial timer. A disabled purger does nothing.
func (p *Purger) Start() {
	if !p.Enabled() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer == nil && !p.stopped {
		p.timer = time.AfterFunc(p.quiet, p.fire)
	}
}

// Rearm pushes the purge deadline out by the full quiescent duration.
// Every core operation that represents activity funnels through here.
func (p *Purger) Rearm() {
	if !p.Enabled() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.timer != nil && !p.stopped {
		p.timer.Reset(p.quiet)
	}
}

// Stop cancels the timer permanently.
func (p *Purger) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	if p.timer != nil {
		p.timer.Stop()
	}
}

func (p *Purger) fire() {
	defer func() {
		if recovered := recover(); recovered != nil {
			p.logger.Error("inactivity purge panicked", zap.Any("panic", recovered))
		}
	}()

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	// Rearm for the next quiescent window before purging so a long-idle
	// process keeps resetting itself.
	p.timer.Reset(p.quiet)
	p.mu.Unlock()

	p.logger.Warn("inactivity window elapsed, purging contest state",
		zap.Duration("quiet", p.quiet))
	p.purge()
}
