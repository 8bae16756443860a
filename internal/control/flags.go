package control

import (
	"sync"
	"time"
)

// Flags holds the process-wide control state read by every core component:
// test mode, whether submissions are open, the winners freeze, the guest
// counter used for test-mode auto naming, and the last-activity timestamp.
// Toggles take effect on the next event; there is no transactional rollback.
type Flags struct {
	mu              sync.Mutex
	testMode        bool
	submissionsOpen bool
	winnersLocked   bool
	guestCounter    int
	lastActivity    time.Time

	clock      func() time.Time
	onActivity func()
}

// NewFlags constructs control flags with submissions open and everything
// else off. A nil clock defaults to time.Now.
func NewFlags(clock func() time.Time) *Flags {
	if clock == nil {
		clock = time.Now
	}
	return &Flags{
		submissionsOpen: true,
		clock:           clock,
		lastActivity:    clock(),
	}
}

// OnActivity registers a callback invoked on every Touch. The housekeeping
// purge timer rearms through this hook.
func (f *Flags) OnActivity(callback func()) {
	f.mu.Lock()
	f.onActivity = callback
	f.mu.Unlock()
}

// Touch records user-facing activity and notifies the activity listener.
func (f *Flags) Touch() {
	f.mu.Lock()
	f.lastActivity = f.clock()
	callback := f.onActivity
	f.mu.Unlock()
	if callback != nil {
		callback()
	}
}

// LastActivity returns the most recent activity timestamp.
func (f *Flags) LastActivity() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActivity
}

// TestMode reports whether the one-record-per-user constraint is relaxed.
func (f *Flags) TestMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.testMode
}

// SetTestMode flips the test-mode flag.
func (f *Flags) SetTestMode(enabled bool) {
	f.mu.Lock()
	f.testMode = enabled
	f.mu.Unlock()
}

// SubmissionsOpen reports whether new submissions are accepted.
func (f *Flags) SubmissionsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissionsOpen
}

// SetSubmissionsOpen flips the submissions-open flag.
func (f *Flags) SetSubmissionsOpen(open bool) {
	f.mu.Lock()
	f.submissionsOpen = open
	f.mu.Unlock()
}

// WinnersLocked reports whether winner assignments are frozen.
func (f *Flags) WinnersLocked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.winnersLocked
}

// SetWinnersLocked flips the winners freeze flag.
func (f *Flags) SetWinnersLocked(locked bool) {
	f.mu.Lock()
	f.winnersLocked = locked
	f.mu.Unlock()
}

// NextGuestNumber increments and returns the test-mode guest counter.
func (f *Flags) NextGuestNumber() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guestCounter++
	return f.guestCounter
}

// ResetGuestCounter zeroes the guest counter. Called on catalog clears.
func (f *Flags) ResetGuestCounter() {
	f.mu.Lock()
	f.guestCounter = 0
	f.mu.Unlock()
}

// Snapshot returns the current toggle values for the admin surface.
func (f *Flags) Snapshot() (testMode, submissionsOpen, winnersLocked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.testMode, f.submissionsOpen, f.winnersLocked
}
