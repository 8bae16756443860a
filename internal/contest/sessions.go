package contest

import (
	"sync"
	"time"

	"github.com/snapfest/backend/internal/catalog"
)

// Sessions owns the per-user session map, the per-user serialization locks,
// and the last-selected-category memory used by test mode.
type Sessions struct {
	mu           sync.Mutex
	sessions     map[string]Session
	lastCategory map[string]catalog.Category
	userLocks    map[string]*userLock
}

// userLock serializes one user's events. refs counts in-flight holders so
// the entry can be reclaimed when the last one releases.
type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessions constructs an empty session store.
func NewSessions() *Sessions {
	return &Sessions{
		sessions:     make(map[string]Session),
		lastCategory: make(map[string]catalog.Category),
		userLocks:    make(map[string]*userLock),
	}
}

// LockUser serializes event handling for one user and returns the unlock
// function. Two concurrent events for the same user would otherwise
// interleave across the ingestion await and corrupt the session. The lock
// entry is dropped once the last in-flight holder releases, so the map is
// bounded by concurrent users rather than all users ever seen.
func (s *Sessions) LockUser(userID string) func() {
	s.mu.Lock()
	lock, exists := s.userLocks[userID]
	if !exists {
		lock = &userLock{}
		s.userLocks[userID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.userLocks, userID)
		}
		s.mu.Unlock()
	}
}

// Get returns a copy of the user's session, when one exists.
func (s *Sessions) Get(userID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, exists := s.sessions[userID]
	return session, exists
}

// StartPhotoWait creates or replaces the user's session in the
// waiting-photo stage and remembers the selected category.
func (s *Sessions) StartPhotoWait(userID string, category catalog.Category, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = Session{
		UserID:      userID,
		Stage:       StageWaitingPhoto{Category: category},
		LastUpdated: now,
	}
	s.lastCategory[userID] = category
}

// AdvanceToName moves a waiting-photo session to waiting-name with the
// ingested media reference. It reports false when the user has no session
// in the waiting-photo stage.
func (s *Sessions) AdvanceToName(userID, mediaRef string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, exists := s.sessions[userID]
	if !exists {
		return false
	}
	waiting, ok := session.Stage.(StageWaitingPhoto)
	if !ok {
		return false
	}
	session.Stage = StageWaitingName{Category: waiting.Category, MediaRef: mediaRef}
	session.LastUpdated = now
	s.sessions[userID] = session
	return true
}

// Delete removes the user's session.
func (s *Sessions) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// LastCategory returns the category the user most recently selected, even
// after the session that selected it is gone.
func (s *Sessions) LastCategory(userID string) (catalog.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	category, exists := s.lastCategory[userID]
	return category, exists
}

// Expire deletes every session whose LastUpdated is before the cutoff and
// returns how many were removed. Expired flows get no notification.
func (s *Sessions) Expire(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for userID, session := range s.sessions {
		if session.LastUpdated.Before(before) {
			delete(s.sessions, userID)
			removed++
		}
	}
	return removed
}

// Clear removes all sessions and category memory.
func (s *Sessions) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]Session)
	s.lastCategory = make(map[string]catalog.Category)
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
