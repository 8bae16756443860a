package contest

import (
	"time"

	"github.com/snapfest/backend/internal/catalog"
)

// Stage is the sealed set of session progress variants. Each variant only
// carries the fields valid for its state, so an unset media reference cannot
// be read by mistake.
type Stage interface {
	isStage()
}

// StageWaitingPhoto means the user picked a category and owes a photo.
type StageWaitingPhoto struct {
	Category catalog.Category
}

func (StageWaitingPhoto) isStage() {}

// StageWaitingName means the photo was ingested and the user owes a nickname.
type StageWaitingName struct {
	Category catalog.Category
	MediaRef string
}

func (StageWaitingName) isStage() {}

// Session tracks one user's progress through the submission dialogue.
// Absence of a session means the user is idle.
type Session struct {
	UserID      string
	Stage       Stage
	LastUpdated time.Time
}
