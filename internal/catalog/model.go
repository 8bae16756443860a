package catalog

import (
	"strings"
	"time"
)

// Category identifies one of the fixed contest award categories.
type Category string

const (
	// CategoryGroom is the "best groom" award.
	CategoryGroom Category = "groom"
	// CategoryBride is the "best bride" award.
	CategoryBride Category = "bride"
	// CategoryCreative is the "most creative" award.
	CategoryCreative Category = "creative"
)

// categoryOrder fixes the priority in which command text is matched against
// categories. First match wins.
var categoryOrder = []Category{CategoryGroom, CategoryBride, CategoryCreative}

// Categories returns the fixed category enumeration in priority order.
func Categories() []Category {
	return append([]Category(nil), categoryOrder...)
}

// ParseCategory scans the text for the first category keyword in priority
// order. The boolean is false when no keyword matches.
func ParseCategory(text string) (Category, bool) {
	lowered := strings.ToLower(text)
	for _, category := range categoryOrder {
		if strings.Contains(lowered, string(category)) {
			return category, true
		}
	}
	return "", false
}

// DisplayName returns the award title shown to participants.
func (c Category) DisplayName() string {
	switch c {
	case CategoryGroom:
		return "Best Groom Award"
	case CategoryBride:
		return "Best Bride Award"
	case CategoryCreative:
		return "Most Creative Award"
	default:
		return string(c)
	}
}

// Status is a curator-assigned review tag. Beyond the two well-known values
// any tag is accepted; only StatusApproved participates in finalization.
type Status string

const (
	// StatusPending marks a freshly committed submission awaiting review.
	StatusPending Status = "pending"
	// StatusApproved marks a curated submission; approved records are
	// immune to user-initiated overwrite.
	StatusApproved Status = "approved"
)

// Record is a single catalog entry for one submitted photo.
type Record struct {
	Key          string    `json:"key"`
	UserID       string    `json:"user_id"`
	Category     Category  `json:"category"`
	MediaURL     string    `json:"media_url"`
	UploaderName string    `json:"uploader_name"`
	Status       Status    `json:"status"`
	IsWinner     bool      `json:"is_winner"`
	CreatedAt    time.Time `json:"created_at"`
}

// Finalized reports whether the record is protected from overwrite: a
// curator approved it or crowned it a winner.
func (r Record) Finalized() bool {
	return r.Status == StatusApproved || r.IsWinner
}
