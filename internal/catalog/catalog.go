package catalog

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrLocked indicates an overwrite attempt on a finalized record.
	ErrLocked = errors.New("catalog: record is finalized")
	// ErrWinnersLocked indicates winner assignments are frozen globally.
	ErrWinnersLocked = errors.New("catalog: winners are locked")
	// ErrUnknownKey indicates the catalog holds no record for the key.
	ErrUnknownKey = errors.New("catalog: unknown key")

	errInvalidCapacity = errors.New("catalog: capacity must be positive")
	noOpLogger         = zap.NewNop()
)

// Change describes a catalog mutation for change-feed subscribers.
type Change struct {
	Kind string `json:"kind"` // submission, status, winner, clear
	Key  string `json:"key,omitempty"`
}

// Config assembles the catalog dependencies.
type Config struct {
	// Capacity bounds the number of records; insertion past capacity
	// evicts the oldest surviving key.
	Capacity int
	// Clock stamps CreatedAt on first insert. Defaults to time.Now.
	Clock func() time.Time
	// WinnersLocked reports the global winners freeze. Defaults to
	// never locked.
	WinnersLocked func() bool
	Logger        *zap.Logger
}

// Catalog is the bounded key-to-record submission store. Eviction order is
// first-insert order: overwriting a key does not refresh its position, so
// the oldest participant is evicted first even when frequently updated.
type Catalog struct {
	mu            sync.RWMutex
	capacity      int
	records       map[string]Record
	order         []string
	clock         func() time.Time
	winnersLocked func() bool
	logger        *zap.Logger
	notify        func(Change)
}

// New constructs a Catalog from the provided configuration.
func New(cfg Config) (*Catalog, error) {
	if cfg.Capacity <= 0 {
		return nil, errInvalidCapacity
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	winnersLocked := cfg.WinnersLocked
	if winnersLocked == nil {
		winnersLocked = func() bool { return false }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Catalog{
		capacity:      cfg.Capacity,
		records:       make(map[string]Record),
		order:         make([]string, 0, cfg.Capacity),
		clock:         clock,
		winnersLocked: winnersLocked,
		logger:        logger,
	}, nil
}

// SetNotifier registers a callback invoked after every mutation. The
// callback runs outside the catalog lock and must not call back in.
func (c *Catalog) SetNotifier(notify func(Change)) {
	c.mu.Lock()
	c.notify = notify
	c.mu.Unlock()
}

// PutResult reports what a Put did beyond inserting.
type PutResult struct {
	// Replaced is true when a live record under the same key was
	// overwritten.
	Replaced bool
	// EvictedKey names the entry removed to make room, when any.
	EvictedKey string
}

// Put inserts or overwrites the record under key. Overwriting a finalized
// record is rejected with ErrLocked and leaves the catalog untouched. When
// the catalog is at capacity and the key is new, the single oldest entry is
// evicted first.
func (c *Catalog) Put(key string, record Record) (PutResult, error) {
	c.mu.Lock()

	existing, exists := c.records[key]
	if exists && existing.Finalized() {
		c.mu.Unlock()
		return PutResult{}, ErrLocked
	}

	result := PutResult{Replaced: exists}
	if !exists && len(c.records) >= c.capacity {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.records, oldest)
		result.EvictedKey = oldest
		c.logger.Info("catalog at capacity, evicted oldest entry",
			zap.String("evicted_key", oldest),
			zap.Int("capacity", c.capacity))
	}

	record.Key = key
	record.CreatedAt = c.clock().UTC()
	c.records[key] = record
	if !exists {
		c.order = append(c.order, key)
	}
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(Change{Kind: "submission", Key: key})
	}
	return result, nil
}

// SetWinner assigns or clears the winner flag. Assigning first clears the
// flag on every other record in the same category, under one lock, so no
// reader ever observes two winners in a category. Rejected entirely with
// ErrWinnersLocked while the global freeze is set.
func (c *Catalog) SetWinner(key string, value bool) error {
	if c.winnersLocked() {
		return ErrWinnersLocked
	}
	c.mu.Lock()
	if err := c.setWinnerLocked(key, value); err != nil {
		c.mu.Unlock()
		return err
	}
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(Change{Kind: "winner", Key: key})
	}
	return nil
}

func (c *Catalog) setWinnerLocked(key string, value bool) error {
	record, exists := c.records[key]
	if !exists {
		return ErrUnknownKey
	}
	if value {
		for otherKey, other := range c.records {
			if otherKey != key && other.Category == record.Category && other.IsWinner {
				other.IsWinner = false
				c.records[otherKey] = other
			}
		}
	}
	record.IsWinner = value
	c.records[key] = record
	return nil
}

// SetStatus updates the review tag on a record. No uniqueness constraint.
func (c *Catalog) SetStatus(key string, status Status) error {
	c.mu.Lock()
	if err := c.setStatusLocked(key, status); err != nil {
		c.mu.Unlock()
		return err
	}
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(Change{Kind: "status", Key: key})
	}
	return nil
}

func (c *Catalog) setStatusLocked(key string, status Status) error {
	record, exists := c.records[key]
	if !exists {
		return ErrUnknownKey
	}
	record.Status = status
	c.records[key] = record
	return nil
}

// UpdateItem is one entry of a batch update.
type UpdateItem struct {
	Key      string  `json:"key"`
	Status   *Status `json:"status,omitempty"`
	IsWinner *bool   `json:"is_winner,omitempty"`
}

// BatchResult counts the outcome of a batch update.
type BatchResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// BatchUpdate applies status and winner updates per item. Unknown keys and
// winner mutations attempted during the winners freeze are skipped and
// counted, never fatal to the batch. The whole batch runs under one lock;
// one change per applied mutation is emitted after release, none when the
// batch applied nothing.
func (c *Catalog) BatchUpdate(items []UpdateItem) BatchResult {
	winnersLocked := c.winnersLocked()

	c.mu.Lock()
	var result BatchResult
	changes := make([]Change, 0, len(items))
	for _, item := range items {
		applied := false
		skipped := false
		if item.Status != nil {
			if err := c.setStatusLocked(item.Key, *item.Status); err != nil {
				skipped = true
			} else {
				applied = true
				changes = append(changes, Change{Kind: "status", Key: item.Key})
			}
		}
		if item.IsWinner != nil {
			if winnersLocked {
				skipped = true
			} else if err := c.setWinnerLocked(item.Key, *item.IsWinner); err != nil {
				skipped = true
			} else {
				applied = true
				changes = append(changes, Change{Kind: "winner", Key: item.Key})
			}
		}
		if applied {
			result.Applied++
		}
		if skipped {
			result.Skipped++
		}
	}
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		for _, change := range changes {
			notify(change)
		}
	}
	return result
}

// Clear empties the catalog and returns the number of removed records.
func (c *Catalog) Clear() int {
	c.mu.Lock()
	removed := len(c.records)
	c.records = make(map[string]Record)
	c.order = c.order[:0]
	notify := c.notify
	c.mu.Unlock()

	if notify != nil {
		notify(Change{Kind: "clear"})
	}
	return removed
}

// Get returns the record under key, when present.
func (c *Catalog) Get(key string) (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	record, exists := c.records[key]
	return record, exists
}

// List returns all records in insertion order.
func (c *Catalog) List() []Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	records := make([]Record, 0, len(c.records))
	for _, key := range c.order {
		records = append(records, c.records[key])
	}
	return records
}

// Size returns the current number of records.
func (c *Catalog) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
