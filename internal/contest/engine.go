package contest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/snapfest/backend/internal/catalog"
	"github.com/snapfest/backend/internal/control"
)

const defaultNicknameMaxRunes = 10

var (
	errMissingSessions = errors.New("contest: session store is required")
	errMissingCatalog  = errors.New("contest: catalog is required")
	errMissingIngester = errors.New("contest: media ingester is required")
	errMissingFlags    = errors.New("contest: control flags are required")
)

// MediaIngester acquires the bytes behind an opaque content handle and
// returns a durable media reference.
type MediaIngester interface {
	Ingest(ctx context.Context, handle, userID string) (string, error)
}

// EngineConfig assembles the engine dependencies.
type EngineConfig struct {
	Sessions *Sessions
	Catalog  *catalog.Catalog
	Ingester MediaIngester
	Flags    *control.Flags
	Keys     KeyProvider
	Clock    func() time.Time
	// NicknameMaxRunes bounds uploader nicknames, counted in runes.
	NicknameMaxRunes int
	Logger           *zap.Logger
}

// Engine drives the per-user submission dialogue: category selection, photo
// capture, nickname confirmation. It owns no transport; every event yields
// an Outcome the caller delivers.
type Engine struct {
	sessions         *Sessions
	catalog          *catalog.Catalog
	ingester         MediaIngester
	flags            *control.Flags
	keys             KeyProvider
	clock            func() time.Time
	nicknameMaxRunes int
	logger           *zap.Logger
}

// NewEngine constructs an Engine from the provided configuration.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Sessions == nil {
		return nil, errMissingSessions
	}
	if cfg.Catalog == nil {
		return nil, errMissingCatalog
	}
	if cfg.Ingester == nil {
		return nil, errMissingIngester
	}
	if cfg.Flags == nil {
		return nil, errMissingFlags
	}
	keys := cfg.Keys
	if keys == nil {
		keys = NewUUIDKeyProvider()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	nicknameMaxRunes := cfg.NicknameMaxRunes
	if nicknameMaxRunes <= 0 {
		nicknameMaxRunes = defaultNicknameMaxRunes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		sessions:         cfg.Sessions,
		catalog:          cfg.Catalog,
		ingester:         cfg.Ingester,
		flags:            cfg.Flags,
		keys:             keys,
		clock:            clock,
		nicknameMaxRunes: nicknameMaxRunes,
		logger:           logger,
	}, nil
}

// HandleEvent routes one inbound event through the state machine and
// returns the outcome. Events for the same user are serialized; a panic in
// handling is contained to this event and logged.
func (e *Engine) HandleEvent(ctx context.Context, event InboundEvent) (outcome Outcome) {
	defer func() {
		if recovered := recover(); recovered != nil {
			e.logger.Error("event handling panicked",
				zap.Any("panic", recovered),
				zap.String("user_id", event.UserID),
				zap.String("event_type", string(event.Type)))
			outcome = Silent()
		}
	}()

	if strings.TrimSpace(event.UserID) == "" {
		return Passthrough()
	}

	unlock := e.sessions.LockUser(event.UserID)
	defer unlock()

	switch event.Type {
	case EventText:
		return e.handleText(event.UserID, event.Text)
	case EventImage:
		return e.handleImage(ctx, event.UserID, event.MediaHandle)
	case EventVideo:
		return Reply(msgPhotosOnly)
	default:
		return Passthrough()
	}
}

func (e *Engine) handleText(userID, text string) Outcome {
	text = strings.TrimSpace(text)

	if session, exists := e.sessions.Get(userID); exists {
		if stage, ok := session.Stage.(StageWaitingName); ok {
			return e.finalize(userID, stage, text)
		}
	}

	if strings.Contains(text, entryCommand) {
		if !e.flags.SubmissionsOpen() {
			return Reply(msgEntryClosed)
		}
		category, matched := catalog.ParseCategory(text)
		if !matched {
			return Passthrough()
		}
		e.flags.Touch()
		e.sessions.StartPhotoWait(userID, category, e.clock())
		e.logger.Info("submission flow started",
			zap.String("user_id", userID),
			zap.String("category", string(category)))
		// Category selection is a silent transition: the menu UI already
		// confirms the choice.
		return Silent()
	}

	return Passthrough()
}

func (e *Engine) finalize(userID string, stage StageWaitingName, text string) Outcome {
	name := truncateNickname(text, e.nicknameMaxRunes)
	e.flags.Touch()

	key, err := e.submissionKey(userID)
	if err != nil {
		e.logger.Error("submission key generation failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return Reply(msgUploadRetry)
	}

	result, err := e.catalog.Put(key, catalog.Record{
		UserID:       userID,
		Category:     stage.Category,
		MediaURL:     stage.MediaRef,
		UploaderName: name,
		Status:       catalog.StatusPending,
	})
	if errors.Is(err, catalog.ErrLocked) {
		e.sessions.Delete(userID)
		e.logger.Info("overwrite of finalized entry rejected",
			zap.String("user_id", userID),
			zap.String("key", key))
		return Reply(msgEntryLocked)
	}
	if err != nil {
		e.logger.Error("submission commit failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return Reply(msgUploadRetry)
	}

	e.sessions.Delete(userID)
	e.logger.Info("submission committed",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.String("category", string(stage.Category)),
		zap.String("uploader", name),
		zap.Int("catalog_size", e.catalog.Size()))

	if result.Replaced && !e.flags.TestMode() {
		return Reply(fmt.Sprintf(fmtUpdatedEntry, name))
	}
	return Reply(fmt.Sprintf(fmtFirstEntry, name))
}

func (e *Engine) handleImage(ctx context.Context, userID, mediaHandle string) Outcome {
	if !e.flags.SubmissionsOpen() {
		return Reply(msgImageClosed)
	}

	if e.flags.TestMode() {
		return e.handleTestModeImage(ctx, userID, mediaHandle)
	}

	session, exists := e.sessions.Get(userID)
	if !exists {
		return Reply(msgSelectCategoryFirst)
	}
	if _, ok := session.Stage.(StageWaitingPhoto); !ok {
		return Reply(msgSelectCategoryFirst)
	}

	e.flags.Touch()
	mediaRef, err := e.ingester.Ingest(ctx, mediaHandle, userID)
	if err != nil {
		// The user restarts from category selection after a failure.
		e.sessions.Delete(userID)
		e.logger.Warn("image ingestion failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return Reply(msgUploadRetry)
	}

	e.sessions.AdvanceToName(userID, mediaRef, e.clock())
	return Reply(fmt.Sprintf(fmtAskNickname, e.nicknameMaxRunes))
}

// handleTestModeImage auto-finalizes without the nickname step: rehearsal
// traffic gets a generated guest name and a unique key per upload.
func (e *Engine) handleTestModeImage(ctx context.Context, userID, mediaHandle string) Outcome {
	category := catalog.CategoryCreative
	session, _ := e.sessions.Get(userID)
	if stage, ok := session.Stage.(StageWaitingPhoto); ok {
		category = stage.Category
	} else if last, exists := e.sessions.LastCategory(userID); exists {
		category = last
	}

	e.flags.Touch()
	mediaRef, err := e.ingester.Ingest(ctx, mediaHandle, userID)
	if err != nil {
		e.logger.Warn("test-mode ingestion failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return Reply(msgUploadRetry)
	}

	guestName := fmt.Sprintf("Guest %d", e.flags.NextGuestNumber())
	key, err := e.submissionKey(userID)
	if err != nil {
		e.logger.Error("submission key generation failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return Reply(msgUploadRetry)
	}

	if _, err := e.catalog.Put(key, catalog.Record{
		UserID:       userID,
		Category:     category,
		MediaURL:     mediaRef,
		UploaderName: guestName,
		Status:       catalog.StatusPending,
	}); err != nil {
		e.logger.Error("test-mode commit failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return Reply(msgUploadRetry)
	}

	e.logger.Info("test-mode submission committed",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.String("category", string(category)),
		zap.String("uploader", guestName))
	return Reply(fmt.Sprintf(fmtTestModeReceived, guestName, category.DisplayName()))
}

// submissionKey derives the catalog key: the user identity in normal mode,
// a unique per-upload key in test mode.
func (e *Engine) submissionKey(userID string) (string, error) {
	if !e.flags.TestMode() {
		return userID, nil
	}
	suffix, err := e.keys.NewKey()
	if err != nil {
		return "", err
	}
	return userID + "#" + suffix, nil
}

func truncateNickname(text string, maxRunes int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	return string(runes)
}
