package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrFetch indicates the byte payload could not be retrieved from the
	// content source.
	ErrFetch = errors.New("ingest: content fetch failed")
	// ErrStore indicates the transform/store strategy failed to produce a
	// durable reference.
	ErrStore = errors.New("ingest: store failed")

	errMissingFetcher = errors.New("ingest: fetcher is required")
	errMissingStore   = errors.New("ingest: blob store is required")
)

// Fetcher retrieves the full byte payload behind an opaque content handle.
// Implementations must drain the source completely before returning.
type Fetcher interface {
	Fetch(ctx context.Context, handle string) (payload []byte, contentType string, err error)
}

// BlobStore turns payload bytes into a stable reference string: a URL for
// external stores, or a self-contained encoded payload for the inline
// strategy.
type BlobStore interface {
	Store(ctx context.Context, key string, payload []byte, contentType string) (string, error)
}

// Config assembles the pipeline dependencies.
type Config struct {
	Fetcher Fetcher
	Store   BlobStore
	Logger  *zap.Logger
}

// Pipeline acquires media bytes and commits them through the configured
// store strategy. It never retries: callers surface failures to the end
// user, who re-uploads.
type Pipeline struct {
	fetcher Fetcher
	store   BlobStore
	logger  *zap.Logger
}

// New constructs a Pipeline from the provided configuration.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Fetcher == nil {
		return nil, errMissingFetcher
	}
	if cfg.Store == nil {
		return nil, errMissingStore
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{fetcher: cfg.Fetcher, store: cfg.Store, logger: logger}, nil
}

// Ingest retrieves the bytes behind handle, runs the store strategy, and
// returns the durable media reference.
func (p *Pipeline) Ingest(ctx context.Context, handle, userID string) (string, error) {
	payload, contentType, err := p.fetcher.Fetch(ctx, handle)
	if err != nil {
		p.logger.Warn("media fetch failed",
			zap.String("handle", handle),
			zap.String("user_id", userID),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	key := objectKey(userID, contentType)
	reference, err := p.store.Store(ctx, key, payload, contentType)
	if err != nil {
		p.logger.Warn("media store failed",
			zap.String("key", key),
			zap.String("user_id", userID),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrStore, err)
	}

	p.logger.Info("media ingested",
		zap.String("key", key),
		zap.String("user_id", userID),
		zap.Int("bytes", len(payload)))
	return reference, nil
}

func objectKey(userID, contentType string) string {
	extension := ".jpg"
	switch {
	case strings.Contains(contentType, "png"):
		extension = ".png"
	case strings.Contains(contentType, "gif"):
		extension = ".gif"
	}
	return fmt.Sprintf("submissions/%s/%s%s", userID, uuid.NewString(), extension)
}
