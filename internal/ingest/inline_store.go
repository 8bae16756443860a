package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"
	"go.uber.org/zap"
)

const (
	defaultMaxDimension = 1280
	defaultJPEGQuality  = 82
)

// InlineStoreConfig configures the local recompression strategy.
type InlineStoreConfig struct {
	// MaxDimension bounds the longer image edge after recompression.
	MaxDimension int
	// JPEGQuality is the encoder quality, 1..100.
	JPEGQuality int
	Logger      *zap.Logger
}

// InlineStore recompresses the image to a bounded resolution and returns a
// self-contained data URI, so no external object store is needed. A payload
// that cannot be decoded or re-encoded is passed through untouched rather
// than failing the ingestion.
type InlineStore struct {
	maxDimension int
	quality      int
	logger       *zap.Logger
}

// NewInlineStore constructs an InlineStore with sane defaults.
func NewInlineStore(cfg InlineStoreConfig) *InlineStore {
	maxDimension := cfg.MaxDimension
	if maxDimension <= 0 {
		maxDimension = defaultMaxDimension
	}
	quality := cfg.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = defaultJPEGQuality
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InlineStore{maxDimension: maxDimension, quality: quality, logger: logger}
}

// Store recompresses the payload and encodes it as a data URI.
func (s *InlineStore) Store(_ context.Context, key string, payload []byte, contentType string) (string, error) {
	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		s.logger.Warn("image decode failed, storing original bytes",
			zap.String("key", key),
			zap.Error(err))
		return dataURI(contentType, payload), nil
	}

	thumbnail := resize.Thumbnail(uint(s.maxDimension), uint(s.maxDimension), decoded, resize.Lanczos3)

	var buffer bytes.Buffer
	if err := jpeg.Encode(&buffer, thumbnail, &jpeg.Options{Quality: s.quality}); err != nil {
		s.logger.Warn("jpeg encode failed, storing original bytes",
			zap.String("key", key),
			zap.Error(err))
		return dataURI(contentType, payload), nil
	}

	return dataURI("image/jpeg", buffer.Bytes()), nil
}

func dataURI(contentType string, payload []byte) string {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(payload))
}
