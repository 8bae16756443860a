package ingest

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatalf("failed to encode test png: %v", err)
	}
	return buffer.Bytes()
}

func TestInlineStoreRecompressesToDataURI(t *testing.T) {
	store := NewInlineStore(InlineStoreConfig{MaxDimension: 8, JPEGQuality: 70})

	reference, err := store.Store(context.Background(), "submissions/u/a.png", encodeTestPNG(t, 32, 16), "image/png")
	if err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if !strings.HasPrefix(reference, "data:image/jpeg;base64,") {
		t.Fatalf("expected jpeg data URI, got prefix %q", reference[:32])
	}

	payload, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(reference, "data:image/jpeg;base64,"))
	if err != nil {
		t.Fatalf("reference payload not base64: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("recompressed payload not decodable: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() > 8 || bounds.Dy() > 8 {
		t.Fatalf("expected bounded dimensions, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestInlineStorePassesThroughUndecodablePayload(t *testing.T) {
	store := NewInlineStore(InlineStoreConfig{})
	original := []byte("definitely not an image")

	reference, err := store.Store(context.Background(), "submissions/u/a.bin", original, "application/octet-stream")
	if err != nil {
		t.Fatalf("store must degrade gracefully, got %v", err)
	}
	expected := "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(original)
	if reference != expected {
		t.Fatalf("expected original bytes passed through, got %q", reference)
	}
}
