package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeFetcher struct {
	payload     []byte
	contentType string
	err         error
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.payload, f.contentType, nil
}

type fakeStore struct {
	reference string
	err       error
	lastKey   string
}

func (s *fakeStore) Store(_ context.Context, key string, _ []byte, _ string) (string, error) {
	s.lastKey = key
	if s.err != nil {
		return "", s.err
	}
	return s.reference, nil
}

func TestIngestReturnsStoreReference(t *testing.T) {
	store := &fakeStore{reference: "https://cdn.example.com/a.jpg"}
	pipeline, err := New(Config{
		Fetcher: &fakeFetcher{payload: []byte{1, 2, 3}, contentType: "image/jpeg"},
		Store:   store,
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	reference, err := pipeline.Ingest(context.Background(), "msg-1", "user-1")
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if reference != "https://cdn.example.com/a.jpg" {
		t.Fatalf("unexpected reference %q", reference)
	}
	if !strings.HasPrefix(store.lastKey, "submissions/user-1/") {
		t.Fatalf("expected user-scoped object key, got %q", store.lastKey)
	}
	if !strings.HasSuffix(store.lastKey, ".jpg") {
		t.Fatalf("expected jpg extension, got %q", store.lastKey)
	}
}

func TestIngestWrapsFetchFailure(t *testing.T) {
	pipeline, err := New(Config{
		Fetcher: &fakeFetcher{err: errors.New("connection reset")},
		Store:   &fakeStore{},
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	_, err = pipeline.Ingest(context.Background(), "msg-1", "user-1")
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestIngestWrapsStoreFailure(t *testing.T) {
	pipeline, err := New(Config{
		Fetcher: &fakeFetcher{payload: []byte{1}, contentType: "image/png"},
		Store:   &fakeStore{err: errors.New("bucket unavailable")},
	})
	if err != nil {
		t.Fatalf("failed to create pipeline: %v", err)
	}

	_, err = pipeline.Ingest(context.Background(), "msg-1", "user-1")
	if !errors.Is(err, ErrStore) {
		t.Fatalf("expected ErrStore, got %v", err)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Config{Store: &fakeStore{}}); err == nil {
		t.Fatalf("expected error without fetcher")
	}
	if _, err := New(Config{Fetcher: &fakeFetcher{}}); err == nil {
		t.Fatalf("expected error without store")
	}
}
