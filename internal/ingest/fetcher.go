package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultFetchTimeout = 30 * time.Second

var errMissingContentBaseURL = errors.New("ingest: content base URL is required")

// HTTPFetcherConfig configures the chat-platform content client.
type HTTPFetcherConfig struct {
	// BaseURL is the content endpoint root; the handle and "/content"
	// are appended per request.
	BaseURL string
	// AccessToken, when set, is sent as a bearer token.
	AccessToken string
	Client      *http.Client
}

// HTTPFetcher downloads message content from the chat platform's content
// API. The response body is fully drained before the payload is returned.
type HTTPFetcher struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewHTTPFetcher constructs an HTTPFetcher with sane defaults.
func NewHTTPFetcher(cfg HTTPFetcherConfig) (*HTTPFetcher, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingContentBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &HTTPFetcher{
		baseURL:     baseURL,
		accessToken: cfg.AccessToken,
		client:      client,
	}, nil
}

// Fetch retrieves the full byte payload for the content handle.
func (f *HTTPFetcher) Fetch(ctx context.Context, handle string) ([]byte, string, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, "", fmt.Errorf("content handle is empty")
	}

	requestURL := fmt.Sprintf("%s/%s/content", f.baseURL, handle)
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return nil, "", err
	}
	if f.accessToken != "" {
		request.Header.Set("Authorization", "Bearer "+f.accessToken)
	}

	response, err := f.client.Do(request)
	if err != nil {
		return nil, "", err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("content endpoint returned status %d", response.StatusCode)
	}

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, "", err
	}

	contentType := response.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(payload)
	}
	return payload, contentType, nil
}
