package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

// Client defines the interface for classifier providers.
type Client interface {
	ClassifyBatch(ctx context.Context, req BatchRequest) (BatchResponse, error)
	Name() string
}

// BatchItem is one statement line sent for classification.
type BatchItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// BatchRequest is the wire contract sent to the classifier.
type BatchRequest struct {
	Items []BatchItem `json:"items"`
}

// BatchCategory is the classifier's answer for one item.
type BatchCategory struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// BatchResponse is the wire contract returned by the classifier.
type BatchResponse struct {
	Categories []BatchCategory `json:"categories"`
}

// defaultTimeout bounds a single provider HTTP call.
const defaultTimeout = 30 * time.Second

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// statusError classifies a non-200 provider response for the retry loop.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(string(body), 512))

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= 500:
		return fmt.Errorf("%w: %w", common.ErrAdapterUnavailable, err)
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

// malformed marks a response that will not improve on retry.
func malformed(err error) error {
	return &common.RetryableError{
		Err:       fmt.Errorf("%w: %w", common.ErrMalformedResponse, err),
		Retryable: false,
	}
}

// IsMalformed reports whether err came from an unparseable classifier answer.
func IsMalformed(err error) bool {
	return errors.Is(err, common.ErrMalformedResponse)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
