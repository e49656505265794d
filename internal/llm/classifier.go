package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

// Config holds configuration for the AI classifier.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	Endpoint    string
	// MaxRetries is the number of provider attempts per batch. The default
	// of 1 keeps every categorization run to a single external call.
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Classifier wraps a provider client with rate limiting, retries, and
// answer sanitation.
type Classifier struct {
	client      Client
	logger      *slog.Logger
	rateLimiter *rateLimiter
	retryOpts   common.RetryOptions
}

// NewClassifier creates a classifier for the configured provider.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	return NewClassifierWithClient(client, cfg, logger), nil
}

// NewClassifierWithClient wraps an existing client.
func NewClassifierWithClient(client Client, cfg Config, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if retryOpts.MaxAttempts <= 0 {
		retryOpts.MaxAttempts = 1
	}
	if retryOpts.InitialDelay == 0 {
		retryOpts.InitialDelay = time.Second
	}

	return &Classifier{
		client:      client,
		logger:      logger,
		retryOpts:   retryOpts,
		rateLimiter: newRateLimiter(cfg.RateLimit),
	}
}

// Name returns the underlying provider name.
func (c *Classifier) Name() string {
	return c.client.Name()
}

// ClassifyBatch sends every item in one provider call. Answers for IDs that
// were not asked about are dropped, as are repeated IDs after the first.
func (c *Classifier) ClassifyBatch(ctx context.Context, req BatchRequest) (BatchResponse, error) {
	if len(req.Items) == 0 {
		return BatchResponse{}, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return BatchResponse{}, fmt.Errorf("rate limit error: %w", err)
	}

	var resp BatchResponse
	err := common.WithRetry(ctx, func() error {
		c.logger.Debug("attempting batch classification",
			"provider", c.client.Name(),
			"items", len(req.Items))

		r, err := c.client.ClassifyBatch(ctx, req)
		if err != nil {
			c.logger.Warn("batch classification attempt failed",
				"provider", c.client.Name(),
				"error", err)
			return err
		}
		resp = r
		return nil
	}, c.retryOpts)
	if err != nil {
		return BatchResponse{}, &common.AdapterError{
			Err:      err,
			Provider: c.client.Name(),
			Items:    len(req.Items),
		}
	}

	clean := sanitize(req, resp)

	c.logger.Info("batch classified",
		"provider", c.client.Name(),
		"requested", len(req.Items),
		"answered", len(clean.Categories))

	return clean, nil
}

func sanitize(req BatchRequest, resp BatchResponse) BatchResponse {
	asked := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		asked[item.ID] = true
	}

	seen := make(map[string]bool, len(resp.Categories))
	out := BatchResponse{Categories: make([]BatchCategory, 0, len(resp.Categories))}
	for _, cat := range resp.Categories {
		if !asked[cat.ID] || seen[cat.ID] {
			continue
		}
		seen[cat.ID] = true

		out.Categories = append(out.Categories, BatchCategory{
			ID:         cat.ID,
			Category:   strings.ToLower(strings.TrimSpace(cat.Category)),
			Confidence: clamp(cat.Confidence),
		})
	}
	return out
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
