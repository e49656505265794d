package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

// serviceClient posts the batch contract as-is to a classification service
// and expects the response contract back.
type serviceClient struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

func newServiceClient(cfg Config) (Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("classification service endpoint is required: %w", common.ErrMissingConfig)
	}

	return &serviceClient{
		endpoint:   cfg.Endpoint,
		token:      cfg.APIKey,
		httpClient: newHTTPClient(cfg.Timeout),
	}, nil
}

func (c *serviceClient) Name() string { return "service" }

// ClassifyBatch sends {"items":[...]} and decodes {"categories":[...]}.
func (c *serviceClient) ClassifyBatch(ctx context.Context, batch BatchRequest) (BatchResponse, error) {
	jsonBody, err := json.Marshal(batch)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return BatchResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return BatchResponse{}, statusError("classification service", resp.StatusCode, body)
	}

	return parseBatchResponse(string(body))
}
