package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
)

func testBatch() BatchRequest {
	return BatchRequest{Items: []BatchItem{
		{ID: "t1", Description: "UBER *TRIP"},
		{ID: "t2", Description: "PADARIA DO JOAO"},
	}}
}

func TestOpenAIClient_ClassifyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body["model"])

		content := "```json\n{\"categories\":[{\"id\":\"t1\",\"category\":\"transport\",\"confidence\":0.95}]}\n```"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "openai", APIKey: "test-key", Endpoint: server.URL})
	require.NoError(t, err)
	assert.Equal(t, "openai", client.Name())

	resp, err := client.ClassifyBatch(context.Background(), testBatch())
	require.NoError(t, err)
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "transport", resp.Categories[0].Category)
	assert.InDelta(t, 0.95, resp.Categories[0].Confidence, 1e-9)
}

func TestAnthropicClient_ClassifyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{
				{"type": "text", "text": `Here you go: {"categories":[{"id":"t2","category":"food","confidence":0.9}]}`},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "anthropic", APIKey: "test-key", Endpoint: server.URL})
	require.NoError(t, err)

	resp, err := client.ClassifyBatch(context.Background(), testBatch())
	require.NoError(t, err)
	require.Len(t, resp.Categories, 1)
	assert.Equal(t, "t2", resp.Categories[0].ID)
	assert.Equal(t, "food", resp.Categories[0].Category)
}

func TestServiceClient_ClassifyBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req BatchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Items, 2)

		resp := BatchResponse{}
		for _, item := range req.Items {
			resp.Categories = append(resp.Categories, BatchCategory{ID: item.ID, Category: "other", Confidence: 0.5})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client, err := NewClient(Config{Provider: "service", Endpoint: server.URL})
	require.NoError(t, err)

	resp, err := client.ClassifyBatch(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Len(t, resp.Categories, 2)
}

func TestNewClient_Errors(t *testing.T) {
	_, err := NewClient(Config{Provider: "openai"})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient(Config{Provider: "service"})
	require.ErrorIs(t, err, common.ErrMissingConfig)

	_, err = NewClient(Config{Provider: "carrier-pigeon"})
	require.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestStatusError(t *testing.T) {
	assert.ErrorIs(t, statusError("x", http.StatusTooManyRequests, nil), common.ErrRateLimit)
	assert.ErrorIs(t, statusError("x", http.StatusBadGateway, nil), common.ErrAdapterUnavailable)

	var retryable *common.RetryableError
	require.ErrorAs(t, statusError("x", http.StatusUnauthorized, []byte("nope")), &retryable)
	assert.False(t, retryable.Retryable)
}

func TestParseBatchResponse_Malformed(t *testing.T) {
	_, err := parseBatchResponse("I think it is food")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))

	_, err = parseBatchResponse("")
	assert.True(t, IsMalformed(err))
}

func TestClassifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(BatchResponse{Categories: []BatchCategory{
			{ID: "t1", Category: " Transport ", Confidence: 1.7},
			{ID: "t1", Category: "food", Confidence: 0.9},
			{ID: "ghost", Category: "food", Confidence: 0.9},
			{ID: "t2", Category: "food", Confidence: -0.3},
		}})
	}))
	defer server.Close()

	classifier, err := NewClassifier(Config{
		Provider:   "service",
		Endpoint:   server.URL,
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	resp, err := classifier.ClassifyBatch(context.Background(), testBatch())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	require.Len(t, resp.Categories, 2)
	assert.Equal(t, BatchCategory{ID: "t1", Category: "transport", Confidence: 1}, resp.Categories[0])
	assert.Equal(t, BatchCategory{ID: "t2", Category: "food", Confidence: 0}, resp.Categories[1])
}

func TestClassifier_DefaultMakesOneCall(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	classifier, err := NewClassifier(Config{Provider: "service", Endpoint: server.URL}, nil)
	require.NoError(t, err)

	_, err = classifier.ClassifyBatch(context.Background(), testBatch())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var adapterErr *common.AdapterError
	assert.ErrorAs(t, err, &adapterErr)
}

func TestClassifier_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	classifier, err := NewClassifier(Config{
		Provider:   "service",
		Endpoint:   server.URL,
		RetryDelay: time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = classifier.ClassifyBatch(context.Background(), testBatch())
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var adapterErr *common.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "service", adapterErr.Provider)
	assert.Equal(t, 2, adapterErr.Items)
}

func TestClassifier_EmptyBatchSkipsProvider(t *testing.T) {
	classifier := NewClassifierWithClient(failingClient{}, Config{}, nil)
	resp, err := classifier.ClassifyBatch(context.Background(), BatchRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Categories)
}

type failingClient struct{}

func (failingClient) Name() string { return "failing" }

func (failingClient) ClassifyBatch(context.Context, BatchRequest) (BatchResponse, error) {
	return BatchResponse{}, errors.New("should not be called")
}
