package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/Veraticus/spice-categorizer/internal/llm"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// MockClassifier is a test implementation of the Classifier interface.
// It answers from a keyword table and records every request.
type MockClassifier struct {
	answers map[string]llm.BatchCategory
	err     error
	calls   []llm.BatchRequest
	mu      sync.Mutex
}

// NewMockClassifier creates a mock classifier with no canned answers.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{answers: make(map[string]llm.BatchCategory)}
}

// Answer makes the mock categorize any description containing keyword.
func (m *MockClassifier) Answer(keyword, category string, confidence float64) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[strings.ToLower(keyword)] = llm.BatchCategory{Category: category, Confidence: confidence}
	return m
}

// FailWith makes every call return err.
func (m *MockClassifier) FailWith(err error) *MockClassifier {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Name identifies the mock in adapter errors.
func (m *MockClassifier) Name() string {
	return "mock"
}

// ClassifyBatch implements Classifier. Descriptions without a keyword hit are
// answered as "other" with low confidence.
func (m *MockClassifier) ClassifyBatch(ctx context.Context, req llm.BatchRequest) (llm.BatchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if m.err != nil {
		return llm.BatchResponse{}, m.err
	}
	if err := ctx.Err(); err != nil {
		return llm.BatchResponse{}, err
	}

	resp := llm.BatchResponse{Categories: make([]llm.BatchCategory, 0, len(req.Items))}
	for _, item := range req.Items {
		answer := llm.BatchCategory{ID: item.ID, Category: model.CategoryOther, Confidence: 0.3}
		desc := strings.ToLower(item.Description)
		for keyword, a := range m.answers {
			if strings.Contains(desc, keyword) {
				answer.Category = a.Category
				answer.Confidence = a.Confidence
				break
			}
		}
		resp.Categories = append(resp.Categories, answer)
	}

	return resp, nil
}

// GetCalls returns all recorded requests for verification in tests.
func (m *MockClassifier) GetCalls() []llm.BatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]llm.BatchRequest, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns the number of times ClassifyBatch was called.
func (m *MockClassifier) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all recorded calls.
func (m *MockClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}
