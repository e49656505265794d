package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// cleanMarkdownWrapper strips ``` fences and any prose around the JSON object.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```JSON")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		content = strings.TrimSpace(content)
	}

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}

	return content
}

// parseBatchResponse decodes a model answer into the batch contract.
func parseBatchResponse(content string) (BatchResponse, error) {
	content = cleanMarkdownWrapper(content)
	if content == "" {
		return BatchResponse{}, malformed(fmt.Errorf("empty response"))
	}

	var resp BatchResponse
	if err := json.Unmarshal([]byte(content), &resp); err != nil {
		return BatchResponse{}, malformed(fmt.Errorf("failed to parse JSON response: %w", err))
	}

	return resp, nil
}
