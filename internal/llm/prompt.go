package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

const systemPrompt = "You are a financial transaction classifier. You MUST respond with ONLY a valid JSON object. " +
	"Do not include any explanatory text, markdown formatting, or commentary before or after the JSON. " +
	"Start your response directly with { and end with }."

// buildBatchPrompt renders the classification instructions for a batch.
func buildBatchPrompt(req BatchRequest) (string, error) {
	items, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Categorize each bank statement line below into exactly one of these categories: ")
	sb.WriteString(strings.Join(model.FixedCategories, ", "))
	sb.WriteString(".\n\n")
	sb.WriteString("Statement lines are often truncated and may mix Portuguese and English. ")
	sb.WriteString("Use \"other\" when you cannot tell. Confidence is a number between 0 and 1.\n\n")
	sb.WriteString("Lines:\n")
	sb.Write(items)
	sb.WriteString("\n\nRespond with JSON in exactly this shape, one entry per line id:\n")
	sb.WriteString(`{"categories":[{"id":"<id>","category":"<category>","confidence":0.9}]}`)

	return sb.String(), nil
}
