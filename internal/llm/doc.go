// Package llm provides the external classifier used as the last stage of the
// categorization cascade. It supports OpenAI, Anthropic and a plain JSON
// classification service, with retry logic and rate limiting.
package llm
