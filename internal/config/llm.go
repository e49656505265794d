package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-categorizer/internal/llm"
)

// providerKeyEnv names the conventional API key variable of each provider.
var providerKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"service":   "SPICE_SERVICE_TOKEN",
}

// LoadLLMConfig loads classifier configuration from Viper and environment variables.
// It follows this precedence:
// 1. Viper configuration (from config file or SPICE_ env vars)
// 2. The provider's conventional environment variable for the API key
// 3. Default values
func LoadLLMConfig(v *viper.Viper) llm.Config {
	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString("llm.provider")),
		APIKey:      v.GetString("llm.api_key"),
		Model:       v.GetString("llm.model"),
		Endpoint:    v.GetString("llm.endpoint"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Timeout:     v.GetDuration("categorization.ai_timeout"),
	}

	if cfg.APIKey == "" {
		if env, ok := providerKeyEnv[cfg.Provider]; ok {
			cfg.APIKey = os.Getenv(env)
		}
	}

	return cfg
}
