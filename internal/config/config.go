package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/llm"
)

// EnvPrefix is the prefix of every environment override, e.g. SPICE_DATABASE_PATH.
const EnvPrefix = "SPICE"

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.local/share/spice/spice.db"

// Config is the typed application configuration.
type Config struct {
	LLM            llm.Config
	Logging        LoggingConfig
	Database       DatabaseConfig
	Server         ServerConfig
	Categorization CategorizationConfig
	Rules          RulesConfig
	Learning       LearningConfig
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CategorizationConfig tunes the orchestrator.
type CategorizationConfig struct {
	AutoApplyThreshold float64
	PersistWorkers     int
	AITimeout          time.Duration
	UseAI              bool
}

// RulesConfig tunes rule seeding and household rules.
type RulesConfig struct {
	MinKitPatterns    int
	HouseholdPriority int
}

// LearningConfig tunes how corrections become rules.
type LearningConfig struct {
	RuleConfidence float64
	MinWordLength  int
	DeriveRules    bool
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)

	v.SetDefault("categorization.auto_apply_threshold", 0.85)
	v.SetDefault("categorization.persist_workers", 8)
	v.SetDefault("categorization.use_ai", true)
	v.SetDefault("categorization.ai_timeout", 30*time.Second)

	v.SetDefault("rules.min_kit_patterns", 100)
	v.SetDefault("rules.household_priority", 1000)

	v.SetDefault("learning.derive_rules", true)
	v.SetDefault("learning.rule_confidence", 0.9)
	v.SetDefault("learning.min_word_length", 4)

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 2000)
	v.SetDefault("llm.max_retries", 1)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.rate_limit", 60)
}

// ConfigureEnv enables SPICE_* overrides for nested keys.
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored; existing variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(ExpandPath(p)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a validated Config from v. Defaults are applied for keys v
// does not set.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			ReadTimeout:  v.GetDuration("server.read_timeout"),
			WriteTimeout: v.GetDuration("server.write_timeout"),
		},
		Categorization: CategorizationConfig{
			AutoApplyThreshold: v.GetFloat64("categorization.auto_apply_threshold"),
			PersistWorkers:     v.GetInt("categorization.persist_workers"),
			UseAI:              v.GetBool("categorization.use_ai"),
			AITimeout:          v.GetDuration("categorization.ai_timeout"),
		},
		Rules: RulesConfig{
			MinKitPatterns:    v.GetInt("rules.min_kit_patterns"),
			HouseholdPriority: v.GetInt("rules.household_priority"),
		},
		Learning: LearningConfig{
			DeriveRules:    v.GetBool("learning.derive_rules"),
			RuleConfidence: v.GetFloat64("learning.rule_confidence"),
			MinWordLength:  v.GetInt("learning.min_word_length"),
		},
		LLM: LoadLLMConfig(v),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects out-of-range values.
func (c Config) Validate() error {
	invalid := func(field, reason string) error {
		return common.NewValidationError(field, reason, common.ErrInvalidConfig)
	}

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", err.Error())
	}
	if c.Logging.Format != "console" && c.Logging.Format != "json" {
		return invalid("logging.format", fmt.Sprintf("%q is not console or json", c.Logging.Format))
	}
	if c.Database.Path == "" {
		return invalid("database.path", "must not be empty")
	}
	if c.Categorization.AutoApplyThreshold <= 0 || c.Categorization.AutoApplyThreshold > 1 {
		return invalid("categorization.auto_apply_threshold", "must be within (0, 1]")
	}
	if c.Categorization.PersistWorkers < 1 {
		return invalid("categorization.persist_workers", "must be at least 1")
	}
	if c.Categorization.AITimeout <= 0 {
		return invalid("categorization.ai_timeout", "must be positive")
	}
	if c.Rules.MinKitPatterns < 1 {
		return invalid("rules.min_kit_patterns", "must be at least 1")
	}
	if c.Rules.HouseholdPriority < 1 {
		return invalid("rules.household_priority", "must be at least 1")
	}
	if c.Learning.RuleConfidence <= 0 || c.Learning.RuleConfidence > 1 {
		return invalid("learning.rule_confidence", "must be within (0, 1]")
	}
	if c.Learning.MinWordLength < 1 {
		return invalid("learning.min_word_length", "must be at least 1")
	}
	if c.LLM.RateLimit < 0 {
		return invalid("llm.rate_limit", "must not be negative")
	}
	return nil
}

// EngineConfig maps the configuration onto the engine's options.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		AutoApplyThreshold: c.Categorization.AutoApplyThreshold,
		PersistWorkers:     c.Categorization.PersistWorkers,
		AITimeout:          c.Categorization.AITimeout,
		HouseholdPriority:  c.Rules.HouseholdPriority,
		RuleConfidence:     c.Learning.RuleConfidence,
		MinWordLength:      c.Learning.MinWordLength,
		MinKitPatterns:     c.Rules.MinKitPatterns,
		DeriveRules:        c.Learning.DeriveRules,
	}
}
