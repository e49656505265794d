package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/llm"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

// openStorage opens the configured database and brings its schema up to date.
func openStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(appConfig.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// household returns the --household flag or SPICE_HOUSEHOLD.
func household() (string, error) {
	h := strings.TrimSpace(viper.GetString("household"))
	if h == "" {
		return "", common.NewUserError("a household is required: pass --household or set SPICE_HOUSEHOLD", common.ErrMissingHousehold)
	}
	return h, nil
}

// newClassifier builds the AI classifier, or returns nil when AI is off or
// no provider credentials are configured.
func newClassifier() engine.Classifier {
	if !appConfig.Categorization.UseAI {
		return nil
	}
	c, err := llm.NewClassifier(appConfig.LLM, slog.Default())
	if err != nil {
		if errors.Is(err, common.ErrMissingConfig) {
			slog.Warn("AI classifier disabled: no credentials", "provider", appConfig.LLM.Provider)
		} else {
			slog.Warn("AI classifier disabled", "provider", appConfig.LLM.Provider, "error", err)
		}
		return nil
	}
	return c
}

func newOrchestrator(store *storage.SQLiteStorage, opts ...engine.Option) *engine.Orchestrator {
	opts = append([]engine.Option{engine.WithLogger(slog.Default().With("component", "orchestrator"))}, opts...)
	return engine.NewOrchestrator(store, newClassifier(), appConfig.EngineConfig(), opts...)
}

func newCorrector(store *storage.SQLiteStorage) *engine.Corrector {
	return engine.NewCorrector(store, engine.NewLearner(store, appConfig.EngineConfig(), slog.Default()))
}
