// Package engine sequences the categorization cascade (merchant cache, then
// rules, then the external classifier) and turns manual corrections into
// cache entries and household rules.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// Config holds configuration options for the orchestrator and learner.
type Config struct {
	AutoApplyThreshold float64
	PersistWorkers     int
	AITimeout          time.Duration
	HouseholdPriority  int
	RuleConfidence     float64
	MinWordLength      int
	MinKitPatterns     int
	DeriveRules        bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		AutoApplyThreshold: model.AutoApplyThreshold,
		PersistWorkers:     8,
		AITimeout:          30 * time.Second,
		HouseholdPriority:  1000,
		RuleConfidence:     0.9,
		MinWordLength:      pattern.DefaultMinWordLength,
		MinKitPatterns:     100,
		DeriveRules:        true,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AutoApplyThreshold <= 0 {
		c.AutoApplyThreshold = d.AutoApplyThreshold
	}
	if c.PersistWorkers <= 0 {
		c.PersistWorkers = d.PersistWorkers
	}
	if c.AITimeout <= 0 {
		c.AITimeout = d.AITimeout
	}
	if c.HouseholdPriority <= 0 {
		c.HouseholdPriority = d.HouseholdPriority
	}
	if c.RuleConfidence <= 0 {
		c.RuleConfidence = d.RuleConfidence
	}
	if c.MinWordLength <= 0 {
		c.MinWordLength = d.MinWordLength
	}
	if c.MinKitPatterns <= 0 {
		c.MinKitPatterns = d.MinKitPatterns
	}
	return c
}

// Request selects the transactions of one household to categorize.
// Transactions takes precedence over TransactionIDs; when both are empty the
// household's uncategorized transactions are loaded from storage.
type Request struct {
	HouseholdID    string
	TransactionIDs []string
	Transactions   []model.Transaction
	UseAI          bool
}

// Orchestrator runs the categorization cascade for a batch.
type Orchestrator struct {
	storage    service.Storage
	classifier Classifier
	matcher    pattern.Matcher
	recorder   Recorder
	logger     *slog.Logger
	config     Config
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOrchestrator creates an orchestrator. classifier may be nil, in which
// case the AI stage never runs.
func NewOrchestrator(storage service.Storage, classifier Classifier, config Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		storage:    storage,
		classifier: classifier,
		matcher:    pattern.NewMatcher(),
		recorder:   nopRecorder{},
		logger:     slog.Default(),
		config:     config.withDefaults(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Categorize runs cache, rules and (optionally) the classifier over the
// requested transactions and persists applied categories. Per-item failures
// are reported in the outcome; only invalid input or a failure to load the
// batch returns an error.
func (o *Orchestrator) Categorize(ctx context.Context, req Request) (*model.BatchOutcome, error) {
	if req.HouseholdID == "" {
		return nil, common.MissingHousehold()
	}

	start := time.Now()
	outcome := &model.BatchOutcome{
		RunID:  uuid.NewString(),
		Errors: []model.ItemError{},
	}
	logger := o.logger.With("run_id", outcome.RunID, "household", req.HouseholdID)

	txns, itemErrs, err := o.loadBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	outcome.Errors = append(outcome.Errors, itemErrs...)

	if len(txns) == 0 {
		outcome.Duration = time.Since(start)
		logger.Info("Nothing to categorize")
		return outcome, nil
	}

	applied := make([]model.Result, 0, len(txns))

	cached, remaining := o.cacheStage(ctx, req.HouseholdID, txns)
	applied = append(applied, cached...)
	logger.Info("Cache stage complete", "hits", len(cached), "remaining", len(remaining))

	rules, err := o.loadRules(ctx, req.HouseholdID)
	if err != nil {
		return nil, err
	}
	matched, remaining := o.ruleStage(remaining, rules)
	applied = append(applied, matched...)
	logger.Info("Rule stage complete", "hits", len(matched), "remaining", len(remaining), "rules", len(rules))

	if req.UseAI && o.classifier != nil && len(remaining) > 0 {
		outcome.SentToAI = len(remaining)

		classified, suggestions, _, aiErr := o.aiStage(ctx, remaining)
		applied = append(applied, classified...)
		outcome.Suggestions = suggestions
		if aiErr != nil {
			logger.Warn("Classifier failed, leaving items uncategorized",
				"items", len(remaining),
				"error", aiErr)
			outcome.Errors = append(outcome.Errors, model.ItemError{
				Message: aiErr.Error(),
				Err:     aiErr,
			})
		}
		logger.Info("AI stage complete",
			"sent", len(remaining),
			"applied", len(classified),
			"suggested", len(suggestions))
	}

	persisted, persistErrs := o.persist(ctx, req.HouseholdID, applied)
	outcome.Errors = append(outcome.Errors, persistErrs...)

	for _, r := range persisted {
		switch r.Source {
		case model.SourceCache:
			outcome.AppliedByCache++
		case model.SourceRule:
			outcome.AppliedByRules++
		case model.SourceAI:
			outcome.AppliedByAI++
		}
	}
	outcome.Applied = persisted
	outcome.RemainingUncategorized = len(txns) - len(persisted)

	o.writeBack(ctx, req.HouseholdID, persisted)

	outcome.Duration = time.Since(start)
	o.recorder.Categorized(model.SourceCache, outcome.AppliedByCache)
	o.recorder.Categorized(model.SourceRule, outcome.AppliedByRules)
	o.recorder.Categorized(model.SourceAI, outcome.AppliedByAI)
	o.recorder.BatchDuration(outcome.Duration)

	logger.Info("Categorization complete",
		"total", len(txns),
		"cache", outcome.AppliedByCache,
		"rules", outcome.AppliedByRules,
		"sent_to_ai", outcome.SentToAI,
		"ai", outcome.AppliedByAI,
		"remaining", outcome.RemainingUncategorized,
		"errors", len(outcome.Errors),
		"duration", outcome.Duration)

	return outcome, nil
}

// loadBatch resolves the request into stored transactions. Requested IDs that
// do not exist become item errors and are left out of the batch.
func (o *Orchestrator) loadBatch(ctx context.Context, req Request) ([]model.Transaction, []model.ItemError, error) {
	switch {
	case len(req.Transactions) > 0:
		txns := make([]model.Transaction, len(req.Transactions))
		for i, t := range req.Transactions {
			t.HouseholdID = req.HouseholdID
			txns[i] = t
		}
		if _, err := o.storage.SaveTransactions(ctx, txns); err != nil {
			return nil, nil, fmt.Errorf("failed to save transactions: %w", err)
		}
		return txns, nil, nil

	case len(req.TransactionIDs) > 0:
		txns, err := o.storage.GetTransactions(ctx, req.HouseholdID, req.TransactionIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
		}

		found := make(map[string]bool, len(txns))
		for _, t := range txns {
			found[t.ID] = true
		}
		var itemErrs []model.ItemError
		for _, id := range req.TransactionIDs {
			if !found[id] {
				found[id] = true
				itemErrs = append(itemErrs, model.ItemError{
					TransactionID: id,
					Message:       "transaction not found",
					Err:           common.ErrNotFound,
				})
			}
		}
		return txns, itemErrs, nil

	default:
		txns, err := o.storage.GetUncategorized(ctx, req.HouseholdID, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load uncategorized transactions: %w", err)
		}
		return txns, nil, nil
	}
}

// loadRules returns the household's active rules. Built-in kits are appended
// when no global rules have been seeded yet.
func (o *Orchestrator) loadRules(ctx context.Context, householdID string) ([]model.Rule, error) {
	rules, err := o.storage.GetActiveRules(ctx, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	globals, err := o.storage.CountGlobalRules(ctx)
	if err != nil {
		o.logger.Warn("Failed to count global rules, using built-in kits", "error", err)
		globals = 0
	}
	if globals == 0 {
		rules = append(rules, pattern.BuiltInRules()...)
	}

	return rules, nil
}

// persist writes every applied result with bounded concurrency. Results that
// fail to write are dropped from the returned slice and reported instead.
func (o *Orchestrator) persist(ctx context.Context, householdID string, results []model.Result) ([]model.Result, []model.ItemError) {
	errs := make([]error, len(results))

	var g errgroup.Group
	g.SetLimit(o.config.PersistWorkers)

	for i, r := range results {
		i, r := i, r
		g.Go(func() error {
			err := o.storage.UpdateTransactionCategory(ctx, householdID, r.TransactionID, r.Category, r.Source, r.Confidence)
			if err != nil {
				errs[i] = &common.PersistenceError{TransactionID: r.TransactionID, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	persisted := make([]model.Result, 0, len(results))
	var itemErrs []model.ItemError
	for i, r := range results {
		if errs[i] == nil {
			persisted = append(persisted, r)
			continue
		}
		o.recorder.PersistError()
		o.logger.Warn("Failed to persist category",
			"transaction_id", r.TransactionID,
			"source", r.Source,
			"error", errs[i])
		itemErrs = append(itemErrs, model.ItemError{
			TransactionID: r.TransactionID,
			Message:       errs[i].Error(),
			Err:           errs[i],
		})
	}

	return persisted, itemErrs
}

// writeBack caches confident rule and AI results and bumps rule counters.
// Failures are logged; the cache is an optimization only.
func (o *Orchestrator) writeBack(ctx context.Context, householdID string, results []model.Result) {
	var ruleIDs []int64
	written := make(map[string]bool)

	for _, r := range results {
		if r.Source == model.SourceRule && r.RuleID != nil {
			ruleIDs = append(ruleIDs, *r.RuleID)
		}
		if r.Source == model.SourceCache || r.Fingerprint == "" || written[r.Fingerprint] {
			continue
		}
		if !model.ShouldAutoApplyAt(r.Confidence, o.config.AutoApplyThreshold) {
			continue
		}

		err := o.storage.SetCached(ctx, model.CacheEntry{
			HouseholdID: householdID,
			Fingerprint: r.Fingerprint,
			Category:    r.Category,
			Confidence:  r.Confidence,
		})
		if err != nil {
			o.logger.Warn("Failed to write merchant cache",
				"fingerprint", r.Fingerprint,
				"error", err)
			continue
		}
		written[r.Fingerprint] = true
	}

	if err := o.storage.IncrementRuleUseCount(ctx, ruleIDs...); err != nil {
		o.logger.Warn("Failed to update rule use counts", "error", err)
	}
}

func isTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
