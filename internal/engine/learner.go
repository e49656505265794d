package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

// Skip reasons reported in model.LearnResult.
const (
	SkipNoSignificantWord = "no significant word"
	SkipRuleExists        = "rule already exists"
	SkipRulesDisabled     = "rule derivation disabled"
)

// Learner turns manual corrections into merchant cache entries and
// household rules.
type Learner struct {
	storage   service.Storage
	suggester *pattern.Suggester
	logger    *slog.Logger
	config    Config
}

// NewLearner creates a learner.
func NewLearner(storage service.Storage, config Config, logger *slog.Logger) *Learner {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Learner{
		storage:   storage,
		suggester: pattern.NewSuggester(config.MinWordLength),
		logger:    logger,
		config:    config,
	}
}

// Learn records a correction. Repeating the same correction is a no-op for
// rules: an existing rule with the same pattern and category is reused.
func (l *Learner) Learn(ctx context.Context, c model.Correction) (*model.LearnResult, error) {
	if c.HouseholdID == "" {
		return nil, common.MissingHousehold()
	}
	category, err := l.resolveCategory(ctx, c.HouseholdID, c.NewCategory)
	if err != nil {
		return nil, err
	}

	result := &model.LearnResult{Fingerprint: normalize.Fingerprint(c.Description)}

	if result.Fingerprint != "" {
		err := l.storage.SetCached(ctx, model.CacheEntry{
			HouseholdID: c.HouseholdID,
			Fingerprint: result.Fingerprint,
			Category:    category,
			Confidence:  1.0,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to cache correction: %w", err)
		}
		result.CacheWritten = true
	}

	if !l.config.DeriveRules {
		result.SkipReason = SkipRulesDisabled
		return result, nil
	}

	suggestion, ok := l.suggester.Suggest(c.Description, category)
	if !ok {
		result.SkipReason = SkipNoSignificantWord
		return result, nil
	}

	deactivated, err := l.storage.DeactivateConflictingRules(ctx, c.HouseholdID, suggestion.Pattern, category)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate conflicting rules: %w", err)
	}
	result.Deactivated = deactivated

	rule, created, err := l.ensureRule(ctx, c.HouseholdID, suggestion)
	if err != nil {
		return nil, err
	}
	result.Rule = rule
	result.RuleCreated = created
	if !created {
		result.SkipReason = SkipRuleExists
	}

	l.logger.Info("Learned from correction",
		"household", c.HouseholdID,
		"transaction_id", c.TransactionID,
		"category", category,
		"pattern", suggestion.Pattern,
		"rule_created", created,
		"deactivated", deactivated)

	return result, nil
}

// ensureRule finds or creates the household rule for a suggestion. An
// inactive match is reactivated rather than duplicated.
func (l *Learner) ensureRule(ctx context.Context, householdID string, s pattern.Suggestion) (*model.Rule, bool, error) {
	existing, err := l.storage.FindHouseholdRules(ctx, householdID, s.Pattern)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up rules: %w", err)
	}

	for i := range existing {
		r := existing[i]
		if r.Category != s.Category {
			continue
		}
		if !r.Active {
			if err := l.storage.SetRuleActive(ctx, householdID, r.ID, true); err != nil {
				return nil, false, fmt.Errorf("failed to reactivate rule: %w", err)
			}
			r.Active = true
		}
		return &r, false, nil
	}

	rule := &model.Rule{
		HouseholdID: householdID,
		Pattern:     s.Pattern,
		MatchType:   model.MatchContains,
		Category:    s.Category,
		Scope:       model.ScopeHousehold,
		Priority:    l.config.HouseholdPriority,
		Confidence:  l.config.RuleConfidence,
		Active:      true,
	}
	if err := l.storage.CreateRule(ctx, rule); err != nil {
		// A concurrent correction may have created the same rule.
		if errors.Is(err, common.ErrDuplicateEntry) {
			return l.ensureRuleAfterRace(ctx, householdID, s)
		}
		return nil, false, fmt.Errorf("failed to create rule: %w", err)
	}

	return rule, true, nil
}

func (l *Learner) ensureRuleAfterRace(ctx context.Context, householdID string, s pattern.Suggestion) (*model.Rule, bool, error) {
	existing, err := l.storage.FindHouseholdRules(ctx, householdID, s.Pattern)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up rules: %w", err)
	}
	for i := range existing {
		if existing[i].Category == s.Category && existing[i].MatchType == model.MatchContains {
			return &existing[i], false, nil
		}
	}
	return nil, false, fmt.Errorf("rule for %q vanished after duplicate insert: %w", s.Pattern, common.ErrNotFound)
}

// ResolveCategory accepts a fixed category slug (in any case) or one of the
// household's custom category IDs and returns the stored category ID.
func ResolveCategory(ctx context.Context, store service.CategoryStore, householdID, category string) (string, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return "", common.NewValidationError("category", "must not be empty", common.ErrInvalidCategory)
	}
	if fixed, ok := model.CoerceCategory(category); ok {
		return fixed, nil
	}

	cat, err := store.GetCategory(ctx, householdID, category)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.NewValidationError("category",
				fmt.Sprintf("%q is not a known category", category), common.ErrInvalidCategory)
		}
		return "", fmt.Errorf("failed to look up category: %w", err)
	}
	return cat.ID, nil
}

func (l *Learner) resolveCategory(ctx context.Context, householdID, category string) (string, error) {
	return ResolveCategory(ctx, l.storage, householdID, category)
}

// Corrector is the manual correction entry point: it updates the
// transaction and then learns from the correction.
type Corrector struct {
	storage service.Storage
	learner *Learner
}

// NewCorrector creates a corrector.
func NewCorrector(storage service.Storage, learner *Learner) *Corrector {
	return &Corrector{storage: storage, learner: learner}
}

// Correct applies a manual category to a transaction and learns from it.
// When Description is empty the stored description is used.
func (c *Corrector) Correct(ctx context.Context, correction model.Correction) (*model.LearnResult, error) {
	if correction.HouseholdID == "" {
		return nil, common.MissingHousehold()
	}
	if correction.TransactionID == "" {
		return nil, common.NewValidationError("transaction_id", "must not be empty", nil)
	}

	category, err := c.learner.resolveCategory(ctx, correction.HouseholdID, correction.NewCategory)
	if err != nil {
		return nil, err
	}
	correction.NewCategory = category

	if correction.Description == "" {
		txn, err := c.storage.GetTransaction(ctx, correction.HouseholdID, correction.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load transaction: %w", err)
		}
		correction.Description = txn.Description
	}

	if err := c.storage.UpdateTransactionCategory(ctx, correction.HouseholdID, correction.TransactionID,
		category, model.SourceManual, 1.0); err != nil {
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}

	return c.learner.Learn(ctx, correction)
}
