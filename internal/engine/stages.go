package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/llm"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

// cacheStage resolves transactions whose merchant fingerprint is cached.
// A failed lookup is treated as a miss for the whole batch.
func (o *Orchestrator) cacheStage(ctx context.Context, householdID string, txns []model.Transaction) ([]model.Result, []model.Transaction) {
	fingerprints := make([]string, len(txns))
	for i, t := range txns {
		fingerprints[i] = normalize.Fingerprint(t.Description)
	}

	hits, err := o.storage.GetCached(ctx, householdID, fingerprints)
	if err != nil {
		o.logger.Warn("Merchant cache lookup failed, continuing without cache", "error", err)
		return nil, txns
	}

	var resolved []model.Result
	var remaining []model.Transaction
	var used []string

	for i, t := range txns {
		fp := fingerprints[i]
		entry, ok := hits[fp]
		if fp == "" || !ok {
			remaining = append(remaining, t)
			continue
		}
		resolved = append(resolved, model.Result{
			TransactionID: t.ID,
			Category:      entry.Category,
			Source:        model.SourceCache,
			Fingerprint:   fp,
			Confidence:    entry.Confidence,
		})
		used = append(used, fp)
	}

	if len(used) > 0 {
		if err := o.storage.RecordCacheHits(ctx, householdID, used); err != nil {
			o.logger.Warn("Failed to record cache hits", "error", err)
		}
	}

	return resolved, remaining
}

// ruleStage resolves transactions matched by any active rule.
func (o *Orchestrator) ruleStage(txns []model.Transaction, rules []model.Rule) ([]model.Result, []model.Transaction) {
	var resolved []model.Result
	var remaining []model.Transaction

	for _, t := range txns {
		rule := o.matcher.Match(normalize.Normalize(t.Description), rules)
		if rule == nil {
			remaining = append(remaining, t)
			continue
		}

		result := model.Result{
			TransactionID: t.ID,
			Category:      rule.Category,
			Source:        model.SourceRule,
			Fingerprint:   normalize.Fingerprint(t.Description),
			Confidence:    rule.Confidence,
		}
		if rule.ID != 0 {
			id := rule.ID
			result.RuleID = &id
		}
		resolved = append(resolved, result)
	}

	return resolved, remaining
}

// aiStage sends every remaining transaction in a single classifier call.
// Answers outside the fixed categories are coerced to "other" and then treated
// like any other answer: confident ones are applied, uncertain ones come back
// as suggestions. Missing answers, uncertain "other" answers and every item of
// a failed call stay unresolved.
func (o *Orchestrator) aiStage(ctx context.Context, txns []model.Transaction) (applied, suggestions []model.Result, remaining []model.Transaction, err error) {
	req := llm.BatchRequest{Items: make([]llm.BatchItem, len(txns))}
	for i, t := range txns {
		req.Items[i] = llm.BatchItem{ID: t.ID, Description: t.Description}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.config.AITimeout)
	defer cancel()

	resp, err := o.classifier.ClassifyBatch(callCtx, req)
	if err != nil {
		status := AIStatusError
		switch {
		case isTimeout(err) || callCtx.Err() != nil:
			status = AIStatusTimeout
		case llm.IsMalformed(err):
			status = AIStatusMalformed
		}
		o.recorder.AICall(status)
		return nil, nil, txns, asAdapterError(err, o.classifierName(), len(txns))
	}
	o.recorder.AICall(AIStatusOK)

	answers := make(map[string]llm.BatchCategory, len(resp.Categories))
	for _, c := range resp.Categories {
		if _, seen := answers[c.ID]; !seen {
			answers[c.ID] = c
		}
	}

	for _, t := range txns {
		answer, ok := answers[t.ID]
		if !ok {
			remaining = append(remaining, t)
			continue
		}

		category, known := model.CoerceCategory(answer.Category)
		if !known {
			o.logger.Debug("Classifier answered outside the fixed categories",
				"transaction_id", t.ID,
				"category", answer.Category)
		}

		result := model.Result{
			TransactionID: t.ID,
			Category:      category,
			Source:        model.SourceAI,
			Fingerprint:   normalize.Fingerprint(t.Description),
			Confidence:    answer.Confidence,
		}
		switch {
		case model.ShouldAutoApplyAt(answer.Confidence, o.config.AutoApplyThreshold):
			applied = append(applied, result)
		case category == model.CategoryOther:
			remaining = append(remaining, t)
		default:
			suggestions = append(suggestions, result)
			remaining = append(remaining, t)
		}
	}

	return applied, suggestions, remaining, nil
}

// classifierName reports the provider behind the classifier, when it has one.
func (o *Orchestrator) classifierName() string {
	if n, ok := o.classifier.(interface{ Name() string }); ok {
		if name := n.Name(); name != "" {
			return name
		}
	}
	return "external"
}

func asAdapterError(err error, provider string, items int) error {
	var adapterErr *common.AdapterError
	if errors.As(err, &adapterErr) {
		return err
	}
	return &common.AdapterError{
		Err:      fmt.Errorf("%w: %w", common.ErrAdapterUnavailable, err),
		Provider: provider,
		Items:    items,
	}
}
