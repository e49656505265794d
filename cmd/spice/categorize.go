package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

func categorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categorize [transaction-id...]",
		Short: "Categorize uncategorized transactions",
		Long: `Run the merchant cache, the rules and the AI classifier over the household's
uncategorized transactions, or over the given transaction IDs.

Suggestions the AI was not confident about are listed, and with --review
you can confirm them one by one. Confirmed suggestions are learned as
corrections.`,
		RunE: runCategorize,
	}

	cmd.Flags().Bool("no-ai", false, "Skip the AI classifier")
	cmd.Flags().Bool("review", false, "Interactively review low-confidence suggestions")

	return cmd
}

func runCategorize(cmd *cobra.Command, args []string) error {
	noAI, _ := cmd.Flags().GetBool("no-ai")
	review, _ := cmd.Flags().GetBool("review")

	h, err := household()
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(cmd.OutOrStdout(), "Categorization")
	ctx := interrupts.HandleInterrupts(cmd.Context())

	store, err := openStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	outcome, err := newOrchestrator(store).Categorize(ctx, engine.Request{
		HouseholdID:    h,
		TransactionIDs: args,
		UseAI:          !noAI,
	})
	if err != nil {
		return err
	}

	cmd.Println(cli.RenderOutcome(*outcome))

	if !review || len(outcome.Suggestions) == 0 || interrupts.WasInterrupted() {
		return nil
	}
	return reviewSuggestions(ctx, cmd, store, h, outcome.Suggestions)
}

func reviewSuggestions(ctx context.Context, cmd *cobra.Command, store *storage.SQLiteStorage, h string, suggestions []model.Result) error {
	ids := make([]string, len(suggestions))
	for i, s := range suggestions {
		ids[i] = s.TransactionID
	}
	txns, err := store.GetTransactions(ctx, h, ids)
	if err != nil {
		return fmt.Errorf("failed to load suggested transactions: %w", err)
	}
	descriptions := make(map[string]string, len(txns))
	for _, t := range txns {
		descriptions[t.ID] = t.Description
	}

	items := make([]cli.ReviewItem, 0, len(suggestions))
	for _, s := range suggestions {
		items = append(items, cli.ReviewItem{Suggestion: s, Description: descriptions[s.TransactionID]})
	}

	categories, err := store.GetCategories(ctx, h)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.ID)
	}

	corrections, err := cli.NewReviewer(os.Stdin, cmd.OutOrStdout(), names).Review(ctx, h, items)
	if err != nil {
		return err
	}

	applied := applyCorrections(ctx, cmd, newCorrector(store), corrections)
	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Applied %d of %d suggestions", applied, len(items))))
	return nil
}

// applyCorrections learns each correction and returns how many succeeded.
// Failures are printed and skipped.
func applyCorrections(ctx context.Context, cmd *cobra.Command, corrector *engine.Corrector, corrections []model.Correction) int {
	applied := 0
	for _, c := range corrections {
		if _, err := corrector.Correct(ctx, c); err != nil {
			cmd.Println(cli.FormatError(fmt.Sprintf("%s: %v", c.TransactionID, err)))
			continue
		}
		applied++
	}
	return applied
}
