package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/engine"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage categorization rules",
		Long: `List, add and delete the household's rules, test which rule would
categorize a description, and find near-duplicate rules.`,
	}

	cmd.AddCommand(listRulesCmd())
	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(deleteRuleCmd())
	cmd.AddCommand(testRuleCmd())
	cmd.AddCommand(lintRulesCmd())

	return cmd
}

func listRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List household rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			includeGlobal, _ := cmd.Flags().GetBool("global")

			h, err := household()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx, h, includeGlobal)
			if err != nil {
				return err
			}
			cmd.Println(cli.RenderRules(rules))
			return nil
		},
	}

	cmd.Flags().Bool("global", false, "Include global built-in rules")

	return cmd
}

func addRuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <pattern> <category>",
		Short: "Add a household rule",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			matchType, _ := cmd.Flags().GetString("match")
			priority, _ := cmd.Flags().GetInt("priority")
			confidence, _ := cmd.Flags().GetFloat64("confidence")

			h, err := household()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := engine.ResolveCategory(ctx, store, h, args[1])
			if err != nil {
				return err
			}
			if priority == 0 {
				priority = appConfig.Rules.HouseholdPriority
			}

			rule := &model.Rule{
				HouseholdID: h,
				Pattern:     args[0],
				MatchType:   model.MatchType(matchType),
				Category:    category,
				Scope:       model.ScopeHousehold,
				Priority:    priority,
				Confidence:  confidence,
				Active:      true,
			}
			if err := store.CreateRule(ctx, rule); err != nil {
				return err
			}

			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created rule #%d %q → %s", rule.ID, rule.Pattern, rule.Category)))
			return nil
		},
	}

	cmd.Flags().String("match", string(model.MatchContains), "Match type (contains, startsWith, exact)")
	cmd.Flags().Int("priority", 0, "Rule priority (default: rules.household_priority)")
	cmd.Flags().Float64("confidence", 0.9, "Confidence assigned to matches")

	return cmd
}

func deleteRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <rule-id>",
		Short: "Delete a household rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewValidationError("rule-id", "must be an integer", err)
			}

			h, err := household()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeleteRule(ctx, h, id); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Deleted rule #%d", id)))
			return nil
		},
	}
}

func testRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <description>",
		Short: "Show which rule would categorize a description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := household()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.GetActiveRules(ctx, h)
			if err != nil {
				return err
			}
			seeded, err := store.CountGlobalRules(ctx)
			if err != nil {
				return err
			}
			if seeded == 0 {
				rules = append(rules, pattern.BuiltInRules()...)
			}

			text := normalize.Normalize(args[0])
			cmd.Println(cli.SubtleStyle.Render(fmt.Sprintf("normalized: %q  fingerprint: %q", text, normalize.Fingerprint(args[0]))))

			candidates := pattern.MatchAll(text, rules)
			if len(candidates) == 0 {
				cmd.Println(cli.FormatWarning("No rule matches"))
				return nil
			}

			winner := pattern.Match(text, rules)
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s (rule %q, priority %d)", winner.Category, winner.Pattern, winner.Priority)))
			if !winner.IsGlobal() {
				if builtin := pattern.ApplyBuiltInRules(args[0]); builtin != nil && builtin.Category != winner.Category {
					cmd.Println(cli.FormatInfo(fmt.Sprintf("overrides built-in %s (rule %q)", builtin.Category, builtin.Pattern)))
				}
			}
			if len(candidates) > 1 {
				cmd.Println(cli.RenderRules(candidates))
			}
			return nil
		},
	}
}

func lintRulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Find near-duplicate household rules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			distance, _ := cmd.Flags().GetInt("max-distance")

			h, err := household()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			rules, err := store.ListRules(ctx, h, false)
			if err != nil {
				return err
			}
			cmd.Println(cli.RenderNearDuplicates(pattern.FindNearDuplicates(rules, distance)))
			return nil
		},
	}

	cmd.Flags().Int("max-distance", 2, "Maximum edit distance between patterns")

	return cmd
}
