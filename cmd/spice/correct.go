package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <transaction-id> <category>",
		Short: "Set a transaction's category and learn from it",
		Long: `Set the category of a transaction by hand. The merchant is remembered in
the cache, and a rule is derived from the most significant word of the
description so similar transactions are categorized without the AI.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description, _ := cmd.Flags().GetString("description")

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

			result, err := newCorrector(store).Correct(ctx, model.Correction{
				HouseholdID:   h,
				TransactionID: args[0],
				NewCategory:   args[1],
				Description:   description,
			})
			if err != nil {
				return err
			}

			cmd.Println(cli.RenderLearnResult(*result))
			return nil
		},
	}

	cmd.Flags().String("description", "", "Statement text to learn from (defaults to the stored description)")

	return cmd
}
