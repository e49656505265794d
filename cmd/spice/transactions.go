package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transactions",
		Short: "Manage transactions",
	}

	add := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Add an uncategorized transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			date, _ := cmd.Flags().GetString("date")

			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return common.NewValidationError("amount", "must be a decimal number", err)
			}
			postedAt := time.Now()
			if date != "" {
				if postedAt, err = time.Parse(time.DateOnly, date); err != nil {
					return common.NewValidationError("date", "must be YYYY-MM-DD", err)
				}
			}
			if id == "" {
				id = uuid.NewString()
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

			n, err := store.SaveTransactions(ctx, []model.Transaction{{
				ID:          id,
				HouseholdID: h,
				Description: args[0],
				Amount:      amount,
				PostedAt:    postedAt,
			}})
			if err != nil {
				return err
			}
			if n == 0 {
				cmd.Println(cli.FormatWarning(fmt.Sprintf("Transaction %s already exists", id)))
				return nil
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Added transaction %s", id)))
			return nil
		},
	}
	add.Flags().String("id", "", "Transaction ID (default: random UUID)")
	add.Flags().String("date", "", "Posting date, YYYY-MM-DD (default: today)")

	cmd.AddCommand(add)
	return cmd
}
