package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage categories",
		Long:  `List the fixed categories and the household's custom ones, or add a custom category.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			categories, err := store.GetCategories(ctx, h)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			cmd.Println(cli.RenderCategories(categories))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
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

			cat, err := store.CreateCategory(ctx, h, args[0])
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Created category %q (id %s)", cat.Name, cat.ID)))
			return nil
		},
	})

	return cmd
}
