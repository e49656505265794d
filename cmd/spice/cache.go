package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the household merchant cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List remembered merchants",
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

			entries, err := store.ListCached(ctx, h)
			if err != nil {
				return err
			}
			cmd.Println(cli.RenderCache(entries))
			return nil
		},
	})

	clearCmd := &cobra.Command{
		Use:   "clear [description]",
		Short: "Forget one merchant, or the whole cache",
		Args:  cobra.MaximumNArgs(1),
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

			if len(args) == 1 {
				fp := normalize.Fingerprint(args[0])
				if err := store.DeleteCached(ctx, h, fp); err != nil {
					return err
				}
				cmd.Println(cli.FormatSuccess(fmt.Sprintf("Forgot merchant %q", fp)))
				return nil
			}

			n, err := store.ClearCache(ctx, h)
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Removed %d cache entries", n)))
			return nil
		},
	}
	cmd.AddCommand(clearCmd)

	return cmd
}
