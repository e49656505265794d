package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/engine"
)

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the built-in rule kits",
		Long: `Insert the built-in rule kit of every fixed category as global rules.
Custom categories whose name maps to a kit (for example "Farmácia" to health)
get the same patterns as rules of their own household.
Seeding is idempotent: rules that already exist are left alone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			cmd.Println(cli.FormatTitle("Seeding rule kits"))
			seeder := engine.NewSeeder(store, appConfig.EngineConfig(), slog.Default())
			seeder.OnProgress(cli.SeedProgress(cmd.ErrOrStderr()))

			report, err := seeder.Seed(ctx)
			if err != nil {
				return err
			}

			common.LogInfo("seeding finished", common.Fields{
				"categories": report.CategoriesProcessed,
				"inserted":   report.RulesInserted,
				"errors":     len(report.Errors),
			})
			cmd.Println(cli.RenderSeedReport(*report))
			return nil
		},
	}
}
