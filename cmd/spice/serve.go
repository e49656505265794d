package main

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/api"
	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/engine"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the categorization HTTP API",
		Long: `Serve the categorization API and Prometheus metrics.

Households are addressed in the URL, e.g.
  POST /v1/households/{household}/categorize`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				appConfig.Server.Addr = addr
			}

			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			engineCfg := appConfig.EngineConfig()
			server := api.NewServer(api.Deps{
				Storage:           store,
				Orchestrator:      newOrchestrator(store, engine.WithRecorder(engine.NewPrometheusRecorder(reg))),
				Corrector:         newCorrector(store),
				Seeder:            engine.NewSeeder(store, engineCfg, slog.Default()),
				Gatherer:          reg,
				Logger:            slog.Default(),
				UseAI:             appConfig.Categorization.UseAI,
				HouseholdPriority: engineCfg.HouseholdPriority,
			})

			common.LogInfo("starting API", common.Fields{
				"addr":     appConfig.Server.Addr,
				"database": appConfig.Database.Path,
				"ai":       appConfig.Categorization.UseAI,
			})
			return server.Run(ctx, appConfig.Server.Addr, appConfig.Server.ReadTimeout, appConfig.Server.WriteTimeout)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default: server.addr)")

	return cmd
}
