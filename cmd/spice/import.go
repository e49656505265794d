package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-categorizer/internal/cli"
	"github.com/Veraticus/spice-categorizer/internal/ofx"
	"github.com/Veraticus/spice-categorizer/internal/service"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.ofx|file.qfx>...",
		Short: "Import OFX/QFX statements",
		Long: `Import bank and credit card statements. Every line is stored as an
uncategorized transaction; lines already imported are skipped by FITID.
Run 'spice categorize' afterwards.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := household()
			if err != nil {
				return err
			}
			parser, err := ofx.NewParser(h, slog.Default())
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var total ofx.ImportReport
			for _, path := range args {
				report, err := importFile(cmd, parser, store, path)
				if err != nil {
					cmd.Println(cli.FormatError(fmt.Sprintf("%s: %v", filepath.Base(path), err)))
					continue
				}
				total.Parsed += report.Parsed
				total.Inserted += report.Inserted
				total.Skipped += report.Skipped
			}

			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d new transactions (%d already known)", total.Inserted, total.Skipped)))
			return nil
		},
	}
}

func importFile(cmd *cobra.Command, parser *ofx.Parser, store service.TransactionStore, path string) (ofx.ImportReport, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return ofx.ImportReport{}, fmt.Errorf("failed to open statement: %w", err)
	}
	defer func() { _ = f.Close() }()

	return parser.Import(cmd.Context(), store, f)
}
