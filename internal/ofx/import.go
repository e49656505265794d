package ofx

import (
	"context"
	"fmt"
	"io"

	"github.com/Veraticus/spice-categorizer/internal/service"
)

// ImportReport counts the lines of one imported statement.
type ImportReport struct {
	Parsed   int `json:"parsed"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

// Import parses a statement and stores its lines. Lines whose FITID the
// household already has are skipped, so importing a file twice is harmless.
func (p *Parser) Import(ctx context.Context, store service.TransactionStore, r io.Reader) (ImportReport, error) {
	txns, err := p.Parse(ctx, r)
	if err != nil {
		return ImportReport{}, err
	}

	inserted, err := store.SaveTransactions(ctx, txns)
	if err != nil {
		return ImportReport{}, fmt.Errorf("failed to store statement: %w", err)
	}

	return ImportReport{
		Parsed:   len(txns),
		Inserted: inserted,
		Skipped:  len(txns) - inserted,
	}, nil
}
