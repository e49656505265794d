// Package ofx imports OFX/QFX bank and credit card statements as
// uncategorized household transactions.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line missing their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
	datePrefix  = regexp.MustCompile(`^\d{2}/\d{2}\s+`)
)

// Card network prefixes some banks put in front of the merchant name.
var namePrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"COMPRA CARTAO DEB ",
	"COMPRA CARTAO ",
	"COMPRA NO DEBITO ",
	"CHECK CARD ",
	"VISA PURCHASE ",
}

// Parser converts statements into transactions owned by one household.
type Parser struct {
	logger      *slog.Logger
	householdID string
}

// NewParser creates a parser for householdID.
func NewParser(householdID string, logger *slog.Logger) (*Parser, error) {
	if strings.TrimSpace(householdID) == "" {
		return nil, common.MissingHousehold()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{householdID: householdID, logger: logger}, nil
}

// preprocess fixes formatting issues that trip the ofxgo SGML reader.
func preprocess(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)
	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// Parse reads a statement. Lines repeating a FITID already seen in the file
// are dropped; the first occurrence wins.
func (p *Parser) Parse(ctx context.Context, r io.Reader) ([]model.Transaction, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocess(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var lists []*ofxgo.TransactionList
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}

	seen := make(map[string]bool)
	var (
		txns       []model.Transaction
		duplicates int
	)
	for _, list := range lists {
		for _, raw := range list.Transactions {
			txn, err := p.convert(raw)
			if err != nil {
				p.logger.Warn("skipping statement line", "fitid", string(raw.FiTID), "error", err)
				continue
			}
			if seen[txn.ID] {
				duplicates++
				continue
			}
			seen[txn.ID] = true
			txns = append(txns, txn)
		}
	}

	p.logger.Info("parsed OFX file",
		"household_id", p.householdID,
		"transactions", len(txns),
		"duplicates", duplicates,
		"statements", len(lists))

	return txns, nil
}

func (p *Parser) convert(raw ofxgo.Transaction) (model.Transaction, error) {
	id := strings.TrimSpace(string(raw.FiTID))
	if id == "" {
		return model.Transaction{}, fmt.Errorf("missing FITID")
	}

	amount, err := decimal.NewFromString(raw.TrnAmt.FloatString(2))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("invalid amount: %w", err)
	}

	return model.Transaction{
		ID:          id,
		HouseholdID: p.householdID,
		Description: description(raw),
		Category:    model.CategoryOther,
		Amount:      amount.Abs(),
		PostedAt:    raw.DtPosted.Time,
	}, nil
}

// description picks the most merchant-like text of a statement line.
func description(raw ofxgo.Transaction) string {
	if raw.Payee != nil && raw.Payee.Name != "" {
		return strings.TrimSpace(string(raw.Payee.Name))
	}

	name := strings.TrimSpace(string(raw.Name))
	if raw.Memo != "" && isGeneric(name) {
		name = strings.TrimSpace(string(raw.Memo))
	}

	upper := strings.ToUpper(name)
	for _, prefix := range namePrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}

	return strings.TrimSpace(datePrefix.ReplaceAllString(name, ""))
}

func isGeneric(name string) bool {
	switch strings.ToUpper(name) {
	case "", "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "PIX", "COMPRA", "TRANSFERENCIA":
		return true
	}
	return false
}
