package testutil

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// TransactionGenerator produces noisy statement lines the way banks print them.
type TransactionGenerator struct {
	faker *gofakeit.Faker
	next  int
}

// NewTransactionGenerator creates a deterministic generator for seed.
func NewTransactionGenerator(seed uint64) *TransactionGenerator {
	return &TransactionGenerator{faker: gofakeit.New(int64(seed))}
}

// Description decorates merchant with the numeric noise seen on statements:
// dates, masked card digits, and authorization codes.
func (g *TransactionGenerator) Description(merchant string) string {
	switch g.faker.IntRange(0, 3) {
	case 0:
		return fmt.Sprintf("%s %s", merchant, g.faker.Numerify("#######"))
	case 1:
		return fmt.Sprintf("COMPRA CARTAO %s %s", g.faker.Numerify("####.####.####"), merchant)
	case 2:
		return fmt.Sprintf("%s %s", merchant, g.faker.Date().Format("02/01/2006"))
	default:
		return fmt.Sprintf("PIX %s %s", merchant, g.faker.Numerify("##########"))
	}
}

// Transaction returns a new uncategorized transaction for merchant.
func (g *TransactionGenerator) Transaction(householdID, merchant string) model.Transaction {
	g.next++
	return model.Transaction{
		ID:          fmt.Sprintf("gen-%d", g.next),
		HouseholdID: householdID,
		Description: g.Description(merchant),
		Amount:      decimal.NewFromFloat(g.faker.Price(1, 500)).Round(2),
		PostedAt:    g.faker.DateRange(time.Now().AddDate(-1, 0, 0), time.Now()),
		Category:    model.CategoryOther,
	}
}

// Transactions returns n transactions with random company names as merchants.
func (g *TransactionGenerator) Transactions(householdID string, n int) []model.Transaction {
	txns := make([]model.Transaction, n)
	for i := range txns {
		txns[i] = g.Transaction(householdID, g.faker.Company())
	}
	return txns
}
