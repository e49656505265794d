package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a single statement line owned by a household.
type Transaction struct {
	PostedAt       time.Time       `json:"posted_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ID             string          `json:"id"`
	HouseholdID    string          `json:"household_id"`
	Description    string          `json:"description"` // Raw statement text
	Category       string          `json:"category"`
	CategorySource Source          `json:"category_source,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Confidence     float64         `json:"confidence"`
}

