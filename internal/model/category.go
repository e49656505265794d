package model

import (
	"strings"
	"time"
)

// Fixed category slugs. Categories never change identity after creation.
const (
	CategoryBills     = "bills"
	CategoryFood      = "food"
	CategoryLeisure   = "leisure"
	CategoryShopping  = "shopping"
	CategoryTransport = "transport"
	CategoryHealth    = "health"
	CategoryEducation = "education"
	CategoryOther     = "other"
)

// FixedCategories lists the closed enumeration in display order.
var FixedCategories = []string{
	CategoryBills,
	CategoryFood,
	CategoryLeisure,
	CategoryShopping,
	CategoryTransport,
	CategoryHealth,
	CategoryEducation,
	CategoryOther,
}

// Category is either one of the fixed categories (ID == Slug, no household)
// or a custom category owned by a single household.
type Category struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id,omitempty"`
	Slug        string    `json:"slug,omitempty"`
	Name        string    `json:"name"`
}

// IsGlobal reports whether the category is shared by all households.
func (c Category) IsGlobal() bool {
	return c.HouseholdID == ""
}

// Label returns the best free-form label for kit inference.
func (c Category) Label() string {
	if c.Slug != "" {
		return c.Slug
	}
	return c.Name
}

// IsFixedCategory reports whether id belongs to the fixed enumeration.
func IsFixedCategory(id string) bool {
	for _, c := range FixedCategories {
		if c == id {
			return true
		}
	}
	return false
}

// CoerceCategory maps any value outside the fixed enumeration to "other".
// The second return value is false when coercion happened.
func CoerceCategory(value string) (string, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	if IsFixedCategory(v) {
		return v, true
	}
	return CategoryOther, false
}
