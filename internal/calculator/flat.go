package calculator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FlatTable is a static per-user amount lookup keyed by username.
type FlatTable map[string]decimal.Decimal

// ParseFlatTable builds a FlatTable from username -> amount strings.
// Usernames are matched case-insensitively.
func ParseFlatTable(raw map[string]string) (FlatTable, error) {
	table := make(FlatTable, len(raw))
	for name, amount := range raw {
		d, err := decimal.NewFromString(strings.TrimSpace(amount))
		if err != nil {
			return nil, fmt.Errorf("flat override for %q: %w", name, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("flat override for %q must not be negative", name)
		}
		table[strings.ToLower(strings.TrimSpace(name))] = Round(d)
	}
	return table, nil
}

// Lookup returns the override for username, if any.
func (t FlatTable) Lookup(username string) (decimal.Decimal, bool) {
	d, ok := t[strings.ToLower(username)]
	return d, ok
}
