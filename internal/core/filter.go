package core

import (
	"strings"

	"golang.org/x/text/cases"
)

// FilterState is the user's current predicate over the customer list.
// A nil ExactAmount means no amount filter.
type FilterState struct {
	NameSubstring string   `json:"name"`
	ExactAmount   *float64 `json:"amount"`
}

// HasAmount reports whether the amount stage applies.
func (s FilterState) HasAmount() bool {
	return s.ExactAmount != nil
}

// Filter returns the customers visible under state, preserving input order.
//
// The name stage keeps customers whose case-folded name contains the
// case-folded substring. The amount stage, when set, keeps only those with at
// least one indexed transaction whose amount equals ExactAmount exactly; no
// tolerance is applied. Customers absent from idx fail the amount stage.
func Filter(customers []Customer, idx *CustomerIndex, state FilterState) []Customer {
	fold := cases.Fold()
	needle := fold.String(state.NameSubstring)

	out := make([]Customer, 0, len(customers))
	for _, c := range customers {
		if needle != "" && !strings.Contains(fold.String(c.Name), needle) {
			continue
		}
		if state.HasAmount() && !hasAmount(idx, c.ID, *state.ExactAmount) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasAmount(idx *CustomerIndex, customerID int64, amount float64) bool {
	bucket, ok := idx.Get(customerID)
	if !ok {
		return false
	}
	for _, t := range bucket {
		if t.Amount == amount {
			return true
		}
	}
	return false
}
