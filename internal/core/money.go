// Package core provides amount parsing for user-entered filter values.
//
// This file turns the raw text of the amount filter field into an optional
// exact amount. Anything that is not a finite number means "no filter".
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmountFilter converts user input into an exact-amount filter value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional sign. Blank, non-numeric or non-finite input returns nil, which the
// Filter Engine treats as an absent amount filter rather than an error.
//
// Examples:
//
//	ParseAmountFilter("12.5")  -> 12.5
//	ParseAmountFilter("12,5")  -> 12.5
//	ParseAmountFilter("")      -> nil
//	ParseAmountFilter("abc")   -> nil
func ParseAmountFilter(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	// Normalize decimal comma to dot
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Amount returns a pointer to v, for building filter states in code.
func Amount(v float64) *float64 {
	return &v
}
