package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar-date form transactions carry.
const DateLayout = time.DateOnly

type (
	Customer struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}

	Transaction struct {
		ID         int64   `json:"id"`
		CustomerID int64   `json:"customer_id"`
		Date       string  `json:"date"`
		Amount     float64 `json:"amount"`
	}
)

var (
	ErrEmptyName     = errors.New("empty customer name")
	ErrInvalidDate   = errors.New("invalid transaction date")
	ErrInvalidAmount = errors.New("invalid amount")
)

func (c Customer) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (t Transaction) Validate() error {
	if _, err := time.Parse(DateLayout, t.Date); err != nil {
		return ErrInvalidDate
	}
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return ErrInvalidAmount
	}
	return nil
}
