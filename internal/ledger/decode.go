package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"ledgerview/internal/core"
)

// ErrNotArray is returned when a payload is not a JSON array of records.
var ErrNotArray = errors.New("payload is not a JSON array")

// Raw records keep every field optional so missing values can be told apart
// from zero values. json.Number keeps integer ids exact.
type rawCustomer struct {
	ID   *json.Number `json:"id"`
	Name *string      `json:"name"`
}

type rawTransaction struct {
	ID         *json.Number `json:"id"`
	CustomerID *json.Number `json:"customer_id"`
	Date       *string      `json:"date"`
	Amount     *json.Number `json:"amount"`
}

// DecodeResult carries the valid records of a payload and how many were dropped.
type DecodeResult[T any] struct {
	Records []T
	Dropped int
}

// DecodeCustomers reads a JSON array of customer objects. Records with a
// missing or ill-typed field, or an empty name, are dropped.
func DecodeCustomers(r io.Reader) (DecodeResult[core.Customer], error) {
	items, err := decodeArray(r)
	if err != nil {
		return DecodeResult[core.Customer]{}, err
	}
	res := DecodeResult[core.Customer]{Records: make([]core.Customer, 0, len(items))}
	for _, item := range items {
		c, ok := toCustomer(item)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, c)
	}
	return res, nil
}

// DecodeTransactions reads a JSON array of transaction objects. Records with a
// missing or ill-typed field, a date not in YYYY-MM-DD form, or a non-finite
// amount are dropped.
func DecodeTransactions(r io.Reader) (DecodeResult[core.Transaction], error) {
	items, err := decodeArray(r)
	if err != nil {
		return DecodeResult[core.Transaction]{}, err
	}
	res := DecodeResult[core.Transaction]{Records: make([]core.Transaction, 0, len(items))}
	for _, item := range items {
		t, ok := toTransaction(item)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, t)
	}
	return res, nil
}

func decodeArray(r io.Reader) ([]json.RawMessage, error) {
	dec := json.NewDecoder(r)
	var items []json.RawMessage
	if err := dec.Decode(&items); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotArray
		}
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if items == nil {
		return nil, ErrNotArray
	}
	return items, nil
}

func toCustomer(item json.RawMessage) (core.Customer, bool) {
	var raw rawCustomer
	if err := json.Unmarshal(item, &raw); err != nil {
		return core.Customer{}, false
	}
	if raw.ID == nil || raw.Name == nil {
		return core.Customer{}, false
	}
	id, err := raw.ID.Int64()
	if err != nil {
		return core.Customer{}, false
	}
	c := core.Customer{ID: id, Name: *raw.Name}
	if c.Validate() != nil {
		return core.Customer{}, false
	}
	return c, true
}

func toTransaction(item json.RawMessage) (core.Transaction, bool) {
	var raw rawTransaction
	if err := json.Unmarshal(item, &raw); err != nil {
		return core.Transaction{}, false
	}
	if raw.ID == nil || raw.CustomerID == nil || raw.Date == nil || raw.Amount == nil {
		return core.Transaction{}, false
	}
	id, err := raw.ID.Int64()
	if err != nil {
		return core.Transaction{}, false
	}
	customerID, err := raw.CustomerID.Int64()
	if err != nil {
		return core.Transaction{}, false
	}
	amount, err := raw.Amount.Float64()
	if err != nil {
		return core.Transaction{}, false
	}
	t := core.Transaction{ID: id, CustomerID: customerID, Date: *raw.Date, Amount: amount}
	if t.Validate() != nil {
		return core.Transaction{}, false
	}
	return t, true
}
