package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
)

// parseCustomers converts A:B rows (id, name). Blank rows are skipped
// silently; rows that fail validation are counted as dropped.
func parseCustomers(values [][]interface{}) ledger.DecodeResult[core.Customer] {
	res := ledger.DecodeResult[core.Customer]{Records: make([]core.Customer, 0, len(values))}
	for _, row := range values {
		if isBlank(row) {
			continue
		}
		id, ok := cellInt(safeGet(row, 0))
		c := core.Customer{ID: id, Name: cellString(safeGet(row, 1))}
		if !ok || c.Validate() != nil {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, c)
	}
	return res
}

// parseTransactions converts A:D rows (id, customer id, date, amount).
func parseTransactions(values [][]interface{}) ledger.DecodeResult[core.Transaction] {
	res := ledger.DecodeResult[core.Transaction]{Records: make([]core.Transaction, 0, len(values))}
	for _, row := range values {
		if isBlank(row) {
			continue
		}
		id, okID := cellInt(safeGet(row, 0))
		customerID, okCustomer := cellInt(safeGet(row, 1))
		amount, okAmount := cellFloat(safeGet(row, 3))
		t := core.Transaction{
			ID:         id,
			CustomerID: customerID,
			Date:       cellString(safeGet(row, 2)),
			Amount:     amount,
		}
		if !okID || !okCustomer || !okAmount || t.Validate() != nil {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, t)
	}
	return res
}

func safeGet(row []interface{}, idx int) interface{} {
	if idx < len(row) {
		return row[idx]
	}
	return nil
}

func isBlank(row []interface{}) bool {
	for _, v := range row {
		if cellString(v) != "" {
			return false
		}
	}
	return true
}

func cellString(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// cellInt accepts whole numbers whether the API rendered them as numbers or
// as text.
func cellInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.Abs(n) > 1<<53 {
			return 0, false
		}
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func cellFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case string:
		if p := core.ParseAmountFilter(n); p != nil {
			return *p, true
		}
		return 0, false
	default:
		return 0, false
	}
}
