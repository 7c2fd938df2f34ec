package core

// TotalsMap holds the summed amount per customer id, in index key order.
type TotalsMap = OrderedMap[int64, float64]

// DateTotal is the summed amount of one calendar date.
type DateTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// DateAggregate lists per-date totals in the order each date was first seen.
// It is not sorted: the same transactions in a different order can yield the
// same entries in a different order.
type DateAggregate []DateTotal

// TotalsByCustomer sums every bucket of idx. Customers without transactions
// have no bucket and therefore no entry.
func TotalsByCustomer(idx *CustomerIndex) *TotalsMap {
	totals := NewOrderedMap[int64, float64]()
	for id, bucket := range idx.All() {
		var sum float64
		for _, t := range bucket {
			sum += t.Amount
		}
		totals.Set(id, sum)
	}
	return totals
}

// AggregateByDate reduces txs to one running total per distinct date.
func AggregateByDate(txs []Transaction) DateAggregate {
	byDate := NewOrderedMap[string, float64]()
	for _, t := range txs {
		sum, _ := byDate.Get(t.Date)
		byDate.Set(t.Date, sum+t.Amount)
	}
	out := make(DateAggregate, 0, byDate.Len())
	for date, total := range byDate.All() {
		out = append(out, DateTotal{Date: date, Total: total})
	}
	return out
}

// Categories returns the dates of the aggregate, aligned with Totals.
func (a DateAggregate) Categories() []string {
	out := make([]string, len(a))
	for i, d := range a {
		out[i] = d.Date
	}
	return out
}

// Totals returns the totals of the aggregate, aligned with Categories.
func (a DateAggregate) Totals() []float64 {
	out := make([]float64, len(a))
	for i, d := range a {
		out[i] = d.Total
	}
	return out
}
