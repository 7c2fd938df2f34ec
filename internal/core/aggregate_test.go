package core

import (
	"reflect"
	"testing"
)

func scenario() ([]Customer, []Transaction) {
	customers := []Customer{{ID: 1, Name: "Ann"}, {ID: 2, Name: "Bob"}}
	txs := []Transaction{
		{ID: 10, CustomerID: 1, Date: "2024-01-01", Amount: 5},
		{ID: 11, CustomerID: 1, Date: "2024-01-02", Amount: 7},
		{ID: 12, CustomerID: 2, Date: "2024-01-01", Amount: 3},
	}
	return customers, txs
}

func TestIndexPartitionsAndKeepsOrder(t *testing.T) {
	txs := []Transaction{
		{ID: 1, CustomerID: 2, Date: "2024-01-01", Amount: 1},
		{ID: 2, CustomerID: 1, Date: "2024-01-01", Amount: 2},
		{ID: 3, CustomerID: 2, Date: "2024-01-02", Amount: 3},
		{ID: 4, CustomerID: 99, Date: "2024-01-03", Amount: 4}, // no such customer
		{ID: 5, CustomerID: 1, Date: "2024-01-04", Amount: 5},
	}
	idx := Index(txs)

	if got := idx.Keys(); !reflect.DeepEqual(got, []int64{2, 1, 99}) {
		t.Fatalf("keys = %v, want first-seen order [2 1 99]", got)
	}

	total := 0
	for id, bucket := range idx.All() {
		total += len(bucket)
		for i, tx := range bucket {
			if tx.CustomerID != id {
				t.Fatalf("tx %d in bucket %d", tx.ID, id)
			}
			if i > 0 && bucket[i-1].ID > tx.ID {
				t.Fatalf("bucket %d not in input order: %v", id, bucket)
			}
		}
	}
	if total != len(txs) {
		t.Fatalf("buckets hold %d transactions, want %d", total, len(txs))
	}
}

func TestIndexRebuildReplaces(t *testing.T) {
	first := Index([]Transaction{{ID: 1, CustomerID: 1, Date: "2024-01-01", Amount: 1}})
	second := Index([]Transaction{{ID: 2, CustomerID: 2, Date: "2024-01-01", Amount: 1}})
	if _, ok := second.Get(1); ok {
		t.Fatalf("rebuilt index must not carry old buckets")
	}
	if first.Len() != 1 || second.Len() != 1 {
		t.Fatalf("unexpected sizes %d %d", first.Len(), second.Len())
	}
	if Index(nil).Len() != 0 {
		t.Fatalf("empty input should give empty index")
	}
}

func TestTotalsByCustomer(t *testing.T) {
	_, txs := scenario()
	totals := TotalsByCustomer(Index(txs))

	if v, ok := totals.Get(1); !ok || v != 12 {
		t.Fatalf("total[1] = %v %v, want 12", v, ok)
	}
	if v, ok := totals.Get(2); !ok || v != 3 {
		t.Fatalf("total[2] = %v %v, want 3", v, ok)
	}
	if _, ok := totals.Get(3); ok {
		t.Fatalf("customer without transactions must be absent")
	}
	if TotalsByCustomer(nil).Len() != 0 {
		t.Fatalf("nil index should give empty totals")
	}
}

func TestAggregateByDate(t *testing.T) {
	_, txs := scenario()
	idx := Index(txs)
	bucket, _ := idx.Get(1)

	got := AggregateByDate(bucket)
	want := DateAggregate{{Date: "2024-01-01", Total: 5}, {Date: "2024-01-02", Total: 7}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AggregateByDate = %v, want %v", got, want)
	}
}

func TestAggregateByDateIsGroupingReduction(t *testing.T) {
	txs := []Transaction{
		{ID: 1, Date: "2024-03-02", Amount: 1.5},
		{ID: 2, Date: "2024-03-01", Amount: 2},
		{ID: 3, Date: "2024-03-02", Amount: 4},
		{ID: 4, Date: "2024-03-03", Amount: -1},
		{ID: 5, Date: "2024-03-01", Amount: 0.5},
	}
	agg := AggregateByDate(txs)

	var sum float64
	for _, tx := range txs {
		sum += tx.Amount
	}
	var aggSum float64
	for _, total := range agg.Totals() {
		aggSum += total
	}
	if aggSum != sum {
		t.Fatalf("aggregate sum %v, want %v", aggSum, sum)
	}
	if len(agg) != 3 {
		t.Fatalf("expected 3 distinct dates, got %d", len(agg))
	}
	// First-seen order, no sorting.
	if !reflect.DeepEqual(agg.Categories(), []string{"2024-03-02", "2024-03-01", "2024-03-03"}) {
		t.Fatalf("unexpected order: %v", agg.Categories())
	}
	if !reflect.DeepEqual(agg.Totals(), []float64{5.5, 2.5, -1}) {
		t.Fatalf("unexpected totals: %v", agg.Totals())
	}
}

func TestAggregateByDateEmpty(t *testing.T) {
	agg := AggregateByDate(nil)
	if agg == nil || len(agg) != 0 {
		t.Fatalf("expected empty non-nil aggregate, got %#v", agg)
	}
	if len(agg.Categories()) != 0 || len(agg.Totals()) != 0 {
		t.Fatalf("expected empty parallel sequences")
	}
}
