package core

// CustomerIndex groups transactions by owning customer id. Buckets keep the
// relative order of the input and keys appear in first-seen order.
type CustomerIndex = OrderedMap[int64, []Transaction]

// Index builds a fresh CustomerIndex from txs. Transactions whose customer id
// matches no known customer still get their own bucket.
func Index(txs []Transaction) *CustomerIndex {
	idx := NewOrderedMap[int64, []Transaction]()
	for _, t := range txs {
		bucket, _ := idx.Get(t.CustomerID)
		idx.Set(t.CustomerID, append(bucket, t))
	}
	return idx
}
