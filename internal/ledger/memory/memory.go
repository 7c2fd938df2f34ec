package memory

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
)

// Store serves a fixed customer/transaction dataset from memory.
type Store struct {
	mu           sync.Mutex
	customers    []core.Customer
	transactions []core.Transaction
}

var (
	_ ledger.Source                    = (*Store)(nil)
	_ ledger.CustomerTransactionReader = (*Store)(nil)
)

func New(customers []core.Customer, transactions []core.Transaction) *Store {
	return &Store{
		customers:    append([]core.Customer(nil), customers...),
		transactions: append([]core.Transaction(nil), transactions...),
	}
}

// NewFromFiles seeds the store from customers.json and transactions.json in
// base. A missing or unreadable file falls back to the built-in dataset.
func NewFromFiles(base string) *Store {
	customers := readCustomers(filepath.Join(base, "customers.json"))
	transactions := readTransactions(filepath.Join(base, "transactions.json"))
	if customers == nil {
		customers = defaultCustomers()
	}
	if transactions == nil {
		transactions = defaultTransactions()
	}
	return New(customers, transactions)
}

// ListCustomers returns a copy of the customers.
func (s *Store) ListCustomers(_ context.Context) ([]core.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Customer(nil), s.customers...), nil
}

// ListTransactions returns a copy of the transactions.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.transactions...), nil
}

func (s *Store) ListTransactionsByCustomer(_ context.Context, customerID int64) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if t.CustomerID == customerID {
			out = append(out, t)
		}
	}
	return out, nil
}

func readCustomers(path string) []core.Customer {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	res, err := ledger.DecodeCustomers(f)
	if err != nil {
		slog.Warn("Ignoring customer seed file", "path", path, "error", err)
		return nil
	}
	if res.Dropped > 0 {
		slog.Warn("Dropped malformed customer records", "path", path, "dropped", res.Dropped)
	}
	return res.Records
}

func readTransactions(path string) []core.Transaction {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	res, err := ledger.DecodeTransactions(f)
	if err != nil {
		slog.Warn("Ignoring transaction seed file", "path", path, "error", err)
		return nil
	}
	if res.Dropped > 0 {
		slog.Warn("Dropped malformed transaction records", "path", path, "dropped", res.Dropped)
	}
	return res.Records
}

func defaultCustomers() []core.Customer {
	return []core.Customer{
		{ID: 1, Name: "Ahmed Ali"},
		{ID: 2, Name: "Aya Elsayed"},
		{ID: 3, Name: "Mina Adel"},
		{ID: 4, Name: "Sarah Reda"},
		{ID: 5, Name: "Mohamed Sayed"},
	}
}

func defaultTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: 1, CustomerID: 1, Date: "2022-01-01", Amount: 1000},
		{ID: 2, CustomerID: 1, Date: "2022-01-02", Amount: 2000},
		{ID: 3, CustomerID: 2, Date: "2022-01-01", Amount: 550},
		{ID: 4, CustomerID: 3, Date: "2022-01-01", Amount: 500},
		{ID: 5, CustomerID: 2, Date: "2022-01-02", Amount: 1300},
		{ID: 6, CustomerID: 4, Date: "2022-01-01", Amount: 750},
		{ID: 7, CustomerID: 3, Date: "2022-01-02", Amount: 1250},
		{ID: 8, CustomerID: 5, Date: "2022-01-01", Amount: 2500},
		{ID: 9, CustomerID: 5, Date: "2022-01-02", Amount: 875},
	}
}
