package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"ledgerview/internal/core"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "ledger.db")
	repo, err := NewSQLiteRepository(context.Background(), dbPath, nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

var (
	testCustomers = []core.Customer{
		{ID: 3, Name: "Cy"},
		{ID: 1, Name: "Ann"},
		{ID: 2, Name: "Bob"},
	}
	testTransactions = []core.Transaction{
		{ID: 12, CustomerID: 1, Date: "2022-01-02", Amount: 7},
		{ID: 10, CustomerID: 1, Date: "2022-01-01", Amount: 5},
		{ID: 11, CustomerID: 2, Date: "2022-01-01", Amount: 3.25},
		{ID: 11, CustomerID: 9, Date: "2022-01-03", Amount: -1},
	}
)

func TestEmptyRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	customers, err := repo.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers() error: %v", err)
	}
	if customers == nil || len(customers) != 0 {
		t.Errorf("ListCustomers() = %#v, want empty non-nil", customers)
	}

	if _, ok, err := repo.LastSnapshot(ctx); err != nil || ok {
		t.Errorf("LastSnapshot() = ok %v, err %v; want no snapshot", ok, err)
	}
}

func TestReplaceSnapshotRoundTripPreservesOrder(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	snap, err := repo.ReplaceSnapshot(ctx, "http", testCustomers, testTransactions)
	if err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}
	if snap.Customers != 3 || snap.Transactions != 4 {
		t.Errorf("snapshot counts = %d/%d", snap.Customers, snap.Transactions)
	}

	customers, err := repo.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers() error: %v", err)
	}
	if len(customers) != len(testCustomers) {
		t.Fatalf("ListCustomers() = %v", customers)
	}
	for i := range customers {
		if customers[i] != testCustomers[i] {
			t.Errorf("customer[%d] = %+v, want %+v", i, customers[i], testCustomers[i])
		}
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if len(txs) != len(testTransactions) {
		t.Fatalf("ListTransactions() = %v", txs)
	}
	for i := range txs {
		if txs[i] != testTransactions[i] {
			t.Errorf("transaction[%d] = %+v, want %+v", i, txs[i], testTransactions[i])
		}
	}

	last, ok, err := repo.LastSnapshot(ctx)
	if err != nil || !ok {
		t.Fatalf("LastSnapshot() = ok %v, err %v", ok, err)
	}
	if last.Source != "http" || last.Customers != 3 || last.Transactions != 4 {
		t.Errorf("LastSnapshot() = %+v", last)
	}
	if !last.RefreshedAt.Equal(snap.RefreshedAt) {
		t.Errorf("RefreshedAt = %v, want %v", last.RefreshedAt, snap.RefreshedAt)
	}
}

func TestListTransactionsByCustomer(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if _, err := repo.ReplaceSnapshot(ctx, "http", testCustomers, testTransactions); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}

	txs, err := repo.ListTransactionsByCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("ListTransactionsByCustomer() error: %v", err)
	}
	if len(txs) != 2 || txs[0].ID != 12 || txs[1].ID != 10 {
		t.Errorf("ListTransactionsByCustomer(1) = %v", txs)
	}

	none, err := repo.ListTransactionsByCustomer(ctx, 3)
	if err != nil {
		t.Fatalf("ListTransactionsByCustomer() error: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListTransactionsByCustomer(3) = %v, want empty", none)
	}
}

func TestReplaceSnapshotReplacesWholesale(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	if _, err := repo.ReplaceSnapshot(ctx, "http", testCustomers, testTransactions); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}

	next := []core.Customer{{ID: 7, Name: "Dee"}}
	if _, err := repo.ReplaceSnapshot(ctx, "sheets", next, nil); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}

	customers, err := repo.ListCustomers(ctx)
	if err != nil {
		t.Fatalf("ListCustomers() error: %v", err)
	}
	if len(customers) != 1 || customers[0] != next[0] {
		t.Errorf("ListCustomers() = %v, want %v", customers, next)
	}
	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("ListTransactions() = %v, want empty", txs)
	}
	if last, _, _ := repo.LastSnapshot(ctx); last.Source != "sheets" {
		t.Errorf("LastSnapshot().Source = %q, want sheets", last.Source)
	}
}

func TestReplaceSnapshotCancelledKeepsPrevious(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.ReplaceSnapshot(context.Background(), "http", testCustomers, testTransactions); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := repo.ReplaceSnapshot(ctx, "http", nil, nil); err == nil {
		t.Fatal("ReplaceSnapshot() with cancelled context expected error")
	}

	customers, err := repo.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("ListCustomers() error: %v", err)
	}
	if len(customers) != len(testCustomers) {
		t.Errorf("ListCustomers() = %v, want previous snapshot", customers)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	for i := 0; i < 2; i++ {
		if err := RunMigrations(DialectSQLite, dbPath); err != nil {
			t.Fatalf("RunMigrations() run %d error: %v", i+1, err)
		}
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("database file missing: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	if got := pg.rebind("SELECT ? , ?"); got != "SELECT $1 , $2" {
		t.Errorf("rebind(postgres) = %q", got)
	}
	lite := &Repository{dialect: DialectSQLite}
	if got := lite.rebind("SELECT ?"); got != "SELECT ?" {
		t.Errorf("rebind(sqlite) = %q", got)
	}
}

func TestPostgresRepositoryIntegration(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, url, nil)
	if err != nil {
		t.Fatalf("NewPostgresRepository() error: %v", err)
	}
	defer repo.Close()

	if _, err := repo.ReplaceSnapshot(ctx, "http", testCustomers, testTransactions); err != nil {
		t.Fatalf("ReplaceSnapshot() error: %v", err)
	}
	txs, err := repo.ListTransactionsByCustomer(ctx, 1)
	if err != nil {
		t.Fatalf("ListTransactionsByCustomer() error: %v", err)
	}
	if len(txs) != 2 {
		t.Errorf("ListTransactionsByCustomer(1) = %v", txs)
	}
}
