package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
)

// Dialect names the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Snapshot describes the last successful ReplaceSnapshot.
type Snapshot struct {
	Source       string
	Customers    int
	Transactions int
	RefreshedAt  time.Time
}

// Repository stores the customer/transaction snapshot in SQL. Row order is
// the order the snapshot was written in.
type Repository struct {
	db      *sql.DB
	dialect Dialect
	logger  *log.Logger
}

var (
	_ ledger.Source                    = (*Repository)(nil)
	_ ledger.CustomerTransactionReader = (*Repository)(nil)
)

// NewSQLiteRepository opens (creating if needed) the database file at dbPath
// and migrates it.
func NewSQLiteRepository(ctx context.Context, dbPath string, logger *log.Logger) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(ctx, DialectSQLite, dbPath, logger)
}

// NewPostgresRepository connects to databaseURL through pgx and migrates it.
func NewPostgresRepository(ctx context.Context, databaseURL string, logger *log.Logger) (*Repository, error) {
	return open(ctx, DialectPostgres, databaseURL, logger)
}

func open(ctx context.Context, dialect Dialect, dsn string, logger *log.Logger) (*Repository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	db, err := openDB(dialect, dsn)
	if err != nil {
		return nil, err
	}

	if err := pingWithRetry(ctx, db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.InfoContext(ctx, "Database ready", "dialect", string(dialect))
	return &Repository{db: db, dialect: dialect, logger: logger}, nil
}

func openDB(dialect Dialect, dsn string) (*sql.DB, error) {
	switch dialect {
	case DialectSQLite:
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite database: %w", err)
		}
		return db, nil
	case DialectPostgres:
		config, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database URL: %w", err)
		}
		return stdlib.OpenDB(*config), nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
}

// pingWithRetry waits for a database that may still be starting.
func pingWithRetry(ctx context.Context, db *sql.DB, logger *log.Logger) error {
	const maxRetries = 5
	retryDelay := 500 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}
		logger.WarnContext(ctx, "Database not ready, retrying",
			"attempt", i+1,
			"max_attempts", maxRetries,
			log.FieldError, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
	}
	return fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Dialect reports which backend the repository talks to.
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// ListCustomers implements ledger.CustomerReader
func (r *Repository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM customers ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	out := make([]core.Customer, 0)
	for rows.Next() {
		var c core.Customer
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return out, nil
}

// ListTransactions implements ledger.TransactionReader
func (r *Repository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		`SELECT id, customer_id, date, amount FROM transactions ORDER BY position`)
}

// ListTransactionsByCustomer implements ledger.CustomerTransactionReader
func (r *Repository) ListTransactionsByCustomer(ctx context.Context, customerID int64) ([]core.Transaction, error) {
	return r.queryTransactions(ctx,
		r.rebind(`SELECT id, customer_id, date, amount FROM transactions WHERE customer_id = ? ORDER BY position`),
		customerID)
}

func (r *Repository) queryTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var t core.Transaction
		if err := rows.Scan(&t.ID, &t.CustomerID, &t.Date, &t.Amount); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// ReplaceSnapshot swaps both tables for the given collections in a single
// transaction and records the refresh. Readers see either the old or the new
// snapshot, never a mix.
func (r *Repository) ReplaceSnapshot(ctx context.Context, source string, customers []core.Customer, txs []core.Transaction) (Snapshot, error) {
	snap := Snapshot{
		Source:       source,
		Customers:    len(customers),
		Transactions: len(txs),
		RefreshedAt:  time.Now().UTC(),
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM transactions`, `DELETE FROM customers`, `DELETE FROM snapshots`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return Snapshot{}, fmt.Errorf("clear snapshot: %w", err)
		}
	}

	insertCustomer, err := tx.PrepareContext(ctx, r.rebind(`INSERT INTO customers (position, id, name) VALUES (?, ?, ?)`))
	if err != nil {
		return Snapshot{}, fmt.Errorf("prepare customer insert: %w", err)
	}
	defer insertCustomer.Close()
	for i, c := range customers {
		if _, err := insertCustomer.ExecContext(ctx, i, c.ID, c.Name); err != nil {
			return Snapshot{}, fmt.Errorf("insert customer %d: %w", c.ID, err)
		}
	}

	insertTx, err := tx.PrepareContext(ctx, r.rebind(`INSERT INTO transactions (position, id, customer_id, date, amount) VALUES (?, ?, ?, ?, ?)`))
	if err != nil {
		return Snapshot{}, fmt.Errorf("prepare transaction insert: %w", err)
	}
	defer insertTx.Close()
	for i, t := range txs {
		if _, err := insertTx.ExecContext(ctx, i, t.ID, t.CustomerID, t.Date, t.Amount); err != nil {
			return Snapshot{}, fmt.Errorf("insert transaction %d: %w", t.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		r.rebind(`INSERT INTO snapshots (id, source, customers, transactions, refreshed_at) VALUES (1, ?, ?, ?, ?)`),
		snap.Source, snap.Customers, snap.Transactions, snap.RefreshedAt.Format(time.RFC3339Nano)); err != nil {
		return Snapshot{}, fmt.Errorf("record snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit snapshot: %w", err)
	}

	r.logger.InfoContext(ctx, "Snapshot replaced",
		log.FieldOperation, log.OpSync,
		log.FieldSource, source,
		log.FieldCustomers, snap.Customers,
		log.FieldTransactions, snap.Transactions)
	return snap, nil
}

// LastSnapshot returns the most recent refresh, or ok=false if none happened.
// Only the latest row is kept.
func (r *Repository) LastSnapshot(ctx context.Context) (snap Snapshot, ok bool, err error) {
	var refreshedAt string
	row := r.db.QueryRowContext(ctx,
		`SELECT source, customers, transactions, refreshed_at FROM snapshots WHERE id = 1`)
	switch err := row.Scan(&snap.Source, &snap.Customers, &snap.Transactions, &refreshedAt); {
	case errors.Is(err, sql.ErrNoRows):
		return Snapshot{}, false, nil
	case err != nil:
		return Snapshot{}, false, fmt.Errorf("query last snapshot: %w", err)
	}
	snap.RefreshedAt, err = time.Parse(time.RFC3339Nano, refreshedAt)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("parse snapshot time: %w", err)
	}
	return snap, true, nil
}
