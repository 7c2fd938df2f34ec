package ledger

import (
	"context"

	"ledgerview/internal/core"
)

// Ports for inbound data sources.
type (
	CustomerReader interface {
		ListCustomers(ctx context.Context) ([]core.Customer, error)
	}

	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// CustomerTransactionReader narrows a transaction fetch to one customer.
	CustomerTransactionReader interface {
		ListTransactionsByCustomer(ctx context.Context, customerID int64) ([]core.Transaction, error)
	}

	// Source provides both collections the view needs.
	Source interface {
		CustomerReader
		TransactionReader
	}
)
