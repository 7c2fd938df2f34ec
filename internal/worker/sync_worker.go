package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ledgerview/internal/amqp"
	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
	"ledgerview/internal/storage"
)

// SnapshotWriter persists a complete customer/transaction snapshot.
type SnapshotWriter interface {
	ReplaceSnapshot(ctx context.Context, source string, customers []core.Customer, txs []core.Transaction) (storage.Snapshot, error)
}

// SnapshotHistory is implemented by writers that remember the last refresh.
type SnapshotHistory interface {
	LastSnapshot(ctx context.Context) (storage.Snapshot, bool, error)
}

// Publisher announces a refreshed snapshot.
type Publisher interface {
	PublishSnapshotRefreshed(ctx context.Context, msg *amqp.SnapshotRefreshed) error
}

// SyncWorker copies the upstream collections into the local snapshot store
type SyncWorker struct {
	upstream   ledger.Source
	sourceName string
	store      SnapshotWriter
	publisher  Publisher
	logger     *log.Logger
}

// NewSyncWorker creates a worker. publisher may be nil.
func NewSyncWorker(upstream ledger.Source, sourceName string, store SnapshotWriter, publisher Publisher, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		upstream:   upstream,
		sourceName: sourceName,
		store:      store,
		publisher:  publisher,
		logger:     logger.WithComponent(log.ComponentWorker),
	}
}

// SyncOnce fetches both collections concurrently and replaces the snapshot.
// If either fetch fails nothing is written and nothing is published.
func (w *SyncWorker) SyncOnce(ctx context.Context) (storage.Snapshot, error) {
	var (
		customers []core.Customer
		txs       []core.Transaction
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customers, err = w.upstream.ListCustomers(gctx)
		if err != nil {
			return fmt.Errorf("fetch customers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		txs, err = w.upstream.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("fetch transactions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return storage.Snapshot{}, err
	}

	snap, err := w.store.ReplaceSnapshot(ctx, w.sourceName, customers, txs)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("replace snapshot: %w", err)
	}

	if w.publisher != nil {
		msg := amqp.NewSnapshotRefreshed(w.sourceName, snap.Customers, snap.Transactions)
		if err := w.publisher.PublishSnapshotRefreshed(ctx, msg); err != nil {
			return snap, fmt.Errorf("publish snapshot refreshed: %w", err)
		}
	}

	return snap, nil
}

// Run syncs immediately and then on every interval until ctx is cancelled.
// Failed rounds are logged and retried on the next tick.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	w.logLastSnapshot(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.runRound(ctx)

		select {
		case <-ctx.Done():
			w.logger.InfoContext(ctx, "Sync worker stopping", log.FieldOperation, log.OpShutdown)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *SyncWorker) runRound(ctx context.Context) {
	start := time.Now()
	snap, err := w.SyncOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "Snapshot sync failed",
			log.FieldOperation, log.OpSync,
			log.FieldSource, w.sourceName,
			log.FieldError, err)
		return
	}
	w.logger.InfoContext(ctx, "Snapshot sync completed",
		log.FieldOperation, log.OpSync,
		log.FieldSource, w.sourceName,
		log.FieldCustomers, snap.Customers,
		log.FieldTransactions, snap.Transactions,
		log.FieldDuration, time.Since(start).Milliseconds())
}

func (w *SyncWorker) logLastSnapshot(ctx context.Context) {
	history, ok := w.store.(SnapshotHistory)
	if !ok {
		return
	}
	last, found, err := history.LastSnapshot(ctx)
	switch {
	case err != nil:
		w.logger.WarnContext(ctx, "Could not read last snapshot", log.FieldError, err)
	case !found:
		w.logger.InfoContext(ctx, "No previous snapshot found")
	default:
		w.logger.InfoContext(ctx, "Previous snapshot",
			log.FieldSource, last.Source,
			log.FieldCustomers, last.Customers,
			log.FieldTransactions, last.Transactions,
			"refreshed_at", last.RefreshedAt.Format(time.RFC3339),
			"age", time.Since(last.RefreshedAt).Round(time.Second))
	}
}
