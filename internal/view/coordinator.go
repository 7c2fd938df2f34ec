package view

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
)

var (
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("view coordinator stopped")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("view coordinator already running")
)

// Coordinator owns the view state. All reads and writes of that state happen
// on the goroutine executing Run; every operation posts a closure to it.
// Fetches run on the caller's goroutine and are applied when they complete,
// so the later completion always wins.
type Coordinator struct {
	source  ledger.Source
	logger  *log.Logger
	ops     chan func(*state)
	stopped chan struct{}
	running atomic.Bool
}

func NewCoordinator(source ledger.Source, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.Discard()
	}
	return &Coordinator{
		source:  source,
		logger:  logger.WithComponent(log.ComponentView),
		ops:     make(chan func(*state)),
		stopped: make(chan struct{}),
	}
}

// Run processes operations until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.stopped)

	st := newState()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-c.ops:
			op(st)
		}
	}
}

// do runs fn on the loop and waits for it to finish.
func (c *Coordinator) do(ctx context.Context, fn func(*state)) error {
	done := make(chan struct{})
	op := func(s *state) {
		defer close(done)
		fn(s)
	}
	select {
	case c.ops <- op:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Load fetches customers and transactions concurrently. Each result is
// applied as soon as it arrives; a failure of one does not discard the
// other. The returned error joins both failures.
func (c *Coordinator) Load(ctx context.Context) error {
	var (
		wg             sync.WaitGroup
		custErr, txErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		custErr = c.LoadCustomers(ctx)
	}()
	go func() {
		defer wg.Done()
		txErr = c.LoadTransactions(ctx)
	}()
	wg.Wait()
	return errors.Join(custErr, txErr)
}

// LoadCustomers replaces the customer list and re-runs the filter. On failure
// the previous list is kept.
func (c *Coordinator) LoadCustomers(ctx context.Context) error {
	if err := c.do(ctx, func(s *state) { s.inFlight++ }); err != nil {
		return err
	}

	customers, fetchErr := c.source.ListCustomers(ctx)
	if fetchErr != nil {
		fetchErr = fmt.Errorf("load customers: %w", fetchErr)
	}

	var visible int
	err := c.do(context.WithoutCancel(ctx), func(s *state) {
		s.inFlight--
		s.customersErr = fetchErr
		if fetchErr == nil {
			s.setCustomers(customers)
		}
		visible = len(s.visible)
	})
	if err != nil {
		return err
	}

	if fetchErr != nil {
		c.logger.ErrorContext(ctx, "Failed to load customers",
			log.FieldOperation, log.OpLoadCustomers,
			log.FieldError, fetchErr)
		return fetchErr
	}
	c.logger.InfoContext(ctx, "Customers loaded",
		log.FieldOperation, log.OpLoadCustomers,
		log.FieldCustomers, len(customers),
		log.FieldVisible, visible)
	return nil
}

// LoadTransactions replaces the transaction collection, rebuilds the index
// and totals, re-runs the filter and refreshes the chart of the selected
// customer. On failure the previous collection is kept.
func (c *Coordinator) LoadTransactions(ctx context.Context) error {
	if err := c.do(ctx, func(s *state) { s.inFlight++ }); err != nil {
		return err
	}

	txs, fetchErr := c.source.ListTransactions(ctx)
	if fetchErr != nil {
		fetchErr = fmt.Errorf("load transactions: %w", fetchErr)
	}

	var visible int
	err := c.do(context.WithoutCancel(ctx), func(s *state) {
		s.inFlight--
		s.transactionsErr = fetchErr
		if fetchErr == nil {
			s.setTransactions(txs)
		}
		visible = len(s.visible)
	})
	if err != nil {
		return err
	}

	if fetchErr != nil {
		c.logger.ErrorContext(ctx, "Failed to load transactions",
			log.FieldOperation, log.OpLoadTransactions,
			log.FieldError, fetchErr)
		return fetchErr
	}
	c.logger.InfoContext(ctx, "Transactions loaded",
		log.FieldOperation, log.OpLoadTransactions,
		log.FieldTransactions, len(txs),
		log.FieldVisible, visible)
	return nil
}

// Select makes id the selected customer and returns its date chart. A
// customer without transactions yields a chart with no points.
func (c *Coordinator) Select(ctx context.Context, id int64) (core.ChartConfig, error) {
	var cfg core.ChartConfig
	if err := c.do(ctx, func(s *state) { cfg = s.selectCustomer(id) }); err != nil {
		return core.ChartConfig{}, err
	}
	c.logger.DebugContext(ctx, "Customer selected",
		log.FieldOperation, log.OpSelect,
		log.FieldCustomerID, id,
		"points", len(cfg.XAxis.Categories))
	return cfg, nil
}

// SetNameFilter updates the name substring and re-runs the filter.
func (c *Coordinator) SetNameFilter(ctx context.Context, name string) error {
	return c.do(ctx, func(s *state) {
		f := s.filter
		f.NameSubstring = name
		s.setFilter(f)
	})
}

// SetAmountFilter parses raw and sets the exact-amount filter. Input that
// does not parse clears the amount filter.
func (c *Coordinator) SetAmountFilter(ctx context.Context, raw string) error {
	amount := core.ParseAmountFilter(raw)
	return c.do(ctx, func(s *state) {
		f := s.filter
		f.ExactAmount = amount
		s.setFilter(f)
	})
}

// ClearAmountFilter removes the exact-amount filter.
func (c *Coordinator) ClearAmountFilter(ctx context.Context) error {
	return c.do(ctx, func(s *state) {
		f := s.filter
		f.ExactAmount = nil
		s.setFilter(f)
	})
}

// SetFilter replaces the whole filter state and returns the resulting view.
func (c *Coordinator) SetFilter(ctx context.Context, f core.FilterState) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func(s *state) {
		s.setFilter(f)
		snap = s.snapshot()
	})
	if err != nil {
		return Snapshot{}, err
	}
	c.logger.DebugContext(ctx, "Filter applied",
		log.NewFields().
			WithOperation(log.OpFilter).
			WithFilter(f.NameSubstring, f.ExactAmount).
			WithCounts(snap.CustomerCount, snap.TransactionCount, len(snap.Customers)).
			ToSlice()...)
	return snap, nil
}

// View returns a copy of the current state.
func (c *Coordinator) View(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	if err := c.do(ctx, func(s *state) { snap = s.snapshot() }); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Chart returns the current chart configuration.
func (c *Coordinator) Chart(ctx context.Context) (core.ChartConfig, error) {
	var cfg core.ChartConfig
	if err := c.do(ctx, func(s *state) { cfg = s.chart }); err != nil {
		return core.ChartConfig{}, err
	}
	return cfg, nil
}

// CustomerTransactions returns one customer's transactions. Sources that
// serve per-customer reads are asked directly; otherwise the bucket of the
// loaded index is returned. The result is never nil.
func (c *Coordinator) CustomerTransactions(ctx context.Context, customerID int64) ([]core.Transaction, error) {
	if r, ok := c.source.(ledger.CustomerTransactionReader); ok {
		txs, err := r.ListTransactionsByCustomer(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("load transactions of customer %d: %w", customerID, err)
		}
		if txs == nil {
			txs = []core.Transaction{}
		}
		return txs, nil
	}

	txs := []core.Transaction{}
	err := c.do(ctx, func(s *state) {
		if bucket, ok := s.index.Get(customerID); ok {
			txs = slices.Clone(bucket)
		}
	})
	if err != nil {
		return nil, err
	}
	return txs, nil
}
