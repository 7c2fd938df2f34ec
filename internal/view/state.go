package view

import (
	"ledgerview/internal/core"
)

// Phase is the coarse loading status of the view.
type Phase string

const (
	PhaseInitial Phase = "initial"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
)

// VisibleCustomer is one row of the filtered list. Total is nil when the
// customer has no transactions.
type VisibleCustomer struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Total *float64 `json:"total"`
}

// Snapshot is a copy of the view state safe to hand to other goroutines.
type Snapshot struct {
	Phase            Phase             `json:"phase"`
	Loaded           bool              `json:"loaded"`
	Customers        []VisibleCustomer `json:"customers"`
	Filter           core.FilterState  `json:"filter"`
	SelectedCustomer *int64            `json:"selected_customer_id"`
	Chart            core.ChartConfig  `json:"chart"`
	CustomerCount    int               `json:"customer_count"`
	TransactionCount int               `json:"transaction_count"`
	Errors           []string          `json:"errors,omitempty"`
}

// Ready reports whether both collections have loaded at least once. It
// stays true while a later reload is in flight.
func (s Snapshot) Ready() bool {
	return s.Loaded
}

// state is owned by the coordinator loop. Collections and charts are
// replaced wholesale, never mutated in place, so snapshots may share them.
type state struct {
	customers    []core.Customer
	transactions []core.Transaction
	index        *core.CustomerIndex
	totals       *core.TotalsMap
	filter       core.FilterState
	visible      []core.Customer
	selected     *int64
	chart        core.ChartConfig

	customersLoaded    bool
	transactionsLoaded bool
	inFlight           int

	customersErr    error
	transactionsErr error
}

func newState() *state {
	return &state{
		index:   core.NewOrderedMap[int64, []core.Transaction](),
		totals:  core.NewOrderedMap[int64, float64](),
		visible: []core.Customer{},
		chart:   core.PlaceholderChart(),
	}
}

func (s *state) setCustomers(customers []core.Customer) {
	s.customers = customers
	s.customersLoaded = true
	s.refilter()
}

func (s *state) setTransactions(txs []core.Transaction) {
	s.transactions = txs
	s.transactionsLoaded = true
	s.index = core.Index(txs)
	s.totals = core.TotalsByCustomer(s.index)
	s.refilter()
	if s.selected != nil {
		s.chart = s.chartFor(*s.selected)
	}
}

func (s *state) setFilter(f core.FilterState) {
	if f.HasAmount() {
		f.ExactAmount = core.Amount(*f.ExactAmount)
	}
	s.filter = f
	s.refilter()
}

func (s *state) refilter() {
	s.visible = core.Filter(s.customers, s.index, s.filter)
}

func (s *state) selectCustomer(id int64) core.ChartConfig {
	s.selected = &id
	s.chart = s.chartFor(id)
	return s.chart
}

func (s *state) chartFor(id int64) core.ChartConfig {
	bucket, _ := s.index.Get(id)
	return core.NewCustomerChart(id, core.AggregateByDate(bucket))
}

func (s *state) phase() Phase {
	switch {
	case s.inFlight > 0:
		return PhaseLoading
	case s.customersLoaded && s.transactionsLoaded:
		return PhaseLoaded
	default:
		return PhaseInitial
	}
}

func (s *state) snapshot() Snapshot {
	rows := make([]VisibleCustomer, 0, len(s.visible))
	for _, c := range s.visible {
		row := VisibleCustomer{ID: c.ID, Name: c.Name}
		if total, ok := s.totals.Get(c.ID); ok {
			row.Total = core.Amount(total)
		}
		rows = append(rows, row)
	}

	snap := Snapshot{
		Phase:            s.phase(),
		Loaded:           s.customersLoaded && s.transactionsLoaded,
		Customers:        rows,
		Filter:           core.FilterState{NameSubstring: s.filter.NameSubstring},
		Chart:            s.chart,
		CustomerCount:    len(s.customers),
		TransactionCount: len(s.transactions),
	}
	if s.filter.HasAmount() {
		snap.Filter.ExactAmount = core.Amount(*s.filter.ExactAmount)
	}
	if s.selected != nil {
		id := *s.selected
		snap.SelectedCustomer = &id
	}
	for _, err := range []error{s.customersErr, s.transactionsErr} {
		if err != nil {
			snap.Errors = append(snap.Errors, err.Error())
		}
	}
	return snap
}
