package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"ledgerview/internal/core"
	"ledgerview/internal/log"
	"ledgerview/internal/view"
)

type (
	indexResponse struct {
		Service   string   `json:"service"`
		Endpoints []string `json:"endpoints"`
	}

	customersResponse struct {
		Phase     view.Phase             `json:"phase"`
		Count     int                    `json:"count"`
		Customers []view.VisibleCustomer `json:"customers"`
	}

	customerTransactionsResponse struct {
		CustomerID   int64              `json:"customer_id"`
		Count        int                `json:"count"`
		Transactions []core.Transaction `json:"transactions"`
	}

	reloadResponse struct {
		View   view.Snapshot `json:"view"`
		Errors []string      `json:"errors,omitempty"`
	}
)

var endpoints = []string{
	"GET /api/view",
	"GET /api/customers",
	"GET /api/customers/{id}/transactions",
	"POST /api/filter",
	"POST /api/select",
	"GET /api/chart",
	"POST /api/reload",
	"GET /healthz",
	"GET /readyz",
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		NotFoundError("no such endpoint").Write(w)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	NewJSONResponse().JSON(indexResponse{Service: "ledgerview", Endpoints: endpoints}).Write(w)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	snap, err := s.view.View(r.Context())
	if err != nil {
		s.viewFailure(r.Context(), err, "view").Write(w)
		return
	}
	NewJSONResponse().JSON(snap).Write(w)
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	snap, err := s.view.View(r.Context())
	if err != nil {
		s.viewFailure(r.Context(), err, "customers").Write(w)
		return
	}
	NewJSONResponse().JSON(customersResponse{
		Phase:     snap.Phase,
		Count:     len(snap.Customers),
		Customers: snap.Customers,
	}).Write(w)
}

// handleCustomerTransactions lists the raw transactions of one customer.
func (s *Server) handleCustomerTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		UnprocessableEntityError("customer id must be an integer").Write(w)
		return
	}

	ctx := r.Context()
	txs, err := s.view.CustomerTransactions(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, view.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.viewFailure(ctx, err, log.OpFetch).Write(w)
		return
	default:
		log.LogError(ctx, "Customer transactions fetch failed", err, log.ComponentHTTP, log.OpFetch,
			log.LogFields{log.FieldCustomerID: id})
		ErrorResponse(http.StatusBadGateway, "upstream fetch failed").Write(w)
		return
	}

	NewJSONResponse().JSON(customerTransactionsResponse{
		CustomerID:   id,
		Count:        len(txs),
		Transactions: txs,
	}).Write(w)
}

// handleFilter replaces the whole filter. An absent or unparseable amount
// means no amount filter.
func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	name, _ := p.Lookup("name")
	f := core.FilterState{
		NameSubstring: name,
		ExactAmount:   core.ParseAmountFilter(p.Get("amount")),
	}

	snap, err := s.view.SetFilter(r.Context(), f)
	if err != nil {
		s.viewFailure(r.Context(), err, log.OpFilter).Write(w)
		return
	}
	NewJSONResponse().JSON(snap).Write(w)
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	raw := p.Get("customer_id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		UnprocessableEntityError("customer_id must be an integer").Write(w)
		return
	}

	chart, err := s.view.Select(r.Context(), id)
	if err != nil {
		s.viewFailure(r.Context(), err, log.OpSelect).Write(w)
		return
	}
	NewJSONResponse().JSON(chart).Write(w)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	chart, err := s.view.Chart(r.Context())
	if err != nil {
		s.viewFailure(r.Context(), err, "chart").Write(w)
		return
	}
	NewJSONResponse().JSON(chart).Write(w)
}

// handleReload re-runs both loads. A failed fetch leaves the previous data in
// place, so the snapshot returned alongside a 502 is still consistent.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	if s.beforeReload != nil {
		s.beforeReload()
	}

	loadErr := s.view.Load(ctx)
	if errors.Is(loadErr, view.ErrStopped) {
		s.viewFailure(ctx, loadErr, "reload").Write(w)
		return
	}

	snap, err := s.view.View(ctx)
	if err != nil {
		s.viewFailure(ctx, err, "reload").Write(w)
		return
	}

	if loadErr != nil {
		log.LogError(ctx, "Reload failed", loadErr, log.ComponentHTTP, "reload", nil)
		NewJSONResponse().
			Status(http.StatusBadGateway).
			JSON(reloadResponse{View: snap, Errors: errorMessages(loadErr)}).
			Write(w)
		return
	}
	NewJSONResponse().JSON(reloadResponse{View: snap}).Write(w)
}

// viewFailure maps coordinator errors: a stopped coordinator or a gone client
// is a 503, anything else a 500.
func (s *Server) viewFailure(ctx context.Context, err error, op string) *JSONResponseBuilder {
	log.LogError(ctx, "View operation failed", err, log.ComponentHTTP, op, nil)
	if errors.Is(err, view.ErrStopped) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ServiceUnavailableError("view unavailable")
	}
	return ErrorResponse(http.StatusInternalServerError, "internal error")
}
