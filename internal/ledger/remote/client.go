package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"ledgerview/internal/cache"
	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
)

const (
	customersKey    = "customers"
	transactionsKey = "transactions"
)

// ErrUnexpectedStatus is wrapped by StatusError.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError reports a non-2xx answer from the API.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s %d", e.URL, ErrUnexpectedStatus, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// Client reads customers and transactions from the JSON API.
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	timeout      time.Duration
	group        singleflight.Group
	customers    cache.Cache[[]core.Customer]
	transactions cache.Cache[[]core.Transaction]
	logger       *log.Logger
}

var (
	_ ledger.Source                    = (*Client)(nil)
	_ ledger.CustomerTransactionReader = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCustomerCache caches decoded customer lists.
func WithCustomerCache(cc cache.Cache[[]core.Customer]) Option {
	return func(c *Client) { c.customers = cc }
}

// WithTransactionCache caches decoded transaction lists, including the
// per-customer ones.
func WithTransactionCache(tc cache.Cache[[]core.Transaction]) Option {
	return func(c *Client) { c.transactions = tc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.WithComponent(log.ComponentSource)
	return c, nil
}

// ListCustomers fetches GET {base}/customers.
func (c *Client) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	return fetch(ctx, c, customersKey, "customers", nil, c.customers, ledger.DecodeCustomers)
}

// ListTransactions fetches GET {base}/transactions.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return fetch(ctx, c, transactionsKey, "transactions", nil, c.transactions, ledger.DecodeTransactions)
}

// ListTransactionsByCustomer fetches GET {base}/transactions?customer_id=N.
func (c *Client) ListTransactionsByCustomer(ctx context.Context, customerID int64) ([]core.Transaction, error) {
	id := strconv.FormatInt(customerID, 10)
	key := transactionsKey + ":customer:" + id
	query := url.Values{"customer_id": {id}}
	return fetch(ctx, c, key, "transactions", query, c.transactions, ledger.DecodeTransactions)
}

// Invalidate drops every cached list so the next call hits the API.
func (c *Client) Invalidate() {
	if c.customers != nil {
		c.customers.Delete(customersKey)
	}
	if tc, ok := c.transactions.(cache.Purger); ok {
		tc.Purge()
	} else if c.transactions != nil {
		c.transactions.Delete(transactionsKey)
	}
}

// fetch serves key from cc when possible, otherwise performs one GET per key
// no matter how many callers are waiting on it.
func fetch[T any](
	ctx context.Context,
	c *Client,
	key, path string,
	query url.Values,
	cc cache.Cache[[]T],
	decode func(io.Reader) (ledger.DecodeResult[T], error),
) ([]T, error) {
	if cc != nil {
		if records, ok := cc.Get(key); ok {
			c.logger.DebugContext(ctx, "Cache hit", "key", key, "count", len(records))
			return slices.Clone(records), nil
		}
	}

	// The shared fetch outlives any single caller; each caller stops waiting
	// when its own ctx ends.
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if c.timeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, c.timeout)
			defer cancel()
		}
		res, err := get(fetchCtx, c, path, query, decode)
		if err != nil {
			return nil, err
		}
		if cc != nil {
			cc.Set(key, res.Records)
		}
		return res.Records, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		if r.Shared {
			c.logger.DebugContext(ctx, "Shared in-flight fetch", "key", key)
		}
		return slices.Clone(r.Val.([]T)), nil
	}
}

func get[T any](
	ctx context.Context,
	c *Client,
	path string,
	query url.Values,
	decode func(io.Reader) (ledger.DecodeResult[T], error),
) (ledger.DecodeResult[T], error) {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()
	target := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return ledger.DecodeResult[T]{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ledger.DecodeResult[T]{}, fmt.Errorf("GET %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return ledger.DecodeResult[T]{}, &StatusError{URL: target, StatusCode: resp.StatusCode}
	}

	res, err := decode(resp.Body)
	if err != nil {
		return ledger.DecodeResult[T]{}, fmt.Errorf("GET %s: %w", target, err)
	}

	attrs := []any{
		log.FieldOperation, log.OpFetch,
		log.FieldPath, u.Path,
		"count", len(res.Records),
		log.FieldDuration, time.Since(start).Milliseconds(),
	}
	if res.Dropped > 0 {
		c.logger.WarnContext(ctx, "Dropped malformed records", append(attrs, log.FieldDropped, res.Dropped)...)
	} else {
		c.logger.DebugContext(ctx, "Fetched records", attrs...)
	}
	return res, nil
}
