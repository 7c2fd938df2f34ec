package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/log"
)

// Config selects the spreadsheet and how to authenticate against it.
type Config struct {
	SpreadsheetID     string
	CustomersSheet    string
	TransactionsSheet string
	// One of these must be set; inline JSON wins.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc               *gsheet.Service
	spreadsheetID     string
	customersSheet    string
	transactionsSheet string
	logger            *log.Logger
}

// Ensure interface conformance
var _ ledger.Source = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg, logger), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, cfg Config, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.Discard()
	}
	customers := strings.TrimSpace(cfg.CustomersSheet)
	if customers == "" {
		customers = "Customers"
	}
	transactions := strings.TrimSpace(cfg.TransactionsSheet)
	if transactions == "" {
		transactions = "Transactions"
	}
	return &Client{
		svc:               svc,
		spreadsheetID:     cfg.SpreadsheetID,
		customersSheet:    customers,
		transactionsSheet: transactions,
		logger:            logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a read-only Sheets service from service
// account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = log.Discard()
	}

	var credentialsJSON []byte
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(cfg.CredentialsJSON)
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", cfg.CredentialsFile)
		raw, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = raw
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// ListCustomers reads id and name from columns A:B below the header row.
func (c *Client) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	values, err := c.readRange(ctx, c.customersSheet, "A2:B")
	if err != nil {
		return nil, fmt.Errorf("read customers: %w", err)
	}
	res := parseCustomers(values)
	c.logRows(ctx, c.customersSheet, len(res.Records), res.Dropped)
	return res.Records, nil
}

// ListTransactions reads id, customer id, date and amount from columns A:D
// below the header row.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	values, err := c.readRange(ctx, c.transactionsSheet, "A2:D")
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	res := parseTransactions(values)
	c.logRows(ctx, c.transactionsSheet, len(res.Records), res.Dropped)
	return res.Records, nil
}

func (c *Client) readRange(ctx context.Context, sheetName, cells string) ([][]interface{}, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!%s", sheetName, cells)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) logRows(ctx context.Context, sheet string, kept, dropped int) {
	if dropped > 0 {
		c.logger.WarnContext(ctx, "Skipped malformed rows",
			"sheet", sheet,
			"count", kept,
			log.FieldDropped, dropped)
		return
	}
	c.logger.DebugContext(ctx, "Read rows", "sheet", sheet, "count", kept)
}
