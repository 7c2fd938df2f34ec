package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldSource       = "source"
	FieldCustomerID   = "customer_id"
	FieldCustomers    = "customers"
	FieldTransactions = "transactions"
	FieldVisible      = "visible"
	FieldDropped      = "dropped"
	FieldNameFilter   = "name_filter"
	FieldAmountFilter = "amount_filter"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentView    = "view"
	ComponentSource  = "source"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpLoadCustomers    = "load_customers"
	OpLoadTransactions = "load_transactions"
	OpSelect           = "select"
	OpFilter           = "filter"
	OpFetch            = "fetch"
	OpSync             = "sync"
	OpPublish          = "publish"
	OpConsume          = "consume"
	OpShutdown         = "shutdown"
	OpStartup          = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCounts adds collection size fields
func (f LogFields) WithCounts(customers, transactions, visible int) LogFields {
	f[FieldCustomers] = customers
	f[FieldTransactions] = transactions
	f[FieldVisible] = visible
	return f
}

// WithFilter adds the filter state; amount is omitted when absent.
func (f LogFields) WithFilter(name string, amount *float64) LogFields {
	f[FieldNameFilter] = name
	if amount != nil {
		f[FieldAmountFilter] = *amount
	}
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
