package backend

import (
	"context"
	"fmt"
	"time"

	"ledgerview/internal/cache"
	"ledgerview/internal/core"
	"ledgerview/internal/ledger/google"
	"ledgerview/internal/ledger/memory"
	"ledgerview/internal/ledger/remote"
	"ledgerview/internal/log"
	"ledgerview/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case MemoryBackend:
		return f.createMemoryBackend(config)
	case HTTPBackend:
		return f.createHTTPBackend(ctx, config)
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case SQLiteBackend, PostgresBackend:
		repo, err := f.OpenStore(ctx, config)
		if err != nil {
			return nil, err
		}
		return &BackendResult{Source: repo, Cleanup: repo.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// OpenStore opens the SQL snapshot store named by config.
func (f *DefaultFactory) OpenStore(ctx context.Context, config Config) (*storage.Repository, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(ctx, config.PostgresURL, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return repo, nil
	default:
		return nil, fmt.Errorf("backend %s is not a snapshot store", config.Type)
	}
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	dataDir := config.DataDirectory
	if dataDir == "" {
		dataDir = "data" // Default directory
	}

	store := memory.NewFromFiles(dataDir)

	f.logger.Info("Initialized memory backend", "data_directory", dataDir)

	return &BackendResult{Source: store}, nil
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := google.New(ctx, config.Google, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"customers_sheet", config.Google.CustomersSheet,
		"transactions_sheet", config.Google.TransactionsSheet)

	return &BackendResult{Source: cli}, nil
}

func (f *DefaultFactory) createHTTPBackend(ctx context.Context, config Config) (*BackendResult, error) {
	opts := []remote.Option{remote.WithLogger(f.logger)}
	var cleanup CleanupFunc

	switch config.Cache.Backend {
	case MemoryCache:
		customers := cache.NewLRUCache[[]core.Customer](config.Cache.Size, config.Cache.TTL)
		transactions := cache.NewLRUCache[[]core.Transaction](config.Cache.Size, config.Cache.TTL)

		manager := cache.NewManager()
		manager.Register(customers)
		manager.Register(transactions)
		manager.StartCleanup(cleanupInterval(config.Cache.TTL))

		opts = append(opts, remote.WithCustomerCache(customers), remote.WithTransactionCache(transactions))
		cleanup = func() error {
			manager.Stop()
			st := manager.Stats()
			f.logger.Info("Fetch cache closed",
				"hits", st.Hits,
				"misses", st.Misses,
				"evictions", st.Evictions,
				"expirations", st.Expirations)
			return nil
		}

	case RedisCache:
		client, err := cache.NewRedisClient(ctx, config.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		opts = append(opts,
			remote.WithCustomerCache(cache.NewRedisCache[[]core.Customer](client, "ledgerview:customers:", config.Cache.TTL)),
			remote.WithTransactionCache(cache.NewRedisCache[[]core.Transaction](client, "ledgerview:transactions:", config.Cache.TTL)))
		cleanup = client.Close
	}

	cli, err := remote.New(config.APIBaseURL, config.APITimeout, opts...)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, fmt.Errorf("failed to initialize API client: %w", err)
	}

	f.logger.Info("Initialized HTTP backend",
		"base_url", config.APIBaseURL,
		"cache", string(config.Cache.Backend),
		"cache_ttl", config.Cache.TTL)

	return &BackendResult{
		Source:     cli,
		Cleanup:    cleanup,
		Invalidate: cli.Invalidate,
	}, nil
}

// cleanupInterval sweeps expired entries a few times per TTL.
func cleanupInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 2; interval > time.Second {
		return interval
	}
	return time.Second
}
