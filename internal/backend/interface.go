package backend

import (
	"context"
	"time"

	"ledgerview/internal/ledger"
	"ledgerview/internal/ledger/google"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the source instance and optional hooks
type BackendResult struct {
	Source ledger.Source
	// Cleanup releases connections; nil when there is nothing to release.
	Cleanup CleanupFunc
	// Invalidate drops cached reads; nil when the source does not cache.
	Invalidate func()
}

// Close runs Cleanup if set.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates data sources based on configuration
type Factory interface {
	// CreateBackend creates a source instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Memory backend specific
	DataDirectory string

	// Remote API specific
	APIBaseURL string
	APITimeout time.Duration
	Cache      CacheConfig

	// SQL specific
	SQLiteDBPath string
	PostgresURL  string

	// Google Sheets specific
	Google google.Config
}

// CacheConfig selects the read cache in front of the remote API.
type CacheConfig struct {
	Backend  CacheBackend
	TTL      time.Duration
	Size     int
	RedisURL string
}

// BackendType represents the type of backend
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	HTTPBackend     BackendType = "http"
	SheetsBackend   BackendType = "sheets"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, HTTPBackend, SheetsBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// IsSQL reports whether the backend is a snapshot database.
func (bt BackendType) IsSQL() bool {
	return bt == SQLiteBackend || bt == PostgresBackend
}

// CacheBackend represents the type of read cache
type CacheBackend string

const (
	NoCache     CacheBackend = "none"
	MemoryCache CacheBackend = "memory"
	RedisCache  CacheBackend = "redis"
)
