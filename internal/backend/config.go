package backend

import (
	"fmt"

	"ledgerview/internal/config"
	"ledgerview/internal/ledger/google"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	cfg := base(appConfig)
	cfg.Type = backendType
	return cfg, nil
}

// SyncConfigs returns the upstream and target configs for the sync worker.
// The upstream is read without a cache so every round sees fresh data.
func SyncConfigs(appConfig *config.Config) (upstream, target Config, err error) {
	if appConfig == nil {
		return Config{}, Config{}, fmt.Errorf("app config is nil")
	}

	upstream = base(appConfig)
	upstream.Type = BackendType(appConfig.SyncSource)
	upstream.Cache = CacheConfig{Backend: NoCache}
	if upstream.Type != HTTPBackend && upstream.Type != SheetsBackend {
		return Config{}, Config{}, fmt.Errorf("invalid sync source: %s", appConfig.SyncSource)
	}

	target = base(appConfig)
	target.Type = BackendType(appConfig.SyncTarget)
	if !target.Type.IsSQL() {
		return Config{}, Config{}, fmt.Errorf("invalid sync target: %s", appConfig.SyncTarget)
	}
	return upstream, target, nil
}

func base(appConfig *config.Config) Config {
	return Config{
		DataDirectory: appConfig.DataDirectory,

		APIBaseURL: appConfig.APIBaseURL,
		APITimeout: appConfig.APITimeout,
		Cache: CacheConfig{
			Backend:  CacheBackend(appConfig.CacheBackend),
			TTL:      appConfig.CacheTTL,
			Size:     appConfig.CacheSize,
			RedisURL: appConfig.RedisURL,
		},

		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresURL:  appConfig.PostgresURL,

		Google: google.Config{
			SpreadsheetID:     appConfig.GoogleSpreadsheetID,
			CustomersSheet:    appConfig.GoogleCustomersSheet,
			TransactionsSheet: appConfig.GoogleTransactionsSheet,
			CredentialsJSON:   appConfig.GoogleServiceAccountJSON,
			CredentialsFile:   appConfig.GoogleServiceAccountFile,
		},
	}
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case HTTPBackend:
		if c.APIBaseURL == "" {
			return fmt.Errorf("API base URL is required for http backend")
		}
		switch c.Cache.Backend {
		case "", NoCache, MemoryCache:
		case RedisCache:
			if c.Cache.RedisURL == "" {
				return fmt.Errorf("redis URL is required for redis cache")
			}
		default:
			return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
		}

	case SheetsBackend:
		if c.Google.SpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
		if c.Google.CredentialsFile == "" && c.Google.CredentialsJSON == "" {
			return fmt.Errorf("either CredentialsFile or CredentialsJSON must be provided for sheets backend")
		}

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}

	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres backend")
		}

	case MemoryBackend:
		// DataDirectory will default to "data" if empty
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, HTTPBackend, SheetsBackend, SQLiteBackend, PostgresBackend}
}
