package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"ledgerview/internal/config"
	"ledgerview/internal/ledger/remote"
	"ledgerview/internal/storage"
)

func TestBackendTypeIsValid(t *testing.T) {
	for _, bt := range GetBackendTypes() {
		if !bt.IsValid() {
			t.Errorf("%s.IsValid() = false", bt)
		}
	}
	if BackendType("mongo").IsValid() {
		t.Error("mongo should not be a valid backend")
	}
	if !SQLiteBackend.IsSQL() || !PostgresBackend.IsSQL() || HTTPBackend.IsSQL() {
		t.Error("IsSQL() misclassifies backends")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory", Config{Type: MemoryBackend}, false},
		{"invalid type", Config{Type: "mongo"}, true},
		{"http without url", Config{Type: HTTPBackend}, true},
		{"http with url", Config{Type: HTTPBackend, APIBaseURL: "https://example.com"}, false},
		{"http with redis but no url", Config{Type: HTTPBackend, APIBaseURL: "https://example.com", Cache: CacheConfig{Backend: RedisCache}}, true},
		{"http with unknown cache", Config{Type: HTTPBackend, APIBaseURL: "https://example.com", Cache: CacheConfig{Backend: "memcached"}}, true},
		{"sheets without credentials", Config{Type: SheetsBackend}, true},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"postgres without url", Config{Type: PostgresBackend}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("FromAppConfig(nil) expected error")
	}

	app := &config.Config{
		DataBackend:          "http",
		APIBaseURL:           "https://example.com",
		APITimeout:           3 * time.Second,
		CacheBackend:         "memory",
		CacheTTL:             time.Minute,
		CacheSize:            5,
		GoogleCustomersSheet: "People",
	}
	cfg, err := FromAppConfig(app)
	if err != nil {
		t.Fatalf("FromAppConfig() error: %v", err)
	}
	if cfg.Type != HTTPBackend || cfg.APITimeout != 3*time.Second || cfg.Cache.Backend != MemoryCache || cfg.Cache.Size != 5 {
		t.Errorf("FromAppConfig() = %+v", cfg)
	}
	if cfg.Google.CustomersSheet != "People" {
		t.Errorf("Google.CustomersSheet = %q", cfg.Google.CustomersSheet)
	}

	app.DataBackend = "mongo"
	if _, err := FromAppConfig(app); err == nil {
		t.Error("FromAppConfig() with invalid backend expected error")
	}
}

func TestSyncConfigs(t *testing.T) {
	app := &config.Config{
		SyncSource:   "http",
		SyncTarget:   "sqlite",
		CacheBackend: "redis",
		SQLiteDBPath: "./x.db",
	}
	upstream, target, err := SyncConfigs(app)
	if err != nil {
		t.Fatalf("SyncConfigs() error: %v", err)
	}
	if upstream.Type != HTTPBackend || upstream.Cache.Backend != NoCache {
		t.Errorf("upstream = %+v", upstream)
	}
	if target.Type != SQLiteBackend || target.SQLiteDBPath != "./x.db" {
		t.Errorf("target = %+v", target)
	}

	app.SyncSource = "memory"
	if _, _, err := SyncConfigs(app); err == nil {
		t.Error("SyncConfigs() with memory source expected error")
	}
	app.SyncSource = "http"
	app.SyncTarget = "http"
	if _, _, err := SyncConfigs(app); err == nil {
		t.Error("SyncConfigs() with http target expected error")
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "customers.json"), []byte(`[{"id":1,"name":"Ann"}]`), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend, DataDirectory: dir})
	if err != nil {
		t.Fatalf("CreateBackend() error: %v", err)
	}
	defer res.Close()

	customers, err := res.Source.ListCustomers(context.Background())
	if err != nil {
		t.Fatalf("ListCustomers() error: %v", err)
	}
	if len(customers) != 1 || customers[0].Name != "Ann" {
		t.Errorf("ListCustomers() = %v", customers)
	}
	if res.Invalidate != nil {
		t.Error("memory backend should not expose Invalidate")
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	f := NewFactory(nil)
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}

	res, err := f.CreateBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("CreateBackend() error: %v", err)
	}
	if _, ok := res.Source.(*storage.Repository); !ok {
		t.Errorf("Source = %T, want *storage.Repository", res.Source)
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	if _, err := f.OpenStore(context.Background(), Config{Type: MemoryBackend}); err == nil {
		t.Error("OpenStore(memory) expected error")
	}
}

func TestCreateHTTPBackendWithMemoryCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `[{"id":1,"name":"Ann"}]`)
	}))
	defer srv.Close()

	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{
		Type:       HTTPBackend,
		APIBaseURL: srv.URL,
		APITimeout: time.Second,
		Cache:      CacheConfig{Backend: MemoryCache, TTL: time.Minute, Size: 10},
	})
	if err != nil {
		t.Fatalf("CreateBackend() error: %v", err)
	}
	defer res.Close()

	if _, ok := res.Source.(*remote.Client); !ok {
		t.Fatalf("Source = %T, want *remote.Client", res.Source)
	}
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := res.Source.ListCustomers(ctx); err != nil {
			t.Fatalf("ListCustomers() error: %v", err)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("API hits = %d, want 1", hits.Load())
	}

	if res.Invalidate == nil {
		t.Fatal("Invalidate is nil")
	}
	res.Invalidate()
	if _, err := res.Source.ListCustomers(ctx); err != nil {
		t.Fatalf("ListCustomers() error: %v", err)
	}
	if hits.Load() != 2 {
		t.Errorf("API hits after Invalidate = %d, want 2", hits.Load())
	}
}

func TestCleanupInterval(t *testing.T) {
	if got := cleanupInterval(10 * time.Second); got != 5*time.Second {
		t.Errorf("cleanupInterval(10s) = %v", got)
	}
	if got := cleanupInterval(time.Second); got != time.Second {
		t.Errorf("cleanupInterval(1s) = %v", got)
	}
}
