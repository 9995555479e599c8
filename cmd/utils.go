package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/lumenshop/searchkit/pkg/cache"
	"github.com/lumenshop/searchkit/pkg/config"
	"github.com/lumenshop/searchkit/pkg/provider"
	"github.com/lumenshop/searchkit/pkg/schedule"
	"github.com/lumenshop/searchkit/pkg/session"
	"github.com/lumenshop/searchkit/pkg/storage"
	"github.com/lumenshop/searchkit/pkg/suggest"
)

const (
	// storageQuotaBytes caps the local database, mirroring the kind of
	// quota a browser grants a storefront origin.
	storageQuotaBytes = 5 << 20

	// flushDelay is how long suggestion writes are deferred before
	// hitting the store.
	flushDelay = 500 * time.Millisecond
)

// app wires the full search pipeline: store, suggestion ledger and filter,
// query cache, provider client and session controller.
type app struct {
	cfg        *config.Config
	store      *storage.SQLiteStore
	ledger     *suggest.Ledger
	filter     *suggest.Filter
	cache      *cache.QueryCache
	client     *provider.Client
	controller *session.Controller
}

// openApp builds the pipeline from the config at configPath.
func openApp(configPath string) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	dbPath := filepath.Join(cfg.StorageDir, "searchkit.db")
	store, err := storage.NewSQLiteStore(dbPath, storageQuotaBytes)
	if err != nil {
		return nil, fmt.Errorf("opening store %s: %w", dbPath, err)
	}

	ledger := suggest.NewLedger(store, schedule.NewDeferred(flushDelay))
	queryCache := cache.New(store, ledger, cfg.CacheTTL.Duration, cfg.CacheMaxEntries)
	client := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.Token)

	return &app{
		cfg:        cfg,
		store:      store,
		ledger:     ledger,
		filter:     suggest.NewFilter(ledger),
		cache:      queryCache,
		client:     client,
		controller: session.New(client, queryCache),
	}, nil
}

// Close flushes pending suggestion writes and closes the store.
func (a *app) Close() error {
	a.ledger.Flush()
	return a.store.Close()
}
