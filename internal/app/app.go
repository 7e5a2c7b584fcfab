// Package app wires repositories and services from configuration. Both the
// HTTP daemon and the CLI start from here.
package app

import (
	"context"
	"fmt"
	"log"

	"examtrack-sync/internal/config"
	"examtrack-sync/internal/logger"
	"examtrack-sync/internal/repository"
	"examtrack-sync/internal/service"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
)

type App struct {
	Config   *config.Config
	Logs     *logger.Factory
	KV       repository.KVStore
	States   repository.StateRepository
	Blobs    repository.BlobRepository
	Taxonomy repository.TaxonomyRepository

	Store     *service.StateStore
	Sync      *service.SyncService
	Conflicts *service.ConflictService
	Stats     *service.StatsService
	Auth      *service.AuthService
	Periodic  *service.PeriodicSync

	closers []func() error
}

// New opens local storage and builds every service. Call Close when done.
func New(cfg *config.Config, logs *logger.Factory) (_ *App, err error) {
	a := &App{Config: cfg, Logs: logs}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	kv, err := repository.NewBadgerKV(cfg.Storage.DataDir)
	if err != nil {
		return nil, err
	}
	a.KV = kv
	a.closers = append(a.closers, kv.Close)
	a.States = repository.NewStateRepository(kv, logs.For("state"))

	builtin, err := cfg.Storage.RepoSources()
	if err != nil {
		return nil, err
	}
	a.Store, err = service.NewStateStore(a.States, builtin, logs.For("state"))
	if err != nil {
		return nil, fmt.Errorf("failed to load study state: %w", err)
	}

	if cfg.Sync.Credential != "" {
		if err := a.Store.UpdateSyncSettings(cfg.Sync.Credential, cfg.Sync.BlobID); err != nil {
			return nil, fmt.Errorf("failed to apply sync settings: %w", err)
		}
	}

	a.Blobs, err = newBlobRepository(cfg, logs.For("couchdb"))
	if err != nil {
		return nil, err
	}

	syncCfg := service.SyncConfig{
		DebounceDelay:     cfg.Sync.DebounceDelay,
		SuccessDisplay:    cfg.Sync.SuccessDisplay,
		RequestTimeout:    cfg.Sync.RequestTimeout,
		MaxRetries:        cfg.Sync.MaxRetries,
		RetryBackoff:      cfg.Sync.RetryBackoff,
		RequestsPerSecond: cfg.Sync.RequestsPerSecond,
	}
	a.Sync = service.NewSyncService(a.Store, a.Blobs, service.NewScheduler(), syncCfg, logs.For("sync"))
	a.closers = append(a.closers, func() error {
		a.Sync.Close()
		return nil
	})
	a.Conflicts = service.NewConflictService(a.Sync)
	a.Periodic = service.NewPeriodicSync(a.Sync, cfg.Sync.Interval, logs.For("periodic"))

	a.Taxonomy, err = repository.NewTaxonomyRepository(cfg.Storage.TaxonomyPath)
	if err != nil {
		return nil, err
	}
	a.Stats = service.NewStatsService(a.Taxonomy, cfg.Stats.WeakestCount)

	a.Auth, err = service.NewAuthService(cfg.Auth.Passphrase, cfg.Auth.Secret, cfg.Auth.Expiration, cfg.Auth.RefreshTokenExpiration)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func newBlobRepository(cfg *config.Config, logger *log.Logger) (repository.BlobRepository, error) {
	switch cfg.Sync.Backend {
	case config.BackendCouchDB:
		client, err := kivik.New("couch", cfg.CouchDB.URL())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to CouchDB: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Sync.RequestTimeout)
		defer cancel()

		exists, err := client.DBExists(ctx, cfg.CouchDB.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to check database existence: %w", err)
		}
		if !exists {
			if err := client.CreateDB(ctx, cfg.CouchDB.Name); err != nil {
				return nil, fmt.Errorf("failed to create database: %w", err)
			}
			logger.Printf("created database: %s", cfg.CouchDB.Name)
		}
		return repository.NewCouchBlobRepository(client, cfg.CouchDB.Name), nil

	default:
		return repository.NewGistRepository(cfg.Sync.GistBaseURL, cfg.Sync.RequestTimeout), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
