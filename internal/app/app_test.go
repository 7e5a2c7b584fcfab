package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"examtrack-sync/internal/config"
	"examtrack-sync/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(gistURL string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{BuiltinSources: "official=https://example.com/bank"},
		Sync: config.SyncConfig{
			Backend:        config.BackendGist,
			Credential:     "token",
			BlobID:         "g1",
			GistBaseURL:    gistURL,
			DebounceDelay:  time.Second,
			SuccessDisplay: time.Second,
			RequestTimeout: time.Second,
		},
		Auth:  config.AuthConfig{Secret: "secret", Expiration: time.Minute, RefreshTokenExpiration: time.Hour},
		Stats: config.StatsConfig{WeakestCount: 3},
	}
}

func TestNew_InMemoryGist(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a, err := New(testConfig(srv.URL), logger.New(logger.Options{Quiet: true}))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "token", a.Store.Settings().Credential)
	assert.Equal(t, "g1", a.Store.Settings().BlobID)
	require.Len(t, a.Store.RepoSources(), 1)
	assert.True(t, a.Store.RepoSources()[0].Builtin)
	assert.False(t, a.Auth.Enabled())
	assert.Contains(t, a.Stats.Subjects(), "math")
}

func TestNew_InvalidBuiltinSources(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Storage.BuiltinSources = "missing-url"

	_, err := New(cfg, logger.New(logger.Options{Quiet: true}))
	assert.Error(t, err)
}

func TestNew_MissingTaxonomyReleasesStorage(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Storage.DataDir = dir
	cfg.Storage.TaxonomyPath = filepath.Join(dir, "missing.yaml")

	a, err := New(cfg, logger.New(logger.Options{Quiet: true}))
	require.Error(t, err)
	assert.Nil(t, a)

	// The failed attempt must have closed badger, or the directory stays locked.
	cfg.Storage.TaxonomyPath = ""
	a, err = New(cfg, logger.New(logger.Options{Quiet: true}))
	require.NoError(t, err)
	assert.NoError(t, a.Close())
}

func TestClose_NilApp(t *testing.T) {
	var a *App
	assert.NoError(t, a.Close())
}
