package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"examtrack-sync/internal/domain"

	"github.com/joho/godotenv"
)

const (
	BackendGist    = "gist"
	BackendCouchDB = "couchdb"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Sync      SyncConfig
	CouchDB   CouchDBConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Stats     StatsConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type StorageConfig struct {
	// DataDir holds the badger database; empty keeps state in memory only.
	DataDir      string
	TaxonomyPath string
	// BuiltinSources is a comma separated list of name=url pairs.
	BuiltinSources string
}

type SyncConfig struct {
	Backend           string
	Credential        string
	BlobID            string
	GistBaseURL       string
	DebounceDelay     time.Duration
	SuccessDisplay    time.Duration
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64
	Interval          time.Duration
}

type CouchDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func (c CouchDBConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", c.User, c.Password, c.Host, c.Port)
}

type AuthConfig struct {
	// Passphrase may be a bcrypt hash or plain text; empty disables auth.
	Passphrase             string
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnections  int
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Enabled           bool
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type StatsConfig struct {
	WeakestCount int
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "127.0.0.1"),
			Env:  getEnv("ENV", "development"),
		},
		Storage: StorageConfig{
			DataDir:        getEnv("DATA_DIR", "./data"),
			TaxonomyPath:   getEnv("TAXONOMY_PATH", ""),
			BuiltinSources: getEnv("BUILTIN_SOURCES", ""),
		},
		Sync: SyncConfig{
			Backend:           strings.ToLower(getEnv("SYNC_BACKEND", BackendGist)),
			Credential:        getEnv("SYNC_CREDENTIAL", ""),
			BlobID:            getEnv("SYNC_BLOB_ID", ""),
			GistBaseURL:       getEnv("GIST_BASE_URL", "https://api.github.com"),
			MaxRetries:        getEnvAsInt("SYNC_MAX_RETRIES", 2),
			RequestsPerSecond: getEnvAsFloat("SYNC_REQUESTS_PER_SECOND", 1),
		},
		CouchDB: CouchDBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "examtrack"),
		},
		Auth: AuthConfig{
			Passphrase: getEnv("AUTH_PASSPHRASE", ""),
			Secret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 1048576)),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnections:  getEnvAsInt("WS_MAX_CONNECTIONS", 8),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 120),
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 10),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
		Stats: StatsConfig{
			WeakestCount: getEnvAsInt("STATS_WEAKEST_COUNT", 5),
		},
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"JWT_EXPIRATION", "15m", &cfg.Auth.Expiration},
		{"REFRESH_TOKEN_EXPIRATION", "168h", &cfg.Auth.RefreshTokenExpiration},
		{"SYNC_DEBOUNCE", "2s", &cfg.Sync.DebounceDelay},
		{"SYNC_SUCCESS_DISPLAY", "2s", &cfg.Sync.SuccessDisplay},
		{"SYNC_REQUEST_TIMEOUT", "15s", &cfg.Sync.RequestTimeout},
		{"SYNC_RETRY_BACKOFF", "500ms", &cfg.Sync.RetryBackoff},
		{"SYNC_INTERVAL", "0", &cfg.Sync.Interval},
	}
	for _, d := range durations {
		value, err := time.ParseDuration(getEnv(d.key, d.def))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.target = value
	}

	switch cfg.Sync.Backend {
	case BackendGist, BackendCouchDB:
	default:
		return nil, fmt.Errorf("invalid SYNC_BACKEND %q: want %s or %s", cfg.Sync.Backend, BackendGist, BackendCouchDB)
	}

	return cfg, nil
}

// RepoSources parses BuiltinSources ("name=url,name=url") into enabled sources.
func (c StorageConfig) RepoSources() ([]domain.RepoSource, error) {
	var sources []domain.RepoSource
	for _, entry := range strings.Split(c.BuiltinSources, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, ok := strings.Cut(entry, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("invalid BUILTIN_SOURCES entry %q: want name=url", entry)
		}
		sources = append(sources, domain.RepoSource{Name: name, URL: url, Enabled: true, Builtin: true})
	}
	return sources, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
