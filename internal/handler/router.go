package handler

import (
	"log"
	"net/http"

	"examtrack-sync/internal/config"
	"examtrack-sync/internal/middleware"
	"examtrack-sync/internal/service"
	"examtrack-sync/internal/websocket"
	"examtrack-sync/pkg/response"

	"github.com/gorilla/mux"
)

type RouterDeps struct {
	Config    *config.Config
	Store     *service.StateStore
	Sync      *service.SyncService
	Conflicts *service.ConflictService
	Stats     *service.StatsService
	Auth      *service.AuthService
	WS        *websocket.Manager
	Logger    *log.Logger
}

func NewRouter(d RouterDeps) *mux.Router {
	cfg := d.Config

	authHandler := NewAuthHandler(d.Auth)
	stateHandler := NewStateHandler(d.Store)
	syncHandler := NewSyncHandler(d.Store, d.Sync, d.Conflicts)
	statsHandler := NewStatsHandler(d.Stats, d.Store)
	wsHandler := NewWebSocketHandler(d.WS, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, d.Logger)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(d.Logger))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))
	if cfg.RateLimit.Enabled {
		r.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute)))
	}

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST", "OPTIONS")
	api.HandleFunc("/auth/refresh", authHandler.Refresh).Methods("POST", "OPTIONS")

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware(d.Auth))

	protected.HandleFunc("/state", stateHandler.GetState).Methods("GET", "OPTIONS")
	protected.HandleFunc("/progress/{id}", stateHandler.SetProgress).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/notes/{id}", stateHandler.SetNote).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/times/{id}", stateHandler.AddTime).Methods("POST", "OPTIONS")
	protected.HandleFunc("/stars/{id}", stateHandler.Star).Methods("POST", "OPTIONS")
	protected.HandleFunc("/stars/{id}", stateHandler.Unstar).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/sources", stateHandler.ListSources).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sources", stateHandler.AddSource).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sources", stateHandler.RemoveSource).Methods("DELETE", "OPTIONS")
	protected.HandleFunc("/sources/enabled", stateHandler.SetSourceEnabled).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/import", stateHandler.Import).Methods("POST", "OPTIONS")

	protected.HandleFunc("/sync", syncHandler.Sync).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/status", syncHandler.Status).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sync/conflict", syncHandler.GetConflict).Methods("GET", "OPTIONS")
	protected.HandleFunc("/sync/resolve", syncHandler.ResolveConflict).Methods("POST", "OPTIONS")
	protected.HandleFunc("/sync/settings", syncHandler.UpdateSettings).Methods("PUT", "OPTIONS")
	protected.HandleFunc("/sync/settings", syncHandler.Disconnect).Methods("DELETE", "OPTIONS")

	protected.HandleFunc("/stats/subjects", statsHandler.Subjects).Methods("GET", "OPTIONS")
	protected.HandleFunc("/stats/tags", statsHandler.TagStats).Methods("POST", "OPTIONS")
	protected.HandleFunc("/stats/{subject}", statsHandler.SubjectReport).Methods("GET", "OPTIONS")

	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(middleware.AuthMiddleware(d.Auth))
	ws.HandleFunc("", wsHandler.HandleConnection)

	r.HandleFunc("/health", healthHandler).Methods("GET")

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]string{"status": "healthy", "service": "examtrack-sync"})
}
