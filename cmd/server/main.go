package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"examtrack-sync/internal/app"
	"examtrack-sync/internal/config"
	"examtrack-sync/internal/handler"
	"examtrack-sync/internal/logger"
	"examtrack-sync/internal/service"
	"examtrack-sync/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logs := logger.New(logger.Options{
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logs.Close()
	serverLog := logs.For("server")

	a, err := app.New(cfg, logs)
	if err != nil {
		serverLog.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnections: cfg.WebSocket.MaxConnections,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, logs.For("ws"))
	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(wsManager, a.Sync, logs.For("ws")))
	go wsManager.Run()
	defer wsManager.Stop()

	broadcaster := handler.NewEventBroadcaster(wsManager, a.Store, a.Sync, logs.For("ws"))
	defer broadcaster.Close()

	stopAutoSync := service.AutoSync(a.Store, a.Sync)
	defer stopAutoSync()

	if err := a.Periodic.Start(); err != nil {
		serverLog.Fatalf("Failed to start periodic sync: %v", err)
	}
	defer a.Periodic.Stop()

	// Reconcile with the remote once on startup.
	if a.Store.Settings().Configured() {
		go func() {
			if err := a.Sync.SyncData(context.Background(), service.SyncOptions{Foreground: true}); err != nil {
				serverLog.Printf("Startup sync failed: %v", err)
			}
		}()
	}

	r := handler.NewRouter(handler.RouterDeps{
		Config:    cfg,
		Store:     a.Store,
		Sync:      a.Sync,
		Conflicts: a.Conflicts,
		Stats:     a.Stats,
		Auth:      a.Auth,
		WS:        wsManager,
		Logger:    logs.For("http"),
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Sync.RequestTimeout*time.Duration(cfg.Sync.MaxRetries+1)*2 + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		serverLog.Printf("Starting ExamTrack sync daemon on %s (env: %s, backend: %s)", addr, cfg.Server.Env, cfg.Sync.Backend)
		if !a.Auth.Enabled() {
			serverLog.Printf("AUTH_PASSPHRASE not set, API is unauthenticated")
		}
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverLog.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	serverLog.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		serverLog.Printf("Server forced to shutdown: %v", err)
	}

	serverLog.Println("Server stopped gracefully")
}
