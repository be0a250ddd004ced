/*
main.go - Pluto loyalty server entry point

STARTUP SEQUENCE:
  1. Parse flags (flags override the config file)
  2. Load TOML config
  3. Open SQLite store
  4. Wire engine, social actions, agora
  5. Start HTTP server with graceful shutdown

FLAGS:
  -config  Path to TOML config file (optional)
  -port    HTTP server port (default from config: 8080)
  -db      SQLite database path; ":memory:" for ephemeral runs

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  in-flight requests, close the store, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/plutohq/loyalty-engine/agora"
	"github.com/plutohq/loyalty-engine/api"
	"github.com/plutohq/loyalty-engine/config"
	"github.com/plutohq/loyalty-engine/ledger"
	"github.com/plutohq/loyalty-engine/social"
	"github.com/plutohq/loyalty-engine/store/sqlite"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to TOML config file")
		port       = flag.Int("port", 0, "HTTP port (overrides config)")
		dbPath     = flag.String("db", "", "SQLite database path (overrides config)")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Server.DBPath = *dbPath
	}

	store, err := sqlite.New(cfg.Server.DBPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	engine := ledger.NewEngine(store, cfg.PointsEconomy())
	actions := &social.Actions{Store: store, Engine: engine}
	ag := agora.New(store)

	handler := api.NewHandler(engine, actions, ag)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Pluto loyalty server listening on :%d (db: %s)", cfg.Server.Port, cfg.Server.DBPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
