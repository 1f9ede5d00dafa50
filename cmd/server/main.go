// Package main is the entry point for the PDF Tables API server.
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

	"github.com/fileto-labs/pdf-tables-api/internal/config"
	"github.com/fileto-labs/pdf-tables-api/internal/database"
	"github.com/fileto-labs/pdf-tables-api/internal/handlers"
	"github.com/fileto-labs/pdf-tables-api/internal/router"
	"github.com/fileto-labs/pdf-tables-api/internal/services/backend"
	"github.com/fileto-labs/pdf-tables-api/internal/services/export"
	"github.com/fileto-labs/pdf-tables-api/internal/services/pipeline"
	"github.com/fileto-labs/pdf-tables-api/internal/services/worker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("🚀 PDF Tables API %s starting...", Version)

	// Step 1: Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	log.Printf("📋 Config loaded: port=%s, workers=%d, gin_mode=%s", cfg.Port, cfg.WorkerCount, cfg.GinMode)
	log.Printf("🔧 Method priority: %v", cfg.MethodPriority)

	os.Setenv("GIN_MODE", cfg.GinMode)

	// Step 2: Connect to Database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("✅ Database connected")

	// Run migrations
	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}

	// Step 3: Create Services
	registry := backend.NewRegistry(cfg)
	available := registry.Available()
	log.Printf("✅ Extraction backends available: %v", available)
	if len(available) < len(cfg.MethodPriority) {
		log.Println("⚠️  Some backends are unavailable in this environment (check TABULA_JAR_PATH / Java runtime)")
	}

	pipe := pipeline.New(cfg, registry)

	results, err := export.NewResultStore(cfg.TempDir)
	if err != nil {
		log.Fatalf("❌ Failed to initialize result store: %v", err)
	}

	// Step 4: Create and Start Worker Pool
	wp := worker.NewPool(cfg.WorkerCount, cfg.JobQueueSize, db, pipe, results)
	wp.Start()
	defer wp.Stop()

	if cfg.AdminAPIKey != "" {
		log.Println("✅ Admin API key configured (API key creation protected)")
	} else {
		log.Println("⚠️  No admin API key set (API key creation is open — set ADMIN_API_KEY in production)")
	}

	// Step 5: Setup HTTP Router
	h := handlers.NewHandler(db, wp, pipe, registry, results, cfg)
	r := router.Setup(h)

	// Step 6: Start the HTTP Server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
		// Batch uploads of large PDFs can take a while to stream in
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server listening on http://localhost:%s", cfg.Port)
		log.Printf("📖 Health check: http://localhost:%s/api/v1/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Step 7: Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("🛑 Received signal %v, shutting down gracefully...", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("👋 Server stopped. Goodbye!")
}
