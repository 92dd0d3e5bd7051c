package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-preview/internal/cache"
	"pdf-preview/internal/capability"
	"pdf-preview/internal/database"
	"pdf-preview/internal/events"
	"pdf-preview/internal/handlers"
	"pdf-preview/internal/logging"
	"pdf-preview/internal/metrics"
	"pdf-preview/internal/middleware"
	"pdf-preview/internal/pdfmeta"
	"pdf-preview/internal/preview"
	"pdf-preview/internal/processor"
	"pdf-preview/internal/raster"
	"pdf-preview/internal/scanner"
	"pdf-preview/internal/startup"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()
	ctx := context.Background()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	metrics.InitializeMetrics()

	// Initialize the raster backend. Failure is not fatal: metadata
	// extraction still works through pdfcpu and the structural scanner.
	if err := raster.InitVips(); err != nil {
		logging.Warn("libvips initialization failed: %v", err)
	}
	defer raster.ShutdownVips()
	startup.LogVipsInit(raster.IsVipsAvailable(), raster.VipsVersion())

	// Initialize database
	dbStart := time.Now()
	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to initialize database: %v", err)
	}
	defer db.Close()
	startup.LogDatabaseInit(time.Since(dbStart))

	// Capability cache, preview store, and pipeline
	caps := capability.NewCache()
	caps.Get(false)

	store := cache.NewStore(db, config.PreviewDir, config.PreviewURL, config.CacheRetentionDays)
	if config.PreviewsEnabled {
		if err := store.EnsureDirectory(); err != nil {
			logging.Warn("failed to prepare preview cache: %v", err)
		}
	}

	extractor := pdfmeta.NewExtractor(caps)
	generator := preview.NewGenerator(caps, store, preview.PresetByName(config.PreviewQuality))
	bus := events.NewBus()

	proc := processor.New(db, extractor, generator, caps, store, bus,
		config.GenerateOnUpload && config.PreviewsEnabled)

	// Upload scanner
	scan := scanner.New(db, config.UploadsDir, config.ScanInterval)
	scan.Start()

	// Periodic cache cleanup
	cleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := store.CleanupOldFiles(ctx); err != nil {
					logging.Warn("scheduled cache cleanup failed: %v", err)
				}
				db.UpdateDBMetrics()
			case <-cleanupStop:
				return
			}
		}
	}()

	// Initialize handlers and router
	h := handlers.New(db, proc, store, caps, scan, config)
	router := setupRouter(h, config)
	startup.LogHTTPRoutes(router)

	// Apply middleware
	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics server on its own port so the scrape endpoint never shares
	// auth or middleware with the public API.
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, scan, cleanupStop)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")

	// Preview files
	r.HandleFunc("/previews/{name}", h.ServePreview).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/version", h.Version).Methods("GET")

	api.HandleFunc("/documents", h.ListDocuments).Methods("GET")
	api.HandleFunc("/documents", h.UploadDocument).Methods("POST")
	api.HandleFunc("/documents/{id}", h.GetDocument).Methods("GET")
	api.HandleFunc("/documents/{id}/process", h.ProcessDocument).Methods("POST")
	api.HandleFunc("/process/bulk", h.BulkProcess).Methods("POST")

	api.HandleFunc("/capabilities", h.GetCapabilities).Methods("GET")
	api.HandleFunc("/capabilities/refresh", h.RefreshCapabilities).Methods("POST")
	api.HandleFunc("/cache/stats", h.CacheStats).Methods("GET")

	// Destructive routes sit behind the admin token when one is set
	admin := api.NewRoute().Subrouter()
	admin.Use(middleware.AdminAuth(config.AdminTokenHash))
	admin.HandleFunc("/documents/{id}", h.DeleteDocument).Methods("DELETE")
	admin.HandleFunc("/documents/{id}/preview", h.DeletePreview).Methods("DELETE")
	admin.HandleFunc("/cache/clear", h.ClearCache).Methods("POST")
	admin.HandleFunc("/cache/cleanup", h.RunCleanup).Methods("POST")

	return r
}

func handleShutdown(srv, metricsSrv *http.Server, scan *scanner.Scanner, cleanupStop chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	startup.LogShutdownStep("Stopping upload scanner")
	scan.Stop()
	close(cleanupStop)
	startup.LogShutdownStepComplete("Upload scanner stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsSrv != nil {
		startup.LogShutdownStep("Stopping metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		}
		startup.LogShutdownStepComplete("Metrics server stopped")
	}

	startup.LogShutdownStep("Stopping HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("HTTP server shutdown error: %v", err)
	}
	startup.LogShutdownStepComplete("HTTP server stopped")

	startup.LogShutdownComplete()
}
