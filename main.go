package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crowdlens/crowdlens/api"
	"github.com/crowdlens/crowdlens/app"
	"github.com/crowdlens/crowdlens/config"
	"github.com/crowdlens/crowdlens/middleware"
)

func main() {
	config.InitLogging()
	appConfig, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Unable to load configuration!!!", err)
	}

	application, err := app.NewApp(appConfig)
	if err != nil {
		log.Fatal("Unable to initialize application", err)
	}
	defer application.Close()

	slog.Debug("Configuration",
		"DevMode", appConfig.DevMode,
		"LogLevel", appConfig.LogLevel,
		"EnableCaching", appConfig.EnableCaching,
		"CacheTTL", appConfig.CacheTTL,
		"MaxCacheSize", appConfig.MaxCacheSize,
	)

	router := http.NewServeMux()
	api.AddApis(application, router)

	// Start the background cache maintenance loop
	app.StartMaintenance(application)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", appConfig.Port),
		Handler: middleware.AllStandardMiddleware(router),
	}

	// Listen for shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Starting CrowdLens", "port", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-sigChan
	slog.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// application.Close() runs via defer:
	// 1. Stops the maintenance timer and cache write-back pollers
	// 2. Pipeline drains queued jobs and waits for workers
	// 3. DB pool closes
	slog.Info("Shutdown complete")
}
