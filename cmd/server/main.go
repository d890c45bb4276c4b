package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/adapters/geo"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/async"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/config"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/analytics"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/services"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer repo.Close()

	extractor := &analytics.Extractor{TrustProxy: cfg.TrustProxyHeaders, Logger: logger}
	locator, err := geo.Open(cfg.GeoIPDatabasePath, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to open GeoIP database, geo fallback disabled")
	}
	if locator != nil {
		extractor.Geo = locator
		defer locator.Close()
	}

	dispatcher := async.NewDispatcher(!cfg.AnalyticsAsync, cfg.AnalyticsWriteTimeout, logger)

	mux := handler.NewRouter(cfg, handler.Services{
		Links:       services.NewLinkService(repo),
		Analytics:   services.NewAnalyticsService(repo, extractor, logger),
		Collections: services.NewCollectionService(repo, repo),
		Dispatcher:  dispatcher,
	}, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdown(server, dispatcher, logger)
}

// shutdown stops accepting requests, then lets pending click writes finish.
func shutdown(server *http.Server, dispatcher *async.Dispatcher, logger logrus.FieldLogger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
	dispatcher.Wait()
	logger.Info("server stopped")
}
