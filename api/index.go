package handler

import (
	"net/http"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/adapters/handler"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/adapters/repository/sqlite"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/async"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/config"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/analytics"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/services"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, "json")

	// Note: On Vercel, db.sqlite is ephemeral unless using a remote SQL/Turso URL in DATABASE_URL
	repo, err := sqlite.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		panic(err)
	}

	// Vercel supplies geo headers; the function may be frozen once the
	// response is sent, so clicks are written before returning.
	extractor := &analytics.Extractor{TrustProxy: true, Logger: logger}
	dispatcher := async.NewDispatcher(true, cfg.AnalyticsWriteTimeout, logger)

	mux = handler.NewRouter(cfg, handler.Services{
		Links:       services.NewLinkService(repo),
		Analytics:   services.NewAnalyticsService(repo, extractor, logger),
		Collections: services.NewCollectionService(repo, repo),
		Dispatcher:  dispatcher,
	}, logger)
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
