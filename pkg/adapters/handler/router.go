package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/config"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

// Services bundles what the router needs to build its handlers.
type Services struct {
	Links       ports.LinkService
	Analytics   ports.AnalyticsService
	Collections ports.CollectionService
	Dispatcher  Dispatcher
}

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, svc Services, logger logrus.FieldLogger) http.Handler {
	h := NewHTTPHandler(svc.Links, svc.Analytics, svc.Dispatcher, logger)
	ah := NewAnalyticsHandler(svc.Analytics, logger)
	ch := NewCollectionHandler(svc.Collections)
	mw := NewMiddleware(cfg, logger)
	authHandler := NewAuthHandler(cfg, logger)

	mux := http.NewServeMux()

	// Public Routes
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /open/{short_code}", h.Redirect)
	mux.HandleFunc("GET /u/{slug}", ch.GetPublicCollection)
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)
	// GET patterns also match HEAD.
	mux.HandleFunc("GET /{short_code}", h.Redirect)

	// Protected Routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/v1/links", h.Create)
	protectedMux.HandleFunc("GET /api/v1/links", h.List)
	protectedMux.HandleFunc("GET /api/v1/links/{short_code}", h.Get)
	protectedMux.HandleFunc("PUT /api/v1/links/{short_code}", h.Update)
	protectedMux.HandleFunc("DELETE /api/v1/links/{short_code}", h.Delete)
	protectedMux.HandleFunc("GET /api/v1/dashboard", h.Dashboard)

	protectedMux.HandleFunc("POST /api/v1/collections", ch.CreateCollection)
	protectedMux.HandleFunc("GET /api/v1/collections", ch.ListCollections)
	protectedMux.HandleFunc("GET /api/v1/collections/{id}", ch.GetCollection)
	protectedMux.HandleFunc("PUT /api/v1/collections/{id}", ch.UpdateCollection)
	protectedMux.HandleFunc("DELETE /api/v1/collections/{id}", ch.DeleteCollection)
	protectedMux.HandleFunc("POST /api/v1/collections/{id}/links", ch.AddLink)
	protectedMux.HandleFunc("PUT /api/v1/collections/{id}/links", ch.ReorderLinks)
	protectedMux.HandleFunc("DELETE /api/v1/collections/{id}/links/{short_code}", ch.RemoveLink)

	protectedMux.HandleFunc("GET /api/v1/analytics/overview", ah.Overview)
	protectedMux.HandleFunc("GET /api/v1/analytics/timeseries", ah.Timeseries)
	protectedMux.HandleFunc("GET /api/v1/analytics/timeseries/top", ah.TopLinksTimeseries)
	protectedMux.HandleFunc("GET /api/v1/analytics/breakdown", ah.Breakdown)
	protectedMux.HandleFunc("GET /api/v1/analytics/export", ah.Export)

	mux.Handle("/api/v1/", mw.AuthMiddleware(protectedMux))

	return mw.RequestLogger(mux)
}
