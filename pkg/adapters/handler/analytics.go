package handler

import (
	"bytes"
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/services"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

// AnalyticsHandler serves the read side polled by the admin UI.
type AnalyticsHandler struct {
	service ports.AnalyticsService
	logger  logrus.FieldLogger
}

func NewAnalyticsHandler(service ports.AnalyticsService, logger logrus.FieldLogger) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, logger: logging.OrNop(logger)}
}

func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.service.GetOverview(r.Context(), r.URL.Query().Get("shortcode"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *AnalyticsHandler) Timeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ts, err := h.service.GetTimeseries(r.Context(), q.Get("shortcode"), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *AnalyticsHandler) TopLinksTimeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	series, err := h.service.GetTimeseriesForTopLinks(r.Context(), q.Get("from"), q.Get("to"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (h *AnalyticsHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	breakdown, err := h.service.GetBreakdown(r.Context(), q.Get("shortcode"), q.Get("dimension"), limit, q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

// Export streams the aggregate dump as a download.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	shortcode, from, to, format := q.Get("shortcode"), q.Get("from"), q.Get("to"), q.Get("format")

	export, err := h.service.ExportAnalytics(r.Context(), shortcode, from, to, format)
	if err != nil {
		writeError(w, err)
		return
	}

	// Encode first so a failure can still become a clean error response.
	var buf bytes.Buffer
	if err := h.service.EncodeExport(&buf, export, format); err != nil {
		h.logger.WithError(err).Error("encoding analytics export failed")
		writeError(w, err)
		return
	}

	scope := shortcode
	if scope == "" {
		scope = "all"
	}
	contentType, ext := services.ExportContentType(format)
	w.Header().Set("Content-Type", contentType)
	filename := fmt.Sprintf("analytics-%s-%s-%s.%s", scope, from, to, ext)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
