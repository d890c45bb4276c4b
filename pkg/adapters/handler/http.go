package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/analytics"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/core/domain"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/logging"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/metrics"
	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

// Dispatcher runs work after the response has been sent.
type Dispatcher interface {
	Go(name string, fn func(ctx context.Context))
}

type HTTPHandler struct {
	service    ports.LinkService
	analytics  ports.AnalyticsService
	dispatcher Dispatcher
	logger     logrus.FieldLogger
}

func NewHTTPHandler(service ports.LinkService, analyticsService ports.AnalyticsService, dispatcher Dispatcher, logger logrus.FieldLogger) *HTTPHandler {
	return &HTTPHandler{
		service:    service,
		analytics:  analyticsService,
		dispatcher: dispatcher,
		logger:     logging.OrNop(logger),
	}
}

// Create Link
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ports.LinkInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	link, err := h.service.Shorten(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, link)
}

// Redirect to the destination URL and record the click.
func (h *HTTPHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("short_code")
	if code == "" {
		http.Error(w, "Short code missing", http.StatusBadRequest)
		return
	}

	link, err := h.service.Resolve(r.Context(), code)
	switch {
	case errors.Is(err, domain.ErrLinkNotFound), errors.Is(err, domain.ErrLinkInactive):
		http.Error(w, "Link not found", http.StatusNotFound)
		return
	case errors.Is(err, domain.ErrPasswordProtected):
		http.Error(w, "Link is password protected", http.StatusForbidden)
		return
	case err != nil:
		h.logger.WithError(err).WithField("shortcode", code).Error("resolving link failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.track(r, link)

	// Browsers cache permanent redirects; without this later clicks never reach us.
	w.Header().Set("Cache-Control", "private, max-age=0")
	http.Redirect(w, r, link.URL, link.RedirectType)
}

// track decides whether the request is a click and hands it to the dispatcher.
// Only request data is read here; the write itself never touches r.
func (h *HTTPHandler) track(r *http.Request, link *domain.Link) {
	var reason string
	switch {
	case r.URL.Query().Get("no_stat") != "":
		reason = metrics.ReasonNoStat
	case r.Method == http.MethodHead:
		reason = metrics.ReasonHead
	case analytics.IsPrefetch(r.Header):
		reason = metrics.ReasonPrefetch
	case !analytics.ShouldRecord(r.Method, r.UserAgent()):
		reason = metrics.ReasonBot
	}
	if reason != "" {
		metrics.ClicksSkipped.WithLabelValues(reason).Inc()
		h.logger.WithFields(logrus.Fields{"shortcode": link.Shortcode, "reason": reason}).Debug("click not recorded")
		return
	}

	click := h.analytics.PrepareClick(r, link.Shortcode, link.URL)
	h.dispatcher.Go("record_click", func(ctx context.Context) {
		h.analytics.RecordPrepared(ctx, click)
	})
}

// Get a single link
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.GetLink(r.Context(), r.PathValue("short_code"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// Get Dashboard
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := r.URL.Query().Get("search")
	tag := r.URL.Query().Get("tag")
	domainFilter := r.URL.Query().Get("domain")

	links, err := h.service.GetDashboard(r.Context(), limit, search, tag, domainFilter)
	if err != nil {
		httpError(w, err)
		return
	}
	overview, err := h.analytics.GetOverview(r.Context(), "")
	if err != nil {
		httpError(w, err)
		return
	}

	resp := map[string]interface{}{
		"top_links": links,
		"overview":  overview,
	}
	writeJSON(w, http.StatusOK, resp)
}

// List Links
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := r.URL.Query().Get("search")
	tag := r.URL.Query().Get("tag")

	links, count, err := h.service.ListLinks(r.Context(), page, limit, search, tag)
	if err != nil {
		httpError(w, err)
		return
	}

	resp := map[string]interface{}{
		"data":  links,
		"total": count,
		"page":  page,
		"limit": limit,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Update Link
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ports.LinkInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}

	link, err := h.service.UpdateLink(r.Context(), r.PathValue("short_code"), req)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, link)
}

// Delete Link
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLink(r.Context(), r.PathValue("short_code")); err != nil {
		httpError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
