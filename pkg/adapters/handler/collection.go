package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/wadjakorntonsri/go-link-analytics/pkg/ports"
)

type CollectionHandler struct {
	service ports.CollectionService
}

func NewCollectionHandler(service ports.CollectionService) *CollectionHandler {
	return &CollectionHandler{service: service}
}

type collectionRequest struct {
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

func collectionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, err := h.service.CreateCollection(r.Context(), req.Title, req.Slug, req.Description)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, collection)
}

func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	search := r.URL.Query().Get("search")

	collections, total, err := h.service.ListCollections(r.Context(), page, limit, search)
	if err != nil {
		httpError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  collections,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	collection, err := h.service.GetCollection(r.Context(), id)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

// GetPublicCollection is the unauthenticated profile page payload.
func (h *CollectionHandler) GetPublicCollection(w http.ResponseWriter, r *http.Request) {
	collection, err := h.service.GetPublicCollection(r.Context(), r.PathValue("slug"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (h *CollectionHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	collection, err := h.service.UpdateCollection(r.Context(), id, req.Title, req.Slug, req.Description)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCollection(r.Context(), id); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Shortcode string `json:"shortcode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Shortcode == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.AddLink(r.Context(), id, req.Shortcode); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionHandler) RemoveLink(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	if err := h.service.RemoveLink(r.Context(), id, r.PathValue("short_code")); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReorderLinks takes the complete new order of shortcodes.
func (h *CollectionHandler) ReorderLinks(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}

	var req struct {
		Shortcodes []string `json:"shortcodes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ReorderLinks(r.Context(), id, req.Shortcodes); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
