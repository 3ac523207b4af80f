// Package handler exposes the search service over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/document"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/ident"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/service"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const maxBodyBytes = 10 << 20

// Service is the subset of *service.Service the handlers call.
type Service interface {
	Search(ctx context.Context, query string) (*service.Result, error)
	Write(ctx context.Context, id *ident.ID, doc document.Document) (ident.ID, error)
	Click(ctx context.Context, id ident.ID, query string) error
	Snapshot(ctx context.Context) error
}

// QueryCache is implemented by *cache.Index.
type QueryCache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) error
}

type Handler struct {
	svc    Service
	cache  QueryCache
	logger *slog.Logger
}

func New(svc Service, queryCache QueryCache) *Handler {
	return &Handler{
		svc:    svc,
		cache:  queryCache,
		logger: slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the API routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/query/{query}", h.Query)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("POST /api/v1/click/{id}/{query}", h.Click)
	mux.HandleFunc("POST /api/v1/write", h.Write)
	mux.HandleFunc("POST /api/v1/snapshot", h.Snapshot)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Query answers GET /api/v1/query/{query}.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, r.PathValue("query"))
}

// Search answers GET /api/v1/search?q=. A missing or empty q matches
// nothing.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, r.URL.Query().Get("q"))
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, query string) {
	result, err := h.svc.Search(r.Context(), query)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("search completed",
		"query", query,
		"results", len(result.IDs),
	)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Click(w http.ResponseWriter, r *http.Request) {
	id, err := ident.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid document id %q", r.PathValue("id")))
		return
	}
	if err := h.svc.Click(r.Context(), id, r.PathValue("query")); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WriteRequest is the body of POST /api/v1/write.
type WriteRequest struct {
	ID   *ident.ID         `json:"id,omitempty"`
	Item document.Document `json:"item"`
}

func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	var req WriteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if !errors.Is(err, apperrors.ErrInvalidDocument) {
			err = apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "invalid request body: %v", err)
		}
		h.writeError(w, r, err)
		return
	}
	id, err := h.svc.Write(r.Context(), req.ID, req.Item)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]ident.ID{"id": id})
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Snapshot(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, r, apperrors.New(apperrors.ErrUnavailable, 0, "caching is disabled"))
		return
	}
	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError logs server-side failures before replying.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if status, _ := apperrors.Public(err); status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	apperrors.Write(w, err)
}
