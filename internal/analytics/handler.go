package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

const maxTop = 100

// Handler serves the aggregated statistics.
type Handler struct {
	aggregator *Aggregator
	collector  *Collector
	logger     *slog.Logger
}

// NewHandler serves stats from aggregator. collector may be nil; when set
// its publish counters are reported under "pipeline".
func NewHandler(aggregator *Aggregator, collector *Collector) *Handler {
	return &Handler{
		aggregator: aggregator,
		collector:  collector,
		logger:     logger.WithComponent("analytics-handler"),
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics/stats", h.Stats)
}

// Stats accepts ?top=N (1 to 100) to size the rankings.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	top := DefaultTop
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxTop {
			apperrors.Write(w, apperrors.Newf(apperrors.ErrInvalidInput, 0, "top must be between 1 and %d", maxTop))
			return
		}
		top = n
	}

	stats := h.aggregator.StatsTop(top)
	if h.collector != nil {
		p := h.collector.Pipeline()
		stats.Pipeline = &p
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		h.logger.Error("encoding stats", "error", err)
	}
}
