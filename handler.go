package healthshare

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// DefaultReadTimeout bounds the cluster read behind a health request.
const DefaultReadTimeout = 5 * time.Second

// HealthHandler serves the cluster health summary as JSON. It answers 200
// for GREEN and YELLOW, 503 for RED and 503 with an error body if the
// cluster cannot be read.
type HealthHandler struct {
	state  *SharedHealthState
	logger *slog.Logger
}

// NewHealthHandler creates a handler reading from state.
func NewHealthHandler(state *SharedHealthState, opts ...Option) *HealthHandler {
	o := applyOptions(opts)
	return &HealthHandler{
		state:  state,
		logger: o.logger.With("component", "health-handler"),
	}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), DefaultReadTimeout)
	defer cancel()

	nodes, err := h.state.ReadAll(ctx)
	if err != nil {
		h.logger.Warn("cluster health read failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}

	summary := Summarize(nodes)
	code := http.StatusOK
	if summary.Status == StatusRed {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, summary)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

var _ http.Handler = (*HealthHandler)(nil)
