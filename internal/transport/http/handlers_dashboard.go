package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"repairradar/internal/platform/middleware"
	id "repairradar/pkg/domain"
	dErrors "repairradar/pkg/domain-errors"
	"repairradar/pkg/platform/httputil"
)

func tenantIDFromURL(r *http.Request) (id.TenantID, error) {
	return id.ParseTenantID(chi.URLParam(r, "tenantID"))
}

// handleListModules returns the full module catalog in canonical order.
func (h *Handler) handleListModules(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"modules": h.dashboard.ListAvailableModules(),
	})
}

// handleGetDashboard runs an on-demand aggregation pass and returns the
// snapshot. Module failures appear inside the snapshot, never as an HTTP
// error.
func (h *Handler) handleGetDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	snap, err := h.dashboard.Snapshot(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

// handleDashboardEvents streams dashboard snapshots over SSE. The client
// receives one frame immediately, then one per recomputation. Reconnects
// start a fresh subscription; there are no resume offsets.
func (h *Handler) handleDashboardEvents(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "streaming not supported"))
		return
	}

	ctx := r.Context()
	ch, cancel, err := h.live.Subscribe(ctx, tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if h.logger != nil {
		h.logger.InfoContext(ctx, "dashboard stream opened",
			"tenant_id", tenantID,
			"request_id", middleware.GetRequestID(ctx),
		)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, open := <-ch:
			if !open {
				return
			}
			payload, err := json.Marshal(snap)
			if err != nil {
				if h.logger != nil {
					h.logger.ErrorContext(ctx, "marshal snapshot frame failed", "error", err)
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
