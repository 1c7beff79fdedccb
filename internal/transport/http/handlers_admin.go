package httptransport

import (
	"net/http"

	"repairradar/internal/platform/middleware"
	"repairradar/pkg/platform/httputil"
)

type createTenantRequest struct {
	Name string `json:"name"`
}

type moduleConfigRequest struct {
	Modules map[string]bool `json:"modules"`
}

type moduleConfigResponse struct {
	TenantID string          `json:"tenant_id"`
	Modules  map[string]bool `json:"modules"`
}

func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.Decode[createTenantRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenant, err := h.tenants.CreateTenant(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if h.logger != nil {
		h.logger.InfoContext(r.Context(), "tenant created via admin API",
			"tenant_id", tenant.ID,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	httputil.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tenant, err := h.tenants.GetTenant(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenant)
}

// handleGetModuleConfig returns the stored module map. A tenant that never
// had a config saved reports an empty map, not an error.
func (h *Handler) handleGetModuleConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if _, err := h.tenants.GetTenant(r.Context(), tenantID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	cfg, err := h.tenants.GetModuleConfig(r.Context(), tenantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	resp := moduleConfigResponse{TenantID: tenantID.String(), Modules: map[string]bool{}}
	if cfg != nil && cfg.Modules != nil {
		resp.Modules = cfg.Modules
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSetModuleConfig(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, err := httputil.Decode[moduleConfigRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Modules == nil {
		req.Modules = map[string]bool{}
	}

	cfg, err := h.tenants.SetModuleConfig(r.Context(), tenantID, req.Modules)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, moduleConfigResponse{
		TenantID: tenantID.String(),
		Modules:  cfg.Modules,
	})
}
