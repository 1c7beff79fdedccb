package httptransport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"repairradar/internal/modules/assets"
	"repairradar/internal/modules/workorders"
	id "repairradar/pkg/domain"
	"repairradar/pkg/platform/httputil"
)

// Mutation endpoints. Each one delegates to the owning module service; the
// service emits the domain event that refreshes live dashboards.

type createAssetRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

func (h *Handler) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[createAssetRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.assets.CreateAsset(r.Context(), tenantID, req.Name, req.Location, assets.Status(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, asset)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleUpdateAssetStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	assetID, err := id.ParseAssetID(chi.URLParam(r, "assetID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[updateStatusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asset, err := h.assets.UpdateStatus(r.Context(), tenantID, assetID, assets.Status(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

type createWorkOrderRequest struct {
	Title    string     `json:"title"`
	Priority string     `json:"priority"`
	AssetID  string     `json:"asset_id"`
	DueDate  *time.Time `json:"due_date"`
}

func (h *Handler) handleCreateWorkOrder(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[createWorkOrderRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var assetID id.AssetID
	if req.AssetID != "" {
		assetID, err = id.ParseAssetID(req.AssetID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	order, err := h.workOrders.CreateWorkOrder(r.Context(), tenantID, req.Title, workorders.Priority(req.Priority), assetID, req.DueDate)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleUpdateWorkOrderStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	orderID, err := id.ParseWorkOrderID(chi.URLParam(r, "workOrderID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[updateStatusRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	order, err := h.workOrders.UpdateStatus(r.Context(), tenantID, orderID, workorders.Status(req.Status))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, order)
}

type logCallRequest struct {
	Subject string `json:"subject"`
	Caller  string `json:"caller"`
}

func (h *Handler) handleLogCall(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[logCallRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	call, err := h.calls.LogCall(r.Context(), tenantID, req.Subject, req.Caller)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, call)
}

func (h *Handler) handleCloseCall(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	callID, err := id.ParseCallID(chi.URLParam(r, "callID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	call, err := h.calls.CloseCall(r.Context(), tenantID, callID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, call)
}

type addPartRequest struct {
	Name     string `json:"name"`
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) handleAddPart(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[addPartRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	part, err := h.parts.AddPart(r.Context(), tenantID, req.Name, req.SKU, req.Quantity)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, part)
}

type adjustQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) handleAdjustPartQuantity(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	partID, err := id.ParsePartID(chi.URLParam(r, "partID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[adjustQuantityRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	part, err := h.parts.AdjustQuantity(r.Context(), tenantID, partID, req.Delta)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, part)
}

type addVendorRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
}

func (h *Handler) handleAddVendor(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[addVendorRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	vendor, err := h.vendors.AddVendor(r.Context(), tenantID, req.Name, req.Contact)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, vendor)
}

type createScheduleRequest struct {
	Name         string     `json:"name"`
	AssetID      string     `json:"asset_id"`
	IntervalDays int        `json:"interval_days"`
	NextRun      *time.Time `json:"next_run"`
}

func (h *Handler) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[createScheduleRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var assetID id.AssetID
	if req.AssetID != "" {
		assetID, err = id.ParseAssetID(req.AssetID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	schedule, err := h.maintenance.CreateSchedule(r.Context(), tenantID, req.Name, assetID, req.IntervalDays, req.NextRun)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, schedule)
}

func (h *Handler) handleCompleteRun(w http.ResponseWriter, r *http.Request) {
	tenantID, err := tenantIDFromURL(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "scheduleID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	schedule, err := h.maintenance.CompleteRun(r.Context(), tenantID, scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, schedule)
}
