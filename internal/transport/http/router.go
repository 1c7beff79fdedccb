// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services without embedding business logic so transport concerns remain
// isolated.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"repairradar/internal/dashboard"
	"repairradar/internal/dashboard/models"
	"repairradar/internal/live"
	"repairradar/internal/modules/assets"
	"repairradar/internal/modules/calls"
	"repairradar/internal/modules/maintenance"
	"repairradar/internal/modules/parts"
	"repairradar/internal/modules/vendors"
	"repairradar/internal/modules/workorders"
	"repairradar/internal/platform/middleware"
	tenantservice "repairradar/internal/tenant/service"
	id "repairradar/pkg/domain"
)

// Subscriber is the slice of the live broker the transport needs.
type Subscriber interface {
	Subscribe(ctx context.Context, tenantID id.TenantID) (<-chan *models.Snapshot, func(), error)
}

// HealthChecker reports the readiness of one backing dependency.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Handler holds all service dependencies for the HTTP layer.
type Handler struct {
	dashboard *dashboard.Service
	live      Subscriber
	tenants   *tenantservice.Service

	assets      *assets.Service
	workOrders  *workorders.Service
	calls       *calls.Service
	maintenance *maintenance.Service
	parts       *parts.Service
	vendors     *vendors.Service

	health []HealthChecker
	logger *slog.Logger
}

// Services bundles the Handler's constructor arguments.
type Services struct {
	Dashboard *dashboard.Service
	Live      Subscriber
	Tenants   *tenantservice.Service

	Assets      *assets.Service
	WorkOrders  *workorders.Service
	Calls       *calls.Service
	Maintenance *maintenance.Service
	Parts       *parts.Service
	Vendors     *vendors.Service
}

func NewHandler(svcs Services, logger *slog.Logger, health ...HealthChecker) *Handler {
	return &Handler{
		dashboard:   svcs.Dashboard,
		live:        svcs.Live,
		tenants:     svcs.Tenants,
		assets:      svcs.Assets,
		workOrders:  svcs.WorkOrders,
		calls:       svcs.Calls,
		maintenance: svcs.Maintenance,
		parts:       svcs.Parts,
		vendors:     svcs.Vendors,
		health:      health,
		logger:      logger,
	}
}

var _ Subscriber = (*live.Broker)(nil)

// NewRouter wires all endpoints with the middleware stack.
func NewRouter(h *Handler, adminToken string, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/modules", h.handleListModules)

		r.Route("/tenants/{tenantID}", func(r chi.Router) {
			r.Get("/dashboard", h.handleGetDashboard)
			r.Get("/dashboard/events", h.handleDashboardEvents)

			r.Post("/assets", h.handleCreateAsset)
			r.Post("/assets/{assetID}/status", h.handleUpdateAssetStatus)
			r.Post("/work-orders", h.handleCreateWorkOrder)
			r.Post("/work-orders/{workOrderID}/status", h.handleUpdateWorkOrderStatus)
			r.Post("/calls", h.handleLogCall)
			r.Post("/calls/{callID}/close", h.handleCloseCall)
			r.Post("/parts", h.handleAddPart)
			r.Post("/parts/{partID}/adjust", h.handleAdjustPartQuantity)
			r.Post("/vendors", h.handleAddVendor)
			r.Post("/maintenance", h.handleCreateSchedule)
			r.Post("/maintenance/{scheduleID}/complete", h.handleCompleteRun)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, logger))

		r.Post("/tenants", h.handleCreateTenant)
		r.Get("/tenants/{tenantID}", h.handleGetTenant)
		r.Get("/tenants/{tenantID}/modules", h.handleGetModuleConfig)
		r.Put("/tenants/{tenantID}/modules", h.handleSetModuleConfig)
	})

	return r
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	for _, check := range h.health {
		if !check.Healthy(r.Context()) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"degraded"}`))
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
