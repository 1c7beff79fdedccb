package httptransport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairradar/internal/activation"
	"repairradar/internal/dashboard"
	dashmodels "repairradar/internal/dashboard/models"
	"repairradar/internal/live"
	"repairradar/internal/modules/assets"
	"repairradar/internal/modules/calls"
	"repairradar/internal/modules/maintenance"
	"repairradar/internal/modules/parts"
	"repairradar/internal/modules/vendors"
	"repairradar/internal/modules/workorders"
	"repairradar/internal/platform/logger"
	"repairradar/internal/registry"
	tenantservice "repairradar/internal/tenant/service"
	tenantstore "repairradar/internal/tenant/store"
)

const testAdminToken = "test-admin-token"

type testEnv struct {
	server *httptest.Server
	broker *live.Broker
}

// newTestEnv wires the full stack with in-memory stores and an in-process
// event path, mirroring production wiring without Kafka or Redis.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.New()

	assetSvc := assets.NewService(assets.NewStore())
	workOrderSvc := workorders.NewService(workorders.NewStore())
	callSvc := calls.NewService(calls.NewStore())
	maintenanceSvc := maintenance.NewService(maintenance.NewStore())
	partSvc := parts.NewService(parts.NewStore())
	vendorSvc := vendors.NewService(vendors.NewStore())

	reg := registry.New()
	reg.MustRegister(assetSvc.Descriptor())
	reg.MustRegister(workOrderSvc.Descriptor())
	reg.MustRegister(callSvc.Descriptor())
	reg.MustRegister(maintenanceSvc.Descriptor())
	reg.MustRegister(partSvc.Descriptor())
	reg.MustRegister(vendorSvc.Descriptor())

	tenants := tenantstore.NewInMemoryTenantStore()
	configs := tenantstore.NewInMemoryConfigStore()
	tenantSvc := tenantservice.New(tenants, configs)

	resolver := activation.New(reg, tenantSvc, log)
	engine := dashboard.NewEngine(2 * time.Second)
	dashboardSvc := dashboard.NewService(reg, resolver, engine)

	broker := live.NewBroker(dashboardSvc)
	t.Cleanup(broker.Close)

	handler := NewHandler(Services{
		Dashboard:   dashboardSvc,
		Live:        broker,
		Tenants:     tenantSvc,
		Assets:      assetSvc,
		WorkOrders:  workOrderSvc,
		Calls:       callSvc,
		Maintenance: maintenanceSvc,
		Parts:       partSvc,
		Vendors:     vendorSvc,
	}, log)

	server := httptest.NewServer(NewRouter(handler, testAdminToken, log))
	t.Cleanup(server.Close)

	return &testEnv{server: server, broker: broker}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, admin bool) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (e *testEnv) createTenant(t *testing.T, name string) string {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/admin/tenants", map[string]string{"name": name}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	return body["id"].(string)
}

func (e *testEnv) enableModules(t *testing.T, tenantID string, modules map[string]bool) {
	t.Helper()
	resp := e.do(t, http.MethodPut, "/admin/tenants/"+tenantID+"/modules",
		map[string]any{"modules": modules}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/admin/tenants",
		strings.NewReader(`{"name":"acme"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateTenantConflict(t *testing.T) {
	env := newTestEnv(t)
	env.createTenant(t, "Acme Facilities")

	resp := env.do(t, http.MethodPost, "/admin/tenants", map[string]string{"name": "acme facilities"}, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "tenant names are unique case-insensitively")
}

func TestListModules(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/modules", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[struct {
		Modules []struct {
			Key         string `json:"key"`
			DisplayName string `json:"display_name"`
		} `json:"modules"`
	}](t, resp)

	keys := make([]string, 0, len(body.Modules))
	for _, m := range body.Modules {
		keys = append(keys, m.Key)
	}
	assert.Equal(t, []string{
		"assets", "work-orders", "calls", "preventative-maintenance", "parts", "vendors",
	}, keys, "catalog order is registration order")
}

func TestModuleConfigRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.createTenant(t, "Roundtrip Co")

	// Unknown keys are stored untouched.
	env.enableModules(t, tenantID, map[string]bool{"assets": true, "future-module": true})

	resp := env.do(t, http.MethodGet, "/admin/tenants/"+tenantID+"/modules", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[moduleConfigResponse](t, resp)
	assert.True(t, body.Modules["assets"])
	assert.True(t, body.Modules["future-module"])
}

func TestModuleConfigForUnknownTenant(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/admin/tenants/a3bb189e-8bf9-3888-9912-ace4e6543002/modules", nil, true)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardAggregatesActiveModules(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.createTenant(t, "Dash Co")
	env.enableModules(t, tenantID, map[string]bool{"assets": true, "work-orders": true})

	resp := env.do(t, http.MethodPost, "/api/tenants/"+tenantID+"/assets",
		map[string]string{"name": "Boiler", "status": "down"}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/tenants/"+tenantID+"/work-orders",
		map[string]string{"title": "Fix boiler", "priority": "high"}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/tenants/"+tenantID+"/dashboard", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[dashmodels.Snapshot](t, resp)

	require.Len(t, snap.Modules, 2)
	assert.Equal(t, "assets", snap.Modules[0].Key)
	assert.Equal(t, "work-orders", snap.Modules[1].Key)
	assert.Equal(t, 1.0, snap.Aggregate["assets.down"])
	assert.Equal(t, 1.0, snap.Aggregate["work-orders.open"])
	assert.Equal(t, 2.0, snap.Aggregate["records"], "records sums across modules")
}

func TestDashboardWithoutConfigIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.createTenant(t, "Empty Co")

	resp := env.do(t, http.MethodGet, "/api/tenants/"+tenantID+"/dashboard", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	snap := decodeBody[dashmodels.Snapshot](t, resp)
	assert.Empty(t, snap.Modules)
	assert.Empty(t, snap.Aggregate)
}

func TestDashboardRejectsBadTenantID(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/tenants/not-a-uuid/dashboard", nil, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutationValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.createTenant(t, "Validate Co")

	resp := env.do(t, http.MethodPost, "/api/tenants/"+tenantID+"/assets",
		map[string]string{"name": ""}, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/tenants/"+tenantID+"/work-orders/a3bb189e-8bf9-3888-9912-ace4e6543002/status",
		map[string]string{"status": "open"}, false)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPartLifecycle(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.createTenant(t, "Parts Co")

	resp := env.do(t, http.MethodPost, "/api/tenants/"+tenantID+"/parts",
		map[string]any{"name": "Fuse", "quantity": 4}, false)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	part := decodeBody[map[string]any](t, resp)

	resp = env.do(t, http.MethodPost,
		fmt.Sprintf("/api/tenants/%s/parts/%s/adjust", tenantID, part["id"]),
		map[string]int{"delta": 6}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	adjusted := decodeBody[map[string]any](t, resp)
	assert.Equal(t, 10.0, adjusted["quantity"])
}

func TestDashboardEventsStream(t *testing.T) {
	env := newTestEnv(t)
	tenantID := env.createTenant(t, "Stream Co")
	env.enableModules(t, tenantID, map[string]bool{"calls": true})

	resp := env.do(t, http.MethodGet, "/api/tenants/"+tenantID+"/dashboard/events", nil, false)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	frame := readSSEFrame(t, reader)

	var snap dashmodels.Snapshot
	require.NoError(t, json.Unmarshal(frame, &snap))
	assert.Equal(t, tenantID, snap.TenantID.String())
	require.Len(t, snap.Modules, 1)
	assert.Equal(t, "calls", snap.Modules[0].Key)
}

func readSSEFrame(t *testing.T, reader *bufio.Reader) []byte {
	t.Helper()
	deadline := time.After(5 * time.Second)
	frameCh := make(chan []byte, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if strings.HasPrefix(line, "data: ") {
				frameCh <- []byte(strings.TrimSpace(strings.TrimPrefix(line, "data: ")))
				return
			}
		}
	}()
	select {
	case frame := <-frameCh:
		return frame
	case <-deadline:
		t.Fatal("timed out waiting for SSE frame")
		return nil
	}
}
