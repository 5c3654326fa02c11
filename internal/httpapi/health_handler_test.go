package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/coordinator"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/equipmentstore"
	"github.com/science/HotTubController-sub005/internal/health"
)

type fakeHealthChecker struct {
	status health.Status
}

func (f fakeHealthChecker) Check(_ context.Context) health.Status { return f.status }

func newTestHealthHandler(t *testing.T, checker HealthChecker) *HealthHandler {
	dir := t.TempDir()
	store := equipmentstore.New(filepath.Join(dir, "equipment-status.json"), filepath.Join(dir, ".lock"))
	equipSvc := equipment.New(store, noopWebhookClient{}, zap.NewNop(), true, nil)
	settings := coordinator.NewFileSettingsStore(filepath.Join(dir, "heat-target-settings.json"), filepath.Join(dir, ".settings.lock"))
	return &HealthHandler{checker: checker, equipment: equipSvc, settings: settings, externalAPIMode: "stub"}
}

func TestHealthReportsHealthyWhenCheckerHealthy(t *testing.T) {
	h := newTestHealthHandler(t, fakeHealthChecker{status: health.Status{Healthy: true, Components: map[string]string{"redis": "ok"}}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["blindsEnabled"])
}

func TestHealthReportsDegradedWhenCheckerUnhealthy(t *testing.T) {
	h := newTestHealthHandler(t, fakeHealthChecker{status: health.Status{Healthy: false, Components: map[string]string{"redis": "error: timeout"}}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

func TestHealthIncludesEquipmentAndSettingsSnapshot(t *testing.T) {
	h := newTestHealthHandler(t, fakeHealthChecker{status: health.Status{Healthy: true}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	equipStatus := body["equipmentStatus"].(map[string]any)
	assert.Equal(t, false, equipStatus["heater"])
	settings := body["heatTargetSettings"].(map[string]any)
	assert.Equal(t, false, settings["enabled"])
}
