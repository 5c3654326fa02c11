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

	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/equipmentstore"
)

type noopWebhookClient struct{}

func (noopWebhookClient) Trigger(_ context.Context, _ string) error { return nil }

func newTestEquipmentHandler(t *testing.T) *EquipmentHandler {
	dir := t.TempDir()
	store := equipmentstore.New(filepath.Join(dir, "equipment-status.json"), filepath.Join(dir, ".lock"))
	svc := equipment.New(store, noopWebhookClient{}, zap.NewNop(), true, nil)
	return &EquipmentHandler{equipment: svc, logger: zap.NewNop()}
}

func TestHeaterOnHandlerReturnsOKEnvelope(t *testing.T) {
	h := newTestEquipmentHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/equipment/heater/on", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.HeaterOn(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, string(ActionHeaterOn), body["action"])
}

func TestHeaterOffHandlerReturnsOKEnvelope(t *testing.T) {
	h := newTestEquipmentHandler(t)
	e := echo.New()

	onReq := httptest.NewRequest(http.MethodPost, "/api/equipment/heater/on", nil)
	require.NoError(t, h.HeaterOn(e.NewContext(onReq, httptest.NewRecorder())))

	req := httptest.NewRequest(http.MethodPost, "/api/equipment/heater/off", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.HeaterOff(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(ActionHeaterOff), body["action"])
}

func TestPumpRunHandlerReturnsOKEnvelope(t *testing.T) {
	h := newTestEquipmentHandler(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/equipment/pump/run", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.PumpRun(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(ActionPumpRun), body["action"])
}
