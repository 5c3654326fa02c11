package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/temperature"
)

type fakeCloudProvider struct {
	cached, fresh *model.TemperatureReading
	err           error
}

func (f *fakeCloudProvider) ReadCached(_ context.Context) (*model.TemperatureReading, error) {
	return f.cached, f.err
}

func (f *fakeCloudProvider) ReadFresh(_ context.Context) (*model.TemperatureReading, error) {
	return f.fresh, f.err
}

func waterReading(tempC float64) *model.TemperatureReading {
	v := tempC
	now := time.Now().UTC()
	return &model.TemperatureReading{WaterTempC: &v, SourceTimestamp: now, ReceivedAt: now, SourceTag: model.SourceCloudCached}
}

func TestTemperatureReadReturnsCloudReading(t *testing.T) {
	h := &TemperatureHandler{cloud: &fakeCloudProvider{cached: waterReading(38.2)}, logger: zap.NewNop()}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/temperature", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Read(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 38.2, body["water_temp_c"], 0.001)
}

func TestTemperatureReadPropagatesProviderError(t *testing.T) {
	h := &TemperatureHandler{cloud: &fakeCloudProvider{err: errors.New("sensor unreachable")}, logger: zap.NewNop()}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/temperature", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Read(c)
	assert.Error(t, err)
}

func TestTemperatureReadAllCombinesBothSources(t *testing.T) {
	dir := t.TempDir()
	push := temperature.NewPushProvider(filepath.Join(dir, "esp32-temperature.json"))
	require.NoError(t, push.Record(*waterReading(37.0)))

	h := &TemperatureHandler{cloud: &fakeCloudProvider{cached: waterReading(38.2)}, push: push, logger: zap.NewNop()}
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/temperature/all", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.ReadAll(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "cloud")
	assert.Contains(t, body, "microcontroller")
}
