package coordinator

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/equipmentstore"
	"github.com/science/HotTubController-sub005/internal/model"
)

type fakeSettingsStore struct {
	settings model.HeatTargetSettings
}

func (f *fakeSettingsStore) Get() (model.HeatTargetSettings, error) {
	return f.settings, nil
}

type fakeCycleStarter struct {
	started     bool
	targetTempC float64
}

func (f *fakeCycleStarter) Start(_ context.Context, targetTempC float64) (*model.HeatingCycle, error) {
	f.started = true
	f.targetTempC = targetTempC
	return &model.HeatingCycle{CycleID: "fake-cycle", TargetTempC: targetTempC}, nil
}

type noopWebhookClient struct{}

func (noopWebhookClient) Trigger(_ context.Context, _ string) error { return nil }

func newTestEquipment(t *testing.T) *equipment.Service {
	dir := t.TempDir()
	store := equipmentstore.New(filepath.Join(dir, "equipment-status.json"), filepath.Join(dir, ".lock"))
	return equipment.New(store, noopWebhookClient{}, zap.NewNop(), true, nil)
}

func TestHandleHeatOnDisabledJustTurnsHeaterOn(t *testing.T) {
	settings := &fakeSettingsStore{settings: model.HeatTargetSettings{Enabled: false}}
	cycles := &fakeCycleStarter{}
	equip := newTestEquipment(t)
	c := New(settings, equip, cycles, nil, 0.5, zap.NewNop())

	err := c.HandleHeatOn(context.Background())
	require.NoError(t, err)
	assert.False(t, cycles.started)

	status, err := equip.Status()
	require.NoError(t, err)
	assert.True(t, status.Heater.On)
}

func TestHandleHeatOnEnabledStartsSupervisedCycle(t *testing.T) {
	settings := &fakeSettingsStore{settings: model.HeatTargetSettings{Enabled: true, TargetTempF: 102.0}}
	cycles := &fakeCycleStarter{}
	equip := newTestEquipment(t)
	c := New(settings, equip, cycles, nil, 0.5, zap.NewNop())

	err := c.HandleHeatOn(context.Background())
	require.NoError(t, err)
	assert.True(t, cycles.started)
	assert.InDelta(t, fahrenheitToCelsius(102.0), cycles.targetTempC, 0.001)

	status, err := equip.Status()
	require.NoError(t, err)
	assert.True(t, status.Heater.On)
}

func TestScheduleReadyByRejectsTargetBelowCurrent(t *testing.T) {
	c := New(&fakeSettingsStore{}, nil, nil, nil, 0.5, zap.NewNop())

	_, err := c.ScheduleReadyBy(context.Background(), time.Now().Add(time.Hour), 100, 95, "/api/internal/heat-on", "tester")
	assert.Error(t, err)
}

func TestScheduleReadyByRejectsNonPositiveHeatingRate(t *testing.T) {
	c := New(&fakeSettingsStore{}, nil, nil, nil, 0, zap.NewNop())

	_, err := c.ScheduleReadyBy(context.Background(), time.Now().Add(time.Hour), 90, 100, "/api/internal/heat-on", "tester")
	assert.Error(t, err)
}

func TestScheduleReadyByRejectsUnachievableStartTime(t *testing.T) {
	// At 0.1 F/min, a 50F delta needs 500 minutes — readyBy one minute from
	// now can never have a start time in the future.
	c := New(&fakeSettingsStore{}, nil, nil, nil, 0.1, zap.NewNop())

	_, err := c.ScheduleReadyBy(context.Background(), time.Now().Add(time.Minute), 50, 100, "/api/internal/heat-on", "tester")
	assert.Error(t, err)
}

func TestFahrenheitToCelsius(t *testing.T) {
	assert.InDelta(t, 0.0, fahrenheitToCelsius(32), 0.001)
	assert.InDelta(t, 100.0, fahrenheitToCelsius(212), 0.001)
	assert.InDelta(t, 38.888, fahrenheitToCelsius(102), 0.001)
}
