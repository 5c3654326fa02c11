// Package httpapi wires every operation in spec.md §6 onto Echo routes,
// grounded on the teacher's handler registration pattern — one handler
// struct per resource, all built and mounted by Register, which the
// composition root calls.
package httpapi

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/coordinator"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/heating"
	"github.com/science/HotTubController-sub005/internal/history"
	"github.com/science/HotTubController-sub005/internal/scheduler"
	"github.com/science/HotTubController-sub005/internal/temperature"
	"github.com/science/HotTubController-sub005/internal/webmiddleware"
)

// Dependencies bundles everything the routes need, threaded in from the
// composition root rather than reached for via package globals.
type Dependencies struct {
	Equipment        *equipment.Service
	CloudTemperature temperature.Provider
	PushTemperature  *temperature.PushProvider
	Scheduler        *scheduler.Service
	HeatingEngine    *heating.Engine
	Coordinator      *coordinator.Coordinator
	Settings         *coordinator.FileSettingsStore
	History          *history.Store
	HealthChecker    HealthChecker
	ExternalAPIMode  string

	JWTSecret   string
	ESP32APIKey string

	FirmwarePath string

	Logger *zap.Logger
}

// Register mounts every route spec.md §6 lists, plus the supplementary
// history endpoint from SPEC_FULL.md §4.13.
func Register(e *echo.Echo, deps Dependencies) {
	e.Validator = NewValidator()

	equipHandler := &EquipmentHandler{equipment: deps.Equipment, logger: deps.Logger}
	tempHandler := &TemperatureHandler{cloud: deps.CloudTemperature, push: deps.PushTemperature, logger: deps.Logger}
	esp32Handler := newESP32Handler(deps.PushTemperature, deps.Equipment, deps.FirmwarePath, deps.Logger)
	scheduleHandler := &ScheduleHandler{scheduler: deps.Scheduler, coordinator: deps.Coordinator, engine: deps.HeatingEngine, logger: deps.Logger}
	healthHandler := &HealthHandler{checker: deps.HealthChecker, equipment: deps.Equipment, settings: deps.Settings, externalAPIMode: deps.ExternalAPIMode}
	historyHandler := &HistoryHandler{store: deps.History}

	bearer := webmiddleware.BearerAuth(deps.JWTSecret)
	apiKey := webmiddleware.ESP32APIKey(deps.ESP32APIKey)

	api := e.Group("/api")

	api.POST("/equipment/heater/on", equipHandler.HeaterOn, bearer)
	api.POST("/equipment/heater/off", equipHandler.HeaterOff, bearer)
	api.POST("/equipment/pump/run", equipHandler.PumpRun, bearer)

	api.GET("/temperature", tempHandler.Read, bearer)
	api.GET("/temperature/all", tempHandler.ReadAll, bearer)

	api.POST("/esp32/temperature", esp32Handler.Push, apiKey)
	api.GET("/esp32/firmware/download", esp32Handler.DownloadFirmware, apiKey)

	api.POST("/schedule", scheduleHandler.Create, bearer)
	api.GET("/schedule", scheduleHandler.List, bearer)
	api.DELETE("/schedule/:id", scheduleHandler.Cancel, bearer)

	api.GET("/health", healthHandler.Health, bearer)

	api.GET("/history", historyHandler.Recent, bearer)

	// Loopback targets invoked by CronRunner; bearer-guarded like any
	// other equipment/scheduling endpoint, since the runner carries the
	// same bearer token a user session would.
	api.POST("/internal/heat-on", scheduleHandler.HandleHeatOn, bearer)
	api.POST("/internal/monitor-tick", scheduleHandler.HandleMonitorTick, bearer)
}
