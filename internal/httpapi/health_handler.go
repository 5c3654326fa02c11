package httpapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/coordinator"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/health"
	"github.com/science/HotTubController-sub005/internal/webresponse"
)

// HealthChecker is the subset of *health.Checker HealthHandler needs,
// narrowed to an interface so tests can stub it.
type HealthChecker interface {
	Check(ctx context.Context) health.Status
}

// HealthHandler serves GET /api/health with the exact response shape
// spec.md §6 names, including blindsEnabled — a field this system has no
// blinds to back; it is always reported false, preserved verbatim from
// the wire contract this controller shares with the wider home-automation
// deployment it runs alongside.
type HealthHandler struct {
	checker         HealthChecker
	equipment       *equipment.Service
	settings        *coordinator.FileSettingsStore
	externalAPIMode string
}

func (h *HealthHandler) Health(c echo.Context) error {
	status := h.checker.Check(c.Request().Context())

	equipStatus, err := h.equipment.Status()
	if err != nil {
		return apperror.Internal("reading equipment status: " + err.Error())
	}
	settings, err := h.settings.Get()
	if err != nil {
		return apperror.Internal("reading heat target settings: " + err.Error())
	}

	overall := "healthy"
	if !status.Healthy {
		overall = "degraded"
	}

	return webresponse.OK(c, map[string]any{
		"status":     overall,
		"ifttt_mode": h.externalAPIMode,
		"equipmentStatus": map[string]any{
			"heater": equipStatus.Heater.On,
			"pump":   equipStatus.Pump.On,
		},
		"heatTargetSettings": map[string]any{
			"enabled":       settings.Enabled,
			"target_temp_f": settings.TargetTempF,
			"timezone":      settings.Timezone,
			"schedule_mode": settings.ScheduleMode,
		},
		"blindsEnabled": false,
	})
}
