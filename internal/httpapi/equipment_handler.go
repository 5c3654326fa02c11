package httpapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/webresponse"
)

// EquipmentHandler serves POST /api/equipment/{heater,pump}/*, per spec.md §6.
type EquipmentHandler struct {
	equipment *equipment.Service
	logger    *zap.Logger
}

func actionBody(action Action, ts time.Time) map[string]any {
	out := map[string]any{"action": action, "timestamp": ts.Format(time.RFC3339)}
	return out
}

// Action is the idempotent-request label spec.md §6 echoes back to callers.
type Action string

const (
	ActionHeaterOn  Action = "heater_on"
	ActionHeaterOff Action = "heater_off"
	ActionPumpRun   Action = "pump_run"
)

func (h *EquipmentHandler) HeaterOn(c echo.Context) error {
	result, err := h.equipment.HeaterOn(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, actionBody(ActionHeaterOn, result.Timestamp))
}

func (h *EquipmentHandler) HeaterOff(c echo.Context) error {
	result, err := h.equipment.HeaterOff(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, actionBody(ActionHeaterOff, result.Timestamp))
}

func (h *EquipmentHandler) PumpRun(c echo.Context) error {
	result, err := h.equipment.PumpRun(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, actionBody(ActionPumpRun, result.Timestamp))
}

func (h *EquipmentHandler) fail(err error) error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}
	return apperror.Internal(err.Error())
}
