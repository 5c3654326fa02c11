package httpapi

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/temperature"
	"github.com/science/HotTubController-sub005/internal/webresponse"
)

// TemperatureHandler serves GET /api/temperature and /api/temperature/all,
// per spec.md §6.
type TemperatureHandler struct {
	cloud  temperature.Provider
	push   *temperature.PushProvider
	logger *zap.Logger
}

func readingBody(reading *model.TemperatureReading) map[string]any {
	out := map[string]any{
		"source_timestamp": reading.SourceTimestamp,
		"received_at":      reading.ReceivedAt,
		"source_tag":       reading.SourceTag,
	}
	if reading.WaterTempC != nil {
		out["water_temp_c"] = *reading.WaterTempC
	}
	if reading.AmbientTempC != nil {
		out["ambient_temp_c"] = *reading.AmbientTempC
	}
	return out
}

// Read returns the cloud sensor's most recent cached reading — the
// battery-friendly default path, per spec.md §4.5.
func (h *TemperatureHandler) Read(c echo.Context) error {
	reading, err := h.cloud.ReadCached(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, readingBody(reading))
}

// ReadAll returns both sensor sources side by side, for a dashboard that
// wants the cloud sample and the microcontroller's self-reported sample
// together.
func (h *TemperatureHandler) ReadAll(c echo.Context) error {
	cloudReading, err := h.cloud.ReadCached(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	pushReading, err := h.push.ReadCached(c.Request().Context())
	if err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, map[string]any{
		"cloud":           readingBody(cloudReading),
		"microcontroller": readingBody(pushReading),
	})
}

func (h *TemperatureHandler) fail(err error) error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}
	return apperror.Internal(err.Error())
}
