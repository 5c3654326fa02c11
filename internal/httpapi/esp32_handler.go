package httpapi

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/fsutil"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/temperature"
	"github.com/science/HotTubController-sub005/internal/webresponse"
)

// esp32PushRateLimit bounds how often the device-push endpoint accepts a
// reading: the fastest legitimate cadence is one push per
// PushCadenceHeaterOnSeconds, so a burst above that is a misbehaving or
// spoofed device rather than a real sample, per spec.md §4.5.
var esp32PushRateLimit = rate.Every(time.Duration(temperature.PushCadenceHeaterOnSeconds) * time.Second / 2)

// firmwareManifest is the contents of firmware/config.json, per spec.md §6's
// storage layout.
type firmwareManifest struct {
	Version  string `json:"version"`
	Filename string `json:"filename"`
}

// ESP32Handler serves the two device-facing routes, guarded by the static
// API-key middleware rather than a bearer token.
type ESP32Handler struct {
	push         *temperature.PushProvider
	equipment    *equipment.Service
	firmwarePath string // directory holding config.json and the binary
	limiter      *rate.Limiter
	logger       *zap.Logger
}

// newESP32Handler wires up the push-rate limiter alongside the handler's
// other collaborators.
func newESP32Handler(push *temperature.PushProvider, equip *equipment.Service, firmwarePath string, logger *zap.Logger) *ESP32Handler {
	return &ESP32Handler{
		push:         push,
		equipment:    equip,
		firmwarePath: firmwarePath,
		limiter:      rate.NewLimiter(esp32PushRateLimit, 3),
		logger:       logger,
	}
}

// Push implements POST /api/esp32/temperature per spec.md §6/§8 scenario 6:
// records the reading, replies with the self-pacing interval, and advertises
// a newer firmware build when one is on disk.
func (h *ESP32Handler) Push(c echo.Context) error {
	if !h.limiter.Allow() {
		return apperror.New(apperror.CodeUnavailable, "push rate exceeded", http.StatusTooManyRequests)
	}

	var req ReqESP32Push
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.ValidationError(err.Error())
	}

	reading := model.TemperatureReading{
		WaterTempC:      req.WaterTempC,
		AmbientTempC:    req.AmbientTempC,
		BatteryVoltage:  req.BatteryVoltage,
		SignalDBM:       req.SignalDBM,
		SourceTimestamp: time.Now().UTC(),
	}
	if err := h.push.Record(reading); err != nil {
		return h.fail(err)
	}

	status, err := h.equipment.Status()
	if err != nil {
		return h.fail(err)
	}
	interval := temperature.NextIntervalSeconds(status.Heater.On)

	body := map[string]any{
		"status":           "ok",
		"interval_seconds": interval,
	}
	if desc, ok := h.newerFirmware(req.FirmwareVersion); ok {
		body["firmware_version"] = desc.Version
		body["firmware_url"] = desc.URL
	}
	return webresponse.OK(c, body)
}

// DownloadFirmware implements GET /api/esp32/firmware/download: a binary
// stream of whatever firmware/config.json currently names. The absence of
// over-the-air push (the system never initiates this) keeps this endpoint a
// passive, device-pulled download per spec.md §3's non-goal.
func (h *ESP32Handler) DownloadFirmware(c echo.Context) error {
	manifest, err := h.readManifest()
	if err != nil {
		return h.fail(err)
	}
	if manifest.Filename == "" {
		return apperror.NotFound("no firmware build available")
	}

	binPath := filepath.Join(h.firmwarePath, manifest.Filename)
	f, err := os.Open(binPath)
	if err != nil {
		return apperror.NotFound("firmware binary not found")
	}
	defer f.Close()

	c.Response().Header().Set("X-Firmware-Version", manifest.Version)
	return c.Stream(http.StatusOK, "application/octet-stream", f)
}

func (h *ESP32Handler) newerFirmware(deviceVersion string) (temperature.FirmwareDescriptor, bool) {
	manifest, err := h.readManifest()
	if err != nil || manifest.Version == "" || compareFirmwareVersions(manifest.Version, deviceVersion) <= 0 {
		return temperature.FirmwareDescriptor{}, false
	}
	return temperature.FirmwareDescriptor{
		Version: manifest.Version,
		URL:     "/api/esp32/firmware/download",
	}, true
}

// compareFirmwareVersions compares two dotted numeric version strings
// (e.g. "1.4.2"), returning >0 if a is newer than b, 0 if equal or either
// is unparsable, <0 if a is older. Firmware versions are plain
// dot-separated integers, not the "vMAJOR.MINOR.PATCH" form
// golang.org/x/mod/semver requires, so a direct numeric-component compare
// is used rather than pulling in a semver parser for a format it doesn't
// accept.
func compareFirmwareVersions(a, b string) int {
	as, aok := parseFirmwareVersion(a)
	bs, bok := parseFirmwareVersion(b)
	if !aok || !bok {
		return 0
	}
	for i := 0; i < len(as) || i < len(bs); i++ {
		var av, bv int
		if i < len(as) {
			av = as[i]
		}
		if i < len(bs) {
			bv = bs[i]
		}
		if av != bv {
			return av - bv
		}
	}
	return 0
}

func parseFirmwareVersion(v string) ([]int, bool) {
	parts := strings.Split(v, ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, false
		}
		nums[i] = n
	}
	return nums, true
}

func (h *ESP32Handler) readManifest() (firmwareManifest, error) {
	var manifest firmwareManifest
	path := filepath.Join(h.firmwarePath, "config.json")
	if err := fsutil.ReadJSON(path, &manifest); err != nil {
		if os.IsNotExist(err) {
			return firmwareManifest{}, nil
		}
		return firmwareManifest{}, apperror.Internal("reading firmware manifest: " + err.Error())
	}
	return manifest, nil
}

func (h *ESP32Handler) fail(err error) error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}
	return apperror.Internal(err.Error())
}
