package temperature

import (
	"context"
	"os"
	"time"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/fsutil"
	"github.com/science/HotTubController-sub005/internal/model"
)

// PushCadenceHeaterOnSeconds and PushCadenceHeaterOffSeconds are the next-interval
// hints spec.md §4.5/§8 requires the microcontroller push response to
// carry, so the device can self-pace.
const (
	PushCadenceHeaterOnSeconds  = 60
	PushCadenceHeaterOffSeconds = 300
)

// FirmwareDescriptor is returned alongside a push response when the
// server holds a newer firmware build than the device reports.
type FirmwareDescriptor struct {
	Version string `json:"firmware_version"`
	URL     string `json:"firmware_url"`
}

// PushProvider stores the ESP32's latest self-reported reading in a
// small on-disk record, per spec.md §4.5's microcontroller-push variant.
// The device drives the cadence; ReadFresh is identical to ReadCached.
type PushProvider struct {
	path string
}

func NewPushProvider(path string) *PushProvider {
	return &PushProvider{path: path}
}

func (p *PushProvider) ReadCached(_ context.Context) (*model.TemperatureReading, error) {
	var reading model.TemperatureReading
	if err := fsutil.ReadJSON(p.path, &reading); err != nil {
		if os.IsNotExist(err) {
			return &model.TemperatureReading{}, nil
		}
		return nil, apperror.Internal("reading push cache: " + err.Error())
	}
	return &reading, nil
}

// ReadFresh is identical to ReadCached: the device, not the server,
// decides when a new sample exists.
func (p *PushProvider) ReadFresh(ctx context.Context) (*model.TemperatureReading, error) {
	return p.ReadCached(ctx)
}

// Record persists a reading pushed by the device. Single-writer,
// many-readers, atomic replace per spec.md §5's shared-resource table.
func (p *PushProvider) Record(reading model.TemperatureReading) error {
	if reading.ReceivedAt.IsZero() {
		reading.ReceivedAt = time.Now().UTC()
	}
	reading.SourceTag = model.SourceMicrocontroller
	if err := fsutil.WriteJSON(p.path, reading); err != nil {
		return apperror.Internal("writing push cache: " + err.Error())
	}
	return nil
}

// NextIntervalSeconds selects the device's self-pacing cadence.
func NextIntervalSeconds(heaterOn bool) int {
	if heaterOn {
		return PushCadenceHeaterOnSeconds
	}
	return PushCadenceHeaterOffSeconds
}
