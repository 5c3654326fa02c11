// Package temperature is C5: the unified read interface over the two
// sensor sources spec.md §4.5 describes, cloud-polled and
// microcontroller-push, each behind read_cached/read_fresh.
package temperature

import (
	"context"
	"time"

	"github.com/science/HotTubController-sub005/internal/model"
)

// Provider is the capability set both sensor sources implement.
type Provider interface {
	ReadCached(ctx context.Context) (*model.TemperatureReading, error)
	ReadFresh(ctx context.Context) (*model.TemperatureReading, error)
}

// StaleBound is how old a reading may be (measured SourceTimestamp to
// ReceivedAt) before it is rejected, per spec.md §4.5.
const StaleBound = 10 * time.Minute
