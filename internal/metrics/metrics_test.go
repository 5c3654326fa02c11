package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInitRegistersAllInstruments(t *testing.T) {
	Init()

	assert.NotNil(t, WebhookDispatchTotal)
	assert.NotNil(t, WebhookDispatchSeconds)
	assert.NotNil(t, SensorReadTotal)
	assert.NotNil(t, SensorReadRejected)
	assert.NotNil(t, CycleTicksTotal)
	assert.NotNil(t, CycleCompletionsTotal)
	assert.NotNil(t, CycleDurationSeconds)
	assert.NotNil(t, CronMutationsTotal)
	assert.NotNil(t, HTTPRequestsTotal)
	assert.NotNil(t, HTTPRequestDuration)
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init() // must not panic on double registration
	assert.NotNil(t, WebhookDispatchTotal)
}

func TestCounterVecAcceptsLabelledObservations(t *testing.T) {
	Init()

	WebhookDispatchTotal.WithLabelValues("heater-on", "success").Inc()
	SensorReadTotal.WithLabelValues("cloud_cached", "accepted").Inc()
	CycleTicksTotal.Inc()
}
