package model

import "time"

// SourceTag identifies which acquisition path produced a TemperatureReading.
type SourceTag string

const (
	SourceCloudCached      SourceTag = "cloud_cached"
	SourceCloudFresh       SourceTag = "cloud_fresh"
	SourceMicrocontroller  SourceTag = "microcontroller_push"
)

// Plausible water temperature range, in Celsius, per spec.md §3.
const (
	MinWaterTempC = -10.0
	MaxWaterTempC = 60.0
)

// TemperatureReading is a single sample from either the cloud-polled sensor
// or the ESP32 push source. WaterTempC and AmbientTempC are pointers so a
// sensor failure (nil) is distinguishable from a reported zero.
type TemperatureReading struct {
	WaterTempC     *float64  `json:"water_temp_c"`
	AmbientTempC   *float64  `json:"ambient_temp_c,omitempty"`
	BatteryVoltage *float64  `json:"battery_voltage,omitempty"`
	SignalDBM      *int      `json:"signal_dbm,omitempty"`
	SourceTimestamp time.Time `json:"source_timestamp"`
	ReceivedAt     time.Time `json:"received_at"`
	SourceTag      SourceTag `json:"source_tag"`
}

// Valid reports whether the reading is within the plausible range and not
// stale beyond staleBound. A reading with no water temperature is never
// valid.
func (r *TemperatureReading) Valid(staleBound time.Duration) bool {
	if r == nil || r.WaterTempC == nil {
		return false
	}
	v := *r.WaterTempC
	if v < MinWaterTempC || v > MaxWaterTempC {
		return false
	}
	if r.ReceivedAt.Sub(r.SourceTimestamp) > staleBound {
		return false
	}
	return true
}
