package heating

import "time"

// Cadence table, delta in Fahrenheit, per spec.md §4.9. The 45-second
// offsets on the slower tiers align ticks to land shortly before the next
// minute boundary; precision mode uses a flat 15s tick.
const (
	cadenceWideDelay     = 19*time.Minute + 45*time.Second // Δ > 10°F
	cadenceMidDelay      = 9*time.Minute + 45*time.Second  // 5°F < Δ ≤ 10°F
	cadenceNarrowDelay   = 1*time.Minute + 45*time.Second  // 1°F < Δ ≤ 5°F
	cadencePrecisionTick = 15 * time.Second                // 0 < Δ ≤ 1°F
)

// nextInterval selects the cadence tier for a positive delta expressed in
// Fahrenheit.
func nextInterval(deltaF float64) (delay time.Duration, precision bool) {
	switch {
	case deltaF > 10:
		return cadenceWideDelay, false
	case deltaF > 5:
		return cadenceMidDelay, false
	case deltaF > 1:
		return cadenceNarrowDelay, false
	default:
		return cadencePrecisionTick, true
	}
}

// High-target buffer constants. spec.md leaves the exact threshold and
// offset as an implementation decision (§9 Open Questions does not cover
// this one explicitly, but the behavior — "damp oscillation near a high
// setpoint" — requires concrete numbers); documented in DESIGN.md.
const (
	highTargetThresholdF = 100.0
	bufferHighF          = -0.5
)

func celsiusToFahrenheitDelta(deltaC float64) float64 {
	return deltaC * 9.0 / 5.0
}

func fahrenheitToCelsiusDelta(deltaF float64) float64 {
	return deltaF * 5.0 / 9.0
}
