package timeservice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUTCService(t *testing.T) *Service {
	t.Helper()
	loc, err := time.LoadLocation("UTC")
	require.NoError(t, err)
	return &Service{loc: loc}
}

func TestCronFieldsFormatsWithoutLeadingZeros(t *testing.T) {
	s := newUTCService(t)
	instant := time.Date(2026, 3, 5, 6, 9, 0, 0, time.UTC)

	fields := s.CronFields(instant)
	assert.Equal(t, "9", fields.Minute)
	assert.Equal(t, "6", fields.Hour)
	assert.Equal(t, "5", fields.DOM)
	assert.Equal(t, "3", fields.Month)
}

func TestToUTCAndToLocalRoundTrip(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("America/New_York zoneinfo not available in this environment")
	}
	s := &Service{loc: loc}

	local := time.Date(2026, 6, 1, 9, 30, 0, 0, loc)
	utc := s.ToUTC(local)
	assert.Equal(t, time.UTC, utc.Location())

	back := s.ToLocal(utc)
	assert.True(t, local.Equal(back))
}

func TestRoundUpToMinuteWithMarginAdvancesPastBoundaryTooClose(t *testing.T) {
	s := newUTCService(t)
	instant := time.Date(2026, 3, 5, 6, 9, 45, 0, time.UTC)

	next := s.RoundUpToMinuteWithMargin(instant, 30)
	// 6:10:00 is only 15s away, inside the 30s margin, so it must roll to 6:11:00.
	assert.Equal(t, time.Date(2026, 3, 5, 6, 11, 0, 0, time.UTC), next)
}

func TestRoundUpToMinuteWithMarginAcceptsSufficientGap(t *testing.T) {
	s := newUTCService(t)
	instant := time.Date(2026, 3, 5, 6, 9, 0, 0, time.UTC)

	next := s.RoundUpToMinuteWithMargin(instant, 30)
	assert.Equal(t, time.Date(2026, 3, 5, 6, 10, 0, 0, time.UTC), next)
}

func TestDiscoverLocationHonorsTZEnv(t *testing.T) {
	t.Setenv("TZ", "UTC")
	loc, err := discoverLocation()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}
