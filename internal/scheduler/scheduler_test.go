package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/science/HotTubController-sub005/internal/timeservice"
)

func newTestScheduler(t *testing.T) *Service {
	t.Helper()
	ts, err := timeservice.New()
	require.NoError(t, err)
	return &Service{time: ts}
}

func TestGetCronExpressionUTC(t *testing.T) {
	s := newTestScheduler(t)
	instant := time.Date(2026, 3, 5, 6, 9, 0, 0, time.UTC)

	expr := s.GetCronExpression(instant, true)
	assert.Equal(t, "9 6 5 3 *", expr)
}

func TestGetCronExpressionLocalMatchesCronFields(t *testing.T) {
	s := newTestScheduler(t)
	instant := time.Date(2026, 3, 5, 6, 9, 0, 0, time.UTC)

	expr := s.GetCronExpression(instant, false)
	fields := s.time.CronFields(instant)
	assert.Equal(t, fields.Minute+" "+fields.Hour+" "+fields.DOM+" "+fields.Month+" *", expr)
}
