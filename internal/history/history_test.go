package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordCycleTransitionAndRecent(t *testing.T) {
	s := newTestStore(t)
	target := 38.5
	final := 38.6

	require.NoError(t, s.RecordCycleTransition("cycle-1", "heating", "completed", &target, &final, 12, "reached target"))

	records, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "cycle", records[0].Kind)
	assert.Equal(t, "cycle-1", records[0].CycleID)
	assert.Equal(t, "heating", records[0].FromState)
	assert.Equal(t, "completed", records[0].ToState)
	require.NotNil(t, records[0].TargetTempC)
	assert.InDelta(t, target, *records[0].TargetTempC, 0.001)
}

func TestRecordEquipmentTransition(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordEquipmentTransition("heater", "off", "on"))

	records, err := s.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "equipment", records[0].Kind)
	assert.Equal(t, "heater", records[0].Equipment)
}

func TestRecentOrdersNewestFirstAndRespectsLimit(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.RecordEquipmentTransition("pump", "off", "on"))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.RecordEquipmentTransition("pump", "on", "off"))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.RecordEquipmentTransition("heater", "off", "on"))

	records, err := s.Recent(2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "heater", records[0].Equipment)
	assert.Equal(t, "pump", records[1].Equipment)
}

func TestRecentOnEmptyStoreReturnsNoRecords(t *testing.T) {
	s := newTestStore(t)

	records, err := s.Recent(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
