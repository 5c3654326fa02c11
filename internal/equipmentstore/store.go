// Package equipmentstore is C3: the single JSON-shaped record file holding
// last-known heater/pump state, mutated under an exclusive lock with
// atomic replace per spec.md §4.3.
package equipmentstore

import (
	"os"
	"time"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/fsutil"
	"github.com/science/HotTubController-sub005/internal/model"
)

// Store owns storage/state/equipment-status.json.
type Store struct {
	path     string
	lockPath string
}

func New(path, lockPath string) *Store {
	return &Store{path: path, lockPath: lockPath}
}

// Get returns the current status. A not-yet-created file reads as both
// pieces of equipment off, never having changed.
func (s *Store) Get() (model.EquipmentStatus, error) {
	var status model.EquipmentStatus
	err := fsutil.ReadJSON(s.path, &status)
	if err != nil {
		if os.IsNotExist(err) {
			return model.EquipmentStatus{}, nil
		}
		return model.EquipmentStatus{}, apperror.Internal("reading equipment status: " + err.Error())
	}
	return status, nil
}

// SetHeater updates the heater sub-record, touching LastChangedAt only if
// on differs from the stored value.
func (s *Store) SetHeater(on bool, at time.Time) (model.EquipmentStatus, error) {
	return s.mutate(func(st *model.EquipmentStatus) {
		if st.Heater.On != on {
			st.Heater.LastChangedAt = at
		}
		st.Heater.On = on
	})
}

// SetPump updates the pump sub-record under the same rule.
func (s *Store) SetPump(on bool, at time.Time) (model.EquipmentStatus, error) {
	return s.mutate(func(st *model.EquipmentStatus) {
		if st.Pump.On != on {
			st.Pump.LastChangedAt = at
		}
		st.Pump.On = on
	})
}

func (s *Store) mutate(fn func(*model.EquipmentStatus)) (model.EquipmentStatus, error) {
	lock, err := fsutil.Acquire(s.lockPath)
	if err != nil {
		return model.EquipmentStatus{}, apperror.Internal("acquiring equipment status lock: " + err.Error())
	}
	defer lock.Release()

	var status model.EquipmentStatus
	if err := fsutil.ReadJSON(s.path, &status); err != nil && !os.IsNotExist(err) {
		return model.EquipmentStatus{}, apperror.Internal("reading equipment status: " + err.Error())
	}

	fn(&status)

	if err := fsutil.WriteJSON(s.path, status); err != nil {
		return model.EquipmentStatus{}, apperror.Internal("writing equipment status: " + err.Error())
	}
	return status, nil
}
