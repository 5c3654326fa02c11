package heating

import (
	"os"
	"path/filepath"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/fsutil"
	"github.com/science/HotTubController-sub005/internal/model"
)

// CycleStore persists one file per HeatingCycle under an exclusive lock
// per cycle, per spec.md §5's shared-resource table.
type CycleStore struct {
	dir string
}

func NewCycleStore(dir string) *CycleStore {
	return &CycleStore{dir: dir}
}

func (s *CycleStore) recordPath(cycleID string) string {
	return filepath.Join(s.dir, cycleID+".json")
}

func (s *CycleStore) lockPath(cycleID string) string {
	return filepath.Join(s.dir, "."+cycleID+".lock")
}

func (s *CycleStore) Create(cycle model.HeatingCycle) error {
	lock, err := fsutil.Acquire(s.lockPath(cycle.CycleID))
	if err != nil {
		return apperror.Internal("acquiring cycle lock: " + err.Error())
	}
	defer lock.Release()

	if err := fsutil.WriteJSON(s.recordPath(cycle.CycleID), cycle); err != nil {
		return apperror.Internal("writing cycle record: " + err.Error())
	}
	return nil
}

func (s *CycleStore) Get(cycleID string) (*model.HeatingCycle, error) {
	var cycle model.HeatingCycle
	if err := fsutil.ReadJSON(s.recordPath(cycleID), &cycle); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Internal("reading cycle record: " + err.Error())
	}
	return &cycle, nil
}

// Mutate loads the cycle under lock, applies fn, and persists the result —
// the single choke point every tick and every cancel goes through, so that
// "at most one heating cycle" and "no stale reschedule" invariants hold.
func (s *CycleStore) Mutate(cycleID string, fn func(*model.HeatingCycle) error) (*model.HeatingCycle, error) {
	lock, err := fsutil.Acquire(s.lockPath(cycleID))
	if err != nil {
		return nil, apperror.Internal("acquiring cycle lock: " + err.Error())
	}
	defer lock.Release()

	var cycle model.HeatingCycle
	if err := fsutil.ReadJSON(s.recordPath(cycleID), &cycle); err != nil {
		if !os.IsNotExist(err) {
			return nil, apperror.Internal("reading cycle record: " + err.Error())
		}
		return nil, apperror.NotFound("no such heating cycle: " + cycleID)
	}

	if err := fn(&cycle); err != nil {
		return nil, err
	}

	if err := fsutil.WriteJSON(s.recordPath(cycle.CycleID), cycle); err != nil {
		return nil, apperror.Internal("writing cycle record: " + err.Error())
	}
	return &cycle, nil
}

// ActiveCycleID returns the id of the one cycle currently in status
// "heating", if any — used by scheduler.Service to reject a conflicting
// heat_on schedule.
func (s *CycleStore) ActiveCycleID() (string, bool, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, apperror.Internal("listing cycle directory: " + err.Error())
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		cycleID := e.Name()[:len(e.Name())-len(".json")]
		cycle, err := s.Get(cycleID)
		if err != nil || cycle == nil {
			continue
		}
		if cycle.Active() {
			return cycleID, true, nil
		}
	}
	return "", false, nil
}

// HasActiveCycle adapts ActiveCycleID to scheduler.ActiveCycleChecker.
func (s *CycleStore) HasActiveCycle() (bool, error) {
	_, active, err := s.ActiveCycleID()
	return active, err
}
