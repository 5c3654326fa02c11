package coordinator

import (
	"os"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/fsutil"
	"github.com/science/HotTubController-sub005/internal/model"
)

// FileSettingsStore is the shared storage/state/heat-target-settings.json
// record, read by the coordinator and the health endpoint and written
// through Set; no HTTP route calls Set.
type FileSettingsStore struct {
	path     string
	lockPath string
}

func NewFileSettingsStore(path, lockPath string) *FileSettingsStore {
	return &FileSettingsStore{path: path, lockPath: lockPath}
}

func (s *FileSettingsStore) Get() (model.HeatTargetSettings, error) {
	var settings model.HeatTargetSettings
	if err := fsutil.ReadJSON(s.path, &settings); err != nil {
		if os.IsNotExist(err) {
			return model.HeatTargetSettings{ScheduleMode: model.ScheduleModeStartAt}, nil
		}
		return model.HeatTargetSettings{}, apperror.Internal("reading heat target settings: " + err.Error())
	}
	return settings, nil
}

func (s *FileSettingsStore) Set(settings model.HeatTargetSettings) error {
	if !settings.TargetInRange() {
		return apperror.ValidationError("target_temp_f out of allowed range")
	}
	lock, err := fsutil.Acquire(s.lockPath)
	if err != nil {
		return apperror.Internal("acquiring settings lock: " + err.Error())
	}
	defer lock.Release()

	if err := fsutil.WriteJSON(s.path, settings); err != nil {
		return apperror.Internal("writing heat target settings: " + err.Error())
	}
	return nil
}
