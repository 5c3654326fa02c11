// Package jobstore is the job-record half of C6: one JSON file per
// pending ScheduledJob under storage/scheduled-jobs/, created and deleted
// by SchedulerService, deleted also by CronRunner for fired one-shots.
package jobstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/fsutil"
	"github.com/science/HotTubController-sub005/internal/model"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) pathFor(jobID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("job-%s.json", jobID))
}

// Create persists job, failing with Conflict if one with the same id
// already exists — job_id collisions must never silently overwrite.
func (s *Store) Create(job model.ScheduledJob) error {
	path := s.pathFor(job.JobID)
	if _, err := os.Stat(path); err == nil {
		return apperror.Conflict("job already exists: " + job.JobID)
	}
	if err := fsutil.WriteJSON(path, job); err != nil {
		return apperror.Internal("writing job record: " + err.Error())
	}
	return nil
}

// Get reads one job record. Returns (nil, nil) if absent — directory scans
// and lifecycle races must tolerate ENOENT per spec.md §5.
func (s *Store) Get(jobID string) (*model.ScheduledJob, error) {
	var job model.ScheduledJob
	if err := fsutil.ReadJSON(s.pathFor(jobID), &job); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Internal("reading job record: " + err.Error())
	}
	return &job, nil
}

// Delete removes the job file. Absence is not an error — cancellation
// must be idempotent whether or not the runner already deleted it.
func (s *Store) Delete(jobID string) error {
	err := os.Remove(s.pathFor(jobID))
	if err != nil && !os.IsNotExist(err) {
		return apperror.Internal("deleting job record: " + err.Error())
	}
	return nil
}

// List enumerates every persisted job record, tolerating a concurrent
// create/delete racing the directory scan.
func (s *Store) List() ([]model.ScheduledJob, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Internal("listing job directory: " + err.Error())
	}

	var jobs []model.ScheduledJob
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		jobID := strings.TrimSuffix(strings.TrimPrefix(e.Name(), "job-"), ".json")
		job, err := s.Get(jobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			continue // removed between ReadDir and Get
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}
