// Package scheduler is C6: SchedulerService, which creates and cancels
// entries in both the job-record store and the application-tagged region
// of the host crontab. CronRunner also removes a fired one-shot's entry
// and job record.
package scheduler

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	cronlib "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/cronadapter"
	"github.com/science/HotTubController-sub005/internal/jobstore"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/timeservice"
)

// ActiveCycleChecker reports whether a heating cycle is currently running,
// so schedule_one_shot can reject a heat_on that would race an active one,
// per spec.md §4.6 step 2. Satisfied by the heating package at wiring time.
type ActiveCycleChecker interface {
	HasActiveCycle() (bool, error)
}

const scheduleMargin = 30 // seconds, per spec.md §4.2's round-up-with-margin

// Service implements SchedulerService.
type Service struct {
	jobs       *jobstore.Store
	cron       *cronadapter.Adapter
	time       *timeservice.Service
	cycles     ActiveCycleChecker
	runnerPath string
	logger     *zap.Logger
}

func New(jobs *jobstore.Store, cron *cronadapter.Adapter, ts *timeservice.Service, cycles ActiveCycleChecker, runnerPath string, logger *zap.Logger) *Service {
	return &Service{jobs: jobs, cron: cron, time: ts, cycles: cycles, runnerPath: runnerPath, logger: logger}
}

// ScheduleOneShot implements schedule_one_shot per spec.md §4.6.
func (s *Service) ScheduleOneShot(kind model.JobKind, at time.Time, endpoint string, payload map[string]any, owner string) (*model.ScheduledJob, error) {
	now := s.time.NowUTC()
	earliest := s.time.RoundUpToMinuteWithMargin(now, scheduleMargin)
	if !at.After(earliest) {
		return nil, apperror.BadRequest(fmt.Sprintf("scheduled_time must be strictly after %s", earliest.Format(time.RFC3339)))
	}

	if kind == model.JobKindHeatOn && s.cycles != nil {
		active, err := s.cycles.HasActiveCycle()
		if err != nil {
			return nil, apperror.Internal("checking active heating cycle: " + err.Error())
		}
		if active {
			return nil, apperror.Conflict("a heating cycle is already active")
		}
	}

	job := model.ScheduledJob{
		JobID:         uuid.NewString(),
		Kind:          kind,
		ScheduledTime: at,
		Recurring:     false,
		Endpoint:      endpoint,
		CreatedAt:     now,
		Owner:         owner,
		Payload:       payload,
	}

	if err := s.jobs.Create(job); err != nil {
		return nil, err
	}

	fields := s.time.CronFields(at)
	entry := cronadapter.Entry{
		Minute:  fields.Minute,
		Hour:    fields.Hour,
		DOM:     fields.DOM,
		Month:   fields.Month,
		Command: fmt.Sprintf("%s %s", s.runnerPath, job.JobID),
		Tag:     job.CommentTag(),
	}
	if err := s.cron.Add(entry); err != nil {
		_ = s.jobs.Delete(job.JobID)
		return nil, err
	}

	s.logger.Info("scheduled one-shot job",
		zap.String("job_id", job.JobID),
		zap.String("kind", string(kind)),
		zap.Time("scheduled_time", at),
	)
	return &job, nil
}

// ScheduleDaily implements schedule_daily: a recurring job at localHHMM in
// the given timezone, materialised as "<m> <h> * * *" in system time.
func (s *Service) ScheduleDaily(kind model.JobKind, localHour, localMinute int, tzName, endpoint string, payload map[string]any, owner string) (*model.ScheduledJob, error) {
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, apperror.BadRequest("unknown timezone: " + tzName)
	}
	now := time.Now().In(loc)
	localInstant := time.Date(now.Year(), now.Month(), now.Day(), localHour, localMinute, 0, 0, loc)
	systemInstant := s.time.ToUTC(localInstant)
	fields := s.time.CronFields(systemInstant)

	cronExpr := fmt.Sprintf("%s %s * * *", fields.Minute, fields.Hour)
	if _, err := cronlib.ParseStandard(cronExpr); err != nil {
		return nil, apperror.Internal("computed invalid cron expression: " + err.Error())
	}

	job := model.ScheduledJob{
		JobID:          uuid.NewString(),
		Kind:           kind,
		ScheduledTime:  systemInstant,
		Recurring:      true,
		CronExpression: cronExpr,
		Endpoint:       endpoint,
		CreatedAt:      s.time.NowUTC(),
		Owner:          owner,
		Payload:        payload,
	}

	if err := s.jobs.Create(job); err != nil {
		return nil, err
	}

	entry := cronadapter.Entry{
		Minute:  fields.Minute,
		Hour:    fields.Hour,
		DOM:     "*",
		Month:   "*",
		Command: fmt.Sprintf("%s %s", s.runnerPath, job.JobID),
		Tag:     job.CommentTag(),
	}
	if err := s.cron.Add(entry); err != nil {
		_ = s.jobs.Delete(job.JobID)
		return nil, err
	}

	s.logger.Info("scheduled daily job",
		zap.String("job_id", job.JobID),
		zap.String("cron_expression", cronExpr),
	)
	return &job, nil
}

// List enumerates persisted job records, repairing divergence from the
// cron table per spec.md §4.6: a job record with no matching cron entry is
// an orphan and is cancelled; reported entries are the intersection.
func (s *Service) List() ([]model.ScheduledJob, error) {
	jobs, err := s.jobs.List()
	if err != nil {
		return nil, err
	}
	entries, err := s.cron.List()
	if err != nil {
		return nil, err
	}
	tagged := make(map[string]bool, len(entries))
	for _, e := range entries {
		tagged[e.Tag] = true
	}

	var out []model.ScheduledJob
	for _, job := range jobs {
		if tagged[job.CommentTag()] {
			out = append(out, job)
			continue
		}
		s.logger.Warn("repairing orphan job record with no cron entry", zap.String("job_id", job.JobID))
		_ = s.jobs.Delete(job.JobID)
	}
	return out, nil
}

// Cancel implements cancel(job_id): idempotent removal of both the cron
// entry and the job file, regardless of which side has already cleared.
func (s *Service) Cancel(jobID string) error {
	if err := s.cron.RemoveMatching("HOTTUB:" + jobID); err != nil {
		return err
	}
	return s.jobs.Delete(jobID)
}

// GetCronExpression is the utility operation for callers that need the
// expression without scheduling, per spec.md §4.6.
func (s *Service) GetCronExpression(instant time.Time, useUTC bool) string {
	var fields timeservice.CronFields
	if useUTC {
		u := instant.UTC()
		fields = timeservice.CronFields{
			Minute: fmt.Sprintf("%d", u.Minute()),
			Hour:   fmt.Sprintf("%d", u.Hour()),
			DOM:    fmt.Sprintf("%d", u.Day()),
			Month:  fmt.Sprintf("%d", int(u.Month())),
		}
	} else {
		fields = s.time.CronFields(instant)
	}
	return fmt.Sprintf("%s %s %s %s *", fields.Minute, fields.Hour, fields.DOM, fields.Month)
}
