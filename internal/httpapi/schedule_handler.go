package httpapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/coordinator"
	"github.com/science/HotTubController-sub005/internal/heating"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/scheduler"
	"github.com/science/HotTubController-sub005/internal/webmiddleware"
	"github.com/science/HotTubController-sub005/internal/webresponse"
)

// endpointFor maps a job kind to the loopback or equipment path CronRunner
// invokes when the job fires, per spec.md §6/§4.10.
func endpointFor(kind model.JobKind) string {
	switch kind {
	case model.JobKindHeatOn:
		return "/api/internal/heat-on"
	case model.JobKindHeatOff:
		return "/api/equipment/heater/off"
	case model.JobKindPumpRun:
		return "/api/equipment/pump/run"
	case model.JobKindMonitorTick:
		return "/api/internal/monitor-tick"
	default:
		return ""
	}
}

// ScheduleHandler serves /api/schedule and the two internal loopback
// targets SchedulerService materialises into the host crontab.
type ScheduleHandler struct {
	scheduler   *scheduler.Service
	coordinator *coordinator.Coordinator
	engine      *heating.Engine
	logger      *zap.Logger
}

func jobBody(job *model.ScheduledJob) map[string]any {
	out := map[string]any{
		"job_id":         job.JobID,
		"kind":           job.Kind,
		"scheduled_time": job.ScheduledTime.Format(time.RFC3339),
		"recurring":      job.Recurring,
		"owner":          job.Owner,
	}
	if job.CronExpression != "" {
		out["cron_expression"] = job.CronExpression
	}
	return out
}

// Create implements POST /api/schedule per spec.md §6. recurring=false
// creates a one-shot at the given absolute instant; recurring=true treats
// the local clock time of day in scheduledTime/timezone as a daily job.
func (h *ScheduleHandler) Create(c echo.Context) error {
	var req ReqCreateSchedule
	if err := c.Bind(&req); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return apperror.ValidationError(err.Error())
	}

	kind := model.JobKind(req.Action)
	if !kind.Valid() {
		return apperror.BadRequest("unknown schedule action: " + req.Action)
	}
	endpoint := endpointFor(kind)
	if endpoint == "" {
		return apperror.BadRequest("action cannot be scheduled directly: " + req.Action)
	}

	owner := "user"
	if actor := webmiddleware.Actor(c); actor != nil {
		owner = actor.Actor
	}

	at, err := time.Parse(time.RFC3339, req.ScheduledTime)
	if err != nil {
		return apperror.BadRequest("scheduledTime must be RFC3339")
	}

	var job *model.ScheduledJob
	if req.Recurring {
		tz := req.Timezone
		if tz == "" {
			tz = "UTC"
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return apperror.BadRequest("unknown timezone: " + tz)
		}
		local := at.In(loc)
		job, err = h.scheduler.ScheduleDaily(kind, local.Hour(), local.Minute(), tz, endpoint, nil, owner)
		if err != nil {
			return h.fail(err)
		}
	} else {
		job, err = h.scheduler.ScheduleOneShot(kind, at.UTC(), endpoint, nil, owner)
		if err != nil {
			return h.fail(err)
		}
	}

	return webresponse.Created(c, jobBody(job))
}

// List implements GET /api/schedule.
func (h *ScheduleHandler) List(c echo.Context) error {
	jobs, err := h.scheduler.List()
	if err != nil {
		return h.fail(err)
	}
	out := make([]map[string]any, 0, len(jobs))
	for i := range jobs {
		out = append(out, jobBody(&jobs[i]))
	}
	return webresponse.OK(c, map[string]any{"jobs": out})
}

// Cancel implements DELETE /api/schedule/{id}.
func (h *ScheduleHandler) Cancel(c echo.Context) error {
	id := c.Param("id")
	if err := h.scheduler.Cancel(id); err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, map[string]any{"job_id": id})
}

// HandleHeatOn is the loopback target CronRunner invokes for a fired
// heat_on job, delegating to HeatTargetCoordinator per spec.md §4.10.
func (h *ScheduleHandler) HandleHeatOn(c echo.Context) error {
	if err := h.coordinator.HandleHeatOn(c.Request().Context()); err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, nil)
}

// HandleMonitorTick is the loopback target for a fired monitor_tick job.
// The payload names which cycle to advance.
func (h *ScheduleHandler) HandleMonitorTick(c echo.Context) error {
	var body struct {
		CycleID string `json:"cycle_id" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return apperror.BadRequest("invalid request body")
	}
	if err := c.Validate(&body); err != nil {
		return apperror.ValidationError(err.Error())
	}
	if err := h.engine.Tick(c.Request().Context(), body.CycleID, time.Now().UTC()); err != nil {
		return h.fail(err)
	}
	return webresponse.OK(c, nil)
}

func (h *ScheduleHandler) fail(err error) error {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}
	return apperror.Internal(err.Error())
}
