// Package coordinator is C10: HeatTargetCoordinator, invoked when a
// heat_on loopback event fires. Consults HeatTargetSettings to decide
// between a bare heater_on and a full supervised HeatingCycleEngine run.
package coordinator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/scheduler"
)

// CycleStarter is the subset of *heating.Engine the coordinator needs —
// an interface so the heating package need not be imported here, avoiding
// a coordinator<->heating import cycle with scheduler in between.
type CycleStarter interface {
	Start(ctx context.Context, targetTempC float64) (*model.HeatingCycle, error)
}

// SettingsStore is the file-backed store for HeatTargetSettings.
type SettingsStore interface {
	Get() (model.HeatTargetSettings, error)
}

// Coordinator implements C10.
type Coordinator struct {
	settings           SettingsStore
	equipment          *equipment.Service
	cycles             CycleStarter
	scheduler          *scheduler.Service
	heatingRateFPerMin float64
	logger             *zap.Logger
}

func New(settings SettingsStore, equip *equipment.Service, cycles CycleStarter, sched *scheduler.Service, heatingRateFPerMin float64, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		settings:           settings,
		equipment:          equip,
		cycles:             cycles,
		scheduler:          sched,
		heatingRateFPerMin: heatingRateFPerMin,
		logger:             logger,
	}
}

// HandleHeatOn implements the heat_on loopback handler per spec.md §4.10.
func (c *Coordinator) HandleHeatOn(ctx context.Context) error {
	settings, err := c.settings.Get()
	if err != nil {
		return err
	}

	if !settings.Enabled {
		_, err := c.equipment.HeaterOn(ctx)
		return err
	}

	if _, err := c.equipment.HeaterOn(ctx); err != nil {
		return err
	}

	targetTempC := fahrenheitToCelsius(settings.TargetTempF)
	if _, err := c.cycles.Start(ctx, targetTempC); err != nil {
		return err
	}

	c.logger.Info("heat_on handled with supervised cycle", zap.Float64("target_temp_f", settings.TargetTempF))
	return nil
}

// ScheduleReadyBy translates "ready by T" into a "start at T -
// estimated_heating_duration" one-shot heat_on job, per spec.md §4.10.
// currentTempF is the best-known current water temperature used to
// estimate the heating duration at construction time.
func (c *Coordinator) ScheduleReadyBy(ctx context.Context, readyBy time.Time, currentTempF, targetTempF float64, endpoint, owner string) (*model.ScheduledJob, error) {
	if targetTempF <= currentTempF {
		return nil, apperror.BadRequest("target temperature must exceed current temperature for ready_by scheduling")
	}
	if c.heatingRateFPerMin <= 0 {
		return nil, apperror.Internal("heating rate constant must be positive")
	}

	deltaF := targetTempF - currentTempF
	estimatedMinutes := deltaF / c.heatingRateFPerMin
	estimatedDuration := time.Duration(estimatedMinutes * float64(time.Minute))

	startAt := readyBy.Add(-estimatedDuration)
	if !startAt.After(time.Now().UTC()) {
		return nil, apperror.BadRequest(fmt.Sprintf("ready_by %s is not achievable: estimated start time %s is in the past", readyBy.Format(time.RFC3339), startAt.Format(time.RFC3339)))
	}

	return c.scheduler.ScheduleOneShot(model.JobKindHeatOn, startAt, endpoint, map[string]any{
		"ready_by":          readyBy.Format(time.RFC3339),
		"estimated_minutes": estimatedMinutes,
	}, owner)
}

func fahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5.0 / 9.0
}
