// Package heating is C9: HeatingCycleEngine, the adaptive monitor loop
// advanced by short ticks, each rescheduling its own next wake as a
// monitor_tick job, per spec.md §4.9.
package heating

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/equipment"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/notify"
	"github.com/science/HotTubController-sub005/internal/temperature"
)

// MaxInvalidReads is the per-tick threshold of consecutive rejected
// readings before the cycle is forced into error, per spec.md §4.9 step 2.
const MaxInvalidReads = 3

// Rescheduler is the subset of *scheduler.Service Engine needs to
// reschedule its own monitor_tick wake, narrowed to an interface — the
// same dependency-inversion pattern as coordinator.CycleStarter — so
// Tick's state-machine logic can be driven by tests without a real
// crontab behind it.
type Rescheduler interface {
	ScheduleOneShot(kind model.JobKind, at time.Time, endpoint string, payload map[string]any, owner string) (*model.ScheduledJob, error)
}

// HistoryRecorder is the subset of *history.Store Engine needs to append
// an audit-trail row for a cycle's terminal transitions, per
// SPEC_FULL.md §4.13.
type HistoryRecorder interface {
	RecordCycleTransition(cycleID, fromState, toState string, targetTempC, finalTempC *float64, ticks int, detail string) error
}

// Engine is C9.
type Engine struct {
	store               *CycleStore
	provider            temperature.Provider
	equipment           *equipment.Service
	scheduler           Rescheduler
	notifier            notify.Notifier
	history             HistoryRecorder
	logger              *zap.Logger
	monitorTickEndpoint string
}

func New(store *CycleStore, provider temperature.Provider, equip *equipment.Service, sched Rescheduler, notifier notify.Notifier, monitorTickEndpoint string, logger *zap.Logger, history HistoryRecorder) *Engine {
	return &Engine{
		store:               store,
		provider:            provider,
		equipment:           equip,
		scheduler:           sched,
		notifier:            notifier,
		history:             history,
		monitorTickEndpoint: monitorTickEndpoint,
		logger:              logger,
	}
}

// Start begins a new cycle targeting targetTempC, schedules the first
// monitor_tick one minute out, per spec.md §4.10's enabled branch.
func (e *Engine) Start(ctx context.Context, targetTempC float64) (*model.HeatingCycle, error) {
	if active, has, err := e.store.ActiveCycleID(); err != nil {
		return nil, err
	} else if has {
		return nil, apperror.Conflict("a heating cycle is already active: " + active)
	}

	cycle := model.HeatingCycle{
		CycleID:     uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Status:      model.CycleHeating,
		TargetTempC: targetTempC,
		LastCheck:   time.Now().UTC(),
	}
	if err := e.store.Create(cycle); err != nil {
		return nil, err
	}

	if err := e.scheduleNextTick(cycle.CycleID, time.Minute); err != nil {
		return nil, err
	}

	e.logger.Info("heating cycle started", zap.String("cycle_id", cycle.CycleID), zap.Float64("target_temp_c", targetTempC))
	return &cycle, nil
}

// Cancel sets status to stopped atomically; the next tick to find it will
// observe status != heating and exit without rescheduling, per spec.md §5.
func (e *Engine) Cancel(cycleID string) error {
	var wasHeating bool
	updated, err := e.store.Mutate(cycleID, func(c *model.HeatingCycle) error {
		if c.Status == model.CycleHeating {
			wasHeating = true
			c.Status = model.CycleStopped
		}
		return nil
	})
	if err != nil {
		return err
	}
	if wasHeating {
		e.recordCycleTransition(cycleID, string(model.CycleHeating), string(model.CycleStopped), &updated.TargetTempC, updated.CurrentTempC, updated.SafetyCounter, "cancelled")
	}
	return nil
}

// Tick implements the tick algorithm of spec.md §4.9, steps 1-8.
func (e *Engine) Tick(ctx context.Context, cycleID string, triggerTime time.Time) error {
	cycle, err := e.store.Get(cycleID)
	if err != nil {
		return err
	}
	if cycle == nil {
		return apperror.NotFound("no such heating cycle: " + cycleID)
	}

	// Step 1: no-op if not heating.
	if cycle.Status != model.CycleHeating {
		e.logger.Info("tick no-op: cycle not heating", zap.String("cycle_id", cycleID), zap.String("status", string(cycle.Status)))
		return nil
	}
	// Defensive double-fire protection: a tick for a trigger time already
	// processed is a no-op, per spec.md §5's ordering guarantee.
	if !cycle.LastCheck.Before(triggerTime) {
		e.logger.Info("tick no-op: already processed this trigger", zap.String("cycle_id", cycleID))
		return nil
	}

	// Step 2: acquire a fresh reading. Always read_fresh — in precision
	// mode this is mandatory per spec.md §4.9; outside precision mode it
	// is still correct, since the push provider's read_fresh is identical
	// to its read_cached and the cloud provider's is simply more current.
	reading, err := e.provider.ReadFresh(ctx)
	if err != nil || !reading.Valid(temperature.StaleBound) {
		return e.handleInvalidReading(ctx, cycle, triggerTime)
	}

	currentTempC := *reading.WaterTempC
	_, err = e.store.Mutate(cycleID, func(c *model.HeatingCycle) error {
		c.CurrentTempC = &currentTempC
		c.LastCheck = triggerTime
		c.InvalidReadCounter = 0
		return nil
	})
	if err != nil {
		return err
	}

	// Step 3: buffer-high adjustment.
	targetF := celsiusToFahrenheit(cycle.TargetTempC)
	adjustedTargetC := cycle.TargetTempC
	if targetF > highTargetThresholdF {
		adjustedTargetC += fahrenheitToCelsiusDelta(bufferHighF)
	}

	// Step 4: delta.
	deltaC := adjustedTargetC - currentTempC
	deltaF := celsiusToFahrenheitDelta(deltaC)

	// Step 5: target reached.
	if deltaC <= 0 {
		return e.complete(ctx, cycleID, currentTempC)
	}

	// Step 6: cadence.
	interval, precision := nextInterval(deltaF)

	// Step 7: safety counter.
	updated, err := e.store.Mutate(cycleID, func(c *model.HeatingCycle) error {
		c.SafetyCounter++
		c.PrecisionMode = precision
		return nil
	})
	if err != nil {
		return err
	}
	if updated.SafetyCounter > model.SafetyMaxIterations {
		return e.safetyTimeout(ctx, cycleID)
	}

	// Step 8: reschedule.
	return e.scheduleNextTick(cycleID, interval)
}

func (e *Engine) handleInvalidReading(ctx context.Context, cycle *model.HeatingCycle, triggerTime time.Time) error {
	updated, err := e.store.Mutate(cycle.CycleID, func(c *model.HeatingCycle) error {
		c.InvalidReadCounter++
		c.LastCheck = triggerTime
		return nil
	})
	if err != nil {
		return err
	}
	if updated.InvalidReadCounter > MaxInvalidReads {
		return e.safetyTimeout(ctx, cycle.CycleID)
	}
	// Per spec.md §9 Open Questions: wait one tick rather than retrying
	// immediately, even in precision mode, for deterministic behavior.
	interval := cadencePrecisionTick
	if !cycle.PrecisionMode {
		interval = cadenceNarrowDelay
	}
	e.logger.Warn("rejected temperature reading", zap.String("cycle_id", cycle.CycleID), zap.Int("invalid_read_counter", updated.InvalidReadCounter))
	return e.scheduleNextTick(cycle.CycleID, interval)
}

func (e *Engine) complete(ctx context.Context, cycleID string, finalTempC float64) error {
	// heater_off must succeed before the cycle is marked completed — per
	// spec.md §4.9 step 5's ordering, a failed shutoff must not leave the
	// cycle terminal (and its monitor_tick unscheduled) while the heater
	// is still physically on.
	if _, err := e.equipment.HeaterOff(ctx); err != nil {
		return err
	}
	cycle, err := e.store.Mutate(cycleID, func(c *model.HeatingCycle) error {
		c.Status = model.CycleCompleted
		c.CurrentTempC = &finalTempC
		return nil
	})
	if err != nil {
		return err
	}
	finalTempF := celsiusToFahrenheit(finalTempC)
	e.recordCycleTransition(cycleID, string(model.CycleHeating), string(model.CycleCompleted), &cycle.TargetTempC, &finalTempC, cycle.SafetyCounter, "target reached")
	if err := e.notifier.NotifyCycleComplete(ctx, celsiusToFahrenheit(cycle.TargetTempC), finalTempF); err != nil {
		e.logger.Warn("completion notification failed", zap.Error(err))
	}
	e.logger.Info("heating cycle completed", zap.String("cycle_id", cycleID), zap.Float64("final_temp_f", finalTempF))
	return nil
}

func (e *Engine) safetyTimeout(ctx context.Context, cycleID string) error {
	cycle, err := e.store.Mutate(cycleID, func(c *model.HeatingCycle) error {
		c.Status = model.CycleError
		return nil
	})
	if err != nil {
		return err
	}
	if _, err := e.equipment.HeaterOff(ctx); err != nil {
		e.logger.Error("safety heater_off failed", zap.Error(err))
	}
	e.recordCycleTransition(cycleID, string(model.CycleHeating), string(model.CycleError), &cycle.TargetTempC, cycle.CurrentTempC, cycle.SafetyCounter, "safety limit exceeded")
	reason := fmt.Sprintf("safety limit exceeded for cycle %s", cycleID)
	if err := e.notifier.NotifyCycleError(ctx, reason); err != nil {
		e.logger.Warn("error notification failed", zap.Error(err))
	}
	e.logger.Error("heating cycle forced to error", zap.String("cycle_id", cycleID))
	return apperror.SafetyLimitExceeded(reason)
}

// recordCycleTransition appends an audit-trail row for a cycle leaving
// heating status. Absent a configured recorder (e.g. in narrow unit
// tests), this is a no-op — the audit trail is supplementary, per
// SPEC_FULL.md §4.13, never authoritative.
func (e *Engine) recordCycleTransition(cycleID, fromState, toState string, targetTempC, finalTempC *float64, ticks int, detail string) {
	if e.history == nil {
		return
	}
	if err := e.history.RecordCycleTransition(cycleID, fromState, toState, targetTempC, finalTempC, ticks, detail); err != nil {
		e.logger.Warn("recording cycle history", zap.Error(err))
	}
}

func (e *Engine) scheduleNextTick(cycleID string, interval time.Duration) error {
	at := time.Now().UTC().Add(interval)
	_, err := e.scheduler.ScheduleOneShot(model.JobKindMonitorTick, at, e.monitorTickEndpoint, map[string]any{"cycle_id": cycleID}, "heating-engine")
	return err
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9.0/5.0 + 32
}
