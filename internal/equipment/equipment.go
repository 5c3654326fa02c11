// Package equipment is C8: EquipmentService, the at-most-one-in-flight
// heater/pump state machine that serialises webhook dispatch with
// equipment-status persistence under a single lock.
package equipment

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/science/HotTubController-sub005/internal/apperror"
	"github.com/science/HotTubController-sub005/internal/equipmentstore"
	"github.com/science/HotTubController-sub005/internal/model"
	"github.com/science/HotTubController-sub005/internal/webhook"
)

// Event names dispatched to the webhook gateway, per spec.md §6.
const (
	EventHeaterOn  = "heater-on"
	EventHeaterOff = "heater-off"
	EventPumpOn    = "pump-on"
	EventPumpOff   = "pump-off"
)

// Action is what heater_on/off/pump_run report back to callers.
type Action struct {
	Heater    *bool
	Pump      *bool
	Timestamp time.Time
}

// HistoryRecorder is the subset of *history.Store Service needs to append
// an audit-trail row for a heater/pump edge, per SPEC_FULL.md §4.13.
type HistoryRecorder interface {
	RecordEquipmentTransition(equipmentName, fromState, toState string) error
}

// Service implements heater_on, heater_off, pump_run.
type Service struct {
	mu       sync.Mutex
	store    *equipmentstore.Store
	webhooks webhook.Client
	logger   *zap.Logger
	coupled  bool // heater_on implies pump_on when true, per spec.md §4.8
	history  HistoryRecorder
}

func New(store *equipmentstore.Store, webhooks webhook.Client, logger *zap.Logger, coupled bool, history HistoryRecorder) *Service {
	return &Service{store: store, webhooks: webhooks, logger: logger, coupled: coupled, history: history}
}

// recordEquipmentTransition appends an audit-trail row for a heater/pump
// edge. Absent a configured recorder, this is a no-op — the audit trail is
// supplementary, per SPEC_FULL.md §4.13, never authoritative.
func (s *Service) recordEquipmentTransition(equipmentName, fromState, toState string) {
	if s.history == nil {
		return
	}
	if err := s.history.RecordEquipmentTransition(equipmentName, fromState, toState); err != nil {
		s.logger.Warn("recording equipment history", zap.Error(err))
	}
}

// HeaterOn turns the heater on, and the pump with it when coupling is
// enabled and the pump is not already on — pump first, heater second.
func (s *Service) HeaterOn(ctx context.Context) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.store.Get()
	if err != nil {
		return Action{}, err
	}

	now := time.Now().UTC()
	if s.coupled && !status.Pump.On {
		if err := s.webhooks.Trigger(ctx, EventPumpOn); err != nil {
			return Action{}, apperror.WebhookFailed(err)
		}
		if _, err := s.store.SetPump(true, now); err != nil {
			return Action{}, err
		}
		s.recordEquipmentTransition("pump", "off", "on")
	}

	if err := s.webhooks.Trigger(ctx, EventHeaterOn); err != nil {
		return Action{}, apperror.WebhookFailed(err)
	}
	newStatus, err := s.store.SetHeater(true, now)
	if err != nil {
		return Action{}, err
	}
	if !status.Heater.On {
		s.recordEquipmentTransition("heater", "off", "on")
	}

	s.logger.Info("heater turned on", zap.Time("at", now))
	h, p := newStatus.Heater.On, newStatus.Pump.On
	return Action{Heater: &h, Pump: &p, Timestamp: now}, nil
}

// HeaterOff turns the heater off, and the pump with it per the coupling
// policy: heater_off implies pump_off.
func (s *Service) HeaterOff(ctx context.Context) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.store.Get()
	if err != nil {
		return Action{}, err
	}

	now := time.Now().UTC()

	if s.coupled && status.Pump.On {
		if err := s.webhooks.Trigger(ctx, EventPumpOff); err != nil {
			return Action{}, apperror.WebhookFailed(err)
		}
		if _, err := s.store.SetPump(false, now); err != nil {
			return Action{}, err
		}
		s.recordEquipmentTransition("pump", "on", "off")
	}

	if err := s.webhooks.Trigger(ctx, EventHeaterOff); err != nil {
		return Action{}, apperror.WebhookFailed(err)
	}
	newStatus, err := s.store.SetHeater(false, now)
	if err != nil {
		return Action{}, err
	}
	if status.Heater.On {
		s.recordEquipmentTransition("heater", "on", "off")
	}

	s.logger.Info("heater turned off", zap.Time("at", now))
	h, p := newStatus.Heater.On, newStatus.Pump.On
	return Action{Heater: &h, Pump: &p, Timestamp: now}, nil
}

// PumpRun starts the pump alone for its configured timed window; the
// window itself is handled upstream by the webhook recipe, per spec.md
// §4.8 — this call only fires the event and marks the pump on.
func (s *Service) PumpRun(ctx context.Context) (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := s.store.Get()
	if err != nil {
		return Action{}, err
	}

	now := time.Now().UTC()
	if err := s.webhooks.Trigger(ctx, EventPumpOn); err != nil {
		return Action{}, apperror.WebhookFailed(err)
	}
	newStatus, err := s.store.SetPump(true, now)
	if err != nil {
		return Action{}, err
	}
	if !status.Pump.On {
		s.recordEquipmentTransition("pump", "off", "on")
	}

	s.logger.Info("pump run started", zap.Time("at", now))
	p := newStatus.Pump.On
	return Action{Pump: &p, Timestamp: now}, nil
}

// Status returns the current equipment status without mutating it.
func (s *Service) Status() (model.EquipmentStatus, error) {
	return s.store.Get()
}
