package model

import "time"

// EquipmentState is the on/off state of a single piece of equipment plus
// the instant it last changed. LastChangedAt updates only on edges.
type EquipmentState struct {
	On            bool      `json:"on"`
	LastChangedAt time.Time `json:"last_changed_at,omitempty"`
}

// EquipmentStatus is the persisted record of heater and pump state. If
// coupling is enabled, Heater.On implies Pump.On.
type EquipmentStatus struct {
	Heater EquipmentState `json:"heater"`
	Pump   EquipmentState `json:"pump"`
}
