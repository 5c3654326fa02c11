// Package history is C11, the supplementary non-authoritative audit
// trail introduced alongside the core's file-based stores: a queryable
// log of cycle and equipment transitions, backed by GORM over a pure-Go
// sqlite driver so it never depends on cgo. Grounded on the teacher's
// GORM repository pattern (features/weather/repository), adapted from a
// MySQL-backed primary store to a derived, secondary one.
package history

import (
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// CycleHistoryRecord is the persisted row for one cycle or equipment
// transition, per SPEC_FULL.md §3.1.
type CycleHistoryRecord struct {
	ID           uint `gorm:"primaryKey"`
	Kind         string `gorm:"index"` // "cycle" | "equipment"
	OccurredAt   time.Time `gorm:"index"`
	CycleID      string `gorm:"index"`
	Equipment    string
	FromState    string
	ToState      string
	TargetTempC  *float64
	FinalTempC   *float64
	Ticks        int
	Detail       string
}

func (CycleHistoryRecord) TableName() string {
	return "cycle_history_records"
}

// Store wraps the sqlite-backed GORM connection.
type Store struct {
	db *gorm.DB
}

// New opens (creating if absent) the sqlite file at path and migrates the
// schema.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&CycleHistoryRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// RecordCycleTransition appends one row for a HeatingCycle status change.
func (s *Store) RecordCycleTransition(cycleID, fromState, toState string, targetTempC, finalTempC *float64, ticks int, detail string) error {
	return s.db.Create(&CycleHistoryRecord{
		Kind:        "cycle",
		OccurredAt:  time.Now().UTC(),
		CycleID:     cycleID,
		FromState:   fromState,
		ToState:     toState,
		TargetTempC: targetTempC,
		FinalTempC:  finalTempC,
		Ticks:       ticks,
		Detail:      detail,
	}).Error
}

// RecordEquipmentTransition appends one row for a heater/pump edge.
func (s *Store) RecordEquipmentTransition(equipmentName, fromState, toState string) error {
	return s.db.Create(&CycleHistoryRecord{
		Kind:      "equipment",
		OccurredAt: time.Now().UTC(),
		Equipment: equipmentName,
		FromState: fromState,
		ToState:   toState,
	}).Error
}

// Recent returns the most recent limit records, newest first, for the
// supplementary GET /api/history endpoint.
func (s *Store) Recent(limit int) ([]CycleHistoryRecord, error) {
	var records []CycleHistoryRecord
	err := s.db.Order("occurred_at DESC").Limit(limit).Find(&records).Error
	return records, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
