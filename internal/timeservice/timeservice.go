// Package timeservice is C2: system timezone discovery and the one place
// permitted to format cron fields, per spec.md §9's note that cron-field
// formatting must not be scattered across callers.
package timeservice

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Service discovers the host's timezone once at construction and offers
// wall-clock <-> UTC conversions against it.
type Service struct {
	loc *time.Location
}

// New discovers the system timezone the way the host resolves it: from
// /etc/localtime via time.LoadLocation("Local"), falling back to UTC if
// the host has no zoneinfo database mounted (minimal containers).
func New() (*Service, error) {
	loc, err := discoverLocation()
	if err != nil {
		return nil, fmt.Errorf("discovering system timezone: %w", err)
	}
	return &Service{loc: loc}, nil
}

func discoverLocation() (*time.Location, error) {
	if tz := os.Getenv("TZ"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc, nil
		}
	}
	loc, err := time.LoadLocation("Local")
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

// Location reports the discovered system timezone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// NowUTC returns the current instant in UTC.
func (s *Service) NowUTC() time.Time {
	return time.Now().UTC()
}

// ToLocal converts instant to the system timezone.
func (s *Service) ToLocal(instant time.Time) time.Time {
	return instant.In(s.loc)
}

// ToUTC converts a local-wall-clock instant to UTC.
func (s *Service) ToUTC(local time.Time) time.Time {
	return local.In(s.loc).UTC()
}

// CronFields formats instant (first converted to local time) as the four
// fields a crontab entry needs, without leading zeros, per spec.md §6's
// cron entry format.
type CronFields struct {
	Minute string
	Hour   string
	DOM    string
	Month  string
}

func (s *Service) CronFields(instant time.Time) CronFields {
	local := s.ToLocal(instant)
	return CronFields{
		Minute: strconv.Itoa(local.Minute()),
		Hour:   strconv.Itoa(local.Hour()),
		DOM:    strconv.Itoa(local.Day()),
		Month:  strconv.Itoa(int(local.Month())),
	}
}

// RoundUpToMinuteWithMargin returns the next minute boundary that is at
// least marginSeconds away from instant, so a cron entry written for that
// minute cannot be missed by a runner already mid-fire for the current one.
func (s *Service) RoundUpToMinuteWithMargin(instant time.Time, marginSeconds int) time.Time {
	next := instant.Truncate(time.Minute).Add(time.Minute)
	margin := time.Duration(marginSeconds) * time.Second
	for next.Sub(instant) < margin {
		next = next.Add(time.Minute)
	}
	return next
}
