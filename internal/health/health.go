// Package health is the /api/health support: a sliding-window error
// counter plus a component health snapshot, grounded on the teacher's
// pkg/health.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrorCounter tracks recent errors in a sliding window, for the
// aggregate error rate an operator would want surfaced alongside status.
type ErrorCounter struct {
	mu      sync.RWMutex
	errors  []time.Time
	window  time.Duration
	maxRate int
}

func NewErrorCounter(window time.Duration, maxRate int) *ErrorCounter {
	return &ErrorCounter{window: window, maxRate: maxRate}
}

func (ec *ErrorCounter) Add() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	now := time.Now()
	ec.errors = append(ec.errors, now)
	ec.cleanup(now)
}

func (ec *ErrorCounter) Count() int {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	ec.cleanup(time.Now())
	return len(ec.errors)
}

func (ec *ErrorCounter) cleanup(now time.Time) {
	cutoff := now.Add(-ec.window)
	kept := ec.errors[:0]
	for _, t := range ec.errors {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	ec.errors = kept
}

func (ec *ErrorCounter) ShouldAlert() bool {
	ec.mu.RLock()
	defer ec.mu.RUnlock()
	if len(ec.errors) == 0 || ec.window <= 0 {
		return false
	}
	perMinute := float64(len(ec.errors)) / ec.window.Minutes()
	return int(perMinute) > ec.maxRate
}

// Checker checks the collaborators a failed read would implicate: the
// temperature cache's Redis connection. The host cron table is not
// checked, here or by the health endpoint.
type Checker struct {
	redis        *redis.Client
	logger       *zap.Logger
	errorCounter *ErrorCounter
}

func NewChecker(redisClient *redis.Client, logger *zap.Logger) *Checker {
	return &Checker{redis: redisClient, logger: logger, errorCounter: NewErrorCounter(5*time.Minute, 10)}
}

func (c *Checker) RecordError() {
	c.errorCounter.Add()
	if c.errorCounter.ShouldAlert() {
		c.logger.Warn("high error rate detected", zap.Int("error_count", c.errorCounter.Count()))
	}
}

// Status is the component-level health snapshot; httpapi folds this into
// the documented /api/health response shape.
type Status struct {
	Healthy    bool
	Components map[string]string
	ErrorCount int
}

func (c *Checker) Check(ctx context.Context) Status {
	components := make(map[string]string)
	healthy := true

	if c.redis != nil {
		ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := c.redis.Ping(ctx).Err(); err != nil {
			components["redis"] = "error: " + err.Error()
			healthy = false
		} else {
			components["redis"] = "ok"
		}
	} else {
		components["redis"] = "not_configured"
	}

	return Status{Healthy: healthy, Components: components, ErrorCount: c.errorCounter.Count()}
}
