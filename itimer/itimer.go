// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package itimer provides the one-shot timer primitive that paces sampling.
//
// A Timer delivers exactly one notification per Arm call. It is never armed
// periodically: the sampler re-arms it only after it has fully processed the
// previous notification, which serializes all sample handling.
package itimer // import "github.com/statprof-dev/statprof/itimer"

import (
	"time"
)

// Timer is an interval timer that can be armed for a single expiry.
//
// Implementations are not safe for concurrent use of Arm and Disarm; the
// profiler guarantees that Arm is only called while the timer is disarmed or
// from the goroutine that consumed the previous notification.
type Timer interface {
	// Notify returns the channel on which expiries are delivered.
	Notify() <-chan time.Time

	// Arm schedules a single notification after d.
	Arm(d time.Duration)

	// Disarm cancels a pending notification and returns the time that was
	// left before the next expiry, or 0 if the timer had already fired.
	Disarm() time.Duration

	// Close releases resources held by the timer. The timer must be
	// disarmed and may not be used afterwards.
	Close()
}

// monotonicTimer implements Timer on the runtime's monotonic clock. It paces
// samples in wall-clock time and therefore only approximates the CPU-time
// cadence of NewProf; sample accounting itself always uses the CPU clock.
type monotonicTimer struct {
	timer    *time.Timer
	deadline time.Time
}

// NewMonotonic returns a portable Timer driven by the monotonic clock.
func NewMonotonic() Timer {
	t := time.NewTimer(time.Hour)
	t.Stop()
	return &monotonicTimer{timer: t}
}

func (m *monotonicTimer) Notify() <-chan time.Time {
	return m.timer.C
}

func (m *monotonicTimer) Arm(d time.Duration) {
	m.deadline = time.Now().Add(d)
	m.timer.Reset(d)
}

func (m *monotonicTimer) Disarm() time.Duration {
	// Stop never leaves a stale value in the channel since Go 1.23.
	m.timer.Stop()
	if remaining := time.Until(m.deadline); remaining > 0 {
		return remaining
	}
	return 0
}

func (m *monotonicTimer) Close() {
	m.timer.Stop()
}
