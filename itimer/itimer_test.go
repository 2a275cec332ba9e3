// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package itimer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statprof-dev/statprof/itimer"
)

func TestMonotonicDelivers(t *testing.T) {
	timer := itimer.NewMonotonic()
	defer timer.Close()

	timer.Arm(time.Millisecond)
	select {
	case <-timer.Notify():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for timer notification")
	}

	// After the expiry was consumed nothing is left on the timer.
	require.Equal(t, time.Duration(0), timer.Disarm())
}

func TestMonotonicDisarmReturnsRemaining(t *testing.T) {
	timer := itimer.NewMonotonic()
	defer timer.Close()

	timer.Arm(time.Hour)
	remaining := timer.Disarm()
	require.Positive(t, remaining)
	require.LessOrEqual(t, remaining, time.Hour)

	// The canceled expiry is never delivered.
	select {
	case <-timer.Notify():
		t.Fatal("unexpected notification after disarm")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMonotonicOneShot(t *testing.T) {
	timer := itimer.NewMonotonic()
	defer timer.Close()

	timer.Arm(time.Millisecond)
	<-timer.Notify()

	// Without a re-arm no further notification arrives.
	select {
	case <-timer.Notify():
		t.Fatal("unexpected second notification")
	case <-time.After(50 * time.Millisecond):
	}

	// Re-arming delivers again.
	timer.Arm(time.Millisecond)
	select {
	case <-timer.Notify():
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for re-armed notification")
	}
}
