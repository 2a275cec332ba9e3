// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package cputime provides the process CPU clock used for sample accounting.
package cputime // import "github.com/statprof-dev/statprof/cputime"

import (
	"time"

	"golang.org/x/sys/unix"
)

// Clock reads the CPU time the process has consumed so far.
type Clock interface {
	// ProcessTime returns the elapsed user plus system CPU time of the
	// process. The reading is monotonically non-decreasing and does not
	// advance while the process is idle.
	ProcessTime() time.Duration
}

// Process is the Clock backed by getrusage(RUSAGE_SELF).
type Process struct{}

// ProcessTime implements Clock.
func (Process) ProcessTime() time.Duration {
	var ru unix.Rusage
	// Getrusage can not fail for RUSAGE_SELF with a valid struct.
	_ = unix.Getrusage(unix.RUSAGE_SELF, &ru)
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}
