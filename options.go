// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package statprof // import "github.com/statprof-dev/statprof"

import (
	"github.com/statprof-dev/statprof/cputime"
	"github.com/statprof-dev/statprof/itimer"
	"github.com/statprof-dev/statprof/stacks"
)

type config struct {
	frequency int
	clock     cputime.Clock
	timer     itimer.Timer
	source    stacks.Source
}

func defaultConfig() config {
	return config{
		frequency: DefaultFrequency,
		clock:     cputime.Process{},
	}
}

// Option configures a Profiler.
type Option func(*config)

// WithFrequency sets the initial sampling frequency in Hz. Values below 1
// are ignored.
func WithFrequency(hz int) Option {
	return func(cfg *config) {
		if hz > 0 {
			cfg.frequency = hz
		}
	}
}

// WithClock replaces the process CPU clock used for time accounting.
func WithClock(clock cputime.Clock) Option {
	return func(cfg *config) {
		cfg.clock = clock
	}
}

// WithTimer replaces the sampling timer. The default is the portable
// monotonic timer; on Linux, itimer.NewProf samples on CPU time instead of
// wall-clock time. The caller keeps ownership of a custom timer and must
// Close it after the Profiler is no longer used.
func WithTimer(timer itimer.Timer) Option {
	return func(cfg *config) {
		cfg.timer = timer
	}
}

// WithStackSource replaces the stack snapshot source. By default each
// outermost Start monitors the goroutine calling it.
func WithStackSource(source stacks.Source) Option {
	return func(cfg *config) {
		cfg.source = source
	}
}
