// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package statprof implements a statistical CPU-time profiler.
//
// Instead of instrumenting every function call, the profiler periodically
// samples the call stack of one monitored goroutine and derives per-line and
// per-function time estimates from the sample counts:
//
//	p, err := statprof.New()
//	...
//	p.Start()
//	expensiveWork()
//	err = p.Stop()
//	err = p.Display(os.Stdout, statprof.ByLine)
//
//	  %   cumulative      self
//	 time    seconds   seconds  name
//	 86.23      1.23      1.06  app.go:79:funcC
//	 10.12      1.19      0.12  app.go:33:funcB
//	  ...
//
// All reported numbers are statistical estimates. "Time" always means user
// plus system CPU time, not wall-clock time: while the process is idle, for
// example blocking in a read, the clock does not advance. For that reason
// the profiler is not suited to analyzing I/O bound work.
//
// The profiler keeps accumulated data across Start/Stop runs; Reset discards
// it and optionally changes the sampling frequency.
//
// Start and Stop nest: only the outermost pair arms and disarms the sampling
// machinery, so libraries can profile their own scopes without disturbing an
// enclosing profile. Stop preserves the exact time left on the sampling
// timer and the next Start resumes with it, keeping the sampling cadence
// intact across pause/resume cycles.
//
// A Profiler is a self-contained context: independent instances do not share
// state. Its methods must be called from a single goroutine, and reading
// results while profiling is active is a data race the profiler does not
// guard against.
package statprof // import "github.com/statprof-dev/statprof"

import (
	"errors"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/statprof-dev/statprof/aggregate"
	"github.com/statprof-dev/statprof/itimer"
	"github.com/statprof-dev/statprof/report"
	"github.com/statprof-dev/statprof/sampler"
	"github.com/statprof-dev/statprof/site"
	"github.com/statprof-dev/statprof/stacks"
)

// DefaultFrequency is the sampling frequency in Hz used unless a different
// one is configured with WithFrequency or Reset.
const DefaultFrequency = 1000

// Display formats, re-exported for convenience.
const (
	ByLine   = report.ByLine
	ByMethod = report.ByMethod
)

var (
	// ErrProfilerRunning is returned by Reset while profiling is active.
	ErrProfilerRunning = errors.New("profiler is running")
	// ErrProfilerNotRunning is returned by Stop without a matching Start.
	ErrProfilerNotRunning = errors.New("profiler is not running")
)

// Profiler is a profiling context: the sampling machinery together with the
// data accumulated by it.
type Profiler struct {
	sampler  *sampler.Sampler
	resolver *site.Resolver
	table    *aggregate.Table

	// level is the Start/Stop nesting depth.
	level int
	// remaining is the time that was left on the sampling timer when the
	// outermost Stop disarmed it.
	remaining time.Duration
	// retarget is set when no explicit stack source was configured; each
	// outermost Start then monitors the goroutine that called it.
	retarget bool
}

// New returns an inactive Profiler with empty accumulated data.
func New(opts ...Option) (*Profiler, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.timer == nil {
		cfg.timer = itimer.NewMonotonic()
	}

	resolver, err := site.NewResolver()
	if err != nil {
		return nil, err
	}
	table := aggregate.NewTable()

	return &Profiler{
		sampler: sampler.New(sampler.Config{
			Clock:    cfg.clock,
			Timer:    cfg.timer,
			Source:   cfg.source,
			Resolver: resolver,
			Table:    table,
			Interval: time.Second / time.Duration(cfg.frequency),
		}),
		resolver: resolver,
		table:    table,
		retarget: cfg.source == nil,
	}, nil
}

// Start begins profiling, or deepens the nesting if profiling is already
// active. Only the outermost Start arms the sampling timer. Unless a stack
// source was configured, the calling goroutine becomes the monitored one.
func (p *Profiler) Start() {
	p.level++
	if p.level > 1 {
		return
	}

	if p.retarget {
		p.sampler.SetSource(stacks.NewTarget())
	}
	resume := p.remaining
	p.remaining = 0
	p.sampler.Begin(resume)
}

// Stop ends one level of profiling. The outermost Stop disarms the sampling
// timer, preserving the exact time left until the next sample, and folds the
// elapsed active time into the accumulated total.
func (p *Profiler) Stop() error {
	if p.level == 0 {
		return ErrProfilerNotRunning
	}
	p.level--
	if p.level > 0 {
		return nil
	}
	p.remaining = p.sampler.End()
	return nil
}

// IsActive reports whether profiling is currently active.
func (p *Profiler) IsActive() bool {
	return p.level > 0
}

// Reset discards all accumulated data. A positive frequency additionally
// changes the sampling rate to that many samples per second; otherwise the
// configured rate stays in effect. Reset fails while profiling is active.
func (p *Profiler) Reset(frequency int) error {
	if p.level > 0 {
		return ErrProfilerRunning
	}

	p.table.Reset()
	p.resolver.Reset()
	p.remaining = 0

	interval := p.sampler.Interval()
	if frequency > 0 {
		interval = time.Second / time.Duration(frequency)
	}
	p.sampler.Reset(interval)

	log.Debugf("Profiler reset, sampling interval %v", interval)
	return nil
}

// Display writes the profiling report to w, or to stdout if w is nil. It is
// meant to be called while profiling is stopped.
func (p *Profiler) Display(w io.Writer, format report.Format) error {
	if w == nil {
		w = os.Stdout
	}
	return report.Write(w, format, report.Snapshot{
		Records:     p.table.Records(),
		Samples:     p.sampler.Samples(),
		Accumulated: p.sampler.Accumulated(),
	})
}

// Profile runs work under the profiler. Stopping and writing the report to w
// is guaranteed on every exit path of work, including panics.
func (p *Profiler) Profile(w io.Writer, format report.Format, work func() error) (err error) {
	p.Start()
	defer func() {
		err = errors.Join(err, p.Stop(), p.Display(w, format))
	}()
	return work()
}
