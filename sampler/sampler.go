// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampler implements the timer-driven sampling engine.
//
// Between Begin and End a single sampler goroutine owns all mutable profiling
// state: it is the only writer to the aggregation table, the identity cache
// and the time accounting. The timer is one-shot and is re-armed only after a
// sample has been fully processed, so sample handling never overlaps and no
// locks are needed.
package sampler // import "github.com/statprof-dev/statprof/sampler"

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/statprof-dev/statprof/aggregate"
	"github.com/statprof-dev/statprof/cputime"
	"github.com/statprof-dev/statprof/itimer"
	"github.com/statprof-dev/statprof/site"
	"github.com/statprof-dev/statprof/stacks"
)

// Config bundles the collaborators a Sampler works with.
type Config struct {
	// Clock is the CPU clock used for time accounting.
	Clock cputime.Clock
	// Timer paces the samples.
	Timer itimer.Timer
	// Source provides the stack snapshot for each sample.
	Source stacks.Source
	// Resolver maps observed frames to call-site identities.
	Resolver *site.Resolver
	// Table receives the per-site sample counts.
	Table *aggregate.Table
	// Interval is the initial sampling interval.
	Interval time.Duration
}

// Sampler takes one stack sample per timer expiry and accumulates the
// results. Its methods must be called from a single goroutine; the profiler
// serializes them.
type Sampler struct {
	clock    cputime.Clock
	timer    itimer.Timer
	source   stacks.Source
	resolver *site.Resolver
	table    *aggregate.Table

	interval    time.Duration
	accumulated time.Duration
	samples     uint64
	lastStart   time.Duration

	// frameBuf and seen are reused across samples to keep per-sample
	// allocation bounded.
	frameBuf []site.Frame
	seen     map[site.Key]struct{}

	stop chan struct{}
	done chan struct{}
}

// New returns a Sampler using the given collaborators.
func New(cfg Config) *Sampler {
	return &Sampler{
		clock:    cfg.Clock,
		timer:    cfg.Timer,
		source:   cfg.Source,
		resolver: cfg.Resolver,
		table:    cfg.Table,
		interval: cfg.Interval,
		seen:     make(map[site.Key]struct{}),
	}
}

// SetSource replaces the stack source. It may only be called while sampling
// is stopped.
func (s *Sampler) SetSource(source stacks.Source) {
	s.source = source
}

// Interval returns the current sampling interval.
func (s *Sampler) Interval() time.Duration {
	return s.interval
}

// Accumulated returns the total active CPU time observed so far.
func (s *Sampler) Accumulated() time.Duration {
	return s.accumulated
}

// Samples returns the number of samples taken so far.
func (s *Sampler) Samples() uint64 {
	return s.samples
}

// Reset clears the time accounting and sets the sampling interval. It may
// only be called while sampling is stopped.
func (s *Sampler) Reset(interval time.Duration) {
	s.interval = interval
	s.accumulated = 0
	s.samples = 0
	s.lastStart = 0
}

// Begin starts the sampling goroutine and arms the timer. A positive resume
// value is the time left on the timer from a previous End and is used for the
// first expiry so that a stop/start pair does not disturb the sampling
// cadence.
func (s *Sampler) Begin(resume time.Duration) {
	s.lastStart = s.clock.ProcessTime()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	delay := s.interval
	if resume > 0 {
		delay = resume
	}
	s.timer.Arm(delay)
	go s.run()

	log.Debugf("Sampling started, first expiry in %v", delay)
}

// End disarms the timer, waits for the sampling goroutine to exit and folds
// the remaining active time into the accounting. It returns the time that was
// left on the timer, or 0 if it had already expired.
func (s *Sampler) End() time.Duration {
	remaining := s.timer.Disarm()
	close(s.stop)
	<-s.done

	s.accumulated += s.clock.ProcessTime() - s.lastStart

	log.Debugf("Sampling stopped after %d samples, %v left on the timer",
		s.samples, remaining)
	return remaining
}

func (s *Sampler) run() {
	defer close(s.done)
	for {
		select {
		case <-s.timer.Notify():
			s.sample()
		case <-s.stop:
			return
		}
	}
}

// sample processes one timer expiry: it accounts the active time since the
// previous sample, attributes the captured stack to call sites and re-arms
// the timer.
func (s *Sampler) sample() {
	now := s.clock.ProcessTime()
	s.accumulated += now - s.lastStart
	s.samples++

	s.frameBuf = s.source.Capture(s.frameBuf[:0])
	if len(s.frameBuf) > 0 {
		// The innermost frame gets the self sample.
		leaf := s.resolver.Resolve(s.frameBuf[0])
		s.table.Lookup(leaf).SelfSamples++

		// Every distinct site in the stack gets one cumulative sample.
		// A site recurring within the stack still counts only once.
		clear(s.seen)
		for _, frame := range s.frameBuf {
			id := s.resolver.Resolve(frame)
			if _, dup := s.seen[id.Key]; dup {
				continue
			}
			s.seen[id.Key] = struct{}{}
			s.table.Lookup(id).CumSamples++
		}
	}

	s.timer.Arm(s.interval)
	s.lastStart = s.clock.ProcessTime()
}
