// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package itimer // import "github.com/statprof-dev/statprof/itimer"

import (
	"os"
	"os/signal"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// profTimer implements Timer on the kernel's ITIMER_PROF interval timer. The
// timer counts user plus system CPU time of the process, so the sampling
// cadence matches the accounting clock exactly: when the process is idle, no
// samples are taken.
//
// Expiry is signalled via SIGPROF. The Go runtime claims SIGPROF while
// runtime/pprof CPU profiling is active; the two can not be combined.
type profTimer struct {
	sig  chan os.Signal
	ch   chan time.Time
	done chan struct{}
}

// NewProf returns a Timer driven by ITIMER_PROF and SIGPROF delivery.
func NewProf() Timer {
	t := &profTimer{
		sig:  make(chan os.Signal, 1),
		ch:   make(chan time.Time, 1),
		done: make(chan struct{}),
	}
	signal.Notify(t.sig, unix.SIGPROF)
	go t.forward()
	return t
}

// forward translates SIGPROF deliveries into timer notifications.
func (t *profTimer) forward() {
	for {
		select {
		case <-t.sig:
			select {
			case t.ch <- time.Now():
			default:
				// The consumer is gone or still busy; the timer is
				// one-shot, so an unconsumed expiry is dropped.
			}
		case <-t.done:
			return
		}
	}
}

func (t *profTimer) Notify() <-chan time.Time {
	return t.ch
}

func (t *profTimer) Arm(d time.Duration) {
	if d < time.Microsecond {
		// setitimer treats a zero value as disarm and rounds to
		// microseconds.
		d = time.Microsecond
	}
	it := unix.Itimerval{Value: unix.NsecToTimeval(d.Nanoseconds())}
	if _, err := unix.Setitimer(unix.ITIMER_PROF, it); err != nil {
		log.Errorf("Failed to arm ITIMER_PROF: %v", err)
	}
}

func (t *profTimer) Disarm() time.Duration {
	old, err := unix.Setitimer(unix.ITIMER_PROF, unix.Itimerval{})
	if err != nil {
		log.Errorf("Failed to disarm ITIMER_PROF: %v", err)
		return 0
	}
	return time.Duration(old.Value.Nano())
}

func (t *profTimer) Close() {
	signal.Stop(t.sig)
	close(t.done)
}
