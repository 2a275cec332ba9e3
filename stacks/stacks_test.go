// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package stacks

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/statprof-dev/statprof/site"
)

const testDump = `goroutine 6 [chan receive]:
main.other()
	/src/app/other.go:12 +0x30

goroutine 18 [running]:
main.funcC(0x3e8)
	/src/app/main.go:42 +0x65
main.funcB(...)
	/src/app/main.go:30 +0x1c
main.(*worker).run(0xc000010000)
	/src/app/worker.go:77 +0x44
created by main.main in goroutine 1
	/src/app/main.go:10 +0x20

goroutine 20 [select]:
runtime.gopark(0x0?, 0x0?, 0x0?, 0x0?, 0x0?)
	/usr/local/go/src/runtime/proc.go:425 +0xce
`

func TestSectionSelectsGoroutine(t *testing.T) {
	target := &Target{header: []byte("goroutine 18 [")}
	sec := target.section([]byte(testDump))
	require.NotNil(t, sec)
	require.True(t, strings.HasPrefix(string(sec), "goroutine 18 [running]:"))

	missing := &Target{header: []byte("goroutine 99 [")}
	require.Nil(t, missing.section([]byte(testDump)))
}

func TestAppendFramesParsesChain(t *testing.T) {
	target := &Target{header: []byte("goroutine 18 [")}
	frames := appendFrames(nil, target.section([]byte(testDump)))

	require.Equal(t, []site.Frame{
		{File: "/src/app/main.go", Line: 42, Function: "main.funcC"},
		{File: "/src/app/main.go", Line: 30, Function: "main.funcB"},
		{File: "/src/app/worker.go", Line: 77, Function: "main.(*worker).run"},
	}, frames)
}

func TestAppendFramesReusesBuffer(t *testing.T) {
	target := &Target{header: []byte("goroutine 18 [")}
	buf := make([]site.Frame, 0, 8)

	frames := appendFrames(buf, target.section([]byte(testDump)))
	require.Len(t, frames, 3)
	frames = appendFrames(frames[:0], target.section([]byte(testDump)))
	require.Len(t, frames, 3)
}

func TestGoroutineID(t *testing.T) {
	require.NotZero(t, goroutineID())
}

// spinUntil burns CPU until stop is set, so that a concurrent Capture finds
// the goroutine running inside this function.
func spinUntil(stop *atomic.Bool, ready chan<- *Target) {
	target := NewTarget()
	ready <- target
	sum := 0
	for !stop.Load() {
		sum += (sum + 1) % 7919
	}
	_ = sum
}

func TestCaptureLiveGoroutine(t *testing.T) {
	var stop atomic.Bool
	defer stop.Store(true)

	ready := make(chan *Target)
	go spinUntil(&stop, ready)
	target := <-ready

	// Give the goroutine a moment to enter the spin loop.
	time.Sleep(10 * time.Millisecond)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		frames := target.Capture(nil)
		if len(frames) == 0 {
			continue
		}
		for _, frame := range frames {
			if strings.Contains(frame.Function, "spinUntil") {
				require.True(t, strings.HasSuffix(frame.File, "stacks_test.go"))
				require.Positive(t, frame.Line)
				return
			}
		}
	}
	t.Fatal("never observed the spinning goroutine's stack")
}

func TestCaptureGoneGoroutine(t *testing.T) {
	done := make(chan *Target)
	go func() {
		done <- NewTarget()
	}()
	target := <-done

	// The goroutine exits right after handing over the target; once it is
	// gone, Capture yields no frames.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if len(target.Capture(nil)) == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("goroutine section still present after exit")
}
