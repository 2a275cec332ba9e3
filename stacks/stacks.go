// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package stacks captures call-stack snapshots of a single goroutine.
//
// Go offers no way to execute code at an arbitrary interruption point of
// another goroutine, so the sampler cannot unwind the monitored goroutine
// from a signal handler the way a C profiler would. Target instead extracts
// the monitored goroutine's portion of a full runtime stack dump on demand.
// The dump briefly stops the world, and its cost grows with the number of
// live goroutines; the approach is intended for moderate sampling rates.
package stacks // import "github.com/statprof-dev/statprof/stacks"

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/statprof-dev/statprof/site"
	"github.com/statprof-dev/statprof/stringutil"
)

// initialDumpSize is the starting size of the reusable stack dump buffer.
const initialDumpSize = 64 * 1024

// Source produces one stack snapshot per sample.
type Source interface {
	// Capture appends the frames of the sampled stack to buf, innermost
	// first, and returns the extended slice. An empty result means the
	// stack could not be observed for this sample.
	Capture(buf []site.Frame) []site.Frame
}

// Target samples the stack of one specific goroutine. It must be created on
// the goroutine to be monitored; Capture may then be called from the sampler
// goroutine.
type Target struct {
	// header matches the "goroutine <id> [" line that opens the monitored
	// goroutine's section of a stack dump.
	header []byte
	buf    []byte
}

var _ Source = (*Target)(nil)

// NewTarget returns a Source that samples the calling goroutine.
func NewTarget() *Target {
	return &Target{
		header: fmt.Appendf(nil, "goroutine %d [", goroutineID()),
		buf:    make([]byte, initialDumpSize),
	}
}

// Capture implements Source.
func (t *Target) Capture(buf []site.Frame) []site.Frame {
	return appendFrames(buf, t.section(t.dump()))
}

// dump takes a stack dump of all goroutines into the reusable buffer,
// growing it as needed.
func (t *Target) dump() []byte {
	for {
		n := runtime.Stack(t.buf, true)
		if n < len(t.buf) {
			return t.buf[:n]
		}
		t.buf = make([]byte, 2*len(t.buf))
	}
}

// section returns the monitored goroutine's part of the dump, or nil if the
// goroutine no longer exists.
func (t *Target) section(dump []byte) []byte {
	for len(dump) > 0 {
		var sec []byte
		if end := bytes.Index(dump, []byte("\n\n")); end >= 0 {
			sec, dump = dump[:end], dump[end+2:]
		} else {
			sec, dump = dump, nil
		}
		if bytes.HasPrefix(sec, t.header) {
			return sec
		}
	}
	return nil
}

// appendFrames parses one goroutine section of a stack dump. The text has the
// shape
//
//	goroutine 18 [running]:
//	main.funcC(0x1?)
//		/src/app/main.go:42 +0x65
//	main.funcB(...)
//		/src/app/main.go:30 +0x1c
//	created by main.main in goroutine 1
//		/src/app/main.go:10 +0x20
//
// with frames ordered innermost first. The "created by" pseudo frame is not
// part of the call chain and is dropped.
func appendFrames(frames []site.Frame, section []byte) []site.Frame {
	var function string
	first := true
	for len(section) > 0 {
		var line []byte
		if end := bytes.IndexByte(section, '\n'); end >= 0 {
			line, section = section[:end], section[end+1:]
		} else {
			line, section = section, nil
		}
		if first {
			// Skip the "goroutine N [state]:" header.
			first = false
			continue
		}
		if len(line) == 0 {
			continue
		}
		if line[0] != '\t' {
			if bytes.HasPrefix(line, []byte("created by ")) {
				break
			}
			function = functionName(line)
			continue
		}
		if function == "" {
			continue
		}
		if file, lineNo, ok := parseLocation(line); ok {
			frames = append(frames, site.Frame{
				File:     file,
				Line:     lineNo,
				Function: function,
			})
		}
		function = ""
	}
	return frames
}

// functionName strips the argument list from a dump function line, e.g.
// "main.(*worker).run(0xc000010000)" becomes "main.(*worker).run".
func functionName(line []byte) string {
	if idx := bytes.LastIndexByte(line, '('); idx > 0 {
		return string(line[:idx])
	}
	return string(line)
}

// parseLocation extracts file and line from a dump location line of the form
// "\t/src/app/main.go:42 +0x65".
func parseLocation(line []byte) (string, int, bool) {
	var fields [2]string
	if stringutil.FieldsN(string(line[1:]), fields[:]) < 1 {
		return "", 0, false
	}
	loc := fields[0]
	idx := strings.LastIndexByte(loc, ':')
	if idx <= 0 {
		return "", 0, false
	}
	lineNo, err := strconv.Atoi(loc[idx+1:])
	if err != nil {
		return "", 0, false
	}
	return loc[:idx], lineNo, true
}

// goroutineID returns the runtime ID of the calling goroutine, parsed from
// the header line of its own stack dump.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var fields [3]string
	if stringutil.FieldsN(string(buf[:n]), fields[:]) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return id
}
