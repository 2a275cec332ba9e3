// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package report renders aggregated profiling data as text tables.
//
// All statistics are derived at report time from the raw sample counts and
// the accumulated active time; nothing is persisted between reports.
package report // import "github.com/statprof-dev/statprof/report"

import (
	"fmt"
	"io"
	"path"
	"sort"
	"time"

	"github.com/statprof-dev/statprof/aggregate"
)

// Format selects the report layout.
type Format int

const (
	// ByLine prints one row per sampled source line.
	ByLine Format = 0
	// ByMethod groups rows by function, with nested rows for the
	// significant lines within each function.
	ByMethod Format = 1
)

// String returns a human readable name for the format.
func (f Format) String() string {
	switch f {
	case ByLine:
		return "by-line"
	case ByMethod:
		return "by-method"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Snapshot is the profiler data a report is computed from.
type Snapshot struct {
	// Records are the per-site sample counts.
	Records []*aggregate.Record
	// Samples is the total number of samples taken.
	Samples uint64
	// Accumulated is the total active CPU time observed.
	Accumulated time.Duration
}

// Write renders snap to w in the given format.
//
// With no samples recorded it writes a fixed message instead of a table,
// avoiding division by zero in the derived statistics. An unknown format
// yields an error before anything is written.
func Write(w io.Writer, format Format, snap Snapshot) error {
	if snap.Samples == 0 {
		_, err := io.WriteString(w, "No samples recorded.\n")
		return err
	}

	switch format {
	case ByLine:
		if err := writeByLine(w, snap); err != nil {
			return err
		}
	case ByMethod:
		if err := writeByMethod(w, snap); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid display format: %d", int(format))
	}

	if _, err := fmt.Fprintln(w, "---"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sample count: %d\n", snap.Samples); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Total time: %f seconds\n", snap.Accumulated.Seconds())
	return err
}

// stats are the derived display values for one call site, recomputed on
// every report.
type stats struct {
	filePath    string
	fileName    string
	line        int
	function    string
	percentSelf float64
	cumSeconds  float64
	selfSeconds float64
}

// name returns the "<file>:<line>:<function>" display form.
func (s *stats) name() string {
	return fmt.Sprintf("%s:%d:%s", s.fileName, s.line, s.function)
}

// deriveStats converts raw sample counts into time and percentage estimates.
func deriveStats(snap Snapshot) []stats {
	secondsPerSample := snap.Accumulated.Seconds() / float64(snap.Samples)

	all := make([]stats, 0, len(snap.Records))
	for _, rec := range snap.Records {
		all = append(all, stats{
			filePath:    rec.Site.File,
			fileName:    path.Base(rec.Site.File),
			line:        rec.Site.Line,
			function:    rec.Site.Function,
			percentSelf: float64(rec.SelfSamples) / float64(snap.Samples) * 100,
			cumSeconds:  float64(rec.CumSamples) * secondsPerSample,
			selfSeconds: float64(rec.SelfSamples) * secondsPerSample,
		})
	}
	return all
}

func writeHeader(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%5.5s %10.10s   %7.7s  %-8.8s\n",
		"%  ", "cumulative", "self", ""); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%5.5s  %9.9s  %8.8s  %-8.8s\n",
		"time", "seconds", "seconds", "name")
	return err
}

// writeByLine prints one row per call site, sorted by self time.
func writeByLine(w io.Writer, snap Snapshot) error {
	all := deriveStats(snap)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].selfSeconds > all[j].selfSeconds
	})

	if err := writeHeader(w); err != nil {
		return err
	}
	for i := range all {
		st := &all[i]
		if _, err := fmt.Fprintf(w, "%6.2f %9.2f %9.2f  %s\n",
			st.percentSelf, st.cumSeconds, st.selfSeconds, st.name()); err != nil {
			return err
		}
	}
	return nil
}

// methodGroup sums the statistics of all call sites within one function.
type methodGroup struct {
	name        string
	percentSelf float64
	cumSeconds  float64
	selfSeconds float64
	lines       []stats
}

// writeByMethod prints one row per function, sorted by summed self time, with
// nested rows for the lines that individually exceed 1% of total self time.
func writeByMethod(w io.Writer, snap Snapshot) error {
	if err := writeHeader(w); err != nil {
		return err
	}

	grouped := make(map[string]*methodGroup)
	for _, st := range deriveStats(snap) {
		key := st.fileName + ":" + st.function
		group, ok := grouped[key]
		if !ok {
			group = &methodGroup{name: key}
			grouped[key] = group
		}
		group.percentSelf += st.percentSelf
		group.cumSeconds += st.cumSeconds
		group.selfSeconds += st.selfSeconds
		group.lines = append(group.lines, st)
	}

	groups := make([]*methodGroup, 0, len(grouped))
	for _, group := range grouped {
		groups = append(groups, group)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].selfSeconds > groups[j].selfSeconds
	})

	for _, group := range groups {
		if _, err := fmt.Fprintf(w, "%6.2f %9.2f %9.2f  %s\n",
			group.percentSelf, group.cumSeconds, group.selfSeconds,
			group.name); err != nil {
			return err
		}
		sort.SliceStable(group.lines, func(i, j int) bool {
			return group.lines[i].selfSeconds > group.lines[j].selfSeconds
		})
		for i := range group.lines {
			st := &group.lines[i]
			// Only show line detail for significant locations.
			if st.percentSelf <= 1 {
				continue
			}
			if _, err := fmt.Fprintf(w, "%33.0f%% %6.2f   line %d: %s\n",
				st.percentSelf, st.selfSeconds, st.line,
				sourceLine(st.filePath, st.line)); err != nil {
				return err
			}
		}
	}
	return nil
}
