// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

// Package aggregate accumulates raw sample counts per call site.
package aggregate // import "github.com/statprof-dev/statprof/aggregate"

import (
	"github.com/statprof-dev/statprof/site"
)

// Record holds the sample counts accumulated for one call site.
type Record struct {
	// Site is the call site the counts belong to.
	Site *site.Site
	// SelfSamples counts the samples in which the site was the innermost
	// frame of the sampled stack.
	SelfSamples uint64
	// CumSamples counts the samples in which the site appeared anywhere in
	// the sampled stack, at most once per sample regardless of recursion.
	CumSamples uint64
}

// Table maps call-site identities to their records.
//
// Table is not safe for concurrent use. While profiling is active the sampler
// is the only writer; reading it concurrently is a caller error.
type Table struct {
	records map[site.Key]*Record
}

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{records: make(map[site.Key]*Record)}
}

// Lookup returns the record for s, creating it on first observation.
func (t *Table) Lookup(s *site.Site) *Record {
	if rec, ok := t.records[s.Key]; ok {
		return rec
	}
	rec := &Record{Site: s}
	t.records[s.Key] = rec
	return rec
}

// Records returns all records in unspecified order.
func (t *Table) Records() []*Record {
	recs := make([]*Record, 0, len(t.records))
	for _, rec := range t.records {
		recs = append(recs, rec)
	}
	return recs
}

// Len returns the number of call sites with at least one observation.
func (t *Table) Len() int {
	return len(t.records)
}

// Reset drops all records.
func (t *Table) Reset() {
	clear(t.records)
}
