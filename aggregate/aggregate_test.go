// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/statprof-dev/statprof/aggregate"
	"github.com/statprof-dev/statprof/site"
)

func TestLookupCreatesOnce(t *testing.T) {
	table := aggregate.NewTable()
	s := &site.Site{Key: site.Key{File: "/src/app/a.go", Line: 10}, Function: "foo"}

	rec := table.Lookup(s)
	require.Same(t, s, rec.Site)
	require.Same(t, rec, table.Lookup(s))
	require.Equal(t, 1, table.Len())

	rec.SelfSamples++
	rec.CumSamples += 2
	require.Equal(t, uint64(1), table.Lookup(s).SelfSamples)
	require.Equal(t, uint64(2), table.Lookup(s).CumSamples)
}

func TestRecordsAndReset(t *testing.T) {
	table := aggregate.NewTable()
	a := &site.Site{Key: site.Key{File: "/src/app/a.go", Line: 10}, Function: "foo"}
	b := &site.Site{Key: site.Key{File: "/src/app/a.go", Line: 20}, Function: "bar"}
	table.Lookup(a)
	table.Lookup(b)

	require.Len(t, table.Records(), 2)

	table.Reset()
	require.Equal(t, 0, table.Len())
	require.Empty(t, table.Records())
}
