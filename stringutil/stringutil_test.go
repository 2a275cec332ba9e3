// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package stringutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFieldsN(t *testing.T) {
	tests := map[string]struct {
		input     string
		expected  []string
		maxFields int
	}{
		"empty":             {"", []string{}, 2},
		"only spaces":       {"  ", []string{}, 2},
		"1 field":           {"111", []string{"111"}, 2},
		"leading space":     {" 111", []string{"111"}, 2},
		"trailing space":    {"111 ", []string{"111"}, 2},
		"surrounding space": {" 111 ", []string{"111"}, 2},
		"2 fields":          {"111 222", []string{"111", "222"}, 2},
		"3 fields cap 2":    {"111 222  333", []string{"111", "222  333"}, 2},
		"3 fields cap 3":    {"111 222  333", []string{"111", "222", "333"}, 3},
		"location line": {"/src/app/main.go:42 +0x65",
			[]string{"/src/app/main.go:42", "+0x65"}, 2},
	}

	for name, testcase := range tests {
		t.Run(name, func(t *testing.T) {
			var fields [4]string
			n := FieldsN(testcase.input, fields[:testcase.maxFields])
			require.Equal(t, testcase.expected, fields[:n])
		})
	}
}
