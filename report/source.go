// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package report // import "github.com/statprof-dev/statprof/report"

import (
	"bufio"
	"os"
	"strings"
)

// previewLimit is the length above which a source line preview is truncated.
const previewLimit = 25

// sourceLine returns the trimmed text of the given line of the file,
// truncated for display. The preview is purely cosmetic: any read failure
// degrades to an empty string.
func sourceLine(filePath string, line int) string {
	f, err := os.Open(filePath)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for n := 1; scanner.Scan(); n++ {
		if n != line {
			continue
		}
		text := strings.TrimSpace(scanner.Text())
		if len(text) > previewLimit {
			text = text[:20] + "..."
		}
		return text
	}
	return ""
}
