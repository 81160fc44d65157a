package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	rePipeRow   = regexp.MustCompile(`^\s*\|.*\|\s*$`)
	reBorderRow = regexp.MustCompile(`^\s*\+[-+=]+\+\s*$`)
	reTableSpan = regexp.MustCompile(`(?s)<TABLE>.*?</TABLE>`)
)

const tablePlaceholderFormat = "\x00TBL%d\x00"

var rePlaceholder = regexp.MustCompile("\x00TBL(\\d+)\x00")

type tableAwareStrategy struct {
	inner Strategy
}

// newTableAwareStrategy protects table blocks from being split mid-table:
// each block is swapped for a placeholder token before the inner strategy
// runs, then restored in whichever chunk the placeholder landed.
func newTableAwareStrategy(inner Strategy) *tableAwareStrategy {
	return &tableAwareStrategy{inner: inner}
}

func (s *tableAwareStrategy) Name() StrategyName {
	return StrategyTableAware
}

func (s *tableAwareStrategy) Split(text string) []string {
	protected, tables := protectTables(text)
	chunks := s.inner.Split(protected)
	if len(tables) == 0 {
		return chunks
	}
	out := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, restoreTables(chunk, tables))
	}
	return out
}

// protectTables replaces every detected table block with a placeholder and
// returns the rewritten text plus the extracted blocks. Detection covers
// explicit <TABLE> markers from upstream extraction, pipe-delimited rows, and
// ASCII border rows.
func protectTables(text string) (string, []string) {
	var tables []string
	protected := reTableSpan.ReplaceAllStringFunc(text, func(block string) string {
		tables = append(tables, block)
		return fmt.Sprintf(tablePlaceholderFormat, len(tables)-1)
	})

	lines := strings.Split(protected, "\n")
	var out []string
	var block []string
	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		// A lone table-ish line is more likely noise than a table.
		if len(block) >= 2 {
			tables = append(tables, strings.Join(block, "\n"))
			out = append(out, fmt.Sprintf(tablePlaceholderFormat, len(tables)-1))
		} else {
			out = append(out, block...)
		}
		block = nil
	}
	for _, line := range lines {
		if rePipeRow.MatchString(line) || reBorderRow.MatchString(line) {
			block = append(block, line)
			continue
		}
		flushBlock()
		out = append(out, line)
	}
	flushBlock()
	return strings.Join(out, "\n"), tables
}

func restoreTables(chunk string, tables []string) string {
	return rePlaceholder.ReplaceAllStringFunc(chunk, func(token string) string {
		m := rePlaceholder.FindStringSubmatch(token)
		var idx int
		fmt.Sscanf(m[1], "%d", &idx)
		if idx < 0 || idx >= len(tables) {
			return token
		}
		return tables[idx]
	})
}

// containsTable reports whether a chunk still carries table content, which
// exempts it from the oversized-chunk normalization pass.
func containsTable(chunk string) bool {
	if strings.Contains(chunk, "<TABLE>") {
		return true
	}
	for _, line := range strings.Split(chunk, "\n") {
		if rePipeRow.MatchString(line) || reBorderRow.MatchString(line) {
			return true
		}
	}
	return false
}
