package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSectionStrategySplitsOnHeadings(t *testing.T) {
	text := strings.Join([]string{
		"1. Introduction",
		strings.Repeat("intro text. ", 5),
		"",
		"2. Methods",
		strings.Repeat("methods text. ", 5),
		"",
		"Results",
		"=======",
		strings.Repeat("results text. ", 5),
	}, "\n")
	s := newSectionStrategy("txt", 1000, 100)
	chunks := s.Split(text)
	require.Len(t, chunks, 3)
	require.Contains(t, chunks[0], "1. Introduction")
	require.Contains(t, chunks[1], "2. Methods")
	require.Contains(t, chunks[2], "Results")
}

func TestSectionStrategyMarkdown(t *testing.T) {
	text := strings.Join([]string{
		"# Title",
		"",
		"opening paragraph",
		"",
		"## Details",
		"",
		"detail paragraph one",
		"",
		"detail paragraph two",
	}, "\n")
	s := newSectionStrategy("md", 1000, 100)
	chunks := s.Split(text)
	require.Len(t, chunks, 2)
	require.Contains(t, chunks[0], "Title")
	require.Contains(t, chunks[0], "opening paragraph")
	require.Contains(t, chunks[1], "Details")
	require.Contains(t, chunks[1], "detail paragraph two")
}

func TestTableAwareKeepsTablesWhole(t *testing.T) {
	table := strings.Join([]string{
		"| region | revenue |",
		"| ------ | ------- |",
		"| north  | 1200    |",
		"| south  | 3400    |",
	}, "\n")
	text := strings.Repeat("prose paragraph. ", 10) + "\n\n" + table + "\n\n" + strings.Repeat("closing paragraph. ", 10)
	s := newTableAwareStrategy(newParagraphStrategy(120, 0))
	chunks := s.Split(text)
	found := 0
	for _, c := range chunks {
		if strings.Contains(c, "| north  | 1200    |") {
			require.Contains(t, c, "| south  | 3400    |")
			found++
		}
	}
	require.Equal(t, 1, found, "table should land intact in exactly one chunk")
}

func TestTableAwareMarkerBlocks(t *testing.T) {
	text := "before\n\n<TABLE>\nr1\tc1\nr2\tc2\n</TABLE>\n\nafter"
	protected, tables := protectTables(text)
	require.Len(t, tables, 1)
	require.NotContains(t, protected, "r1\tc1")
	restored := restoreTables(protected, tables)
	require.Contains(t, restored, "r1\tc1")
	require.Contains(t, restored, "</TABLE>")
}

func TestFixedSizeOversizedParagraphHardSplit(t *testing.T) {
	para := strings.Repeat("z", 450)
	s := newFixedSizeStrategy(100, 20)
	chunks := s.Split(para)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		require.LessOrEqual(t, len(c), 100)
	}
	// Consecutive windows share the configured overlap.
	require.Equal(t, chunks[0][80:], chunks[1][:20])
}

func TestSplitSentencesRespectsMaxSize(t *testing.T) {
	text := strings.Repeat("This is a sentence. ", 50)
	pieces := splitSentences(text, 120)
	require.Greater(t, len(pieces), 1)
	joined := 0
	for _, p := range pieces {
		require.LessOrEqual(t, len(p), 120)
		joined += len(p)
	}
	require.GreaterOrEqual(t, joined, len(strings.TrimSpace(text))-len(pieces))
}
