package chunker

import (
	"regexp"
	"strings"
)

// StrategyName is the closed set of chunking policies. Dispatch happens over
// this enumeration, never over free-form strings from model output.
type StrategyName string

const (
	StrategyNoChunking StrategyName = "no_chunking"
	StrategyFixedSize  StrategyName = "fixed_size"
	StrategyParagraph  StrategyName = "paragraph"
	StrategySection    StrategyName = "section"
	StrategyTableAware StrategyName = "table_aware"
	// StrategyIntelligent is the fragment-level tag for planner-recommended
	// chunking; the per-chunk mechanics are one of the strategies above.
	StrategyIntelligent StrategyName = "intelligent"
)

// Strategy turns a document into ordered content pieces. Implementations are
// pure text transforms; metadata stamping happens in the planner.
type Strategy interface {
	Name() StrategyName
	Split(text string) []string
}

var paragraphSep = regexp.MustCompile(`\n\s*\n`)

func splitParagraphs(text string) []string {
	parts := paragraphSep.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
