package chunker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/gateway"
	"github.com/xxxsen/vecsearch/internal/model"
	"go.uber.org/zap"
)

const (
	defaultChunkSize = 1000
	defaultOverlap   = 200

	minChunkSize = 100
	maxChunkSize = 10000

	defaultShortDocThreshold = 500
	defaultHardMaxChunkSize  = 10000

	// How much text the recommendation sees: sampleSize is read from the
	// document, promptSampleSize is what actually goes into the prompt.
	sampleSize       = 5000
	promptSampleSize = 3000
	minSampleSize    = 1000
)

type completionSource interface {
	Complete(ctx context.Context, prompt string, contextText string, complexity gateway.Complexity, useCache bool) (string, error)
}

type PlannerConfig struct {
	ChunkSize         int
	Overlap           int
	ShortDocThreshold int
	HardMaxChunkSize  int
}

func (c *PlannerConfig) fill() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Overlap < 0 || c.Overlap > c.ChunkSize/2 {
		c.Overlap = defaultOverlap
	}
	if c.ShortDocThreshold <= 0 {
		c.ShortDocThreshold = defaultShortDocThreshold
	}
	if c.HardMaxChunkSize <= 0 {
		c.HardMaxChunkSize = defaultHardMaxChunkSize
	}
}

// Planner decides how a document gets split into fragments. Short documents
// skip chunking entirely; longer ones either follow an explicitly requested
// strategy or an LLM-recommended one with deterministic fallbacks.
type Planner struct {
	completer completionSource
	cfg       PlannerConfig
}

func NewPlanner(completer completionSource, cfg PlannerConfig) *Planner {
	cfg.fill()
	return &Planner{completer: completer, cfg: cfg}
}

// recommendation is the JSON shape asked of the completion gateway.
type recommendation struct {
	ChunkSize int    `json:"chunk_size"`
	Overlap   int    `json:"overlap"`
	Strategy  string `json:"strategy"`
	Reasoning string `json:"reasoning"`
}

// PlanChunks chunks text with an automatically chosen strategy.
func (p *Planner) PlanChunks(ctx context.Context, text string, fileType string) ([]model.Chunk, error) {
	return p.PlanWithStrategy(ctx, text, fileType, StrategyIntelligent)
}

// PlanWithStrategy chunks text under the named policy. StrategyIntelligent
// consults the completion gateway for a recommendation; every other name maps
// directly onto its splitter. Output metadata always carries chunk_index,
// total_chunks and the strategy that produced each chunk.
func (p *Planner) PlanWithStrategy(ctx context.Context, text string, fileType string, name StrategyName) ([]model.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty document")
	}
	if len(text) < p.cfg.ShortDocThreshold {
		return []model.Chunk{{
			Content: text,
			Metadata: model.ChunkMetadata{
				Strategy:    string(StrategyNoChunking),
				ChunkIndex:  1,
				TotalChunks: 1,
				FileType:    fileType,
			},
		}}, nil
	}
	chunkSize := p.cfg.ChunkSize
	overlap := p.cfg.Overlap
	resolved := name
	if name == StrategyIntelligent {
		rec := p.recommend(ctx, text, fileType)
		chunkSize = rec.ChunkSize
		overlap = rec.Overlap
		resolved = mapRecommendedStrategy(rec.Strategy)
	}
	strategy := p.buildStrategy(resolved, fileType, chunkSize, overlap)
	pieces := strategy.Split(text)
	pieces = p.normalize(pieces)
	chunks := make([]model.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, model.Chunk{
			Content: piece,
			Metadata: model.ChunkMetadata{
				Strategy:    string(strategy.Name()),
				ChunkIndex:  i + 1,
				TotalChunks: len(pieces),
				ChunkSize:   chunkSize,
				Overlap:     overlap,
				FileType:    fileType,
			},
		})
	}
	return chunks, nil
}

func (p *Planner) buildStrategy(name StrategyName, fileType string, chunkSize, overlap int) Strategy {
	switch name {
	case StrategyParagraph:
		return newParagraphStrategy(chunkSize, overlap)
	case StrategySection:
		return newSectionStrategy(fileType, chunkSize, overlap)
	case StrategyTableAware:
		return newTableAwareStrategy(newSectionStrategy(fileType, chunkSize, overlap))
	default:
		return newFixedSizeStrategy(chunkSize, overlap)
	}
}

// recommend samples the document and asks the completion gateway for a
// structured chunking recommendation, falling back to heuristics when the
// model output cannot be used.
func (p *Planner) recommend(ctx context.Context, text string, fileType string) recommendation {
	fallback := p.heuristicRecommendation(text)
	sample := text
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	if len(sample) < minSampleSize || p.completer == nil {
		return fallback
	}
	promptSample := sample
	if len(promptSample) > promptSampleSize {
		promptSample = promptSample[:promptSampleSize]
	}
	prompt := buildRecommendPrompt(promptSample, fileType)
	resp, err := p.completer.Complete(ctx, prompt, "", gateway.ComplexityNormal, true)
	if err != nil {
		return fallback
	}
	rec, err := parseRecommendation(resp)
	if err != nil {
		logutil.GetLogger(ctx).Warn("unusable chunking recommendation, using heuristics", zap.Error(err))
		return fallback
	}
	if rec.ChunkSize < minChunkSize || rec.ChunkSize > maxChunkSize {
		logutil.GetLogger(ctx).Warn("recommended chunk_size out of range", zap.Int("chunk_size", rec.ChunkSize))
		rec.ChunkSize = defaultChunkSize
	}
	if rec.Overlap < 0 || rec.Overlap > rec.ChunkSize/2 {
		logutil.GetLogger(ctx).Warn("recommended overlap out of range", zap.Int("overlap", rec.Overlap))
		rec.Overlap = defaultOverlap
	}
	logutil.GetLogger(ctx).Info("chunking recommendation accepted",
		zap.String("strategy", rec.Strategy),
		zap.Int("chunk_size", rec.ChunkSize),
		zap.Int("overlap", rec.Overlap))
	return rec
}

// heuristicRecommendation is the deterministic path: financial-report
// markers or table content select table-aware splitting, otherwise defaults.
func (p *Planner) heuristicRecommendation(text string) recommendation {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "annual report") || strings.Contains(text, "年报") || containsTable(text) {
		return recommendation{
			ChunkSize: p.cfg.ChunkSize,
			Overlap:   p.cfg.Overlap,
			Strategy:  string(StrategyTableAware),
			Reasoning: "document carries tabular content",
		}
	}
	return recommendation{
		ChunkSize: p.cfg.ChunkSize,
		Overlap:   p.cfg.Overlap,
		Strategy:  string(StrategyFixedSize),
		Reasoning: "no structural signal detected",
	}
}

func mapRecommendedStrategy(s string) StrategyName {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "paragraph":
		return StrategyParagraph
	case "section":
		return StrategySection
	case "semantic":
		// No semantic splitter; paragraph boundaries are the closest match.
		return StrategyParagraph
	case "table_aware":
		return StrategyTableAware
	default:
		return StrategyFixedSize
	}
}

func buildRecommendPrompt(sample string, fileType string) string {
	return fmt.Sprintf(`Analyze the following document text sample and recommend a chunking strategy for vector storage.
The document appears to be a %s file.

Document Sample:
---
%s
---

Based on this sample, determine:
1. Is this document structured with clear sections, chapters, or paragraphs?
2. What would be the ideal chunk size (in characters) considering the document structure?
3. How much overlap between chunks is recommended?

Return your analysis as a JSON object with the following fields:
- chunk_size: (integer) recommended size in characters
- overlap: (integer) recommended overlap in characters
- strategy: (string) one of ["fixed_size", "paragraph", "section", "semantic"]
- reasoning: (string) brief explanation of your recommendation

JSON response only:`, strings.ToUpper(fileType), sample)
}

// parseRecommendation extracts the JSON object from a model response that may
// wrap it in markdown code fences.
func parseRecommendation(resp string) (recommendation, error) {
	body := strings.TrimSpace(resp)
	if idx := strings.Index(body, "```json"); idx >= 0 {
		body = body[idx+len("```json"):]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
	} else if idx := strings.Index(body, "```"); idx >= 0 {
		body = body[idx+3:]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
	}
	body = strings.TrimSpace(body)
	var rec recommendation
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return recommendation{}, fmt.Errorf("parse recommendation: %w", err)
	}
	return rec, nil
}

// normalize enforces the hard maximum chunk size by sentence-boundary
// splitting any oversized chunk. Chunks holding table content are left alone
// so tables never break mid-row.
func (p *Planner) normalize(pieces []string) []string {
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if len(piece) <= p.cfg.HardMaxChunkSize || containsTable(piece) {
			out = append(out, piece)
			continue
		}
		out = append(out, splitSentences(piece, p.cfg.HardMaxChunkSize)...)
	}
	return out
}

var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'。': true, '！': true, '？': true,
	'\n': true,
}

// splitSentences greedily accumulates sentences up to maxSize, hard-cutting
// only when a single sentence alone exceeds the cap.
func splitSentences(text string, maxSize int) []string {
	var sentences []string
	var cur []rune
	for _, r := range text {
		cur = append(cur, r)
		if sentenceEnders[r] {
			sentences = append(sentences, string(cur))
			cur = nil
		}
	}
	if len(cur) > 0 {
		sentences = append(sentences, string(cur))
	}
	var out []string
	var acc strings.Builder
	flush := func() {
		if s := strings.TrimSpace(acc.String()); s != "" {
			out = append(out, s)
		}
		acc.Reset()
	}
	for _, sentence := range sentences {
		if len(sentence) > maxSize {
			flush()
			out = append(out, hardSplit(sentence, maxSize, 0)...)
			continue
		}
		if acc.Len()+len(sentence) > maxSize {
			flush()
		}
		acc.WriteString(sentence)
	}
	flush()
	return out
}
