package chunker

import "strings"

type fixedSizeStrategy struct {
	chunkSize int
	overlap   int
}

func newFixedSizeStrategy(chunkSize, overlap int) *fixedSizeStrategy {
	return &fixedSizeStrategy{chunkSize: chunkSize, overlap: overlap}
}

func (s *fixedSizeStrategy) Name() StrategyName {
	return StrategyFixedSize
}

// Split packs paragraphs greedily up to chunkSize. When a chunk closes, the
// next chunk is seeded with the previous chunk's tail so context carries
// across the boundary. The seed does not count against capacity, so a packed
// chunk may physically reach chunkSize+overlap characters.
func (s *fixedSizeStrategy) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}
	var chunks []string
	var parts []string
	bodyLen := 0
	flush := func() {
		if bodyLen == 0 {
			return
		}
		chunk := strings.Join(parts, "\n\n")
		chunks = append(chunks, chunk)
		if seed := overlapSeed(chunk, s.overlap); seed != "" {
			parts = []string{seed}
		} else {
			parts = nil
		}
		bodyLen = 0
	}
	appendPart := func(p string) {
		if len(parts) > 0 {
			bodyLen += 2
		}
		parts = append(parts, p)
		bodyLen += len(p)
	}
	for _, para := range paragraphs {
		if len(para) > s.chunkSize {
			flush()
			chunks = append(chunks, hardSplit(para, s.chunkSize, s.overlap)...)
			parts = nil
			bodyLen = 0
			continue
		}
		extra := len(para)
		if len(parts) > 0 {
			extra += 2
		}
		if bodyLen+extra > s.chunkSize {
			flush()
		}
		appendPart(para)
	}
	flush()
	return chunks
}

// overlapSeed returns the trailing paragraphs of chunk whose combined length
// fits within overlap; if even the last paragraph is too long, it falls back
// to the raw character tail.
func overlapSeed(chunk string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	paragraphs := splitParagraphs(chunk)
	var seed []string
	total := 0
	for i := len(paragraphs) - 1; i >= 0; i-- {
		add := len(paragraphs[i])
		if len(seed) > 0 {
			add += 2
		}
		if total+add > overlap {
			break
		}
		total += add
		seed = append([]string{paragraphs[i]}, seed...)
	}
	if len(seed) > 0 {
		return strings.Join(seed, "\n\n")
	}
	runes := []rune(chunk)
	if len(runes) <= overlap {
		return chunk
	}
	return string(runes[len(runes)-overlap:])
}

// hardSplit slices an oversized run of text into chunkSize windows advancing
// by chunkSize-overlap. Operates on runes so multi-byte text is never cut
// mid-character.
func hardSplit(text string, chunkSize, overlap int) []string {
	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}
	runes := []rune(text)
	var out []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		piece := strings.TrimSpace(string(runes[i:end]))
		if piece != "" {
			out = append(out, piece)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}
