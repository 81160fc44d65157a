package chunker

import "strings"

type paragraphStrategy struct {
	chunkSize int
	overlap   int
}

func newParagraphStrategy(chunkSize, overlap int) *paragraphStrategy {
	return &paragraphStrategy{chunkSize: chunkSize, overlap: overlap}
}

func (s *paragraphStrategy) Name() StrategyName {
	return StrategyParagraph
}

// Split keeps paragraphs whole: it packs consecutive paragraphs up to
// chunkSize without cross-chunk seeding, and only sub-splits a single
// paragraph when it alone exceeds chunkSize.
func (s *paragraphStrategy) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}
	var chunks []string
	var current []string
	currentLen := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, "\n\n"))
		current = nil
		currentLen = 0
	}
	for _, para := range paragraphs {
		if len(para) > s.chunkSize {
			flush()
			chunks = append(chunks, hardSplit(para, s.chunkSize, s.overlap)...)
			continue
		}
		extra := len(para)
		if len(current) > 0 {
			extra += 2
		}
		if currentLen+extra > s.chunkSize {
			flush()
			extra = len(para)
		}
		current = append(current, para)
		currentLen += extra
	}
	flush()
	return chunks
}
