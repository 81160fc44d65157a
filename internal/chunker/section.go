package chunker

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var (
	reMarkdownHeading = regexp.MustCompile(`^#{1,6}\s+\S`)
	reNumberedHeading = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)
	reUnderlineRun    = regexp.MustCompile(`^(={3,}|-{3,})\s*$`)
)

type sectionStrategy struct {
	chunkSize int
	overlap   int
	markdown  bool
}

func newSectionStrategy(fileType string, chunkSize, overlap int) *sectionStrategy {
	ft := strings.ToLower(strings.TrimSpace(fileType))
	return &sectionStrategy{
		chunkSize: chunkSize,
		overlap:   overlap,
		markdown:  ft == "md" || ft == "markdown",
	}
}

func (s *sectionStrategy) Name() StrategyName {
	return StrategySection
}

// Split breaks the document at detected section boundaries, then packs each
// section independently. A section boundary always forces a chunk break, even
// when the running chunk is still under size.
func (s *sectionStrategy) Split(text string) []string {
	var sections []string
	if s.markdown {
		sections = splitMarkdownSections(text)
	} else {
		sections = splitHeadingSections(text)
	}
	packer := newParagraphStrategy(s.chunkSize, s.overlap)
	var chunks []string
	for _, section := range sections {
		if len(section) <= s.chunkSize {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, packer.Split(section)...)
	}
	return chunks
}

// splitMarkdownSections uses the markdown AST: level 1 and 2 headings open a
// new section, everything else accumulates into the current one.
func splitMarkdownSections(input string) []string {
	src := []byte(input)
	md := goldmark.New()
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var sections []string
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		section := strings.TrimSpace(strings.Join(current, "\n\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = nil
	}
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if h, ok := node.(*ast.Heading); ok && h.Level <= 2 {
			flush()
			current = append(current, strings.Repeat("#", h.Level)+" "+string(h.Text(src)))
			continue
		}
		if seg := nodeSource(node, src); seg != "" {
			current = append(current, seg)
		}
	}
	flush()
	if len(sections) == 0 {
		return splitParagraphs(input)
	}
	return sections
}

// nodeSource reconstructs a block node's raw text from its line segments,
// descending into containers that carry no lines themselves.
func nodeSource(node ast.Node, src []byte) string {
	if lines := node.Lines(); lines != nil && lines.Len() > 0 {
		start := lines.At(0).Start
		stop := lines.At(lines.Len() - 1).Stop
		return strings.TrimSpace(string(src[start:stop]))
	}
	var parts []string
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if seg := nodeSource(child, src); seg != "" {
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "\n")
}

// splitHeadingSections handles plain text: markdown-style hashes, numbered
// headings and setext-style underline runs all open a new section.
func splitHeadingSections(input string) []string {
	lines := strings.Split(input, "\n")
	var sections []string
	var current []string
	flush := func() {
		section := strings.TrimSpace(strings.Join(current, "\n"))
		if section != "" {
			sections = append(sections, section)
		}
		current = nil
	}
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)
		underlined := i+1 < len(lines) && trimmed != "" && reUnderlineRun.MatchString(strings.TrimSpace(lines[i+1]))
		if reMarkdownHeading.MatchString(trimmed) || reNumberedHeading.MatchString(trimmed) || underlined {
			flush()
		}
		current = append(current, line)
	}
	flush()
	if len(sections) == 0 {
		return splitParagraphs(input)
	}
	return sections
}
