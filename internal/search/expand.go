package search

import (
	"context"
	"strings"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/gateway"
	"go.uber.org/zap"
)

// zhEnKeywordMap bridges Chinese queries to English-dominant corpora: each
// entry maps a Chinese keyword to its English equivalents. The first two
// equivalents expand the embedding query; the full list feeds candidate
// filtering and score boosting.
var zhEnKeywordMap = map[string][]string{
	"历史":   {"history", "historical", "timeline", "chronicles"},
	"经济":   {"economy", "economic", "finance", "financial", "market"},
	"政治":   {"politics", "political", "government", "governance", "policy"},
	"社会":   {"society", "social", "community", "public"},
	"文化":   {"culture", "cultural", "heritage", "tradition"},
	"科学":   {"science", "scientific", "research", "study"},
	"技术":   {"technology", "technical", "engineering", "innovation"},
	"艺术":   {"art", "artistic", "design", "creative"},
	"教育":   {"education", "educational", "learning", "teaching", "academic"},
	"医学":   {"medicine", "medical", "healthcare", "health", "clinical"},
	"人工智能": {"artificial intelligence", "AI", "machine learning", "deep learning"},
	"气候变化": {"climate change", "global warming", "environmental", "sustainability"},
	"大数据":  {"big data", "data analytics", "data science"},
	"区块链":  {"blockchain", "cryptocurrency", "bitcoin", "distributed ledger"},
	"云计算":  {"cloud computing", "cloud service", "cloud platform"},
}

var zhStopwords = map[rune]bool{
	'的': true, '是': true, '了': true, '在': true, '和': true,
	'与': true, '或': true, '什': true, '么': true, '为': true, '吗': true,
}

// Expansion is what a query becomes after cross-lingual bridging.
type Expansion struct {
	Original string
	// MatchedKeys are the Chinese map keys found in the query.
	MatchedKeys []string
	// MappedTerms is the full English equivalent list for every matched key.
	MappedTerms []string
	// Translation is the LLM translation used when no static mapping hit.
	Translation string
	CrossLingual bool
}

// EmbeddingQuery is the text actually embedded: the original query plus the
// leading equivalents per matched key, or the translation when the static map
// had nothing.
func (e *Expansion) EmbeddingQuery() string {
	var extra []string
	for _, key := range e.MatchedKeys {
		terms := zhEnKeywordMap[key]
		if len(terms) > 2 {
			terms = terms[:2]
		}
		extra = append(extra, terms...)
	}
	if len(extra) == 0 && e.Translation != "" {
		extra = append(extra, e.Translation)
	}
	if len(extra) == 0 {
		return e.Original
	}
	return e.Original + " " + strings.Join(extra, " ")
}

// FilterTerms are the substring pre-filters for the candidate scan:
// meaningful query characters, mapped English terms, and non-trivial
// translation words.
func (e *Expansion) FilterTerms() []string {
	var terms []string
	if e.CrossLingual {
		for _, r := range e.Original {
			if isCJK(r) && !zhStopwords[r] {
				terms = append(terms, string(r))
			}
		}
		terms = append(terms, e.MappedTerms...)
		for _, word := range strings.Fields(e.Translation) {
			if len(word) > 2 && !strings.Contains(strings.ToLower(e.Original), strings.ToLower(word)) {
				terms = append(terms, word)
			}
		}
		return terms
	}
	for _, word := range strings.Fields(e.Original) {
		if len(word) > 2 {
			terms = append(terms, word)
		}
	}
	return terms
}

type translator interface {
	Complete(ctx context.Context, prompt string, contextText string, complexity gateway.Complexity, useCache bool) (string, error)
}

// Expander performs cross-lingual query expansion. The translator is only
// consulted when a Chinese query matches nothing in the static map.
type Expander struct {
	translator translator
}

func NewExpander(t translator) *Expander {
	return &Expander{translator: t}
}

func (e *Expander) Expand(ctx context.Context, query string) *Expansion {
	exp := &Expansion{Original: query, CrossLingual: containsCJK(query)}
	if !exp.CrossLingual {
		return exp
	}
	for key, terms := range zhEnKeywordMap {
		if strings.Contains(query, key) {
			exp.MatchedKeys = append(exp.MatchedKeys, key)
			exp.MappedTerms = append(exp.MappedTerms, terms...)
		}
	}
	if len(exp.MatchedKeys) > 0 {
		logutil.GetLogger(ctx).Debug("query expanded via keyword map",
			zap.String("query", query),
			zap.Strings("keys", exp.MatchedKeys))
		return exp
	}
	if e.translator == nil {
		return exp
	}
	prompt := "Translate the following Chinese query to English for document search, keep it concise: '" + query + "'"
	translation, err := e.translator.Complete(ctx, prompt, "", gateway.ComplexitySimple, true)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query translation failed", zap.Error(err))
		return exp
	}
	translation = strings.Trim(strings.TrimSpace(translation), `"'`)
	if translation != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(translation)) {
		exp.Translation = translation
		logutil.GetLogger(ctx).Debug("query expanded via translation",
			zap.String("query", query),
			zap.String("translation", translation))
	}
	return exp
}

func isCJK(r rune) bool {
	return r >= 0x4E00 && r <= 0x9FFF
}

func containsCJK(s string) bool {
	for _, r := range s {
		if isCJK(r) {
			return true
		}
	}
	return false
}
