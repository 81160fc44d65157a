package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xxxsen/vecsearch/internal/model"
)

// highRelevanceFloor marks a result as strong enough to answer from the
// documents alone.
const highRelevanceFloor = 0.7

const (
	chineseContextHeader = "Below are document contents relevant to your query:\n\n"
	englishContextHeader = "Below is information relevant to your query:\n\n"
)

// Closing instructions appended for Chinese queries. Which block is used
// depends on whether any retrieved document looked highly relevant.
const (
	instructionsHighRelevance = `Please answer the following question based on the document content above. Please pay special attention to:
1. Extract the information most relevant to the question from the documents
2. Organize information to form logical and structured answers
3. If information in the documents is insufficient or contradictory, clearly indicate this
4. Explain professional concepts in a way users can understand
5. First identify the core of the question, then look for answers from the documents in a targeted manner`

	instructionsLowRelevance = `Please answer the following question based on the document content above. If there is not enough information in the documents, please clearly indicate this:
1. Prioritize using information from the documents to answer the question
2. Clearly indicate which parts are extracted from the documents and which are supplemented based on general knowledge
3. If there is no relevant information in the documents at all, please clearly inform the user`
)

// topicConfig pairs the query keywords that identify a topic with the reading
// guidance injected ahead of the documents.
type topicConfig struct {
	name     string
	keywords []string
	guidance string
}

var topicConfigs = []topicConfig{
	{
		name:     "taoism",
		keywords: []string{"道教", "老子", "道德经", "太上老君", "张道陵"},
		guidance: `The reference materials contain information about Taoism. Please read carefully and extract relevant content to answer the question.
Note the historical development of Taoism, key figures (such as Laozi, Zhang Daoling, etc.), and core concepts (such as Dao, De, Wu Wei, etc.).
If the question is about the founder of Taoism, pay special attention to content about Laozi, Zhang Daoling, and the Five Pecks of Rice Taoism.`,
	},
	{
		name:     "buddhism",
		keywords: []string{"佛教", "释迦牟尼", "佛陀", "菩萨", "禅宗"},
		guidance: `The reference materials contain information about Buddhism. Please read carefully and extract relevant content to answer the question.
Note the historical development of Buddhism, key figures (such as Shakyamuni, Bodhisattvas, etc.), and core concepts (such as the Four Noble Truths, the Eightfold Path, etc.).
If the question is about the founder of Buddhism, pay special attention to content about Buddha Shakyamuni (Siddhartha Gautama).`,
	},
}

// relevanceTerms flag a document as highly relevant when the same term shows
// up in both the query and the document, even if cosine similarity is low.
var relevanceTerms = map[string][]string{
	"religion": {"道教", "老子", "佛教", "释迦牟尼"},
}

// BuildContext renders retrieved results into the context block handed to the
// completion model. Chinese queries get topic guidance and explicit answering
// instructions; English queries get a plain document list.
func BuildContext(query string, results []*model.SearchResult) string {
	chinese := containsChinese(query)

	var b strings.Builder
	if chinese {
		b.WriteString(chineseContextHeader)
		if guidance, ok := identifyTopic(query); ok {
			b.WriteString(guidance)
			b.WriteString("\n\n")
		}
	} else {
		b.WriteString(englishContextHeader)
	}

	sorted := make([]*model.SearchResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Similarity > sorted[j].Similarity
	})

	highlyRelevant := hasHighlyRelevant(query, sorted)

	for i, doc := range sorted {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}
		b.WriteString(documentHeader(i+1, doc))
		if chinese {
			b.WriteString("\n---\n")
			b.WriteString(content)
			b.WriteString("\n---\n\n")
		} else {
			b.WriteString("\n")
			b.WriteString(content)
			b.WriteString("\n\n")
		}
	}

	if chinese {
		if highlyRelevant {
			b.WriteString(instructionsHighRelevance)
		} else {
			b.WriteString(instructionsLowRelevance)
		}
	}
	return b.String()
}

func documentHeader(pos int, doc *model.SearchResult) string {
	parts := []string{fmt.Sprintf("Document %d", pos)}
	if doc.ChunkInfo != "" {
		parts = append(parts, fmt.Sprintf("(Chunk %s)", doc.ChunkInfo))
	}
	if doc.Similarity > 0 {
		parts = append(parts, fmt.Sprintf("Similarity: %.2f", doc.Similarity))
	}
	return strings.Join(parts, " ") + ":"
}

func identifyTopic(query string) (string, bool) {
	for _, topic := range topicConfigs {
		for _, keyword := range topic.keywords {
			if strings.Contains(query, keyword) {
				return topic.guidance, true
			}
		}
	}
	return "", false
}

func hasHighlyRelevant(query string, docs []*model.SearchResult) bool {
	for _, doc := range docs {
		if doc.Similarity > highRelevanceFloor {
			return true
		}
		for _, terms := range relevanceTerms {
			for _, term := range terms {
				if strings.Contains(query, term) && strings.Contains(doc.Content, term) {
					return true
				}
			}
		}
	}
	return false
}

func containsChinese(s string) bool {
	for _, r := range s {
		if r >= 0x4E00 && r <= 0x9FFF {
			return true
		}
	}
	return false
}
