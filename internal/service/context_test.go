package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xxxsen/vecsearch/internal/model"
)

func TestBuildContextEnglishQuery(t *testing.T) {
	out := BuildContext("what is the tao", []*model.SearchResult{
		{Content: "The Tao that can be told is not the eternal Tao.", Similarity: 0.81, ChunkInfo: "1/2"},
	})
	require.True(t, strings.HasPrefix(out, "Below is information relevant to your query:"))
	require.Contains(t, out, "Document 1 (Chunk 1/2) Similarity: 0.81:")
	require.Contains(t, out, "The Tao that can be told")
	require.NotContains(t, out, "---")
	require.NotContains(t, out, "Please answer the following question")
}

func TestBuildContextChineseQueryWithTopicGuidance(t *testing.T) {
	out := BuildContext("道教的创始人是谁", []*model.SearchResult{
		{Content: "张道陵创立五斗米道。", Similarity: 0.85},
	})
	require.True(t, strings.HasPrefix(out, "Below are document contents relevant to your query:"))
	require.Contains(t, out, "information about Taoism")
	require.Contains(t, out, "\n---\n张道陵创立五斗米道。\n---\n")
	// similarity above 0.7 selects the confident instruction block
	require.Contains(t, out, "First identify the core of the question")
}

func TestBuildContextChineseLowRelevance(t *testing.T) {
	out := BuildContext("天气怎么样", []*model.SearchResult{
		{Content: "一段不相关的内容。", Similarity: 0.3},
	})
	require.Contains(t, out, "If there is not enough information in the documents")
	require.NotContains(t, out, "First identify the core of the question")
}

func TestBuildContextRelevanceTermOverridesLowSimilarity(t *testing.T) {
	// 老子 appears in both query and content, so the result counts as highly
	// relevant even though cosine similarity is weak.
	out := BuildContext("老子是谁", []*model.SearchResult{
		{Content: "老子著有道德经。", Similarity: 0.4},
	})
	require.Contains(t, out, "First identify the core of the question")
}

func TestBuildContextSortsBySimilarity(t *testing.T) {
	out := BuildContext("ranking", []*model.SearchResult{
		{Content: "weak match", Similarity: 0.2},
		{Content: "strong match", Similarity: 0.9},
	})
	require.Less(t, strings.Index(out, "strong match"), strings.Index(out, "weak match"))
}

func TestBuildContextSkipsEmptyContent(t *testing.T) {
	out := BuildContext("anything", []*model.SearchResult{
		{Content: "   ", Similarity: 0.9},
		{Content: "real content", Similarity: 0.5},
	})
	// Position numbering follows the sorted order even across skipped docs.
	require.NotContains(t, out, "Document 1")
	require.Contains(t, out, "Document 2")
	require.Contains(t, out, "real content")
}
