package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFragmentMetadataRoundTrip(t *testing.T) {
	blob, err := EncodeFragmentMetadata([]float32{0.5, -1, 2}, map[string]interface{}{
		"source":      "doc.pdf",
		"chunk_index": 2,
	})
	require.NoError(t, err)

	meta, err := ParseFragmentMetadata(blob)
	require.NoError(t, err)
	require.Equal(t, []float32{0.5, -1, 2}, meta.Embedding)
	require.Equal(t, "doc.pdf", meta.User["source"])
	require.NotContains(t, meta.User, "_embedding")
}

func TestParseFragmentMetadataWithoutEmbedding(t *testing.T) {
	meta, err := ParseFragmentMetadata(`{"source": "a.txt"}`)
	require.NoError(t, err)
	require.Nil(t, meta.Embedding)
	require.Equal(t, "a.txt", meta.User["source"])
}

func TestParseFragmentMetadataMalformedEmbedding(t *testing.T) {
	// Non-numeric entries invalidate the vector but not the rest of the blob.
	meta, err := ParseFragmentMetadata(`{"_embedding": [1, "oops"], "source": "a.txt"}`)
	require.NoError(t, err)
	require.Nil(t, meta.Embedding)
	require.Equal(t, "a.txt", meta.User["source"])
}

func TestParseFragmentMetadataRejectsGarbage(t *testing.T) {
	_, err := ParseFragmentMetadata("")
	require.Error(t, err)
	_, err = ParseFragmentMetadata("not json")
	require.Error(t, err)
}

func TestParseFragmentMetadataStripsInternalKeys(t *testing.T) {
	meta, err := ParseFragmentMetadata(`{"_embedding": [1], "_private": true, "kept": 1}`)
	require.NoError(t, err)
	require.NotContains(t, meta.User, "_private")
	require.Contains(t, meta.User, "kept")
}
