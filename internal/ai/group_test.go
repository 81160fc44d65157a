package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	name  string
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func (s *stubEmbedder) ModelName() string {
	return s.name
}

func TestGroupEmbedderFallsBackOnFailure(t *testing.T) {
	primary := &stubEmbedder{name: "primary", err: errors.New("quota exceeded")}
	secondary := &stubEmbedder{name: "secondary", vec: []float32{1, 2}}
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: primary},
		{Name: "secondary", Embedder: secondary},
	})

	vec, err := g.Embed(context.Background(), "text", "SEMANTIC_SIMILARITY")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, 1, primary.calls)
	require.Equal(t, 1, secondary.calls)
}

func TestGroupEmbedderPrefersPrimary(t *testing.T) {
	primary := &stubEmbedder{name: "primary", vec: []float32{3}}
	secondary := &stubEmbedder{name: "secondary", vec: []float32{4}}
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "primary", Embedder: primary},
		{Name: "secondary", Embedder: secondary},
	})

	vec, err := g.Embed(context.Background(), "text", "SEMANTIC_SIMILARITY")
	require.NoError(t, err)
	require.Equal(t, []float32{3}, vec)
	require.Zero(t, secondary.calls)
}

func TestGroupEmbedderReturnsLastError(t *testing.T) {
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "a", Embedder: &stubEmbedder{err: errors.New("first failure")}},
		{Name: "b", Embedder: &stubEmbedder{err: errors.New("second failure")}},
	})
	_, err := g.Embed(context.Background(), "text", "SEMANTIC_SIMILARITY")
	require.ErrorContains(t, err, "second failure")
}

func TestGroupEmbedderChainIdentity(t *testing.T) {
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "gemini-embedding-001", Embedder: &stubEmbedder{}},
		{Name: "text-embedding-3-small", Embedder: &stubEmbedder{}},
	})
	require.Equal(t, "gemini-embedding-001|text-embedding-3-small", g.ModelName())
}

func TestGroupEmbedderSingleEntryUnwraps(t *testing.T) {
	only := &stubEmbedder{name: "only"}
	g := NewGroupEmbedder([]EmbedderEntry{{Name: "only", Embedder: only}})
	require.Equal(t, "only", g.ModelName())
}

func TestGroupEmbedderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	secondary := &stubEmbedder{vec: []float32{1}}
	g := NewGroupEmbedder([]EmbedderEntry{
		{Name: "a", Embedder: &stubEmbedder{err: errors.New("down")}},
		{Name: "b", Embedder: secondary},
	})
	_, err := g.Embed(ctx, "text", "SEMANTIC_SIMILARITY")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, secondary.calls)
}
