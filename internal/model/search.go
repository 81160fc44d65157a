package model

// SearchResult is constructed per query and never persisted. Similarity is
// the post-boost, clamped score in [0, 1]. Metadata carries only the
// caller-visible keys; internal fields are stripped before results leave the
// engine.
type SearchResult struct {
	ID         int64                  `json:"id"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Metadata   map[string]interface{} `json:"metadata"`
	Similarity float64                `json:"similarity"`
	Source     string                 `json:"source"`
	ChunkInfo  string                 `json:"chunk_info"`
}
