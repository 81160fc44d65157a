package model

// Chunk is a transient fragment-to-be produced by the chunking planner. The
// metadata travels with the chunk into the store once embedded.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

type ChunkMetadata struct {
	Strategy        string `json:"strategy"`
	ChunkIndex      int    `json:"chunk_index"`
	TotalChunks     int    `json:"total_chunks"`
	ChunkSize       int    `json:"chunk_size,omitempty"`
	Overlap         int    `json:"overlap,omitempty"`
	Source          string `json:"source,omitempty"`
	FileType        string `json:"file_type,omitempty"`
	ImportTimestamp string `json:"import_timestamp,omitempty"`
}

// ToMap renders the chunk metadata into the free-form map persisted next to
// caller-supplied keys.
func (m ChunkMetadata) ToMap() map[string]interface{} {
	out := map[string]interface{}{
		"strategy":     m.Strategy,
		"chunk_index":  m.ChunkIndex,
		"total_chunks": m.TotalChunks,
	}
	if m.ChunkSize > 0 {
		out["chunk_size"] = m.ChunkSize
	}
	if m.Overlap > 0 {
		out["overlap"] = m.Overlap
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	if m.FileType != "" {
		out["file_type"] = m.FileType
	}
	if m.ImportTimestamp != "" {
		out["import_timestamp"] = m.ImportTimestamp
	}
	return out
}
