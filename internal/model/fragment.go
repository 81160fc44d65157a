package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// metadataEmbeddingKey is the blob key carrying the fragment vector. Keys
// with this prefix are internal and never exposed to callers.
const metadataInternalPrefix = "_"

const metadataEmbeddingKey = "_embedding"

// Fragment is the persisted retrieval unit. Metadata holds a JSON blob that
// always carries the embedding under "_embedding" next to caller-supplied
// keys such as source and chunk accounting.
type Fragment struct {
	ID               int64  `json:"id" db:"id"`
	Title            string `json:"title" db:"title"`
	Metadata         string `json:"metadata" db:"metadata"`
	ChunkingStrategy string `json:"chunking_strategy" db:"chunking_strategy"`
	CreatedAt        int64  `json:"created_at" db:"created_at"`
}

// FragmentMetadata is the typed view of the metadata blob: the embedding is
// split out of the map so callers never deal with the "_embedding" key
// convention directly.
type FragmentMetadata struct {
	Embedding []float32
	User      map[string]interface{}
}

// EncodeFragmentMetadata merges the embedding into the user metadata and
// serializes the result to the persisted blob format.
func EncodeFragmentMetadata(embedding []float32, user map[string]interface{}) (string, error) {
	combined := make(map[string]interface{}, len(user)+1)
	for k, v := range user {
		combined[k] = v
	}
	combined[metadataEmbeddingKey] = embedding
	data, err := json.Marshal(combined)
	if err != nil {
		return "", fmt.Errorf("encode fragment metadata: %w", err)
	}
	return string(data), nil
}

// ParseFragmentMetadata decodes a persisted blob. The embedding is extracted
// and every internal-prefixed key is stripped from the user map. Blobs
// without a usable embedding yield Embedding == nil; callers treat such
// fragments as unsearchable rather than failing.
func ParseFragmentMetadata(blob string) (*FragmentMetadata, error) {
	if strings.TrimSpace(blob) == "" {
		return nil, fmt.Errorf("empty fragment metadata")
	}
	var raw map[string]interface{}
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("parse fragment metadata: %w", err)
	}
	meta := &FragmentMetadata{
		User: make(map[string]interface{}, len(raw)),
	}
	if values, ok := raw[metadataEmbeddingKey].([]interface{}); ok {
		embedding := make([]float32, 0, len(values))
		valid := true
		for _, v := range values {
			f, ok := v.(float64)
			if !ok {
				valid = false
				break
			}
			embedding = append(embedding, float32(f))
		}
		if valid && len(embedding) > 0 {
			meta.Embedding = embedding
		}
	}
	for k, v := range raw {
		if strings.HasPrefix(k, metadataInternalPrefix) {
			continue
		}
		meta.User[k] = v
	}
	return meta, nil
}
