package embedcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// buildCacheKey returns the in-memory cache key, the content hash used by the
// persistent tier, and the normalized model name. Both tiers key on the same
// hash so a warm database row also seeds the LRU on first read.
func buildCacheKey(modelName, taskType, text string) (string, string, string) {
	modelName = strings.TrimSpace(modelName)
	if modelName == "" {
		modelName = "unknown"
	}
	hash := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(hash[:])
	return "embed:" + modelName + ":" + taskType + ":" + contentHash, contentHash, modelName
}

func cloneEmbedding(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	clone := make([]float32, len(values))
	copy(clone, values)
	return clone
}
