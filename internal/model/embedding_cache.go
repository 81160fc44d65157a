package model

// EmbeddingCache is a persisted embedding keyed by model, task type and the
// sha256 of the source text. It backs the second cache tier of the embedding
// gateway.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
