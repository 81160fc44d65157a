package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/chunker"
	"github.com/xxxsen/vecsearch/internal/gateway"
	"github.com/xxxsen/vecsearch/internal/model"
	errs "github.com/xxxsen/vecsearch/internal/pkg/errors"
	"github.com/xxxsen/vecsearch/internal/resultcache"
	"go.uber.org/zap"
)

const defaultSearchCacheTTL = time.Hour

type fragmentStore interface {
	Add(ctx context.Context, content string, embedding []float32, metadata map[string]interface{}, chunkingStrategy string) (int64, error)
	Get(ctx context.Context, id int64) (*model.Fragment, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type searcher interface {
	Search(ctx context.Context, query string, limit int, sourceFilter string, strategyFilter string) ([]*model.SearchResult, error)
}

type strategyComparer interface {
	Compare(ctx context.Context, query string, limit int) (*model.StrategyComparison, error)
}

type chunkPlanner interface {
	PlanChunks(ctx context.Context, text string, fileType string) ([]model.Chunk, error)
	PlanWithStrategy(ctx context.Context, text string, fileType string, name chunker.StrategyName) ([]model.Chunk, error)
}

type documentEmbedder interface {
	Embed(ctx context.Context, text string) (gateway.EmbedResult, error)
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([]gateway.EmbedResult, error)
}

type answerer interface {
	Complete(ctx context.Context, prompt string, contextText string, complexity gateway.Complexity, useCache bool) (string, error)
}

// DocumentInput is one document of a batch add. Strategy tags the stored
// fragment for later strategy-filtered searches; empty means intelligent.
type DocumentInput struct {
	Content  string
	Metadata map[string]interface{}
	Strategy string
}

// RetrievalService is the application facade: document ingestion, similarity
// search, strategy comparison and question answering over the stored
// fragments.
type RetrievalService struct {
	store     fragmentStore
	embedder  documentEmbedder
	planner   chunkPlanner
	engine    searcher
	comparer  strategyComparer
	completer answerer
	cache     *resultcache.Cache
	searchTTL time.Duration
}

func NewRetrievalService(store fragmentStore, embedder documentEmbedder, planner chunkPlanner,
	engine searcher, comparer strategyComparer, completer answerer,
	cache *resultcache.Cache, searchTTL time.Duration) *RetrievalService {
	if searchTTL <= 0 {
		searchTTL = defaultSearchCacheTTL
	}
	return &RetrievalService{
		store:     store,
		embedder:  embedder,
		planner:   planner,
		engine:    engine,
		comparer:  comparer,
		completer: completer,
		cache:     cache,
		searchTTL: searchTTL,
	}
}

// AddDocument embeds content and stores it as a single fragment. A degraded
// embedding is stored anyway; the fragment stays searchable and gets a real
// vector on the next re-embed.
func (s *RetrievalService) AddDocument(ctx context.Context, content string, metadata map[string]interface{}, strategy string) (int64, error) {
	if content == "" {
		return 0, fmt.Errorf("empty document content: %w", errs.ErrInvalid)
	}
	res, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return 0, fmt.Errorf("embed document: %w", err)
	}
	if res.Degraded {
		logutil.GetLogger(ctx).Warn("storing document with degraded embedding", zap.String("reason", res.Reason))
	}
	return s.store.Add(ctx, content, res.Vector, metadata, normalizeStrategyTag(strategy))
}

// AddDocumentsBatch adds documents with batched embedding. Storage failures
// are partial: surviving documents stay stored, the returned ids slice keeps
// input order with zero marking a failed slot, and the error joins every
// per-item failure.
func (s *RetrievalService) AddDocumentsBatch(ctx context.Context, docs []DocumentInput) ([]int64, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts, 0)
	if err != nil {
		return nil, fmt.Errorf("embed batch: %w", err)
	}
	ids := make([]int64, len(docs))
	var failures []error
	for i, doc := range docs {
		if doc.Content == "" {
			failures = append(failures, fmt.Errorf("document %d: empty content", i))
			continue
		}
		id, err := s.store.Add(ctx, doc.Content, embeddings[i].Vector, doc.Metadata, normalizeStrategyTag(doc.Strategy))
		if err != nil {
			failures = append(failures, fmt.Errorf("document %d: %w", i, err))
			continue
		}
		ids[i] = id
	}
	logutil.GetLogger(ctx).Info("batch add done",
		zap.Int("total", len(docs)),
		zap.Int("failed", len(failures)))
	return ids, errors.Join(failures...)
}

// IngestDocument chunks a document, embeds the chunks and stores each one as
// a fragment. The strategy argument selects the chunking pipeline and becomes
// the fragment tag; the actual splitter chosen by the planner lands in the
// chunk metadata.
func (s *RetrievalService) IngestDocument(ctx context.Context, content string, fileType string,
	metadata map[string]interface{}, strategy chunker.StrategyName) ([]int64, error) {
	if strategy == "" {
		strategy = chunker.StrategyIntelligent
	}
	chunks, err := s.planner.PlanWithStrategy(ctx, content, fileType, strategy)
	if err != nil {
		return nil, fmt.Errorf("plan chunks: %w", err)
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	embeddings, err := s.embedder.EmbedBatch(ctx, texts, 0)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	importedAt := time.Now().UTC().Format(time.RFC3339)
	ids := make([]int64, 0, len(chunks))
	var failures []error
	for i, chunk := range chunks {
		merged := chunk.Metadata.ToMap()
		for k, v := range metadata {
			merged[k] = v
		}
		merged["import_timestamp"] = importedAt
		id, err := s.store.Add(ctx, chunk.Content, embeddings[i].Vector, merged, string(strategy))
		if err != nil {
			failures = append(failures, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
			continue
		}
		ids = append(ids, id)
	}
	logutil.GetLogger(ctx).Info("document ingested",
		zap.String("strategy", string(strategy)),
		zap.Int("chunks", len(chunks)),
		zap.Int("stored", len(ids)),
		zap.Int("failed", len(failures)))
	return ids, errors.Join(failures...)
}

// IngestDocumentDualStrategy stores one document twice, chunked fixed-size
// and through the intelligent pipeline, so CompareStrategies has matched
// corpora under both tags. Returned ids are keyed by strategy tag; failures
// in one pipeline do not roll back the other.
func (s *RetrievalService) IngestDocumentDualStrategy(ctx context.Context, content string, fileType string,
	metadata map[string]interface{}) (map[string][]int64, error) {
	strategies := []chunker.StrategyName{chunker.StrategyFixedSize, chunker.StrategyIntelligent}
	out := make(map[string][]int64, len(strategies))
	var failures []error
	for _, strategy := range strategies {
		ids, err := s.IngestDocument(ctx, content, fileType, metadata, strategy)
		out[string(strategy)] = ids
		if err != nil {
			failures = append(failures, fmt.Errorf("ingest under %s: %w", strategy, err))
		}
	}
	return out, errors.Join(failures...)
}

// GetDocument loads one stored fragment. Returns errs.ErrNotFound for a
// missing id.
func (s *RetrievalService) GetDocument(ctx context.Context, id int64) (*model.Fragment, error) {
	frag, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("document %d: %w", id, errs.ErrNotFound)
	}
	return frag, nil
}

// DeleteDocument removes a stored fragment. Returns errs.ErrNotFound when the
// id does not exist.
func (s *RetrievalService) DeleteDocument(ctx context.Context, id int64) error {
	ok, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("document %d: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Chunk plans chunks without storing anything, for callers that want to
// inspect or post-process the split.
func (s *RetrievalService) Chunk(ctx context.Context, text string, fileType string) ([]model.Chunk, error) {
	return s.planner.PlanChunks(ctx, text, fileType)
}

// Search runs a similarity search. Results are memoized per query, limit and
// source filter; a repeated query within the TTL never touches the embedding
// provider or the database.
func (s *RetrievalService) Search(ctx context.Context, query string, limit int, sourceFilter string) ([]*model.SearchResult, error) {
	key := resultcache.NewKey("search", query, strconv.Itoa(limit), sourceFilter)
	results, err := resultcache.Memoize(ctx, s.cache, key, s.searchTTL, func(ctx context.Context) ([]*model.SearchResult, error) {
		return s.engine.Search(ctx, query, limit, sourceFilter, "")
	})
	if err != nil {
		return nil, err
	}
	// Callers get copies; mutating a returned result must not corrupt the
	// cached entry served to the next caller.
	return cloneResults(results), nil
}

func cloneResults(results []*model.SearchResult) []*model.SearchResult {
	out := make([]*model.SearchResult, len(results))
	for i, res := range results {
		cp := *res
		if res.Metadata != nil {
			cp.Metadata = make(map[string]interface{}, len(res.Metadata))
			for k, v := range res.Metadata {
				cp.Metadata[k] = v
			}
		}
		out[i] = &cp
	}
	return out
}

// CompareStrategies evaluates fixed-size versus intelligent chunking for one
// query. Never cached: timing is part of the score.
func (s *RetrievalService) CompareStrategies(ctx context.Context, query string, limit int) (*model.StrategyComparison, error) {
	return s.comparer.Compare(ctx, query, limit)
}

// Answer retrieves context for a question and asks the completion gateway for
// an answer grounded in it. The retrieved results come back alongside the
// answer so callers can cite sources.
func (s *RetrievalService) Answer(ctx context.Context, question string, limit int) (string, []*model.SearchResult, error) {
	results, err := s.Search(ctx, question, limit, "")
	if err != nil {
		return "", nil, err
	}
	contextText := BuildContext(question, results)
	answer, err := s.completer.Complete(ctx, question, contextText, gateway.ComplexityNormal, true)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}
	return answer, results, nil
}

func normalizeStrategyTag(strategy string) string {
	if strategy == "" {
		return string(chunker.StrategyIntelligent)
	}
	return strategy
}
