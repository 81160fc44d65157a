package repo

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/vecsearch/internal/model"
	"github.com/xxxsen/vecsearch/internal/pkg/dbutil"
	errs "github.com/xxxsen/vecsearch/internal/pkg/errors"
	"go.uber.org/zap"
)

const (
	titleMaxLen = 255

	// candidateScanCap bounds the brute-force scan: similarity is computed in
	// process over at most this many rows per query.
	candidateScanCap = 300

	surrogateIDMax = 1000000
)

// CandidateFilter narrows the candidate scan. Terms are OR-combined substring
// matches on the title; Source and Strategy are AND-combined with the term
// block when present.
type CandidateFilter struct {
	Source   string
	Terms    []string
	Strategy string
}

type FragmentRepo struct {
	db *sqlx.DB
}

func NewFragmentRepo(db *sqlx.DB) *FragmentRepo {
	return &FragmentRepo{db: db}
}

// Add persists one fragment and returns its store-assigned id. The title is
// the content truncated to the column limit. On an id conflict the insert is
// retried once with a regenerated surrogate id.
func (r *FragmentRepo) Add(ctx context.Context, content string, embedding []float32, metadata map[string]interface{}, chunkingStrategy string) (int64, error) {
	blob, err := model.EncodeFragmentMetadata(embedding, metadata)
	if err != nil {
		return 0, err
	}
	data := map[string]interface{}{
		"title":      truncateTitle(content),
		"metadata":   blob,
		"created_at": time.Now().Unix(),
	}
	if chunkingStrategy != "" {
		data["chunking_strategy"] = chunkingStrategy
	}
	id, err := r.insert(ctx, data)
	if err == nil {
		return id, nil
	}
	if !dbutil.IsConflict(err) {
		return 0, err
	}
	data["id"] = rand.Int64N(surrogateIDMax) + 1
	logutil.GetLogger(ctx).Warn("fragment insert conflict, retrying with surrogate id",
		zap.Int64("surrogate_id", data["id"].(int64)),
		zap.Error(err))
	id, err = r.insert(ctx, data)
	if err != nil && dbutil.IsConflict(err) {
		return 0, fmt.Errorf("insert fragment: %w: %v", errs.ErrConflict, err)
	}
	return id, err
}

func (r *FragmentRepo) insert(ctx context.Context, data map[string]interface{}) (int64, error) {
	sqlStr, args, err := builder.BuildInsert("fragments", []map[string]interface{}{data})
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr+" RETURNING id", args)
	var id int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// Get fetches a single fragment by id.
func (r *FragmentRepo) Get(ctx context.Context, id int64) (*model.Fragment, bool, error) {
	sqlStr, args := dbutil.Finalize(
		`SELECT id, title, metadata, COALESCE(chunking_strategy, '') AS chunking_strategy, created_at FROM fragments WHERE id = ?`,
		[]interface{}{id},
	)
	var frag model.Fragment
	if err := r.db.GetContext(ctx, &frag, sqlStr, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &frag, true, nil
}

// FetchCandidates runs the bounded pre-filter scan. It only selects rows; the
// caller owns all similarity scoring.
func (r *FragmentRepo) FetchCandidates(ctx context.Context, filter CandidateFilter, limit int) ([]*model.Fragment, error) {
	if limit <= 0 || limit > candidateScanCap {
		limit = candidateScanCap
	}
	var (
		clauses []string
		args    []interface{}
	)
	if filter.Source != "" {
		clauses = append(clauses, "metadata::text ILIKE ?")
		args = append(args, "%"+filter.Source+"%")
	}
	if filter.Strategy != "" {
		clauses = append(clauses, "chunking_strategy = ?")
		args = append(args, filter.Strategy)
	}
	if len(filter.Terms) > 0 {
		var termConds []string
		for _, term := range filter.Terms {
			termConds = append(termConds, "title ILIKE ?")
			args = append(args, "%"+term+"%")
		}
		clauses = append(clauses, "("+strings.Join(termConds, " OR ")+")")
	}
	query := `SELECT id, title, metadata, COALESCE(chunking_strategy, '') AS chunking_strategy, created_at FROM fragments`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += fmt.Sprintf(" LIMIT %d", limit)
	sqlStr, boundArgs := dbutil.Finalize(query, args)
	var out []*model.Fragment
	if err := r.db.SelectContext(ctx, &out, sqlStr, boundArgs...); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Debug("candidate scan done",
		zap.Int("rows", len(out)),
		zap.Int("cap", limit),
		zap.Int("terms", len(filter.Terms)))
	return out, nil
}

// CountByStrategy reports how many fragments carry the given chunking
// strategy tag; an empty strategy counts everything.
func (r *FragmentRepo) CountByStrategy(ctx context.Context, strategy string) (int64, error) {
	query := `SELECT COUNT(*) FROM fragments`
	var args []interface{}
	if strategy != "" {
		query += " WHERE chunking_strategy = ?"
		args = append(args, strategy)
	}
	sqlStr, boundArgs := dbutil.Finalize(query, args)
	var count int64
	if err := r.db.GetContext(ctx, &count, sqlStr, boundArgs...); err != nil {
		return 0, err
	}
	return count, nil
}

// Delete removes a fragment by id, reporting whether a row existed.
func (r *FragmentRepo) Delete(ctx context.Context, id int64) (bool, error) {
	sqlStr, args := dbutil.Finalize(`DELETE FROM fragments WHERE id = ?`, []interface{}{id})
	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func truncateTitle(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return "Empty document"
	}
	if len(content) <= titleMaxLen {
		return content
	}
	runes := []rune(content)
	for len(string(runes)) > titleMaxLen {
		runes = runes[:len(runes)-1]
	}
	return string(runes)
}
