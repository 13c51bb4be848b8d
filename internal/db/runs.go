package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/comment-insights/internal/types"
)

// SaveInsightRun stores a pipeline result and its insights in one transaction
func (db *DB) SaveInsightRun(ctx context.Context, label string, result *types.PipelineResult, duration time.Duration) error {
	if result == nil {
		return fmt.Errorf("result is nil")
	}
	if result.RunID == uuid.Nil {
		return fmt.Errorf("result has no run id")
	}

	reasons, err := json.Marshal(result.Stats.FilterReasons)
	if err != nil {
		return fmt.Errorf("failed to marshal filter reasons: %w", err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query, args, err := insertRunQuery(label, result, reasons, duration)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", result.RunID, err)
	}

	batch := &pgx.Batch{}
	for _, in := range result.Insights {
		features, err := json.Marshal(in.Features)
		if err != nil {
			return fmt.Errorf("failed to marshal features for rank %d: %w", in.Rank, err)
		}
		batch.Queue(
			`INSERT INTO insights (run_id, rank, score, content, author, reason, features)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			result.RunID, in.Rank, in.Score, in.Content, in.Author, in.Reason, features,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert insights for run %s: %w", result.RunID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", result.RunID, err)
	}
	return nil
}

func insertRunQuery(label string, result *types.PipelineResult, reasons []byte, duration time.Duration) (string, []any, error) {
	query, args, err := psql.Insert("insight_runs").
		Columns("id", "label", "original_count", "filtered_count", "post_filtered_count",
			"processed_count", "hydration_failed", "filter_reasons", "duration_ms").
		Values(result.RunID, label, result.Stats.OriginalCount, result.Stats.FilteredCount,
			result.Stats.PostFilteredCount, result.Stats.ProcessedCount, result.Stats.HydrationFailed,
			reasons, duration.Milliseconds()).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build insert query: %w", err)
	}
	return query, args, nil
}

// GetInsightRun loads a run with its insights ordered by rank.
// Returns nil, nil when the run does not exist.
func (db *DB) GetInsightRun(ctx context.Context, id uuid.UUID) (*InsightRun, error) {
	run := &InsightRun{ID: id}
	var reasons []byte
	var durationMS int64

	err := db.pool.QueryRow(ctx,
		`SELECT label, original_count, filtered_count, post_filtered_count, processed_count,
		        hydration_failed, filter_reasons, duration_ms, created_at
		 FROM insight_runs WHERE id = $1`,
		id,
	).Scan(&run.Label, &run.Stats.OriginalCount, &run.Stats.FilteredCount, &run.Stats.PostFilteredCount,
		&run.Stats.ProcessedCount, &run.Stats.HydrationFailed, &reasons, &durationMS, &run.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	run.Duration = time.Duration(durationMS) * time.Millisecond

	if len(reasons) > 0 {
		if err := json.Unmarshal(reasons, &run.Stats.FilterReasons); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filter reasons: %w", err)
		}
	}

	rows, err := db.pool.Query(ctx,
		`SELECT rank, score, content, author, reason, features
		 FROM insights WHERE run_id = $1 ORDER BY rank`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights for run %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var in types.Insight
		var features []byte
		if err := rows.Scan(&in.Rank, &in.Score, &in.Content, &in.Author, &in.Reason, &features); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if err := json.Unmarshal(features, &in.Features); err != nil {
			return nil, fmt.Errorf("failed to unmarshal insight features: %w", err)
		}
		run.Insights = append(run.Insights, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate insights: %w", err)
	}

	return run, nil
}

// ListInsightRuns returns run summaries, newest first
func (db *DB) ListInsightRuns(ctx context.Context, filter RunFilter) ([]InsightRunSummary, error) {
	query, args, err := listRunsQuery(filter)
	if err != nil {
		return nil, err
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var summaries []InsightRunSummary
	for rows.Next() {
		var s InsightRunSummary
		if err := rows.Scan(&s.ID, &s.Label, &s.OriginalCount, &s.CreatedAt, &s.InsightCount, &s.TopScore); err != nil {
			return nil, fmt.Errorf("failed to scan run summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return summaries, nil
}

func listRunsQuery(filter RunFilter) (string, []any, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := psql.Select("r.id", "r.label", "r.original_count", "r.created_at",
		"COUNT(i.rank) AS insight_count", "MAX(i.score) AS top_score").
		From("insight_runs r").
		LeftJoin("insights i ON i.run_id = r.id").
		GroupBy("r.id").
		OrderBy("r.created_at DESC").
		Limit(uint64(limit))

	if filter.Label != "" {
		q = q.Where(sq.Eq{"r.label": filter.Label})
	}
	if filter.Since != nil {
		q = q.Where(sq.GtOrEq{"r.created_at": *filter.Since})
	}
	if filter.MinInsights > 0 {
		q = q.Having("COUNT(i.rank) >= ?", filter.MinInsights)
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build list query: %w", err)
	}
	return query, args, nil
}

// DeleteInsightRun removes a run and its insights.
// Returns false when no run matched.
func (db *DB) DeleteInsightRun(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := db.pool.Exec(ctx, `DELETE FROM insight_runs WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete run %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
