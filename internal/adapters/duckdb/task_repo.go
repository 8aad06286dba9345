package duckdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/varekai/opsmind/internal/core/domain"
)

// SaveTaskResult upserts one task result. Attempts are stored as a JSON
// document; their shape is read back whole, never queried.
func (r *Repository) SaveTaskResult(ctx context.Context, result domain.TaskResult) error {
	attempts, err := json.Marshal(result.Attempts)
	if err != nil {
		return fmt.Errorf("marshal attempts: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO task_results (task_name, status, output, iterations, summary, attempts, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (task_name) DO UPDATE SET
			status      = excluded.status,
			output      = excluded.output,
			iterations  = excluded.iterations,
			summary     = excluded.summary,
			attempts    = excluded.attempts,
			started_at  = excluded.started_at,
			finished_at = excluded.finished_at`,
		result.TaskName,
		string(result.Status),
		result.Output,
		result.Iterations,
		result.Summary,
		string(attempts),
		result.StartedAt,
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert task result %s: %w", result.TaskName, err)
	}
	return nil
}

// GetTaskResult returns one task result by name.
func (r *Repository) GetTaskResult(ctx context.Context, taskName string) (domain.TaskResult, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT task_name, status, output, iterations, summary, attempts, started_at, finished_at
		FROM task_results WHERE task_name = ?`, taskName)

	result, err := scanTaskResult(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TaskResult{}, fmt.Errorf("task result not found: %s", taskName)
	}
	if err != nil {
		return domain.TaskResult{}, fmt.Errorf("get task result: %w", err)
	}
	return result, nil
}

// ListTaskResults returns recent task results, newest finish first.
func (r *Repository) ListTaskResults(ctx context.Context, limit int) ([]domain.TaskResult, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT task_name, status, output, iterations, summary, attempts, started_at, finished_at
		FROM task_results
		ORDER BY finished_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list task results: %w", err)
	}
	defer rows.Close()

	out := []domain.TaskResult{}
	for rows.Next() {
		result, err := scanTaskResult(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, rows.Err()
}

func scanTaskResult(scan func(dest ...any) error) (domain.TaskResult, error) {
	var result domain.TaskResult
	var status, attemptsJSON string
	if err := scan(
		&result.TaskName, &status, &result.Output, &result.Iterations,
		&result.Summary, &attemptsJSON, &result.StartedAt, &result.FinishedAt,
	); err != nil {
		return domain.TaskResult{}, err
	}
	result.Status = domain.TaskStatus(status)
	if attemptsJSON != "" && attemptsJSON != "null" {
		if err := json.Unmarshal([]byte(attemptsJSON), &result.Attempts); err != nil {
			return domain.TaskResult{}, fmt.Errorf("unmarshal attempts: %w", err)
		}
	}
	return result, nil
}
