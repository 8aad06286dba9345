package duckdb

import (
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/varekai/opsmind/internal/core/ports"
)

// Repository is the DuckDB-backed implementation of ports.Repository. An
// empty path opens an in-memory database.
type Repository struct {
	db *sql.DB
}

var _ ports.Repository = (*Repository)(nil)

// NewRepository opens (or creates) the database at path and applies the
// schema.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %q: %w", path, err)
	}

	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Close releases the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS task_results (
			task_name   VARCHAR PRIMARY KEY,
			status      VARCHAR NOT NULL,
			output      VARCHAR,
			iterations  INTEGER NOT NULL,
			summary     VARCHAR,
			attempts    VARCHAR,
			started_at  TIMESTAMP NOT NULL,
			finished_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS traces (
			id           VARCHAR PRIMARY KEY,
			name         VARCHAR NOT NULL,
			status       VARCHAR NOT NULL,
			task_name    VARCHAR,
			root_span_id VARCHAR,
			start_time   TIMESTAMP NOT NULL,
			end_time     TIMESTAMP,
			duration_ms  BIGINT,
			span_count   INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS spans (
			id          VARCHAR PRIMARY KEY,
			trace_id    VARCHAR NOT NULL,
			parent_id   VARCHAR,
			name        VARCHAR NOT NULL,
			kind        VARCHAR NOT NULL,
			status      VARCHAR NOT NULL,
			input       VARCHAR,
			output      VARCHAR,
			error       VARCHAR,
			attributes  VARCHAR,
			start_time  TIMESTAMP NOT NULL,
			end_time    TIMESTAMP,
			duration_ms BIGINT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
