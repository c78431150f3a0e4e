// Package store keeps an optional Postgres audit log of agent runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/bmstoss13/HoleNOne/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS agent_runs (
    id          UUID PRIMARY KEY,
    session_id  TEXT NOT NULL,
    flow        TEXT NOT NULL,
    outcome     TEXT NOT NULL,
    iterations  INTEGER NOT NULL,
    status      TEXT NOT NULL,
    final_url   TEXT NOT NULL,
    tee_times   INTEGER NOT NULL,
    error       TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS agent_runs_session_idx ON agent_runs (session_id, started_at);
CREATE TABLE IF NOT EXISTS agent_run_steps (
    run_id     UUID NOT NULL REFERENCES agent_runs (id) ON DELETE CASCADE,
    iteration  INTEGER NOT NULL,
    action     JSONB NOT NULL,
    result     TEXT NOT NULL,
    error_code TEXT NOT NULL,
    error      TEXT NOT NULL,
    url        TEXT NOT NULL
);`

const insertRunSQL = `
        INSERT INTO agent_runs (id, session_id, flow, outcome, iterations, status, final_url, tee_times, error, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
    `

const listRunsSQL = `
        SELECT id, session_id, flow, outcome, iterations, status, final_url, tee_times, error, started_at, finished_at
        FROM agent_runs
        WHERE session_id = $1
        ORDER BY started_at ASC;
    `

var stepColumns = []string{"run_id", "iteration", "action", "result", "error_code", "error", "url"}

// Store writes agent run records to Postgres. It implements agent.RunRecorder.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// Connect opens a pgx pool for url and wraps it in a Store with the schema applied.
func Connect(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	s, err := New(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the audit tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// RecordRun inserts the run row and its step trace in one transaction.
func (s *Store) RecordRun(ctx context.Context, run schemas.RunRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	if _, err := tx.Exec(ctx, insertRunSQL,
		run.ID, run.SessionID, run.Flow, string(run.Outcome), run.Iterations, run.Status,
		run.FinalURL, run.TeeTimes, run.Error, run.StartedAt.UTC(), run.FinishedAt.UTC(),
	); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	if len(run.Steps) > 0 {
		if err := s.persistSteps(ctx, tx, run.ID, run.Steps); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) persistSteps(ctx context.Context, tx pgx.Tx, runID string, steps []schemas.StepRecord) error {
	rows := make([][]interface{}, len(steps))
	for i, st := range steps {
		action := []byte("{}")
		if st.Action != nil {
			raw, err := json.Marshal(st.Action)
			if err != nil {
				return fmt.Errorf("failed to encode action for step %d: %w", st.Iteration, err)
			}
			action = raw
		}
		rows[i] = []interface{}{runID, st.Iteration, action, st.Result, st.ErrorCode, st.Error, st.URL}
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"agent_run_steps"}, stepColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy run steps: %w", err)
	}
	if int(copyCount) != len(steps) {
		return fmt.Errorf("mismatch in copied steps count: expected %d, got %d", len(steps), copyCount)
	}
	return nil
}

// RunsBySession lists the runs of one session, oldest first, without steps.
func (s *Store) RunsBySession(ctx context.Context, sessionID string) ([]schemas.RunRecord, error) {
	rows, err := s.pool.Query(ctx, listRunsSQL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []schemas.RunRecord{}
	for rows.Next() {
		var r schemas.RunRecord
		var outcome string
		var started, finished time.Time
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Flow, &outcome, &r.Iterations, &r.Status,
			&r.FinalURL, &r.TeeTimes, &r.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("failed to scan run row: %w", err)
		}
		r.Outcome = schemas.OutcomeKind(outcome)
		r.StartedAt, r.FinishedAt = started.UTC(), finished.UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
