// Package postgres provides the Postgres-backed progress repository.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/TheoCtla/SmartQA/internal/store"
)

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Ping(ctx context.Context) error
	Close()
}

// ProgressStore implements store.ProgressRepository using Postgres.
type ProgressStore struct {
	pool pool
}

var eventColumns = []string{"audit_id", "type", "message", "at", "tokens"}

// NewProgressStore connects a pool and returns a ProgressStore.
func NewProgressStore(ctx context.Context, cfg Config) (*ProgressStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ProgressStore{pool: p}, nil
}

// NewProgressStoreWithPool wraps an existing pool (primarily for testing).
func NewProgressStoreWithPool(p pool) (*ProgressStore, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	return &ProgressStore{pool: p}, nil
}

// Ping checks that the database is reachable.
func (s *ProgressStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *ProgressStore) Close() {
	s.pool.Close()
}

// UpsertAuditStart inserts a running row, leaving an existing row untouched.
func (s *ProgressStore) UpsertAuditStart(ctx context.Context, auditID uuid.UUID, startedAt time.Time) error {
	query := `
		INSERT INTO audit_runs (id, started_at, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING;
	`
	if _, err := s.pool.Exec(ctx, query, auditID, startedAt, store.RunRunning); err != nil {
		return fmt.Errorf("upsert audit start: %w", err)
	}
	return nil
}

// CompleteAudit marks a run finished with a status and optional error message.
func (s *ProgressStore) CompleteAudit(
	ctx context.Context,
	auditID uuid.UUID,
	finishedAt time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	query := `
		UPDATE audit_runs
		SET finished_at = $1, status = $2, error_message = $3
		WHERE id = $4;
	`
	tag, err := s.pool.Exec(ctx, query, finishedAt, status, errMsg, auditID)
	if err != nil {
		return fmt.Errorf("complete audit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("complete audit %s: %w", auditID, store.ErrNotFound)
	}
	return nil
}

// AppendEvents bulk-loads event rows with COPY.
func (s *ProgressStore) AppendEvents(ctx context.Context, events []store.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(events))
	for _, evt := range events {
		rows = append(rows, []any{evt.AuditID, evt.Type, evt.Message, evt.At, evt.Tokens})
	}
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"audit_events"}, eventColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("copy audit events: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy audit events: wrote %d of %d rows", n, len(rows))
	}
	return nil
}

// GetAudit retrieves a single run by its ID.
func (s *ProgressStore) GetAudit(ctx context.Context, auditID uuid.UUID) (store.AuditRun, error) {
	query := `
		SELECT id, started_at, finished_at, status, error_message
		FROM audit_runs
		WHERE id = $1;
	`
	var run store.AuditRun
	err := s.pool.QueryRow(ctx, query, auditID).Scan(
		&run.ID,
		&run.StartedAt,
		&run.FinishedAt,
		&run.Status,
		&run.ErrorMessage,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.AuditRun{}, store.ErrNotFound
		}
		return store.AuditRun{}, fmt.Errorf("get audit: %w", err)
	}
	return run, nil
}

// ListAudits returns runs, newest first, optionally filtered by status.
func (s *ProgressStore) ListAudits(
	ctx context.Context,
	status *store.RunStatus,
	limit,
	offset int,
) ([]store.AuditRun, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = s.pool.Query(ctx, `
			SELECT id, started_at, finished_at, status, error_message
			FROM audit_runs
			WHERE status = $1
			ORDER BY started_at DESC
			LIMIT $2 OFFSET $3;`, *status, limit, offset)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, started_at, finished_at, status, error_message
			FROM audit_runs
			ORDER BY started_at DESC
			LIMIT $1 OFFSET $2;`, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()

	var runs []store.AuditRun
	for rows.Next() {
		var run store.AuditRun
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &run.ErrorMessage); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return runs, nil
}

// ListEvents returns one run's event log in emission order.
func (s *ProgressStore) ListEvents(
	ctx context.Context,
	auditID uuid.UUID,
	limit,
	offset int,
) ([]store.EventRecord, error) {
	query := `
		SELECT audit_id, type, message, at, tokens
		FROM audit_events
		WHERE audit_id = $1
		ORDER BY at ASC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.pool.Query(ctx, query, auditID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []store.EventRecord
	for rows.Next() {
		var evt store.EventRecord
		if err := rows.Scan(&evt.AuditID, &evt.Type, &evt.Message, &evt.At, &evt.Tokens); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return events, nil
}
