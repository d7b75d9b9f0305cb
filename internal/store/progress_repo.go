// Package store declares interfaces for persisting audit progress.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("progress record not found")

// RunStatus mirrors the audit_runs status column.
type RunStatus string

// Audit run statuses persisted in audit_runs.status.
const (
	RunRunning RunStatus = "running"
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"
)

// AuditRun models the audit_runs table. It records that an audit ran and how
// it ended; the report itself is never stored.
type AuditRun struct {
	// ID is the audit identifier shared with progress events.
	ID uuid.UUID
	// StartedAt captures when the run was first marked running.
	StartedAt time.Time
	// FinishedAt is nil until the run is marked success/error.
	FinishedAt *time.Time
	// Status is running/success/error.
	Status RunStatus
	// ErrorMessage optionally stores the final failure reason.
	ErrorMessage *string
}

// EventRecord is one row of the audit_events log.
type EventRecord struct {
	AuditID uuid.UUID
	Type    string
	Message string
	At      time.Time
	Tokens  int64
}

// ProgressRepository persists audit progress.
type ProgressRepository interface {
	// UpsertAuditStart inserts (or idempotently updates) the started_at timestamp.
	UpsertAuditStart(ctx context.Context, auditID uuid.UUID, startedAt time.Time) error
	// CompleteAudit marks the run finished with the provided status and error.
	CompleteAudit(ctx context.Context, auditID uuid.UUID, finishedAt time.Time, status RunStatus, errMsg *string) error
	// AppendEvents writes a batch of event rows.
	AppendEvents(ctx context.Context, events []EventRecord) error

	// GetAudit loads a single run or returns ErrNotFound.
	GetAudit(ctx context.Context, auditID uuid.UUID) (AuditRun, error)
	// ListAudits returns runs filtered by optional status plus limit/offset.
	ListAudits(ctx context.Context, status *RunStatus, limit, offset int) ([]AuditRun, error)
	// ListEvents returns the event log of one run in emission order.
	ListEvents(ctx context.Context, auditID uuid.UUID, limit, offset int) ([]EventRecord, error)
}
