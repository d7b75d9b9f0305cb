package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/TheoCtla/SmartQA/internal/progress"
	"github.com/TheoCtla/SmartQA/internal/store"
)

// TestStoreSinkPersistsEvents ensures lifecycle rows are written and the batch is appended once.
func TestStoreSinkPersistsEvents(t *testing.T) {
	t.Parallel()

	repo := &fakeProgressRepo{}
	sink := NewStoreSink(repo, nil)
	auditUUID := uuid.New()
	auditID := progress.UUIDToBytes(auditUUID)
	now := time.Now()

	batch := []progress.Event{
		{Type: progress.TypeConnected, Timestamp: now},
		{AuditID: auditID, Type: progress.TypeStart, Timestamp: now},
		{AuditID: auditID, Type: progress.TypePage, Message: "Page 1/1: /", Timestamp: now.Add(time.Second)},
		{AuditID: auditID, Type: progress.TypeTokenUsage, Tokens: 42, Timestamp: now.Add(2 * time.Second)},
		{AuditID: auditID, Type: progress.TypeSuccess, Timestamp: now.Add(3 * time.Second)},
	}

	require.NoError(t, sink.Consume(context.Background(), batch))

	require.Equal(t, []uuid.UUID{auditUUID}, repo.starts)
	require.Equal(t, []store.RunStatus{store.RunSuccess}, repo.completes)
	require.Equal(t, 1, repo.appendCalls)
	require.Len(t, repo.events, 4)
	require.Equal(t, int64(42), repo.events[2].Tokens)
}

func TestStoreSinkRecordsErrorNote(t *testing.T) {
	t.Parallel()

	repo := &fakeProgressRepo{}
	sink := NewStoreSink(repo, nil)
	auditID := progress.UUIDToBytes(uuid.New())
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{AuditID: auditID, Type: progress.TypeError, Message: "boom", Timestamp: time.Now()},
	}))
	require.Equal(t, []store.RunStatus{store.RunError}, repo.completes)
	require.Equal(t, "boom", repo.lastNote)
}

// TestStoreSinkHandlesErrors surfaces repository failures back to the caller.
func TestStoreSinkHandlesErrors(t *testing.T) {
	t.Parallel()

	repo := &fakeProgressRepo{fail: true}
	sink := NewStoreSink(repo, nil)
	auditID := progress.UUIDToBytes(uuid.New())
	err := sink.Consume(context.Background(), []progress.Event{
		{AuditID: auditID, Type: progress.TypeStart, Timestamp: time.Now()},
	})
	require.Error(t, err)
}

func TestStoreSinkWithoutRepo(t *testing.T) {
	t.Parallel()

	sink := NewStoreSink(nil, nil)
	require.NoError(t, sink.Consume(context.Background(), []progress.Event{
		{Type: progress.TypeStart, Timestamp: time.Now()},
	}))
}

type fakeProgressRepo struct {
	fail        bool
	starts      []uuid.UUID
	completes   []store.RunStatus
	lastNote    string
	appendCalls int
	events      []store.EventRecord
}

var errRepo = errors.New("repo failure")

func (f *fakeProgressRepo) UpsertAuditStart(_ context.Context, auditID uuid.UUID, _ time.Time) error {
	if f.fail {
		return errRepo
	}
	f.starts = append(f.starts, auditID)
	return nil
}

func (f *fakeProgressRepo) CompleteAudit(
	_ context.Context,
	_ uuid.UUID,
	_ time.Time,
	status store.RunStatus,
	errMsg *string,
) error {
	if f.fail {
		return errRepo
	}
	f.completes = append(f.completes, status)
	if errMsg != nil {
		f.lastNote = *errMsg
	}
	return nil
}

func (f *fakeProgressRepo) AppendEvents(_ context.Context, events []store.EventRecord) error {
	if f.fail {
		return errRepo
	}
	f.appendCalls++
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeProgressRepo) GetAudit(context.Context, uuid.UUID) (store.AuditRun, error) {
	return store.AuditRun{}, store.ErrNotFound
}

func (f *fakeProgressRepo) ListAudits(context.Context, *store.RunStatus, int, int) ([]store.AuditRun, error) {
	return nil, nil
}

func (f *fakeProgressRepo) ListEvents(context.Context, uuid.UUID, int, int) ([]store.EventRecord, error) {
	return nil, nil
}
