package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/TheoCtla/SmartQA/internal/store"
)

func newMockStore(t *testing.T) (*ProgressStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	s, err := NewProgressStoreWithPool(mock)
	require.NoError(t, err)
	return s, mock
}

func TestUpsertAuditStart(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("INSERT INTO audit_runs").
		WithArgs(id, at, store.RunRunning).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertAuditStart(context.Background(), id, at))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAuditMissingRow(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectExec("UPDATE audit_runs").
		WithArgs(at, store.RunSuccess, (*string)(nil), id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteAudit(context.Background(), id, at, store.RunSuccess, nil)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteAuditExecError(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	msg := "boom"
	mock.ExpectExec("UPDATE audit_runs").
		WithArgs(pgxmock.AnyArg(), store.RunError, &msg, id).
		WillReturnError(errors.New("conn reset"))

	err := s.CompleteAudit(context.Background(), id, time.Now(), store.RunError, &msg)
	require.ErrorContains(t, err, "conn reset")
}

func TestAppendEventsUsesCopy(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	now := time.Unix(1700000000, 0).UTC()
	mock.ExpectCopyFrom(pgx.Identifier{"audit_events"}, eventColumns).
		WillReturnResult(2)

	err := s.AppendEvents(context.Background(), []store.EventRecord{
		{AuditID: id, Type: "start", Message: "Démarrage", At: now},
		{AuditID: id, Type: "token_usage", Message: "[Tokens]", At: now, Tokens: 10},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendEventsEmptyIsNoop(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	require.NoError(t, s.AppendEvents(context.Background(), nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAuditNotFound(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery("SELECT id, started_at").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAudit(context.Background(), id)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListAuditsFiltersByStatus(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	started := time.Unix(1700000000, 0).UTC()
	status := store.RunSuccess
	rows := pgxmock.NewRows([]string{"id", "started_at", "finished_at", "status", "error_message"}).
		AddRow(id, started, (*time.Time)(nil), store.RunSuccess, (*string)(nil))
	mock.ExpectQuery("WHERE status = \\$1").
		WithArgs(status, 10, 0).
		WillReturnRows(rows)

	runs, err := s.ListAudits(context.Background(), &status, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, id, runs[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEvents(t *testing.T) {
	t.Parallel()

	s, mock := newMockStore(t)
	defer mock.Close()

	id := uuid.New()
	at := time.Unix(1700000000, 0).UTC()
	rows := pgxmock.NewRows([]string{"audit_id", "type", "message", "at", "tokens"}).
		AddRow(id, "page", "Page 1/2: /", at, int64(0)).
		AddRow(id, "token_usage", "[Tokens]", at, int64(99))
	mock.ExpectQuery("FROM audit_events").
		WithArgs(id, 50, 0).
		WillReturnRows(rows)

	events, err := s.ListEvents(context.Background(), id, 50, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(99), events[1].Tokens)
}

func TestNewProgressStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewProgressStore(context.Background(), Config{})
	require.Error(t, err)
	_, err = NewProgressStoreWithPool(nil)
	require.Error(t, err)
}

func TestPingWrapsError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	s, err := NewProgressStoreWithPool(mock)
	require.NoError(t, err)

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	err = s.Ping(context.Background())
	require.ErrorContains(t, err, "ping postgres")
	require.NoError(t, mock.ExpectationsWereMet())
}
