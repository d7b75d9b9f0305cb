package sinks

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/progress"
	"github.com/TheoCtla/SmartQA/internal/store"
)

// StoreSink persists progress through a store.ProgressRepository: run
// lifecycle rows plus the raw event log, one insert per batch.
type StoreSink struct {
	repo   store.ProgressRepository
	logger *zap.Logger
}

// NewStoreSink constructs a StoreSink for the provided repository.
func NewStoreSink(repo store.ProgressRepository, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{repo: repo, logger: logger}
}

// Consume updates run rows for lifecycle events and appends the batch to the
// event log. Events without an audit ID (connected) are skipped.
func (s *StoreSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.repo == nil {
		return nil
	}
	records := make([]store.EventRecord, 0, len(batch))
	for _, evt := range batch {
		if evt.AuditID == [16]byte{} {
			continue
		}
		if err := s.handleLifecycle(ctx, evt); err != nil {
			return err
		}
		records = append(records, store.EventRecord{
			AuditID: evt.AuditUUID(),
			Type:    string(evt.Type),
			Message: evt.Message,
			At:      evt.Timestamp,
			Tokens:  evt.Tokens,
		})
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.repo.AppendEvents(ctx, records); err != nil {
		return fmt.Errorf("append events: %w", err)
	}
	return nil
}

func (s *StoreSink) handleLifecycle(ctx context.Context, evt progress.Event) error {
	id := evt.AuditUUID()
	switch evt.Type {
	case progress.TypeStart:
		if err := s.repo.UpsertAuditStart(ctx, id, evt.Timestamp); err != nil {
			return fmt.Errorf("upsert audit start: %w", err)
		}
	case progress.TypeSuccess:
		if err := s.repo.CompleteAudit(ctx, id, evt.Timestamp, store.RunSuccess, nil); err != nil {
			return fmt.Errorf("complete audit: %w", err)
		}
	case progress.TypeError:
		var note *string
		if evt.Message != "" {
			note = &evt.Message
		}
		if err := s.repo.CompleteAudit(ctx, id, evt.Timestamp, store.RunError, note); err != nil {
			return fmt.Errorf("complete audit: %w", err)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *StoreSink) Close(context.Context) error {
	return nil
}
