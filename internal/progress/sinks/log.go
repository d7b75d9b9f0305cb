package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/progress"
)

// LogSink mirrors progress events into structured logs. The CLI uses it in
// place of a stream listener.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event, at warn level for warnings and errors.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("audit_id", evt.AuditUUID().String()),
			zap.String("type", string(evt.Type)),
			zap.Time("at", evt.Timestamp),
		}
		if evt.Tokens > 0 {
			fields = append(fields, zap.Int64("tokens", evt.Tokens))
		}
		switch evt.Type {
		case progress.TypeWarning, progress.TypeError:
			s.logger.Warn(evt.Message, fields...)
		default:
			s.logger.Info(evt.Message, fields...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
