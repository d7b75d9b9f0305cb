package progress

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Reporter stamps events with one audit ID and forwards them to an Emitter.
// A nil Reporter discards everything.
type Reporter struct {
	emitter Emitter
	auditID [16]byte
	now     func() time.Time
}

// NewReporter binds emitter to auditID. now defaults to time.Now in UTC.
func NewReporter(emitter Emitter, auditID uuid.UUID, now func() time.Time) *Reporter {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Reporter{emitter: emitter, auditID: UUIDToBytes(auditID), now: now}
}

// Report emits a formatted message of the given type.
func (r *Reporter) Report(typ Type, format string, args ...any) {
	if r == nil || r.emitter == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.emitter.Emit(Event{
		AuditID:   r.auditID,
		Type:      typ,
		Message:   msg,
		Timestamp: r.now(),
	})
}

// Tokens emits a token_usage event for one oracle call.
func (r *Reporter) Tokens(stage string, prompt, completion, total int64) {
	if r == nil || r.emitter == nil {
		return
	}
	r.emitter.Emit(Event{
		AuditID: r.auditID,
		Type:    TypeTokenUsage,
		Message: fmt.Sprintf("[Tokens] %s -> Prompt: %d | Réponse: %d | Total: %d",
			stage, prompt, completion, total),
		Timestamp: r.now(),
		Tokens:    total,
	})
}
