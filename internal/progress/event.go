// Package progress defines the events an audit emits while it runs.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type tags the kind of progress message carried by an Event.
type Type string

// Supported event types. Listeners receive TypeConnected once on subscribe.
const (
	TypeConnected  Type = "connected"
	TypeStart      Type = "start"
	TypeInfo       Type = "info"
	TypePage       Type = "page"
	TypeStep       Type = "step"
	TypeTokenUsage Type = "token_usage"
	TypeWarning    Type = "warning"
	TypeSuccess    Type = "success"
	TypeError      Type = "error"
)

// Event is a single line of audit progress.
type Event struct {
	// AuditID identifies the audit run using the 16-byte UUID form.
	AuditID [16]byte
	// Type classifies the message for listeners and sinks.
	Type Type
	// Message is the human readable text shown to listeners.
	Message string
	// Timestamp is the UTC time recorded by the emitter.
	Timestamp time.Time
	// Tokens carries the total token count for TypeTokenUsage events.
	Tokens int64
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.Timestamp.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Type {
	case TypeConnected:
	case TypeStart, TypeSuccess, TypeError:
		if e.AuditID == [16]byte{} {
			return fmt.Errorf("%s event requires audit id", e.Type)
		}
	case TypeInfo, TypePage, TypeStep, TypeWarning:
		if e.Message == "" {
			return fmt.Errorf("%s event requires message", e.Type)
		}
	case TypeTokenUsage:
		if e.Tokens < 0 {
			return errors.New("tokens must be >= 0")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}

// AuditUUID converts the binary audit ID to uuid.UUID for repositories.
func (e Event) AuditUUID() uuid.UUID {
	return uuid.UUID(e.AuditID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}

// Wire is the JSON shape pushed to stream listeners.
type Wire struct {
	AuditID   string `json:"audit_id,omitempty"`
	Type      Type   `json:"type"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ToWire renders the event for listeners. Timestamps use RFC 3339 with millis.
func (e Event) ToWire() Wire {
	w := Wire{
		Type:      e.Type,
		Message:   e.Message,
		Timestamp: e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	if e.AuditID != [16]byte{} {
		w.AuditID = e.AuditUUID().String()
	}
	return w
}
