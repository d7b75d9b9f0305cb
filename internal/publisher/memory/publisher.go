// Package memory keeps audit notifications in memory for tests and local runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Message is one recorded notification.
type Message struct {
	EventType string
	Data      json.RawMessage
}

// DefaultRetain is how many messages New keeps.
const DefaultRetain = 256

// Publisher records notifications as the JSON a broker would receive. Only
// the most recent messages are retained.
type Publisher struct {
	mu       sync.RWMutex
	messages []Message
	retain   int
	sent     int
	err      error
}

// New returns an empty Publisher retaining DefaultRetain messages.
func New() *Publisher {
	return NewWithRetain(DefaultRetain)
}

// NewWithRetain returns an empty Publisher keeping the last n messages.
func NewWithRetain(n int) *Publisher {
	if n <= 0 {
		n = DefaultRetain
	}
	return &Publisher{retain: n}
}

// FailWith makes every later Publish return err. A nil err clears it.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// Publish encodes payload and records it under eventType.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, Message{EventType: eventType, Data: data})
	if len(p.messages) > p.retain {
		p.messages = append(p.messages[:0], p.messages[len(p.messages)-p.retain:]...)
	}
	p.sent++
	return fmt.Sprintf("memory-%d", p.sent), nil
}

// Messages returns a copy of the recorded notifications.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}
