// Package memory provides a scripted oracle for tests and offline runs.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/TheoCtla/SmartQA/internal/oracle"
)

// ErrScriptExhausted is returned when no scripted reply is left.
var ErrScriptExhausted = errors.New("memory oracle: no scripted reply left")

// Reply is one scripted answer.
type Reply struct {
	Text  string
	Usage oracle.Usage
	Err   error
}

// Responder computes a reply from the prompt.
type Responder func(prompt string) Reply

// Client replays replies in order, or delegates to a Responder when set.
type Client struct {
	mu        sync.Mutex
	replies   []Reply
	responder Responder
	prompts   []string
}

// NewScripted returns a Client that answers with replies in order.
func NewScripted(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// NewResponder returns a Client that answers every prompt with fn.
func NewResponder(fn Responder) *Client {
	return &Client{responder: fn}
}

// Complete implements oracle.Client.
func (c *Client) Complete(ctx context.Context, prompt string) (oracle.Completion, error) {
	if err := ctx.Err(); err != nil {
		return oracle.Completion{}, err
	}
	c.mu.Lock()
	c.prompts = append(c.prompts, prompt)
	var reply Reply
	switch {
	case c.responder != nil:
		c.mu.Unlock()
		reply = c.responder(prompt)
	case len(c.replies) == 0:
		c.mu.Unlock()
		return oracle.Completion{}, ErrScriptExhausted
	default:
		reply = c.replies[0]
		c.replies = c.replies[1:]
		c.mu.Unlock()
	}
	if reply.Err != nil {
		return oracle.Completion{}, reply.Err
	}
	return oracle.Completion{Text: reply.Text, Usage: reply.Usage}, nil
}

// Prompts returns a copy of every prompt received so far.
func (c *Client) Prompts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.prompts...)
}
