package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/TheoCtla/SmartQA/internal/oracle"
)

func TestScriptedRepliesInOrder(t *testing.T) {
	t.Parallel()

	c := NewScripted(
		Reply{Text: "one", Usage: oracle.Usage{TotalTokens: 3}},
		Reply{Err: errors.New("quota")},
	)
	ctx := context.Background()

	got, err := c.Complete(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "one", got.Text)
	require.Equal(t, int64(3), got.Usage.TotalTokens)

	_, err = c.Complete(ctx, "p2")
	require.EqualError(t, err, "quota")

	_, err = c.Complete(ctx, "p3")
	require.ErrorIs(t, err, ErrScriptExhausted)
	require.Equal(t, []string{"p1", "p2", "p3"}, c.Prompts())
}

func TestResponderAndCanceledContext(t *testing.T) {
	t.Parallel()

	c := NewResponder(func(prompt string) Reply { return Reply{Text: "echo:" + prompt} })
	got, err := c.Complete(context.Background(), "x")
	require.NoError(t, err)
	require.Equal(t, "echo:x", got.Text)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Complete(ctx, "y")
	require.ErrorIs(t, err, context.Canceled)
}
