package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type exampleCountingSink struct {
	total int
}

func (s *exampleCountingSink) Consume(_ context.Context, batch []Event) error {
	s.total += len(batch)
	return nil
}

func (s *exampleCountingSink) Close(context.Context) error {
	return nil
}

// ExampleHub_Emit demonstrates emitting an event and flushing via Close.
func ExampleHub_Emit() {
	sink := &exampleCountingSink{}
	hub := NewHub(Config{
		BufferSize:     4,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, sink)

	hub.Emit(Event{
		AuditID:   UUIDToBytes(uuid.MustParse("00000000-0000-0000-0000-000000000001")),
		Timestamp: time.Unix(0, 0),
		Type:      TypeStart,
		Message:   "Démarrage de l'audit",
	})
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("events forwarded: %d\n", sink.total)
	// Output:
	// events forwarded: 1
}

// ExampleReporter_Tokens totals token usage with a custom Sink.
func ExampleReporter_Tokens() {
	var tokens int64
	capture := sinkFunc(func(_ context.Context, batch []Event) error {
		for _, evt := range batch {
			tokens += evt.Tokens
		}
		return nil
	})
	hub := NewHub(Config{
		BufferSize:     2,
		MaxBatchEvents: 1,
		MaxBatchWait:   time.Second,
	}, capture)

	reporter := NewReporter(hub, uuid.MustParse("00000000-0000-0000-0000-000000000002"), nil)
	reporter.Tokens("etape1", 1200, 300, 1500)
	if err := hub.Close(context.Background()); err != nil {
		panic(err)
	}

	fmt.Printf("tokens used: %d\n", tokens)
	// Output:
	// tokens used: 1500
}

type sinkFunc func(context.Context, []Event) error

func (f sinkFunc) Consume(ctx context.Context, batch []Event) error {
	return f(ctx, batch)
}

func (sinkFunc) Close(context.Context) error {
	return nil
}
