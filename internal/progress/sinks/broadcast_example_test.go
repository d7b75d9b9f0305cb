package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/TheoCtla/SmartQA/internal/progress"
)

// ExampleBroadcaster shows a listener attached to a Hub through the broadcaster.
func ExampleBroadcaster() {
	b := NewBroadcaster(8, nil)
	ch, cancel := b.Subscribe(context.Background())
	defer cancel()

	hub := progress.NewHub(progress.Config{MaxBatchEvents: 1, MaxBatchWait: time.Second}, b)
	hub.Emit(progress.Event{Type: progress.TypeInfo, Message: "Scraping du contenu..."})

	fmt.Println((<-ch).Type)
	fmt.Println((<-ch).Message)
	_ = hub.Close(context.Background())
	// Output:
	// connected
	// Scraping du contenu...
}
