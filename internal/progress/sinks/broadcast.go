package sinks

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/progress"
)

const defaultListenerBuffer = 64

// Broadcaster fans progress events out to live stream listeners. It is built
// once per process and handed to whoever serves the stream. Delivery is best
// effort: a listener whose buffer is full misses the event.
type Broadcaster struct {
	mu        sync.Mutex
	listeners map[uint64]*listener
	nextID    uint64
	buffer    int
	closed    bool
	now       func() time.Time
	logger    *zap.Logger
}

type listener struct {
	ch      chan progress.Event
	once    sync.Once
	dropped int64
}

// NewBroadcaster builds a Broadcaster whose listeners buffer up to buffer events.
func NewBroadcaster(buffer int, logger *zap.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = defaultListenerBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		listeners: make(map[uint64]*listener),
		buffer:    buffer,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    logger,
	}
}

// Subscribe registers a listener. The returned channel first yields a
// connected event. The listener is removed when ctx ends or the returned
// cancel func is called, whichever comes first; its channel is then closed.
func (b *Broadcaster) Subscribe(ctx context.Context) (<-chan progress.Event, func()) {
	l := &listener{ch: make(chan progress.Event, b.buffer)}
	l.ch <- progress.Event{
		Type:      progress.TypeConnected,
		Message:   "Connecté au flux de logs",
		Timestamp: b.now(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(l.ch)
		return l.ch, func() {}
	}
	b.nextID++
	id := b.nextID
	b.listeners[id] = l
	b.mu.Unlock()

	stop := make(chan struct{})
	var stopOnce sync.Once
	cancel := func() {
		stopOnce.Do(func() { close(stop) })
		b.remove(id)
	}
	go func() {
		select {
		case <-ctx.Done():
			b.remove(id)
		case <-stop:
		}
	}()
	return l.ch, cancel
}

// Listeners reports the number of live listeners.
func (b *Broadcaster) Listeners() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

func (b *Broadcaster) remove(id uint64) {
	b.mu.Lock()
	l, ok := b.listeners[id]
	if ok {
		delete(b.listeners, id)
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	l.close()
	if l.dropped > 0 {
		b.logger.Debug("stream listener left with dropped events", zap.Int64("dropped", l.dropped))
	}
}

// Consume pushes each event to every listener without blocking.
func (b *Broadcaster) Consume(_ context.Context, batch []progress.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, evt := range batch {
		for _, l := range b.listeners {
			select {
			case l.ch <- evt:
			default:
				l.dropped++
			}
		}
	}
	return nil
}

// Close disconnects every listener. Later subscribers get a closed channel.
func (b *Broadcaster) Close(context.Context) error {
	b.mu.Lock()
	b.closed = true
	listeners := b.listeners
	b.listeners = make(map[uint64]*listener)
	b.mu.Unlock()
	for _, l := range listeners {
		l.close()
	}
	return nil
}

func (l *listener) close() {
	l.once.Do(func() { close(l.ch) })
}
