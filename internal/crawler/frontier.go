package crawler

import (
	"context"
	"time"
)

// frontier is the FIFO of pending URLs plus the visited and queued sets.
type frontier struct {
	queue   []string
	queued  map[string]struct{}
	visited map[string]struct{}
}

func newFrontier(seed string) *frontier {
	return &frontier{
		queue:   []string{seed},
		queued:  map[string]struct{}{seed: {}},
		visited: make(map[string]struct{}),
	}
}

func (f *frontier) pending() bool { return len(f.queue) > 0 }

func (f *frontier) visitedCount() int { return len(f.visited) }

// next pops the head of the queue and marks it visited. It returns false when
// the head was already visited.
func (f *frontier) next() (string, bool) {
	u := f.queue[0]
	f.queue = f.queue[1:]
	delete(f.queued, u)
	if _, ok := f.visited[u]; ok {
		return u, false
	}
	f.visited[u] = struct{}{}
	return u, true
}

// push enqueues u unless it was visited or is already waiting.
func (f *frontier) push(u string) bool {
	if _, ok := f.visited[u]; ok {
		return false
	}
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// pauseController abstracts the courtesy wait between fetches.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration)
}

type timerPauseController struct{}

func (timerPauseController) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
