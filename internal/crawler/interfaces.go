package crawler

import (
	"context"
	"net/http"
	"time"

	"github.com/TheoCtla/SmartQA/internal/progress"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a headless fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// Notifier receives human-readable progress lines.
type Notifier interface {
	Report(typ progress.Type, format string, args ...any)
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

type nopNotifier struct{}

func (nopNotifier) Report(progress.Type, string, ...any) {}
