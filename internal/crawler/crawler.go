package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/extractor"
	"github.com/TheoCtla/SmartQA/internal/metrics"
	"github.com/TheoCtla/SmartQA/internal/progress"
)

// DefaultMaxPages is used when a caller passes maxPages <= 0.
const DefaultMaxPages = 20

// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
var ErrInvalidStartURL = errors.New("URL de départ invalide")

// Config holds the settings for a crawl.
type Config struct {
	// Delay is the courtesy pause between two fetches.
	Delay time.Duration
	// MaxPages replaces a non-positive budget passed to Crawl.
	MaxPages int
}

// Dependencies are the collaborators a Crawler needs. Only Fetcher is required.
type Dependencies struct {
	Fetcher   Fetcher
	Headless  Fetcher
	Detector  HeadlessDetector
	Extractor *extractor.Extractor
	Logger    *zap.Logger
}

// Crawler performs sequential breadth-first crawls restricted to one hostname.
type Crawler struct {
	cfg       Config
	fetcher   Fetcher
	headless  Fetcher
	detector  HeadlessDetector
	extractor *extractor.Extractor
	pause     pauseController
	logger    *zap.Logger
}

// New builds a Crawler.
func New(cfg Config, deps Dependencies) (*Crawler, error) {
	if deps.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultMaxPages
	}
	if deps.Extractor == nil {
		deps.Extractor = extractor.New(extractor.Options{Logger: deps.Logger})
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Crawler{
		cfg:       cfg,
		fetcher:   deps.Fetcher,
		headless:  deps.Headless,
		detector:  deps.Detector,
		extractor: deps.Extractor,
		pause:     timerPauseController{},
		logger:    deps.Logger,
	}, nil
}

// Crawl fetches up to maxPages pages reachable from startURL. Pages that fail
// to fetch are reported, stay visited and are absent from the snapshot.
func (c *Crawler) Crawl(ctx context.Context, startURL string, maxPages int, notifier Notifier) (SiteSnapshot, error) {
	start, err := url.Parse(startURL)
	if err != nil || (start.Scheme != "http" && start.Scheme != "https") || start.Hostname() == "" {
		return SiteSnapshot{}, fmt.Errorf("%w: %q", ErrInvalidStartURL, startURL)
	}
	if maxPages <= 0 {
		maxPages = c.cfg.MaxPages
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}

	ctx, span := otel.Tracer("smartqa/crawler").Start(ctx, "crawler.Crawl")
	defer span.End()
	span.SetAttributes(attribute.String("start_url", startURL), attribute.Int("max_pages", maxPages))

	snapshot := SiteSnapshot{BaseURL: startURL, BaseHostname: start.Hostname()}
	queue := newFrontier(startURL)
	c.logger.Info("crawl starting", zap.String("url", startURL), zap.Int("max_pages", maxPages))

	for queue.pending() && queue.visitedCount() < maxPages {
		if err := ctx.Err(); err != nil {
			return SiteSnapshot{}, fmt.Errorf("crawl canceled: %w", err)
		}
		pageURL, fresh := queue.next()
		if !fresh {
			continue
		}

		notifier.Report(progress.TypePage, "Page %d/%d: %s", queue.visitedCount(), maxPages, pathOf(pageURL))
		page, err := c.visit(ctx, pageURL, snapshot.BaseHostname)
		if err != nil {
			c.logger.Warn("page fetch failed", zap.String("url", pageURL), zap.Error(err))
			notifier.Report(progress.TypeWarning, "Erreur sur %s: %v", pageURL, err)
		} else {
			snapshot.add(page)
			for _, link := range page.InternalLinks {
				if c.sameSite(link, snapshot.BaseHostname) {
					queue.push(link)
				}
			}
		}

		if queue.pending() && queue.visitedCount() < maxPages {
			c.pause.Pause(ctx, c.cfg.Delay)
		}
	}

	span.SetAttributes(attribute.Int("pages", len(snapshot.Pages)))
	c.logger.Info("crawl finished",
		zap.String("url", startURL),
		zap.Int("visited", queue.visitedCount()),
		zap.Int("pages", len(snapshot.Pages)),
	)
	return snapshot, nil
}

func (c *Crawler) visit(ctx context.Context, pageURL, baseHostname string) (extractor.Page, error) {
	resp, err := c.fetch(ctx, pageURL)
	if err != nil {
		metrics.ObservePage(pageURL, "error", 0)
		return extractor.Page{}, err
	}
	metrics.ObservePage(pageURL, "success", len(resp.Body))

	page, err := c.extractor.Extract(resp.Body, pageURL, baseHostname)
	if err != nil {
		return extractor.Page{}, fmt.Errorf("extract %s: %w", pageURL, err)
	}
	return page, nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (FetchResponse, error) {
	req := FetchRequest{URL: pageURL}
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		return FetchResponse{}, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return FetchResponse{}, fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}
	if c.headless == nil || c.detector == nil || !c.detector.ShouldPromote(resp) {
		return resp, nil
	}

	rendered, err := c.headless.Fetch(ctx, req)
	if err != nil {
		c.logger.Warn("headless fetch failed, keeping static body", zap.String("url", pageURL), zap.Error(err))
		return resp, nil
	}
	metrics.ObserveHeadlessPromotion()
	return rendered, nil
}

func (c *Crawler) sameSite(rawURL, baseHostname string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return extractor.SameSite(u.Hostname(), baseHostname)
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
