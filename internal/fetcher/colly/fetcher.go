// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/TheoCtla/SmartQA/internal/crawler"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Accept    string
	Timeout   time.Duration
}

// Fetcher implements crawler.Fetcher using the Colly collector.
// Non-2xx responses surface as errors.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.WithTransport(newHTTPTransport())

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}
}

// visit is what the collector callbacks observed for one URL.
type visit struct {
	resp crawler.FetchResponse
	err  error
}

// Fetch executes a single HTTP GET using Colly. The collector runs on its own
// goroutine; a cancelled ctx returns immediately and the late result is discarded.
func (f *Fetcher) Fetch(ctx context.Context, request crawler.FetchRequest) (crawler.FetchResponse, error) {
	out := &visit{}
	collector := f.collectorFor(request, time.Now(), out)
	collector.Context = ctx

	done := make(chan *visit, 1)
	go func() {
		if err := collector.Visit(request.URL); err != nil && out.err == nil {
			out.err = fmt.Errorf("colly visit failed: %w", err)
		}
		done <- out
	}()

	select {
	case <-ctx.Done():
		return crawler.FetchResponse{}, fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case v := <-done:
		if v.err != nil {
			return crawler.FetchResponse{}, v.err
		}
		return v.resp, nil
	}
}

func (f *Fetcher) collectorFor(request crawler.FetchRequest, start time.Time, out *visit) *colly.Collector {
	collector := f.baseCollector.Clone()
	// Clone shares the visited store, so revisits must stay allowed across audits.
	collector.AllowURLRevisit = true
	collector.IgnoreRobotsTxt = true
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)
	f.attach(collector, request, start, out)
	return collector
}

func (f *Fetcher) attach(hooks collectorHooks, request crawler.FetchRequest, start time.Time, out *visit) {
	hooks.OnRequest(func(r *colly.Request) {
		if f.cfg.Accept != "" {
			r.Headers.Set("Accept", f.cfg.Accept)
		}
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		if r.StatusCode < 200 || r.StatusCode > 299 {
			out.err = fmt.Errorf("colly response failed: status %d", r.StatusCode)
			return
		}
		out.resp = crawler.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			out.err = fmt.Errorf("colly response failed: status %d: %w", r.StatusCode, err)
			return
		}
		out.err = fmt.Errorf("colly response failed: %w", err)
	})
}

func (f *Fetcher) copyHeaders(request crawler.FetchRequest, r *colly.Request) {
	if request.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
