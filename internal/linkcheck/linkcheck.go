// Package linkcheck probes external links over HTTP and classifies them as
// ok, broken or error.
package linkcheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/metrics"
)

// Status is the outcome of a probe.
type Status string

// Probe outcomes.
const (
	StatusOK     Status = "ok"
	StatusBroken Status = "broken"
	StatusError  Status = "error"
)

// Error codes reported when no HTTP response was obtained.
const (
	CodeTimeout      = "Timeout"
	CodeConnRefused  = "ECONNREFUSED"
	CodeNotFound     = "ENOTFOUND"
	CodeConnReset    = "ECONNRESET"
	CodeTLS          = "TLS"
	CodeGenericError = "Erreur"
)

const (
	defaultTimeout      = 5 * time.Second
	defaultMaxRedirects = 5
	// DefaultConcurrency is the batch size used by ProbeAll.
	DefaultConcurrency = 5
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
)

// Result is the probe outcome for one URL. Code is the numeric HTTP status
// for ok and broken, or an error code.
type Result struct {
	URL    string `json:"url"`
	Status Status `json:"httpStatus"`
	Code   string `json:"httpCode"`
}

// Link is a deduplicated external link with the paths of the pages citing it.
type Link struct {
	URL   string   `json:"url"`
	Text  string   `json:"texte"`
	Pages []string `json:"pages"`
}

// Probed pairs a Link with its probe Result.
type Probed struct {
	Link
	Result Result `json:"result"`
}

// Config controls the prober.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
	Concurrency  int
}

// Checker issues HEAD-then-GET probes.
type Checker struct {
	client      *http.Client
	userAgent   string
	concurrency int
	logger      *zap.Logger
}

// New builds a Checker. A nil logger disables logging.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &Checker{client: client, userAgent: cfg.UserAgent, concurrency: cfg.Concurrency, logger: logger}
}

// Probe checks one URL. Every HTTP status is accepted; 200-399 is ok and
// anything else broken. A transport failure on HEAD is retried once with GET.
func (c *Checker) Probe(ctx context.Context, rawURL string) Result {
	code, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		c.logger.Debug("head probe failed, retrying with get", zap.String("url", rawURL), zap.Error(err))
		code, err = c.do(ctx, http.MethodGet, rawURL)
	}
	var res Result
	switch {
	case err != nil:
		res = Result{URL: rawURL, Status: StatusError, Code: ErrorCode(err)}
	case code >= 200 && code < 400:
		res = Result{URL: rawURL, Status: StatusOK, Code: strconv.Itoa(code)}
	default:
		res = Result{URL: rawURL, Status: StatusBroken, Code: strconv.Itoa(code)}
	}
	metrics.ObserveLinkProbe(string(res.Status))
	return res
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck // body is discarded
	return resp.StatusCode, nil
}

// ProbeAll probes links in fixed-size batches; members of a batch run
// concurrently. Results keep the input order.
func (c *Checker) ProbeAll(ctx context.Context, links []Link) ([]Probed, error) {
	ctx, span := otel.Tracer("smartqa/linkcheck").Start(ctx, "linkcheck.ProbeAll")
	defer span.End()
	span.SetAttributes(attribute.Int("links", len(links)))

	out := make([]Probed, len(links))
	for start := 0; start < len(links); start += c.concurrency {
		end := min(start+c.concurrency, len(links))
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				out[i] = Probed{Link: links[i], Result: c.Probe(gctx, links[i].URL)}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("link probing canceled: %w", err)
		}
	}
	return out, nil
}

// ErrorCode maps a transport error to a short code.
func ErrorCode(err error) string {
	var netErr net.Error
	var dnsErr *net.DNSError
	var tlsRecord tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var invalidCert x509.CertificateInvalidError
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return CodeTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		return CodeTimeout
	case errors.As(err, &dnsErr):
		return CodeNotFound
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnRefused
	case errors.Is(err, syscall.ECONNRESET):
		return CodeConnReset
	case errors.As(err, &tlsRecord), errors.As(err, &certErr), errors.As(err, &unknownAuth),
		errors.As(err, &hostErr), errors.As(err, &invalidCert):
		return CodeTLS
	default:
		return CodeGenericError
	}
}

// DeduplicateLinks collapses links by URL, keeping the first text and
// collecting the path of every distinct citing page.
func DeduplicateLinks(links []crawler.SourcedLink) []Link {
	index := make(map[string]int)
	var out []Link
	for _, l := range links {
		u, text := l.URL, l.Text
		slug := PagePath(l.PageURL)
		if i, ok := index[u]; ok {
			if !slices.Contains(out[i].Pages, slug) {
				out[i].Pages = append(out[i].Pages, slug)
			}
			continue
		}
		index[u] = len(out)
		out = append(out, Link{URL: u, Text: text, Pages: []string{slug}})
	}
	return out
}

// PagePath returns the path of pageURL, "/" when it has none.
func PagePath(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Path == "" {
		return "/"
	}
	return u.Path
}
