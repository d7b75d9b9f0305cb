package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
	"github.com/TheoCtla/SmartQA/internal/crawler"
	idgen "github.com/TheoCtla/SmartQA/internal/id/uuid"
	"github.com/TheoCtla/SmartQA/internal/linkcheck"
	"github.com/TheoCtla/SmartQA/internal/metrics"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
	"github.com/TheoCtla/SmartQA/internal/progress"
)

// EventCompleted is the notification published after a successful audit.
const EventCompleted = "audit.completed"

// Crawler walks the audited site.
type Crawler interface {
	Crawl(ctx context.Context, startURL string, maxPages int, notifier crawler.Notifier) (crawler.SiteSnapshot, error)
}

// Analyzer runs the oracle stages.
type Analyzer interface {
	Run(ctx context.Context, snapshot crawler.SiteSnapshot, actx pipeline.AnalysisContext,
		notifier pipeline.Notifier) (pipeline.Results, error)
}

// LinkProber checks external links over HTTP.
type LinkProber interface {
	ProbeAll(ctx context.Context, links []linkcheck.Link) ([]linkcheck.Probed, error)
}

// Publisher delivers completion notifications.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) (string, error)
}

// IDGenerator issues audit IDs.
type IDGenerator interface {
	NewRawID() (uuid.UUID, error)
}

// Clock supplies the audit date.
type Clock interface {
	Now() time.Time
}

// Dependencies are the collaborators of a Service. Crawler, Analyzer and
// Prober are required. MaxPages replaces a missing max_pages.
type Dependencies struct {
	MaxPages  int
	Crawler   Crawler
	Analyzer  Analyzer
	Prober    LinkProber
	Publisher Publisher
	Emitter   progress.Emitter
	IDs       IDGenerator
	Clock     Clock
	Logger    *zap.Logger
}

// Completed is the payload of an EventCompleted notification.
type Completed struct {
	AuditID     string            `json:"audit_id"`
	URL         string            `json:"url"`
	Company     string            `json:"entreprise"`
	Pages       int               `json:"pages_analysees"`
	Decision    pipeline.Decision `json:"decision"`
	BrokenLinks int               `json:"liens_casses"`
	Duration    float64           `json:"duree_secondes"`
	CompletedAt time.Time         `json:"date_fin"`
}

// Service runs complete audits.
type Service struct {
	maxPages  int
	crawler   Crawler
	analyzer  Analyzer
	prober    LinkProber
	publisher Publisher
	emitter   progress.Emitter
	ids       IDGenerator
	clock     Clock
	logger    *zap.Logger
	duration  metric.Float64Histogram
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// New builds a Service.
func New(deps Dependencies) (*Service, error) {
	switch {
	case deps.Crawler == nil:
		return nil, errors.New("crawler is required")
	case deps.Analyzer == nil:
		return nil, errors.New("analyzer is required")
	case deps.Prober == nil:
		return nil, errors.New("link prober is required")
	}
	if deps.MaxPages <= 0 {
		deps.MaxPages = crawler.DefaultMaxPages
	}
	if deps.IDs == nil {
		deps.IDs = idgen.New()
	}
	if deps.Clock == nil {
		deps.Clock = utcClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	duration, err := otel.Meter("smartqa/audit").Float64Histogram(
		"smartqa.audit.duration",
		metric.WithDescription("Wall time of complete audits."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("audit duration histogram: %w", err)
	}
	return &Service{
		maxPages:  deps.MaxPages,
		crawler:   deps.Crawler,
		analyzer:  deps.Analyzer,
		prober:    deps.Prober,
		publisher: deps.Publisher,
		emitter:   deps.Emitter,
		ids:       deps.IDs,
		clock:     deps.Clock,
		logger:    deps.Logger,
		duration:  duration,
	}, nil
}

// Run validates req, crawls the site, then runs the oracle stages and the
// link probes concurrently and merges everything into a report. Any
// unexpected error fails the whole audit; no partial report is returned.
func (s *Service) Run(ctx context.Context, req Request) (aggregate.Report, error) {
	if req.MaxPages <= 0 {
		req.MaxPages = s.maxPages
	}
	req, err := Normalize(req)
	if err != nil {
		metrics.ObserveAudit("invalid")
		return aggregate.Report{}, err
	}
	id, err := s.ids.NewRawID()
	if err != nil {
		return aggregate.Report{}, fmt.Errorf("audit id: %w", err)
	}
	auditID := id.String()
	reporter := progress.NewReporter(s.emitter, id, s.clock.Now)
	logger := s.logger.With(zap.String("audit_id", auditID), zap.String("url", req.URL))

	ctx, span := otel.Tracer("smartqa/audit").Start(ctx, "audit.Run")
	defer span.End()
	span.SetAttributes(attribute.String("audit_id", auditID), attribute.String("url", req.URL))

	start := s.clock.Now()
	reporter.Report(progress.TypeStart, "Démarrage de l'audit pour: %s", req.URL)
	logger.Info("audit starting", zap.Int("max_pages", req.MaxPages))

	report, err := s.run(ctx, auditID, req, reporter)
	elapsed := s.clock.Now().Sub(start)
	if err != nil {
		var verr *ValidationError
		status := "error"
		if errors.As(err, &verr) {
			status = "invalid"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveAudit(status)
		s.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", status)))
		reporter.Report(progress.TypeError, "Erreur lors de l'audit: %v", err)
		logger.Error("audit failed", zap.Error(err))
		return aggregate.Report{}, err
	}

	metrics.ObserveAudit("success")
	s.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("status", "success")))
	reporter.Report(progress.TypeSuccess, "Audit terminé avec succès. Décision: %s", report.Stage6.Decision)
	logger.Info("audit finished",
		zap.Int("pages", report.Meta.PagesAnalyzed),
		zap.String("decision", string(report.Stage6.Decision)),
		zap.Duration("elapsed", elapsed),
	)
	s.notify(ctx, report, elapsed, logger)
	return report, nil
}

func (s *Service) run(ctx context.Context, auditID string, req Request, reporter *progress.Reporter) (aggregate.Report, error) {
	reporter.Report(progress.TypeInfo, "Phase 1: Scraping du site...")
	snapshot, err := s.crawler.Crawl(ctx, req.URL, req.MaxPages, reporter)
	if err != nil {
		if errors.Is(err, crawler.ErrInvalidStartURL) {
			return aggregate.Report{}, &ValidationError{Field: "url", Message: MsgURLInvalid}
		}
		return aggregate.Report{}, fmt.Errorf("crawl: %w", err)
	}
	reporter.Report(progress.TypeInfo, "%d pages scrapées", len(snapshot.Pages))

	links := linkcheck.DeduplicateLinks(snapshot.ExternalLinks())
	reporter.Report(progress.TypeInfo, "Phase 2: Analyse IA (6 étapes) et vérification de %d liens externes", len(links))

	var (
		results pipeline.Results
		probed  []linkcheck.Probed
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		results, err = s.analyzer.Run(gctx, snapshot, req, reporter)
		if err != nil {
			return fmt.Errorf("analysis: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		probed, err = s.prober.ProbeAll(gctx, links)
		if err != nil {
			return fmt.Errorf("link probing: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return aggregate.Report{}, err
	}

	return aggregate.BuildReport(aggregate.Input{
		AuditID:  auditID,
		Context:  req,
		Snapshot: snapshot,
		Results:  results,
		Probed:   probed,
		Now:      s.clock.Now(),
	}), nil
}

// notify publishes the completion summary. Failures are only logged.
func (s *Service) notify(ctx context.Context, report aggregate.Report, elapsed time.Duration, logger *zap.Logger) {
	if s.publisher == nil {
		return
	}
	broken := 0
	for _, l := range report.Consolidated.Links {
		if l.HTTPStatus == linkcheck.StatusBroken || l.HTTPStatus == linkcheck.StatusError {
			broken++
		}
	}
	msgID, err := s.publisher.Publish(ctx, EventCompleted, Completed{
		AuditID:     report.Meta.AuditID,
		URL:         report.Meta.AuditedURL,
		Company:     report.Meta.Company,
		Pages:       report.Meta.PagesAnalyzed,
		Decision:    report.Stage6.Decision,
		BrokenLinks: broken,
		Duration:    elapsed.Seconds(),
		CompletedAt: report.Meta.AuditDate,
	})
	if err != nil {
		logger.Warn("completion notification failed", zap.Error(err))
		return
	}
	logger.Debug("completion notification published", zap.String("message_id", msgID))
}
