// Package server builds the SmartQA object graph and runs the HTTP service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/api"
	"github.com/TheoCtla/SmartQA/internal/audit"
	"github.com/TheoCtla/SmartQA/internal/clock/system"
	"github.com/TheoCtla/SmartQA/internal/config"
	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/extractor"
	collyfetcher "github.com/TheoCtla/SmartQA/internal/fetcher/colly"
	headlessfetcher "github.com/TheoCtla/SmartQA/internal/fetcher/headless"
	"github.com/TheoCtla/SmartQA/internal/headless/detector"
	"github.com/TheoCtla/SmartQA/internal/id/uuid"
	"github.com/TheoCtla/SmartQA/internal/linkcheck"
	"github.com/TheoCtla/SmartQA/internal/metrics"
	"github.com/TheoCtla/SmartQA/internal/oracle"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
	"github.com/TheoCtla/SmartQA/internal/policy/ratelimit"
	"github.com/TheoCtla/SmartQA/internal/progress"
	progresssinks "github.com/TheoCtla/SmartQA/internal/progress/sinks"
	memorypublisher "github.com/TheoCtla/SmartQA/internal/publisher/memory"
	gcppublisher "github.com/TheoCtla/SmartQA/internal/publisher/pubsub"
	pgstore "github.com/TheoCtla/SmartQA/internal/storage/postgres"
	"github.com/TheoCtla/SmartQA/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg             config.Config
	logger          *zap.Logger
	providers       *telemetry.Providers
	progressHub     *progress.Hub
	broadcaster     *progresssinks.Broadcaster
	progressRepo    *pgstore.ProgressStore
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	headless        *headlessfetcher.Fetcher
	audits          *audit.Service
	apiServer       *api.Server
}

// Build creates the application's dependencies. The caller owns logger.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("oracle_provider", cfg.Oracle.Provider),
		zap.String("oracle_model", cfg.Oracle.Model),
		zap.Bool("headless", cfg.Headless.Enabled),
	)

	metrics.Init()
	if err := app.setupTelemetry(ctx); err != nil {
		return nil, err
	}
	if err := app.setupDatabase(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		app.Close(ctx)
		return nil, err
	}
	if err := app.setupProgress(ctx); err != nil {
		app.Close(ctx)
		return nil, err
	}
	if err := app.setupAudits(ctx, publisher); err != nil {
		app.Close(ctx)
		return nil, err
	}
	app.setupAPI()
	return app, nil
}

// Audits returns the audit service.
func (a *App) Audits() *audit.Service {
	return a.audits
}

// Handler returns the HTTP handler of the API.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves the API and blocks until ctx is canceled or a termination
// signal arrives, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	// Event streams never end on their own; closing the broadcaster releases them.
	srv.RegisterOnShutdown(func() {
		if err := a.broadcaster.Close(context.Background()); err != nil {
			a.logger.Warn("broadcaster close failed", zap.Error(err))
		}
	})

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close(shutdownCtx)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve http: %w", err)
	default:
		return nil
	}
}

// Close releases every resource Build acquired. It is safe on a partly built App.
func (a *App) Close(ctx context.Context) {
	if a.progressHub != nil {
		if err := a.progressHub.Close(ctx); err != nil {
			a.logger.Warn("progress hub close failed", zap.Error(err))
		}
	}
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.headless != nil {
		a.headless.Close()
	}
	if a.progressRepo != nil {
		a.progressRepo.Close()
	}
	if a.providers != nil {
		if err := a.providers.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	a.logger.Info("shutdown complete")
}

func (a *App) setupTelemetry(ctx context.Context) error {
	if !a.cfg.Telemetry.Enabled {
		a.logger.Debug("telemetry disabled")
		return nil
	}
	providers, err := telemetry.Init(ctx, telemetry.Options{
		ServiceName: a.cfg.Telemetry.ServiceName,
		Version:     a.cfg.Telemetry.Version,
		ProjectID:   a.cfg.Telemetry.ProjectID,
	})
	if err != nil {
		return fmt.Errorf("telemetry init failed: %w", err)
	}
	a.providers = providers
	a.logger.Info("telemetry initialized", zap.Bool("cloud_trace", a.cfg.Telemetry.ProjectID != ""))
	return nil
}

func (a *App) setupDatabase(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Info("no database DSN configured, audit history disabled")
		return nil
	}
	repo, err := pgstore.NewProgressStore(ctx, pgstore.Config{
		DSN:      a.cfg.DB.DSN,
		MaxConns: a.cfg.DB.MaxConns,
	})
	if err != nil {
		return fmt.Errorf("progress store init failed: %w", err)
	}
	a.progressRepo = repo
	a.logger.Info("progress store initialized")
	return nil
}

func (a *App) setupPublisher(ctx context.Context) (audit.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Info("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubClient = client
	a.pubsubPublisher = client.Publisher(a.cfg.PubSub.TopicName)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(a.pubsubPublisher), nil
}

func (a *App) setupProgress(ctx context.Context) error {
	a.broadcaster = progresssinks.NewBroadcaster(a.cfg.Progress.ListenerBuffer, a.logger.Named("progress_stream"))
	promSink, err := progresssinks.NewPrometheusSink(nil)
	if err != nil {
		return fmt.Errorf("progress prometheus sink init failed: %w", err)
	}
	sinkList := []progress.Sink{
		a.broadcaster,
		progresssinks.NewLogSink(a.logger.Named("progress_log")),
		promSink,
	}
	if a.progressRepo != nil {
		sinkList = append(sinkList, progresssinks.NewStoreSink(a.progressRepo, a.logger.Named("progress_store")))
	}
	hubCfg := progress.Config{
		BufferSize:     a.cfg.Progress.BufferSize,
		MaxBatchEvents: a.cfg.Progress.MaxBatchEvents,
		MaxBatchWait:   a.cfg.BatchWait(),
		BaseContext:    ctx,
		Logger:         a.logger.Named("progress_hub"),
	}
	a.progressHub = progress.NewHub(hubCfg, sinkList...)
	a.logger.Info("progress hub initialized",
		zap.Int("sinks", len(sinkList)),
		zap.Int("buffer_size", hubCfg.BufferSize),
		zap.Int("max_batch_events", hubCfg.MaxBatchEvents),
		zap.Duration("max_batch_wait", hubCfg.MaxBatchWait),
	)
	return nil
}

func (a *App) setupAudits(ctx context.Context, publisher audit.Publisher) error {
	crawl, err := a.setupCrawler()
	if err != nil {
		return err
	}

	client, err := oracle.New(ctx, oracle.Config{
		Provider: a.cfg.Oracle.Provider,
		Model:    a.cfg.Oracle.Model,
		APIKey:   a.cfg.Oracle.APIKey,
		BaseURL:  a.cfg.Oracle.BaseURL,
		Timeout:  a.cfg.OracleTimeout(),
	}, a.logger.Named("oracle"))
	if err != nil {
		return fmt.Errorf("oracle init failed: %w", err)
	}
	clock := system.New()
	runner, err := pipeline.New(pipeline.Config{
		Stage1TextLimit: a.cfg.Pipeline.Stage1TextLimit,
		StageTextLimit:  a.cfg.Pipeline.StageTextLimit,
		LinkCap:         a.cfg.Pipeline.LinkCap,
		StageDelay:      a.cfg.StageDelay(),
		PageDelay:       a.cfg.PageDelay(),
		SiteDelay:       a.cfg.SiteDelay(),
		TrustedDomain:   a.cfg.Pipeline.TrustedDomain,
	}, pipeline.Dependencies{
		Oracle: client,
		Pacer:  ratelimit.New(ratelimit.Config{Interval: a.cfg.StageDelay()}),
		Clock:  clock,
		Logger: a.logger.Named("pipeline"),
	})
	if err != nil {
		return fmt.Errorf("pipeline init failed: %w", err)
	}

	prober := linkcheck.New(linkcheck.Config{
		Timeout:      a.cfg.ProbeTimeout(),
		MaxRedirects: a.cfg.LinkCheck.MaxRedirects,
		UserAgent:    a.cfg.LinkCheck.UserAgent,
		Concurrency:  a.cfg.LinkCheck.Concurrency,
	}, a.logger.Named("linkcheck"))

	a.audits, err = audit.New(audit.Dependencies{
		MaxPages:  a.cfg.Crawler.MaxPagesDefault,
		Crawler:   crawl,
		Analyzer:  runner,
		Prober:    prober,
		Publisher: publisher,
		Emitter:   a.progressHub,
		IDs:       uuid.New(),
		Clock:     clock,
		Logger:    a.logger.Named("audit"),
	})
	if err != nil {
		return fmt.Errorf("audit service init failed: %w", err)
	}
	return nil
}

func (a *App) setupCrawler() (*crawler.Crawler, error) {
	deps := crawler.Dependencies{
		Fetcher: collyfetcher.New(collyfetcher.Config{
			UserAgent: a.cfg.Crawler.UserAgent,
			Accept:    a.cfg.Crawler.Accept,
			Timeout:   a.cfg.FetchTimeout(),
		}),
		Extractor: extractor.New(extractor.Options{
			OutlineLimit: a.cfg.Pipeline.OutlineLimit,
			Logger:       a.logger.Named("extractor"),
		}),
		Logger: a.logger.Named("crawler"),
	}
	if a.cfg.Headless.Enabled {
		headless, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
			MaxParallel:       a.cfg.Headless.MaxParallel,
			UserAgent:         a.cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSec) * time.Second,
		})
		if err != nil {
			a.logger.Warn("headless fetcher init failed, continuing without it", zap.Error(err))
		} else {
			a.headless = headless
			deps.Headless = headless
			deps.Detector = detector.NewHeuristic(a.cfg.Headless.PromotionThresh)
			a.logger.Info("using headless fetcher", zap.Int("max_parallel", a.cfg.Headless.MaxParallel))
		}
	}
	crawl, err := crawler.New(crawler.Config{
		Delay:    a.cfg.CrawlDelay(),
		MaxPages: a.cfg.Crawler.MaxPagesDefault,
	}, deps)
	if err != nil {
		return nil, fmt.Errorf("crawler init failed: %w", err)
	}
	return crawl, nil
}

func (a *App) setupAPI() {
	opts := api.Options{
		RequestTimeout: a.cfg.RequestTimeout(),
		Clock:          system.New(),
		Logger:         a.logger.Named("api"),
	}
	if a.cfg.Auth.Enabled {
		opts.APIKey = a.cfg.Auth.APIKey
	}
	if a.progressRepo != nil {
		opts.Progress = a.progressRepo
		opts.Ready = a.progressRepo.Ping
	}
	a.apiServer = api.NewServer(a.audits, a.broadcaster, opts)
}
