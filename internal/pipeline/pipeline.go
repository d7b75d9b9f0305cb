package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/crawler"
	"github.com/TheoCtla/SmartQA/internal/extractor"
	"github.com/TheoCtla/SmartQA/internal/metrics"
	"github.com/TheoCtla/SmartQA/internal/oracle"
	"github.com/TheoCtla/SmartQA/internal/policy/ratelimit"
	"github.com/TheoCtla/SmartQA/internal/progress"
)

// Stage labels used in events, metrics and spans.
const (
	Stage1 = "etape1"
	Stage2 = "etape2"
	Stage3 = "etape3"
	Stage4 = "etape4"
	Stage5 = "etape5"
	Stage6 = "etape6"
)

// Default limits and delays.
const (
	DefaultStage1TextLimit = 80000
	DefaultStageTextLimit  = 50000
	DefaultLinkCap         = 50
	DefaultStageDelay      = time.Second
	DefaultPageDelay       = 2 * time.Second
	DefaultSiteDelay       = time.Second
)

// Config tunes the pipeline.
type Config struct {
	// Stage1TextLimit bounds the page text sent to stage 1, in characters.
	Stage1TextLimit int
	// StageTextLimit bounds the page text sent to stages 2 and 3.
	StageTextLimit int
	// LinkCap bounds the links sent to stage 4 per page.
	LinkCap int
	// StageDelay is the minimum spacing between two oracle calls.
	StageDelay time.Duration
	// PageDelay is the pause after the per-page stages of each page.
	PageDelay time.Duration
	// SiteDelay is the pause before each site-wide stage.
	SiteDelay time.Duration
	// TrustedDomain links are always valid in stage 4.
	TrustedDomain string
}

// Pacer spaces oracle calls and pauses between pages.
type Pacer interface {
	Wait(ctx context.Context) error
	Pause(ctx context.Context, d time.Duration) error
}

// Clock supplies the reference date.
type Clock interface {
	Now() time.Time
}

// Notifier receives progress from the pipeline. *progress.Reporter implements it.
type Notifier interface {
	Report(typ progress.Type, format string, args ...any)
	Tokens(stage string, prompt, completion, total int64)
}

// Dependencies are the collaborators of a Runner. Only Oracle is required.
type Dependencies struct {
	Oracle oracle.Client
	Pacer  Pacer
	Clock  Clock
	Logger *zap.Logger
}

// Runner drives the six oracle stages over a crawled site.
type Runner struct {
	cfg    Config
	oracle oracle.Client
	pacer  Pacer
	clock  Clock
	logger *zap.Logger
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

type nopNotifier struct{}

func (nopNotifier) Report(progress.Type, string, ...any) {}
func (nopNotifier) Tokens(string, int64, int64, int64) {}

// New builds a Runner, filling zero limits with defaults.
func New(cfg Config, deps Dependencies) (*Runner, error) {
	if deps.Oracle == nil {
		return nil, errors.New("oracle client is required")
	}
	if cfg.Stage1TextLimit <= 0 {
		cfg.Stage1TextLimit = DefaultStage1TextLimit
	}
	if cfg.StageTextLimit <= 0 {
		cfg.StageTextLimit = DefaultStageTextLimit
	}
	if cfg.LinkCap <= 0 {
		cfg.LinkCap = DefaultLinkCap
	}
	if cfg.TrustedDomain == "" {
		cfg.TrustedDomain = DefaultTrustedDomain
	}
	if deps.Pacer == nil {
		deps.Pacer = ratelimit.New(ratelimit.Config{Interval: cfg.StageDelay})
	}
	if deps.Clock == nil {
		deps.Clock = utcClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		oracle: deps.Oracle,
		pacer:  deps.Pacer,
		clock:  deps.Clock,
		logger: deps.Logger,
	}, nil
}

// Run executes stages 1 to 4 for every page in crawl order, then stages 5
// and 6 over the whole site. A failing stage yields its fallback; only a
// canceled ctx aborts the run.
func (r *Runner) Run(
	ctx context.Context,
	snapshot crawler.SiteSnapshot,
	actx AnalysisContext,
	notifier Notifier,
) (Results, error) {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	ctx, span := otel.Tracer("smartqa/pipeline").Start(ctx, "pipeline.Run")
	defer span.End()
	span.SetAttributes(attribute.Int("pages", len(snapshot.Pages)))

	ref := r.clock.Now()
	results := Results{
		Stage1: []Stage1Result{},
		Stage2: []Stage2Result{},
		Stage3: []Stage3Result{},
		Stage4: []Stage4Result{},
	}

	for i, page := range snapshot.Pages {
		notifier.Report(progress.TypePage, "Page %d/%d: %s", i+1, len(snapshot.Pages), pagePath(page.URL))

		results.Stage1 = append(results.Stage1, r.stage1(ctx, page, actx, ref, notifier))
		if page.Type.IsLegal() {
			results.Stage2 = append(results.Stage2, r.stage2(ctx, page, actx, ref, notifier))
		} else {
			results.Stage3 = append(results.Stage3, r.stage3(ctx, page, actx, ref, notifier))
		}
		results.Stage4 = append(results.Stage4, r.stage4(ctx, page, actx, notifier))
		if err := ctx.Err(); err != nil {
			return Results{}, fmt.Errorf("pipeline canceled: %w", err)
		}

		if err := r.pacer.Pause(ctx, r.cfg.PageDelay); err != nil {
			return Results{}, fmt.Errorf("pipeline canceled: %w", err)
		}
	}

	if err := r.pacer.Pause(ctx, r.cfg.SiteDelay); err != nil {
		return Results{}, fmt.Errorf("pipeline canceled: %w", err)
	}
	results.Stage5 = r.stage5(ctx, snapshot.Metas, actx, notifier)

	if err := r.pacer.Pause(ctx, r.cfg.SiteDelay); err != nil {
		return Results{}, fmt.Errorf("pipeline canceled: %w", err)
	}
	results.Stage6 = r.stage6(ctx, snapshot.BaseURL, results, actx, ref, notifier)
	if err := ctx.Err(); err != nil {
		return Results{}, fmt.Errorf("pipeline canceled: %w", err)
	}
	return results, nil
}

func (r *Runner) stage1(
	ctx context.Context, page extractor.Page, actx AnalysisContext, ref time.Time, n Notifier,
) Stage1Result {
	n.Report(progress.TypeStep, "Étape 1: Orthographe + Extraction (%s)", page.URL)
	telLinks := page.TelLinks
	if telLinks == nil {
		telLinks = []extractor.TelLink{}
	}
	prompt, err := renderPrompt(Stage1, promptData{
		Date:         referenceDate(ref),
		Ctx:          actx,
		PageURL:      page.URL,
		PageType:     string(page.Type),
		Text:         truncateRunes(page.Text, r.cfg.Stage1TextLimit),
		TelLinksJSON: compactJSON(telLinks),
	})
	var out Stage1Result
	if err == nil {
		err = r.ask(ctx, Stage1, page.URL, prompt, n, &out)
	}
	if err != nil {
		return fallbackStage1(page.URL)
	}
	out.PageURL = page.URL
	out.Spelling = filterSpelling(out.Spelling)
	return out
}

func (r *Runner) stage2(
	ctx context.Context, page extractor.Page, actx AnalysisContext, ref time.Time, n Notifier,
) Stage2Result {
	n.Report(progress.TypeStep, "Étape 2: Conformité légale (%s)", page.URL)
	prompt, err := renderPrompt(Stage2, promptData{
		Date:     referenceDate(ref),
		Ctx:      actx,
		PageURL:  page.URL,
		PageType: string(page.Type),
		Text:     truncateRunes(page.Text, r.cfg.StageTextLimit),
	})
	var out Stage2Result
	if err == nil {
		err = r.ask(ctx, Stage2, page.URL, prompt, n, &out)
	}
	if err != nil {
		return fallbackStage2(page.URL, page.Type)
	}
	out.PageURL = page.URL
	out.LegalType = page.Type
	return out
}

func (r *Runner) stage3(
	ctx context.Context, page extractor.Page, actx AnalysisContext, ref time.Time, n Notifier,
) Stage3Result {
	n.Report(progress.TypeStep, "Étape 3: Cohérence + Copywriting (%s)", page.URL)
	theme, home := pageTheme(page.URL)
	pageContext := "Page d'accueil générale"
	if !home {
		pageContext = "Page thématique : " + theme
	}
	prompt, err := renderPrompt(Stage3, promptData{
		Date:        referenceDate(ref),
		Ctx:         actx,
		PageURL:     page.URL,
		Text:        truncateRunes(page.Text, r.cfg.StageTextLimit),
		Outline:     page.Outline,
		Home:        home,
		Theme:       theme,
		PageContext: pageContext,
	})
	var out Stage3Result
	if err == nil {
		err = r.ask(ctx, Stage3, page.URL, prompt, n, &out)
	}
	if err != nil {
		return fallbackStage3(page.URL)
	}
	out.PageURL = page.URL
	out.Issues = reclassifyPromos(out.Issues, ref)
	return out
}

func (r *Runner) stage4(ctx context.Context, page extractor.Page, actx AnalysisContext, n Notifier) Stage4Result {
	n.Report(progress.TypeStep, "Étape 4: Analyse des liens (%s)", page.URL)
	domains := actx.ExpectedDomains
	if domains == nil {
		domains = []string{}
	}
	prompt, err := renderPrompt(Stage4, promptData{
		Ctx:           actx,
		PageURL:       page.URL,
		DomainsJSON:   compactJSON(domains),
		LinksJSON:     indentJSON(capLinks(page.Links, r.cfg.LinkCap)),
		TrustedDomain: r.cfg.TrustedDomain,
	})
	var out Stage4Result
	if err == nil {
		err = r.ask(ctx, Stage4, page.URL, prompt, n, &out)
	}
	if err != nil {
		return fallbackStage4(page.URL)
	}
	out.PageURL = page.URL
	return finalizeLinks(out, r.cfg.TrustedDomain)
}

func (r *Runner) stage5(ctx context.Context, metas []crawler.Meta, actx AnalysisContext, n Notifier) Stage5Result {
	n.Report(progress.TypeStep, "Étape 5: Analyse Meta SEO (%d pages)", len(metas))
	if metas == nil {
		metas = []crawler.Meta{}
	}
	prompt, err := renderPrompt(Stage5, promptData{
		Ctx:            actx,
		MetasJSON:      indentJSON(metas),
		TitleMin:       TitleMinLength,
		TitleMax:       TitleMaxLength,
		DescriptionMin: DescriptionMinLength,
		DescriptionMax: DescriptionMaxLength,
	})
	var out Stage5Result
	if err == nil {
		err = r.ask(ctx, Stage5, "", prompt, n, &out)
	}
	if err != nil {
		return fallbackStage5()
	}
	return applySEOChecks(out, metas)
}

func (r *Runner) stage6(
	ctx context.Context, baseURL string, results Results, actx AnalysisContext, ref time.Time, n Notifier,
) Stage6Result {
	n.Report(progress.TypeStep, "Étape 6: Synthèse Go/No-Go")
	prompt, err := renderPrompt(Stage6, promptData{
		Date:       referenceDate(ref),
		Ctx:        actx,
		BaseURL:    baseURL,
		Stage1JSON: indentJSON(results.Stage1),
		Stage2JSON: indentJSON(results.Stage2),
		Stage3JSON: indentJSON(results.Stage3),
		Stage4JSON: indentJSON(results.Stage4),
		Stage5JSON: indentJSON(results.Stage5),
	})
	var out Stage6Result
	if err == nil {
		err = r.ask(ctx, Stage6, "", prompt, n, &out)
	}
	if err != nil {
		return fallbackStage6()
	}
	return out
}

type normalizer interface {
	normalize() error
}

// ask runs one paced oracle call and decodes the answer into out.
func (r *Runner) ask(ctx context.Context, stage, pageURL, prompt string, n Notifier, out normalizer) (err error) {
	ctx, span := otel.Tracer("smartqa/pipeline").Start(ctx, "pipeline."+stage)
	defer span.End()
	span.SetAttributes(attribute.String("stage", stage), attribute.String("page_url", pageURL))

	start := time.Now()
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "fallback"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			r.logger.Warn("stage fell back",
				zap.String("stage", stage),
				zap.String("page_url", pageURL),
				zap.Error(err),
			)
		}
		metrics.ObserveOracleCall(stage, outcome, time.Since(start))
	}()

	if err := r.pacer.Wait(ctx); err != nil {
		return err
	}
	completion, err := r.oracle.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("%s oracle call: %w", stage, err)
	}
	n.Tokens(stage, completion.Usage.PromptTokens, completion.Usage.CompletionTokens, completion.Usage.TotalTokens)
	if err := decodeInto(completion.Text, out); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	if err := out.normalize(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}
