package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
	"github.com/TheoCtla/SmartQA/internal/audit"
	"github.com/TheoCtla/SmartQA/internal/config"
	"github.com/TheoCtla/SmartQA/internal/report"
	"github.com/TheoCtla/SmartQA/internal/server"
)

const (
	formatJSON     = "json"
	formatMarkdown = "markdown"
)

type auditor interface {
	Run(ctx context.Context, req audit.Request) (aggregate.Report, error)
}

// newAuditor builds the in-process audit service. Tests replace it.
var newAuditor = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (auditor, func(context.Context), error) {
	app, err := server.Build(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return app.Audits(), app.Close, nil
}

type auditFlags struct {
	req    audit.Request
	format string
	output string
}

func newAuditCmd() *cobra.Command {
	var f auditFlags
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit one website and print the report",
		Long: `Runs a complete audit in-process and prints the report to stdout (or
--output) as JSON or Markdown. Progress lines go to the log on stderr.`,
		Example: `  smartqa audit --url https://boulangerie-martin.fr \
    --entreprise "Boulangerie Martin" --activite boulangerie \
    --telephone "01 23 45 67 89" --format markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAudit(cmd, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.req.URL, "url", "", "site to audit (required)")
	fl.StringVar(&f.req.Company, "entreprise", "", "company name (required)")
	fl.StringVar(&f.req.Activity, "activite", "", "business activity (required)")
	fl.StringVar(&f.req.ExpectedPhone, "telephone", "", "expected phone number")
	fl.StringVar(&f.req.ExpectedManager, "gerant", "", "expected manager name")
	fl.StringVar(&f.req.ExpectedCity, "ville", "", "expected city")
	fl.StringVar(&f.req.ExpectedAddress, "adresse", "", "expected postal address")
	fl.StringVar(&f.req.ExpectedSIRET, "siret", "", "expected SIRET number")
	fl.StringVar(&f.req.ExpectedEmail, "email", "", "expected contact email")
	fl.StringSliceVar(&f.req.ExpectedDomains, "domaines", nil, "expected domains (defaults to the audited host)")
	fl.StringVar(&f.req.OfferKeywords, "mots-cles", "", "offer keywords the content should match")
	fl.StringVar(&f.req.Details, "details", "", "free-form notes passed to the review")
	fl.IntVar(&f.req.MaxPages, "max-pages", 0, "page budget (defaults to crawler.max_pages_default)")
	fl.StringVar(&f.format, "format", formatJSON, "output format: json or markdown")
	fl.StringVarP(&f.output, "output", "o", "", "write the report to this file instead of stdout")
	return cmd
}

func runAudit(cmd *cobra.Command, f auditFlags) error {
	if f.format != formatJSON && f.format != formatMarkdown {
		return fmt.Errorf("unknown format %q (want json or markdown)", f.format)
	}
	rt, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	// Validate before building the service so bad input never starts Chrome or the oracle.
	if _, err := audit.Normalize(f.req); err != nil {
		return err
	}

	svc, closeFn, err := newAuditor(cmd.Context(), rt.cfg, rt.logger)
	if err != nil {
		return fmt.Errorf("build audit service: %w", err)
	}
	defer closeFn(context.WithoutCancel(cmd.Context()))

	rep, err := svc.Run(cmd.Context(), f.req)
	if err != nil {
		var verr *audit.ValidationError
		if errors.As(err, &verr) {
			return err
		}
		return fmt.Errorf("audit failed: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if f.output != "" {
		file, err := os.Create(f.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}
	if f.format == formatMarkdown {
		return report.WriteMarkdown(out, rep)
	}
	return report.WriteJSON(out, rep)
}
