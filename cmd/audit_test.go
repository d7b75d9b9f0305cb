package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
	"github.com/TheoCtla/SmartQA/internal/audit"
	"github.com/TheoCtla/SmartQA/internal/config"
	"github.com/TheoCtla/SmartQA/internal/pipeline"
)

type fakeAuditor struct {
	got    audit.Request
	err    error
	closed bool
}

func (f *fakeAuditor) Run(_ context.Context, req audit.Request) (aggregate.Report, error) {
	f.got = req
	if f.err != nil {
		return aggregate.Report{}, f.err
	}
	return aggregate.Report{
		Meta:   aggregate.Meta{AuditedURL: req.URL, Company: req.Company, AuditDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		Stage6: pipeline.Stage6Result{Decision: pipeline.DecisionGo, Summary: "RAS"},
	}, nil
}

// useFakeAuditor swaps the service factory; tests using it must not run in parallel.
func useFakeAuditor(t *testing.T, fake *fakeAuditor) *bool {
	t.Helper()
	built := false
	orig := newAuditor
	newAuditor = func(context.Context, config.Config, *zap.Logger) (auditor, func(context.Context), error) {
		built = true
		return fake, func(context.Context) { fake.closed = true }, nil
	}
	t.Cleanup(func() { newAuditor = orig })
	return &built
}

func runCLI(args ...string) (string, error) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAuditCommandJSON(t *testing.T) {
	fake := &fakeAuditor{}
	useFakeAuditor(t, fake)

	out, err := runCLI("audit",
		"--url", "https://example.fr",
		"--entreprise", "Boulangerie Martin",
		"--activite", "boulangerie",
		"--telephone", "01 23 45 67 89",
		"--domaines", "example.fr,www.example.fr",
		"--max-pages", "5",
		"--mots-cles", "pain, viennoiserie",
	)
	require.NoError(t, err)
	require.True(t, fake.closed)
	require.Equal(t, "01 23 45 67 89", fake.got.ExpectedPhone)
	require.Equal(t, []string{"example.fr", "www.example.fr"}, fake.got.ExpectedDomains)
	require.Equal(t, 5, fake.got.MaxPages)
	require.Equal(t, "pain, viennoiserie", fake.got.OfferKeywords)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Contains(t, decoded, "meta")
}

func TestAuditCommandMarkdownToFile(t *testing.T) {
	fake := &fakeAuditor{}
	useFakeAuditor(t, fake)
	path := filepath.Join(t.TempDir(), "rapport.md")

	_, err := runCLI("audit",
		"--url", "https://example.fr",
		"--entreprise", "Boulangerie Martin",
		"--activite", "boulangerie",
		"--format", "markdown",
		"-o", path,
	)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# Audit SmartQA: Boulangerie Martin")
}

func TestAuditCommandValidatesBeforeBuilding(t *testing.T) {
	built := useFakeAuditor(t, &fakeAuditor{})

	_, err := runCLI("audit", "--url", "https://example.fr", "--entreprise", "a")
	require.EqualError(t, err, audit.MsgActivityRequired)
	require.False(t, *built)

	_, err = runCLI("audit", "--url", "https://example.fr", "--entreprise", "a", "--activite", "b", "--format", "pdf")
	require.ErrorContains(t, err, "unknown format")
	require.False(t, *built)
}

func TestAuditCommandWrapsFailures(t *testing.T) {
	fake := &fakeAuditor{err: errors.New("crawl: timeout")}
	useFakeAuditor(t, fake)

	_, err := runCLI("audit", "--url", "https://example.fr", "--entreprise", "a", "--activite", "b")
	require.ErrorContains(t, err, "audit failed: crawl: timeout")
	require.True(t, fake.closed)
}
