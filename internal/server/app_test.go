package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/config"
)

func TestBuildServesHealth(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Oracle.Provider = "ollama"
	cfg.Oracle.BaseURL = "http://127.0.0.1:1"

	ctx := context.Background()
	app, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer app.Close(ctx)
	require.NotNil(t, app.Audits())

	rec := httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audits", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, "history needs a database")

	rec = httptest.NewRecorder()
	app.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
