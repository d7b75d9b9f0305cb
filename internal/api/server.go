package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
	"github.com/TheoCtla/SmartQA/internal/audit"
	"github.com/TheoCtla/SmartQA/internal/metrics"
	"github.com/TheoCtla/SmartQA/internal/progress"
	"github.com/TheoCtla/SmartQA/internal/store"
)

// MsgAnalysisFailed is returned to clients when an audit fails unexpectedly.
const MsgAnalysisFailed = "Une erreur est survenue lors de l'analyse"

const (
	msgInvalidJSON      = "Corps de requête JSON invalide"
	defaultKeepAlive    = 15 * time.Second
	defaultReadyTimeout = 2 * time.Second
)

// Auditor runs one audit to completion.
type Auditor interface {
	Run(ctx context.Context, req audit.Request) (aggregate.Report, error)
}

// Subscriber hands out live progress listeners.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan progress.Event, func())
}

// Clock supplies health check timestamps.
type Clock interface {
	Now() time.Time
}

// Options tunes a Server. Zero values disable the matching feature.
type Options struct {
	// RequestTimeout bounds non-streaming routes, POST /audit included.
	RequestTimeout time.Duration
	// APIKey, when set, is required on /audit, /audits and /logs.
	APIKey string
	// KeepAlive is the comment interval on idle event streams.
	KeepAlive time.Duration
	// Ready reports whether downstream dependencies are reachable.
	Ready func(ctx context.Context) error
	// Progress serves the recorded audit history.
	Progress store.ProgressRepository
	// Metrics is mounted at /metrics.
	Metrics http.Handler
	Clock   Clock
	Logger  *zap.Logger
}

// Server wires HTTP handlers to the audit service and the progress stream.
type Server struct {
	router    chi.Router
	auditor   Auditor
	stream    Subscriber
	ready     func(ctx context.Context) error
	keepAlive time.Duration
	clock     Clock
	logger    *zap.Logger
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// NewServer constructs a Server with middleware and routes.
func NewServer(auditor Auditor, stream Subscriber, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = utcClock{}
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = defaultKeepAlive
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Handler()
	}
	s := &Server{
		auditor:   auditor,
		stream:    stream,
		ready:     opts.Ready,
		keepAlive: opts.KeepAlive,
		clock:     opts.Clock,
		logger:    opts.Logger,
	}
	progressHandler := NewProgressHandler(opts.Progress, opts.Logger)

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(opts.Logger))
	r.Use(recoverMiddleware(opts.Logger))
	r.Use(metrics.Middleware)

	r.Get("/metrics", opts.Metrics.ServeHTTP)

	r.Group(func(r chi.Router) {
		if opts.APIKey != "" {
			r.Use(apiKeyMiddleware(opts.APIKey))
		}
		r.Get("/logs", s.streamLogs)

		r.Group(func(r chi.Router) {
			if opts.RequestTimeout > 0 {
				r.Use(timeoutMiddleware(opts.RequestTimeout))
			}
			r.Post("/audit", s.runAudit)
			r.Route("/audits", func(r chi.Router) {
				r.Get("/", progressHandler.ListAudits)
				r.Route("/{audit_id}", func(r chi.Router) {
					r.Get("/", progressHandler.GetAudit)
					r.Get("/events", progressHandler.ListEvents)
				})
			})
		})
	})

	r.Get("/health", s.health)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) runAudit(w http.ResponseWriter, r *http.Request) {
	var req audit.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	report, err := s.auditor.Run(r.Context(), req)
	if err != nil {
		var verr *audit.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Message)
			return
		}
		s.logger.Error("audit request failed", zap.String("url", req.URL), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   MsgAnalysisFailed,
			"details": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.clock.Now(),
	})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), defaultReadyTimeout)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// streamLogs serves progress events as Server-Sent Events until the client
// goes away or the broadcaster shuts down.
func (s *Server) streamLogs(w http.ResponseWriter, r *http.Request) {
	if s.stream == nil {
		writeError(w, http.StatusServiceUnavailable, "progress stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, unsubscribe := s.stream.Subscribe(r.Context())
	defer unsubscribe()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(evt.ToWire())
			if err != nil {
				s.logger.Warn("encode stream event failed", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
