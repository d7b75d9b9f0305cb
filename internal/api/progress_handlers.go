package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/TheoCtla/SmartQA/internal/store"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
	defaultEventLimit = 200
	maxEventLimit     = 2000
	progressTimeout   = 3 * time.Second
)

// ProgressHandler exposes the recorded audit history.
type ProgressHandler struct {
	repo    store.ProgressRepository
	timeout time.Duration
	logger  *zap.Logger
}

// NewProgressHandler wires the repository and logger. A nil repo makes every
// route answer 503.
func NewProgressHandler(repo store.ProgressRepository, logger *zap.Logger) *ProgressHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressHandler{
		repo:    repo,
		timeout: progressTimeout,
		logger:  logger,
	}
}

// ListAudits handles GET /audits?status=&limit=&offset=. It returns
// {"audits": [...]}, 400 for invalid filters, 503 without a repository, or 500
// if the repository call fails.
func (h *ProgressHandler) ListAudits(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultAuditLimit, maxAuditLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status *store.RunStatus
	if statusParam := strings.TrimSpace(r.URL.Query().Get("status")); statusParam != "" {
		statusVal, parseErr := parseStatus(statusParam)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, parseErr.Error())
			return
		}
		status = &statusVal
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	runs, err := h.repo.ListAudits(ctx, status, limit, offset)
	if err != nil {
		h.logger.Error("list audits failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list audits")
		return
	}
	out := make([]auditDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toAuditDTO(run))
	}
	writeJSON(w, http.StatusOK, map[string]any{"audits": out})
}

// GetAudit handles GET /audits/{audit_id}. It returns {"audit": {...}}, 400 for
// malformed IDs, 404 when the run is unknown, 503 without a repository, or 500.
func (h *ProgressHandler) GetAudit(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	auditID, err := parseAuditID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	run, err := h.repo.GetAudit(ctx, auditID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		h.logger.Error("get audit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load audit")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit": toAuditDTO(run)})
}

// ListEvents handles GET /audits/{audit_id}/events?limit=&offset=. Events come
// back in emission order as {"events": [...]}.
func (h *ProgressHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		writeError(w, http.StatusServiceUnavailable, "progress repository unavailable")
		return
	}
	auditID, err := parseAuditID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := parseLimitOffset(r, defaultEventLimit, maxEventLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	events, err := h.repo.ListEvents(ctx, auditID, limit, offset)
	if err != nil {
		h.logger.Error("list audit events failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list audit events")
		return
	}
	out := make([]eventDTO, 0, len(events))
	for _, evt := range events {
		out = append(out, eventDTO{
			Type:      evt.Type,
			Message:   evt.Message,
			Timestamp: evt.At,
			Tokens:    evt.Tokens,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": out})
}

func parseAuditID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "audit_id")
	if raw == "" {
		return uuid.UUID{}, errors.New("audit_id is required")
	}
	auditID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.UUID{}, errors.New("invalid audit_id")
	}
	return auditID, nil
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(val, maxLimit)
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseStatus(input string) (store.RunStatus, error) {
	switch strings.ToLower(input) {
	case "running":
		return store.RunRunning, nil
	case "success":
		return store.RunSuccess, nil
	case "error", "failed", "failure":
		return store.RunError, nil
	default:
		return "", errors.New("invalid status")
	}
}

func toAuditDTO(run store.AuditRun) auditDTO {
	return auditDTO{
		ID:         run.ID.String(),
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Status:     string(run.Status),
		Error:      run.ErrorMessage,
	}
}

type auditDTO struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Error      *string    `json:"error,omitempty"`
}

type eventDTO struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Tokens    int64     `json:"tokens,omitempty"`
}
