package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	dErrors "companyapp/pkg/domain-errors"
	audit "companyapp/pkg/platform/audit"
	"companyapp/pkg/platform/httputil"
	"companyapp/pkg/requestcontext"
)

// Reader is the read side of the audit trail.
type Reader interface {
	QueryAuditTrail(ctx context.Context, filter audit.Filter, limit int) ([]audit.Record, error)
}

// Handler serves the operator-facing audit trail.
type Handler struct {
	reader   Reader
	logger   *slog.Logger
	maxLimit int
}

// New creates an audit Handler. maxLimit caps the limit query parameter;
// zero or less means audit.DefaultQueryLimit.
func New(reader Reader, logger *slog.Logger, maxLimit int) *Handler {
	if maxLimit <= 0 {
		maxLimit = audit.DefaultQueryLimit
	}
	return &Handler{reader: reader, logger: logger, maxLimit: maxLimit}
}

// Register mounts the routes. Callers gate them with admin middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/audit-logs", h.handleListAuditLogs)
}

type recordResponse struct {
	ID         int64           `json:"id"`
	UserID     string          `json:"userId"`
	UserName   string          `json:"userName"`
	EntityName string          `json:"entityName"`
	Action     string          `json:"action"`
	Timestamp  time.Time       `json:"timestamp"`
	KeyValues  json.RawMessage `json:"keyValues"`
	Changes    json.RawMessage `json:"changes"`
}

type listResponse struct {
	Logs        []recordResponse `json:"logs"`
	Count       int              `json:"count"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// handleListAuditLogs returns the newest records first, optionally filtered
// by actor, entity kind and an RFC 3339 time window.
func (h *Handler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, limit, err := h.parseQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.reader.QueryAuditTrail(ctx, filter, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to query audit trail",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to query audit trail"))
		return
	}

	resp := listResponse{
		Logs:        make([]recordResponse, 0, len(records)),
		Count:       len(records),
		GeneratedAt: requestcontext.Now(ctx),
	}
	for _, rec := range records {
		resp.Logs = append(resp.Logs, recordResponse{
			ID:         rec.ID,
			UserID:     rec.ActorID,
			UserName:   rec.ActorName,
			EntityName: rec.EntityKind,
			Action:     string(rec.Action),
			Timestamp:  rec.Timestamp,
			KeyValues:  rawJSON(rec.KeyValues),
			Changes:    rawJSON(rec.Changes),
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) parseQuery(r *http.Request) (audit.Filter, int, error) {
	q := r.URL.Query()
	filter := audit.Filter{
		ActorID:    strings.TrimSpace(q.Get("actor")),
		EntityKind: strings.TrimSpace(q.Get("entity")),
	}

	var err error
	if filter.Since, err = parseTime(q.Get("since"), "since"); err != nil {
		return audit.Filter{}, 0, err
	}
	if filter.Until, err = parseTime(q.Get("until"), "until"); err != nil {
		return audit.Filter{}, 0, err
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Since.Before(filter.Until) {
		return audit.Filter{}, 0, dErrors.New(dErrors.CodeBadRequest, "since must be before until")
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return audit.Filter{}, 0, dErrors.New(dErrors.CodeBadRequest, "limit must be a non-negative integer")
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}
	return filter, limit, nil
}

func parseTime(raw, name string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, dErrors.New(dErrors.CodeBadRequest, name+" must be an RFC 3339 timestamp")
	}
	return t.UTC(), nil
}

// rawJSON embeds stored JSON text as-is, falling back to a JSON string for
// text that does not parse.
func rawJSON(s string) json.RawMessage {
	if json.Valid([]byte(s)) {
		return json.RawMessage(s)
	}
	b, _ := json.Marshal(s)
	return b
}
