package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"verbatim/internal/db"
	"verbatim/internal/export"
	"verbatim/internal/platform/metrics"
)

// Handler exposes the daemon's read-only HTTP endpoints using go-chi.
// Mutations go through the Unix socket; HTTP exists for dashboards,
// scrapes, and pulling transcripts off the machine.
type Handler struct {
	srv *Server
	log *slog.Logger
	m   *metrics.Metrics
}

// NewHandler returns a Handler backed by the given Server.
func NewHandler(srv *Server, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{srv: srv, log: log, m: m}
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSessions handles GET /sessions: stored sessions newest-first, the
// live one first and marked active.
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := h.srv.Sessions()
	if err != nil {
		h.log.Error("list sessions failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": infos})
}

// GetSession handles GET /sessions/{session_id}. The body is the transcript
// document in the export JSON layout; a session with no committed segments
// yet returns 422.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	data, _, err := h.srv.Export(r.Context(), sessionID, string(export.FormatJSON), "")
	if err != nil {
		h.writeExportError(w, sessionID, err)
		return
	}

	w.Header().Set("Content-Type", export.FormatJSON.ContentType())
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ExportSession handles GET /sessions/{session_id}/export with query
// parameters format (srt, vtt, ttml, json), pending (drop, await), and
// timeout_ms bounding an await. pending only matters for the live session.
func (h *Handler) ExportSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if sessionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = string(export.FormatSRT)
	}

	ctx := r.Context()
	if raw := q.Get("timeout_ms"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms <= 0 {
			h.log.Debug("bad timeout_ms", slog.String("timeout_ms", raw))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(ms)*time.Millisecond)
		defer cancel()
	}

	data, _, err := h.srv.Export(ctx, sessionID, format, q.Get("pending"))
	if err != nil {
		h.writeExportError(w, sessionID, err)
		return
	}

	f, _ := export.ParseFormat(format)
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sessionID+f.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) writeExportError(w http.ResponseWriter, sessionID string, err error) {
	switch {
	case errors.Is(err, db.ErrSessionNotFound), errors.Is(err, ErrNoSession):
		w.WriteHeader(http.StatusNotFound)
	case errors.Is(err, export.ErrNoSegments):
		h.log.Debug("session has no committed segments", slog.String("session_id", sessionID))
		w.WriteHeader(http.StatusUnprocessableEntity)
	case errors.Is(err, export.ErrPendingTimeout):
		h.log.Info("export await timed out", slog.String("session_id", sessionID))
		w.WriteHeader(http.StatusConflict)
	case errors.Is(err, export.ErrUnknownFormat), errors.Is(err, export.ErrUnknownPolicy):
		w.WriteHeader(http.StatusBadRequest)
	default:
		h.log.Error("export failed", slog.String("session_id", sessionID), slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
