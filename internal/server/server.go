// Package server exposes the JSON to TOON converter over HTTP, along with
// the session history and the persisted conversion store.
package server

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mcncl/gotoon/internal/converter"
	"github.com/mcncl/gotoon/internal/errors"
	"github.com/mcncl/gotoon/internal/history"
	"github.com/mcncl/gotoon/internal/models"
	"github.com/mcncl/gotoon/internal/session"
)

// Config wires the server to its collaborators.
type Config struct {
	// Sessions is required.
	Sessions *session.Store
	// History may be nil when persistence is disabled; the conversion
	// endpoints then serve empty results.
	History *history.Store

	// MaxBodyBytes caps the /convert request body. Zero means no limit.
	MaxBodyBytes int64

	// Version is reported by the info endpoint.
	Version string

	Logger *slog.Logger
}

// Server handles the HTTP API.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Server from the given configuration.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, logger: logger}
}

// Handler returns the route table for the service.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleInfo)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/convert", s.handleConvert)
	mux.HandleFunc("/conversions", s.handleConversions)
	mux.HandleFunc("/conversions/", s.handleConversionByID)
	mux.HandleFunc("/sessions/", s.handleSessions)
	return mux
}

type convertRequest struct {
	JSONString string `json:"jsonString"`
	SessionID  string `json:"sessionId"`
	Title      string `json:"title"`
	Save       bool   `json:"save"`
}

type convertResponse struct {
	ToonOutput       string `json:"toonOutput"`
	JSONTokens       int    `json:"jsonTokens"`
	ToonTokens       int    `json:"toonTokens"`
	TokensSaved      int    `json:"tokensSaved"`
	ReductionPercent string `json:"reductionPercent"`
	SessionID        string `json:"sessionId,omitempty"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	// The root pattern catches every path without a more specific handler.
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "JSON to TOON conversion service",
		"version": s.cfg.Version,
		"endpoints": map[string]string{
			"convert":        "POST /convert",
			"health":         "GET /health",
			"conversions":    "GET /conversions",
			"conversion":     "GET,DELETE /conversions/{id}",
			"sessionHistory": "GET /sessions/{id}/history",
			"session":        "DELETE /sessions/{id}",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.JSONString == "" {
		s.writeError(w, http.StatusBadRequest, "jsonString is required")
		return
	}

	result, err := converter.Convert(req.JSONString)
	if err != nil {
		status, message := conversionError(err)
		s.logger.Warn("conversion failed", "status", status, "error", err)
		s.writeError(w, status, message)
		return
	}

	title := req.Title
	if title == "" {
		title = models.DefaultTitle
	}

	if req.SessionID != "" {
		s.cfg.Sessions.Append(req.SessionID, models.SessionEntry{
			Title:      title,
			ToonOutput: result.ToonOutput,
			Metrics:    result.Metrics,
			At:         time.Now().UTC(),
		})
	}

	if req.Save || req.Title != "" {
		if s.cfg.History == nil {
			s.logger.Warn("history disabled, conversion not persisted", "title", title)
		} else {
			record := models.ConversionRecord{
				Title:            req.Title,
				JSONInput:        req.JSONString,
				ToonOutput:       result.ToonOutput,
				JSONTokens:       result.Metrics.JSONTokens,
				ToonTokens:       result.Metrics.ToonTokens,
				TokensSaved:      result.Metrics.TokensSaved,
				ReductionPercent: result.Metrics.ReductionPercent,
			}
			saved, err := s.cfg.History.Save(r.Context(), record)
			if err != nil {
				s.logger.Error("failed to persist conversion", "error", err)
				s.writeError(w, http.StatusInternalServerError, "failed to save conversion")
				return
			}
			s.logger.Info("conversion saved", "id", saved.ID, "title", saved.Title)
		}
	}

	s.logger.Info("conversion complete",
		"json_tokens", result.Metrics.JSONTokens,
		"toon_tokens", result.Metrics.ToonTokens,
		"tokens_saved", result.Metrics.TokensSaved,
	)
	s.writeJSON(w, http.StatusOK, convertResponse{
		ToonOutput:       result.ToonOutput,
		JSONTokens:       result.Metrics.JSONTokens,
		ToonTokens:       result.Metrics.ToonTokens,
		TokensSaved:      result.Metrics.TokensSaved,
		ReductionPercent: result.Metrics.ReductionPercent,
		SessionID:        req.SessionID,
	})
}

func (s *Server) handleConversions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.cfg.History == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"conversions": []models.ConversionRecord{}})
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	records, err := s.cfg.History.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list conversions", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list conversions")
		return
	}
	if records == nil {
		records = []models.ConversionRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"conversions": records})
}

func (s *Server) handleConversionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/conversions/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodGet:
		if s.cfg.History == nil {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("conversion '%s' not found", id))
			return
		}
		record, err := s.cfg.History.Get(r.Context(), id)
		if err != nil {
			if stderrors.Is(err, errors.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, fmt.Sprintf("conversion '%s' not found", id))
				return
			}
			s.logger.Error("failed to fetch conversion", "id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to fetch conversion")
			return
		}
		s.writeJSON(w, http.StatusOK, record)
	case http.MethodDelete:
		if s.cfg.History == nil {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("conversion '%s' not found", id))
			return
		}
		if err := s.cfg.History.Delete(r.Context(), id); err != nil {
			if stderrors.Is(err, errors.ErrNotFound) {
				s.writeError(w, http.StatusNotFound, fmt.Sprintf("conversion '%s' not found", id))
				return
			}
			s.logger.Error("failed to delete conversion", "id", id, "error", err)
			s.writeError(w, http.StatusInternalServerError, "failed to delete conversion")
			return
		}
		s.logger.Info("conversion deleted", "id", id)
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "session id required")
		return
	}
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]

	if len(parts) == 2 && parts[1] == "history" {
		if r.Method != http.MethodGet {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		entries, ok := s.cfg.Sessions.Recent(id, limit)
		if !ok {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("session '%s' not found", id))
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"sessionId": id, "history": entries})
		return
	}
	if len(parts) == 2 && parts[1] != "" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}

	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	existed := s.cfg.Sessions.Clear(id)
	s.logger.Info("session cleared", "session_id", id, "existed", existed)
	w.WriteHeader(http.StatusNoContent)
}

// conversionError maps a converter failure to an HTTP status and client
// message. Parse-stage failures are the client's fault; everything else
// surfaces as a 500.
func conversionError(err error) (int, string) {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		switch appErr.Type {
		case errors.ErrorTypeInput, errors.ErrorTypeParsing:
			return http.StatusBadRequest, "Invalid JSON: " + appErr.Message
		}
	}
	return http.StatusInternalServerError, "Conversion error: " + err.Error()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
