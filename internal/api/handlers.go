package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/FocuswithJustin/versefinder/core/canon"
	"github.com/FocuswithJustin/versefinder/core/errors"
	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/core/sqlite"
	"github.com/FocuswithJustin/versefinder/internal/cache"
	"github.com/FocuswithJustin/versefinder/internal/history"
	"github.com/FocuswithJustin/versefinder/internal/logging"
)

const (
	// MaxTranscriptLength bounds a transcript in runes.
	MaxTranscriptLength = 1000

	maxBodyBytes        = 64 << 10
	defaultHistoryLimit = 20
)

// APIResponse is the standard API response wrapper.
type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *APIMeta  `json:"meta,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIMeta contains response metadata.
type APIMeta struct {
	Total     int    `json:"total,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ParseRequest is the body of POST /parse.
type ParseRequest struct {
	Transcript string `json:"transcript"`
	// Record stores the result in the search history.
	Record bool `json:"record,omitempty"`
}

// ParseResult is a parsed reference plus its canonical and display forms.
type ParseResult struct {
	refparse.ParsedReference
	Ref       string `json:"ref,omitempty"`
	Display   string `json:"display,omitempty"`
	Cached    bool   `json:"cached"`
	HistoryID string `json:"history_id,omitempty"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status       string      `json:"status"`
	Version      string      `json:"version"`
	Uptime       string      `json:"uptime"`
	Books        int         `json:"books"`
	History      bool        `json:"history"`
	Cache        cache.Stats `json:"cache"`
	Websocket    int         `json:"websocket_clients"`
	SQLiteDriver string      `json:"sqlite_driver,omitempty"`
}

// NewParseResult wraps a parsed reference with its canonical and display forms.
func NewParseResult(r refparse.ParsedReference, cached bool) ParseResult {
	res := ParseResult{ParsedReference: r, Cached: cached}
	if ref := r.Ref(); ref != nil {
		res.Ref = ref.String()
		res.Display = ref.Display(*r.Book)
	}
	return res
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]any{
		"name":    "versefinder",
		"version": s.version,
		"endpoints": []string{
			"GET /health",
			"GET /books",
			"GET /parse?q=",
			"POST /parse",
			"GET /history",
			"DELETE /history",
			"GET /history/{id}",
			"GET /metrics",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := HealthInfo{
		Status:    "healthy",
		Version:   s.version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Books:     s.parser.Parser().Catalog().Len(),
		History:   s.history != nil,
		Cache:     s.parser.Stats(),
		Websocket: s.hub.Count(),
	}
	if s.history != nil {
		info.SQLiteDriver = sqlite.DriverType()
	}
	respond(w, r, http.StatusOK, info)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books := s.parser.Parser().Catalog().Books()

	if t := strings.ToUpper(r.URL.Query().Get("testament")); t != "" {
		if t != string(canon.OldTestament) && t != string(canon.NewTestament) {
			respondErr(w, r, errors.NewValidation("testament", "must be OT or NT"))
			return
		}
		filtered := make([]canon.Book, 0, len(books))
		for _, b := range books {
			if string(b.Testament) == t {
				filtered = append(filtered, b)
			}
		}
		books = filtered
	}
	respondList(w, r, books, len(books))
}

func (s *Server) handleParseGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("q") {
		respondErr(w, r, errors.NewValidation("q", "query parameter is required"))
		return
	}
	s.serveParse(w, r, ParseRequest{Transcript: q.Get("q"), Record: q.Get("record") == "true"})
}

func (s *Server) handlePostParse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case err == io.EOF:
			respondErr(w, r, errors.NewValidation("body", "request body is required"))
			return
		case errors.As(err, &maxErr):
			respondErr(w, r, err)
			return
		}
		respondErr(w, r, errors.NewParse("json", "", err.Error()))
		return
	}
	s.serveParse(w, r, req)
}

func (s *Server) serveParse(w http.ResponseWriter, r *http.Request, req ParseRequest) {
	if err := validateTranscript(req.Transcript); err != nil {
		respondErr(w, r, err)
		return
	}

	res := s.parse(r.Context(), req.Transcript, "http")
	if req.Record {
		if s.history == nil {
			respondError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "search history is disabled")
			return
		}
		entry, err := s.record(r.Context(), res.ParsedReference)
		if err != nil {
			respondErr(w, r, err)
			return
		}
		res.HistoryID = entry.ID
	}
	respond(w, r, http.StatusOK, res)
}

func validateTranscript(t string) error {
	if !utf8.ValidString(t) {
		return errors.NewValidation("transcript", "must be valid UTF-8")
	}
	if utf8.RuneCountInString(t) > MaxTranscriptLength {
		return errors.NewValidation("transcript", "must be at most "+strconv.Itoa(MaxTranscriptLength)+" characters")
	}
	return nil
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondErr(w, r, errors.NewValidation("limit", "must be an integer"))
			return
		}
		limit = n
	}

	entries, err := s.history.Recent(r.Context(), limit)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	total, err := s.history.Count(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, entries, total)
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	entry, err := s.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, r, http.StatusOK, entry)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}
	n, err := s.history.Clear(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.InfoContext(r.Context(), "history cleared", "removed", n)
	respond(w, r, http.StatusOK, map[string]int64{"removed": n})
}

func (s *Server) requireHistory(w http.ResponseWriter) bool {
	if s.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_DISABLED", "search history is disabled")
		return false
	}
	return true
}

func (s *Server) record(ctx context.Context, p refparse.ParsedReference) (history.Entry, error) {
	entry, err := s.history.Record(ctx, p)
	s.metrics.observeHistoryWrite(err)
	if err != nil {
		logging.ErrorContext(ctx, "history record failed", "error", err)
	}
	return entry, err
}

// errorStatus maps error kinds to HTTP status codes and API error codes.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest, "INVALID_REQUEST"
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE"
		}
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "error", err)
		msg = "internal server error"
	}
	respondError(w, status, code, msg)
}

func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, APIResponse{
		Success: true,
		Data:    data,
		Meta:    newMeta(r, 0),
	})
}

func respondList(w http.ResponseWriter, r *http.Request, data any, total int) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    newMeta(r, total),
	})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta: &APIMeta{Timestamp: time.Now().UTC().Format(time.RFC3339)},
	})
}

func newMeta(r *http.Request, total int) *APIMeta {
	return &APIMeta{
		Total:     total,
		RequestID: logging.GetRequestID(r.Context()),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", "error", err)
	}
}
