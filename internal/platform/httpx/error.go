package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"

	"finitefield.org/taskboard/internal/platform/requestctx"
)

// Error is an API failure: a stable machine code, a human message and the
// HTTP status it maps to.
type Error struct {
	Code    string
	Message string
	Status  int
}

// NewError sanitises code and message; a zero status means 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{Code: clip(code, 80), Message: clip(message, 512), Status: status}
}

func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// envelope is the JSON body of every error response.
type envelope struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// WriteError writes err with the request and trace ids found on ctx.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	if err.Status == 0 {
		err.Status = http.StatusInternalServerError
	}
	WriteJSON(w, err.Status, envelope{
		Error:     err.Code,
		Message:   err.Message,
		Status:    err.Status,
		RequestID: clip(middleware.GetReqID(ctx), 80),
		TraceID:   clip(requestctx.TraceID(ctx), 64),
	})
}

// WriteJSON encodes payload with the given status. A nil payload writes no body.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// clip flattens line breaks and cuts value to at most limit bytes on a rune boundary.
func clip(value string, limit int) string {
	value = strings.TrimSpace(lineBreaks.Replace(value))
	if len(value) <= limit {
		return value
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
