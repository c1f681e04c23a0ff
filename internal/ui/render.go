package ui

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
)

// Message is the body of every error response.
type Message struct {
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("render json failed", "error", err)
	}
}

// Error renders err as {message} with the status of its classification.
// Unclassified errors become a generic 500 so internal details never reach the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := kind.Status()

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err, "path", RedactPath(r.URL.Path), "method", r.Method)
	} else {
		slog.Debug("request rejected", "error", err, "path", RedactPath(r.URL.Path), "kind", kind.String())
	}

	JSON(w, status, Message{Message: apperr.Message(err)})
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(v)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Validation("Request body too large")
		}
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}

// RedactPath hides the token of token-gated routes so capabilities never reach the logs.
func RedactPath(path string) string {
	rest, ok := strings.CutPrefix(path, "/public-upload/")
	if !ok {
		return path
	}
	head, token, ok := strings.Cut(rest, "/")
	if !ok || token == "" || strings.Contains(token, "/") {
		return path
	}
	if head == "info" || model.UploadKind(head).Valid() {
		return "/public-upload/" + head + "/[redacted]"
	}
	return path
}
