// Package problem writes JSON error bodies. The body is a single-key object,
// {"error": ...} or {"message": ...}, whose value is a string or a list of
// strings.
package problem

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/json; charset=utf-8"

// Key selects the body field carrying the message.
type Key string

const (
	KeyError   Key = "error"
	KeyMessage Key = "message"
)

// Write sends the error body. err is the underlying cause: it is logged
// through the request logger (5xx at error level, 4xx at warn) and never
// included in the response.
func Write(w http.ResponseWriter, r *http.Request, status int, key Key, message any, err error) {
	if err != nil && r != nil {
		logger := zerolog.Ctx(r.Context())
		event := logger.Warn()
		if status >= http.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Err(err).
			Int("status", status).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(http.StatusText(status))
	}

	WriteBody(w, status, map[Key]any{key: message})
}

// Error writes {"error": message}.
func Error(w http.ResponseWriter, r *http.Request, status int, message any, err error) {
	Write(w, r, status, KeyError, message, err)
}

// Message writes {"message": message}.
func Message(w http.ResponseWriter, r *http.Request, status int, message any, err error) {
	Write(w, r, status, KeyMessage, message, err)
}

// WriteBody encodes body as JSON with the given status.
func WriteBody(w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Erro interno do servidor."}`))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
