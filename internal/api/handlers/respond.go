package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Togather-Foundation/agenda/internal/api/problem"
)

const (
	msgBodyTooLarge = "Corpo da requisição muito grande."
	msgInvalidJSON  = "JSON inválido."
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	problem.WriteBody(w, status, payload)
}

// decodeJSON reads a JSON object into dst. An empty body leaves dst zero so
// field validation reports what is missing. On failure it writes the error
// response under key and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, key problem.Key, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}

	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		problem.Write(w, r, http.StatusRequestEntityTooLarge, key, msgBodyTooLarge, err)
	default:
		problem.Write(w, r, http.StatusBadRequest, key, msgInvalidJSON, err)
	}
	return false
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}
