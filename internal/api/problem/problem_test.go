package problem

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWrite_StringBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/events/x", nil)
	res := httptest.NewRecorder()

	Error(res, req, http.StatusNotFound, "Evento não encontrado.", nil)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); !strings.HasPrefix(got, "application/json") {
		t.Fatalf("expected json content type, got %s", got)
	}
	var body map[string]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] != "Evento não encontrado." {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWrite_ListBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/user", nil)
	res := httptest.NewRecorder()

	Message(res, req, http.StatusBadRequest, []string{"Nome é obrigatório", "Email inválido"}, nil)

	var body map[string][]string
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body["message"]) != 2 {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWrite_ServerErrorHidesCauseAndLogs(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	req = req.WithContext(logger.WithContext(req.Context()))
	res := httptest.NewRecorder()

	Error(res, req, http.StatusInternalServerError, "Erro ao criar evento.", errors.New("pq: connection reset"))

	if strings.Contains(res.Body.String(), "connection reset") {
		t.Fatalf("cause leaked into response: %s", res.Body.String())
	}
	if !strings.Contains(logs.String(), "connection reset") || !strings.Contains(logs.String(), `"level":"error"`) {
		t.Fatalf("expected error log with cause, got %s", logs.String())
	}
}

func TestWrite_ClientErrorLogsAtWarn(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	req := httptest.NewRequest(http.MethodGet, "/myevents", nil)
	req = req.WithContext(logger.WithContext(req.Context()))

	Error(httptest.NewRecorder(), req, http.StatusUnauthorized, "Token inválido", errors.New("token is expired"))

	if !strings.Contains(logs.String(), `"level":"warn"`) {
		t.Fatalf("expected warn log, got %s", logs.String())
	}
}
