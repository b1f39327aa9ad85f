package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Togather-Foundation/agenda/internal/api/middleware"
	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *memory.Store
	users  *users.Service
	events *events.Service
	tokens *auth.TokenService
	mux    *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenService("handlers-test-secret", time.Hour, "agenda-test")
	env := &testEnv{
		store:  store,
		users:  users.NewService(store.Users(), tokens, nil, zerolog.Nop()),
		events: events.NewService(store.Events(), nil, zerolog.Nop()),
		tokens: tokens,
		mux:    http.NewServeMux(),
	}

	uh := NewUsersHandler(env.users)
	eh := NewEventsHandler(env.events)
	authn := middleware.Authenticate(tokens, env.users)
	admin := func(h http.HandlerFunc) http.Handler { return authn(middleware.RequireAdmin()(h)) }

	env.mux.HandleFunc("POST /user", uh.Create)
	env.mux.HandleFunc("POST /login", uh.Login)
	env.mux.HandleFunc("GET /events", eh.List)
	env.mux.Handle("GET /myevents", authn(http.HandlerFunc(eh.ListMine)))
	env.mux.Handle("POST /events", admin(eh.Create))
	env.mux.Handle("GET /events/{id}", admin(eh.Get))
	env.mux.Handle("PUT /events/{id}", admin(eh.Update))
	env.mux.Handle("DELETE /events/{id}", admin(eh.Delete))
	return env
}

// adminToken creates an administrator and returns a bearer token for it.
func (e *testEnv) adminToken(t *testing.T, name, email string) string {
	t.Helper()
	_, err := e.users.CreateAdmin(context.Background(), users.RegisterInput{Name: name, Email: email, Password: "secret1"})
	require.NoError(t, err)
	res, err := e.users.Login(context.Background(), users.LoginInput{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func eventBody(date string) map[string]string {
	return map[string]string{
		"title":       "Culto de domingo",
		"date":        date,
		"time":        "19:00",
		"location":    "Templo",
		"description": "Culto aberto",
		"category":    "Culto",
	}
}
