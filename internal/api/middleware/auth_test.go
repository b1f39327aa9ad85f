package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	users map[string]*users.User
	err   error
}

func (f *stubFinder) Get(_ context.Context, id string) (*users.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return u, nil
}

type gateFixture struct {
	tokens *auth.TokenService
	finder *stubFinder
	admin  *users.User
	member *users.User
}

func newGateFixture() *gateFixture {
	admin := &users.User{ID: "admin-1", Name: "Ana", Email: "ana@example.com", IsAdmin: true}
	member := &users.User{ID: "member-1", Name: "Bia", Email: "bia@example.com"}
	return &gateFixture{
		tokens: auth.NewTokenService("gate-secret", time.Hour, "agenda-test"),
		finder: &stubFinder{users: map[string]*users.User{admin.ID: admin, member.ID: member}},
		admin:  admin,
		member: member,
	}
}

func (f *gateFixture) token(t *testing.T, u *users.User) string {
	t.Helper()
	token, _, err := f.tokens.Issue(auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin})
	require.NoError(t, err)
	return token
}

func (f *gateFixture) handler(admin bool) http.Handler {
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		_, _ = w.Write([]byte(user.ID))
	})
	var h http.Handler = final
	if admin {
		h = RequireAdmin()(h)
	}
	return Authenticate(f.tokens, f.finder)(h)
}

func serve(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/myevents", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body["error"]
}

func TestAuthenticate(t *testing.T) {
	f := newGateFixture()

	tests := []struct {
		name       string
		header     func(t *testing.T) string
		wantStatus int
		wantError  string
	}{
		{
			name:       "missing header",
			header:     func(*testing.T) string { return "" },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token não fornecido",
		},
		{
			name:       "header without token",
			header:     func(*testing.T) string { return "Bearer" },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token não fornecido",
		},
		{
			name:       "garbage token",
			header:     func(*testing.T) string { return "Bearer not.a.jwt" },
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token inválido",
		},
		{
			name: "token signed with another secret",
			header: func(t *testing.T) string {
				other := auth.NewTokenService("other-secret", time.Hour, "agenda-test")
				token, _, err := other.Issue(auth.Identity{ID: f.admin.ID})
				require.NoError(t, err)
				return "Bearer " + token
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token inválido",
		},
		{
			name: "valid token for deleted user",
			header: func(t *testing.T) string {
				return "Bearer " + f.token(t, &users.User{ID: "gone", Name: "Gone"})
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token inválido",
		},
		{
			name:       "valid token",
			header:     func(t *testing.T) string { return "Bearer " + f.token(t, f.member) },
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(f.handler(false), tt.header(t))
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, errorBody(t, rec))
			} else {
				assert.Equal(t, f.member.ID, rec.Body.String())
			}
		})
	}
}

func TestAuthenticate_StoreErrorIs500(t *testing.T) {
	f := newGateFixture()
	token := f.token(t, f.member)
	f.finder.err = errors.New("connection refused")

	rec := serve(f.handler(false), "Bearer "+token)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRequireAdmin(t *testing.T) {
	f := newGateFixture()

	t.Run("non-admin passes authentication and fails admin stage", func(t *testing.T) {
		token := f.token(t, f.member)

		assert.Equal(t, http.StatusOK, serve(f.handler(false), "Bearer "+token).Code)

		rec := serve(f.handler(true), "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Acesso negado: apenas administradores", errorBody(t, rec))
	})

	t.Run("admin passes", func(t *testing.T) {
		rec := serve(f.handler(true), "Bearer "+f.token(t, f.admin))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("revoked admin flag applies before token expiry", func(t *testing.T) {
		revoked := &users.User{ID: "admin-2", Name: "Caio", IsAdmin: true}
		f.finder.users[revoked.ID] = revoked
		token := f.token(t, revoked)

		f.finder.users[revoked.ID] = &users.User{ID: revoked.ID, Name: revoked.Name, IsAdmin: false}

		rec := serve(f.handler(true), "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("without authenticate stage", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAdmin()(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
