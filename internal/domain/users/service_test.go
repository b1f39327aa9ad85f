package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu        sync.Mutex
	byID      map[string]*User
	createErr error
	// skipLookup makes FindByEmail miss so Create sees the duplicate,
	// mimicking a concurrent registration that passed the pre-check.
	skipLookup bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*User{}}
}

func (r *fakeRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.skipLookup {
		return nil, ErrNotFound
	}
	for _, u := range r.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) Create(_ context.Context, p CreateParams) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, u := range r.byID {
		if u.Email == p.Email {
			return nil, ErrEmailTaken
		}
	}
	now := time.Now().UTC()
	u := &User{ID: p.ID, Name: p.Name, Email: p.Email, PasswordHash: p.PasswordHash, IsAdmin: p.IsAdmin, CreatedAt: now, UpdatedAt: now}
	r.byID[p.ID] = u
	cp := *u
	return &cp, nil
}

func (r *fakeRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *fakeRepo) SetAdmin(_ context.Context, id string, isAdmin bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	u.IsAdmin = isAdmin
	cp := *u
	return &cp, nil
}

func newTestService(t *testing.T, repo Repository, opts ...Option) (*Service, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("test-secret", time.Hour, "agenda-test")
	return NewService(repo, tokens, nil, zerolog.Nop(), opts...), tokens
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)

	user, err := svc.Register(ctx, RegisterInput{Name: "  Ana ", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Ana", user.Name)
	assert.False(t, user.IsAdmin)
	assert.NotEqual(t, "secret1", user.PasswordHash)
	assert.True(t, auth.CheckPassword(user.PasswordHash, "secret1"))
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	svc, _ := newTestService(t, repo)

	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ana@example.com", Password: "secret2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	repo.skipLookup = true
	_, err = svc.Register(ctx, RegisterInput{Name: "Race", Email: "ana@example.com", Password: "secret3"})
	assert.ErrorIs(t, err, ErrEmailTaken, "store-level conflict must surface as ErrEmailTaken")
}

func TestRegister_EmailIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeRepo())

	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Name: "Ana", Email: "Ana@example.com", Password: "secret1"})
	assert.NoError(t, err)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input RegisterInput
		want  []string
	}{
		{
			name:  "missing name",
			input: RegisterInput{Email: "a@b.com", Password: "secret1"},
			want:  []string{"Nome é obrigatório"},
		},
		{
			name:  "bad email",
			input: RegisterInput{Name: "Ana", Email: "not-an-email", Password: "secret1"},
			want:  []string{"Email inválido"},
		},
		{
			name:  "short password",
			input: RegisterInput{Name: "Ana", Email: "a@b.com", Password: "12345"},
			want:  []string{"A senha deve ter no mínimo 6 caracteres"},
		},
		{
			name:  "long password",
			input: RegisterInput{Name: "Ana", Email: "a@b.com", Password: strings.Repeat("x", 73)},
			want:  []string{"A senha deve ter no máximo 72 bytes"},
		},
		{
			name:  "multibyte password over 72 bytes",
			input: RegisterInput{Name: "Ana", Email: "a@b.com", Password: strings.Repeat("ã", 40)},
			want:  []string{"A senha deve ter no máximo 72 bytes"},
		},
		{
			name:  "everything wrong",
			input: RegisterInput{Password: "1"},
			want:  []string{"Nome é obrigatório", "Email inválido", "A senha deve ter no mínimo 6 caracteres"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t, newFakeRepo())
			_, err := svc.Register(context.Background(), tt.input)

			var verr *validation.Error
			require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
			assert.Equal(t, tt.want, verr.Messages)
		})
	}
}

func TestRegister_MultibytePasswordWithinLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeRepo())

	password := strings.Repeat("ã", 36)
	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: password})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: password})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestCreateAdmin_PasswordTooLong(t *testing.T) {
	svc, _ := newTestService(t, newFakeRepo())
	_, err := svc.EnsureAdmin(context.Background(), RegisterInput{
		Name:     "Admin",
		Email:    "admin@example.com",
		Password: strings.Repeat("é", 37),
	})

	var verr *validation.Error
	require.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
	assert.Equal(t, []string{"A senha deve ter no máximo 72 bytes"}, verr.Messages)
}

func TestRegister_AdminFlag(t *testing.T) {
	ctx := context.Background()
	yes := true

	svc, _ := newTestService(t, newFakeRepo())
	user, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1", IsAdmin: &yes})
	require.NoError(t, err)
	assert.False(t, user.IsAdmin, "self signup must not grant admin by default")

	svc, _ = newTestService(t, newFakeRepo(), WithAdminSignup(true))
	user, err = svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1", IsAdmin: &yes})
	require.NoError(t, err)
	assert.True(t, user.IsAdmin)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newTestService(t, newFakeRepo())

	user, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	result, err := svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.User.ID)
	assert.True(t, result.ExpiresAt.After(time.Now()))

	claims, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "ana@example.com", claims.Email)
	assert.False(t, claims.IsAdmin)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeRepo())

	_, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_Validation(t *testing.T) {
	svc, _ := newTestService(t, newFakeRepo())

	_, err := svc.Login(context.Background(), LoginInput{Email: "bad"})
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Email inválido", "Senha é obrigatória"}, verr.Messages)
}

func TestLogin_PropagatesStoreErrors(t *testing.T) {
	repo := &erroringRepo{err: errors.New("connection refused")}
	svc, _ := newTestService(t, repo)

	_, err := svc.Login(context.Background(), LoginInput{Email: "ana@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeRepo())
	input := RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "secret1"}

	created, err := svc.EnsureAdmin(ctx, input)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, input)
	require.NoError(t, err)
	assert.False(t, created)

	result, err := svc.Login(ctx, LoginInput{Email: input.Email, Password: input.Password})
	require.NoError(t, err)
	assert.True(t, result.User.IsAdmin)
}

func TestIssueToken(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newTestService(t, newFakeRepo())

	user, err := svc.CreateAdmin(ctx, RegisterInput{Name: "Admin", Email: "admin@example.com", Password: "secret1"})
	require.NoError(t, err)

	result, err := svc.IssueToken(ctx, " admin@example.com ")
	require.NoError(t, err)
	claims, err := tokens.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.ID)
	assert.True(t, claims.IsAdmin)

	_, err = svc.IssueToken(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetAdminAndDelete(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, newFakeRepo())

	user, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "secret1"})
	require.NoError(t, err)

	updated, err := svc.SetAdmin(ctx, "ana@example.com", true)
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin)

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.IsAdmin)

	_, err = svc.DeleteByEmail(ctx, "ana@example.com")
	require.NoError(t, err)

	_, err = svc.Get(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.DeleteByEmail(ctx, "ana@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

type erroringRepo struct {
	fakeRepo
	err error
}

func (r *erroringRepo) FindByEmail(context.Context, string) (*User, error) {
	return nil, r.err
}
