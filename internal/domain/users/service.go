package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/agenda/internal/audit"
	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/domain/ids"
	"github.com/Togather-Foundation/agenda/internal/metrics"
	"github.com/Togather-Foundation/agenda/internal/validation"
	"github.com/rs/zerolog"
)

// TokenIssuer signs identity tokens for authenticated users.
type TokenIssuer interface {
	Issue(identity auth.Identity) (string, time.Time, error)
}

// RegisterInput is the body of POST /user.
type RegisterInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6,bcryptlen"`
	IsAdmin  *bool  `json:"isAdmin"`
}

// LoginInput is the body of POST /login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

var registerMessages = validation.Messages{
	"name":               "Nome é obrigatório",
	"email":              "Email inválido",
	"password.min":       "A senha deve ter no mínimo 6 caracteres",
	"password.bcryptlen": msgPasswordTooLong,
}

const msgPasswordTooLong = "A senha deve ter no máximo 72 bytes"

var loginMessages = validation.Messages{
	"email":    "Email inválido",
	"password": "Senha é obrigatória",
}

// Service implements registration, login and account administration on top of
// the credential store.
type Service struct {
	repo             Repository
	tokens           TokenIssuer
	validator        *validation.Validator
	auditLogger      *audit.Logger
	logger           zerolog.Logger
	allowAdminSignup bool
}

type Option func(*Service)

// WithAdminSignup lets POST /user create administrators when the body asks
// for it. Off by default.
func WithAdminSignup(allow bool) Option {
	return func(s *Service) {
		s.allowAdminSignup = allow
	}
}

func NewService(repo Repository, tokens TokenIssuer, auditLogger *audit.Logger, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		tokens:      tokens,
		validator:   newRegisterValidator(),
		auditLogger: auditLogger,
		logger:      logger.With().Str("component", "users").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newRegisterValidator() *validation.Validator {
	v := validation.New()
	if err := v.RegisterString("bcryptlen", func(p string) bool {
		return len(p) <= auth.MaxPasswordBytes
	}); err != nil {
		panic(err)
	}
	return v
}

// Register validates the input, hashes the password and creates the account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*User, error) {
	isAdmin := false
	if input.IsAdmin != nil && *input.IsAdmin {
		if s.allowAdminSignup {
			isAdmin = true
		} else {
			s.logger.Warn().Str("email", input.Email).Msg("ignoring isAdmin on self registration")
		}
	}
	user, err := s.create(ctx, input, isAdmin)
	s.recordRegistration(err)
	return user, err
}

// CreateAdmin creates an administrator account. Used by the CLI and the
// startup bootstrap.
func (s *Service) CreateAdmin(ctx context.Context, input RegisterInput) (*User, error) {
	return s.create(ctx, input, true)
}

// EnsureAdmin creates the administrator unless an account with the email
// already exists. It reports whether a new account was created.
func (s *Service) EnsureAdmin(ctx context.Context, input RegisterInput) (bool, error) {
	_, err := s.CreateAdmin(ctx, input)
	if errors.Is(err, ErrEmailTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) create(ctx context.Context, input RegisterInput, isAdmin bool) (*User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validator.Struct(input, registerMessages); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, validation.Append(nil, msgPasswordTooLong)
	}
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateParams{
		ID:           ids.NewULID(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.auditLogger.LogSuccess("user.created", user.ID, "user", user.ID, map[string]string{
		"name":    user.Name,
		"isAdmin": fmt.Sprintf("%t", user.IsAdmin),
	})
	s.logger.Info().Str("user_id", user.ID).Bool("is_admin", user.IsAdmin).Msg("user created")
	return user, nil
}

// Login checks the credentials and issues a token. Unknown email and wrong
// password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	input.Email = strings.TrimSpace(input.Email)
	if err := s.validator.Struct(input, loginMessages); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.rejectLogin(input.Email, "unknown_email")
			return nil, ErrInvalidCredentials
		}
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, input.Password) {
		s.rejectLogin(input.Email, "wrong_password")
		return nil, ErrInvalidCredentials
	}

	result, err := s.issue(user)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return result, nil
}

// IssueToken signs a token for an existing account without checking its
// password. Operator tooling only; it is not reachable over HTTP.
func (s *Service) IssueToken(ctx context.Context, email string) (*LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	s.auditLogger.LogSuccess("auth.token_issued", "cli", "user", user.ID, nil)
	return result, nil
}

func (s *Service) issue(user *User) (*LoginResult, error) {
	token, expiresAt, err := s.tokens.Issue(auth.Identity{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Get resolves a user by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// DeleteByEmail removes an account. Tokens already issued to it stop working
// at the next request because the auth gate re-resolves the user.
func (s *Service) DeleteByEmail(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}
	s.auditLogger.LogSuccess("user.deleted", "cli", "user", user.ID, nil)
	return user, nil
}

// SetAdmin grants or revokes the admin flag. The change applies to the next
// request made with any existing token.
func (s *Service) SetAdmin(ctx context.Context, email string, isAdmin bool) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	updated, err := s.repo.SetAdmin(ctx, user.ID, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("set admin: %w", err)
	}
	s.auditLogger.LogSuccess("user.admin_changed", "cli", "user", user.ID, map[string]string{
		"isAdmin": fmt.Sprintf("%t", isAdmin),
	})
	return updated, nil
}

func (s *Service) rejectLogin(email, reason string) {
	metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
	s.auditLogger.LogFailure("auth.login", email, map[string]string{"reason": reason})
}

func (s *Service) recordRegistration(err error) {
	var verr *validation.Error
	switch {
	case err == nil:
		metrics.RegistrationsTotal.WithLabelValues("success").Inc()
	case errors.Is(err, ErrEmailTaken):
		metrics.RegistrationsTotal.WithLabelValues("duplicate_email").Inc()
	case errors.As(err, &verr):
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
	default:
		metrics.RegistrationsTotal.WithLabelValues("error").Inc()
	}
}
