package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/Togather-Foundation/agenda/internal/api/problem"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/validation"
)

type UsersHandler struct {
	Service *users.Service
}

func NewUsersHandler(service *users.Service) *UsersHandler {
	return &UsersHandler{Service: service}
}

type userResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type loginResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin"`
	Token   string `json:"token"`
}

// Create handles POST /user.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if !decodeJSON(w, r, problem.KeyMessage, &input) {
		return
	}

	user, err := h.Service.Register(r.Context(), input)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			problem.Message(w, r, http.StatusBadRequest, verr.Messages, nil)
		case errors.Is(err, users.ErrEmailTaken):
			problem.Message(w, r, http.StatusBadRequest, "Usuário já existe.", nil)
		default:
			problem.Message(w, r, http.StatusInternalServerError, "Erro ao criar usuário.", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, userResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

// Login handles POST /login.
func (h *UsersHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input users.LoginInput
	if !decodeJSON(w, r, problem.KeyError, &input) {
		return
	}

	result, err := h.Service.Login(r.Context(), input)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			problem.Error(w, r, http.StatusBadRequest, verr.Messages, nil)
		case errors.Is(err, users.ErrInvalidCredentials):
			problem.Message(w, r, http.StatusBadRequest, "O email ou senha está incorreto", nil)
		default:
			problem.Error(w, r, http.StatusInternalServerError, []string{"Erro ao realizar login."}, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		ID:      result.User.ID,
		Name:    result.User.Name,
		Email:   result.User.Email,
		IsAdmin: result.User.IsAdmin,
		Token:   result.Token,
	})
}
