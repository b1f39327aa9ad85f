package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Togather-Foundation/agenda/internal/api/middleware"
	"github.com/Togather-Foundation/agenda/internal/api/problem"
	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/ids"
	"github.com/Togather-Foundation/agenda/internal/validation"
)

const (
	msgEventNotFound  = "Evento não encontrado."
	msgCreateConflict = "Já existe um evento nessa data."
	msgUpdateConflict = "Não é possível editar o evento, pois já existe um evento no mesmo dia."
	msgUpdateDenied   = "Você não tem permissão para editar este evento."
	msgDeleteDenied   = "Você não tem permissão para excluir este evento."
	msgDeleted        = "Evento excluído com sucesso."
	msgUnauthorized   = "Usuário não autenticado."
)

type EventsHandler struct {
	Service *events.Service
}

func NewEventsHandler(service *events.Service) *EventsHandler {
	return &EventsHandler{Service: service}
}

type eventResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Color       string    `json:"color"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toEventResponse(e *events.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Title:       e.Title,
		Date:        e.Date.Format(events.DateLayout),
		Time:        e.Time,
		Location:    e.Location,
		Description: e.Description,
		Category:    string(e.Category),
		Color:       e.Color,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toEventList(list []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(list))
	for i := range list {
		out = append(out, toEventResponse(&list[i]))
	}
	return out
}

// List handles GET /events. Public.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListAll(r.Context())
	if err != nil {
		problem.Error(w, r, http.StatusInternalServerError, "Erro ao listar eventos.", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventList(list))
}

// ListMine handles GET /myevents.
func (h *EventsHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListMine(r.Context(), actor)
	if err != nil {
		problem.Error(w, r, http.StatusInternalServerError, "Erro ao listar eventos do usuário.", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventList(list))
}

// Create handles POST /events.
func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	var draft events.Draft
	if !decodeJSON(w, r, problem.KeyError, &draft) {
		return
	}

	event, err := h.Service.Create(r.Context(), actor, draft)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			problem.Error(w, r, http.StatusBadRequest, verr.Error(), nil)
		case errors.Is(err, events.ErrDateConflict):
			problem.Error(w, r, http.StatusBadRequest, msgCreateConflict, nil)
		case errors.Is(err, events.ErrUnknownOwner):
			problem.Error(w, r, http.StatusUnauthorized, msgUnauthorized, nil)
		default:
			problem.Error(w, r, http.StatusInternalServerError, "Erro ao criar evento.", err)
		}
		return
	}
	writeJSON(w, http.StatusCreated, toEventResponse(event))
}

// Get handles GET /events/{id}.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	event, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Error(w, r, http.StatusNotFound, msgEventNotFound, nil)
			return
		}
		problem.Error(w, r, http.StatusInternalServerError, "Erro ao buscar evento.", err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// Update handles PUT /events/{id}. Only the owner may update.
func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}
	var draft events.Draft
	if !decodeJSON(w, r, problem.KeyError, &draft) {
		return
	}

	event, err := h.Service.Update(r.Context(), actor, id, draft)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Error(w, r, http.StatusNotFound, msgEventNotFound, nil)
		case errors.Is(err, events.ErrForbidden):
			problem.Error(w, r, http.StatusForbidden, msgUpdateDenied, nil)
		case errors.As(err, &verr):
			problem.Error(w, r, http.StatusBadRequest, verr.Error(), nil)
		case errors.Is(err, events.ErrDateConflict):
			problem.Error(w, r, http.StatusBadRequest, msgUpdateConflict, nil)
		default:
			problem.Error(w, r, http.StatusInternalServerError, "Erro ao atualizar evento.", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, toEventResponse(event))
}

// Delete handles DELETE /events/{id}. Only the owner may delete.
func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := eventID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), actor, id); err != nil {
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Error(w, r, http.StatusNotFound, msgEventNotFound, nil)
		case errors.Is(err, events.ErrForbidden):
			problem.Error(w, r, http.StatusForbidden, msgDeleteDenied, nil)
		default:
			problem.Error(w, r, http.StatusInternalServerError, "Erro ao excluir evento.", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msgDeleted})
}

func actorFromRequest(w http.ResponseWriter, r *http.Request) (events.Actor, bool) {
	user := middleware.UserFromContext(r.Context())
	if user == nil {
		problem.Error(w, r, http.StatusUnauthorized, msgUnauthorized, nil)
		return events.Actor{}, false
	}
	return events.Actor{ID: user.ID, Name: user.Name, IsAdmin: user.IsAdmin}, true
}

// eventID reads the {id} path value. Ids that are not ULIDs cannot exist and
// are answered with 404.
func eventID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.ToUpper(strings.TrimSpace(pathParam(r, "id")))
	if !ids.IsULID(id) {
		problem.Error(w, r, http.StatusNotFound, msgEventNotFound, nil)
		return "", false
	}
	return id, true
}
