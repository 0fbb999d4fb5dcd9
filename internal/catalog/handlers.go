package catalog

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/api"
)

type Handlers struct {
	Repo   Repository
	Logger *zap.Logger
	Now    func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now().UTC()
	}
	return time.Now().UTC()
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Repo.List(r.Context(), Filter{Type: strings.TrimSpace(r.URL.Query().Get("type"))})
	if err != nil {
		h.internal(w, "list resources", err)
		return
	}
	if items == nil {
		items = []Resource{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.Repo.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeRepoError(w, "get resource", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

// Create, Update and Delete are mounted behind api.RequireRole(ADMIN).

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	in, st, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	now := h.now()
	res := &Resource{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Type:      in.Type,
		Capacity:  in.Capacity,
		Status:    st,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Repo.Create(r.Context(), res); err != nil {
		h.internal(w, "create resource", err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, res)
}

func (h Handlers) Update(w http.ResponseWriter, r *http.Request) {
	in, st, ok := h.decodeInput(w, r)
	if !ok {
		return
	}

	res := &Resource{
		ID:        chi.URLParam(r, "id"),
		Name:      in.Name,
		Type:      in.Type,
		Capacity:  in.Capacity,
		Status:    st,
		UpdatedAt: h.now(),
	}
	if err := h.Repo.Update(r.Context(), res); err != nil {
		h.writeRepoError(w, "update resource", err)
		return
	}
	api.WriteJSON(w, http.StatusOK, res)
}

func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeRepoError(w, "delete resource", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h Handlers) decodeInput(w http.ResponseWriter, r *http.Request) (Input, Status, bool) {
	var in Input
	if err := api.DecodeJSON(w, r, &in); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return in, "", false
	}
	in, st, err := in.Normalize()
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return in, "", false
	}
	return in, st, true
}

func (h Handlers) writeRepoError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
		return
	}
	h.internal(w, op, err)
}

func (h Handlers) internal(w http.ResponseWriter, op string, err error) {
	if h.Logger != nil {
		h.Logger.Error(op+" failed", zap.Error(err))
	}
	api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
}
