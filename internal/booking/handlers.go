package booking

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/api"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/catalog"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
)

const (
	unknownResourceName = "Unknown Resource"
	unknownUserName     = "Unknown User"
)

type Handlers struct {
	Service   *Service
	Resources Catalog
	Logger    *zap.Logger
}

type listItem struct {
	Booking
	UserName     string `json:"userName"`
	ResourceName string `json:"resourceName"`
}

func userName(b Booking) string {
	if b.UserName == "" {
		return unknownUserName
	}
	return b.UserName
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	f := Filter{
		UserID:     strings.TrimSpace(q.Get("userId")),
		ResourceID: strings.TrimSpace(q.Get("resourceId")),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		st, err := ParseStatus(raw)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
			return
		}
		f.Status = st
	}

	seq, err := h.Service.ListBookings(r.Context(), actor, f)
	if err != nil {
		h.writeError(w, err)
		return
	}

	names := map[string]string{}
	items := []listItem{}
	for b, err := range seq {
		if err != nil {
			h.writeError(w, err)
			return
		}
		items = append(items, listItem{
			Booking:      b,
			UserName:     userName(b),
			ResourceName: h.resourceName(r.Context(), names, b.ResourceID),
		})
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) resourceName(ctx context.Context, cache map[string]string, id string) string {
	if name, ok := cache[id]; ok {
		return name
	}
	name := unknownResourceName
	res, err := h.Resources.Get(ctx, id)
	switch {
	case err == nil:
		name = res.Name
	case !errors.Is(err, catalog.ErrNotFound):
		h.logger().Warn("resource lookup failed", zap.String("resource_id", id), zap.Error(err))
	}
	cache[id] = name
	return name
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}

	b, err := h.Service.CreateBooking(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, b)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	b, err := h.Service.GetBooking(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"booking": b,
		"actions": NextStatuses(actor, *b),
	})
}

type PatchStatusRequest struct {
	Status string `json:"status"`
}

func (h Handlers) PatchStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	var req PatchStatusRequest
	if err := api.DecodeJSON(w, r, &req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid json")
		return
	}
	next, err := ParseStatus(req.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid status")
		return
	}

	b, err := h.Service.ChangeStatus(r.Context(), actor, chi.URLParam(r, "id"), next)
	if err != nil {
		h.writeError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, b)
}

func (h Handlers) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}

	entries, err := h.Service.History(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h Handlers) actor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	a, ok := api.ActorFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing actor identity")
	}
	return a, ok
}

func (h Handlers) writeError(w http.ResponseWriter, err error) {
	var verr ValidationError
	switch {
	case errors.As(err, &verr):
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", verr.Message)
	case errors.Is(err, ErrNotFound):
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ErrSlotTaken):
		api.WriteError(w, http.StatusConflict, "SLOT_TAKEN", "the resource is already booked for this date and time slot")
	case errors.Is(err, ErrResourceUnavailable):
		api.WriteError(w, http.StatusConflict, "RESOURCE_UNAVAILABLE", err.Error())
	case errors.Is(err, ErrForbidden):
		api.WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, ErrInvalidTransition):
		api.WriteError(w, http.StatusBadRequest, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		api.WriteError(w, http.StatusServiceUnavailable, "TIMEOUT", "request timed out")
	default:
		h.logger().Error("booking request failed", zap.Error(err))
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func (h Handlers) logger() *zap.Logger {
	if h.Logger == nil {
		return zap.NewNop()
	}
	return h.Logger
}
