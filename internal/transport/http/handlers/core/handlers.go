package corehandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"pulse/internal/domain/filters"
	"pulse/internal/domain/views"
	"pulse/internal/transport/http/api"
	"pulse/internal/transport/http/middleware"
	"pulse/internal/transport/http/shared"
)

type Sessions interface {
	middleware.SessionStore
	Create(ctx context.Context, orgID int64) (*views.Session, error)
	Delete(id string) error
}

type Handler struct {
	Sessions Sessions
}

func NewHandler(sessions Sessions) *Handler {
	return &Handler{Sessions: sessions}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions", h.handleCreateSession)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(h.Sessions))
		r.Delete("/sessions/current", h.handleDeleteSession)
		r.Put("/session/organization", h.handleSwitchOrganization)
		r.Get("/session/alert", h.handleGetAlert)
		r.Delete("/session/alert", h.handleDismissAlert)
		r.Route("/views/{view}", func(r chi.Router) {
			r.Get("/", h.handleGetView)
			r.Patch("/filters", h.handleUpdateFilters)
			r.Post("/filters/reset", h.handleResetFilters)
			r.Post("/fetch", h.handleRequestFetch)
			r.Get("/rows", h.handleRows)
		})
	})
}

type organizationPayload struct {
	OrganizationID int64 `json:"organizationId" validate:"required,gt=0"`
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var payload organizationPayload
	if !shared.Decode(w, r, requestID, &payload) || shared.Reject(w, requestID, payload) {
		return
	}
	s, err := h.Sessions.Create(r.Context(), payload.OrganizationID)
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Created(w, map[string]any{
		"sessionId":      s.ID,
		"organizationId": s.OrganizationID(),
		"createdAt":      s.CreatedAt,
	}, requestID)
}

func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	if err := h.Sessions.Delete(s.ID); err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, map[string]any{"deleted": true}, requestID)
}

func (h *Handler) handleSwitchOrganization(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	var payload organizationPayload
	if !shared.Decode(w, r, requestID, &payload) || shared.Reject(w, requestID, payload) {
		return
	}
	if err := s.SwitchOrganization(r.Context(), payload.OrganizationID); err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, map[string]any{"organizationId": s.OrganizationID()}, requestID)
}

func (h *Handler) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.GetSession(r.Context())
	var current any
	if alert, ok := s.Alerts().Current(); ok {
		current = alert
	}
	api.Success(w, map[string]any{"alert": current}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	s, _ := middleware.GetSession(r.Context())
	s.Alerts().Dismiss()
	api.Success(w, map[string]any{"alert": nil}, middleware.GetRequestID(r.Context()))
}

// view resolves the {view} URL parameter against the request's session.
func view(w http.ResponseWriter, r *http.Request) (*views.Session, *views.View, bool) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	kind, err := filters.ParseKind(chi.URLParam(r, "view"))
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return nil, nil, false
	}
	v, err := s.View(kind)
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return nil, nil, false
	}
	return s, v, true
}

func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	_, v, ok := view(w, r)
	if !ok {
		return
	}
	api.Success(w, v.State(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateFilters(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, v, ok := view(w, r)
	if !ok {
		return
	}
	var payload map[string]any
	if !shared.Decode(w, r, requestID, &payload) {
		return
	}
	partial, err := filterValues(payload)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
		return
	}
	ctx, cancel := s.Bind(r.Context())
	defer cancel()
	api.Success(w, v.Update(ctx, partial), requestID)
}

func (h *Handler) handleResetFilters(w http.ResponseWriter, r *http.Request) {
	s, v, ok := view(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.Bind(r.Context())
	defer cancel()
	api.Success(w, v.Reset(ctx), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRequestFetch(w http.ResponseWriter, r *http.Request) {
	s, v, ok := view(w, r)
	if !ok {
		return
	}
	ctx, cancel := s.Bind(r.Context())
	defer cancel()
	api.Success(w, v.RequestFetch(ctx), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleRows(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	_, v, ok := view(w, r)
	if !ok {
		return
	}
	rows, err := v.Rows()
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	page := shared.Paginate(rows, shared.ParsePagination(r, 50, 500))
	api.Success(w, page, requestID)
}

// filterValues accepts strings, numbers, booleans and null for every field;
// null clears the field. Field names are not checked.
func filterValues(payload map[string]any) (filters.Values, error) {
	out := make(filters.Values, len(payload))
	for key, raw := range payload {
		field := filters.Field(strings.TrimSpace(key))
		switch v := raw.(type) {
		case nil:
			out[field] = ""
		case string:
			out[field] = strings.TrimSpace(v)
		case float64:
			out[field] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[field] = strconv.FormatBool(v)
		default:
			return nil, errors.Errorf("filter %s must be a string, number, boolean or null", key)
		}
	}
	return out, nil
}
