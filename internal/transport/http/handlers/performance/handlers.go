package performancehandler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pulse/internal/domain/reviews"
	"pulse/internal/transport/http/api"
	"pulse/internal/transport/http/middleware"
	"pulse/internal/transport/http/shared"
)

type Handler struct {
	Sessions middleware.SessionStore
	// GenerateLimit guards the skill extraction endpoint. Nil disables it.
	GenerateLimit func(http.Handler) http.Handler
}

func NewHandler(sessions middleware.SessionStore, generateLimit func(http.Handler) http.Handler) *Handler {
	return &Handler{Sessions: sessions, GenerateLimit: generateLimit}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Session(h.Sessions))
		r.Get("/skills/search", h.handleSearchSkills)
		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", h.handleOpenDraft)
			r.Route("/{draftID}", func(r chi.Router) {
				r.Get("/", h.handleGetDraft)
				r.Delete("/", h.handleDiscardDraft)
				r.Post("/entries", h.handleAddEntry)
				r.Delete("/entries/{tempID}", h.handleRemoveEntry)
				if h.GenerateLimit != nil {
					r.With(h.GenerateLimit).Post("/generate", h.handleGenerate)
				} else {
					r.Post("/generate", h.handleGenerate)
				}
				r.Post("/submit", h.handleSubmit)
			})
		})
	})
}

func (h *Handler) handleSearchSkills(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	results, err := s.SearchSkills(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, results, requestID)
}

func (h *Handler) handleOpenDraft(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	var payload struct {
		ReviewID int64 `json:"reviewId" validate:"gte=0"`
	}
	if !shared.Decode(w, r, requestID, &payload) || shared.Reject(w, requestID, payload) {
		return
	}
	d, err := s.OpenDraft(r.Context(), payload.ReviewID)
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Created(w, d.View(), requestID)
}

func draft(w http.ResponseWriter, r *http.Request) (*reviews.Draft, bool) {
	s, _ := middleware.GetSession(r.Context())
	d, err := s.Draft(chi.URLParam(r, "draftID"))
	if err != nil {
		shared.FailFromError(w, middleware.GetRequestID(r.Context()), err)
		return nil, false
	}
	return d, true
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	d, ok := draft(w, r)
	if !ok {
		return
	}
	api.Success(w, d.View(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	if err := s.DiscardDraft(chi.URLParam(r, "draftID")); err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, map[string]any{"deleted": true}, requestID)
}

type entryPayload struct {
	SkillID   int64    `json:"skillId" validate:"required,gt=0"`
	SkillName string   `json:"skillName" validate:"max=200"`
	Rating    *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}

func (h *Handler) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	d, ok := draft(w, r)
	if !ok {
		return
	}
	var payload entryPayload
	if !shared.Decode(w, r, requestID, &payload) || shared.Reject(w, requestID, payload) {
		return
	}
	entry, added := d.Add(payload.SkillID, strings.TrimSpace(payload.SkillName), *payload.Rating)
	body := map[string]any{"entry": entry, "added": added, "draft": d.View()}
	if !added {
		api.Success(w, body, requestID)
		return
	}
	api.Created(w, body, requestID)
}

func (h *Handler) handleRemoveEntry(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	d, ok := draft(w, r)
	if !ok {
		return
	}
	if !d.Remove(chi.URLParam(r, "tempID")) {
		api.Fail(w, http.StatusNotFound, "not_found", "draft entry not found", requestID)
		return
	}
	api.Success(w, d.View(), requestID)
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	var payload struct {
		RawText string `json:"rawText" validate:"required"`
	}
	if !shared.Decode(w, r, requestID, &payload) || shared.Reject(w, requestID, payload) {
		return
	}
	draftID := chi.URLParam(r, "draftID")
	added, err := s.GenerateEntries(r.Context(), draftID, payload.RawText)
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	d, err := s.Draft(draftID)
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, map[string]any{"added": added, "draft": d.View()}, requestID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	s, _ := middleware.GetSession(r.Context())
	var header reviews.Header
	if !shared.Decode(w, r, requestID, &header) || shared.Reject(w, requestID, header) {
		return
	}
	id, err := s.SubmitDraft(r.Context(), chi.URLParam(r, "draftID"), header)
	if err != nil {
		shared.FailFromError(w, requestID, err)
		return
	}
	api.Success(w, map[string]any{"reviewId": id}, requestID)
}
