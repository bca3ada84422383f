package views

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pulse/internal/domain/alerts"
	"pulse/internal/domain/filters"
	"pulse/internal/domain/options"
	"pulse/internal/domain/reports"
	"pulse/internal/domain/reviews"
)

// Backend is everything the sessions read from and write to. The REST client
// in platform/backend satisfies it.
type Backend interface {
	options.Source
	options.SkillSearcher
	reports.Source
	reviews.BackendAPI
}

type Config struct {
	AlertTTL       time.Duration
	SearchDebounce time.Duration
	ReportYear     int
	IdleTimeout    time.Duration
}

// Hooks receive counters for instrumentation. Nil hooks are ignored.
type Hooks struct {
	StaleResponse   func(kind filters.Kind, field string)
	SessionsChanged func(active int)
}

// Registry owns the live sessions of the gateway.
type Registry struct {
	backend Backend
	cfg     Config
	hooks   Hooks
	log     logrus.FieldLogger
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry(b Backend, cfg Config, hooks Hooks, log logrus.FieldLogger) *Registry {
	if hooks.StaleResponse == nil {
		hooks.StaleResponse = func(filters.Kind, string) {}
	}
	if hooks.SessionsChanged == nil {
		hooks.SessionsChanged = func(int) {}
	}
	return &Registry{
		backend:  b,
		cfg:      cfg,
		hooks:    hooks,
		log:      log,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

func (r *Registry) reportYear() int {
	if r.cfg.ReportYear > 0 {
		return r.cfg.ReportYear
	}
	return r.now().Year()
}

// Create opens a session scoped to orgID and loads the option lists of every
// view. Load failures surface as an alert on the new session.
func (r *Registry) Create(ctx context.Context, orgID int64) (*Session, error) {
	if orgID <= 0 {
		return nil, ErrNoOrganization
	}

	id := uuid.NewString()
	log := r.log.WithField("session", id)
	sessionCtx, cancel := context.WithCancel(context.Background())
	now := r.now()
	s := &Session{
		ID:        id,
		CreatedAt: now.UTC(),
		alerts:    alerts.NewChannel(r.cfg.AlertTTL),
		views:     make(map[filters.Kind]*View, len(filters.Kinds)),
		searcher:  options.NewSearcher(r.backend, r.cfg.SearchDebounce),
		reviews:   reviews.NewService(r.backend),
		log:       log,
		ctx:       sessionCtx,
		cancel:    cancel,
		drafts:    map[string]*reviews.Draft{},
		lastSeen:  now,
	}

	svc := reports.NewService(r.backend)
	for _, kind := range filters.Kinds {
		schema, err := filters.SchemaFor(kind, r.reportYear())
		if err != nil {
			cancel()
			return nil, err
		}
		onStale := func(field string) { r.hooks.StaleResponse(kind, field) }
		resolver := options.NewResolver(r.backend, kind, onStale)
		s.views[kind] = newView(kind, schema, resolver, svc, s.alerts, log)
	}

	r.mu.Lock()
	r.sessions[id] = s
	active := len(r.sessions)
	r.mu.Unlock()
	r.hooks.SessionsChanged(active)

	if err := s.SwitchOrganization(ctx, orgID); err != nil {
		r.Delete(id)
		return nil, errors.Wrap(err, "scope session")
	}
	log.WithField("organizationId", orgID).Info("session created")
	return s, nil
}

// Get returns a live session and marks it as recently used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "%q", id)
	}
	s.touch(r.now())
	return s, nil
}

func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	active := len(r.sessions)
	r.mu.Unlock()
	if !ok {
		return errors.Wrapf(ErrSessionNotFound, "%q", id)
	}
	s.Close()
	r.hooks.SessionsChanged(active)
	return nil
}

// Sweep closes sessions idle for longer than the configured timeout and
// returns how many were removed.
func (r *Registry) Sweep() int {
	if r.cfg.IdleTimeout <= 0 {
		return 0
	}
	now := r.now()

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if s.idle(now, r.cfg.IdleTimeout) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	active := len(r.sessions)
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.hooks.SessionsChanged(active)
		r.log.WithField("expired", len(expired)).Info("idle sessions closed")
	}
	return len(expired)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close tears down every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	r.hooks.SessionsChanged(0)
}
