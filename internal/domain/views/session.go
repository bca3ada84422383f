package views

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"pulse/internal/domain/alerts"
	"pulse/internal/domain/filters"
	"pulse/internal/domain/options"
	"pulse/internal/domain/reviews"
	"pulse/internal/platform/backend"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoOrganization  = errors.New("organization id is required")
	ErrDraftNotFound   = errors.New("draft not found")
)

// Session is the state one browser tab keeps on the gateway. Requests made
// on behalf of the session are canceled when it is closed.
type Session struct {
	ID        string
	CreatedAt time.Time

	alerts   *alerts.Channel
	views    map[filters.Kind]*View
	searcher *options.Searcher
	reviews  *reviews.Service
	log      logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	orgID    int64
	drafts   map[string]*reviews.Draft
	lastSeen time.Time
}

func (s *Session) Alerts() *alerts.Channel {
	return s.alerts
}

func (s *Session) OrganizationID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orgID
}

func (s *Session) View(kind filters.Kind) (*View, error) {
	v, ok := s.views[kind]
	if !ok {
		return nil, errors.Wrapf(filters.ErrUnknownView, "%q", kind)
	}
	return v, nil
}

// Bind derives a context that is canceled when either ctx ends or the
// session is closed.
func (s *Session) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// SwitchOrganization moves every view to orgID. Filters return to their
// defaults and option lists are reloaded.
func (s *Session) SwitchOrganization(ctx context.Context, orgID int64) error {
	if orgID <= 0 {
		return ErrNoOrganization
	}
	ctx, cancel := s.Bind(ctx)
	defer cancel()

	s.mu.Lock()
	same := s.orgID == orgID
	s.orgID = orgID
	s.mu.Unlock()

	scope := filters.Values{filters.Organization: strconv.FormatInt(orgID, 10)}
	for _, kind := range filters.Kinds {
		v := s.views[kind]
		if same {
			v.Reset(ctx)
			continue
		}
		v.rescope(ctx, scope)
	}
	return nil
}

func (s *Session) SearchSkills(ctx context.Context, query string) ([]options.Option, error) {
	ctx, cancel := s.Bind(ctx)
	defer cancel()
	return s.searcher.Search(ctx, s.OrganizationID(), query)
}

// OpenDraft starts a review draft. A positive reviewID opens the review in
// edit mode with its stored entries.
func (s *Session) OpenDraft(ctx context.Context, reviewID int64) (*reviews.Draft, error) {
	ctx, cancel := s.Bind(ctx)
	defer cancel()
	d, err := s.reviews.Open(ctx, s.OrganizationID(), reviewID)
	if err != nil {
		s.raise(err)
		return nil, err
	}
	s.mu.Lock()
	s.drafts[d.ID] = d
	s.mu.Unlock()
	return d, nil
}

func (s *Session) Draft(id string) (*reviews.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[id]
	if !ok {
		return nil, errors.Wrapf(ErrDraftNotFound, "%q", id)
	}
	return d, nil
}

func (s *Session) DiscardDraft(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return errors.Wrapf(ErrDraftNotFound, "%q", id)
	}
	delete(s.drafts, id)
	return nil
}

func (s *Session) GenerateEntries(ctx context.Context, draftID, rawText string) ([]reviews.Entry, error) {
	d, err := s.Draft(draftID)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.Bind(ctx)
	defer cancel()
	added, err := s.reviews.GenerateFromText(ctx, s.OrganizationID(), d, rawText)
	if err != nil {
		s.raise(err)
		return nil, err
	}
	return added, nil
}

// SubmitDraft saves the draft. The draft is dropped once the review is saved;
// after a partial failure it is kept so the user can retry.
func (s *Session) SubmitDraft(ctx context.Context, draftID string, h reviews.Header) (int64, error) {
	d, err := s.Draft(draftID)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.Bind(ctx)
	defer cancel()
	id, err := s.reviews.Submit(ctx, s.OrganizationID(), d, h)
	if err != nil {
		var submitErr *reviews.SubmitError
		if errors.As(err, &submitErr) {
			s.log.WithError(submitErr.Err).
				WithField("step", submitErr.Step).
				WithField("reviewId", submitErr.ReviewID).
				Warn("submit review")
		}
		s.raise(err)
		return id, err
	}
	s.mu.Lock()
	delete(s.drafts, draftID)
	s.mu.Unlock()
	s.alerts.Raise("Performance review saved.", alerts.StatusSuccess)
	return id, nil
}

func (s *Session) raise(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	switch {
	case errors.Is(err, reviews.ErrEmptyText):
		s.alerts.Raise("Please enter the review text first.", alerts.StatusWarning)
	case errors.Is(err, reviews.ErrReviewNotFound):
		s.alerts.Raise("Performance review not found.", alerts.StatusWarning)
	default:
		s.alerts.Raise(backend.UserMessage(err), alerts.StatusDanger)
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idle(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > timeout
}

// Close cancels everything in flight for the session.
func (s *Session) Close() {
	s.cancel()
}
