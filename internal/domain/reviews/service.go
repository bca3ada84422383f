package reviews

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pulse/internal/platform/backend"
)

type Service struct {
	API BackendAPI
	now func() time.Time
}

func NewService(api BackendAPI) *Service {
	return &Service{API: api, now: time.Now}
}

// Open starts a draft. For an existing review the draft is seeded with the
// review's current skill entries.
func (s *Service) Open(ctx context.Context, orgID, reviewID int64) (*Draft, error) {
	draft := NewDraft(reviewID)
	if reviewID <= 0 {
		return draft, nil
	}
	review, err := s.API.GetReview(ctx, orgID, reviewID)
	if err != nil {
		if backend.IsNotFound(err) {
			return nil, errors.Wrapf(ErrReviewNotFound, "review %d", reviewID)
		}
		return nil, errors.Wrap(err, "load review")
	}
	for _, e := range review.SkillEntries {
		draft.Add(e.SkillID, e.SkillName, e.Rating.OrZero())
	}
	return draft, nil
}

// GenerateFromText asks the backend to extract skill ratings from rawText and
// merges them into the draft without overwriting existing skills.
func (s *Service) GenerateFromText(ctx context.Context, orgID int64, draft *Draft, rawText string) ([]Entry, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, ErrEmptyText
	}
	generated, err := s.API.GenerateSkillEntries(ctx, orgID, rawText)
	if err != nil {
		return nil, errors.Wrap(err, "generate skill entries")
	}
	candidates := make([]Entry, 0, len(generated))
	for _, g := range generated {
		if g.SkillID <= 0 {
			continue
		}
		candidates = append(candidates, Entry{SkillID: g.SkillID, SkillName: g.SkillName, Rating: g.Rating.OrZero()})
	}
	return draft.Merge(candidates), nil
}

// Submit persists the draft. Creating posts the review and then its entries.
// Editing updates the review, deletes every stored entry and bulk-adds the
// draft entries. Any failure returns a *SubmitError naming the step; earlier
// steps stay applied. A created review whose entries failed stays bound to
// the draft, so a retry replaces its entries instead of creating it again.
func (s *Service) Submit(ctx context.Context, orgID int64, draft *Draft, h Header) (int64, error) {
	reviewDate := h.ReviewDate
	if reviewDate == "" {
		reviewDate = s.now().Format("2006-01-02")
	}
	payload := backend.SaveReview{
		RawText:       h.RawText,
		Comments:      h.Comments,
		OverallRating: h.OverallRating,
		ReporterID:    h.ReporterID,
		EmployeeID:    h.EmployeeID,
		ReviewDate:    reviewDate,
	}
	entries := saveEntries(draft.Entries(), reviewDate)

	if draft.Mode() == ModeCreate {
		id, err := s.API.CreateReview(ctx, orgID, payload)
		if err != nil {
			return 0, &SubmitError{Step: StepCreateReview, Err: err}
		}
		if err := s.API.AddSkillEntries(ctx, orgID, id, entries); err != nil {
			draft.bind(id)
			return id, &SubmitError{Step: StepAddEntries, ReviewID: id, Err: err}
		}
		return id, nil
	}

	id := draft.reviewID()
	if err := s.API.UpdateReview(ctx, orgID, id, payload); err != nil {
		return id, &SubmitError{Step: StepUpdateReview, ReviewID: id, Err: err}
	}
	current, err := s.API.GetReview(ctx, orgID, id)
	if err != nil {
		return id, &SubmitError{Step: StepLoadEntries, ReviewID: id, Err: err}
	}
	for _, existing := range current.SkillEntries {
		if err := s.API.DeleteSkillEntry(ctx, orgID, id, existing.ID); err != nil {
			return id, &SubmitError{Step: StepDeleteEntries, ReviewID: id, Err: err}
		}
	}
	if err := s.API.AddSkillEntries(ctx, orgID, id, entries); err != nil {
		return id, &SubmitError{Step: StepAddEntries, ReviewID: id, Err: err}
	}
	return id, nil
}

func saveEntries(entries []Entry, entryDate string) []backend.SaveSkillEntry {
	out := make([]backend.SaveSkillEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, backend.SaveSkillEntry{SkillID: e.SkillID, Rating: e.Rating, EntryDate: entryDate})
	}
	return out
}
