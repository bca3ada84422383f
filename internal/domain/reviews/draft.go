package reviews

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Draft accumulates skill ratings before a review is created or updated.
// A skill appears at most once; the first entry added for it wins.
type Draft struct {
	ID        string    `json:"id"`
	ReviewID  int64     `json:"reviewId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	mu      sync.Mutex
	entries []Entry
}

func NewDraft(reviewID int64) *Draft {
	return &Draft{
		ID:        uuid.NewString(),
		ReviewID:  reviewID,
		CreatedAt: time.Now().UTC(),
		entries:   []Entry{},
	}
}

func (d *Draft) Mode() string {
	if d.reviewID() > 0 {
		return ModeEdit
	}
	return ModeCreate
}

func (d *Draft) reviewID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ReviewID
}

// bind attaches the draft to a review that already exists on the backend.
// Later submits update that review instead of creating another one.
func (d *Draft) bind(reviewID int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ReviewID = reviewID
}

// Add appends an entry unless the skill is already present. The returned bool
// is false for the no-op case.
func (d *Draft) Add(skillID int64, skillName string, rating float64) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addLocked(skillID, skillName, rating)
}

func (d *Draft) addLocked(skillID int64, skillName string, rating float64) (Entry, bool) {
	for _, e := range d.entries {
		if e.SkillID == skillID {
			return e, false
		}
	}
	entry := Entry{
		TempID:    uuid.NewString(),
		SkillID:   skillID,
		SkillName: skillName,
		Rating:    rating,
	}
	d.entries = append(d.entries, entry)
	return entry, true
}

func (d *Draft) Remove(tempID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, e := range d.entries {
		if e.TempID == tempID {
			d.entries = append(d.entries[:i], d.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Merge adds the candidates whose skill is not in the draft yet and returns
// the entries actually added.
func (d *Draft) Merge(candidates []Entry) []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	added := make([]Entry, 0, len(candidates))
	for _, c := range candidates {
		if entry, ok := d.addLocked(c.SkillID, c.SkillName, c.Rating); ok {
			added = append(added, entry)
		}
	}
	return added
}

func (d *Draft) Entries() []Entry {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Entry{}, d.entries...)
}

type DraftView struct {
	ID       string  `json:"id"`
	ReviewID int64   `json:"reviewId,omitempty"`
	Mode     string  `json:"mode"`
	Entries  []Entry `json:"entries"`
}

func (d *Draft) View() DraftView {
	return DraftView{ID: d.ID, ReviewID: d.reviewID(), Mode: d.Mode(), Entries: d.Entries()}
}
