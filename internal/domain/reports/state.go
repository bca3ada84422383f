package reports

import (
	"sync"
	"time"
)

// State is what a chart renders. Series is nil before the first fetch and
// after a failed one; an empty list is a successful fetch without data.
type State struct {
	ID                ChartID    `json:"id"`
	Title             string     `json:"title"`
	Subject           string     `json:"subject,omitempty"`
	Loading           bool       `json:"loading"`
	HasAttemptedFetch bool       `json:"hasAttemptedFetch"`
	Failed            bool       `json:"failed"`
	Series            []Series   `json:"series"`
	Message           string     `json:"message,omitempty"`
	Generation        uint64     `json:"generation"`
	FetchedAt         *time.Time `json:"fetchedAt,omitempty"`
}

// Tracker owns the state of one chart. Each fetch takes a ticket from Begin;
// only the newest ticket may finish, so a slow response never overwrites a
// newer one.
type Tracker struct {
	mu     sync.Mutex
	def    Definition
	state  State
	ticket uint64
}

func NewTracker(def Definition) *Tracker {
	return &Tracker{def: def, state: State{ID: def.ID, Title: def.Title}}
}

func (t *Tracker) Definition() Definition {
	return t.def
}

func (t *Tracker) Begin(generation uint64) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticket++
	t.state.Loading = true
	t.state.Generation = generation
	return t.ticket
}

// Finish records the outcome of the fetch holding ticket. It reports false
// when a newer fetch has started since.
func (t *Tracker) Finish(ticket uint64, res Result, err error, at time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ticket != t.ticket {
		return false
	}
	t.state.Loading = false
	t.state.HasAttemptedFetch = true
	t.state.FetchedAt = &at
	if err != nil {
		t.state.Failed = true
		t.state.Series = nil
		t.state.Subject = ""
		t.state.Message = t.def.FailedMessage
		return true
	}
	t.state.Failed = false
	t.state.Subject = res.Subject
	t.state.Series = res.Series
	if t.state.Series == nil {
		t.state.Series = []Series{}
	}
	t.state.Message = ""
	if Empty(t.state.Series) {
		t.state.Message = t.def.NoDataMessage
	}
	return true
}

// Clear forgets fetched data and abandons any fetch in flight.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ticket++
	t.state = State{ID: t.def.ID, Title: t.def.Title}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := t.state
	if out.Series != nil {
		out.Series = append([]Series{}, out.Series...)
	}
	return out
}
