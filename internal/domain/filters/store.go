package filters

import (
	"sort"
	"sync"
)

// Change describes the effect of one store operation.
type Change struct {
	Generation   uint64    `json:"generation"`
	Changed      []Field   `json:"changed"`
	Cleared      []Field   `json:"cleared"`
	Fired        []Trigger `json:"fired"`
	Reset        bool      `json:"reset,omitempty"`
	ScopeChanged bool      `json:"scopeChanged,omitempty"`
}

func (c Change) Has(f Field) bool {
	for _, changed := range c.Changed {
		if changed == f {
			return true
		}
	}
	return false
}

func (c Change) HasFired(t Trigger) bool {
	for _, fired := range c.Fired {
		if fired == t {
			return true
		}
	}
	return false
}

type Snapshot struct {
	Kind       Kind               `json:"kind"`
	Values     Values             `json:"values"`
	Generation uint64             `json:"generation"`
	Triggers   map[Trigger]uint64 `json:"triggers"`
}

// Store holds the filter values of one view. Every mutation bumps the
// generation; fetch triggers are counted separately so edits alone do not
// imply a fetch.
type Store struct {
	mu         sync.Mutex
	schema     Schema
	values     Values
	generation uint64
	triggers   map[Trigger]uint64
}

func NewStore(schema Schema) *Store {
	triggers := make(map[Trigger]uint64, len(schema.Triggers))
	for _, r := range schema.Triggers {
		triggers[r.Name] = 0
	}
	return &Store{
		schema:   schema,
		values:   schema.Defaults(),
		triggers: triggers,
	}
}

func (s *Store) Schema() Schema {
	return s.schema
}

// Update merges partial into the current values. Field names are not
// validated. A changed scope field first restores every other field to its
// default.
func (s *Store) Update(partial Values) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.values
	next := old.Clone()

	scopeChanged := false
	for f, v := range partial {
		if s.schema.isScope(f) && next[f] != v {
			scopeChanged = true
		}
	}
	var cleared []Field
	if scopeChanged {
		next = s.resetKeepingScope(old)
		for _, f := range s.schema.Fields {
			if _, explicit := partial[f]; !explicit && old[f] != next[f] {
				cleared = append(cleared, f)
			}
		}
	}
	for f, v := range partial {
		next[f] = v
	}

	cleared = append(cleared, s.cascade(old, next, partial)...)
	return s.commit(old, next, cleared, false, scopeChanged)
}

// Reset restores the defaults, keeping the scope fields.
func (s *Store) Reset() Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.values
	next := s.resetKeepingScope(old)
	return s.commit(old, next, nil, true, false)
}

// RequestReportFetch counts a fetch request on every gated trigger. Only
// triggers whose required fields are set are reported as fired.
func (s *Store) RequestReportFetch() Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fired []Trigger
	for _, r := range s.schema.Triggers {
		if !r.Gated {
			continue
		}
		s.triggers[r.Name]++
		if ready(r, s.values) {
			fired = append(fired, r.Name)
		}
	}
	return Change{Generation: s.generation, Fired: fired}
}

func (s *Store) Values() Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values.Clone()
}

func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

func (s *Store) TriggerCount(t Trigger) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers[t]
}

// Ready reports whether every field the trigger requires is set.
func (s *Store) Ready(t Trigger) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.schema.rule(t)
	return ok && ready(r, s.values)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	triggers := make(map[Trigger]uint64, len(s.triggers))
	for k, v := range s.triggers {
		triggers[k] = v
	}
	return Snapshot{
		Kind:       s.schema.Kind,
		Values:     s.values.Clone(),
		Generation: s.generation,
		Triggers:   triggers,
	}
}

func (s *Store) resetKeepingScope(current Values) Values {
	next := s.schema.Defaults()
	for _, f := range s.schema.Scope {
		next[f] = current[f]
	}
	return next
}

// cascade clears children whose parent was emptied, or changed on a
// ClearOnChange edge, until nothing else changes. A child explicitly present
// in partial keeps its new value.
func (s *Store) cascade(old, next, partial Values) []Field {
	var cleared []Field
	for {
		progressed := false
		for _, e := range s.schema.Edges {
			if old[e.Parent] == next[e.Parent] || next[e.Child] == "" {
				continue
			}
			if _, explicit := partial[e.Child]; explicit {
				continue
			}
			if next[e.Parent] == "" || e.ClearOnChange {
				next[e.Child] = ""
				cleared = append(cleared, e.Child)
				progressed = true
			}
		}
		if !progressed {
			return cleared
		}
	}
}

func (s *Store) commit(old, next Values, cleared []Field, reset, scopeChanged bool) Change {
	changed := s.diff(old, next)
	s.values = next
	s.generation++

	var fired []Trigger
	for _, r := range s.schema.Triggers {
		if !ready(r, next) || !watches(r, changed) {
			continue
		}
		s.triggers[r.Name]++
		fired = append(fired, r.Name)
	}

	return Change{
		Generation:   s.generation,
		Changed:      changed,
		Cleared:      cleared,
		Fired:        fired,
		Reset:        reset,
		ScopeChanged: scopeChanged,
	}
}

// diff lists differing fields in schema order, then unknown fields sorted.
func (s *Store) diff(old, next Values) []Field {
	seen := make(map[Field]bool, len(next))
	var changed []Field
	for _, f := range s.schema.Fields {
		seen[f] = true
		if old[f] != next[f] {
			changed = append(changed, f)
		}
	}
	var extra []Field
	for f := range unionKeys(old, next) {
		if !seen[f] && old[f] != next[f] {
			extra = append(extra, f)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(changed, extra...)
}

func unionKeys(a, b Values) map[Field]struct{} {
	keys := make(map[Field]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	return keys
}

func ready(r TriggerRule, values Values) bool {
	for _, f := range r.Require {
		if values[f] == "" {
			return false
		}
	}
	return true
}

func watches(r TriggerRule, changed []Field) bool {
	for _, c := range changed {
		for _, w := range r.Watch {
			if c == w {
				return true
			}
		}
	}
	return false
}
