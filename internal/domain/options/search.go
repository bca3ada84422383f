package options

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/pkg/errors"

	"pulse/internal/platform/backend"
)

// ErrSuperseded is returned to a search call overtaken by a newer one.
var ErrSuperseded = errors.New("search superseded by a newer query")

type SkillSearcher interface {
	SearchSkills(ctx context.Context, orgID int64, query string) ([]backend.Skill, error)
	ListOrganizationSkills(ctx context.Context, orgID int64) ([]backend.Skill, error)
}

// Searcher backs a search-as-you-type skill picker. A query reaches the
// backend only after the debounce period passes without a newer query; any
// call overtaken by a newer one returns ErrSuperseded.
type Searcher struct {
	source   SkillSearcher
	debounce time.Duration

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewSearcher(source SkillSearcher, debounce time.Duration) *Searcher {
	return &Searcher{source: source, debounce: debounce}
}

func (s *Searcher) Search(ctx context.Context, orgID int64, query string) ([]Option, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	if query == "" {
		skills, err := s.source.ListOrganizationSkills(ctx, orgID)
		if err != nil {
			return nil, s.failure(seq, err)
		}
		if err := s.check(seq); err != nil {
			return nil, err
		}
		return skillOptions(skills), nil
	}

	if s.debounce > 0 {
		timer := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, s.failure(seq, ctx.Err())
		case <-timer.C:
		}
	}
	if err := s.check(seq); err != nil {
		return nil, err
	}

	skills, err := s.source.SearchSkills(ctx, orgID, query)
	if err != nil {
		return nil, s.failure(seq, err)
	}
	if err := s.check(seq); err != nil {
		return nil, err
	}
	return Rank(query, skillOptions(skills)), nil
}

func (s *Searcher) check(seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return ErrSuperseded
	}
	return nil
}

// failure reports ErrSuperseded instead of err when a newer query exists,
// since cancellation of an overtaken call is expected.
func (s *Searcher) failure(seq uint64, err error) error {
	if superseded := s.check(seq); superseded != nil {
		return superseded
	}
	return errors.Wrap(err, "search skills")
}

// Rank orders options by fuzzy match quality against query. Options that do
// not match keep their original order after the ranked ones.
func Rank(query string, opts []Option) []Option {
	if query == "" || len(opts) == 0 {
		return opts
	}
	labels := make([]string, len(opts))
	for i, o := range opts {
		labels[i] = o.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(query, labels)
	sort.Stable(ranks)

	out := make([]Option, 0, len(opts))
	used := make([]bool, len(opts))
	for _, rank := range ranks {
		out = append(out, opts[rank.OriginalIndex])
		used[rank.OriginalIndex] = true
	}
	for i, o := range opts {
		if !used[i] {
			out = append(out, o)
		}
	}
	return out
}
