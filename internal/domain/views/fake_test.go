package views

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"pulse/internal/platform/backend"
)

type fakeBackend struct {
	mu          sync.Mutex
	departments []backend.Department
	employees   []backend.Employee
	skills      []backend.Skill
	latest      map[int64][]backend.SkillEntry
	reportErr   error
	reportCalls int
	lastQuery   backend.ReportQuery
	gates       map[string]*gate
	addFailures int
	created     map[int64]bool
}

type gate struct {
	started chan struct{}
	open    chan struct{}
	once    sync.Once
}

// hold parks calls for key until release runs. started receives once the
// first call is parked.
func (f *fakeBackend) hold(t *testing.T, key string) (started <-chan struct{}, release func()) {
	g := &gate{started: make(chan struct{}, 1), open: make(chan struct{})}
	f.mu.Lock()
	if f.gates == nil {
		f.gates = map[string]*gate{}
	}
	f.gates[key] = g
	f.mu.Unlock()
	release = func() { g.once.Do(func() { close(g.open) }) }
	t.Cleanup(release)
	return g.started, release
}

func (f *fakeBackend) pass(ctx context.Context, key string) error {
	f.mu.Lock()
	g := f.gates[key]
	f.mu.Unlock()
	if g == nil {
		return nil
	}
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		departments: []backend.Department{{ID: 2, Name: "Engineering"}, {ID: 3, Name: "Sales"}},
		employees: []backend.Employee{
			{ID: 17, FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", DepartmentID: 2, HireDate: backend.DateOf(2020, time.March, 1)},
			{ID: 18, FirstName: "Alan", LastName: "Turing", Email: "alan@example.com", DepartmentID: 2, HireDate: backend.DateOf(2022, time.June, 15)},
			{ID: 30, FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", DepartmentID: 3},
		},
		skills: []backend.Skill{{ID: 4, Name: "Go"}, {ID: 9, Name: "SQL"}, {ID: 11, Name: "Kotlin"}},
		latest: map[int64][]backend.SkillEntry{
			17: {{SkillID: 9, SkillName: "SQL"}, {SkillID: 4, SkillName: "Go"}},
			18: {{SkillID: 11, SkillName: "Kotlin"}},
		},
	}
}

func (f *fakeBackend) ListDepartments(context.Context, int64) ([]backend.Department, error) {
	return f.departments, nil
}

func (f *fakeBackend) ListEmployees(context.Context, int64) ([]backend.Employee, error) {
	return f.employees, nil
}

func (f *fakeBackend) ListOrganizationSkills(context.Context, int64) ([]backend.Skill, error) {
	return f.skills, nil
}

func (f *fakeBackend) ListDepartmentSkills(context.Context, int64, int64) ([]backend.Skill, error) {
	return f.skills[:2], nil
}

func (f *fakeBackend) SearchSkills(context.Context, int64, string) ([]backend.Skill, error) {
	return f.skills, nil
}

func (f *fakeBackend) ListOccupations(context.Context, int64) ([]backend.Occupation, error) {
	return []backend.Occupation{{ID: 1, Title: "Engineer"}}, nil
}

func (f *fakeBackend) LatestSkillEntries(ctx context.Context, _, employeeID int64) ([]backend.SkillEntry, error) {
	if err := f.pass(ctx, "latest:"+strconv.FormatInt(employeeID, 10)); err != nil {
		return nil, err
	}
	return f.latest[employeeID], nil
}

func (f *fakeBackend) record(q backend.ReportQuery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	f.lastQuery = q
	return f.reportErr
}

func (f *fakeBackend) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reportCalls
}

func periods() []backend.ReportPeriod {
	return []backend.ReportPeriod{
		{PeriodStart: backend.DateOf(2025, time.April, 1), AvgRating: backend.NumberOf(4), MinRating: backend.NumberOf(3), MaxRating: backend.NumberOf(5)},
		{PeriodStart: backend.DateOf(2025, time.January, 1), AvgRating: backend.NumberOf(3)},
	}
}

func timeline(id int64, name string) backend.SkillTimeline {
	return backend.SkillTimeline{
		SkillID:   id,
		SkillName: name,
		Timeline:  []backend.TimelinePoint{{Date: backend.DateOf(2025, time.February, 3), Rating: backend.NumberOf(4)}},
	}
}

func (f *fakeBackend) OrgReport(_ context.Context, _ int64, q backend.ReportQuery) (*backend.OrgReport, error) {
	if err := f.record(q); err != nil {
		return nil, err
	}
	return &backend.OrgReport{
		OrganizationName: "Acme",
		Skills:           []backend.SkillPeriods{{SkillID: 4, SkillName: "Go", Periods: periods()}},
		OverallRatings:   []backend.OverallRating{{PeriodStart: backend.DateOf(2025, time.March, 1), AvgOverallRating: backend.NumberOf(3.9)}},
	}, nil
}

func (f *fakeBackend) EmployeeReport(_ context.Context, _, employeeID int64, q backend.ReportQuery) (*backend.EmployeeReport, error) {
	if err := f.record(q); err != nil {
		return nil, err
	}
	return &backend.EmployeeReport{
		EmployeeID: employeeID,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Skills: []backend.SkillPeriods{
			{SkillID: 9, SkillName: "SQL", Periods: periods()},
			{SkillID: 4, SkillName: "Go", Periods: periods()},
		},
	}, nil
}

func (f *fakeBackend) EmployeeTimeline(ctx context.Context, _, employeeID int64, q backend.ReportQuery) (*backend.EmployeeTimeline, error) {
	if err := f.pass(ctx, "timeline"); err != nil {
		return nil, err
	}
	if err := f.record(q); err != nil {
		return nil, err
	}
	return &backend.EmployeeTimeline{
		EmployeeID: employeeID,
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Skills:     []backend.SkillTimeline{timeline(9, "SQL"), timeline(4, "Go")},
	}, nil
}

func (f *fakeBackend) OrgTimeline(_ context.Context, _ int64, q backend.ReportQuery) (*backend.OrgTimeline, error) {
	if err := f.record(q); err != nil {
		return nil, err
	}
	return &backend.OrgTimeline{OrganizationName: "Acme", Skills: []backend.SkillTimeline{timeline(4, "Go")}}, nil
}

func (f *fakeBackend) GetReview(_ context.Context, _, reviewID int64) (*backend.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created[reviewID] {
		return &backend.Review{ID: reviewID}, nil
	}
	return nil, &backend.Error{Operation: "get_review", Status: http.StatusNotFound, Message: "Review not found"}
}

func (f *fakeBackend) CreateReview(context.Context, int64, backend.SaveReview) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.created == nil {
		f.created = map[int64]bool{}
	}
	f.created[77] = true
	return 77, nil
}

func (f *fakeBackend) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeBackend) UpdateReview(context.Context, int64, int64, backend.SaveReview) error {
	return nil
}

func (f *fakeBackend) DeleteSkillEntry(context.Context, int64, int64, int64) error {
	return nil
}

func (f *fakeBackend) AddSkillEntries(context.Context, int64, int64, []backend.SaveSkillEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addFailures > 0 {
		f.addFailures--
		return &backend.Error{Operation: "add_skill_entries", Status: http.StatusBadGateway, Message: "upstream unavailable"}
	}
	return nil
}

func (f *fakeBackend) GenerateSkillEntries(context.Context, int64, string) ([]backend.GeneratedSkillEntry, error) {
	return []backend.GeneratedSkillEntry{{SkillID: 4, SkillName: "Go", Rating: backend.NumberOf(4)}}, nil
}

func newTestRegistry(b *fakeBackend, cfg Config) (*Registry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	if cfg.ReportYear == 0 {
		cfg.ReportYear = 2025
	}
	if cfg.AlertTTL == 0 {
		cfg.AlertTTL = time.Minute
	}
	return NewRegistry(b, cfg, Hooks{}, logger), hook
}
