package options

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"pulse/internal/platform/backend"
)

type fakeSource struct {
	mu          sync.Mutex
	departments []backend.Department
	employees   []backend.Employee
	skills      []backend.Skill
	deptSkills  map[int64][]backend.Skill
	latest      map[int64][]backend.SkillEntry
	searchHits  []backend.Skill
	gates       map[int64]chan struct{}
	entered     chan int64
	failLatest  bool
	searches    []string
}

func (f *fakeSource) ListDepartments(context.Context, int64) ([]backend.Department, error) {
	return f.departments, nil
}

func (f *fakeSource) ListEmployees(context.Context, int64) ([]backend.Employee, error) {
	return f.employees, nil
}

func (f *fakeSource) ListOrganizationSkills(context.Context, int64) ([]backend.Skill, error) {
	return f.skills, nil
}

func (f *fakeSource) ListDepartmentSkills(_ context.Context, _ int64, departmentID int64) ([]backend.Skill, error) {
	return f.deptSkills[departmentID], nil
}

func (f *fakeSource) ListOccupations(context.Context, int64) ([]backend.Occupation, error) {
	return []backend.Occupation{{ID: 1, Title: "Engineer"}}, nil
}

func (f *fakeSource) LatestSkillEntries(ctx context.Context, _ int64, employeeID int64) ([]backend.SkillEntry, error) {
	f.mu.Lock()
	gate := f.gates[employeeID]
	fail := f.failLatest
	f.mu.Unlock()
	if gate != nil {
		if f.entered != nil {
			f.entered <- employeeID
		}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errors.New("backend unavailable")
	}
	return f.latest[employeeID], nil
}

func (f *fakeSource) SearchSkills(_ context.Context, _ int64, query string) ([]backend.Skill, error) {
	f.mu.Lock()
	f.searches = append(f.searches, query)
	f.mu.Unlock()
	return f.searchHits, nil
}

func (f *fakeSource) searched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

func directory() *fakeSource {
	return &fakeSource{
		departments: []backend.Department{{ID: 2, Name: "Research"}, {ID: 3, Name: "Sales"}},
		employees: []backend.Employee{
			{ID: 17, FirstName: "Ada", LastName: "Lovelace", DepartmentID: 2},
			{ID: 18, FirstName: "Alan", LastName: "Turing", DepartmentID: 2},
			{ID: 30, FirstName: "Grace", LastName: "Hopper", DepartmentID: 3},
		},
		skills: []backend.Skill{{ID: 4, Name: "Go"}, {ID: 9, Name: "SQL"}, {ID: 11, Name: "Kotlin"}},
		deptSkills: map[int64][]backend.Skill{
			2: {{ID: 4, Name: "Go"}, {ID: 9, Name: "SQL"}},
			3: {{ID: 11, Name: "Kotlin"}},
		},
		latest: map[int64][]backend.SkillEntry{
			17: {{SkillID: 9}, {SkillID: 4}},
			18: {{SkillID: 11}},
			30: {{SkillID: 11}, {SkillID: 99, SkillName: "Negotiation"}},
		},
		gates: map[int64]chan struct{}{},
	}
}
