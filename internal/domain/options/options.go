package options

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"pulse/internal/domain/filters"
	"pulse/internal/platform/backend"
)

type Option struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
}

type Lists struct {
	Departments []Option `json:"departments"`
	Employees   []Option `json:"employees"`
	Skills      []Option `json:"skills"`
	Occupations []Option `json:"occupations,omitempty"`
}

// Source is the slice of the backend client the resolver reads from.
type Source interface {
	ListDepartments(ctx context.Context, orgID int64) ([]backend.Department, error)
	ListEmployees(ctx context.Context, orgID int64) ([]backend.Employee, error)
	ListOrganizationSkills(ctx context.Context, orgID int64) ([]backend.Skill, error)
	ListDepartmentSkills(ctx context.Context, orgID, departmentID int64) ([]backend.Skill, error)
	ListOccupations(ctx context.Context, orgID int64) ([]backend.Occupation, error)
	LatestSkillEntries(ctx context.Context, orgID, employeeID int64) ([]backend.SkillEntry, error)
}

// Resolver keeps the option lists of one view consistent with its filter
// store and clears selections that are no longer offered.
//
// Every dependent fetch is stamped with a per-field sequence number at issue
// time. A response whose stamp is no longer the latest for its field is
// dropped, so the last issued request wins regardless of arrival order.
type Resolver struct {
	source  Source
	kind    filters.Kind
	onStale func(field string)

	mu          sync.Mutex
	orgID       int64
	departments []backend.Department
	employees   []backend.Employee
	orgSkills   []backend.Skill
	occupations []backend.Occupation
	lists       Lists
	stamps      map[string]uint64
}

func NewResolver(source Source, kind filters.Kind, onStale func(field string)) *Resolver {
	if onStale == nil {
		onStale = func(string) {}
	}
	return &Resolver{
		source:  source,
		kind:    kind,
		onStale: onStale,
		lists:   emptyLists(),
		stamps:  map[string]uint64{},
	}
}

func emptyLists() Lists {
	return Lists{
		Departments: []Option{},
		Employees:   []Option{},
		Skills:      []Option{},
	}
}

// Options returns a copy of the current lists.
func (r *Resolver) Options() Lists {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Lists{
		Departments: append([]Option{}, r.lists.Departments...),
		Employees:   append([]Option{}, r.lists.Employees...),
		Skills:      append([]Option{}, r.lists.Skills...),
		Occupations: append([]Option(nil), r.lists.Occupations...),
	}
}

// Employees returns the full employee directory of the loaded organization.
func (r *Resolver) Employees() []backend.Employee {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]backend.Employee{}, r.employees...)
}

func (r *Resolver) issue(field string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stamps[field]++
	return r.stamps[field]
}

// isCurrent must be called with r.mu held.
func (r *Resolver) isCurrent(field string, stamp uint64) bool {
	if r.stamps[field] == stamp {
		return true
	}
	r.onStale(field)
	return false
}

const stampDirectory = "organization"

// Load fetches the organization-wide lists in parallel and rebuilds the
// options for the given values.
func (r *Resolver) Load(ctx context.Context, orgID int64) error {
	stamp := r.issue(stampDirectory)

	var (
		departments []backend.Department
		employees   []backend.Employee
		skills      []backend.Skill
		occupations []backend.Occupation
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		departments, err = r.source.ListDepartments(gCtx, orgID)
		return errors.Wrap(err, "load departments")
	})
	g.Go(func() error {
		var err error
		employees, err = r.source.ListEmployees(gCtx, orgID)
		return errors.Wrap(err, "load employees")
	})
	if r.kind != filters.EmployeeTable {
		g.Go(func() error {
			var err error
			skills, err = r.source.ListOrganizationSkills(gCtx, orgID)
			return errors.Wrap(err, "load skills")
		})
	} else {
		g.Go(func() error {
			var err error
			occupations, err = r.source.ListOccupations(gCtx, orgID)
			return errors.Wrap(err, "load occupations")
		})
	}
	err := g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.isCurrent(stampDirectory, stamp) {
		return nil
	}
	r.orgID = orgID
	if err != nil {
		r.departments, r.employees, r.orgSkills, r.occupations = nil, nil, nil, nil
		r.lists = emptyLists()
		return err
	}
	r.departments = departments
	r.employees = employees
	r.orgSkills = skills
	r.occupations = occupations

	r.lists.Departments = departmentOptions(departments)
	r.lists.Employees = employeeOptions(employees, 0)
	if r.kind == filters.OrganizationCharts {
		r.lists.Skills = skillOptions(skills)
	} else {
		r.lists.Skills = []Option{}
	}
	if r.kind == filters.EmployeeTable {
		r.lists.Occupations = occupationOptions(occupations)
	}
	return nil
}

// Apply reconciles the option lists with a store change and prunes selections
// that fell out of their list. It returns the store changes caused by pruning.
func (r *Resolver) Apply(ctx context.Context, store *filters.Store, change filters.Change) ([]filters.Change, error) {
	values := store.Values()
	orgID, _ := values.ID(filters.Organization)

	refresh := change.Reset
	r.mu.Lock()
	loadedFor := r.orgID
	r.mu.Unlock()
	if change.ScopeChanged || loadedFor != orgID {
		if orgID == 0 {
			r.clear()
			return nil, nil
		}
		if err := r.Load(ctx, orgID); err != nil {
			return nil, err
		}
		refresh = true
	}

	switch r.kind {
	case filters.EmployeeCharts:
		return r.applyEmployeeCascade(ctx, store, change, refresh)
	case filters.OrganizationCharts:
		return r.applyOrganizationCascade(ctx, store, change, refresh)
	default:
		return nil, nil
	}
}

func (r *Resolver) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orgID = 0
	r.departments, r.employees, r.orgSkills, r.occupations = nil, nil, nil, nil
	r.lists = emptyLists()
}

func (r *Resolver) applyEmployeeCascade(ctx context.Context, store *filters.Store, change filters.Change, refresh bool) ([]filters.Change, error) {
	var changes []filters.Change

	if refresh || change.Has(filters.Department) || change.Has(filters.Employee) {
		values := store.Values()
		deptID, _ := values.ID(filters.Department)
		r.mu.Lock()
		r.lists.Employees = employeeOptions(r.employees, deptID)
		offered := containsID(r.lists.Employees, values.Get(filters.Employee))
		r.mu.Unlock()
		if values.Get(filters.Employee) != "" && !offered {
			changes = append(changes, store.Update(filters.Values{filters.Employee: ""}))
		}
	}

	employeeTouched := refresh || change.Has(filters.Employee)
	for _, c := range changes {
		employeeTouched = employeeTouched || c.Has(filters.Employee)
	}
	if !employeeTouched {
		return changes, nil
	}

	pruned, err := r.resolveEmployeeSkills(ctx, store)
	changes = append(changes, pruned...)
	return changes, err
}

// resolveEmployeeSkills restricts the skill options to the skills the selected
// employee has latest entries for. No employee means no skills.
func (r *Resolver) resolveEmployeeSkills(ctx context.Context, store *filters.Store) ([]filters.Change, error) {
	stamp := r.issue(string(filters.Skill))
	values := store.Values()
	orgID, _ := values.ID(filters.Organization)
	employeeID, hasEmployee := values.ID(filters.Employee)

	var (
		entries []backend.SkillEntry
		err     error
	)
	if hasEmployee {
		entries, err = r.source.LatestSkillEntries(ctx, orgID, employeeID)
	}

	r.mu.Lock()
	if !r.isCurrent(string(filters.Skill), stamp) {
		r.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		r.lists.Skills = []Option{}
	} else {
		r.lists.Skills = entrySkillOptions(r.orgSkills, entries)
	}
	skills := r.lists.Skills
	r.mu.Unlock()

	pruned := pruneSkill(store, skills)
	return pruned, errors.Wrap(err, "load employee skills")
}

func (r *Resolver) applyOrganizationCascade(ctx context.Context, store *filters.Store, change filters.Change, refresh bool) ([]filters.Change, error) {
	if !refresh && !change.Has(filters.Department) {
		return nil, nil
	}

	stamp := r.issue(string(filters.Skill))
	values := store.Values()
	orgID, _ := values.ID(filters.Organization)
	deptID, hasDept := values.ID(filters.Department)

	var (
		skills []backend.Skill
		err    error
	)
	if hasDept {
		skills, err = r.source.ListDepartmentSkills(ctx, orgID, deptID)
	} else if refresh {
		r.mu.Lock()
		skills = r.orgSkills
		r.mu.Unlock()
	} else {
		skills, err = r.source.ListOrganizationSkills(ctx, orgID)
	}

	r.mu.Lock()
	if !r.isCurrent(string(filters.Skill), stamp) {
		r.mu.Unlock()
		return nil, nil
	}
	if err != nil {
		r.lists.Skills = []Option{}
	} else {
		r.lists.Skills = skillOptions(skills)
	}
	list := r.lists.Skills
	r.mu.Unlock()

	return pruneSkill(store, list), errors.Wrap(err, "load department skills")
}

func pruneSkill(store *filters.Store, skills []Option) []filters.Change {
	selected := store.Values().Get(filters.Skill)
	if selected == "" || containsID(skills, selected) {
		return nil
	}
	return []filters.Change{store.Update(filters.Values{filters.Skill: ""})}
}

func containsID(list []Option, raw string) bool {
	if raw == "" {
		return false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	for _, o := range list {
		if o.ID == id {
			return true
		}
	}
	return false
}

func departmentOptions(departments []backend.Department) []Option {
	out := make([]Option, 0, len(departments))
	for _, d := range departments {
		out = append(out, Option{ID: d.ID, Label: d.Name})
	}
	return out
}

// employeeOptions lists employees of departmentID, or everyone when zero.
func employeeOptions(employees []backend.Employee, departmentID int64) []Option {
	out := make([]Option, 0, len(employees))
	for _, e := range employees {
		if departmentID != 0 && e.DepartmentID != departmentID {
			continue
		}
		out = append(out, Option{ID: e.ID, Label: e.FullName()})
	}
	return out
}

func skillOptions(skills []backend.Skill) []Option {
	out := make([]Option, 0, len(skills))
	for _, s := range skills {
		out = append(out, Option{ID: s.ID, Label: s.Name})
	}
	return out
}

func occupationOptions(occupations []backend.Occupation) []Option {
	out := make([]Option, 0, len(occupations))
	for _, o := range occupations {
		out = append(out, Option{ID: o.ID, Label: o.Title})
	}
	return out
}

// entrySkillOptions keeps the organization's skill order and labels, limited
// to the skills present in entries. Skills unknown to the organization list
// are appended with the entry's own name, sorted by id.
func entrySkillOptions(orgSkills []backend.Skill, entries []backend.SkillEntry) []Option {
	wanted := make(map[int64]string, len(entries))
	for _, e := range entries {
		wanted[e.SkillID] = e.SkillName
	}
	out := make([]Option, 0, len(wanted))
	for _, s := range orgSkills {
		if _, ok := wanted[s.ID]; ok {
			out = append(out, Option{ID: s.ID, Label: s.Name})
			delete(wanted, s.ID)
		}
	}
	var rest []Option
	for id, name := range wanted {
		if name == "" {
			continue
		}
		rest = append(rest, Option{ID: id, Label: name})
	}
	sort.Slice(rest, func(i, j int) bool { return rest[i].ID < rest[j].ID })
	return append(out, rest...)
}
