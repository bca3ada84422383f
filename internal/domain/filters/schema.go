package filters

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

var ErrUnknownView = errors.New("unknown view")

// Field names a filter value. Names match the JSON keys the browser sends.
type Field string

const (
	Organization Field = "organizationId"
	Department   Field = "departmentId"
	Employee     Field = "employeeId"
	Skill        Field = "skillId"
	StartDate    Field = "startDate"
	EndDate      Field = "endDate"

	TableID         Field = "id"
	TableFirstName  Field = "firstName"
	TableLastName   Field = "lastName"
	TableEmail      Field = "email"
	TableDepartment Field = "department"
	TableOccupation Field = "occupation"
	HireDateStart   Field = "hireDateStart"
	HireDateEnd     Field = "hireDateEnd"
)

type Kind string

const (
	EmployeeCharts     Kind = "employee_charts"
	OrganizationCharts Kind = "organization_charts"
	EmployeeTable      Kind = "employee_table"
)

var Kinds = []Kind{EmployeeCharts, OrganizationCharts, EmployeeTable}

func ParseKind(raw string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == raw {
			return k, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownView, "%q", raw)
}

// Trigger names a fetch counter that chart fetchers observe.
type Trigger string

const (
	TriggerOverall Trigger = "overall"
	TriggerSkill   Trigger = "skill"
)

// TriggerRule fires its trigger when a watched field changes and every
// required field is set. Gated rules additionally fire on an explicit fetch
// request.
type TriggerRule struct {
	Name    Trigger
	Watch   []Field
	Require []Field
	Gated   bool
}

// Edge links a parent selection to a dependent child selection. Clearing the
// parent always clears the child; ClearOnChange also clears it on any change.
type Edge struct {
	Parent        Field
	Child         Field
	ClearOnChange bool
}

type Schema struct {
	Kind     Kind
	Fields   []Field
	Scope    []Field
	Edges    []Edge
	Triggers []TriggerRule
	defaults Values
}

func (s Schema) Defaults() Values {
	return s.defaults.Clone()
}

func (s Schema) isScope(f Field) bool {
	for _, sf := range s.Scope {
		if sf == f {
			return true
		}
	}
	return false
}

func (s Schema) rule(name Trigger) (TriggerRule, bool) {
	for _, r := range s.Triggers {
		if r.Name == name {
			return r, true
		}
	}
	return TriggerRule{}, false
}

// DefaultDateRange spans the given calendar year.
func DefaultDateRange(year int) (string, string) {
	return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-12-31", year)
}

func SchemaFor(kind Kind, year int) (Schema, error) {
	switch kind {
	case EmployeeCharts:
		return EmployeeChartsSchema(year), nil
	case OrganizationCharts:
		return OrganizationChartsSchema(year), nil
	case EmployeeTable:
		return EmployeeTableSchema(), nil
	default:
		return Schema{}, errors.Wrapf(ErrUnknownView, "%q", kind)
	}
}

func EmployeeChartsSchema(year int) Schema {
	start, end := DefaultDateRange(year)
	return Schema{
		Kind:   EmployeeCharts,
		Fields: []Field{Organization, Department, Employee, Skill, StartDate, EndDate},
		Scope:  []Field{Organization},
		Edges: []Edge{
			{Parent: Department, Child: Employee},
			{Parent: Employee, Child: Skill, ClearOnChange: true},
		},
		Triggers: []TriggerRule{
			{
				Name:    TriggerOverall,
				Watch:   []Field{Organization, Employee, StartDate, EndDate},
				Require: []Field{Employee},
			},
			{
				Name:    TriggerSkill,
				Watch:   []Field{Skill, StartDate, EndDate},
				Require: []Field{Employee, Skill, StartDate, EndDate},
				Gated:   true,
			},
		},
		defaults: Values{
			Organization: "", Department: "", Employee: "", Skill: "",
			StartDate: start, EndDate: end,
		},
	}
}

func OrganizationChartsSchema(year int) Schema {
	start, end := DefaultDateRange(year)
	return Schema{
		Kind:   OrganizationCharts,
		Fields: []Field{Organization, Department, Skill, StartDate, EndDate},
		Scope:  []Field{Organization},
		Edges: []Edge{
			{Parent: Department, Child: Skill},
		},
		Triggers: []TriggerRule{
			{
				Name:    TriggerOverall,
				Watch:   []Field{Organization, Department, StartDate, EndDate},
				Require: []Field{Organization},
			},
			{
				Name:    TriggerSkill,
				Watch:   []Field{Organization, Department, Skill, StartDate, EndDate},
				Require: []Field{Organization, Skill, StartDate, EndDate},
				Gated:   true,
			},
		},
		defaults: Values{
			Organization: "", Department: "", Skill: "",
			StartDate: start, EndDate: end,
		},
	}
}

func EmployeeTableSchema() Schema {
	fields := []Field{
		Organization, TableID, TableFirstName, TableLastName, TableEmail,
		TableDepartment, TableOccupation, HireDateStart, HireDateEnd,
	}
	defaults := Values{}
	for _, f := range fields {
		defaults[f] = ""
	}
	return Schema{
		Kind:     EmployeeTable,
		Fields:   fields,
		Scope:    []Field{Organization},
		defaults: defaults,
	}
}

// Values maps fields to their string values. An empty string means unset.
type Values map[Field]string

func (v Values) Get(f Field) string {
	return v[f]
}

// ID returns the numeric id stored in f, or false when unset or not numeric.
func (v Values) ID(f Field) (int64, bool) {
	raw := v[f]
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
