package filters

import (
	"strconv"
	"strings"

	"pulse/internal/platform/backend"
)

const dateLayout = "2006-01-02"

// MatchEmployees applies the employee table filters: case-insensitive
// substring matches on the text fields and an inclusive hire date range.
// Employees without a hire date are excluded once a range bound is set.
func MatchEmployees(values Values, employees []backend.Employee) []backend.Employee {
	out := make([]backend.Employee, 0, len(employees))
	start, hasStart := boundDate(values.Get(HireDateStart))
	end, hasEnd := boundDate(values.Get(HireDateEnd))

	for _, e := range employees {
		if !contains(strconv.FormatInt(e.ID, 10), values.Get(TableID)) ||
			!contains(e.FirstName, values.Get(TableFirstName)) ||
			!contains(e.LastName, values.Get(TableLastName)) ||
			!contains(e.Email, values.Get(TableEmail)) ||
			!contains(e.DepartmentName, values.Get(TableDepartment)) ||
			!contains(e.OccupationTitle, values.Get(TableOccupation)) {
			continue
		}
		if hasStart || hasEnd {
			if e.HireDate.IsZero() {
				continue
			}
			hired := e.HireDate.Format(dateLayout)
			if hasStart && hired < start {
				continue
			}
			if hasEnd && hired > end {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

func contains(value, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(value), strings.ToLower(needle))
}

func boundDate(raw string) (string, bool) {
	parsed, ok := backend.ParseDate(raw)
	if !ok {
		return "", false
	}
	return parsed.Format(dateLayout), true
}
