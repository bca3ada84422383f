package backend

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Number is a numeric field the backend may send as a number, a numeric
// string or null. Valid is false for null or absent values.
type Number struct {
	Value float64
	Valid bool
}

func NumberOf(v float64) Number {
	return Number{Value: v, Valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*n = Number{}
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = Number{}
			return nil
		}
		*n = Number{Value: v, Valid: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return errors.Wrap(err, "decode number")
	}
	*n = Number{Value: v, Valid: true}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// OrZero returns the value, or 0 when absent.
func (n Number) OrZero() float64 {
	if !n.Valid {
		return 0
	}
	return n.Value
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
}

// Date is a calendar date as sent by the backend. Unparseable values decode
// to the zero Date instead of failing the whole payload.
type Date struct {
	time.Time
}

func DateOf(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(value string) (Date, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Date{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return Date{Time: parsed}, true
		}
	}
	return Date{}, false
}

func (d *Date) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		*d = Date{}
		return nil
	}
	parsed, _ := ParseDate(s)
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

type Department struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	OrganizationID int64  `json:"organizationId"`
	ManagerID      int64  `json:"managerId,omitempty"`
}

type Employee struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	HireDate        Date   `json:"hireDate"`
	DepartmentID    int64  `json:"departmentId"`
	DepartmentName  string `json:"departmentName"`
	OccupationID    int64  `json:"occupationId"`
	OccupationTitle string `json:"occupationTitle"`
	ManagerID       int64  `json:"managerId,omitempty"`
}

func (e Employee) FullName() string {
	return strings.TrimSpace(e.FirstName + " " + e.LastName)
}

type Skill struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Occupation struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

type SkillEntry struct {
	ID         int64  `json:"id"`
	SkillID    int64  `json:"skillId"`
	SkillName  string `json:"skillName,omitempty"`
	Rating     Number `json:"rating"`
	EntryDate  Date   `json:"entryDate"`
	EmployeeID int64  `json:"employeeId,omitempty"`
}

type GeneratedSkillEntry struct {
	SkillID   int64  `json:"skillId"`
	SkillName string `json:"skillName"`
	Rating    Number `json:"rating"`
}

type SaveSkillEntry struct {
	SkillID   int64   `json:"skillId"`
	Rating    float64 `json:"rating"`
	EntryDate string  `json:"entryDate,omitempty"`
}

type Review struct {
	ID            int64        `json:"id"`
	RawText       string       `json:"rawText"`
	Comments      string       `json:"comments"`
	OverallRating Number       `json:"overallRating"`
	ReviewDate    Date         `json:"reviewDate"`
	EmployeeID    int64        `json:"employeeId,omitempty"`
	ReporterID    int64        `json:"reporterId,omitempty"`
	SkillEntries  []SkillEntry `json:"skillEntryDtos"`
}

type SaveReview struct {
	RawText       string   `json:"rawText"`
	Comments      string   `json:"comments"`
	OverallRating *float64 `json:"overallRating,omitempty"`
	ReporterID    int64    `json:"reporterId,omitempty"`
	EmployeeID    int64    `json:"employeeId"`
	ReviewDate    string   `json:"reviewDate,omitempty"`
}

type CreatedReview struct {
	ID                    int64        `json:"performanceReviewId"`
	GeneratedSkillEntries []SkillEntry `json:"generatedSkillEntries"`
}

// ReportPeriod is one quarterly aggregation bucket.
type ReportPeriod struct {
	PeriodStart   Date   `json:"periodStart"`
	AvgRating     Number `json:"avgRating"`
	MinRating     Number `json:"minRating"`
	MaxRating     Number `json:"maxRating"`
	SampleCount   Number `json:"sampleCount"`
	EmployeeCount Number `json:"employeeCount"`
}

type SkillPeriods struct {
	SkillID   int64          `json:"skillId,omitempty"`
	SkillName string         `json:"skillName"`
	Periods   []ReportPeriod `json:"periods"`
}

type OverallRating struct {
	PeriodStart      Date   `json:"periodStart"`
	AvgOverallRating Number `json:"avgOverallRating"`
}

type OrgReport struct {
	OrganizationID   int64           `json:"organizationId"`
	OrganizationName string          `json:"organizationName"`
	DepartmentID     int64           `json:"departmentId,omitempty"`
	DepartmentName   string          `json:"departmentName,omitempty"`
	Skills           []SkillPeriods  `json:"skills"`
	OverallRatings   []OverallRating `json:"overallRatings"`
}

type EmployeeReport struct {
	EmployeeID int64          `json:"employeeId"`
	FirstName  string         `json:"firstName"`
	LastName   string         `json:"lastName"`
	Skills     []SkillPeriods `json:"skills"`
}

// TimelinePoint is one dated rating. Employee timelines carry Rating, organization
// timelines carry the aggregate fields.
type TimelinePoint struct {
	Date      Date   `json:"date"`
	Rating    Number `json:"rating"`
	AvgRating Number `json:"avgRating"`
	MinRating Number `json:"minRating"`
	MaxRating Number `json:"maxRating"`
}

type SkillTimeline struct {
	SkillID   int64           `json:"skillId"`
	SkillName string          `json:"skillName"`
	Timeline  []TimelinePoint `json:"timeline"`
	MinRating Number          `json:"minRating"`
	MaxRating Number          `json:"maxRating"`
	AvgRating Number          `json:"avgRating"`
}

type EmployeeTimeline struct {
	EmployeeID int64           `json:"employeeId"`
	FirstName  string          `json:"firstName"`
	LastName   string          `json:"lastName"`
	Skills     []SkillTimeline `json:"skills"`
}

type OrgTimeline struct {
	OrganizationID   int64           `json:"organizationId"`
	OrganizationName string          `json:"organizationName"`
	DepartmentID     int64           `json:"departmentId,omitempty"`
	DepartmentName   string          `json:"departmentName,omitempty"`
	Skills           []SkillTimeline `json:"skills"`
}

// ReportQuery narrows a report request. Zero ids and empty dates are omitted.
type ReportQuery struct {
	DepartmentID int64
	SkillID      int64
	StartDate    string
	EndDate      string
}
