package reports

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"pulse/internal/domain/filters"
	"pulse/internal/platform/backend"
)

// Source is the part of the backend client that serves report payloads.
type Source interface {
	OrgReport(ctx context.Context, orgID int64, q backend.ReportQuery) (*backend.OrgReport, error)
	EmployeeReport(ctx context.Context, orgID, employeeID int64, q backend.ReportQuery) (*backend.EmployeeReport, error)
	EmployeeTimeline(ctx context.Context, orgID, employeeID int64, q backend.ReportQuery) (*backend.EmployeeTimeline, error)
	OrgTimeline(ctx context.Context, orgID int64, q backend.ReportQuery) (*backend.OrgTimeline, error)
}

// Query carries the filter values a chart fetch needs. SkillName is the label
// of the selected skill, used by charts that match skills by name.
type Query struct {
	OrgID        int64
	DepartmentID int64
	EmployeeID   int64
	SkillID      int64
	SkillName    string
	StartDate    string
	EndDate      string
}

func QueryFrom(values filters.Values, skillName string) Query {
	q := Query{
		SkillName: skillName,
		StartDate: values.Get(filters.StartDate),
		EndDate:   values.Get(filters.EndDate),
	}
	q.OrgID, _ = values.ID(filters.Organization)
	q.DepartmentID, _ = values.ID(filters.Department)
	q.EmployeeID, _ = values.ID(filters.Employee)
	q.SkillID, _ = values.ID(filters.Skill)
	return q
}

type Result struct {
	Subject string
	Series  []Series
}

type Service struct {
	source Source
}

func NewService(source Source) *Service {
	return &Service{source: source}
}

// Fetch loads and shapes one chart. An absent payload or a missing skill is
// an empty, non-nil series list.
func (s *Service) Fetch(ctx context.Context, kind filters.Kind, def Definition, q Query) (Result, error) {
	switch kind {
	case filters.EmployeeCharts:
		return s.fetchEmployee(ctx, def, q)
	case filters.OrganizationCharts:
		return s.fetchOrganization(ctx, def, q)
	default:
		return Result{}, errors.Wrapf(ErrUnknownChart, "%s/%s", kind, def.ID)
	}
}

func (s *Service) fetchEmployee(ctx context.Context, def Definition, q Query) (Result, error) {
	if q.EmployeeID == 0 {
		return Result{Series: []Series{}}, nil
	}
	rq := backend.ReportQuery{SkillID: q.SkillID, StartDate: q.StartDate, EndDate: q.EndDate}

	switch def.ID {
	case ChartSkillPeriods:
		report, err := s.source.EmployeeReport(ctx, q.OrgID, q.EmployeeID, rq)
		if err != nil || report == nil {
			return Result{Series: []Series{}}, err
		}
		picked := selectSkills(report.Skills, def.Convention, q.SkillID, q.SkillName, periodSkillID, periodSkillName)
		return Result{Subject: fullName(report.FirstName, report.LastName), Series: periodSeries(picked)}, nil

	case ChartSkillTimeline, ChartSkillsOverview:
		if def.ID == ChartSkillsOverview {
			rq.SkillID = 0
		}
		timeline, err := s.source.EmployeeTimeline(ctx, q.OrgID, q.EmployeeID, rq)
		if err != nil || timeline == nil {
			return Result{Series: []Series{}}, err
		}
		picked := selectSkills(timeline.Skills, def.Convention, q.SkillID, q.SkillName, timelineSkillID, timelineSkillName)
		return Result{Subject: fullName(timeline.FirstName, timeline.LastName), Series: timelineSeries(picked)}, nil
	}
	return Result{}, errors.Wrapf(ErrUnknownChart, "%s/%s", filters.EmployeeCharts, def.ID)
}

func (s *Service) fetchOrganization(ctx context.Context, def Definition, q Query) (Result, error) {
	if q.OrgID == 0 {
		return Result{Series: []Series{}}, nil
	}
	rq := backend.ReportQuery{DepartmentID: q.DepartmentID, SkillID: q.SkillID, StartDate: q.StartDate, EndDate: q.EndDate}

	switch def.ID {
	case ChartOverallRating:
		rq.SkillID = 0
		report, err := s.source.OrgReport(ctx, q.OrgID, rq)
		if err != nil || report == nil {
			return Result{Series: []Series{}}, err
		}
		points := OverallRatingPoints(report.OverallRatings)
		if len(points) == 0 {
			return Result{Subject: orgSubject(report.OrganizationName, report.DepartmentName), Series: []Series{}}, nil
		}
		return Result{
			Subject: orgSubject(report.OrganizationName, report.DepartmentName),
			Series:  []Series{{Name: "Overall rating", Points: points, Summary: summarize(points)}},
		}, nil

	case ChartSkillPeriods:
		report, err := s.source.OrgReport(ctx, q.OrgID, rq)
		if err != nil || report == nil {
			return Result{Series: []Series{}}, err
		}
		picked := selectSkills(report.Skills, def.Convention, q.SkillID, q.SkillName, periodSkillID, periodSkillName)
		return Result{Subject: orgSubject(report.OrganizationName, report.DepartmentName), Series: periodSeries(picked)}, nil

	case ChartSkillTimeline:
		timeline, err := s.source.OrgTimeline(ctx, q.OrgID, rq)
		if err != nil || timeline == nil {
			return Result{Series: []Series{}}, err
		}
		picked := selectSkills(timeline.Skills, def.Convention, q.SkillID, q.SkillName, timelineSkillID, timelineSkillName)
		return Result{Subject: orgSubject(timeline.OrganizationName, timeline.DepartmentName), Series: timelineSeries(picked)}, nil
	}
	return Result{}, errors.Wrapf(ErrUnknownChart, "%s/%s", filters.OrganizationCharts, def.ID)
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}

func orgSubject(org, department string) string {
	if department == "" {
		return org
	}
	if org == "" {
		return department
	}
	return org + " / " + department
}
