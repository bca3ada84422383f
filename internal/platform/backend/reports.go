package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (q ReportQuery) values(departmentKey string) url.Values {
	v := url.Values{}
	if q.DepartmentID > 0 {
		v.Set(departmentKey, strconv.FormatInt(q.DepartmentID, 10))
	}
	if q.SkillID > 0 {
		v.Set("skillId", strconv.FormatInt(q.SkillID, 10))
	}
	if q.StartDate != "" {
		v.Set("startDate", q.StartDate)
	}
	if q.EndDate != "" {
		v.Set("endDate", q.EndDate)
	}
	return v
}

// The report calls return a nil payload and no error when the backend answers
// with an empty body; callers render that as "no data".

func (c *Client) OrgReport(ctx context.Context, orgID int64, q ReportQuery) (*OrgReport, error) {
	raw, err := c.call(ctx, request{
		operation: "org_report",
		method:    http.MethodGet,
		path:      "/reports/org/" + pathID(orgID),
		orgID:     orgID,
		query:     q.values("deptId"),
	})
	if err != nil {
		return nil, err
	}
	var report OrgReport
	ok, err := decodeObject("org_report", raw, &report)
	if err != nil || !ok {
		return nil, err
	}
	return &report, nil
}

func (c *Client) EmployeeReport(ctx context.Context, orgID, employeeID int64, q ReportQuery) (*EmployeeReport, error) {
	q.DepartmentID = 0
	raw, err := c.call(ctx, request{
		operation: "employee_report",
		method:    http.MethodGet,
		path:      "/reports/employee/" + pathID(employeeID),
		orgID:     orgID,
		query:     q.values(""),
	})
	if err != nil {
		return nil, err
	}
	var report EmployeeReport
	ok, err := decodeObject("employee_report", raw, &report)
	if err != nil || !ok {
		return nil, err
	}
	return &report, nil
}

func (c *Client) EmployeeTimeline(ctx context.Context, orgID, employeeID int64, q ReportQuery) (*EmployeeTimeline, error) {
	q.DepartmentID = 0
	raw, err := c.call(ctx, request{
		operation: "employee_timeline",
		method:    http.MethodGet,
		path:      "/reports/employees/" + pathID(employeeID) + "/skills/timeline",
		orgID:     orgID,
		query:     q.values(""),
	})
	if err != nil {
		return nil, err
	}
	var timeline EmployeeTimeline
	ok, err := decodeObject("employee_timeline", raw, &timeline)
	if err != nil || !ok {
		return nil, err
	}
	return &timeline, nil
}

func (c *Client) OrgTimeline(ctx context.Context, orgID int64, q ReportQuery) (*OrgTimeline, error) {
	raw, err := c.call(ctx, request{
		operation: "org_timeline",
		method:    http.MethodGet,
		path:      "/reports/organizations/" + pathID(orgID) + "/skills/timeline",
		orgID:     orgID,
		query:     q.values("departmentId"),
	})
	if err != nil {
		return nil, err
	}
	var timeline OrgTimeline
	ok, err := decodeObject("org_timeline", raw, &timeline)
	if err != nil || !ok {
		return nil, err
	}
	return &timeline, nil
}
