package backend

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) ListDepartments(ctx context.Context, orgID int64) ([]Department, error) {
	raw, err := c.call(ctx, request{
		operation: "list_departments",
		method:    http.MethodGet,
		path:      "/organizations/" + pathID(orgID) + "/departments",
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Department]("list_departments", raw)
}

func (c *Client) ListEmployees(ctx context.Context, orgID int64) ([]Employee, error) {
	raw, err := c.call(ctx, request{
		operation: "list_employees",
		method:    http.MethodGet,
		path:      "/organizations/" + pathID(orgID) + "/employees",
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Employee]("list_employees", raw)
}

func (c *Client) ListOrganizationSkills(ctx context.Context, orgID int64) ([]Skill, error) {
	raw, err := c.call(ctx, request{
		operation: "list_organization_skills",
		method:    http.MethodGet,
		path:      "/skills/organization/" + pathID(orgID),
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Skill]("list_organization_skills", raw)
}

func (c *Client) ListDepartmentSkills(ctx context.Context, orgID, departmentID int64) ([]Skill, error) {
	raw, err := c.call(ctx, request{
		operation: "list_department_skills",
		method:    http.MethodGet,
		path:      "/skills/department/" + pathID(departmentID),
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Skill]("list_department_skills", raw)
}

func (c *Client) SearchSkills(ctx context.Context, orgID int64, query string) ([]Skill, error) {
	raw, err := c.call(ctx, request{
		operation: "search_skills",
		method:    http.MethodGet,
		path:      "/skills/search",
		orgID:     orgID,
		query:     url.Values{"q": []string{query}},
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Skill]("search_skills", raw)
}

func (c *Client) ListOccupations(ctx context.Context, orgID int64) ([]Occupation, error) {
	raw, err := c.call(ctx, request{
		operation: "list_occupations",
		method:    http.MethodGet,
		path:      "/occupations/organization/" + pathID(orgID),
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[Occupation]("list_occupations", raw)
}

// LatestSkillEntries returns the most recent rating per skill for one employee.
func (c *Client) LatestSkillEntries(ctx context.Context, orgID, employeeID int64) ([]SkillEntry, error) {
	raw, err := c.call(ctx, request{
		operation: "latest_skill_entries",
		method:    http.MethodGet,
		path:      "/employees/" + pathID(employeeID) + "/skill-entries/latest",
		orgID:     orgID,
	})
	if err != nil {
		return nil, err
	}
	return decodeList[SkillEntry]("latest_skill_entries", raw)
}
