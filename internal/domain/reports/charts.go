package reports

import (
	"github.com/pkg/errors"

	"pulse/internal/domain/filters"
)

var ErrUnknownChart = errors.New("unknown chart")

type ChartID string

const (
	ChartSkillPeriods   ChartID = "skill_periods"
	ChartSkillTimeline  ChartID = "skill_timeline"
	ChartSkillsOverview ChartID = "skills_overview"
	ChartOverallRating  ChartID = "overall_rating"
)

// Convention says how a chart picks its series out of a multi-skill payload.
// The report endpoints answer with the filtered skill first, while the
// timeline endpoints must be matched by id.
type Convention string

const (
	SelectFirst  Convention = "first"
	SelectByName Convention = "by_name"
	SelectByID   Convention = "by_id"
	SelectAll    Convention = "all"
)

type Definition struct {
	ID            ChartID         `json:"id"`
	Title         string          `json:"title"`
	Trigger       filters.Trigger `json:"trigger"`
	Convention    Convention      `json:"convention"`
	NoDataMessage string          `json:"-"`
	FailedMessage string          `json:"-"`
}

var definitions = map[filters.Kind][]Definition{
	filters.EmployeeCharts: {
		{
			ID:            ChartSkillsOverview,
			Title:         "Skills overview",
			Trigger:       filters.TriggerOverall,
			Convention:    SelectAll,
			NoDataMessage: "No skill data available for the selected employee and date range.",
			FailedMessage: "No skill data found. Please try a different employee or date range.",
		},
		{
			ID:            ChartSkillPeriods,
			Title:         "Skill rating by quarter",
			Trigger:       filters.TriggerSkill,
			Convention:    SelectByName,
			NoDataMessage: "No data available for the selected skill and date range.",
			FailedMessage: "No data found for the selected filters. Please try a different skill or date range.",
		},
		{
			ID:            ChartSkillTimeline,
			Title:         "Skill rating timeline",
			Trigger:       filters.TriggerSkill,
			Convention:    SelectByID,
			NoDataMessage: "No timeline data available for the selected skill.",
			FailedMessage: "No timeline data found. Please try a different skill or date range.",
		},
	},
	filters.OrganizationCharts: {
		{
			ID:            ChartOverallRating,
			Title:         "Overall rating timeline",
			Trigger:       filters.TriggerOverall,
			Convention:    SelectAll,
			NoDataMessage: "No overall rating data available for the selected date range.",
			FailedMessage: "No overall rating data found. Please try a different organization or date range.",
		},
		{
			ID:            ChartSkillPeriods,
			Title:         "Skill rating by quarter",
			Trigger:       filters.TriggerSkill,
			Convention:    SelectFirst,
			NoDataMessage: "No data available for the selected skill and date range.",
			FailedMessage: "No data found for the selected filters. Please try a different skill, department, or date range.",
		},
		{
			ID:            ChartSkillTimeline,
			Title:         "Skill rating timeline",
			Trigger:       filters.TriggerSkill,
			Convention:    SelectByID,
			NoDataMessage: "No timeline data available for the selected filters.",
			FailedMessage: "No timeline data found for the selected filters. Please try a different department, skill, or date range.",
		},
	},
}

// Definitions lists the charts of a view kind in display order.
func Definitions(kind filters.Kind) []Definition {
	return append([]Definition(nil), definitions[kind]...)
}

func Lookup(kind filters.Kind, id ChartID) (Definition, error) {
	for _, d := range definitions[kind] {
		if d.ID == id {
			return d, nil
		}
	}
	return Definition{}, errors.Wrapf(ErrUnknownChart, "%s/%s", kind, id)
}
