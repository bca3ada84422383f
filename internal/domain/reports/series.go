package reports

import (
	"github.com/shopspring/decimal"

	"pulse/internal/platform/backend"
)

type Summary struct {
	Avg float64 `json:"avg"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Series struct {
	Name    string       `json:"name"`
	SkillID int64        `json:"skillId,omitempty"`
	Points  []ChartPoint `json:"points"`
	Summary Summary      `json:"summary"`
}

// Empty reports whether no series carries a point.
func Empty(series []Series) bool {
	for _, s := range series {
		if len(s.Points) > 0 {
			return false
		}
	}
	return true
}

// Round2 rounds a rating to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// summarize averages the point averages and spans min and max over the
// points that carry data.
func summarize(points []ChartPoint) Summary {
	sum := decimal.Zero
	var n int64
	var lo, hi float64
	for _, p := range points {
		if !p.HasData {
			continue
		}
		if n == 0 || p.Values.Min < lo {
			lo = p.Values.Min
		}
		if n == 0 || p.Values.Max > hi {
			hi = p.Values.Max
		}
		sum = sum.Add(decimal.NewFromFloat(p.Values.Avg))
		n++
	}
	if n == 0 {
		return Summary{}
	}
	return Summary{
		Avg: sum.Div(decimal.NewFromInt(n)).Round(2).InexactFloat64(),
		Min: Round2(lo),
		Max: Round2(hi),
	}
}

// timelineSummary prefers the aggregates computed by the backend.
func timelineSummary(t backend.SkillTimeline, points []ChartPoint) Summary {
	if !t.AvgRating.Valid && !t.MinRating.Valid && !t.MaxRating.Valid {
		return summarize(points)
	}
	return Summary{
		Avg: Round2(t.AvgRating.OrZero()),
		Min: Round2(t.MinRating.OrZero()),
		Max: Round2(t.MaxRating.OrZero()),
	}
}

func selectSkills[T any](items []T, c Convention, id int64, name string, idOf func(T) int64, nameOf func(T) string) []T {
	switch c {
	case SelectAll:
		return items
	case SelectFirst:
		if len(items) == 0 {
			return nil
		}
		return items[:1]
	case SelectByName:
		for _, item := range items {
			if name != "" && nameOf(item) == name {
				return []T{item}
			}
		}
	case SelectByID:
		for _, item := range items {
			if id != 0 && idOf(item) == id {
				return []T{item}
			}
		}
	}
	return nil
}

func periodSeries(skills []backend.SkillPeriods) []Series {
	out := make([]Series, 0, len(skills))
	for _, s := range skills {
		points := QuarterPoints(s.Periods)
		out = append(out, Series{Name: s.SkillName, SkillID: s.SkillID, Points: points, Summary: summarize(points)})
	}
	return out
}

func timelineSeries(skills []backend.SkillTimeline) []Series {
	out := make([]Series, 0, len(skills))
	for _, s := range skills {
		points := TimelinePoints(s.Timeline)
		out = append(out, Series{Name: s.SkillName, SkillID: s.SkillID, Points: points, Summary: timelineSummary(s, points)})
	}
	return out
}

func periodSkillID(s backend.SkillPeriods) int64 { return s.SkillID }

func periodSkillName(s backend.SkillPeriods) string { return s.SkillName }

func timelineSkillID(s backend.SkillTimeline) int64 { return s.SkillID }

func timelineSkillName(s backend.SkillTimeline) string { return s.SkillName }
