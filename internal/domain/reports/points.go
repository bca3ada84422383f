package reports

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"pulse/internal/platform/backend"
)

const (
	dateLayout  = "2006-01-02"
	labelLayout = "Jan 2, 2006"
)

// Values are the aggregates plotted for one point. Missing aggregates are
// zero; HasData on the point tells a real zero from an empty bucket.
type Values struct {
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   float64 `json:"count"`
	Samples float64 `json:"samples,omitempty"`
}

type ChartPoint struct {
	Label   string `json:"label"`
	SortKey int64  `json:"sortKey"`
	Date    string `json:"date"`
	Year    int    `json:"year"`
	Quarter int    `json:"quarter"`
	Values  Values `json:"values"`
	HasData bool   `json:"hasData"`
}

// QuarterOf returns the 1-based quarter of t.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

func QuarterLabel(year, quarter int) string {
	return fmt.Sprintf("Q%d %d", quarter, year)
}

// ParseQuarterLabel decomposes "Q{quarter} {year}".
func ParseQuarterLabel(label string) (year, quarter int, ok bool) {
	q, y, found := strings.Cut(strings.TrimSpace(label), " ")
	if !found || len(q) < 2 || (q[0] != 'Q' && q[0] != 'q') {
		return 0, 0, false
	}
	quarter, err := strconv.Atoi(q[1:])
	if err != nil || quarter < 1 {
		return 0, 0, false
	}
	year, err = strconv.Atoi(strings.TrimSpace(y))
	if err != nil {
		return 0, 0, false
	}
	return year, quarter, true
}

// QuarterPoints buckets report periods by quarter and orders them by
// (year, quarter) decomposed from the label. Periods without a start date are
// skipped; equal quarters keep backend order.
func QuarterPoints(periods []backend.ReportPeriod) []ChartPoint {
	points := make([]ChartPoint, 0, len(periods))
	for _, p := range periods {
		if p.PeriodStart.IsZero() {
			continue
		}
		start := p.PeriodStart.Time
		year, quarter := start.Year(), QuarterOf(start)
		points = append(points, ChartPoint{
			Label:   QuarterLabel(year, quarter),
			SortKey: time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC).UnixMilli(),
			Date:    start.Format(dateLayout),
			Year:    year,
			Quarter: quarter,
			Values: Values{
				Avg:     p.AvgRating.OrZero(),
				Min:     p.MinRating.OrZero(),
				Max:     p.MaxRating.OrZero(),
				Count:   p.EmployeeCount.OrZero(),
				Samples: p.SampleCount.OrZero(),
			},
			HasData: p.AvgRating.Valid || p.MinRating.Valid || p.MaxRating.Valid,
		})
	}
	sort.SliceStable(points, func(i, j int) bool {
		yi, qi, _ := ParseQuarterLabel(points[i].Label)
		yj, qj, _ := ParseQuarterLabel(points[j].Label)
		if yi != yj {
			return yi < yj
		}
		return qi < qj
	})
	return points
}

// TimelinePoints orders dated ratings by epoch milliseconds. A point with a
// single rating plots it as min, avg and max.
func TimelinePoints(timeline []backend.TimelinePoint) []ChartPoint {
	points := make([]ChartPoint, 0, len(timeline))
	for _, p := range timeline {
		if p.Date.IsZero() {
			continue
		}
		values := Values{Avg: p.AvgRating.OrZero(), Min: p.MinRating.OrZero(), Max: p.MaxRating.OrZero()}
		hasData := p.AvgRating.Valid || p.MinRating.Valid || p.MaxRating.Valid
		if p.Rating.Valid {
			values = Values{Avg: p.Rating.Value, Min: p.Rating.Value, Max: p.Rating.Value, Count: 1}
			hasData = true
		}
		points = append(points, datedPoint(p.Date.Time, values, hasData))
	}
	sortByKey(points)
	return points
}

// OverallRatingPoints plots the average overall review rating per period.
func OverallRatingPoints(ratings []backend.OverallRating) []ChartPoint {
	points := make([]ChartPoint, 0, len(ratings))
	for _, r := range ratings {
		if r.PeriodStart.IsZero() {
			continue
		}
		points = append(points, datedPoint(r.PeriodStart.Time, Values{Avg: r.AvgOverallRating.OrZero()}, r.AvgOverallRating.Valid))
	}
	sortByKey(points)
	return points
}

func datedPoint(t time.Time, values Values, hasData bool) ChartPoint {
	return ChartPoint{
		Label:   t.Format(labelLayout),
		SortKey: t.UnixMilli(),
		Date:    t.Format(dateLayout),
		Year:    t.Year(),
		Quarter: QuarterOf(t),
		Values:  values,
		HasData: hasData,
	}
}

func sortByKey(points []ChartPoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].SortKey < points[j].SortKey
	})
}
