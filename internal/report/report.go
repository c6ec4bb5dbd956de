package report

import (
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/OksanaKushniaryk/wellness-meter/internal/encoding"
	"github.com/OksanaKushniaryk/wellness-meter/internal/history"
)

// Point is one dated value in a score series
type Point struct {
	Date  string // YYYY-MM-DD
	Value float64
}

// Series is a named sequence of dated values. Days without the metric are
// simply absent.
type Series struct {
	Name   string
	Points []Point
}

// Values returns the series values in date order
func (s Series) Values() []float64 {
	values := make([]float64, 0, len(s.Points))
	for _, p := range s.Points {
		values = append(values, p.Value)
	}
	return values
}

// DayDetail is the narrative slice of one day's stored breakdown document.
type DayDetail struct {
	Date           string
	Sleep          string // sleep analysis
	Activity       string
	Stress         string
	Classification string // energy balance classification
	EnergyDelta    float64
}

// Report bundles everything the renderers need for one date range
type Report struct {
	Title     string
	From      string
	To        string
	Summary   *history.Summary
	Series    []Series   // 0-100 domain scores
	Deltas    Series     // energy balance, kcal
	Latest    *DayDetail // newest day with a stored breakdown, nil when none decodes
	Scores    []*database.DailyScore
	LastEntry time.Time
}

// Build assembles a report over stored scores for [from, to]. The codec
// decodes stored breakdown documents for the latest-day detail.
func Build(from, to string, scores []*database.DailyScore, codec *encoding.Codec) *Report {
	r := &Report{
		Title:   "Wellness Report",
		From:    from,
		To:      to,
		Summary: history.BuildRangeSummary(from, to, scores),
		Series:  buildScoreSeries(scores),
		Deltas:  buildDeltaSeries(scores),
		Latest:  buildLatestDetail(scores, codec),
		Scores:  scores,
	}

	for _, score := range scores {
		if score.UpdatedAt.After(r.LastEntry) {
			r.LastEntry = score.UpdatedAt
		}
	}

	return r
}

// buildLatestDetail decodes the newest non-empty breakdown. Rows written by
// older versions may not decode; the report simply omits the detail then.
func buildLatestDetail(scores []*database.DailyScore, codec *encoding.Codec) *DayDetail {
	if codec == nil {
		return nil
	}

	var newest *database.DailyScore
	for _, score := range scores {
		if score.Breakdown == "" {
			continue
		}
		if newest == nil || score.Date > newest.Date {
			newest = score
		}
	}
	if newest == nil {
		return nil
	}

	var doc struct {
		Sleep struct {
			Analysis string `json:"analysis"`
		} `json:"sleep"`
		Activity struct {
			Analysis string `json:"analysis"`
		} `json:"activity"`
		Stress struct {
			Analysis string `json:"analysis"`
		} `json:"stress"`
		Energy struct {
			Classification string  `json:"classification"`
			EnergyDelta    float64 `json:"energyDelta"`
		} `json:"energy"`
	}
	if err := codec.Unmarshal([]byte(newest.Breakdown), &doc); err != nil {
		return nil
	}

	return &DayDetail{
		Date:           newest.Date,
		Sleep:          doc.Sleep.Analysis,
		Activity:       doc.Activity.Analysis,
		Stress:         doc.Stress.Analysis,
		Classification: doc.Energy.Classification,
		EnergyDelta:    doc.Energy.EnergyDelta,
	}
}

func buildScoreSeries(scores []*database.DailyScore) []Series {
	defs := []struct {
		name string
		pick func(*database.DailyScore) *float64
	}{
		{"Sleep", func(s *database.DailyScore) *float64 { return s.SleepScore }},
		{"Activity", func(s *database.DailyScore) *float64 { return s.ActivityScore }},
		{"Stress", func(s *database.DailyScore) *float64 { return s.StressScore }},
		{"Energy Credit", func(s *database.DailyScore) *float64 { return s.EnergyCredit }},
	}

	var series []Series
	for _, def := range defs {
		var points []Point
		for _, score := range scores {
			if v := def.pick(score); v != nil {
				points = append(points, Point{Date: score.Date, Value: *v})
			}
		}
		if len(points) > 0 {
			series = append(series, Series{Name: def.name, Points: points})
		}
	}
	return series
}

func buildDeltaSeries(scores []*database.DailyScore) Series {
	series := Series{Name: "Energy Delta"}
	for _, score := range scores {
		if score.EnergyDelta != nil {
			series.Points = append(series.Points, Point{Date: score.Date, Value: *score.EnergyDelta})
		}
	}
	return series
}
