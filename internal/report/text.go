package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/guptarohit/asciigraph"
)

// RenderText writes a terminal rendition of the report: averages with
// sparklines per domain, best and worst day, and the energy balance
func (r *Report) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s  %s to %s\n", r.Title, r.From, r.To)

	if r.Summary.Days == 0 {
		fmt.Fprintln(w, "No scores recorded in this range.")
		return
	}

	header := fmt.Sprintf("%d scored days", r.Summary.Days)
	if !r.LastEntry.IsZero() {
		header += ", last entry " + humanize.Time(r.LastEntry)
	}
	fmt.Fprintln(w, header)
	fmt.Fprintln(w)

	for _, s := range r.Series {
		if avg := r.averageFor(s.Name); avg != nil {
			fmt.Fprintf(w, "%-14s avg %.1f\n", s.Name, *avg)
		} else {
			fmt.Fprintf(w, "%-14s\n", s.Name)
		}

		if values := s.Values(); len(values) > 2 {
			fmt.Fprintln(w, asciigraph.Plot(values,
				asciigraph.Height(8),
				asciigraph.Width(60),
				asciigraph.Precision(0),
			))
		}
		fmt.Fprintln(w)
	}

	if r.Summary.BestDay != nil {
		fmt.Fprintf(w, "Best day   %s (%.1f)\n", r.Summary.BestDay.Date, r.Summary.BestDay.Score)
	}
	if r.Summary.WorstDay != nil {
		fmt.Fprintf(w, "Worst day  %s (%.1f)\n", r.Summary.WorstDay.Date, r.Summary.WorstDay.Score)
	}
	if delta := r.Summary.Averages.EnergyDelta; delta != nil {
		fmt.Fprintf(w, "Energy balance  %s kcal/day average\n", humanize.CommafWithDigits(*delta, 0))
	}

	if r.Latest != nil {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Latest day  %s\n", r.Latest.Date)
		for _, row := range []struct{ label, text string }{
			{"Sleep", r.Latest.Sleep},
			{"Activity", r.Latest.Activity},
			{"Stress", r.Latest.Stress},
		} {
			if row.text != "" {
				fmt.Fprintf(w, "  %-10s %s\n", row.label, row.text)
			}
		}
		if r.Latest.Classification != "" {
			fmt.Fprintf(w, "  %-10s %s, %s kcal\n", "Energy",
				r.Latest.Classification, humanize.CommafWithDigits(r.Latest.EnergyDelta, 0))
		}
	}
}

func (r *Report) averageFor(name string) *float64 {
	switch name {
	case "Sleep":
		return r.Summary.Averages.Sleep
	case "Activity":
		return r.Summary.Averages.Activity
	case "Stress":
		return r.Summary.Averages.Stress
	case "Energy Credit":
		return r.Summary.Averages.EnergyCredit
	default:
		return nil
	}
}
