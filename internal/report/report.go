// Package report renders results and snapshot history for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/metric"
	"github.com/smukkama/growth-index/internal/scoring"
	"github.com/smukkama/growth-index/internal/snapshot"
)

type styles struct {
	bold  lipgloss.Style
	dim   lipgloss.Style
	green lipgloss.Style
	amber lipgloss.Style
	red   lipgloss.Style
}

// newStyles binds styles to w so colors are dropped when w is not a
// terminal.
func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		bold:  r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("8")),
		green: r.NewStyle().Foreground(lipgloss.Color("10")),
		amber: r.NewStyle().Foreground(lipgloss.Color("3")),
		red:   r.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (s styles) score(v int) string {
	text := fmt.Sprintf("%3d", v)
	switch {
	case v >= scoring.ThresholdExcellent:
		return s.green.Bold(true).Render(text)
	case v >= scoring.ThresholdGood:
		return s.green.Render(text)
	case v >= scoring.ThresholdNeedsWork:
		return s.amber.Render(text)
	default:
		return s.red.Render(text)
	}
}

func formatNumber(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func formatChange(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%+.1f%%", *p)
}

func dates(start, end time.Time) string {
	return start.Format(time.DateOnly) + ".." + end.Format(time.DateOnly)
}

// Result writes the overall index followed by one block per category.
func Result(w io.Writer, res *engine.Result) error {
	s := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.bold.Render("Store"), res.StoreID)
	fmt.Fprintf(&b, "%s %s vs %s\n", s.bold.Render("Period"),
		dates(res.PeriodStart, res.PeriodEnd), dates(res.ComparisonStart, res.ComparisonEnd))
	fmt.Fprintf(&b, "%s %s %s\n\n", s.bold.Render("Overall"), s.score(res.OverallIndex.Value), res.OverallIndex.Level)

	for _, name := range scoring.AllCategories() {
		cat, _ := res.Categories.Get(name)
		fmt.Fprintf(&b, "%-12s %s %s\n", s.bold.Render(string(name)), s.score(cat.Score),
			s.dim.Render(fmt.Sprintf("weight %.2f", cat.Weight)))
		for _, c := range cat.Components {
			fmt.Fprintf(&b, "  %-20s %12s %12s %9s %s\n", c.ID,
				formatNumber(c.Current), formatNumber(c.Previous), formatChange(c.YoYChangePercent), s.score(c.Score))
		}
		b.WriteString("\n")
	}

	for _, src := range metric.AllSources() {
		line := fmt.Sprintf("%-10s %d matched days", src, res.MatchedDays[src])
		if msg, ok := res.SourceErrors[src]; ok {
			b.WriteString(s.red.Render(line+"  failed: "+msg) + "\n")
			continue
		}
		b.WriteString(s.dim.Render(line) + "\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// History writes one line per snapshot, in the order given.
func History(w io.Writer, snaps []*snapshot.Snapshot) error {
	s := newStyles(w)
	if len(snaps) == 0 {
		_, err := io.WriteString(w, s.dim.Render("No snapshots stored")+"\n")
		return err
	}

	var b strings.Builder
	b.WriteString(s.bold.Render(fmt.Sprintf("%-10s %-23s %7s %-10s %6s %6s %6s %6s",
		"period", "dates", "overall", "level", "grow", "qual", "eff", "lev")) + "\n")
	for _, snap := range snaps {
		fmt.Fprintf(&b, "%-10s %-23s %4s    %-10s %3s    %3s    %3s    %3s\n",
			snap.PeriodLabel,
			dates(snap.PeriodStart, snap.PeriodEnd),
			s.score(snap.OverallIndex.Value),
			snap.OverallIndex.Level,
			s.score(snap.Categories.Growth.Score),
			s.score(snap.Categories.Quality.Score),
			s.score(snap.Categories.Efficiency.Score),
			s.score(snap.Categories.Leverage.Score),
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
