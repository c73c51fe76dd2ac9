// Package render writes dashboard artifacts to a terminal: the selection
// panel, overview tables with their summary row, horizontal bar charts,
// scatter listings and sparkline series.
package render

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/papapumpkin/scoreline/internal/dashboard"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/view"
)

// DefaultBarWidth is the width of a full-scale bar in cells.
const DefaultBarWidth = 30

// Renderer writes artifacts to w.
type Renderer struct {
	w        io.Writer
	barWidth int
}

// New creates a Renderer writing to w.
func New(w io.Writer) *Renderer {
	return &Renderer{w: w, barWidth: DefaultBarWidth}
}

// FormatNumber formats v with thousands separators, or "n/a" when nil.
func FormatNumber(v *float64) string {
	if v == nil {
		return noValue
	}
	return humanize.Commaf(math.Round(*v*100) / 100)
}

// Snapshot writes the selection panel followed by every output.
func (r *Renderer) Snapshot(s dashboard.Snapshot) {
	r.Selections(s.Inputs)
	for _, a := range s.Outputs {
		fmt.Fprintln(r.w)
		r.Artifact(a)
	}
}

// Selections writes one line per input: its value, or its options.
func (r *Renderer) Selections(inputs []dashboard.InputState) {
	fmt.Fprintln(r.w, styleHeading.Render("Selections"))
	for _, in := range inputs {
		label := styleLabel.Render(fmt.Sprintf("  %-9s", in.Name))
		switch {
		case !in.Instantiated:
			fmt.Fprintln(r.w, label, styleMuted.Render("(waiting for team and category)"))
		case in.Domain.NotApplicable:
			fmt.Fprintln(r.w, label, styleMuted.Render("(not applicable)"))
		case in.Value != "":
			fmt.Fprintln(r.w, label, styleValue.Render(in.Value))
		case len(in.Domain.Options) == 0:
			fmt.Fprintln(r.w, label, styleMuted.Render("(no options)"))
		default:
			fmt.Fprintln(r.w, label, styleMuted.Render("one of: "+strings.Join(in.Domain.Options, ", ")))
		}
	}
}

// Artifact writes one output. Placeholders and failures are printed as
// prompts, never as errors.
func (r *Renderer) Artifact(a engine.Artifact) {
	fmt.Fprintln(r.w, styleHeading.Render(stateIcon(a)+" "+a.Node))
	if a.Err != "" {
		fmt.Fprintln(r.w, "  "+styleError.Render(a.Placeholder+": "+a.Err))
		return
	}
	if a.IsPlaceholder() {
		fmt.Fprintln(r.w, "  "+styleMuted.Render(a.Placeholder))
		return
	}
	switch v := a.Value.(type) {
	case view.Table:
		r.Table(v)
	case view.TeamCharts:
		r.Charts(v.Charts)
	case view.TeamScatters:
		r.Scatters(v.Plots)
	case view.TeamGroups:
		for _, g := range v.Charts {
			fmt.Fprintln(r.w, "  "+styleHeading.Render(g.Title))
			r.Charts(g.Series)
		}
	case view.TeamLines:
		r.Lines(v.Charts)
	case view.Comparison:
		r.Charts(v.Charts)
	default:
		fmt.Fprintf(r.w, "  %v\n", v)
	}
}

// Table writes an overview table with a totals and a mean row.
func (r *Renderer) Table(t view.Table) {
	if t.Placeholder != "" {
		fmt.Fprintln(r.w, "  "+styleMuted.Render(t.Placeholder))
		return
	}
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	body := make([][]string, 0, len(t.Rows)+2)
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			if t.Columns[i].Kind == dataset.KindNumber {
				cells[i] = FormatNumber(c.Number)
			} else {
				cells[i] = c.Text
			}
		}
		body = append(body, cells)
	}
	if len(t.Summary) > 0 {
		body = append(body, summaryRow(t, "total", func(s view.Summary) *float64 { return s.Sum }))
		body = append(body, summaryRow(t, "mean", func(s view.Summary) *float64 { return s.Mean }))
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range body {
		for i, c := range row {
			widths[i] = max(widths[i], lipgloss.Width(c))
		}
	}

	fmt.Fprintln(r.w, "  "+joinCells(header, widths, t.Columns, styleColumnHeader))
	for i, row := range body {
		style := lipgloss.NewStyle()
		if i >= len(t.Rows) {
			style = styleLabel
		}
		fmt.Fprintln(r.w, "  "+joinCells(row, widths, t.Columns, style))
	}
}

func summaryRow(t view.Table, label string, pick func(view.Summary) *float64) []string {
	byCol := make(map[string]*float64, len(t.Summary))
	for _, s := range t.Summary {
		byCol[s.Column] = pick(s)
	}
	row := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if i == 0 {
			row[i] = label
			continue
		}
		if v, ok := byCol[c.Name]; ok {
			row[i] = FormatNumber(v)
		}
	}
	return row
}

func joinCells(cells []string, widths []int, cols []dataset.Column, style lipgloss.Style) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		align := lipgloss.Left
		if cols[i].Kind == dataset.KindNumber {
			align = lipgloss.Right
		}
		out[i] = style.Width(widths[i]).Align(align).Render(c)
	}
	return strings.Join(out, "  ")
}

// Charts writes each chart as labelled horizontal bars. Bars are scaled to
// the chart's range when it has one, else to its largest value.
func (r *Renderer) Charts(charts []view.Chart) {
	for _, c := range charts {
		title := c.Title
		if c.Range != nil {
			title += styleLabel.Render(fmt.Sprintf(" [%s, %s]", humanize.Commaf(c.Range[0]), humanize.Commaf(c.Range[1])))
		}
		fmt.Fprintln(r.w, "  "+styleHeading.Render(title))

		nameWidth := 0
		for _, p := range c.Points {
			nameWidth = max(nameWidth, lipgloss.Width(p.Player))
		}
		lo, hi := scale(c)
		for _, p := range c.Points {
			name := styleLabel.Render(fmt.Sprintf("    %-*s", nameWidth, p.Player))
			if p.Value == nil {
				fmt.Fprintln(r.w, name, styleMuted.Render(noValue))
				continue
			}
			n := barLength(*p.Value, lo, hi, r.barWidth)
			fmt.Fprintln(r.w, name, styleBar.Render(strings.Repeat(barRune, n)), FormatNumber(p.Value))
		}
	}
}

// Scatters writes each plot as an aligned listing of player coordinates.
func (r *Renderer) Scatters(plots []view.ScatterPlot) {
	for _, p := range plots {
		fmt.Fprintln(r.w, "  "+styleHeading.Render(p.Title)+styleLabel.Render(fmt.Sprintf(" (%s vs %s)", p.Y, p.X)))
		header := []string{"player", p.X, p.Y}
		if p.Size != "" {
			header = append(header, p.Size)
		}
		if p.Color != "" {
			header = append(header, p.Color)
		}
		rows := make([][]string, 0, len(p.Points))
		for _, pt := range p.Points {
			row := []string{pt.Player, FormatNumber(pt.X), FormatNumber(pt.Y)}
			if p.Size != "" {
				row = append(row, FormatNumber(pt.Size))
			}
			if p.Color != "" {
				row = append(row, pt.Group)
			}
			rows = append(rows, row)
		}

		widths := make([]int, len(header))
		for i, h := range header {
			widths[i] = lipgloss.Width(h)
		}
		for _, row := range rows {
			for i, c := range row {
				widths[i] = max(widths[i], lipgloss.Width(c))
			}
		}
		fmt.Fprintln(r.w, "    "+alignRow(header, widths, styleColumnHeader))
		for _, row := range rows {
			fmt.Fprintln(r.w, "    "+alignRow(row, widths, lipgloss.NewStyle()))
		}
	}
}

func alignRow(cells []string, widths []int, style lipgloss.Style) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = style.Width(widths[i]).Render(c)
	}
	return strings.Join(out, "  ")
}

// Lines writes each series as a sparkline over the chart's player order,
// followed by its smallest and largest value.
func (r *Renderer) Lines(charts []view.LineChart) {
	for _, c := range charts {
		fmt.Fprintln(r.w, "  "+styleHeading.Render(c.Title))
		if len(c.Series) == 0 {
			continue
		}
		var players []string
		for _, p := range c.Series[0].Points {
			players = append(players, p.Player)
		}
		order := "players: "
		if c.X != "" {
			order = "by " + c.X + ": "
		}
		fmt.Fprintln(r.w, "    "+styleMuted.Render(order+strings.Join(players, ", ")))

		nameWidth := 0
		for _, s := range c.Series {
			nameWidth = max(nameWidth, lipgloss.Width(s.Title))
		}
		for _, s := range c.Series {
			values := make([]*float64, len(s.Points))
			for i, p := range s.Points {
				values[i] = p.Y
			}
			lo, hi, ok := bounds(values)
			name := styleLabel.Render(fmt.Sprintf("    %-*s", nameWidth, s.Title))
			if !ok {
				fmt.Fprintln(r.w, name, styleMuted.Render(noValue))
				continue
			}
			fmt.Fprintln(r.w, name, styleBar.Render(sparkline(values, lo, hi)),
				styleLabel.Render(FormatNumber(&lo)+".."+FormatNumber(&hi)))
		}
	}
}

// sparkRunes are the eight block heights of a sparkline.
var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// sparkline maps each value onto a block height between lo and hi. Missing
// values print as a space.
func sparkline(values []*float64, lo, hi float64) string {
	var b strings.Builder
	for _, v := range values {
		if v == nil {
			b.WriteRune(' ')
			continue
		}
		i := len(sparkRunes) - 1
		if hi > lo {
			i = int(math.Round((*v - lo) / (hi - lo) * float64(len(sparkRunes)-1)))
		}
		b.WriteRune(sparkRunes[i])
	}
	return b.String()
}

func bounds(values []*float64) (lo, hi float64, ok bool) {
	for _, v := range values {
		if v == nil {
			continue
		}
		if !ok {
			lo, hi, ok = *v, *v, true
			continue
		}
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}
	return lo, hi, ok
}

func scale(c view.Chart) (lo, hi float64) {
	if c.Range != nil {
		return c.Range[0], c.Range[1]
	}
	for _, p := range c.Points {
		if p.Value != nil {
			hi = max(hi, *p.Value)
		}
	}
	return 0, hi
}

// barLength maps v onto [0, width] cells, clamping values outside [lo, hi].
func barLength(v, lo, hi float64, width int) int {
	if hi <= lo {
		return 0
	}
	f := (v - lo) / (hi - lo)
	f = math.Max(0, math.Min(1, f))
	return int(math.Round(f * float64(width)))
}

func stateIcon(a engine.Artifact) string {
	switch {
	case a.Err != "":
		return iconFailed
	case a.State == engine.StateReady:
		return iconReady
	case a.State == engine.StatePartial:
		return iconPartial
	default:
		return iconEmpty
	}
}

// Result writes the resets and failures of a pass, if any.
func (r *Renderer) Result(res *engine.Result) {
	if res == nil {
		return
	}
	for _, rs := range res.Resets {
		fmt.Fprintln(r.w, styleMuted.Render(fmt.Sprintf("  %s cleared (was %s)", rs.Node, rs.Previous)))
	}
	for _, f := range res.Failures {
		fmt.Fprintln(r.w, styleError.Render(fmt.Sprintf("  %s failed: %s", f.Node, f.Message)))
	}
}
