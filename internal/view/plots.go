package view

import (
	"sort"

	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// ScatterPoint is one player on a scatter plot. Nil coordinates mean the
// player has no value for that column.
type ScatterPoint struct {
	Player string   `json:"player"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Size   *float64 `json:"size,omitempty"`
	Group  string   `json:"group,omitempty"`
}

// ScatterPlot is one declared scatter over a team's roster.
type ScatterPlot struct {
	Title  string         `json:"title"`
	X      string         `json:"x"`
	Y      string         `json:"y"`
	Size   string         `json:"size,omitempty"`
	Color  string         `json:"color,omitempty"`
	Points []ScatterPoint `json:"points"`
}

// TeamScatters holds every scatter plot of a team's table.
type TeamScatters struct {
	Team        string        `json:"team"`
	Category    string        `json:"category,omitempty"`
	Plots       []ScatterPlot `json:"plots,omitempty"`
	Placeholder string        `json:"placeholder,omitempty"`
}

// BuildScatter returns one point per player of team for each declared
// scatter.
func BuildScatter(sp *dataset.Sport, team, category string, plots []dataset.Scatter) (TeamScatters, error) {
	out := TeamScatters{Team: team, Category: category}
	t, players, prompt := roster(sp, team, category, len(plots) == 0)
	if prompt != "" {
		out.Placeholder = prompt
		return out, nil
	}
	for _, sc := range plots {
		for _, col := range []string{sc.X, sc.Y, sc.Size} {
			if col == "" {
				continue
			}
			if _, err := metricFor(sp, t, col); err != nil {
				return TeamScatters{}, err
			}
		}
	}
	if len(players) == 0 {
		out.Placeholder = PromptNoPlayers
		return out, nil
	}

	for _, sc := range plots {
		plot := ScatterPlot{Title: sc.Title, X: sc.X, Y: sc.Y, Size: sc.Size, Color: sc.Color}
		for _, p := range players {
			row, _ := t.Lookup(team, p)
			pt := ScatterPoint{
				Player: p,
				X:      number(row.Number(sc.X)),
				Y:      number(row.Number(sc.Y)),
			}
			if sc.Size != "" {
				pt.Size = number(row.Number(sc.Size))
			}
			if sc.Color != "" {
				pt.Group = row.Text(sc.Color)
			}
			plot.Points = append(plot.Points, pt)
		}
		out.Plots = append(out.Plots, plot)
	}
	return out, nil
}

// GroupedChart sets several metrics side by side for every player. Each
// series is one metric across the roster.
type GroupedChart struct {
	Title  string  `json:"title"`
	Series []Chart `json:"series"`
}

// TeamGroups holds every grouped bar chart of a team's table.
type TeamGroups struct {
	Team        string         `json:"team"`
	Category    string         `json:"category,omitempty"`
	Charts      []GroupedChart `json:"charts,omitempty"`
	Placeholder string         `json:"placeholder,omitempty"`
}

// BuildGrouped returns one grouped bar chart per declaration.
func BuildGrouped(sp *dataset.Sport, team, category string, groups []dataset.Group) (TeamGroups, error) {
	out := TeamGroups{Team: team, Category: category}
	t, players, prompt := roster(sp, team, category, len(groups) == 0)
	if prompt != "" {
		out.Placeholder = prompt
		return out, nil
	}
	described := make([][]dataset.Metric, len(groups))
	for i, g := range groups {
		for _, col := range g.Columns {
			m, err := metricFor(sp, t, col)
			if err != nil {
				return TeamGroups{}, err
			}
			described[i] = append(described[i], m)
		}
	}
	if len(players) == 0 {
		out.Placeholder = PromptNoPlayers
		return out, nil
	}

	for i, g := range groups {
		gc := GroupedChart{Title: g.Title}
		for _, m := range described[i] {
			c := Chart{Metric: m.Column, Title: m.Title}
			for _, p := range players {
				row, _ := t.Lookup(team, p)
				c.Points = append(c.Points, Point{Player: p, Value: number(row.Number(m.Column))})
			}
			gc.Series = append(gc.Series, c)
		}
		out.Charts = append(out.Charts, gc)
	}
	return out, nil
}

// LinePoint is one vertex of a line series.
type LinePoint struct {
	Player string   `json:"player"`
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y"`
}

// LineSeries is one metric drawn across the roster.
type LineSeries struct {
	Metric string      `json:"metric"`
	Title  string      `json:"title"`
	Points []LinePoint `json:"points"`
}

// LineChart is one declared multi-series line view. X is empty when the
// points follow roster order.
type LineChart struct {
	Title  string       `json:"title"`
	X      string       `json:"x,omitempty"`
	Series []LineSeries `json:"series"`
}

// TeamLines holds every line view of a team's table.
type TeamLines struct {
	Team        string      `json:"team"`
	Category    string      `json:"category,omitempty"`
	Charts      []LineChart `json:"charts,omitempty"`
	Placeholder string      `json:"placeholder,omitempty"`
}

// BuildLines returns one line chart per declaration. With an X column the
// players are ordered by ascending X, players without X last; otherwise
// they keep roster order.
func BuildLines(sp *dataset.Sport, team, category string, lines []dataset.Line) (TeamLines, error) {
	out := TeamLines{Team: team, Category: category}
	t, players, prompt := roster(sp, team, category, len(lines) == 0)
	if prompt != "" {
		out.Placeholder = prompt
		return out, nil
	}
	described := make([][]dataset.Metric, len(lines))
	for i, l := range lines {
		if l.X != "" {
			if _, err := metricFor(sp, t, l.X); err != nil {
				return TeamLines{}, err
			}
		}
		for _, col := range l.Columns {
			m, err := metricFor(sp, t, col)
			if err != nil {
				return TeamLines{}, err
			}
			described[i] = append(described[i], m)
		}
	}
	if len(players) == 0 {
		out.Placeholder = PromptNoPlayers
		return out, nil
	}

	for i, l := range lines {
		rows := make([]dataset.Row, len(players))
		for j, p := range players {
			rows[j], _ = t.Lookup(team, p)
		}
		if l.X != "" {
			sort.SliceStable(rows, func(a, b int) bool {
				return lessMissingLast(rows[a].Number(l.X), rows[b].Number(l.X))
			})
		}

		lc := LineChart{Title: l.Title, X: l.X}
		for _, m := range described[i] {
			s := LineSeries{Metric: m.Column, Title: m.Title}
			for _, row := range rows {
				pt := LinePoint{Player: row.Player, Y: number(row.Number(m.Column))}
				if l.X != "" {
					pt.X = number(row.Number(l.X))
				}
				s.Points = append(s.Points, pt)
			}
			lc.Series = append(lc.Series, s)
		}
		out.Charts = append(out.Charts, lc)
	}
	return out, nil
}

// roster resolves the table and players shared by the team views. A
// non-empty prompt means the view is a placeholder.
func roster(sp *dataset.Sport, team, category string, none bool) (*dataset.Table, []string, string) {
	if sp == nil {
		return nil, nil, PromptSelectSport
	}
	if team == selection.Unset {
		return nil, nil, PromptSelectTeam
	}
	t, prompt := tableFor(sp, category)
	if t == nil {
		return nil, nil, prompt
	}
	if none {
		return nil, nil, PromptNoPlots
	}
	return t, t.Players(team), ""
}

func lessMissingLast(a, b float64) bool {
	if number(a) == nil {
		return false
	}
	if number(b) == nil {
		return true
	}
	return a < b
}
