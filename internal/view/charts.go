package view

import (
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// TeamCharts plots each metric across every player of a team.
type TeamCharts struct {
	Team        string  `json:"team"`
	Category    string  `json:"category,omitempty"`
	Charts      []Chart `json:"charts,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`
}

// BuildTeamCharts returns one bar series per metric over team's roster in
// category. Incomplete selections yield a placeholder; a metric that is
// not a numeric column of the table is an error.
func BuildTeamCharts(sp *dataset.Sport, team, category string, metrics []dataset.Metric) (TeamCharts, error) {
	out := TeamCharts{Team: team, Category: category}
	if sp == nil {
		out.Placeholder = PromptSelectSport
		return out, nil
	}
	if team == selection.Unset {
		out.Placeholder = PromptSelectTeam
		return out, nil
	}
	t, prompt := tableFor(sp, category)
	if t == nil {
		out.Placeholder = prompt
		return out, nil
	}

	described := make([]dataset.Metric, 0, len(metrics))
	for _, m := range metrics {
		d, err := metricFor(sp, t, m.Column)
		if err != nil {
			return TeamCharts{}, err
		}
		if m.Title != "" {
			d.Title = m.Title
		}
		if m.Range != nil {
			d.Range = m.Range
		}
		described = append(described, d)
	}

	players := t.Players(team)
	if len(players) == 0 {
		out.Placeholder = PromptNoPlayers
		return out, nil
	}
	for _, m := range described {
		c := Chart{Metric: m.Column, Title: m.Title, Range: m.Range}
		for _, p := range players {
			row, _ := t.Lookup(team, p)
			c.Points = append(c.Points, Point{Player: p, Value: number(row.Number(m.Column))})
		}
		out.Charts = append(out.Charts, c)
	}
	return out, nil
}

// Comparison sets two players of one team side by side, one two-point
// chart per metric.
type Comparison struct {
	Team        string  `json:"team"`
	Category    string  `json:"category,omitempty"`
	PlayerA     string  `json:"player_a,omitempty"`
	PlayerB     string  `json:"player_b,omitempty"`
	Charts      []Chart `json:"charts,omitempty"`
	Placeholder string  `json:"placeholder,omitempty"`
}

// BuildComparison returns, for each metric, the series [(a, value),
// (b, value)] read from team's rows in category. If either player is unset
// or absent from those rows the result is a placeholder with no charts, so
// a player outside the filtered table never appears. An unknown or
// non-numeric metric is an error wrapping dataset.ErrMissingData or
// dataset.ErrColumnType.
func BuildComparison(sp *dataset.Sport, team, category, a, b string, metrics []string) (Comparison, error) {
	out := Comparison{Team: team, Category: category, PlayerA: a, PlayerB: b}
	if sp == nil {
		out.Placeholder = PromptSelectSport
		return out, nil
	}
	if team == selection.Unset {
		out.Placeholder = PromptSelectTeam
		return out, nil
	}
	t, prompt := tableFor(sp, category)
	if t == nil {
		out.Placeholder = prompt
		return out, nil
	}

	described := make([]dataset.Metric, 0, len(metrics))
	for _, col := range metrics {
		m, err := metricFor(sp, t, col)
		if err != nil {
			return Comparison{}, err
		}
		described = append(described, m)
	}

	if a == selection.Unset || b == selection.Unset {
		out.Placeholder = PromptSelectPlayers
		return out, nil
	}
	rowA, okA := t.Lookup(team, a)
	rowB, okB := t.Lookup(team, b)
	if !okA || !okB {
		out.Placeholder = PromptNoPlayerData
		return out, nil
	}

	for _, m := range described {
		out.Charts = append(out.Charts, Chart{
			Metric: m.Column,
			Title:  m.Title,
			Range:  m.Range,
			Points: []Point{
				{Player: a, Value: number(rowA.Number(m.Column))},
				{Player: b, Value: number(rowB.Number(m.Column))},
			},
		})
	}
	return out, nil
}
