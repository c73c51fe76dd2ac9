package view

import (
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// Cell is one value of the overview table. Number is set for numeric
// columns unless the value is missing.
type Cell struct {
	Text   string   `json:"text"`
	Number *float64 `json:"number,omitempty"`
}

// Summary aggregates one numeric column over the team's players. Sum and
// Mean are nil when no player has a value.
type Summary struct {
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Sum    *float64 `json:"sum"`
	Mean   *float64 `json:"mean"`
}

// Table is the team overview: every row of the team in the selected
// category table.
type Table struct {
	Team        string           `json:"team"`
	Category    string           `json:"category,omitempty"`
	Columns     []dataset.Column `json:"columns,omitempty"`
	Rows        [][]Cell         `json:"rows,omitempty"`
	Summary     []Summary        `json:"summary,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// BuildTable returns the rows of team in category's table. It never fails:
// an unset team, a missing category or a team with no players yields an
// empty table with a placeholder prompt.
func BuildTable(sp *dataset.Sport, team, category string) Table {
	out := Table{Team: team, Category: category}
	if sp == nil {
		out.Placeholder = PromptSelectSport
		return out
	}
	if team == selection.Unset {
		out.Placeholder = PromptSelectTeam
		return out
	}
	t, prompt := tableFor(sp, category)
	if t == nil {
		out.Placeholder = prompt
		return out
	}

	for _, c := range t.Columns() {
		if c.Name != t.TeamColumn() {
			out.Columns = append(out.Columns, c)
		}
	}
	rows := t.Rows(team)
	if len(rows) == 0 {
		out.Placeholder = PromptNoPlayers
		return out
	}
	for _, r := range rows {
		cells := make([]Cell, len(out.Columns))
		for i, c := range out.Columns {
			cells[i].Text = r.Text(c.Name)
			if c.Kind == dataset.KindNumber {
				cells[i].Number = number(r.Number(c.Name))
			}
		}
		out.Rows = append(out.Rows, cells)
	}
	out.Summary = summarize(out.Columns, rows)
	return out
}

func summarize(cols []dataset.Column, rows []dataset.Row) []Summary {
	var out []Summary
	for _, c := range cols {
		if c.Kind != dataset.KindNumber {
			continue
		}
		s := Summary{Column: c.Name}
		var sum float64
		for _, r := range rows {
			if v := number(r.Number(c.Name)); v != nil {
				sum += *v
				s.Count++
			}
		}
		if s.Count > 0 {
			mean := sum / float64(s.Count)
			s.Sum, s.Mean = &sum, &mean
		}
		out = append(out, s)
	}
	return out
}
