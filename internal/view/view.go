// Package view turns a selection and a sport's tables into the artifacts a
// dashboard shows: the team overview table, per-metric team charts, the
// manifest-declared scatter, grouped and line plots, and the two-player
// comparison. Builders are pure; they never modify the dataset
// and never return an error for incomplete selections, only a placeholder.
package view

import (
	"fmt"
	"math"

	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// Prompts shown in place of a view whose selection is incomplete.
const (
	PromptSelectSport    = "select a sport"
	PromptSelectTeam     = "select a team"
	PromptSelectCategory = "select a category"
	PromptSelectPlayers  = "select two players to compare"
	PromptNoPlayerData   = "no data for one or both players"
	PromptNoPlayers      = "no players available for this team"
	PromptNoPlots        = "no plots declared for this table"
)

// Point is one bar of a chart. A nil Value means the player has no value
// for the metric; it is not zero.
type Point struct {
	Player string   `json:"player"`
	Value  *float64 `json:"value"`
}

// Chart is one metric plotted across players.
type Chart struct {
	Metric string      `json:"metric"`
	Title  string      `json:"title"`
	Range  *[2]float64 `json:"range,omitempty"`
	Points []Point     `json:"points"`
}

// number converts a dataset value to a chart value. NaN and the
// infinities become "no value"; JSON has no encoding for them.
func number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// tableFor returns the table a selection reads from. Sports with
// categories need one chosen.
func tableFor(sp *dataset.Sport, category string) (*dataset.Table, string) {
	if sp.HasCategories() && category == selection.Unset {
		return nil, PromptSelectCategory
	}
	t, ok := sp.Table(category)
	if !ok {
		return nil, PromptSelectCategory
	}
	return t, ""
}

// metricFor describes col for a chart, using the sport's metric
// declaration when there is one. col must be a numeric column of t.
func metricFor(sp *dataset.Sport, t *dataset.Table, col string) (dataset.Metric, error) {
	col = dataset.NormalizeColumn(col)
	c, ok := t.Column(col)
	if !ok {
		return dataset.Metric{}, fmt.Errorf("metric %q: %w", col, dataset.ErrMissingData)
	}
	if c.Kind != dataset.KindNumber {
		return dataset.Metric{}, fmt.Errorf("metric %q: %w", col, dataset.ErrColumnType)
	}
	for _, m := range sp.Metrics(t.Category) {
		if m.Column == col {
			return m, nil
		}
	}
	return dataset.Metric{Column: col, Title: col}, nil
}
