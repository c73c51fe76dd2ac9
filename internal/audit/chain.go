package audit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/papapumpkin/scoreline/internal/dataset"
)

// Check is a single named check in the chain. It returns one finding per
// problem; no findings means the check passed.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cat *dataset.Catalog) []string
}

// Chain runs checks in order.
type Chain struct {
	Checks []Check

	// StopOnFailure stops at the first check with findings.
	StopOnFailure bool
}

// Run executes each check in sequence. A non-nil error is only returned
// when ctx is cancelled, not for findings, which are captured in
// CheckResult.
func (c *Chain) Run(ctx context.Context, cat *dataset.Catalog) (*Result, error) {
	result := &Result{Passed: true}

	for _, check := range c.Checks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("audit cancelled: %w", err)
		}

		start := time.Now()
		findings := check.Fn(ctx, cat)
		cr := CheckResult{
			Name:     check.Name,
			Passed:   len(findings) == 0,
			Findings: findings,
			Elapsed:  time.Since(start),
		}
		result.Checks = append(result.Checks, cr)
		if !cr.Passed {
			result.Passed = false
			if c.StopOnFailure {
				return result, nil
			}
		}
	}

	return result, nil
}

// DefaultChain returns the standard catalog audit: rosters, duplicates,
// ranges and missing values.
func DefaultChain() *Chain {
	return &Chain{Checks: []Check{
		{Name: "rosters", Fn: rostersCheck},
		{Name: "duplicates", Fn: duplicatesCheck},
		{Name: "ranges", Fn: rangesCheck},
		{Name: "missing", Fn: missingCheck},
	}}
}

// table is one sport/category table with its metrics.
type table struct {
	source  string
	t       *dataset.Table
	metrics []dataset.Metric
}

// tables lists every table of cat in display order.
func tables(cat *dataset.Catalog) []table {
	var out []table
	for _, name := range cat.SportNames() {
		sp, err := cat.Sport(name)
		if err != nil {
			continue
		}
		categories := sp.Categories()
		if len(categories) == 0 {
			categories = []string{""}
		}
		for _, c := range categories {
			t, ok := sp.Table(c)
			if !ok {
				continue
			}
			source := name
			if c != "" {
				source += "/" + c
			}
			out = append(out, table{source: source, t: t, metrics: sp.Metrics(c)})
		}
	}
	return out
}

// rostersCheck flags teams with fewer than two players in a table; their
// comparison view can never be filled.
func rostersCheck(_ context.Context, cat *dataset.Catalog) []string {
	var findings []string
	for _, tb := range tables(cat) {
		for _, team := range tb.t.Teams() {
			if n := len(tb.t.Players(team)); n < 2 {
				findings = append(findings, fmt.Sprintf("%s: %s has %d player, comparisons need two", tb.source, team, n))
			}
		}
	}
	return findings
}

// duplicatesCheck flags (team, player) keys appearing more than once.
// Lookups see only the first row.
func duplicatesCheck(_ context.Context, cat *dataset.Catalog) []string {
	var findings []string
	for _, tb := range tables(cat) {
		seen := make(map[[2]string]int)
		for i := 0; i < tb.t.Len(); i++ {
			r := tb.t.Row(i)
			seen[[2]string{r.Team, r.Player}]++
		}
		for _, team := range tb.t.Teams() {
			for _, player := range tb.t.Players(team) {
				if n := seen[[2]string{team, player}]; n > 1 {
					findings = append(findings, fmt.Sprintf("%s: %s / %s appears %d times", tb.source, team, player, n))
				}
			}
		}
	}
	return findings
}

// rangesCheck flags values outside a metric's range hint.
func rangesCheck(_ context.Context, cat *dataset.Catalog) []string {
	var findings []string
	for _, tb := range tables(cat) {
		for _, m := range tb.metrics {
			if m.Range == nil {
				continue
			}
			lo, hi := m.Range[0], m.Range[1]
			var out []string
			for i := 0; i < tb.t.Len(); i++ {
				r := tb.t.Row(i)
				v := r.Number(m.Column)
				if math.IsNaN(v) || (v >= lo && v <= hi) {
					continue
				}
				out = append(out, fmt.Sprintf("%s (%s)", r.Player, humanize.Ftoa(v)))
			}
			if len(out) > 0 {
				findings = append(findings, fmt.Sprintf("%s: %s outside [%s, %s]: %s",
					tb.source, m.Column, humanize.Ftoa(lo), humanize.Ftoa(hi), strings.Join(out, ", ")))
			}
		}
	}
	return findings
}

// missingCheck counts missing metric values per column.
func missingCheck(_ context.Context, cat *dataset.Catalog) []string {
	var findings []string
	for _, tb := range tables(cat) {
		for _, m := range tb.metrics {
			missing := 0
			for i := 0; i < tb.t.Len(); i++ {
				if math.IsNaN(tb.t.Row(i).Number(m.Column)) {
					missing++
				}
			}
			if missing > 0 {
				findings = append(findings, fmt.Sprintf("%s: %s missing for %d of %d rows", tb.source, m.Column, missing, tb.t.Len()))
			}
		}
	}
	return findings
}
