// Package audit runs deterministic checks over a loaded catalog. A catalog
// that loads cleanly can still make a poor dashboard: a team with a single
// player can never be compared, a duplicated player shadows its second row,
// and values outside a metric's range hint are drawn clipped. The checks
// report such problems without failing the load.
package audit

import (
	"context"
	"time"

	"github.com/papapumpkin/scoreline/internal/dataset"
)

// Auditor runs checks on a catalog.
// Returns the result of all checks, or an error if the audit itself fails
// (not check failures, which are captured in Result).
type Auditor interface {
	Run(ctx context.Context, cat *dataset.Catalog) (*Result, error)
}

// Result contains the outcome of an audit.
type Result struct {
	Passed bool          // true if all checks passed
	Checks []CheckResult // individual check outcomes
}

// CheckResult is the outcome of a single check.
type CheckResult struct {
	Name     string        // "rosters", "duplicates", "ranges", "missing"
	Passed   bool          // true if this check passed
	Findings []string      // one line per problem
	Elapsed  time.Duration // wall-clock time for this check
}

// FirstFailure returns the first failing check, or nil if all passed.
func (r *Result) FirstFailure() *CheckResult {
	for i := range r.Checks {
		if !r.Checks[i].Passed {
			return &r.Checks[i]
		}
	}
	return nil
}

// Findings returns the number of findings across every check.
func (r *Result) Findings() int {
	n := 0
	for _, c := range r.Checks {
		n += len(c.Findings)
	}
	return n
}
