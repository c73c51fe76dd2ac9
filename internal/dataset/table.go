// Package dataset loads and serves the immutable statistics tables the
// dashboards read from. A Table holds one sport/category slice keyed by
// team and player; a Catalog groups the tables of every configured sport.
//
// Tables are never mutated after construction and may be shared by any
// number of sessions without locking.
package dataset

import (
	"math"
	"strconv"
	"strings"
)

// ColumnKind classifies a column's values.
type ColumnKind int

const (
	KindText   ColumnKind = iota // free-form string values
	KindNumber                   // float values; missing cells are NaN
)

// String returns the lower-case kind name.
func (k ColumnKind) String() string {
	if k == KindNumber {
		return "number"
	}
	return "text"
}

// MarshalText encodes the kind by name.
func (k ColumnKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Column is one named field of a table.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

// Row is one player's line in a table.
type Row struct {
	Team   string
	Player string

	cells map[string]string
	nums  map[string]float64
}

// Text returns the raw cell for col, or "" when absent.
func (r Row) Text(col string) string {
	return r.cells[col]
}

// Number returns the numeric value for col. Missing cells, unparsable
// cells and non-numeric columns all yield NaN.
func (r Row) Number(col string) float64 {
	v, ok := r.nums[col]
	if !ok {
		return math.NaN()
	}
	return v
}

// Table is an immutable, normalized statistics table.
type Table struct {
	Sport    string
	Category string

	columns   []Column
	index     map[string]int
	teamCol   string
	playerCol string
	rows      []Row
	teams     []string
	rosters   map[string][]string
}

// NormalizeColumn lower-cases and trims a header cell.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// NewTable builds a Table from a header and its records. Header cells are
// normalized; teamCol and playerCol name the key columns and must be
// present. A column becomes numeric when every non-empty cell parses as a
// float; key columns are always text.
func NewTable(sport, category string, header []string, records [][]string, teamCol, playerCol string) (*Table, error) {
	t := &Table{
		Sport:     sport,
		Category:  category,
		index:     make(map[string]int, len(header)),
		teamCol:   NormalizeColumn(teamCol),
		playerCol: NormalizeColumn(playerCol),
		rosters:   make(map[string][]string),
	}
	source := tableSource(sport, category)

	names := make([]string, len(header))
	for i, h := range header {
		names[i] = NormalizeColumn(h)
		if _, dup := t.index[names[i]]; dup || names[i] == "" {
			continue
		}
		t.index[names[i]] = len(t.columns)
		t.columns = append(t.columns, Column{Name: names[i], Kind: KindText})
	}
	for _, key := range []string{t.teamCol, t.playerCol} {
		if _, ok := t.index[key]; !ok {
			return nil, &LoadError{Source: source, Column: key, Err: ErrMissingData}
		}
	}

	numeric := inferNumeric(names, records)
	for name, ok := range numeric {
		if ok && name != t.teamCol && name != t.playerCol {
			t.columns[t.index[name]].Kind = KindNumber
		}
	}

	seen := make(map[string]map[string]bool)
	for _, rec := range records {
		row := Row{
			cells: make(map[string]string, len(names)),
			nums:  make(map[string]float64),
		}
		for i, val := range rec {
			if i >= len(names) {
				break
			}
			if names[i] == "" {
				continue
			}
			if _, set := row.cells[names[i]]; set {
				continue
			}
			val = strings.TrimSpace(val)
			row.cells[names[i]] = val
			if t.columns[t.index[names[i]]].Kind == KindNumber {
				row.nums[names[i]] = parseNumber(val)
			}
		}
		row.Team = row.cells[t.teamCol]
		row.Player = row.cells[t.playerCol]
		if row.Team == "" || row.Player == "" {
			continue
		}
		t.rows = append(t.rows, row)

		if seen[row.Team] == nil {
			seen[row.Team] = make(map[string]bool)
			t.teams = append(t.teams, row.Team)
		}
		if !seen[row.Team][row.Player] {
			seen[row.Team][row.Player] = true
			t.rosters[row.Team] = append(t.rosters[row.Team], row.Player)
		}
	}
	return t, nil
}

// Columns returns the table's schema in header order.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up a column by (normalized) name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.index[NormalizeColumn(name)]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// TeamColumn names the team key column.
func (t *Table) TeamColumn() string { return t.teamCol }


// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Row returns the i-th row.
func (t *Table) Row(i int) Row { return t.rows[i] }

// Rows returns the rows belonging to team in load order.
func (t *Table) Rows(team string) []Row {
	var out []Row
	for _, r := range t.rows {
		if r.Team == team {
			out = append(out, r)
		}
	}
	return out
}

// Lookup returns the first row for (team, player).
func (t *Table) Lookup(team, player string) (Row, bool) {
	for _, r := range t.rows {
		if r.Team == team && r.Player == player {
			return r, true
		}
	}
	return Row{}, false
}

// Teams returns the distinct teams in first-seen order.
func (t *Table) Teams() []string {
	out := make([]string, len(t.teams))
	copy(out, t.teams)
	return out
}

// Players returns team's distinct players in first-seen order.
func (t *Table) Players(team string) []string {
	roster := t.rosters[team]
	out := make([]string, len(roster))
	copy(out, roster)
	return out
}

// inferNumeric reports, per column name, whether all non-empty cells parse
// as floats. Infinities count as missing. A column with no values at all counts as numeric so that an
// empty stat column still reads as "no value" rather than text.
func inferNumeric(names []string, records [][]string) map[string]bool {
	numeric := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			numeric[n] = true
		}
	}
	for _, rec := range records {
		for i, val := range rec {
			if i >= len(names) {
				break
			}
			if names[i] == "" {
				continue
			}
			val = strings.TrimSpace(val)
			if isMissing(val) {
				continue
			}
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				numeric[names[i]] = false
				continue
			}
			if math.IsInf(f, 0) {
				continue
			}
		}
	}
	return numeric
}

func isMissing(val string) bool {
	switch strings.ToLower(val) {
	case "", "nan", "na", "n/a", "-", "null":
		return true
	}
	return false
}

func parseNumber(val string) float64 {
	if isMissing(val) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
