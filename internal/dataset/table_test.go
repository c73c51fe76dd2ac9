package dataset

import (
	"errors"
	"math"
	"testing"
)

func battingTable(t *testing.T) *Table {
	t.Helper()
	header := []string{" Team ", "Player", "Runs", "Average", "Notes"}
	records := [][]string{
		{"India", "Kohli", "12000", "57.3", "captain"},
		{"India", "Rohit", "9000", "", ""},
		{"Australia", "Smith", "8500", "NaN", "-"},
		{"", "Ghost", "1", "1", ""},
		{"India", "Kohli", "1", "1", "duplicate"},
	}
	tbl, err := NewTable("cricket", "batting", header, records, "team", "player")
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return tbl
}

func TestNewTable(t *testing.T) {
	t.Parallel()

	t.Run("normalizes header and infers kinds", func(t *testing.T) {
		t.Parallel()
		tbl := battingTable(t)
		want := map[string]ColumnKind{
			"team":    KindText,
			"player":  KindText,
			"runs":    KindNumber,
			"average": KindNumber,
			"notes":   KindText,
		}
		cols := tbl.Columns()
		if len(cols) != len(want) {
			t.Fatalf("expected %d columns, got %d", len(want), len(cols))
		}
		for _, c := range cols {
			if want[c.Name] != c.Kind {
				t.Errorf("column %q: expected %s, got %s", c.Name, want[c.Name], c.Kind)
			}
		}
	})

	t.Run("skips rows without team or player", func(t *testing.T) {
		t.Parallel()
		tbl := battingTable(t)
		if tbl.Len() != 4 {
			t.Errorf("expected 4 rows, got %d", tbl.Len())
		}
		if got := tbl.Teams(); len(got) != 2 || got[0] != "India" || got[1] != "Australia" {
			t.Errorf("unexpected teams %v", got)
		}
	})

	t.Run("rosters are distinct in first-seen order", func(t *testing.T) {
		t.Parallel()
		tbl := battingTable(t)
		got := tbl.Players("India")
		if len(got) != 2 || got[0] != "Kohli" || got[1] != "Rohit" {
			t.Errorf("unexpected roster %v", got)
		}
		if got := tbl.Players("Nepal"); len(got) != 0 {
			t.Errorf("expected empty roster for unknown team, got %v", got)
		}
	})

	t.Run("missing key column", func(t *testing.T) {
		t.Parallel()
		_, err := NewTable("nba", "", []string{"team", "points"}, nil, "team", "player")
		if !errors.Is(err, ErrMissingData) {
			t.Fatalf("expected ErrMissingData, got %v", err)
		}
		var le *LoadError
		if !errors.As(err, &le) {
			t.Fatalf("expected *LoadError, got %T", err)
		}
		if le.Column != "player" || le.Source != "nba" {
			t.Errorf("unexpected load error %+v", le)
		}
	})
}

func TestRow_Number(t *testing.T) {
	t.Parallel()
	tbl := battingTable(t)

	tests := []struct {
		name   string
		team   string
		player string
		col    string
		want   float64
		nan    bool
	}{
		{name: "parsed", team: "India", player: "Kohli", col: "average", want: 57.3},
		{name: "empty cell", team: "India", player: "Rohit", col: "average", nan: true},
		{name: "NaN literal", team: "Australia", player: "Smith", col: "average", nan: true},
		{name: "text column", team: "India", player: "Kohli", col: "notes", nan: true},
		{name: "unknown column", team: "India", player: "Kohli", col: "wickets", nan: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			row, ok := tbl.Lookup(tt.team, tt.player)
			if !ok {
				t.Fatalf("no row for %s/%s", tt.team, tt.player)
			}
			got := row.Number(tt.col)
			if tt.nan {
				if !math.IsNaN(got) {
					t.Errorf("expected NaN, got %v", got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestTable_LookupFirstRow(t *testing.T) {
	t.Parallel()
	tbl := battingTable(t)
	row, ok := tbl.Lookup("India", "Kohli")
	if !ok {
		t.Fatal("expected Kohli row")
	}
	if row.Text("notes") != "captain" {
		t.Errorf("expected first row, got notes %q", row.Text("notes"))
	}
	if _, ok := tbl.Lookup("India", "Smith"); ok {
		t.Error("Smith does not play for India")
	}
	if got := len(tbl.Rows("India")); got != 3 {
		t.Errorf("expected 3 India rows, got %d", got)
	}
}

func TestTable_ColumnLookupIsNormalized(t *testing.T) {
	t.Parallel()
	tbl := battingTable(t)
	if _, ok := tbl.Column("  RUNS "); !ok {
		t.Error("expected column lookup to normalize the name")
	}
	if tbl.TeamColumn() != "team" {
		t.Errorf("unexpected team column %q", tbl.TeamColumn())
	}
}

func TestNewTable_EmptyColumnIsNumeric(t *testing.T) {
	t.Parallel()
	tbl, err := NewTable("nba", "", []string{"team", "player", "blocks"}, [][]string{{"Lakers", "James", ""}}, "team", "player")
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	c, _ := tbl.Column("blocks")
	if c.Kind != KindNumber {
		t.Errorf("expected empty column to be numeric, got %s", c.Kind)
	}
	row, _ := tbl.Lookup("Lakers", "James")
	if !math.IsNaN(row.Number("blocks")) {
		t.Errorf("expected NaN, got %v", row.Number("blocks"))
	}
}

func TestNewTable_InfinityIsMissing(t *testing.T) {
	t.Parallel()
	tbl, err := NewTable("nba", "", []string{"team", "player", "points"},
		[][]string{
			{"Lakers", "James", "Inf"},
			{"Lakers", "Davis", "-infinity"},
			{"Lakers", "Reaves", "14.5"},
		}, "team", "player")
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if c, _ := tbl.Column("points"); c.Kind != KindNumber {
		t.Fatalf("expected points to stay numeric, got %s", c.Kind)
	}
	for _, p := range []string{"James", "Davis"} {
		row, _ := tbl.Lookup("Lakers", p)
		if v := row.Number("points"); !math.IsNaN(v) {
			t.Errorf("%s: expected infinity to read as NaN, got %v", p, v)
		}
	}
	row, _ := tbl.Lookup("Lakers", "Reaves")
	if v := row.Number("points"); v != 14.5 {
		t.Errorf("Reaves: expected 14.5, got %v", v)
	}
}
