package dataset

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
)

// Manifest is the parsed form of scoreline.toml. It lists every sport, the
// tables that feed it and the metrics each table exposes.
type Manifest struct {
	Sports []SportSpec `toml:"sport"`
}

// SportSpec describes one sport.
type SportSpec struct {
	Name         string      `toml:"name"`
	Label        string      `toml:"label"`
	TeamColumn   string      `toml:"team_column"`
	PlayerColumn string      `toml:"player_column"`
	Tables       []TableSpec `toml:"table"`
}

// TableSpec describes one category table and where its rows come from.
// Exactly one of Files or SQLite must be set.
type TableSpec struct {
	Category     string        `toml:"category"`
	Files        []string      `toml:"files"`
	SQLite       string        `toml:"sqlite"`
	SQLiteTables []string      `toml:"sqlite_tables"`
	Required     []string      `toml:"required"`
	Metrics      []MetricSpec  `toml:"metric"`
	Scatters     []ScatterSpec `toml:"scatter"`
	Groups       []GroupSpec   `toml:"group"`
	Lines        []LineSpec    `toml:"line"`
}

// MetricSpec describes one chartable numeric column.
type MetricSpec struct {
	Column  string    `toml:"column"`
	Title   string    `toml:"title"`
	Range   []float64 `toml:"range"`
	Compare bool      `toml:"compare"`
}

// ScatterSpec declares a two-column scatter plot.
type ScatterSpec struct {
	Title string `toml:"title"`
	X     string `toml:"x"`
	Y     string `toml:"y"`
	Size  string `toml:"size"`
	Color string `toml:"color"`
}

// GroupSpec declares a grouped bar chart over several columns.
type GroupSpec struct {
	Title   string   `toml:"title"`
	Columns []string `toml:"columns"`
}

// LineSpec declares a multi-series line view.
type LineSpec struct {
	Title   string   `toml:"title"`
	X       string   `toml:"x"`
	Columns []string `toml:"columns"`
}

// ReadManifest reads and validates the manifest at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes and validates manifest TOML.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifest, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for structural problems. It does not touch
// the data sources.
func (m *Manifest) Validate() error {
	if len(m.Sports) == 0 {
		return fmt.Errorf("%w: no sports declared", ErrManifest)
	}
	names := make(map[string]bool, len(m.Sports))
	for i := range m.Sports {
		s := &m.Sports[i]
		if s.Name == "" {
			return fmt.Errorf("%w: sport #%d has no name", ErrManifest, i+1)
		}
		if names[s.Name] {
			return fmt.Errorf("%w: duplicate sport %q", ErrManifest, s.Name)
		}
		names[s.Name] = true
		if s.TeamColumn == "" {
			s.TeamColumn = "team"
		}
		if s.PlayerColumn == "" {
			s.PlayerColumn = "player"
		}
		if len(s.Tables) == 0 {
			return fmt.Errorf("%w: sport %q has no tables", ErrManifest, s.Name)
		}
		if err := validateTables(s); err != nil {
			return err
		}
	}
	return nil
}

func validateTables(s *SportSpec) error {
	categories := make(map[string]bool, len(s.Tables))
	for _, t := range s.Tables {
		if len(s.Tables) > 1 && t.Category == "" {
			return fmt.Errorf("%w: sport %q has several tables, each needs a category", ErrManifest, s.Name)
		}
		if categories[t.Category] {
			return fmt.Errorf("%w: sport %q: duplicate category %q", ErrManifest, s.Name, t.Category)
		}
		categories[t.Category] = true

		hasFiles := len(t.Files) > 0
		hasSQLite := t.SQLite != ""
		if hasFiles == hasSQLite {
			return fmt.Errorf("%w: sport %q category %q: set exactly one of files or sqlite", ErrManifest, s.Name, t.Category)
		}
		if hasSQLite && len(t.SQLiteTables) == 0 {
			return fmt.Errorf("%w: sport %q category %q: sqlite source needs sqlite_tables", ErrManifest, s.Name, t.Category)
		}
		for _, mt := range t.Metrics {
			if mt.Column == "" {
				return fmt.Errorf("%w: sport %q category %q: metric without column", ErrManifest, s.Name, t.Category)
			}
			if len(mt.Range) != 0 && len(mt.Range) != 2 {
				return fmt.Errorf("%w: metric %q: range needs two bounds", ErrManifest, mt.Column)
			}
		}
		if err := validatePlots(s.Name, t); err != nil {
			return err
		}
	}
	return nil
}

func validatePlots(sport string, t TableSpec) error {
	for _, sc := range t.Scatters {
		if sc.X == "" || sc.Y == "" {
			return fmt.Errorf("%w: sport %q category %q: scatter needs x and y", ErrManifest, sport, t.Category)
		}
	}
	for _, g := range t.Groups {
		if len(g.Columns) == 0 {
			return fmt.Errorf("%w: sport %q category %q: group without columns", ErrManifest, sport, t.Category)
		}
	}
	for _, l := range t.Lines {
		if len(l.Columns) == 0 {
			return fmt.Errorf("%w: sport %q category %q: line without columns", ErrManifest, sport, t.Category)
		}
	}
	return nil
}
