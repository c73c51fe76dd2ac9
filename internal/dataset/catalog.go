package dataset

import (
	"context"
	"fmt"
	"path/filepath"
)

// Metric is a chartable numeric column of a table.
type Metric struct {
	Column  string
	Title   string
	Range   *[2]float64 // optional axis bounds hint for renderers
	Compare bool        // included in two-player comparisons
}

// Sport groups the tables of one sport by category.
type Sport struct {
	Name  string
	Label string

	categories []string
	tables     map[string]*Table
	metrics    map[string][]Metric
	plots      map[string]Plots
}

// NewSport creates a sport with no tables.
func NewSport(name, label string) *Sport {
	if label == "" {
		label = name
	}
	return &Sport{
		Name:    name,
		Label:   label,
		tables:  make(map[string]*Table),
		metrics: make(map[string][]Metric),
		plots:   make(map[string]Plots),
	}
}

// AddTable registers t under its category with the given metrics. Every
// metric column must exist in t and be numeric.
func (s *Sport) AddTable(t *Table, metrics []Metric) error {
	if _, dup := s.tables[t.Category]; dup {
		return fmt.Errorf("%w: sport %q: duplicate category %q", ErrManifest, s.Name, t.Category)
	}
	metrics = append([]Metric(nil), metrics...)
	for i := range metrics {
		metrics[i].Column = NormalizeColumn(metrics[i].Column)
		if err := checkNumeric(t, metrics[i].Column); err != nil {
			return err
		}
		if metrics[i].Title == "" {
			metrics[i].Title = metrics[i].Column
		}
	}
	s.tables[t.Category] = t
	s.metrics[t.Category] = metrics
	if t.Category != "" {
		s.categories = append(s.categories, t.Category)
	}
	return nil
}

// HasCategories reports whether the sport splits its players by category.
func (s *Sport) HasCategories() bool { return len(s.categories) > 0 }

// Categories returns the category names in declaration order. It is empty
// for sports with a single table.
func (s *Sport) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// Table returns the table for category. Sports without categories use "".
func (s *Sport) Table(category string) (*Table, bool) {
	t, ok := s.tables[category]
	return t, ok
}

// Metrics returns the chartable metrics of category's table.
func (s *Sport) Metrics(category string) []Metric {
	m := s.metrics[category]
	out := make([]Metric, len(m))
	copy(out, m)
	return out
}

// CompareMetrics returns the columns used for two-player comparisons.
func (s *Sport) CompareMetrics(category string) []string {
	var out []string
	for _, m := range s.metrics[category] {
		if m.Compare {
			out = append(out, m.Column)
		}
	}
	return out
}

// Teams returns every team appearing in any of the sport's tables, in
// table declaration order then first-seen order.
func (s *Sport) Teams() []string {
	keys := s.categories
	if len(keys) == 0 {
		keys = []string{""}
	}
	seen := make(map[string]bool)
	var out []string
	for _, c := range keys {
		t, ok := s.tables[c]
		if !ok {
			continue
		}
		for _, team := range t.Teams() {
			if !seen[team] {
				seen[team] = true
				out = append(out, team)
			}
		}
	}
	return out
}

// Catalog holds every loaded sport. It is immutable once built.
type Catalog struct {
	sports []*Sport
	byName map[string]*Sport
}

// NewCatalog builds a catalog from sports in display order.
func NewCatalog(sports ...*Sport) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*Sport, len(sports))}
	for _, s := range sports {
		if _, dup := c.byName[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate sport %q", ErrManifest, s.Name)
		}
		if len(s.tables) == 0 {
			return nil, &LoadError{Source: s.Name, Err: fmt.Errorf("%w: no tables", ErrMissingData)}
		}
		c.byName[s.Name] = s
		c.sports = append(c.sports, s)
	}
	return c, nil
}

// Sport returns the named sport or ErrUnknownSport.
func (c *Catalog) Sport(name string) (*Sport, error) {
	s, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSport, name)
	}
	return s, nil
}

// SportNames returns sport names in display order.
func (c *Catalog) SportNames() []string {
	out := make([]string, len(c.sports))
	for i, s := range c.sports {
		out[i] = s.Name
	}
	return out
}

// Load reads the manifest at path and every data source it names, relative
// to the manifest's directory. Any missing required column fails the whole
// load.
func Load(ctx context.Context, path string) (*Catalog, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	return LoadManifest(ctx, m, filepath.Dir(path))
}

// LoadManifest loads the sources of an already parsed manifest. Relative
// source paths are resolved against baseDir.
func LoadManifest(ctx context.Context, m *Manifest, baseDir string) (*Catalog, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	sports := make([]*Sport, 0, len(m.Sports))
	for _, ss := range m.Sports {
		sp := NewSport(ss.Name, ss.Label)
		for _, ts := range ss.Tables {
			t, err := loadTable(ctx, ss, ts, baseDir)
			if err != nil {
				return nil, err
			}
			if err := sp.AddTable(t, metricsFrom(ts.Metrics)); err != nil {
				return nil, err
			}
			if err := sp.AddPlots(ts.Category, plotsFrom(ts)); err != nil {
				return nil, err
			}
		}
		sports = append(sports, sp)
	}
	return NewCatalog(sports...)
}

// Sources returns every file the manifest reads, resolved against baseDir.
func (m *Manifest) Sources(baseDir string) []string {
	var out []string
	for _, s := range m.Sports {
		for _, t := range s.Tables {
			for _, f := range t.Files {
				out = append(out, resolve(baseDir, f))
			}
			if t.SQLite != "" {
				out = append(out, resolve(baseDir, t.SQLite))
			}
		}
	}
	return out
}

func loadTable(ctx context.Context, ss SportSpec, ts TableSpec, baseDir string) (*Table, error) {
	var frames []frame
	if ts.SQLite != "" {
		fs, err := readSQLite(ctx, resolve(baseDir, ts.SQLite), ts.SQLiteTables)
		if err != nil {
			return nil, err
		}
		frames = fs
	} else {
		for _, f := range ts.Files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			fr, err := readCSV(resolve(baseDir, f))
			if err != nil {
				return nil, err
			}
			frames = append(frames, fr)
		}
	}

	header, records := mergeFrames(frames)
	t, err := NewTable(ss.Name, ts.Category, header, records, ss.TeamColumn, ss.PlayerColumn)
	if err != nil {
		return nil, err
	}
	for _, col := range ts.Required {
		if _, ok := t.Column(col); !ok {
			return nil, &LoadError{Source: tableSource(ss.Name, ts.Category), Column: NormalizeColumn(col), Err: ErrMissingData}
		}
	}
	return t, nil
}

func metricsFrom(specs []MetricSpec) []Metric {
	out := make([]Metric, 0, len(specs))
	for _, ms := range specs {
		m := Metric{Column: ms.Column, Title: ms.Title, Compare: ms.Compare}
		if len(ms.Range) == 2 {
			m.Range = &[2]float64{ms.Range[0], ms.Range[1]}
		}
		out = append(out, m)
	}
	return out
}

func checkNumeric(t *Table, col string) error {
	c, ok := t.Column(col)
	if !ok {
		return &LoadError{Source: tableSource(t.Sport, t.Category), Column: col, Err: ErrMissingData}
	}
	if c.Kind != KindNumber {
		return &LoadError{Source: tableSource(t.Sport, t.Category), Column: col, Err: ErrColumnType}
	}
	return nil
}

func tableSource(sport, category string) string {
	if category == "" {
		return sport
	}
	return sport + "/" + category
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
