package dataset

import (
	"fmt"
	"strings"
)

// Scatter plots two numeric columns against each other, one point per
// player.
type Scatter struct {
	Title string
	X     string
	Y     string
	Size  string // optional numeric column sizing each point
	Color string // optional column whose value groups points
}

// Group is a bar chart with one bar per column for every player.
type Group struct {
	Title   string
	Columns []string
}

// Line draws each column as a series across the roster. When X is set the
// points are ordered by that numeric column instead of roster order.
type Line struct {
	Title   string
	X       string
	Columns []string
}

// Plots holds the multi-column views declared for one table.
type Plots struct {
	Scatters []Scatter
	Groups   []Group
	Lines    []Line
}

// Empty reports whether no plot is declared.
func (p Plots) Empty() bool {
	return len(p.Scatters) == 0 && len(p.Groups) == 0 && len(p.Lines) == 0
}

// AddPlots registers the plots of category's table. Every referenced
// column must exist; all but a scatter's color column must be numeric.
func (s *Sport) AddPlots(category string, p Plots) error {
	t, ok := s.tables[category]
	if !ok {
		return &LoadError{Source: tableSource(s.Name, category), Err: fmt.Errorf("%w: no such table", ErrMissingData)}
	}

	out := Plots{
		Scatters: make([]Scatter, 0, len(p.Scatters)),
		Groups:   make([]Group, 0, len(p.Groups)),
		Lines:    make([]Line, 0, len(p.Lines)),
	}
	for _, sc := range p.Scatters {
		sc.X, sc.Y = NormalizeColumn(sc.X), NormalizeColumn(sc.Y)
		sc.Size, sc.Color = NormalizeColumn(sc.Size), NormalizeColumn(sc.Color)
		for _, col := range []string{sc.X, sc.Y, sc.Size} {
			if col == "" {
				continue
			}
			if err := checkNumeric(t, col); err != nil {
				return err
			}
		}
		if sc.Color != "" {
			if _, ok := t.Column(sc.Color); !ok {
				return &LoadError{Source: tableSource(t.Sport, t.Category), Column: sc.Color, Err: ErrMissingData}
			}
		}
		if sc.Title == "" {
			sc.Title = sc.Y + " vs " + sc.X
		}
		out.Scatters = append(out.Scatters, sc)
	}
	for _, g := range p.Groups {
		cols, err := numericColumns(t, g.Columns)
		if err != nil {
			return err
		}
		g.Columns = cols
		if g.Title == "" {
			g.Title = strings.Join(cols, ", ")
		}
		out.Groups = append(out.Groups, g)
	}
	for _, l := range p.Lines {
		cols, err := numericColumns(t, l.Columns)
		if err != nil {
			return err
		}
		l.Columns = cols
		l.X = NormalizeColumn(l.X)
		if l.X != "" {
			if err := checkNumeric(t, l.X); err != nil {
				return err
			}
		}
		if l.Title == "" {
			l.Title = strings.Join(cols, ", ")
		}
		out.Lines = append(out.Lines, l)
	}
	s.plots[category] = out
	return nil
}

// Plots returns the plots declared for category's table.
func (s *Sport) Plots(category string) Plots {
	p := s.plots[category]
	out := Plots{
		Scatters: append([]Scatter(nil), p.Scatters...),
		Groups:   make([]Group, len(p.Groups)),
		Lines:    make([]Line, len(p.Lines)),
	}
	for i, g := range p.Groups {
		g.Columns = append([]string(nil), g.Columns...)
		out.Groups[i] = g
	}
	for i, l := range p.Lines {
		l.Columns = append([]string(nil), l.Columns...)
		out.Lines[i] = l
	}
	return out
}

func numericColumns(t *Table, cols []string) ([]string, error) {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		c = NormalizeColumn(c)
		if err := checkNumeric(t, c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func plotsFrom(ts TableSpec) Plots {
	var p Plots
	for _, sc := range ts.Scatters {
		p.Scatters = append(p.Scatters, Scatter(sc))
	}
	for _, g := range ts.Groups {
		p.Groups = append(p.Groups, Group(g))
	}
	for _, l := range ts.Lines {
		p.Lines = append(p.Lines, Line(l))
	}
	return p
}
