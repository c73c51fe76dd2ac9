// Package dashboard declares the multi-sport selection graph: sport, team
// and category inputs, the two player slots that appear once those are
// chosen, and the outputs built from them: the overview table, the metric
// charts, the declared scatter, grouped and line plots, and the two-player
// comparison.
package dashboard

import (
	"fmt"

	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/selection"
	"github.com/papapumpkin/scoreline/internal/view"
)

// Node names.
const (
	NodeSport      = "sport"
	NodeTeam       = "team"
	NodeCategory   = "category"
	NodePlayer1    = "player1"
	NodePlayer2    = "player2"
	NodeOverview   = "overview"
	NodeCharts     = "charts"
	NodeScatter    = "scatter"
	NodeGrouped    = "grouped"
	NodeLines      = "lines"
	NodeComparison = "comparison"
)

// Dashboard binds a Catalog to its selection graph. It is immutable and
// may back any number of sessions.
type Dashboard struct {
	catalog      *dataset.Catalog
	graph        *engine.Graph
	defaultSport string
}

// New builds the dashboard graph over cat. defaultSport is selected in
// every new session; empty means the catalog's first sport.
func New(cat *dataset.Catalog, defaultSport string) (*Dashboard, error) {
	names := cat.SportNames()
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: empty catalog", dataset.ErrMissingData)
	}
	if defaultSport == "" {
		defaultSport = names[0]
	}
	if _, err := cat.Sport(defaultSport); err != nil {
		return nil, fmt.Errorf("default sport: %w", err)
	}

	d := &Dashboard{catalog: cat, defaultSport: defaultSport}
	g, err := d.declare()
	if err != nil {
		return nil, err
	}
	d.graph = g
	return d, nil
}

// Catalog returns the catalog the dashboard reads from.
func (d *Dashboard) Catalog() *dataset.Catalog { return d.catalog }

// Graph returns the sealed selection graph.
func (d *Dashboard) Graph() *engine.Graph { return d.graph }

// DefaultSport returns the sport selected at session start.
func (d *Dashboard) DefaultSport() string { return d.defaultSport }

// NewSession starts a session with the default sport selected.
func (d *Dashboard) NewSession(opts ...engine.Option) (*engine.Session, error) {
	opts = append([]engine.Option{engine.WithSelection(NodeSport, d.defaultSport)}, opts...)
	return engine.NewSession(d.graph, opts...)
}

func (d *Dashboard) declare() (*engine.Graph, error) {
	g := engine.NewGraph()
	inputs := []struct {
		name     string
		dynamic  bool
		ancestry []string
		fn       engine.DomainFunc
	}{
		{NodeSport, false, nil, d.sportDomain},
		{NodeTeam, false, []string{NodeSport}, d.teamDomain},
		{NodeCategory, false, []string{NodeSport}, d.categoryDomain},
		{NodePlayer1, true, []string{NodeTeam, NodeCategory}, d.playerDomain},
		{NodePlayer2, true, []string{NodeTeam, NodeCategory}, d.playerDomain},
	}
	for _, in := range inputs {
		declare := g.DeclareInput
		if in.dynamic {
			declare = g.DeclareDynamic
		}
		if err := declare(in.name, in.ancestry, in.fn); err != nil {
			return nil, err
		}
	}

	outputs := []struct {
		name     string
		ancestry []string
		fn       engine.BuildFunc
	}{
		{NodeOverview, []string{NodeTeam, NodeCategory}, d.buildOverview},
		{NodeCharts, []string{NodeTeam, NodeCategory}, d.buildCharts},
		{NodeScatter, []string{NodeTeam, NodeCategory}, d.buildScatter},
		{NodeGrouped, []string{NodeTeam, NodeCategory}, d.buildGrouped},
		{NodeLines, []string{NodeTeam, NodeCategory}, d.buildLines},
		{NodeComparison, []string{NodePlayer1, NodePlayer2}, d.buildComparison},
	}
	for _, out := range outputs {
		if err := g.DeclareOutput(out.name, out.ancestry, out.fn); err != nil {
			return nil, err
		}
	}
	if err := g.Seal(); err != nil {
		return nil, err
	}
	return g, nil
}

// sport returns the selected sport, or nil when none is.
func (d *Dashboard) sport(in engine.Inputs) (*dataset.Sport, error) {
	name, ok := in.Value(NodeSport)
	if !ok {
		return nil, nil
	}
	return d.catalog.Sport(name)
}

func (d *Dashboard) sportDomain(engine.Inputs) (selection.Domain, error) {
	return selection.Domain{Options: d.catalog.SportNames()}, nil
}

func (d *Dashboard) teamDomain(in engine.Inputs) (selection.Domain, error) {
	sp, err := d.sport(in)
	if sp == nil || err != nil {
		return selection.Domain{}, err
	}
	return selection.Domain{Options: sp.Teams()}, nil
}

func (d *Dashboard) categoryDomain(in engine.Inputs) (selection.Domain, error) {
	sp, err := d.sport(in)
	if sp == nil || err != nil {
		return selection.Domain{}, err
	}
	if !sp.HasCategories() {
		return selection.Domain{NotApplicable: true}, nil
	}
	return selection.Domain{Options: sp.Categories()}, nil
}

// playerDomain is the roster of the selected team in the selected category
// table. The engine only calls it once sport, team and category resolve.
func (d *Dashboard) playerDomain(in engine.Inputs) (selection.Domain, error) {
	sp, err := d.sport(in)
	if sp == nil || err != nil {
		return selection.Domain{}, err
	}
	t, ok := sp.Table(in.Get(NodeCategory))
	if !ok {
		return selection.Domain{}, nil
	}
	return selection.Domain{Options: t.Players(in.Get(NodeTeam))}, nil
}

func (d *Dashboard) buildOverview(in engine.Inputs) (engine.Artifact, error) {
	sp, err := d.sport(in)
	if err != nil {
		return engine.Artifact{}, err
	}
	tbl := view.BuildTable(sp, in.Get(NodeTeam), in.Get(NodeCategory))
	return artifact(tbl, tbl.Placeholder), nil
}

func (d *Dashboard) buildCharts(in engine.Inputs) (engine.Artifact, error) {
	sp, err := d.sport(in)
	if err != nil {
		return engine.Artifact{}, err
	}
	category := in.Get(NodeCategory)
	var metrics []dataset.Metric
	if sp != nil {
		metrics = sp.Metrics(category)
	}
	charts, err := view.BuildTeamCharts(sp, in.Get(NodeTeam), category, metrics)
	if err != nil {
		return engine.Artifact{}, err
	}
	return artifact(charts, charts.Placeholder), nil
}

// plots returns the plots declared for the selected table.
func (d *Dashboard) plots(in engine.Inputs) (*dataset.Sport, dataset.Plots, error) {
	sp, err := d.sport(in)
	if sp == nil || err != nil {
		return sp, dataset.Plots{}, err
	}
	return sp, sp.Plots(in.Get(NodeCategory)), nil
}

func (d *Dashboard) buildScatter(in engine.Inputs) (engine.Artifact, error) {
	sp, p, err := d.plots(in)
	if err != nil {
		return engine.Artifact{}, err
	}
	v, err := view.BuildScatter(sp, in.Get(NodeTeam), in.Get(NodeCategory), p.Scatters)
	if err != nil {
		return engine.Artifact{}, err
	}
	return artifact(v, v.Placeholder), nil
}

func (d *Dashboard) buildGrouped(in engine.Inputs) (engine.Artifact, error) {
	sp, p, err := d.plots(in)
	if err != nil {
		return engine.Artifact{}, err
	}
	v, err := view.BuildGrouped(sp, in.Get(NodeTeam), in.Get(NodeCategory), p.Groups)
	if err != nil {
		return engine.Artifact{}, err
	}
	return artifact(v, v.Placeholder), nil
}

func (d *Dashboard) buildLines(in engine.Inputs) (engine.Artifact, error) {
	sp, p, err := d.plots(in)
	if err != nil {
		return engine.Artifact{}, err
	}
	v, err := view.BuildLines(sp, in.Get(NodeTeam), in.Get(NodeCategory), p.Lines)
	if err != nil {
		return engine.Artifact{}, err
	}
	return artifact(v, v.Placeholder), nil
}

func (d *Dashboard) buildComparison(in engine.Inputs) (engine.Artifact, error) {
	sp, err := d.sport(in)
	if err != nil {
		return engine.Artifact{}, err
	}
	category := in.Get(NodeCategory)
	var metrics []string
	if sp != nil {
		metrics = compareMetrics(sp, category)
	}
	c, err := view.BuildComparison(sp, in.Get(NodeTeam), category, in.Get(NodePlayer1), in.Get(NodePlayer2), metrics)
	if err != nil {
		return engine.Artifact{}, err
	}
	return artifact(c, c.Placeholder), nil
}

// compareMetrics falls back to every chart metric when none is flagged
// for comparison.
func compareMetrics(sp *dataset.Sport, category string) []string {
	if m := sp.CompareMetrics(category); len(m) > 0 {
		return m
	}
	var out []string
	for _, m := range sp.Metrics(category) {
		out = append(out, m.Column)
	}
	return out
}

func artifact(v any, placeholder string) engine.Artifact {
	if placeholder != "" {
		return engine.Placeholder(placeholder)
	}
	return engine.Ready(v)
}
