// Package ui provides stderr-based UI output for scoreline: console
// prompts, load and reload reports, pass summaries and the selection graph.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/papapumpkin/scoreline/internal/ansi"
	"github.com/papapumpkin/scoreline/internal/audit"
	"github.com/papapumpkin/scoreline/internal/dataset"
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/selection"
)

// Printer writes human-oriented status messages. Data output goes to
// stdout through the render package; everything here is chatter.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a Printer writing colored output to stderr.
func New() *Printer {
	return &Printer{w: os.Stderr, color: true}
}

// NewWriter returns a Printer writing to w.
func NewWriter(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) c(code, text string) string {
	return ansi.Wrap(p.color, code, text)
}

// Banner prints the console greeting.
func (p *Printer) Banner() {
	fmt.Fprintln(p.w, p.c(ansi.Bold+ansi.Cyan, "  ╔═══════════════════════════════════╗"))
	fmt.Fprintln(p.w, p.c(ansi.Bold+ansi.Cyan, "  ║")+p.c(ansi.Bold, "   SCORELINE  ")+p.c(ansi.Dim, "sports dashboards")+"    "+p.c(ansi.Bold+ansi.Cyan, "║"))
	fmt.Fprintln(p.w, p.c(ansi.Bold+ansi.Cyan, "  ╚═══════════════════════════════════╝"))
	fmt.Fprintln(p.w)
}

// Prompt prints the console prompt without a newline.
func (p *Printer) Prompt() {
	fmt.Fprint(p.w, p.c(ansi.Bold+ansi.Cyan, "scoreline> "))
}

// Error prints msg as an error.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s%s\n", p.c(ansi.Red+ansi.Bold, "error: "), msg)
}

// Warn prints msg as a warning.
func (p *Printer) Warn(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.c(ansi.Yellow+ansi.Bold, "⚠"), msg)
}

// Info prints msg dimmed.
func (p *Printer) Info(msg string) {
	fmt.Fprintln(p.w, p.c(ansi.Dim, msg))
}

// Success prints msg with a check mark.
func (p *Printer) Success(msg string) {
	fmt.Fprintf(p.w, "%s %s\n", p.c(ansi.Green+ansi.Bold, "✓"), msg)
}

// Rejected explains why a selection was refused.
func (p *Printer) Rejected(err error) {
	var inv *selection.InvalidSelectionError
	if errors.As(err, &inv) {
		fmt.Fprintf(p.w, "%s %s=%q: %s\n", p.c(ansi.Yellow+ansi.Bold, "✗ rejected"), inv.Node, inv.Value, inv.Reason)
		return
	}
	p.Error(err.Error())
}

// ShowHelp lists the console commands.
func (p *Printer) ShowHelp() {
	cmd := func(name, desc string) string {
		return fmt.Sprintf("  %s %s", p.c(ansi.Bold, fmt.Sprintf("%-22s", name)), desc)
	}
	lines := []string{
		p.c(ansi.Bold, "Commands:"),
		cmd("set <node> <value>", "select a value (quote values with spaces)"),
		cmd("clear <node>", "unset a node"),
		cmd("options [node]", "list the legal values of one or every input"),
		cmd("show [output]", "render one or every output"),
		cmd("graph", "draw the selection graph"),
		cmd("help", "show this message"),
		cmd("quit", "exit scoreline"),
	}
	fmt.Fprintln(p.w, strings.Join(lines, "\n"))
}

// CatalogSummary reports what a manifest loaded.
func (p *Printer) CatalogSummary(path string, cat *dataset.Catalog) {
	names := cat.SportNames()
	fmt.Fprintf(p.w, "%s %s: %d sport%s\n", p.c(ansi.Green+ansi.Bold, "✓"), path, len(names), pluralS(len(names)))
	for _, name := range names {
		sp, err := cat.Sport(name)
		if err != nil {
			continue
		}
		fmt.Fprintf(p.w, "  %s %s\n", p.c(ansi.Bold+ansi.Cyan, sp.Label), p.c(ansi.Dim, fmt.Sprintf("(%d teams)", len(sp.Teams()))))
		categories := sp.Categories()
		if len(categories) == 0 {
			categories = []string{""}
		}
		for _, c := range categories {
			t, ok := sp.Table(c)
			if !ok {
				continue
			}
			label := c
			if label == "" {
				label = "players"
			}
			fmt.Fprintf(p.w, "    %-14s %4d rows  %d metric%s\n", label, t.Len(), len(sp.Metrics(c)), pluralS(len(sp.Metrics(c))))
		}
	}
}

// LoadFailed reports a manifest that could not be loaded.
func (p *Printer) LoadFailed(path string, err error) {
	fmt.Fprintf(p.w, "%s %s\n", p.c(ansi.Red+ansi.Bold, "✗ "+path), err)
	var le *dataset.LoadError
	if errors.As(err, &le) && le.Column != "" {
		fmt.Fprintf(p.w, "  %s column %q in %s\n", p.c(ansi.Red, "•"), le.Column, le.Source)
	}
}

// AuditResult prints each audit check and its findings.
func (p *Printer) AuditResult(r *audit.Result) {
	for _, c := range r.Checks {
		if c.Passed {
			fmt.Fprintf(p.w, "  %s %s\n", p.c(ansi.Green, "✓"), c.Name)
			continue
		}
		fmt.Fprintf(p.w, "  %s %s %s\n", p.c(ansi.Yellow+ansi.Bold, "⚠"), c.Name,
			p.c(ansi.Dim, fmt.Sprintf("(%d finding%s)", len(c.Findings), pluralS(len(c.Findings)))))
		for _, f := range c.Findings {
			fmt.Fprintf(p.w, "    %s %s\n", p.c(ansi.Yellow, "•"), f)
		}
	}
}

// PassSummary prints what a propagation pass changed.
func (p *Printer) PassSummary(res *engine.Result) {
	if res == nil {
		return
	}
	trigger := res.Trigger
	if trigger == "" {
		trigger = "initial"
	}
	fmt.Fprintf(p.w, "%s %s %s\n",
		p.c(ansi.Dim, "┌─"),
		p.c(ansi.Bold, fmt.Sprintf("pass %d", res.Pass)),
		p.c(ansi.Dim, "── "+trigger+" ──────────"))

	for _, rs := range res.Resets {
		fmt.Fprintf(p.w, "%s  %s %s %s\n", p.c(ansi.Dim, "│"), p.c(ansi.Magenta, "↺"), rs.Node, p.c(ansi.Dim, fmt.Sprintf("cleared (was %q)", rs.Previous)))
	}
	for _, tr := range res.Transitions {
		if tr.From == engine.StateStale || tr.From == tr.To {
			continue
		}
		fmt.Fprintf(p.w, "%s  %s %s %s → %s\n", p.c(ansi.Dim, "│"), p.c(stateColor(tr.To), "◆"), tr.Node, tr.From, p.c(stateColor(tr.To), tr.To.String()))
	}
	for _, f := range res.Failures {
		fmt.Fprintf(p.w, "%s  %s %s: %s\n", p.c(ansi.Dim, "│"), p.c(ansi.Red+ansi.Bold, "✗"), f.Node, f.Message)
	}
	fmt.Fprintln(p.w, p.c(ansi.Dim, "└──────────────────────────────"))
}

// WatchLine formats the one-line status shown while watching a manifest.
func WatchLine(cat *dataset.Catalog, reloads int) string {
	tables := 0
	for _, name := range cat.SportNames() {
		sp, err := cat.Sport(name)
		if err != nil {
			continue
		}
		if n := len(sp.Categories()); n > 0 {
			tables += n
		} else {
			tables++
		}
	}
	return fmt.Sprintf("[scoreline] %d sports | %d tables | %d reloads", len(cat.SportNames()), tables, reloads)
}

// WatchStatus overwrites the current line with the watch status.
func (p *Printer) WatchStatus(cat *dataset.Catalog, reloads int) {
	fmt.Fprintf(p.w, "\r%s%s", ansi.ClearLine, p.c(ansi.Cyan, WatchLine(cat, reloads)))
}

// WatchStatusDone ends the status line so later output starts fresh.
func (p *Printer) WatchStatusDone() {
	fmt.Fprintln(p.w)
}

func stateColor(s engine.OutputState) string {
	switch s {
	case engine.StateReady:
		return ansi.Green
	case engine.StatePartial:
		return ansi.Yellow
	case engine.StateStale:
		return ansi.Magenta
	default:
		return ansi.Blue
	}
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
