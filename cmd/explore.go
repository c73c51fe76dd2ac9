package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/scoreline/internal/config"
	"github.com/papapumpkin/scoreline/internal/dashboard"
	"github.com/papapumpkin/scoreline/internal/engine"
	"github.com/papapumpkin/scoreline/internal/render"
	"github.com/papapumpkin/scoreline/internal/ui"
)

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Explore the dashboards from an interactive console",
	Long: `Starts a console session over the loaded datasets. Each command is one
selection event; after it the affected pickers and views are shown.`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().StringArrayP("select", "s", nil, "initial selection as node=value (repeatable)")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	printer := ui.New()
	ctx, cancel := setupSignalContext(printer)
	defer cancel()

	emitter, err := openEmitter(cfg)
	if err != nil {
		return err
	}
	defer emitter.Close()

	d, err := loadDashboard(ctx, cfg, emitter)
	if err != nil {
		printer.LoadFailed(cfg.Manifest, err)
		return err
	}

	opts := []engine.Option{engine.WithEmitter(emitter)}
	pairs, _ := cmd.Flags().GetStringArray("select")
	for _, p := range pairs {
		node, value, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("--select %q: want node=value", p)
		}
		opts = append(opts, engine.WithSelection(node, value))
	}
	s, err := d.NewSession(opts...)
	if err != nil {
		return err
	}
	defer s.Close()

	printer.Banner()
	printer.Info("type 'help' for commands")
	c := newConsole(s, cmd.OutOrStdout(), printer, cfg.Verbose)
	c.out.Snapshot(dashboard.Snap(s))
	return c.run(ctx, os.Stdin)
}

// console is the read-eval-print loop over one session. Views go to w,
// chatter to the printer.
type console struct {
	session *engine.Session
	w       io.Writer
	out     *render.Renderer
	printer *ui.Printer
	verbose bool
}

func newConsole(s *engine.Session, w io.Writer, printer *ui.Printer, verbose bool) *console {
	return &console{session: s, w: w, out: render.New(w), printer: printer, verbose: verbose}
}

// run reads commands from in until it ends, a quit command, or ctx is
// cancelled. Lines are read on their own goroutine so cancellation does not
// wait for the next line; a reader blocked in Scan is left behind until in
// yields or the process exits.
func (c *console) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-stop:
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		c.printer.Prompt()
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if quit := c.exec(line); quit {
				c.printer.Info("goodbye")
				return nil
			}
		}
	}
}

// exec runs one console command and reports whether the console should exit.
func (c *console) exec(line string) bool {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "quit", "exit", "q":
		return true
	case "help", "h", "?":
		c.printer.ShowHelp()
	case "set":
		node, value, _ := strings.Cut(rest, " ")
		value = unquote(strings.TrimSpace(value))
		if node == "" || value == "" {
			c.printer.Error("usage: set <node> <value>")
			return false
		}
		c.apply(c.session.Set(node, value))
	case "clear":
		if rest == "" {
			c.printer.Error("usage: clear <node>")
			return false
		}
		c.apply(c.session.Clear(rest))
	case "options":
		c.options(rest)
	case "show":
		c.show(rest)
	case "graph":
		c.drawGraph()
	default:
		c.printer.Error(fmt.Sprintf("unknown command %q", verb))
	}
	return false
}

func (c *console) apply(res *engine.Result, err error) {
	if err != nil {
		c.printer.Rejected(err)
		return
	}
	if c.verbose {
		c.printer.PassSummary(res)
	} else {
		c.out.Result(res)
	}
	c.out.Snapshot(dashboard.Snap(c.session))
}

func (c *console) options(node string) {
	snap := dashboard.Snap(c.session)
	if node == "" {
		c.out.Selections(snap.Inputs)
		return
	}
	for _, in := range snap.Inputs {
		if in.Name == node {
			c.out.Selections([]dashboard.InputState{in})
			return
		}
	}
	if _, err := c.session.Options(node); err != nil {
		c.printer.Error(err.Error())
	}
}

func (c *console) show(node string) {
	if node == "" {
		c.out.Snapshot(dashboard.Snap(c.session))
		return
	}
	a, ok := c.session.Artifact(node)
	if !ok {
		c.printer.Error(fmt.Sprintf("no output named %q", node))
		return
	}
	c.out.Artifact(a)
}

func (c *console) drawGraph() {
	r := &ui.GraphRenderer{StatusFunc: ui.SessionStatus(c.session)}
	out, err := r.Render(c.session.Graph())
	if err != nil {
		c.printer.Error(err.Error())
		return
	}
	fmt.Fprint(c.w, out)
}

// unquote strips one pair of matching quotes around a console argument.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
