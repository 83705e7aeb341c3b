package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/klibmirror/klibmirror/pkg/mirror"
)

// newGraphCmd creates the graph command, which renders the resolved
// dependency closure as DOT or SVG. It performs a full resolve; against a
// warm descriptor cache this issues no network fetches.
func newGraphCmd() *cobra.Command {
	opts := &mirrorOpts{}
	var output string
	var format string

	cmd := &cobra.Command{
		Use:   "graph [coordinate...]",
		Short: "Render the resolved dependency closure as DOT or SVG",
		Long: `Graph resolves the dependency closure of the given coordinates (or the
config file's klib list) and renders the discovered dependency edges.

Examples:
  klibmirror graph -o deps.svg --format svg
  klibmirror graph org.example:lib-js:1.0        # DOT to stdout`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd, opts, output, format, args)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&format, "format", "dot", "output format: dot or svg")

	return cmd
}

func runGraph(cmd *cobra.Command, opts *mirrorOpts, output, format string, args []string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	if format != "dot" && format != "svg" {
		return fmt.Errorf("unknown format %q (available: dot, svg)", format)
	}

	cfg, err := opts.load(cmd)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	coords := coordinates(args, cfg)
	if len(coords) == 0 {
		return fmt.Errorf("no coordinates given (pass them as arguments or list them under klibs in %s)", opts.configPath)
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		return err
	}
	resolveOpts, err := resolveOptions(ctx, cfg, opts)
	if err != nil {
		return err
	}

	prog := newProgress(logger)
	report, err := resolver.Resolve(ctx, coords, resolveOpts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Resolved %d artifacts with %d edges", len(report.Artifacts), len(report.Edges)))

	dot := toDOT(report)
	data := []byte(dot)
	if format == "svg" {
		spinner := newSpinnerWithContext(ctx, "Rendering SVG...")
		spinner.Start()
		data, err = renderSVG(ctx, dot)
		if err != nil {
			spinner.StopWithError(fmt.Sprintf("Render failed: %v", err))
			return err
		}
		spinner.Stop()
	}

	if output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}
	printSuccess("Wrote dependency graph")
	printFile(output)
	return nil
}

// toDOT converts a resolution report to Graphviz DOT format. Nodes are
// dedup keys labeled with artifact name and resolved version; edges are
// the discovered dependency relations, diamonds included.
func toDOT(report *mirror.Report) string {
	var buf bytes.Buffer
	buf.WriteString("digraph deps {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	for _, a := range report.Artifacts {
		label := a.Artifact + "\n" + a.Version
		fmt.Fprintf(&buf, "  %q [label=%q];\n", a.Key(), label)
	}

	buf.WriteString("\n")
	for _, e := range report.Edges {
		fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// renderSVG renders a DOT graph to SVG using Graphviz.
func renderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer func() { _ = g.Close() }()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
