package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/inspect"
)

// Output formats of the graph command.
const (
	graphSVG = "svg"
	graphPNG = "png"
	graphDOT = "dot"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	output   string // output file; <input>.svg when empty
	from     string // input format
	detailed bool   // include scalar fields in node labels
}

// graphCommand creates the graph command for drawing the record graph.
func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [file]",
		Short: "Draw the record graph of a tree as SVG, PNG or DOT",
		Long: `Graph draws one box per record and one arrow per reference.

The output format follows the extension of --output: .svg (default), .png
or .dot. Records only known from stubs are drawn dashed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file: .svg, .png or .dot (default <file>.svg)")
	cmd.Flags().StringVar(&opts.from, "from", "", "input format: "+formatList())
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show scalar fields in node labels")
	_ = cmd.RegisterFlagCompletionFunc("from", completeFormats)

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, input string, opts graphOpts) error {
	logger := loggerFromContext(ctx)

	tree, err := c.readTree(input, opts.from)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "." + graphSVG
	}
	format, err := graphFormat(output)
	if err != nil {
		return err
	}

	dot := inspect.ToDOT(tree, inspect.Options{Detailed: opts.detailed})
	data, err := renderGraph(ctx, dot, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	logger.Debug("rendered graph", "format", format, "bytes", len(data))
	printSuccess("Rendered %s", format)
	printFile(output)
	return nil
}

// renderGraph lays out dot, showing a spinner while Graphviz runs.
func renderGraph(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case graphDOT:
		return []byte(dot), nil
	case graphPNG, graphSVG:
	default:
		return nil, fmt.Errorf("unsupported graph format: %s", format)
	}

	return withSpinner(ctx, stderr, "Laying out graph...", func() ([]byte, error) {
		if format == graphPNG {
			return inspect.RenderPNG(dot)
		}
		return inspect.RenderSVG(dot)
	})
}

// graphFormat returns the format named by the extension of path.
func graphFormat(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case graphSVG, graphPNG, graphDOT:
		return ext, nil
	}
	return "", fmt.Errorf("unsupported graph output %q (want .svg, .png or .dot)", path)
}
