package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/codec"
	"github.com/matzehuels/objgraph/pkg/inspect"
	objio "github.com/matzehuels/objgraph/pkg/io"
)

// convertOpts holds the command-line flags for the convert command.
type convertOpts struct {
	output string // output file path; stdout when empty
	from   string // input format; inferred from the extension when empty
	to     string // output format; inferred from output, then codec.default
}

// convertCommand creates the convert command for re-encoding a tree.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a tree between JSON, YAML, TOML and CBOR",
		Long: `Convert reads a primitive tree and writes it in another format.

Shared records are written once; later references become stubs that keep
only the reserved _class and _uid keys, so the output imports to the same
object graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.from, "from", "", "input format: "+formatList())
	cmd.Flags().StringVar(&opts.to, "to", "", "output format: "+formatList())
	_ = cmd.RegisterFlagCompletionFunc("from", completeFormats)
	_ = cmd.RegisterFlagCompletionFunc("to", completeFormats)

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, input string, opts convertOpts) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	tree, err := c.readTree(input, opts.from)
	if err != nil {
		return err
	}

	out, err := c.outputFormat(opts.output, opts.to)
	if err != nil {
		return err
	}
	logger.Debug("converting", "input", input, "to", out.Name())

	if opts.output == "" {
		return objio.WriteTree(stdout, out, tree)
	}
	if err := objio.ExportFile(opts.output, out, tree); err != nil {
		return err
	}

	s := inspect.Summarize(tree)
	prog.done("Converted")
	printSuccess("Wrote %d records as %s", s.Records, out.Name())
	printFile(opts.output)
	return nil
}

// readTree reads a tree from path, using the named format or the extension.
func (c *CLI) readTree(path, format string) (any, error) {
	var f codec.Format
	if format != "" {
		var err error
		if f, err = codec.Lookup(format); err != nil {
			return nil, err
		}
	}
	return objio.ImportFile(path, f)
}

// outputFormat picks the format for writing: the named one, the output
// file's extension, or the configured default.
func (c *CLI) outputFormat(output, format string) (codec.Format, error) {
	if format != "" {
		return codec.Lookup(format)
	}
	if output != "" {
		if f, err := codec.ForPath(output); err == nil {
			return f, nil
		}
	}
	return codec.Lookup(c.Config.Codec.Default)
}
