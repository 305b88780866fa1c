package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/docstore"
	objio "github.com/matzehuels/objgraph/pkg/io"
)

// docsCommand creates the docs command for the MongoDB node store.
func (c *CLI) docsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Store trees in MongoDB as one document per record",
		Long: `Docs flattens a tree into node documents, one per record, linked by node
id. Requires mongo.uri in the config file or OBJGRAPH_MONGO_URI.`,
	}

	cmd.AddCommand(c.docsPushCommand())
	cmd.AddCommand(c.docsPullCommand())
	cmd.AddCommand(c.docsListCommand())
	cmd.AddCommand(c.docsDeleteCommand())

	return cmd
}

// withDocs connects to MongoDB, runs fn and disconnects again.
func (c *CLI) withDocs(ctx context.Context, fn func(*docstore.MongoStore) error) error {
	ms, err := c.openDocs(ctx)
	if err != nil {
		return err
	}
	defer ms.Close(context.WithoutCancel(ctx))
	return fn(ms)
}

func (c *CLI) docsPushCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "push [name] [file]",
		Short: "Flatten a tree file and save its nodes under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, path := args[0], args[1]

			tree, err := c.readTree(path, from)
			if err != nil {
				return err
			}
			g, err := docstore.Flatten(tree)
			if err != nil {
				return err
			}
			return c.withDocs(ctx, func(ms *docstore.MongoStore) error {
				prog := newProgress(loggerFromContext(ctx))
				if err := ms.Save(ctx, name, g); err != nil {
					return err
				}
				prog.done("Saved nodes")
				printSuccess("Pushed %s", StyleHighlight.Render(name))
				printDetail("%d nodes, graph %s", len(g.Nodes), g.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format: "+formatList())
	_ = cmd.RegisterFlagCompletionFunc("from", completeFormats)
	return cmd
}

func (c *CLI) docsPullCommand() *cobra.Command {
	var output, to string

	cmd := &cobra.Command{
		Use:   "pull [name]",
		Short: "Reassemble a stored graph and write it as a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withDocs(ctx, func(ms *docstore.MongoStore) error {
				g, err := ms.Load(ctx, args[0])
				if err != nil {
					return err
				}
				tree, err := docstore.Assemble(g)
				if err != nil {
					return err
				}
				f, err := c.outputFormat(output, to)
				if err != nil {
					return err
				}
				if output == "" {
					return objio.WriteTree(stdout, f, tree)
				}
				if err := objio.ExportFile(output, f, tree); err != nil {
					return err
				}
				printSuccess("Pulled %s", StyleHighlight.Render(args[0]))
				printFile(output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&to, "to", "", "output format: "+formatList())
	_ = cmd.RegisterFlagCompletionFunc("to", completeFormats)
	return cmd
}

func (c *CLI) docsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored graph names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withDocs(ctx, func(ms *docstore.MongoStore) error {
				names, err := ms.Names(ctx)
				if err != nil {
					return err
				}
				if len(names) == 0 {
					printInfo("No graphs stored")
					return nil
				}
				for _, name := range names {
					printFile(name)
				}
				return nil
			})
		},
	}
}

func (c *CLI) docsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored graph and its nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return c.withDocs(ctx, func(ms *docstore.MongoStore) error {
				if err := ms.Delete(ctx, args[0]); err != nil {
					return err
				}
				printSuccess("Deleted %s", args[0])
				return nil
			})
		},
	}
}
