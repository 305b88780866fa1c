package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/codec"
	objio "github.com/matzehuels/objgraph/pkg/io"
	"github.com/matzehuels/objgraph/pkg/store"
)

// storeCommand creates the store command for managing named snapshots.
func (c *CLI) storeCommand() *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage named tree snapshots",
		Long: `Store keeps trees under names in the configured backend (store.backend):
file, redis, sqlite or null.`,
	}
	cmd.PersistentFlags().StringVar(&scope, "scope", "", "key scope, e.g. a project or user name")

	cmd.AddCommand(c.storePutCommand(&scope))
	cmd.AddCommand(c.storeGetCommand(&scope))
	cmd.AddCommand(c.storeDeleteCommand(&scope))
	cmd.AddCommand(c.storePathCommand())
	cmd.AddCommand(c.storeClearCommand())

	return cmd
}

// withSnapshots opens the store, runs fn and closes the store again.
func (c *CLI) withSnapshots(ctx context.Context, scope string, fn func(*store.Snapshots) error) error {
	st, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	f, err := codec.Lookup(c.Config.Codec.Default)
	if err != nil {
		return err
	}
	opts := []store.SnapshotOption{store.WithTTL(c.Config.Store.TTL)}
	if scope != "" {
		opts = append(opts, store.WithKeyer(store.NewScopedKeyer(nil, scope+":")))
	}
	return fn(store.NewSnapshots(st, nil, f, opts...))
}

// storePutCommand creates the "store put" subcommand.
func (c *CLI) storePutCommand(scope *string) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "put [name] [file]",
		Short: "Store the tree in a file under a name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, path := args[0], args[1]
			tree, err := c.readTree(path, from)
			if err != nil {
				return err
			}
			return c.withSnapshots(cmd.Context(), *scope, func(s *store.Snapshots) error {
				p, err := s.PutTree(cmd.Context(), name, tree)
				if err != nil {
					return err
				}
				printSuccess("Stored %s", StyleHighlight.Render(name))
				printDetail("%s, %d bytes, id %s", p.Format, len(p.Data), p.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "input format: "+formatList())
	_ = cmd.RegisterFlagCompletionFunc("from", completeFormats)
	return cmd
}

// storeGetCommand creates the "store get" subcommand.
func (c *CLI) storeGetCommand(scope *string) *cobra.Command {
	var output, to string

	cmd := &cobra.Command{
		Use:   "get [name]",
		Short: "Write a stored tree to a file or stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSnapshots(cmd.Context(), *scope, func(s *store.Snapshots) error {
				tree, err := s.GetTree(cmd.Context(), args[0])
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
				printSuccess("Restored %s", StyleHighlight.Render(args[0]))
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

// storeDeleteCommand creates the "store delete" subcommand.
func (c *CLI) storeDeleteCommand(scope *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a stored tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSnapshots(cmd.Context(), *scope, func(s *store.Snapshots) error {
				if err := s.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				printSuccess("Deleted %s", args[0])
				return nil
			})
		},
	}
}

// storePathCommand creates the "store path" subcommand.
func (c *CLI) storePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where the configured store keeps its data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(stdout, c.storeLocation())
			return nil
		},
	}
}

// storeClearCommand creates the "store clear" subcommand.
func (c *CLI) storeClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every stored tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withSnapshots(cmd.Context(), "", func(s *store.Snapshots) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err
				}
				printSuccess("Cleared %s store", c.Config.Store.Backend)
				printDetail("Location: %s", c.storeLocation())
				return nil
			})
		},
	}
}
