package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/inspect"
)

// inspectCommand creates the inspect command for summarizing a tree.
func (c *CLI) inspectCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize the records of a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], format)
		},
	}

	cmd.Flags().StringVar(&format, "from", "", "input format: "+formatList())
	_ = cmd.RegisterFlagCompletionFunc("from", completeFormats)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, path, format string) error {
	tree, err := c.readTree(path, format)
	if err != nil {
		return err
	}
	s := inspect.Summarize(tree)

	fmt.Fprintln(stdout, StyleTitle.Render(path))
	printKeyValue("records", strconv.Itoa(s.Records))
	printKeyValue("repeats", strconv.Itoa(s.Repeats))
	printKeyValue("stubs", strconv.Itoa(s.Stubs))
	printKeyValue("untagged", strconv.Itoa(s.Untagged))
	printKeyValue("max depth", strconv.Itoa(s.MaxDepth))

	if limit := c.Config.Serial.MaxDepth; s.MaxDepth > limit {
		printWarning("nesting exceeds serial.max_depth (%d); import will fail", limit)
	}

	if len(s.Classes) == 0 {
		return nil
	}
	printNewline()
	fmt.Fprintln(stdout, classTable(s.Classes))
	loggerFromContext(ctx).Debug("inspected", "file", path, "classes", len(s.Classes))
	return nil
}

func classTable(classes []inspect.ClassCount) string {
	rows := make([][]string, len(classes))
	for i, cc := range classes {
		module := cc.Module
		if module == "" {
			module = "—"
		}
		rows[i] = []string{cc.Class, module, strconv.Itoa(cc.Count)}
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Class", "Module", "Records").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == -1:
				return headerStyle
			case col == 2:
				return lipgloss.NewStyle().Foreground(colorCyan).Align(lipgloss.Right)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}
