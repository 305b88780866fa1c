package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/codec"
)

// formatList returns the codec names for flag help, e.g. "json, yaml, toml, cbor".
func formatList() string {
	return strings.Join(codec.Names(), ", ")
}

// completeFormats completes codec names for --from and --to.
func completeFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, name := range codec.Names() {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
