package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewTellCommand creates the tell command.
func NewTellCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tell <text...>",
		Short: "Feed text into memory",
		Long: `Feed user text into memory: rewrite rules are applied, a user event
is appended to the log, and co-mentioned symbols are linked in the graph.

Bracketed spans tag symbols precisely; plain text degrades to token mining.

Example:
  mirror tell "the [mirror] reflects the [self]"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(rootOpts, nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize", err)
			}
			defer rt.close()

			rewritten, err := rt.eng.Tell(strings.Join(args, " "))
			if err != nil {
				return WrapExitError(ExitFailure, "failed to record input", err)
			}
			// Graph deltas from user input should survive the one-shot
			// invocation, not wait for a run's save point.
			if err := rt.eng.Save(); err != nil {
				return WrapExitError(ExitFailure, "failed to save state", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(rewritten)
		},
	}
}
