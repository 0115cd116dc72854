package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/symrec/mirror/internal/memory"
)

// StatsOptions holds flags for the stats command.
type StatsOptions struct {
	*RootOptions
	Top int
}

// Stats is the stats command's payload: the periodic summary mapping the
// core produces for external rendering.
type Stats struct {
	Events   int                   `json:"events"`
	Archived int                   `json:"archived"`
	Symbols  []memory.RankedSymbol `json:"top_symbols"`
	Rules    []string              `json:"rules"`
}

// String renders the text form of the stats payload.
func (s Stats) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "events:   %d\n", s.Events)
	fmt.Fprintf(&b, "archived: %d\n", s.Archived)
	fmt.Fprintf(&b, "rules:    %d\n", len(s.Rules))
	b.WriteString("top symbols:\n")
	if len(s.Symbols) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, r := range s.Symbols {
		fmt.Fprintf(&b, "  %-32s %d\n", r.Symbol, r.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show event counts and top symbols",
		Long: `Show the memory summary: event window size, archived event count,
stored rules, and the highest-frequency symbols.

Example:
  mirror stats --data ./data --top 10
  mirror stats --data ./data --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStats(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Top, "top", 10, "number of top symbols to show")

	return cmd
}

func showStats(opts *StatsOptions, cmd *cobra.Command) error {
	rt, err := bootstrap(opts.RootOptions, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	defer rt.close()

	archived, err := rt.archive.Count()
	if err != nil {
		return WrapExitError(ExitFailure, "failed to count archive", err)
	}

	stats := Stats{
		Events:   rt.log.Len(),
		Archived: archived,
		Symbols:  rt.log.TopSymbols(opts.Top),
		Rules:    rt.rules.Names(),
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return out.Success(stats)
}
