package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/symrec/mirror/internal/memory"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Last int
}

// logEntry is the JSON shape for one displayed event.
type logEntry struct {
	TS   float64 `json:"ts"`
	Kind string  `json:"kind"`
	Text string  `json:"text"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recent events",
		Long: `Show the most recent events from the in-memory window, oldest first.

Example:
  mirror log --data ./data --last 20`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showLog(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Last, "last", 20, "number of events to show")

	return cmd
}

func showLog(opts *LogOptions, cmd *cobra.Command) error {
	rt, err := bootstrap(opts.RootOptions, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	defer rt.close()

	events := rt.log.Recent(opts.Last)
	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	if opts.Format == "json" {
		entries := make([]logEntry, len(events))
		for i, ev := range events {
			entries[i] = logEntry{TS: ev.TS, Kind: string(ev.Kind), Text: ev.Text}
		}
		return out.Success(entries)
	}

	if len(events) == 0 {
		return out.Success("(no events)")
	}
	var b strings.Builder
	for _, ev := range events {
		b.WriteString(formatEvent(ev))
		b.WriteByte('\n')
	}
	return out.Success(strings.TrimRight(b.String(), "\n"))
}

func formatEvent(ev memory.Event) string {
	ts := time.Unix(int64(ev.TS), 0).UTC().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s  %-10s %s", ts, ev.Kind, ev.Text)
}
