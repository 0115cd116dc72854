package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/symrec/mirror/internal/engine"
	"github.com/symrec/mirror/internal/memory"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Cycles int // 0 = run until interrupted
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the symbolic memory loop",
		Long: `Run the symbolic memory loop: cycles of symbol generation, graph
strengthening, and paced abstraction attempts.

State is loaded from the data directory, appended/strengthened in-process,
and snapshots are saved periodically and on interrupt.

Example:
  mirror run --data ./data
  mirror run --data ./data --cycles 50 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Cycles, "cycles", 0, "stop after N cycles (0 = until interrupted)")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	pres := &echoPresenter{w: cmd.OutOrStdout()}
	rt, err := bootstrap(opts.RootOptions, pres)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to initialize", err)
	}
	defer rt.close()

	// Graceful shutdown: an interrupt triggers the orderly save inside
	// engine.Run before the process exits.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			rt.logger.Info("received signal, saving and shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	rt.logger.Info("engine starting", "data_dir", rt.cfg.DataDir, "run", rt.eng.RunToken())
	fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Press Ctrl-C to stop.")

	err = runCycles(ctx, rt.eng, opts.Cycles)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	rt.logger.Info("engine stopped")
	return nil
}

// runCycles drives the engine either for a fixed cycle count or until the
// context ends.
func runCycles(ctx context.Context, eng *engine.Engine, cycles int) error {
	if cycles <= 0 {
		return eng.Run(ctx)
	}
	defer func() {
		if err := eng.Save(); err != nil {
			// Run's unbounded path logs this itself; mirror it here.
			fmt.Fprintln(os.Stderr, "final save failed:", err)
		}
	}()
	for n := 1; n <= cycles; n++ {
		if _, err := eng.Cycle(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// echoPresenter writes accepted events and cycle summaries as display
// lines, one per event. It is the presentation surface of the run command.
type echoPresenter struct {
	w io.Writer
}

func (p *echoPresenter) Event(ev memory.Event) {
	ts := time.Unix(int64(ev.TS), 0).Format("15:04:05")
	fmt.Fprintf(p.w, "[%s] %-10s %s\n", ts, ev.Kind, ev.Text)
}

func (p *echoPresenter) Summary(s engine.Summary) {
	fmt.Fprintf(p.w, "-- cycle %d: %d events, top:", s.Cycle, s.Events)
	for _, r := range s.Top {
		fmt.Fprintf(p.w, " %s=%d", r.Symbol, r.Count)
	}
	fmt.Fprintln(p.w)
}
