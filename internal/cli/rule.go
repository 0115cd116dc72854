package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewRuleCommand creates the rule command group.
func NewRuleCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage rewrite rules",
		Long: `Manage the rewrite rules applied to input text before interpretation.

Rules are named pattern/replacement pairs; patterns are regular
expressions matched case-insensitively. An invalid pattern is stored as-is
and simply skipped at apply time.`,
	}

	cmd.AddCommand(newRuleSetCommand(rootOpts))
	cmd.AddCommand(newRuleDelCommand(rootOpts))
	cmd.AddCommand(newRuleListCommand(rootOpts))

	return cmd
}

func newRuleSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <pattern> <replacement>",
		Short: "Add or update a rewrite rule",
		Example: `  mirror rule set pets cat dog
  mirror rule set tone '\bangry\b' calm`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(rootOpts, nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize", err)
			}
			defer rt.close()

			rt.rules.Set(args[0], args[1], args[2])
			if err := rt.rules.Save(rt.cfg.RulesPath()); err != nil {
				return WrapExitError(ExitFailure, "failed to save rules", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("rule %q set", args[0]))
		},
	}
}

func newRuleDelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "del <name>",
		Short:         "Delete a rewrite rule",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(rootOpts, nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize", err)
			}
			defer rt.close()

			if !rt.rules.Delete(args[0]) {
				return NewExitError(ExitFailure, fmt.Sprintf("no rule named %q", args[0]))
			}
			if err := rt.rules.Save(rt.cfg.RulesPath()); err != nil {
				return WrapExitError(ExitFailure, "failed to save rules", err)
			}

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			return out.Success(fmt.Sprintf("rule %q deleted", args[0]))
		},
	}
}

func newRuleListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List rewrite rules",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := bootstrap(rootOpts, nil)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to initialize", err)
			}
			defer rt.close()

			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}
			if rootOpts.Format == "json" {
				payload := make(map[string]map[string]string)
				for _, name := range rt.rules.Names() {
					r, _ := rt.rules.Get(name)
					payload[name] = map[string]string{"pattern": r.Pattern, "replacement": r.Replacement}
				}
				return out.Success(payload)
			}

			names := rt.rules.Names()
			if len(names) == 0 {
				return out.Success("(no rules)")
			}
			var b strings.Builder
			for _, name := range names {
				r, _ := rt.rules.Get(name)
				fmt.Fprintf(&b, "%-20s %s -> %s\n", name, r.Pattern, r.Replacement)
			}
			return out.Success(strings.TrimRight(b.String(), "\n"))
		},
	}
}
