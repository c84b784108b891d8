package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/runtime"
	"github.com/roach88/loom/internal/scenario"
	"github.com/roach88/loom/internal/trace"
)

// TraceOutput is the full trace of a single execution.
type TraceOutput struct {
	Scenario    string        `json:"scenario"`
	Fingerprint string        `json:"fingerprint"`
	Events      []trace.Event `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trace <scenario-file>",
		Short: "Execute a scenario and print its full event timeline",
		Long: `Execute a scenario on the deterministic scheduler and print every
trace event in order. Each line shows the logical sequence number, the
thread that performed the operation, the operation, and its outcome.

Exit codes:
  0 - Execution succeeded
  1 - Execution failed (deadlock, thread panic)
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], cmd)
		},
	}
}

func runTrace(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

	s, err := scenario.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err.Error())
	}

	tr, err := runtime.Run(s)
	if err != nil {
		return formatter.Fail(ExitFailure, err.Error())
	}
	fp, err := tr.Fingerprint()
	if err != nil {
		return formatter.Fail(ExitCommandError, err.Error())
	}

	out := TraceOutput{Scenario: tr.Scenario, Fingerprint: fp, Events: tr.Events}

	writeErr := formatter.Success(out, func(w io.Writer) {
		fmt.Fprintf(w, "scenario: %s\n", out.Scenario)
		for _, e := range out.Events {
			fmt.Fprintf(w, "%4d  %-16s %-20s %s\n", e.Seq, e.Thread, e.Op, formatEventOutcome(e))
		}
		fmt.Fprintf(w, "fingerprint: %s\n", out.Fingerprint)
	})
	if writeErr != nil {
		return WrapExitError(ExitCommandError, "write output", writeErr)
	}
	return nil
}

func formatEventOutcome(e trace.Event) string {
	switch {
	case e.Canceled:
		return "canceled"
	case !e.OK:
		return "miss"
	case e.Value == "":
		return "ok"
	default:
		return fmt.Sprintf("ok value=%s", e.Value)
	}
}
