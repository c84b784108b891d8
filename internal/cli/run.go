package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/runtime"
	"github.com/roach88/loom/internal/scenario"
	"github.com/roach88/loom/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	DBPath string
}

// RunOutput summarizes a single scenario execution.
type RunOutput struct {
	Scenario    string `json:"scenario"`
	Events      int    `json:"events"`
	Fingerprint string `json:"fingerprint"`
	RunID       string `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Execute a scenario once and print its trace summary",
		Long: `Execute a scenario on the deterministic scheduler and print the
resulting trace fingerprint. With --db, the trace is also recorded as
the history of a new run in a SQLite store.

Exit codes:
  0 - Execution succeeded
  1 - Execution failed (deadlock, thread panic)
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "record the trace into a SQLite store at this path")

	return cmd
}

func runRun(rootOpts *RootOptions, opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

	s, err := scenario.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err.Error())
	}

	out := RunOutput{Scenario: s.Name}

	if opts.DBPath != "" {
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("open store: %v", err))
		}
		defer st.Close()

		runID, tr, err := runtime.RunRecorded(cmd.Context(), s, st)
		if err != nil {
			return formatter.Fail(ExitFailure, err.Error())
		}
		fp, err := tr.Fingerprint()
		if err != nil {
			return formatter.Fail(ExitCommandError, err.Error())
		}
		out.RunID = runID
		out.Events = len(tr.Events)
		out.Fingerprint = fp
	} else {
		tr, err := runtime.Run(s)
		if err != nil {
			return formatter.Fail(ExitFailure, err.Error())
		}
		fp, err := tr.Fingerprint()
		if err != nil {
			return formatter.Fail(ExitCommandError, err.Error())
		}
		out.Events = len(tr.Events)
		out.Fingerprint = fp
	}

	err = formatter.Success(out, func(w io.Writer) {
		fmt.Fprintf(w, "scenario:    %s\n", out.Scenario)
		fmt.Fprintf(w, "events:      %d\n", out.Events)
		fmt.Fprintf(w, "fingerprint: %s\n", out.Fingerprint)
		if out.RunID != "" {
			fmt.Fprintf(w, "run id:      %s\n", out.RunID)
		}
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}
	return nil
}
