package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/history"
	"github.com/roach88/loom/internal/runtime"
	"github.com/roach88/loom/internal/scenario"
	"github.com/roach88/loom/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	DBPath   string
	RunID    string
	PageSize int
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <scenario-file>",
		Short: "Verify that replaying a scenario reproduces the same trace",
		Long: `Execute a scenario twice and compare canonical trace fingerprints.
With --db and --run, the first trace is instead read back from a
recorded run through the paginated history iterator, verifying that a
fresh execution still matches what was recorded.

Exit codes:
  0 - Replay deterministic
  1 - Fingerprints diverge
  2 - Command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "SQLite store holding the recorded run")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "recorded run ID to replay against")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", history.DefaultPageSize, "history page size when reading a recorded run")

	return cmd
}

func runReplay(rootOpts *RootOptions, opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout(), Verbose: rootOpts.Verbose}

	if (opts.DBPath == "") != (opts.RunID == "") {
		return formatter.Fail(ExitCommandError, "--db and --run must be used together")
	}

	s, err := scenario.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, err.Error())
	}

	var result runtime.Result
	if opts.DBPath != "" {
		st, err := store.Open(opts.DBPath)
		if err != nil {
			return formatter.Fail(ExitCommandError, fmt.Sprintf("open store: %v", err))
		}
		defer st.Close()

		result, err = runtime.VerifyRecorded(cmd.Context(), s, st, opts.RunID, opts.PageSize)
		if err != nil {
			return formatter.Fail(ExitCommandError, err.Error())
		}
	} else {
		result, err = runtime.Verify(s)
		if err != nil {
			return formatter.Fail(ExitFailure, err.Error())
		}
	}

	writeErr := formatter.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "scenario: %s\n", result.Scenario)
		fmt.Fprintf(w, "events:   %d\n", result.Events)
		fmt.Fprintf(w, "first:    %s\n", result.FirstRun)
		fmt.Fprintf(w, "second:   %s\n", result.SecondRun)
		if result.Deterministic {
			fmt.Fprintln(w, "replay deterministic")
		} else {
			fmt.Fprintln(w, "REPLAY DIVERGED")
		}
	})
	if writeErr != nil {
		return WrapExitError(ExitCommandError, "write output", writeErr)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, fmt.Sprintf("replay diverged for scenario %q", result.Scenario))
	}
	return nil
}
