package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/loom/internal/scenario"
)

// ValidationResult holds per-file validation outcomes.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Files  []FileResult `json:"files"`
	Errors int          `json:"errors"`
}

// FileResult is the outcome for a single scenario file.
type FileResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Validate scenario files against the schema",
		Long: `Validate scenario YAML files against the embedded CUE schema and the
per-operation argument rules, without executing anything.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	result := ValidationResult{Valid: true}
	for _, path := range paths {
		fr := FileResult{Path: path, Valid: true}
		if _, err := scenario.Load(path); err != nil {
			fr.Valid = false
			fr.Error = err.Error()
			result.Valid = false
			result.Errors++
		}
		result.Files = append(result.Files, fr)
	}

	err := formatter.Success(result, func(w io.Writer) {
		for _, fr := range result.Files {
			if fr.Valid {
				fmt.Fprintf(w, "ok   %s\n", fr.Path)
			} else {
				fmt.Fprintf(w, "FAIL %s\n     %s\n", fr.Path, fr.Error)
			}
		}
		fmt.Fprintf(w, "%d file(s), %d error(s)\n", len(result.Files), result.Errors)
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "write output", err)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario file(s)", result.Errors))
	}
	return nil
}
