package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/smarm/internal/engine"
	"github.com/roach88/smarm/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Program  string // optional - replay one program's records only
	After    int64  // optional - replay records after this seq only
	Workers  int
}

// ReplayMismatch is one record that did not reproduce.
type ReplayMismatch struct {
	ID       string `json:"id"`
	Seq      int64  `json:"seq"`
	Reason   string `json:"reason"`
	Recorded string `json:"recorded"`
	Replayed string `json:"replayed"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Total         int              `json:"total"`
	Reproduced    int              `json:"reproduced"`
	Mismatches    []ReplayMismatch `json:"mismatches"`
	Deterministic bool             `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay the ledger and verify determinism",
		Long: `Re-evaluate recorded evaluations and verify that each one reproduces.

A record reproduces when the same request gives the same manifest, the
same result bytes or halt code, and the same step and memory usage.

Exit codes:
  0 - Every record reproduced
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  smarm replay --db ./smarm.db
  smarm replay --db ./smarm.db --after 120
  smarm replay --db ./smarm.db --program 3f2a... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Program, "program", "", "replay records of one program ID only")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "replay records with seq greater than this")
	cmd.Flags().IntVar(&opts.Workers, "workers", engine.DefaultWorkers, "concurrent evaluations")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx, stop := signalContext(cmd)
	defer stop()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var records []store.Evaluation
	switch {
	case opts.Program != "":
		records, err = st.ListEvaluationsForProgram(ctx, opts.Program)
	default:
		records, err = st.ListEvaluationsAfter(ctx, opts.After)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}
	if opts.Program != "" && opts.After > 0 {
		kept := records[:0]
		for _, ev := range records {
			if ev.Seq > opts.After {
				kept = append(kept, ev)
			}
		}
		records = kept
	}

	report, err := engine.New(nil, engine.WithWorkers(opts.Workers)).Replay(ctx, records)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay interrupted", err)
	}

	result := ReplayResult{
		Total:         report.Total,
		Reproduced:    report.Reproduced,
		Mismatches:    make([]ReplayMismatch, 0, len(report.Mismatches)),
		Deterministic: report.Deterministic(),
	}
	for _, m := range report.Mismatches {
		result.Mismatches = append(result.Mismatches, ReplayMismatch(m))
	}

	if out.Format == "json" {
		if result.Deterministic {
			err = out.Success(result)
		} else {
			err = out.Failure(ErrCodeNotReproduced, fmt.Sprintf("%d record(s) did not reproduce", len(result.Mismatches)), result)
		}
		if err != nil {
			return err
		}
	} else {
		outputReplayText(out, result)
	}

	if !result.Deterministic {
		return WrapExitError(ExitFailure, "replay found differences", report.Err())
	}
	return nil
}

func outputReplayText(out *OutputFormatter, result ReplayResult) {
	w := out.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No evaluations found in database.")
		return
	}

	for _, m := range result.Mismatches {
		fmt.Fprintf(w, "✗ %s (seq %d): %s\n", m.ID, m.Seq, m.Reason)
		fmt.Fprintf(w, "  recorded: %s\n", m.Recorded)
		fmt.Fprintf(w, "  replayed: %s\n", m.Replayed)
	}

	fmt.Fprintf(w, "Replay Summary: %d reproduced, %d differed, %d total\n",
		result.Reproduced, len(result.Mismatches), result.Total)
	if result.Deterministic {
		fmt.Fprintln(w, "✓ All evaluations are deterministic")
	}
}

// openExisting opens a ledger that must already exist; store.Open would
// otherwise create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
