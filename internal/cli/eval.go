package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/engine"
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/manifest"
	"github.com/roach88/smarm/internal/runtime"
	"github.com/roach88/smarm/internal/store"
)

// Default budgets for the eval command.
const (
	DefaultStepBudget   = 1_000_000
	DefaultMemoryBudget = 1_000_000
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Steps    int64
	Memory   int64
	Env      string
	Grants   []string
	Input    string
	Database string
	Workers  int

	// MaxSteps and MaxMemory cap the budgets any job may request (0 = no cap).
	MaxSteps  int64
	MaxMemory int64

	// IDGenerator allows overriding the record ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator engine.IDGenerator
}

// EvalResult is the reported outcome of one program.
type EvalResult struct {
	Name       string      `json:"name"`
	Result     string      `json:"result,omitempty"`
	ResultID   string      `json:"result_id,omitempty"`
	Halt       *halt.Error `json:"halt,omitempty"`
	Error      string      `json:"error,omitempty"`
	StepsUsed  int64       `json:"steps_used"`
	MemoryUsed int64       `json:"memory_used"`
	ProgramID  string      `json:"program_id,omitempty"`
	ManifestID string      `json:"manifest_id,omitempty"`
	EnvVersion string      `json:"env_version,omitempty"`
	RecordID   string      `json:"record_id,omitempty"`
	Seq        int64       `json:"seq,omitempty"`
}

// EvalReport holds every evaluation of one eval invocation.
type EvalReport struct {
	Evaluations []EvalResult `json:"evaluations"`
	Halted      int          `json:"halted"`
	Rejected    int          `json:"rejected"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <file>...",
		Short: "Evaluate programs under step and memory budgets",
		Long: `Evaluate one or more programs. Each file is an independent evaluation
with the same budgets, environment and grants. Use "-" to read stdin.

Programs run concurrently on a bounded worker pool; results are reported
in argument order. With --db every evaluation is recorded in the ledger.

Exit codes:
  0 - Every program produced a value
  1 - At least one program halted
  2 - Command error (unreadable input, invalid budget, unknown grant, etc.)

Examples:
  smarm eval fact.scm
  smarm eval --steps 1000 --memory 1000 loop.scm
  smarm eval --grant vector-mutation --db ./smarm.db a.scm b.scm
  echo '(+ 1 2)' | smarm eval -`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Steps, "steps", DefaultStepBudget, "step budget per program")
	cmd.Flags().Int64Var(&opts.Memory, "memory", DefaultMemoryBudget, "memory budget per program")
	cmd.Flags().StringVar(&opts.Env, "env", manifest.DefaultVersion, "environment version")
	cmd.Flags().StringSliceVar(&opts.Grants, "grant", nil, "grant a capability (repeatable)")
	cmd.Flags().StringVar(&opts.Input, "input", InputText, "input encoding (text|canonical|hex)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record evaluations in this SQLite ledger")
	cmd.Flags().IntVar(&opts.Workers, "workers", engine.DefaultWorkers, "concurrent evaluations")
	cmd.Flags().Int64Var(&opts.MaxSteps, "max-steps", 0, "reject programs whose step budget exceeds this (0 = no limit)")
	cmd.Flags().Int64Var(&opts.MaxMemory, "max-memory", 0, "reject programs whose memory budget exceeds this (0 = no limit)")

	return cmd
}

func runEval(opts *EvalOptions, paths []string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if !slices.Contains(ValidInputs, opts.Input) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid input %q: must be one of %v", opts.Input, ValidInputs))
	}

	jobs := make([]engine.Job, len(paths))
	for i, path := range paths {
		data, err := readInput(cmd, path)
		if err != nil {
			return inputError(path, err)
		}
		program, err := loadProgram(data, opts.Input)
		if err != nil {
			return inputError(path, err)
		}
		jobs[i] = engine.Job{
			Name: path,
			Request: runtime.Request{
				Program:      program,
				StepBudget:   opts.Steps,
				MemoryBudget: opts.Memory,
				EnvVersion:   opts.Env,
				Grants:       opts.Grants,
			},
		}
		out.VerboseLog("loaded %s (%d bytes, program %s)", path, len(program), canonical.ProgramID(program))
	}

	engOpts := []engine.EngineOption{
		engine.WithWorkers(opts.Workers),
		engine.WithQuota(opts.MaxSteps, opts.MaxMemory),
	}
	if opts.IDGenerator != nil {
		engOpts = append(engOpts, engine.WithIDGenerator(opts.IDGenerator))
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	var recorder engine.Recorder
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		last, err := st.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read ledger", err)
		}
		recorder = st
		engOpts = append(engOpts, engine.WithClock(engine.NewClockAt(last)))
	}

	outcomes, err := engine.New(recorder, engOpts...).Run(ctx, jobs)
	if err != nil {
		return WrapExitError(ExitCommandError, "evaluation interrupted", err)
	}

	report, err := buildEvalReport(outcomes)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to format result", err)
	}
	return outputEval(out, report, len(paths) > 1)
}

// signalContext derives a context from cmd that is cancelled on interrupt.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func buildEvalReport(outcomes []engine.Outcome) (EvalReport, error) {
	report := EvalReport{Evaluations: make([]EvalResult, 0, len(outcomes))}
	for _, o := range outcomes {
		r := EvalResult{Name: o.Name}
		if o.Err != nil {
			r.Error = o.Err.Error()
			report.Rejected++
			report.Evaluations = append(report.Evaluations, r)
			continue
		}

		resp := o.Response
		r.ResultID = resp.ResultID
		r.Halt = resp.Halt
		r.StepsUsed = resp.StepsUsed
		r.MemoryUsed = resp.MemoryUsed
		r.ProgramID = resp.ProgramID
		r.ManifestID = resp.ManifestID
		r.EnvVersion = resp.EnvVersion
		if o.Record != nil {
			r.RecordID = o.Record.ID
			r.Seq = o.Record.Seq
		}
		if resp.Halt != nil {
			report.Halted++
		} else {
			v, err := resp.Decode()
			if err != nil {
				return report, err
			}
			if r.Result, err = canonical.FormatText(v); err != nil {
				return report, err
			}
		}
		report.Evaluations = append(report.Evaluations, r)
	}
	return report, nil
}

// outcomeLine renders one evaluation for text output.
func (r EvalResult) outcomeLine() string {
	switch {
	case r.Error != "":
		return "error: " + r.Error
	case r.Halt != nil:
		return "halt " + r.Halt.Error()
	default:
		return r.Result
	}
}

func outputEval(out *OutputFormatter, report EvalReport, named bool) error {
	if out.Format == "json" {
		var err error
		switch {
		case report.Rejected > 0:
			err = out.Failure(ErrCodeInvalidRequest, fmt.Sprintf("%d program(s) rejected", report.Rejected), report)
		case report.Halted > 0:
			err = out.Failure(ErrCodeHalted, fmt.Sprintf("%d program(s) halted", report.Halted), report)
		default:
			err = out.Success(report)
		}
		if err != nil {
			return err
		}
	} else {
		for _, r := range report.Evaluations {
			line := r.outcomeLine()
			if named {
				line = r.Name + ": " + line
			}
			fmt.Fprintln(out.Writer, line)
			if r.Error == "" {
				out.VerboseLog("%s: steps=%d memory=%d program=%s", r.Name, r.StepsUsed, r.MemoryUsed, r.ProgramID)
			}
			if r.RecordID != "" {
				out.VerboseLog("%s: recorded %s seq=%d", r.Name, r.RecordID, r.Seq)
			}
		}
	}

	switch {
	case report.Rejected > 0:
		names := make([]string, 0, report.Rejected)
		for _, r := range report.Evaluations {
			if r.Error != "" {
				names = append(names, r.Name)
			}
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("rejected: %s", strings.Join(names, ", ")))
	case report.Halted > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("%d program(s) halted", report.Halted))
	}
	return nil
}
