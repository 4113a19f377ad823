package cli

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/store"
)

// LedgerOptions holds flags for the ledger command.
type LedgerOptions struct {
	*RootOptions
	Database string
	Program  string // optional - filter to one program ID
	ID       string // optional - show one record in full
}

// LedgerEntry is one ledger record as reported by the CLI.
type LedgerEntry struct {
	ID           string            `json:"id"`
	Seq          int64             `json:"seq"`
	ProgramID    string            `json:"program_id"`
	EnvVersion   string            `json:"env_version"`
	ManifestID   string            `json:"manifest_id"`
	Grants       []string          `json:"grants"`
	StepBudget   int64             `json:"step_budget"`
	MemoryBudget int64             `json:"memory_budget"`
	Program      string            `json:"program,omitempty"`
	Result       string            `json:"result,omitempty"`
	ResultID     string            `json:"result_id,omitempty"`
	HaltCode     string            `json:"halt_code,omitempty"`
	HaltMessage  string            `json:"halt_message,omitempty"`
	HaltDetails  map[string]string `json:"halt_details,omitempty"`
	StepsUsed    int64             `json:"steps_used"`
	MemoryUsed   int64             `json:"memory_used"`
}

// LedgerResult holds the ledger listing.
type LedgerResult struct {
	Entries []LedgerEntry `json:"entries"`
	Stats   LedgerStats   `json:"stats"`
}

// LedgerStats holds summary statistics for the whole ledger.
type LedgerStats struct {
	Total   int            `json:"total"`
	Results int            `json:"results"`
	Halts   map[string]int `json:"halts"`
	LastSeq int64          `json:"last_seq"`
}

// NewLedgerCommand creates the ledger command.
func NewLedgerCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LedgerOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recorded evaluations",
		Long: `List the evaluations recorded in a ledger, in seq order, with a
summary of outcomes.

The output includes:
- Entries: seq, record ID, program identity, outcome and usage
- Stats: totals by outcome across the whole ledger

With --id a single record is shown in full, including the program and
result in text form.

Examples:
  smarm ledger --db ./smarm.db
  smarm ledger --db ./smarm.db --program 3f2a...
  smarm ledger --db ./smarm.db --id 0190c6e2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLedger(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Program, "program", "", "filter to one program ID")
	cmd.Flags().StringVar(&opts.ID, "id", "", "show one record in full")

	return cmd
}

func runLedger(opts *LedgerOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.ID != "" {
		ev, err := st.ReadEvaluation(ctx, opts.ID)
		if errors.Is(err, store.ErrNotFound) {
			_ = out.Error(ErrCodeNotFound, fmt.Sprintf("no evaluation with id %s", opts.ID), nil)
			return WrapExitError(ExitCommandError, "record not found", err)
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read ledger", err)
		}
		entry := ledgerEntry(ev, true)
		if out.Format == "json" {
			return out.Success(entry)
		}
		writeLedgerRecord(out, entry)
		return nil
	}

	var records []store.Evaluation
	if opts.Program != "" {
		records, err = st.ListEvaluationsForProgram(ctx, opts.Program)
	} else {
		records, err = st.ListEvaluations(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ledger", err)
	}
	sum, err := st.Summarize(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to summarize ledger", err)
	}

	result := LedgerResult{
		Entries: make([]LedgerEntry, 0, len(records)),
		Stats: LedgerStats{
			Total:   sum.Total,
			Results: sum.Results,
			Halts:   sum.Halts,
			LastSeq: sum.LastSeq,
		},
	}
	for _, ev := range records {
		result.Entries = append(result.Entries, ledgerEntry(ev, false))
	}

	if out.Format == "json" {
		return out.Success(result)
	}
	return writeLedgerText(out, result)
}

// ledgerEntry converts a record. With full set, the program and result
// are rendered as text.
func ledgerEntry(ev store.Evaluation, full bool) LedgerEntry {
	e := LedgerEntry{
		ID:           ev.ID,
		Seq:          ev.Seq,
		ProgramID:    ev.ProgramID,
		EnvVersion:   ev.EnvVersion,
		ManifestID:   ev.ManifestID,
		Grants:       ev.Grants,
		StepBudget:   ev.StepBudget,
		MemoryBudget: ev.MemoryBudget,
		ResultID:     ev.ResultID,
		HaltCode:     ev.HaltCode,
		HaltMessage:  ev.HaltMessage,
		HaltDetails:  ev.HaltDetails,
		StepsUsed:    ev.StepsUsed,
		MemoryUsed:   ev.MemoryUsed,
	}
	if full {
		e.Program = textOf(ev.Program)
	}
	if !ev.Halted() {
		e.Result = textOf(ev.Result)
	}
	return e
}

// textOf renders canonical bytes, or a placeholder if they do not decode.
func textOf(data []byte) string {
	v, err := canonical.Decode(data)
	if err != nil {
		return fmt.Sprintf("<undecodable %d bytes>", len(data))
	}
	text, err := canonical.FormatText(v)
	if err != nil {
		return fmt.Sprintf("<unprintable %d bytes>", len(data))
	}
	return text
}

func (e LedgerEntry) outcome() string {
	if e.HaltCode != "" {
		return "halt " + e.HaltCode
	}
	return e.Result
}

func writeLedgerText(out *OutputFormatter, result LedgerResult) error {
	w := out.Writer
	if result.Stats.Total == 0 {
		fmt.Fprintln(w, "No evaluations found in database.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tID\tPROGRAM\tOUTCOME\tSTEPS\tMEMORY")
	for _, e := range result.Entries {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%d/%d\n",
			e.Seq, e.ID, shortID(e.ProgramID), e.outcome(),
			e.StepsUsed, e.StepBudget, e.MemoryUsed, e.MemoryBudget)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := result.Stats
	fmt.Fprintf(w, "\nLedger Summary: %d results, %d halts, %d total (last seq %d)\n",
		s.Results, s.Total-s.Results, s.Total, s.LastSeq)
	codes := make([]string, 0, len(s.Halts))
	for code := range s.Halts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s: %d\n", code, s.Halts[code])
	}
	return nil
}

func writeLedgerRecord(out *OutputFormatter, e LedgerEntry) {
	w := out.Writer
	fmt.Fprintf(w, "id:       %s\n", e.ID)
	fmt.Fprintf(w, "seq:      %d\n", e.Seq)
	fmt.Fprintf(w, "program:  %s\n", e.Program)
	fmt.Fprintf(w, "          %s\n", e.ProgramID)
	fmt.Fprintf(w, "env:      %s (%s)\n", e.EnvVersion, shortID(e.ManifestID))
	if len(e.Grants) > 0 {
		fmt.Fprintf(w, "grants:   %v\n", e.Grants)
	}
	fmt.Fprintf(w, "steps:    %d/%d\n", e.StepsUsed, e.StepBudget)
	fmt.Fprintf(w, "memory:   %d/%d\n", e.MemoryUsed, e.MemoryBudget)
	if e.HaltCode != "" {
		fmt.Fprintf(w, "halt:     %s: %s\n", e.HaltCode, e.HaltMessage)
		for _, k := range sortedKeys(e.HaltDetails) {
			fmt.Fprintf(w, "          %s=%s\n", k, e.HaltDetails[k])
		}
		return
	}
	fmt.Fprintf(w, "result:   %s\n", e.Result)
	fmt.Fprintf(w, "          %s\n", e.ResultID)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// shortID abbreviates a content hash for tables.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
