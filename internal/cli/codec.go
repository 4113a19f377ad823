package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/smarm/internal/canonical"
)

// EncodeOptions holds flags for the encode command.
type EncodeOptions struct {
	*RootOptions
	Output string // write raw bytes here instead of printing hex
}

// CodecResult is the output of encode, decode and hash.
type CodecResult struct {
	Text string `json:"text,omitempty"`
	Hex  string `json:"hex,omitempty"`
	ID   string `json:"id"`
}

// NewEncodeCommand creates the encode command.
func NewEncodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EncodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "encode <file>",
		Short: "Encode text to canonical bytes",
		Long: `Encode a text program to its canonical binary form.

Several top-level forms are wrapped in one (begin ...) form, exactly as
eval does. The bytes are printed as hex, or written raw with --output.

Examples:
  smarm encode fact.scm
  smarm encode fact.scm -o fact.bin
  echo '(1 . 2)' | smarm encode -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical bytes to file")

	return cmd
}

func runEncode(opts *EncodeOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	data, err := readInput(cmd, path)
	if err != nil {
		return inputError(path, err)
	}
	program, err := loadProgram(data, InputText)
	if err != nil {
		_ = out.Error(ErrCodeParseFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to encode", err)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, program, 0644); err != nil {
			_ = out.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		out.VerboseLog("wrote %d bytes to %s", len(program), opts.Output)
	}

	result := CodecResult{Hex: hex.EncodeToString(program), ID: canonical.ProgramID(program)}
	if out.Format == "json" {
		return out.Success(result)
	}
	if opts.Output == "" {
		return out.Success(result.Hex)
	}
	return nil
}

// DecodeOptions holds flags for the decode command.
type DecodeOptions struct {
	*RootOptions
	Input string
}

// NewDecodeCommand creates the decode command.
func NewDecodeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DecodeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode canonical bytes to text",
		Long: `Decode canonical bytes and print the datum in text form.

Decoding is strict: trailing bytes, non-minimal lengths and unknown tags
are rejected.

Examples:
  smarm decode fact.bin
  echo 03 | smarm decode --input hex -`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", InputCanonical, "input encoding (canonical|hex)")

	return cmd
}

func runDecode(opts *DecodeOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	if opts.Input != InputCanonical && opts.Input != InputHex {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid input %q: must be canonical or hex", opts.Input))
	}

	data, err := readInput(cmd, path)
	if err != nil {
		return inputError(path, err)
	}
	raw, err := loadProgram(data, opts.Input)
	if err != nil {
		return inputError(path, err)
	}

	v, err := canonical.Decode(raw)
	if err != nil {
		_ = out.Error(ErrCodeParseFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to decode", err)
	}
	text, err := canonical.FormatText(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to format", err)
	}

	if out.Format == "json" {
		return out.Success(CodecResult{Text: text, Hex: hex.EncodeToString(raw), ID: canonical.ProgramID(raw)})
	}
	return out.Success(text)
}

// HashOptions holds flags for the hash command.
type HashOptions struct {
	*RootOptions
	Input  string
	Domain string
}

// Hash domains selectable with --domain.
var hashDomains = map[string]string{
	"program": canonical.DomainProgram,
	"result":  canonical.DomainResult,
}

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HashOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Print the content identity of a program or result",
		Long: `Print the domain-separated SHA-256 identity of canonical bytes.

The program identity is the program_id recorded in the ledger; the result
identity is the result_id.

Examples:
  smarm hash fact.scm
  smarm hash --input canonical --domain result value.bin`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Input, "input", InputText, "input encoding (text|canonical|hex)")
	cmd.Flags().StringVar(&opts.Domain, "domain", "program", "identity domain (program|result)")

	return cmd
}

func runHash(opts *HashOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	domain, ok := hashDomains[opts.Domain]
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid domain %q: must be program or result", opts.Domain))
	}
	if !slices.Contains(ValidInputs, opts.Input) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid input %q: must be one of %v", opts.Input, ValidInputs))
	}

	data, err := readInput(cmd, path)
	if err != nil {
		return inputError(path, err)
	}
	raw, err := loadProgram(data, opts.Input)
	if err != nil {
		return inputError(path, err)
	}

	id := canonical.ID(domain, raw)
	if out.Format == "json" {
		return out.Success(CodecResult{Hex: hex.EncodeToString(raw), ID: id})
	}
	return out.Success(id)
}
