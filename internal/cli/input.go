package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/smarm/internal/canonical"
)

// Input encodings accepted by commands that read programs or data.
const (
	InputText      = "text"      // datum text, several forms become one (begin ...) program
	InputCanonical = "canonical" // raw canonical bytes
	InputHex       = "hex"       // canonical bytes as hex
)

// ValidInputs lists the accepted --input values.
var ValidInputs = []string{InputText, InputCanonical, InputHex}

// readInput reads path, or the command's stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// loadProgram converts input in the given encoding to canonical program
// bytes. Canonical input is passed through unchecked; the evaluator
// reports malformed bytes as a halt.
func loadProgram(data []byte, mode string) ([]byte, error) {
	switch mode {
	case InputText:
		forms, err := canonical.ParseProgram(string(data))
		if err != nil {
			return nil, err
		}
		if len(forms) == 0 {
			return nil, fmt.Errorf("program is empty")
		}
		return canonical.EncodeProgram(forms)
	case InputCanonical:
		return data, nil
	case InputHex:
		return hex.DecodeString(strings.TrimSpace(string(data)))
	default:
		return nil, fmt.Errorf("invalid input %q: must be one of %v", mode, ValidInputs)
	}
}

// inputError classifies a read or parse failure.
func inputError(path string, err error) *ExitError {
	if os.IsNotExist(err) {
		return WrapExitError(ExitCommandError, fmt.Sprintf("input not found: %s", path), err)
	}
	return WrapExitError(ExitCommandError, fmt.Sprintf("failed to load %s", path), err)
}
