package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Evaluation is one ledger record.
type Evaluation struct {
	// ID is a UUIDv7 assigned by the writer.
	ID string

	// Seq orders records within the ledger.
	Seq int64

	Program      []byte
	ProgramID    string
	EnvVersion   string
	ManifestID   string
	Grants       []string
	StepBudget   int64
	MemoryBudget int64

	// Result is set for a successful evaluation, HaltCode for a halted one.
	Result      []byte
	ResultID    string
	HaltCode    string
	HaltMessage string
	HaltDetails map[string]string

	StepsUsed  int64
	MemoryUsed int64
}

// Halted reports whether the evaluation ended in a halt.
func (e Evaluation) Halted() bool {
	return e.HaltCode != ""
}

// marshalJSON encodes v as compact JSON with HTML escaping disabled.
// Map keys are sorted by encoding/json, so equal values store equal text.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

func marshalGrants(grants []string) (string, error) {
	if grants == nil {
		grants = []string{}
	}
	data, err := marshalJSON(grants)
	if err != nil {
		return "", fmt.Errorf("marshal grants: %w", err)
	}
	return data, nil
}

func marshalDetails(details map[string]string) (string, error) {
	if details == nil {
		details = map[string]string{}
	}
	data, err := marshalJSON(details)
	if err != nil {
		return "", fmt.Errorf("marshal halt details: %w", err)
	}
	return data, nil
}

func unmarshalGrants(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var grants []string
	if err := json.Unmarshal([]byte(data), &grants); err != nil {
		return nil, fmt.Errorf("unmarshal grants: %w", err)
	}
	return grants, nil
}

func unmarshalDetails(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var details map[string]string
	if err := json.Unmarshal([]byte(data), &details); err != nil {
		return nil, fmt.Errorf("unmarshal halt details: %w", err)
	}
	return details, nil
}

// nullBytes maps an empty blob to SQL NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
