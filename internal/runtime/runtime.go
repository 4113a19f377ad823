// Package runtime is the evaluation entry point.
//
// Evaluate takes canonical program bytes, two budgets and an environment
// version, and returns either canonical result bytes or a halt. Everything
// that identifies an evaluation (program, manifest and result hashes,
// budget usage) is reported alongside, so callers can sign, record and
// replay evaluations without reaching into the evaluator.
//
// Evaluate is safe for concurrent use. Each call owns its budget, machine
// and cell table; the root environments it shares are immutable.
package runtime

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strings"
	"sync"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/eval"
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/manifest"
	"github.com/roach88/smarm/internal/stdenv"
	"github.com/roach88/smarm/internal/value"
)

// Request is one top-level evaluation.
type Request struct {
	// Program is the canonical encoding of the program datum.
	Program []byte `json:"program"`

	// StepBudget and MemoryBudget must both be positive.
	StepBudget   int64 `json:"step_budget"`
	MemoryBudget int64 `json:"memory_budget"`

	// EnvVersion selects the initial environment; empty means
	// manifest.DefaultVersion.
	EnvVersion string `json:"env_version"`

	// Grants enables primitives that require them.
	Grants []string `json:"grants,omitempty"`
}

// Response is the outcome of one evaluation. Exactly one of Result and
// Halt is set.
type Response struct {
	Result     []byte      `json:"result,omitempty"`
	ResultID   string      `json:"result_id,omitempty"`
	Halt       *halt.Error `json:"halt,omitempty"`
	StepsUsed  int64       `json:"steps_used"`
	MemoryUsed int64       `json:"memory_used"`
	ProgramID  string      `json:"program_id"`
	ManifestID string      `json:"manifest_id"`
	EnvVersion string      `json:"env_version"`
}

// HaltCode returns the halt code, or "" for a successful evaluation.
func (r *Response) HaltCode() halt.Code {
	if r.Halt == nil {
		return ""
	}
	return r.Halt.Code
}

// Same reports whether r and other describe the same outcome of the same
// evaluation: identical program and manifest, identical result bytes or
// halt (code, message and details), and identical budget usage.
func (r *Response) Same(other *Response) bool {
	return r.ProgramID == other.ProgramID &&
		r.ManifestID == other.ManifestID &&
		string(r.Result) == string(other.Result) &&
		sameHalt(r.Halt, other.Halt) &&
		r.StepsUsed == other.StepsUsed &&
		r.MemoryUsed == other.MemoryUsed
}

func sameHalt(a, b *halt.Error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Code == b.Code &&
		a.Message == b.Message &&
		maps.Equal(a.Details, b.Details)
}

// ErrInvalidRequest is returned (wrapped) for requests that cannot be
// evaluated at all.
var ErrInvalidRequest = errors.New("invalid request")

// Evaluate runs one request.
//
// An invalid request (non-positive budget, unknown environment version or
// grant) returns an error. Every other outcome, including undecodable
// program bytes, is a Response.
func Evaluate(req Request) (*Response, error) {
	if req.StepBudget <= 0 || req.MemoryBudget <= 0 {
		return nil, fmt.Errorf("%w: budgets must be positive (steps=%d, memory=%d)",
			ErrInvalidRequest, req.StepBudget, req.MemoryBudget)
	}
	version := req.EnvVersion
	if version == "" {
		version = manifest.DefaultVersion
	}
	m, err := manifest.Load(version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	root, err := rootEnv(m, req.Grants)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	resp := &Response{
		ProgramID:  canonical.ProgramID(req.Program),
		ManifestID: m.ID(),
		EnvVersion: version,
	}

	program, err := canonical.Decode(req.Program)
	if err != nil {
		return resp.halted(err)
	}

	budget := eval.NewBudget(req.StepBudget, req.MemoryBudget)
	v, err := eval.New(m, budget).EvalProgram(program, root)
	var result []byte
	if err == nil {
		// The encoded result is an allocation like any other: one memory
		// unit per byte.
		result, err = canonical.EncodeMetered(v, budget.Alloc)
	}
	resp.StepsUsed = budget.Steps()
	resp.MemoryUsed = budget.Memory()
	if err != nil {
		return resp.halted(err)
	}
	resp.Result = result
	resp.ResultID = canonical.ResultID(result)
	return resp, nil
}

// halted records err as the halt of r. Errors that are not halts are
// internal failures and are returned as such.
func (r *Response) halted(err error) (*Response, error) {
	var he *halt.Error
	if !errors.As(err, &he) {
		return nil, fmt.Errorf("evaluating %s: %w", r.ProgramID, err)
	}
	r.Halt = he
	return r, nil
}

// Decode returns the result value of a successful response.
func (r *Response) Decode() (value.Value, error) {
	if r.Halt != nil {
		return nil, r.Halt
	}
	return canonical.Decode(r.Result)
}

var (
	rootsMu sync.Mutex
	roots   = make(map[string]*value.Env)
)

// rootEnv returns the shared root frame for m and grants, building it on
// first use. The grant list is order and duplicate insensitive.
func rootEnv(m *manifest.Manifest, grants []string) (*value.Env, error) {
	key := m.Version + "\x00" + strings.Join(normalizeGrants(grants), ",")

	rootsMu.Lock()
	defer rootsMu.Unlock()
	if env, ok := roots[key]; ok {
		return env, nil
	}
	env, err := stdenv.Build(m, grants)
	if err != nil {
		return nil, err
	}
	roots[key] = env
	return env, nil
}

func normalizeGrants(grants []string) []string {
	out := append([]string(nil), grants...)
	sort.Strings(out)
	n := 0
	for i, g := range out {
		if i == 0 || g != out[n-1] {
			out[n] = g
			n++
		}
	}
	return out[:n]
}
