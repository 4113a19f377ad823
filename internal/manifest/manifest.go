// Package manifest loads versioned initial-environment manifests.
//
// A manifest declares everything that makes an environment version
// reproducible: the nesting limit, allocation sizes, special-form costs and
// the primitive bindings with their cost functions and grant requirements.
// Manifests are CUE files validated against an embedded schema; the Go
// primitive implementations are checked against them when an environment
// is built.
//
// Manifest identity is the content hash of its canonical encoding, so two
// nodes agree on a version iff they agree on every execution-relevant byte.
// Docs are not part of the identity.
package manifest

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/smarm/internal/canonical"
	"github.com/roach88/smarm/internal/value"
)

// VersionPrefix begins every environment version identifier.
const VersionPrefix = "smarm/env/"

// DefaultVersion is the environment version used when none is requested.
const DefaultVersion = "smarm/env/v1"

// Cost units.
const (
	UnitNone     = "none"
	UnitArgs     = "args"
	UnitElements = "elements"
	UnitBytes    = "bytes"
	UnitWords    = "words"
	UnitCount    = "count"
)

//go:embed manifests/*.cue
var files embed.FS

// Manifest is one frozen environment version.
type Manifest struct {
	Version    string           `json:"version"`
	Limits     Limits           `json:"limits"`
	Sizes      Sizes            `json:"sizes"`
	Forms      map[string]int64 `json:"forms"`
	Primitives []Primitive      `json:"primitives"`

	id string
}

// Limits are structural evaluation limits.
type Limits struct {
	Depth int `json:"depth"`

	// Length bounds the element count of a vector or byte string built
	// from a requested length.
	Length int `json:"length"`
}

// Sizes are the declared allocation sizes.
type Sizes struct {
	Pair       int64 `json:"pair"`
	Vector     int64 `json:"vector"`
	Element    int64 `json:"element"`
	Cell       int64 `json:"cell"`
	Closure    int64 `json:"closure"`
	Frame      int64 `json:"frame"`
	Binding    int64 `json:"binding"`
	Sealed     int64 `json:"sealed"`
	SealerPair int64 `json:"sealer_pair"`
	Bytes      int64 `json:"bytes"`
	Byte       int64 `json:"byte"`
	Number     int64 `json:"number"`
	Word       int64 `json:"word"`
}

// Cost is a declared primitive cost: Base + Per × measure(Unit).
type Cost struct {
	Base int64  `json:"base"`
	Per  int64  `json:"per"`
	Unit string `json:"unit"`
}

// Primitive declares one binding of the initial environment.
type Primitive struct {
	Name  string `json:"name"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Cost  Cost   `json:"cost"`
	Grant string `json:"grant"`
	Doc   string `json:"doc"`
}

// ID returns the manifest's content hash.
func (m *Manifest) ID() string {
	return m.id
}

// Values converts the declared sizes for the evaluator.
func (s Sizes) Values() *value.Sizes {
	return &value.Sizes{
		Pair:       s.Pair,
		Vector:     s.Vector,
		Element:    s.Element,
		Cell:       s.Cell,
		Closure:    s.Closure,
		Frame:      s.Frame,
		Binding:    s.Binding,
		Sealed:     s.Sealed,
		SealerPair: s.SealerPair,
		Bytes:      s.Bytes,
		Byte:       s.Byte,
		Number:     s.Number,
		Word:       s.Word,
	}
}

// Grants returns the distinct grant names in sorted order.
func (m *Manifest) Grants() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range m.Primitives {
		if p.Grant != "" && !seen[p.Grant] {
			seen[p.Grant] = true
			out = append(out, p.Grant)
		}
	}
	sort.Strings(out)
	return out
}

// HasGrant reports whether name is a grant declared by m.
func (m *Manifest) HasGrant(name string) bool {
	for _, p := range m.Primitives {
		if p.Grant == name {
			return true
		}
	}
	return false
}

// Primitive returns the declaration for name.
func (m *Manifest) Primitive(name string) (Primitive, bool) {
	for _, p := range m.Primitives {
		if p.Name == name {
			return p, true
		}
	}
	return Primitive{}, false
}

var (
	cacheMu sync.Mutex
	cache   = make(map[string]*Manifest)
)

// Load returns the embedded manifest for version. Results are cached, so
// every caller in the process shares one immutable *Manifest per version.
func Load(version string) (*Manifest, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if m, ok := cache[version]; ok {
		return m, nil
	}
	name, ok := strings.CutPrefix(version, VersionPrefix)
	if !ok || name == "" || strings.ContainsAny(name, "/.") {
		return nil, &LoadError{Code: ErrCodeUnknownVersion, Message: fmt.Sprintf("unknown environment version %q", version)}
	}
	filename := path.Join("manifests", name+".cue")
	src, err := files.ReadFile(filename)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeUnknownVersion, Message: fmt.Sprintf("unknown environment version %q", version)}
	}
	m, err := Parse(filename, src)
	if err != nil {
		return nil, err
	}
	if m.Version != version {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("%s declares version %q", filename, m.Version)}
	}
	cache[version] = m
	return m, nil
}

// Versions lists the embedded environment versions.
func Versions() []string {
	entries, err := files.ReadDir("manifests")
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if name == "schema.cue" || !strings.HasSuffix(name, ".cue") {
			continue
		}
		out = append(out, VersionPrefix+strings.TrimSuffix(name, ".cue"))
	}
	sort.Strings(out)
	return out
}

// Parse compiles a manifest source and validates it against the schema.
func Parse(filename string, src []byte) (*Manifest, error) {
	schemaSrc, err := files.ReadFile("manifests/schema.cue")
	if err != nil {
		return nil, fmt.Errorf("reading manifest schema: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	inst := ctx.CompileBytes(src, cue.Filename(filename))
	if err := inst.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Manifest")).Unify(inst)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	m := &Manifest{}
	if err := unified.Decode(m); err != nil {
		return nil, formatCUEError(err)
	}
	if err := m.check(); err != nil {
		return nil, err
	}

	data, err := canonical.Encode(m.identity())
	if err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: fmt.Sprintf("manifest has no canonical form: %v", err)}
	}
	m.id = canonical.ID(canonical.DomainManifest, data)
	return m, nil
}

// check enforces rules the schema cannot express.
func (m *Manifest) check() error {
	seen := make(map[string]bool, len(m.Primitives))
	for _, p := range m.Primitives {
		if seen[p.Name] {
			return &LoadError{Code: ErrCodeInvalid, Field: "primitives", Message: fmt.Sprintf("duplicate primitive %q", p.Name)}
		}
		seen[p.Name] = true
		if err := canonical.CheckSymbol(p.Name); err != nil {
			return &LoadError{Code: ErrCodeInvalid, Field: "primitives", Message: fmt.Sprintf("primitive name %q: %v", p.Name, err)}
		}
		if p.Max != value.Variadic && p.Max < p.Min {
			return &LoadError{Code: ErrCodeInvalid, Field: "primitives", Message: fmt.Sprintf("primitive %q: max %d below min %d", p.Name, p.Max, p.Min)}
		}
	}
	return nil
}

// identity is the canonical value hashed into the manifest ID. Keys are
// emitted in sorted order and docs are left out.
func (m *Manifest) identity() value.Value {
	entry := func(k string, v int64) value.Value {
		return value.Cons(value.Symbol(k), value.Int(v))
	}

	sizes := m.Sizes
	sizeEntries := value.List(
		entry("binding", sizes.Binding),
		entry("byte", sizes.Byte),
		entry("bytes", sizes.Bytes),
		entry("cell", sizes.Cell),
		entry("closure", sizes.Closure),
		entry("element", sizes.Element),
		entry("frame", sizes.Frame),
		entry("number", sizes.Number),
		entry("pair", sizes.Pair),
		entry("sealed", sizes.Sealed),
		entry("sealer_pair", sizes.SealerPair),
		entry("vector", sizes.Vector),
		entry("word", sizes.Word),
	)

	formNames := make([]string, 0, len(m.Forms))
	for k := range m.Forms {
		formNames = append(formNames, k)
	}
	sort.Strings(formNames)
	forms := make([]value.Value, len(formNames))
	for i, k := range formNames {
		forms[i] = entry(k, m.Forms[k])
	}

	// Primitive order is part of the declaration, so it is kept.
	prims := make([]value.Value, len(m.Primitives))
	for i, p := range m.Primitives {
		grant := value.False
		if p.Grant != "" {
			grant = value.Bytes(p.Grant)
		}
		prims[i] = value.List(
			value.Symbol(p.Name),
			value.Int(int64(p.Min)),
			value.Int(int64(p.Max)),
			value.Int(p.Cost.Base),
			value.Int(p.Cost.Per),
			value.Bytes(p.Cost.Unit),
			grant,
		)
	}

	return value.List(
		value.Bytes(m.Version),
		value.List(
			entry("depth", int64(m.Limits.Depth)),
			entry("length", int64(m.Limits.Length)),
		),
		sizeEntries,
		value.List(forms...),
		value.List(prims...),
	)
}

// FormCost returns the declared dispatch cost of a special form or
// evaluator operation ("atom", "call", "seal", "unseal").
func (m *Manifest) FormCost(name string) int64 {
	return m.Forms[name]
}
