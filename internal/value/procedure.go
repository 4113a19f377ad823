package value

import (
	"fmt"

	"github.com/roach88/smarm/internal/halt"
)

// Variadic marks an Arity with no upper bound.
const Variadic = -1

// Arity is the accepted positional argument count of a procedure.
type Arity struct {
	Min int
	Max int // Variadic for no limit
}

// Accepts reports whether n arguments satisfy a.
func (a Arity) Accepts(n int) bool {
	return n >= a.Min && (a.Max == Variadic || n <= a.Max)
}

// String renders a as "2", "1..3" or "1..".
func (a Arity) String() string {
	switch {
	case a.Max == a.Min:
		return fmt.Sprintf("%d", a.Min)
	case a.Max == Variadic:
		return fmt.Sprintf("%d..", a.Min)
	default:
		return fmt.Sprintf("%d..%d", a.Min, a.Max)
	}
}

// Check returns an ArityError halt for proc if n arguments are not accepted.
func (a Arity) Check(proc string, n int) error {
	if a.Accepts(n) {
		return nil
	}
	return halt.Arity(proc, "expected %s arguments, got %d", a, n).With("expected", a.String())
}

// Procedure is any applicable value.
type Procedure interface {
	Value
	Name() string
}

// Sizes are the declared allocation sizes charged to the memory budget.
type Sizes struct {
	Pair       int64
	Vector     int64
	Element    int64
	Cell       int64
	Closure    int64
	Frame      int64
	Binding    int64
	Sealed     int64
	SealerPair int64
	Bytes      int64
	Byte       int64
	Number     int64
	Word       int64
}

// ForVector returns the size of an n-element vector.
func (s *Sizes) ForVector(n int) int64 { return s.Vector + int64(n)*s.Element }

// ForBytes returns the size of an n-byte string.
func (s *Sizes) ForBytes(n int) int64 { return s.Bytes + int64(n)*s.Byte }

// ForFrame returns the size of a frame with n bindings.
func (s *Sizes) ForFrame(n int) int64 { return s.Frame + int64(n)*s.Binding }

// ForNumber returns the size of a numeric result.
func (s *Sizes) ForNumber(n *Number) int64 { return s.Number + n.Words()*s.Word }

// ForList returns the size of an n-pair list.
func (s *Sizes) ForList(n int) int64 { return int64(n) * s.Pair }

// Context is what a primitive may ask of the evaluation running it.
type Context interface {
	// Charge consumes n steps.
	Charge(n int64) error

	// Alloc charges n units to the memory budget.
	Alloc(n int64) error

	// Sizes returns the declared allocation sizes.
	Sizes() *Sizes

	// MaxLength returns the largest length a primitive may be asked to
	// build.
	MaxLength() int

	// Cells returns the evaluation's cell table.
	Cells() *CellTable

	// Apply calls proc with args, charging as an ordinary application.
	Apply(proc Value, args []Value) (Value, error)
}

// PrimitiveFunc implements a primitive. args already satisfy the arity.
type PrimitiveFunc func(ctx Context, args []Value) (Value, error)

// CostFunc computes the step cost of a primitive call from its arguments.
type CostFunc func(args []Value) int64

// Primitive is a procedure implemented by the host.
type Primitive struct {
	name  string
	arity Arity
	cost  CostFunc
	fn    PrimitiveFunc
}

func (*Primitive) value() {}

// NewPrimitive creates a primitive.
func NewPrimitive(name string, arity Arity, cost CostFunc, fn PrimitiveFunc) *Primitive {
	return &Primitive{name: name, arity: arity, cost: cost, fn: fn}
}

// Name returns the primitive's binding name.
func (p *Primitive) Name() string { return p.name }

// Arity returns the accepted argument counts.
func (p *Primitive) Arity() Arity { return p.arity }

// Cost returns the step cost of calling p with args.
func (p *Primitive) Cost(args []Value) int64 { return p.cost(args) }

// Call invokes the implementation without charging.
func (p *Primitive) Call(ctx Context, args []Value) (Value, error) {
	return p.fn(ctx, args)
}

// OptionalParam is a #:optional or #:key parameter with its default
// expression. Default is nil when none was written, meaning #f.
type OptionalParam struct {
	Name    Symbol
	Default Value
}

// Keyword returns the keyword symbol that names p at a call site.
func (p OptionalParam) Keyword() Symbol {
	return Symbol(KeywordPrefix + string(p.Name))
}

// Formals is a parsed parameter list.
type Formals struct {
	Required []Symbol
	Optional []OptionalParam
	Keys     []OptionalParam
	Rest     Symbol // "" when absent
}

// Names returns every bound name in frame order.
func (f *Formals) Names() []Symbol {
	names := make([]Symbol, 0, f.Size())
	names = append(names, f.Required...)
	for _, p := range f.Optional {
		names = append(names, p.Name)
	}
	for _, p := range f.Keys {
		names = append(names, p.Name)
	}
	if f.Rest != "" {
		names = append(names, f.Rest)
	}
	return names
}

// Size returns the number of bindings the formals introduce.
func (f *Formals) Size() int {
	n := len(f.Required) + len(f.Optional) + len(f.Keys)
	if f.Rest != "" {
		n++
	}
	return n
}

// Arity returns the positional arity implied by the formals.
func (f *Formals) Arity() Arity {
	if f.Rest != "" || len(f.Keys) > 0 {
		return Arity{Min: len(f.Required), Max: Variadic}
	}
	return Arity{Min: len(f.Required), Max: len(f.Required) + len(f.Optional)}
}

// Closure is a procedure defined by the program.
type Closure struct {
	name    Symbol
	formals *Formals
	body    []Value
	env     *Env
}

func (*Closure) value() {}

// NewClosure creates a closure over env. name may be empty.
func NewClosure(name Symbol, formals *Formals, body []Value, env *Env) *Closure {
	return &Closure{name: name, formals: formals, body: body, env: env}
}

// Name returns the closure's name, or "lambda" if anonymous.
func (c *Closure) Name() string {
	if c.name == "" {
		return "lambda"
	}
	return string(c.name)
}

// Formals returns the parameter list.
func (c *Closure) Formals() *Formals { return c.formals }

// Body returns the body forms.
func (c *Closure) Body() []Value { return c.body }

// Env returns the defining environment.
func (c *Closure) Env() *Env { return c.env }
