// Package eval implements the metered Smarm evaluator.
//
// A Machine evaluates one program against one Budget. Evaluation is strict,
// depth-first and single-threaded; calls in tail position run in constant Go
// stack. Every step is charged before it is taken, so a program that halts
// for steps has performed exactly the work it paid for.
//
// The evaluator performs no I/O and does not log: its only effects are the
// returned value, mutation of cells it created, and the budget counters.
//
// Authority comes only from lexical scope. There is no set! and no call/cc;
// define is accepted only at the top level of a program, where it builds
// the program's own recursive frame.
package eval

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/manifest"
	"github.com/roach88/smarm/internal/value"
)

// Machine is the evaluator state for one top-level evaluation.
// A Machine is not safe for concurrent use.
type Machine struct {
	budget   *Budget
	cells    *value.CellTable
	sizes    *value.Sizes
	costs    map[value.Symbol]int64
	maxDepth int
	maxLen   int
	depth    int
}

// Operation costs declared alongside the special forms.
const (
	costAtom   = "atom"
	costCall   = "call"
	costSeal   = "seal"
	costUnseal = "unseal"
)

// New creates a machine charging costs declared by m against budget.
func New(m *manifest.Manifest, budget *Budget) *Machine {
	costs := make(map[value.Symbol]int64, len(m.Forms))
	for name, c := range m.Forms {
		costs[value.Symbol(name)] = c
	}
	return &Machine{
		budget:   budget,
		cells:    value.NewCellTable(),
		sizes:    m.Sizes.Values(),
		costs:    costs,
		maxDepth: m.Limits.Depth,
		maxLen:   m.Limits.Length,
	}
}

// Budget returns the machine's budget.
func (m *Machine) Budget() *Budget { return m.budget }

// Charge implements value.Context.
func (m *Machine) Charge(n int64) error { return m.budget.Charge(n) }

// Alloc implements value.Context.
func (m *Machine) Alloc(n int64) error { return m.budget.Alloc(n) }

// Sizes implements value.Context.
func (m *Machine) Sizes() *value.Sizes { return m.sizes }

// MaxLength implements value.Context.
func (m *Machine) MaxLength() int { return m.maxLen }

// Cells implements value.Context.
func (m *Machine) Cells() *value.CellTable { return m.cells }

func (m *Machine) chargeForm(name value.Symbol) error {
	return m.budget.Charge(m.costs[name])
}

// Apply implements value.Context: it calls proc with already evaluated
// arguments, charging exactly as an application in the program would.
func (m *Machine) Apply(proc value.Value, args []value.Value) (value.Value, error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave()

	r, err := m.apply(proc, args)
	if err != nil {
		return nil, err
	}
	if !r.tail {
		return r.val, nil
	}
	return m.evalTail(r.expr, r.env)
}

func (m *Machine) enter() error {
	if m.depth >= m.maxDepth {
		return halt.Exhausted("depth", int64(m.maxDepth), int64(m.maxDepth))
	}
	m.depth++
	return nil
}

func (m *Machine) leave() {
	m.depth--
}

// Eval evaluates expr in env.
func (m *Machine) Eval(expr value.Value, env *value.Env) (value.Value, error) {
	if err := m.enter(); err != nil {
		return nil, err
	}
	defer m.leave()
	return m.evalTail(expr, env)
}

// result is the outcome of one reduction: either a final value, or an
// expression to continue with in tail position.
type result struct {
	val  value.Value
	expr value.Value
	env  *value.Env
	tail bool
}

func done(v value.Value) result {
	return result{val: v}
}

func continueWith(expr value.Value, env *value.Env) result {
	return result{expr: expr, env: env, tail: true}
}

// evalTail runs the reduction loop at the current depth.
func (m *Machine) evalTail(x value.Value, env *value.Env) (value.Value, error) {
	for {
		var r result
		var err error
		switch v := x.(type) {
		case value.Symbol:
			if err := m.chargeForm(costAtom); err != nil {
				return nil, err
			}
			if v.IsKeyword() {
				return v, nil
			}
			return env.Lookup(v)
		case value.Null:
			return nil, halt.Malformed("empty application ()")
		case *value.Pair:
			r, err = m.reduce(v, env)
		default:
			if err := m.chargeForm(costAtom); err != nil {
				return nil, err
			}
			return x, nil
		}
		if err != nil {
			return nil, err
		}
		if !r.tail {
			return r.val, nil
		}
		x, env = r.expr, r.env
	}
}

// reduce dispatches a compound form.
func (m *Machine) reduce(form *value.Pair, env *value.Env) (result, error) {
	args, ok := value.ListToSlice(form.Cdr())
	if !ok {
		return result{}, halt.Malformed("improper form")
	}
	if sym, ok := form.Car().(value.Symbol); ok {
		if special, ok := specialForms[sym]; ok {
			if err := m.chargeForm(sym); err != nil {
				return result{}, err
			}
			return special(m, args, env)
		}
	}
	return m.application(form.Car(), args, env)
}

// application evaluates operator and operands left to right, then applies.
// An operator written as a symbol is resolved as part of dispatch and is
// not charged as a separate variable reference.
func (m *Machine) application(op value.Value, operands []value.Value, env *value.Env) (result, error) {
	var proc value.Value
	var err error
	if sym, ok := op.(value.Symbol); ok && !sym.IsKeyword() {
		proc, err = env.Lookup(sym)
	} else {
		proc, err = m.Eval(op, env)
	}
	if err != nil {
		return result{}, err
	}

	args := make([]value.Value, len(operands))
	for i, operand := range operands {
		if args[i], err = m.Eval(operand, env); err != nil {
			return result{}, err
		}
	}
	return m.apply(proc, args)
}

// apply invokes an evaluated procedure. Closure bodies are returned for
// tail evaluation.
func (m *Machine) apply(proc value.Value, args []value.Value) (result, error) {
	switch p := proc.(type) {
	case *value.Primitive:
		if err := p.Arity().Check(p.Name(), len(args)); err != nil {
			return result{}, err
		}
		if err := m.budget.Charge(p.Cost(args)); err != nil {
			return result{}, err
		}
		v, err := p.Call(m, args)
		if err != nil {
			return result{}, err
		}
		return done(v), nil
	case *value.Closure:
		if err := m.chargeForm(costCall); err != nil {
			return result{}, err
		}
		frame, err := m.bind(p, args)
		if err != nil {
			return result{}, err
		}
		return m.body(p.Body(), frame)
	case *value.Sealer:
		if err := (value.Arity{Min: 1, Max: 1}).Check(p.Name(), len(args)); err != nil {
			return result{}, err
		}
		if err := m.chargeForm(costSeal); err != nil {
			return result{}, err
		}
		if err := m.budget.Alloc(m.sizes.Sealed); err != nil {
			return result{}, err
		}
		return done(p.Seal(args[0])), nil
	case *value.Unsealer:
		if err := (value.Arity{Min: 1, Max: 1}).Check(p.Name(), len(args)); err != nil {
			return result{}, err
		}
		if err := m.chargeForm(costUnseal); err != nil {
			return result{}, err
		}
		v, err := p.Unseal(args[0])
		if err != nil {
			return result{}, err
		}
		return done(v), nil
	default:
		return result{}, halt.Type("not a procedure: %s", value.TypeName(proc))
	}
}

// body evaluates all but the last form and continues with the last.
func (m *Machine) body(forms []value.Value, env *value.Env) (result, error) {
	if len(forms) == 0 {
		return done(value.Unit), nil
	}
	for _, f := range forms[:len(forms)-1] {
		if _, err := m.Eval(f, env); err != nil {
			return result{}, err
		}
	}
	return continueWith(forms[len(forms)-1], env), nil
}
