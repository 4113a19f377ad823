package eval

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// Special form keywords. They are reserved: no binding construct may
// rebind them.
const (
	symQuote   value.Symbol = "quote"
	symIf      value.Symbol = "if"
	symCond    value.Symbol = "cond"
	symElse    value.Symbol = "else"
	symBegin   value.Symbol = "begin"
	symLambda  value.Symbol = "lambda"
	symDefine  value.Symbol = "define"
	symLet     value.Symbol = "let"
	symLetStar value.Symbol = "let*"
	symLetrec  value.Symbol = "letrec"
	symLambdaX value.Symbol = "lambda*"
	symDefineX value.Symbol = "define*"
	symAnd     value.Symbol = "and"
	symOr      value.Symbol = "or"
)

// Keywords lists every reserved symbol.
var Keywords = []value.Symbol{
	symQuote, symIf, symCond, symElse, symBegin, symLambda, symDefine,
	symLet, symLetStar, symLetrec, symLambdaX, symDefineX, symAnd, symOr,
}

// IsKeyword reports whether sym is reserved.
func IsKeyword(sym value.Symbol) bool {
	for _, k := range Keywords {
		if k == sym {
			return true
		}
	}
	return false
}

type formFunc func(m *Machine, args []value.Value, env *value.Env) (result, error)

var specialForms map[value.Symbol]formFunc

func init() {
	specialForms = map[value.Symbol]formFunc{
		symQuote:   (*Machine).formQuote,
		symIf:      (*Machine).formIf,
		symCond:    (*Machine).formCond,
		symBegin:   (*Machine).formBegin,
		symLambda:  (*Machine).formLambda,
		symLambdaX: (*Machine).formLambdaStar,
		symDefine:  formMisplacedDefine,
		symDefineX: formMisplacedDefine,
		symLet:     (*Machine).formLet,
		symLetStar: (*Machine).formLetStar,
		symLetrec:  (*Machine).formLetrec,
		symAnd:     (*Machine).formAnd,
		symOr:      (*Machine).formOr,
	}
}

func formMisplacedDefine(*Machine, []value.Value, *value.Env) (result, error) {
	return result{}, halt.Malformed("define is only allowed at the top level of a program")
}

func (m *Machine) formQuote(args []value.Value, _ *value.Env) (result, error) {
	if len(args) != 1 {
		return result{}, halt.Malformed("quote: expected 1 operand, got %d", len(args))
	}
	return done(args[0]), nil
}

func (m *Machine) formIf(args []value.Value, env *value.Env) (result, error) {
	if len(args) != 2 && len(args) != 3 {
		return result{}, halt.Malformed("if: expected 2 or 3 operands, got %d", len(args))
	}
	test, err := m.Eval(args[0], env)
	if err != nil {
		return result{}, err
	}
	if value.Truthy(test) {
		return continueWith(args[1], env), nil
	}
	if len(args) == 3 {
		return continueWith(args[2], env), nil
	}
	return done(value.Unit), nil
}

func (m *Machine) formCond(args []value.Value, env *value.Env) (result, error) {
	clauses := make([][]value.Value, len(args))
	for i, c := range args {
		clause, ok := value.ListToSlice(c)
		if !ok || len(clause) == 0 {
			return result{}, halt.Malformed("cond: clause %d is not a non-empty list", i+1)
		}
		if clause[0] == symElse && (i != len(args)-1 || len(clause) < 2) {
			return result{}, halt.Malformed("cond: else must be the last clause and have a body")
		}
		clauses[i] = clause
	}
	for _, clause := range clauses {
		if clause[0] == symElse {
			return m.body(clause[1:], env)
		}
		test, err := m.Eval(clause[0], env)
		if err != nil {
			return result{}, err
		}
		if !value.Truthy(test) {
			continue
		}
		if len(clause) == 1 {
			return done(test), nil
		}
		return m.body(clause[1:], env)
	}
	return done(value.Unit), nil
}

func (m *Machine) formBegin(args []value.Value, env *value.Env) (result, error) {
	return m.body(args, env)
}

func (m *Machine) formAnd(args []value.Value, env *value.Env) (result, error) {
	if len(args) == 0 {
		return done(value.True), nil
	}
	for _, a := range args[:len(args)-1] {
		v, err := m.Eval(a, env)
		if err != nil {
			return result{}, err
		}
		if !value.Truthy(v) {
			return done(v), nil
		}
	}
	return continueWith(args[len(args)-1], env), nil
}

func (m *Machine) formOr(args []value.Value, env *value.Env) (result, error) {
	if len(args) == 0 {
		return done(value.False), nil
	}
	for _, a := range args[:len(args)-1] {
		v, err := m.Eval(a, env)
		if err != nil {
			return result{}, err
		}
		if value.Truthy(v) {
			return done(v), nil
		}
	}
	return continueWith(args[len(args)-1], env), nil
}

func (m *Machine) formLambda(args []value.Value, env *value.Env) (result, error) {
	if len(args) < 2 {
		return result{}, halt.Malformed("lambda: expected formals and a body")
	}
	formals, err := parseFormals(args[0])
	if err != nil {
		return result{}, err
	}
	c, err := m.closure("", formals, args[1:], env)
	if err != nil {
		return result{}, err
	}
	return done(c), nil
}

func (m *Machine) formLambdaStar(args []value.Value, env *value.Env) (result, error) {
	if len(args) < 2 {
		return result{}, halt.Malformed("lambda*: expected formals and a body")
	}
	formals, err := parseStarFormals(args[0])
	if err != nil {
		return result{}, err
	}
	c, err := m.closure("", formals, args[1:], env)
	if err != nil {
		return result{}, err
	}
	return done(c), nil
}

func (m *Machine) closure(name value.Symbol, formals *value.Formals, body []value.Value, env *value.Env) (*value.Closure, error) {
	if err := m.budget.Alloc(m.sizes.Closure); err != nil {
		return nil, err
	}
	return value.NewClosure(name, formals, body, env), nil
}

// binding is one parsed (name init) pair.
type binding struct {
	name value.Symbol
	init value.Value
}

func parseBindings(form string, list value.Value) ([]binding, error) {
	items, ok := value.ListToSlice(list)
	if !ok {
		return nil, halt.Malformed("%s: bindings must be a list", form)
	}
	out := make([]binding, len(items))
	for i, item := range items {
		pair, ok := value.ListToSlice(item)
		if !ok || len(pair) != 2 {
			return nil, halt.Malformed("%s: binding %d must be (name expr)", form, i+1)
		}
		name, err := bindableName(form, pair[0])
		if err != nil {
			return nil, err
		}
		out[i] = binding{name: name, init: pair[1]}
	}
	return out, nil
}

func bindableName(form string, v value.Value) (value.Symbol, error) {
	sym, ok := v.(value.Symbol)
	if !ok {
		return "", halt.Malformed("%s: cannot bind %s", form, value.TypeName(v))
	}
	if sym.IsKeyword() || IsKeyword(sym) {
		return "", halt.Malformed("%s: cannot bind reserved symbol %s", form, sym)
	}
	return sym, nil
}

func checkDistinct(form string, names []value.Symbol) error {
	seen := make(map[value.Symbol]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return halt.Malformed("%s: duplicate name %s", form, n)
		}
		seen[n] = true
	}
	return nil
}

func (m *Machine) formLet(args []value.Value, env *value.Env) (result, error) {
	if len(args) >= 1 {
		if name, ok := args[0].(value.Symbol); ok {
			return m.namedLet(name, args[1:], env)
		}
	}
	if len(args) < 2 {
		return result{}, halt.Malformed("let: expected bindings and a body")
	}
	bindings, err := parseBindings("let", args[0])
	if err != nil {
		return result{}, err
	}
	names := make([]value.Symbol, len(bindings))
	for i, b := range bindings {
		names[i] = b.name
	}
	if err := checkDistinct("let", names); err != nil {
		return result{}, err
	}
	vals := make([]value.Value, len(bindings))
	for i, b := range bindings {
		if vals[i], err = m.Eval(b.init, env); err != nil {
			return result{}, err
		}
	}
	frame, err := m.extend(env, names, vals)
	if err != nil {
		return result{}, err
	}
	return m.body(args[1:], frame)
}

// namedLet binds name to a procedure over the loop variables in a frame of
// its own and applies it to the initial values.
func (m *Machine) namedLet(name value.Symbol, args []value.Value, env *value.Env) (result, error) {
	if len(args) < 2 {
		return result{}, halt.Malformed("let: expected name, bindings and a body")
	}
	if _, err := bindableName("let", name); err != nil {
		return result{}, err
	}
	bindings, err := parseBindings("let", args[0])
	if err != nil {
		return result{}, err
	}
	formals := &value.Formals{Required: make([]value.Symbol, len(bindings))}
	for i, b := range bindings {
		formals.Required[i] = b.name
	}
	if err := checkDistinct("let", formals.Required); err != nil {
		return result{}, err
	}

	vals := make([]value.Value, len(bindings))
	for i, b := range bindings {
		if vals[i], err = m.Eval(b.init, env); err != nil {
			return result{}, err
		}
	}

	if err := m.budget.Alloc(m.sizes.ForFrame(1)); err != nil {
		return result{}, err
	}
	loopEnv, slots := env.ExtendRecursive([]value.Symbol{name})
	loop, err := m.closure(name, formals, args[1:], loopEnv)
	if err != nil {
		return result{}, err
	}
	slots[0].Init(loop)
	return m.apply(loop, vals)
}

func (m *Machine) formLetStar(args []value.Value, env *value.Env) (result, error) {
	if len(args) < 2 {
		return result{}, halt.Malformed("let*: expected bindings and a body")
	}
	bindings, err := parseBindings("let*", args[0])
	if err != nil {
		return result{}, err
	}
	for _, b := range bindings {
		v, err := m.Eval(b.init, env)
		if err != nil {
			return result{}, err
		}
		if env, err = m.extend(env, []value.Symbol{b.name}, []value.Value{v}); err != nil {
			return result{}, err
		}
	}
	return m.body(args[1:], env)
}

// formLetrec initializes bindings in declared order. Reading a binding
// before its initializer has completed is an UnboundVariable halt.
func (m *Machine) formLetrec(args []value.Value, env *value.Env) (result, error) {
	if len(args) < 2 {
		return result{}, halt.Malformed("letrec: expected bindings and a body")
	}
	bindings, err := parseBindings("letrec", args[0])
	if err != nil {
		return result{}, err
	}
	names := make([]value.Symbol, len(bindings))
	for i, b := range bindings {
		names[i] = b.name
	}
	if err := checkDistinct("letrec", names); err != nil {
		return result{}, err
	}
	if err := m.budget.Alloc(m.sizes.ForFrame(len(names))); err != nil {
		return result{}, err
	}
	frame, slots := env.ExtendRecursive(names)
	for i, b := range bindings {
		v, err := m.Eval(b.init, frame)
		if err != nil {
			return result{}, err
		}
		slots[i].Init(v)
	}
	return m.body(args[1:], frame)
}

// extend allocates and returns a plain child frame.
func (m *Machine) extend(env *value.Env, names []value.Symbol, vals []value.Value) (*value.Env, error) {
	if err := m.budget.Alloc(m.sizes.ForFrame(len(names))); err != nil {
		return nil, err
	}
	return env.Extend(names, vals), nil
}
