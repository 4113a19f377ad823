package eval

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// definition is one top-level define or define*.
type definition struct {
	form value.Symbol
	name value.Symbol
	init func(m *Machine, frame *value.Env) (value.Value, error)
}

// EvalProgram evaluates a whole program against root.
//
// A program is one datum. If it is a (begin form...) its forms are the
// program's top level; otherwise the datum is the only top-level form. The
// names defined at top level are collected before evaluation and bound in
// one recursive frame, initialized in program order, so top-level
// procedures may refer to each other. The program's value is the value of
// its last form.
func (m *Machine) EvalProgram(program value.Value, root *value.Env) (value.Value, error) {
	forms := []value.Value{program}
	if p, ok := program.(*value.Pair); ok && p.Car() == symBegin {
		items, ok := value.ListToSlice(p.Cdr())
		if !ok {
			return nil, halt.Malformed("improper form")
		}
		if err := m.chargeForm(symBegin); err != nil {
			return nil, err
		}
		forms = items
	}

	defs := make([]*definition, len(forms))
	var names []value.Symbol
	for i, f := range forms {
		d, err := parseDefinition(f)
		if err != nil {
			return nil, err
		}
		if d != nil {
			defs[i] = d
			names = append(names, d.name)
		}
	}
	if err := checkDistinct("define", names); err != nil {
		return nil, err
	}

	frame := root
	var slots []*value.Slot
	if len(names) > 0 {
		if err := m.budget.Alloc(m.sizes.ForFrame(len(names))); err != nil {
			return nil, err
		}
		frame, slots = root.ExtendRecursive(names)
	}

	var last value.Value = value.Unit
	next := 0
	for i, f := range forms {
		if d := defs[i]; d != nil {
			if err := m.chargeForm(d.form); err != nil {
				return nil, err
			}
			v, err := d.init(m, frame)
			if err != nil {
				return nil, err
			}
			slots[next].Init(v)
			next++
			last = value.Unit
			continue
		}
		v, err := m.Eval(f, frame)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

// parseDefinition recognizes the define forms:
//
//	(define name expr)
//	(define (name . formals) body...)
//	(define* (name . formals) body...)
//
// It returns nil for any other form.
func parseDefinition(form value.Value) (*definition, error) {
	p, ok := form.(*value.Pair)
	if !ok {
		return nil, nil
	}
	head := p.Car()
	if head != symDefine && head != symDefineX {
		return nil, nil
	}
	kw := string(head.(value.Symbol))
	args, ok := value.ListToSlice(p.Cdr())
	if !ok || len(args) < 2 {
		return nil, halt.Malformed("%s: expected a target and a body", kw)
	}

	if target, ok := args[0].(*value.Pair); ok {
		name, err := bindableName(kw, target.Car())
		if err != nil {
			return nil, err
		}
		parse := parseFormals
		if head == symDefineX {
			parse = parseStarFormals
		}
		formals, err := parse(target.Cdr())
		if err != nil {
			return nil, err
		}
		body := args[1:]
		return &definition{
			form: head.(value.Symbol),
			name: name,
			init: func(m *Machine, frame *value.Env) (value.Value, error) {
				return m.closure(name, formals, body, frame)
			},
		}, nil
	}

	if head == symDefineX {
		return nil, halt.Malformed("define*: target must be (name . formals)")
	}
	name, err := bindableName(kw, args[0])
	if err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, halt.Malformed("define: expected (define name expr)")
	}
	expr := args[1]
	return &definition{
		form: symDefine,
		name: name,
		init: func(m *Machine, frame *value.Env) (value.Value, error) {
			v, err := m.Eval(expr, frame)
			if err != nil {
				return nil, err
			}
			// A named lambda takes the name of its definition.
			if c, ok := v.(*value.Closure); ok && c.Name() == "lambda" && isLambdaForm(expr) {
				return value.NewClosure(name, c.Formals(), c.Body(), c.Env()), nil
			}
			return v, nil
		},
	}, nil
}

func isLambdaForm(expr value.Value) bool {
	p, ok := expr.(*value.Pair)
	return ok && (p.Car() == symLambda || p.Car() == symLambdaX)
}
