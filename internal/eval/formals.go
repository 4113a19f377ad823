package eval

import (
	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// Section markers inside lambda* formals.
const (
	markOptional value.Symbol = "#:optional"
	markKey      value.Symbol = "#:key"
)

// parseFormals parses a lambda parameter list: a symbol binding every
// argument, or a proper or dotted list of symbols.
func parseFormals(list value.Value) (*value.Formals, error) {
	f := &value.Formals{}
	items, tail := value.SplitList(list)
	for _, item := range items {
		name, err := bindableName("lambda", item)
		if err != nil {
			return nil, err
		}
		f.Required = append(f.Required, name)
	}
	if tail != value.Nil {
		name, err := bindableName("lambda", tail)
		if err != nil {
			return nil, err
		}
		f.Rest = name
	}
	if err := checkDistinct("lambda", f.Names()); err != nil {
		return nil, err
	}
	return f, nil
}

// parseStarFormals parses a lambda* parameter list:
//
//	(req... #:optional opt... #:key key... . rest)
//
// where opt and key entries are a name or (name default). A rest parameter
// cannot be combined with #:key.
func parseStarFormals(list value.Value) (*value.Formals, error) {
	const (
		required = iota
		optional
		keys
	)

	f := &value.Formals{}
	section := required
	items, tail := value.SplitList(list)
	for _, item := range items {
		switch item {
		case markOptional:
			if section != required {
				return nil, halt.Malformed("lambda*: #:optional must precede #:key and appear once")
			}
			section = optional
			continue
		case markKey:
			if section == keys {
				return nil, halt.Malformed("lambda*: #:key appears twice")
			}
			section = keys
			continue
		}

		if section == required {
			name, err := bindableName("lambda*", item)
			if err != nil {
				return nil, err
			}
			f.Required = append(f.Required, name)
			continue
		}
		p, err := parseOptionalParam(item)
		if err != nil {
			return nil, err
		}
		if section == optional {
			f.Optional = append(f.Optional, p)
		} else {
			f.Keys = append(f.Keys, p)
		}
	}

	if tail != value.Nil {
		if len(f.Keys) > 0 || section == keys {
			return nil, halt.Malformed("lambda*: a rest parameter cannot follow #:key")
		}
		name, err := bindableName("lambda*", tail)
		if err != nil {
			return nil, err
		}
		f.Rest = name
	}
	if err := checkDistinct("lambda*", f.Names()); err != nil {
		return nil, err
	}
	return f, nil
}

func parseOptionalParam(item value.Value) (value.OptionalParam, error) {
	if _, ok := item.(value.Symbol); ok {
		name, err := bindableName("lambda*", item)
		return value.OptionalParam{Name: name}, err
	}
	pair, ok := value.ListToSlice(item)
	if !ok || len(pair) != 2 {
		return value.OptionalParam{}, halt.Malformed("lambda*: optional parameter must be name or (name default)")
	}
	name, err := bindableName("lambda*", pair[0])
	if err != nil {
		return value.OptionalParam{}, err
	}
	return value.OptionalParam{Name: name, Default: pair[1]}, nil
}

// bind creates the call frame of c for args. A closure without parameters
// runs directly in its defining environment.
func (m *Machine) bind(c *value.Closure, args []value.Value) (*value.Env, error) {
	f := c.Formals()
	if len(f.Optional) == 0 && len(f.Keys) == 0 {
		if err := f.Arity().Check(c.Name(), len(args)); err != nil {
			return nil, err
		}
		if f.Size() == 0 {
			return c.Env(), nil
		}
		vals := make([]value.Value, 0, f.Size())
		vals = append(vals, args[:len(f.Required)]...)
		if f.Rest != "" {
			rest, err := m.restList(args[len(f.Required):])
			if err != nil {
				return nil, err
			}
			vals = append(vals, rest)
		}
		return m.extend(c.Env(), f.Names(), vals)
	}
	return m.bindStar(c, args)
}

func (m *Machine) bindStar(c *value.Closure, args []value.Value) (*value.Env, error) {
	f := c.Formals()
	if len(args) < len(f.Required) {
		return nil, f.Arity().Check(c.Name(), len(args))
	}
	vals := make([]value.Value, 0, f.Size())
	vals = append(vals, args[:len(f.Required)]...)
	i := len(f.Required)

	// Optional arguments are positional; with a #:key section they end at
	// the first keyword.
	for _, p := range f.Optional {
		if i < len(args) && !(len(f.Keys) > 0 && isKeyword(args[i])) {
			vals = append(vals, args[i])
			i++
			continue
		}
		v, err := m.defaultValue(c, p)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}

	switch {
	case len(f.Keys) > 0:
		supplied, err := keywordArgs(c, args[i:])
		if err != nil {
			return nil, err
		}
		for _, p := range f.Keys {
			if v, ok := supplied[p.Keyword()]; ok {
				vals = append(vals, v)
				continue
			}
			v, err := m.defaultValue(c, p)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
	case f.Rest != "":
		rest, err := m.restList(args[i:])
		if err != nil {
			return nil, err
		}
		vals = append(vals, rest)
	case i < len(args):
		return nil, f.Arity().Check(c.Name(), len(args))
	}
	return m.extend(c.Env(), f.Names(), vals)
}

// keywordArgs collects #:name value pairs, rejecting unknown, repeated and
// dangling keywords.
func keywordArgs(c *value.Closure, args []value.Value) (map[value.Symbol]value.Value, error) {
	declared := make(map[value.Symbol]bool, len(c.Formals().Keys))
	for _, p := range c.Formals().Keys {
		declared[p.Keyword()] = true
	}
	out := make(map[value.Symbol]value.Value, len(args)/2)
	for j := 0; j < len(args); j += 2 {
		kw, ok := args[j].(value.Symbol)
		if !ok || !kw.IsKeyword() {
			return nil, halt.Arity(c.Name(), "expected a keyword, got %s", value.TypeName(args[j]))
		}
		if !declared[kw] {
			return nil, halt.Arity(c.Name(), "undeclared keyword %s", kw).With("keyword", string(kw))
		}
		if _, dup := out[kw]; dup {
			return nil, halt.Arity(c.Name(), "keyword %s supplied twice", kw).With("keyword", string(kw))
		}
		if j+1 == len(args) {
			return nil, halt.Arity(c.Name(), "keyword %s has no value", kw).With("keyword", string(kw))
		}
		out[kw] = args[j+1]
	}
	return out, nil
}

// defaultValue evaluates a parameter default in the closure's defining
// environment. A parameter without a default is #f.
func (m *Machine) defaultValue(c *value.Closure, p value.OptionalParam) (value.Value, error) {
	if p.Default == nil {
		return value.False, nil
	}
	return m.Eval(p.Default, c.Env())
}

func (m *Machine) restList(args []value.Value) (value.Value, error) {
	if err := m.budget.Alloc(m.sizes.ForList(len(args))); err != nil {
		return nil, err
	}
	return value.List(args...), nil
}

func isKeyword(v value.Value) bool {
	sym, ok := v.(value.Symbol)
	return ok && sym.IsKeyword()
}
