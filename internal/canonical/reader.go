package canonical

import (
	"strconv"
	"strings"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// ParseText reads exactly one value from src.
func ParseText(src string) (value.Value, error) {
	forms, err := ParseProgram(src)
	if err != nil {
		return nil, err
	}
	if len(forms) != 1 {
		return nil, halt.Malformed("expected one datum, found %d", len(forms))
	}
	return forms[0], nil
}

// ParseProgram reads every top-level datum in src.
func ParseProgram(src string) ([]value.Value, error) {
	r := &reader{src: src, line: 1}
	var forms []value.Value
	for {
		r.skipAtmosphere()
		if r.pos >= len(r.src) {
			return forms, nil
		}
		v, err := r.datum(0)
		if err != nil {
			return nil, err
		}
		forms = append(forms, v)
	}
}

type reader struct {
	src  string
	pos  int
	line int
}

func (r *reader) errorf(format string, args ...any) error {
	return halt.Malformed(format, args...).With("line", strconv.Itoa(r.line))
}

func (r *reader) skipAtmosphere() {
	for r.pos < len(r.src) {
		switch c := r.src[r.pos]; {
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		case isSpace(c):
			if c == '\n' {
				r.line++
			}
			r.pos++
		default:
			return
		}
	}
}

func (r *reader) token() string {
	start := r.pos
	for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
		r.pos++
	}
	return r.src[start:r.pos]
}

func (r *reader) datum(depth int) (value.Value, error) {
	if depth >= MaxDepth {
		return nil, r.errorf("nesting exceeds %d", MaxDepth)
	}
	r.skipAtmosphere()
	if r.pos >= len(r.src) {
		return nil, r.errorf("unexpected end of input")
	}
	switch c := r.src[r.pos]; c {
	case '(':
		r.pos++
		return r.list(depth)
	case ')':
		return nil, r.errorf("unexpected )")
	case '\'':
		r.pos++
		quoted, err := r.datum(depth + 1)
		if err != nil {
			return nil, err
		}
		return value.List(value.Symbol("quote"), quoted), nil
	case '"':
		r.pos++
		return r.bytes()
	case '#':
		return r.hash(depth)
	default:
		return r.atom(r.token())
	}
}

func (r *reader) list(depth int) (value.Value, error) {
	var items []value.Value
	for {
		r.skipAtmosphere()
		if r.pos >= len(r.src) {
			return nil, r.errorf("unterminated list")
		}
		if r.src[r.pos] == ')' {
			r.pos++
			return value.List(items...), nil
		}
		if r.src[r.pos] == '.' && (r.pos+1 == len(r.src) || isDelimiter(r.src[r.pos+1])) {
			r.pos++
			if len(items) == 0 {
				return nil, r.errorf("dotted tail without a head")
			}
			tail, err := r.datum(depth + 1)
			if err != nil {
				return nil, err
			}
			r.skipAtmosphere()
			if r.pos >= len(r.src) || r.src[r.pos] != ')' {
				return nil, r.errorf("expected ) after dotted tail")
			}
			r.pos++
			return value.ListWithTail(items, tail), nil
		}
		item, err := r.datum(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (r *reader) vector(depth int) (value.Value, error) {
	var items []value.Value
	for {
		r.skipAtmosphere()
		if r.pos >= len(r.src) {
			return nil, r.errorf("unterminated vector")
		}
		if r.src[r.pos] == ')' {
			r.pos++
			return value.NewVector(items), nil
		}
		item, err := r.datum(depth + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
}

func (r *reader) hash(depth int) (value.Value, error) {
	rest := r.src[r.pos+1:]
	switch {
	case strings.HasPrefix(rest, "("):
		r.pos += 2
		return r.vector(depth)
	case strings.HasPrefix(rest, `\`):
		r.pos += 2
		return r.char()
	case strings.HasPrefix(rest, ":"):
		return r.atom(r.token())
	}
	tok := r.token()
	switch tok {
	case "#t":
		return value.True, nil
	case "#f":
		return value.False, nil
	case VoidText:
		return value.Unit, nil
	default:
		return nil, r.errorf("unknown # syntax %q", tok)
	}
}

func (r *reader) char() (value.Value, error) {
	if r.pos >= len(r.src) {
		return nil, r.errorf("unterminated character")
	}
	// The first byte always belongs to the character, even a delimiter.
	start := r.pos
	r.pos++
	for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
		r.pos++
	}
	name := r.src[start:r.pos]
	switch {
	case len(name) == 1:
		return value.Char(name[0]), nil
	case name == "space":
		return value.Char(' '), nil
	case name == "newline":
		return value.Char('\n'), nil
	case len(name) == 3 && name[0] == 'x':
		b, err := strconv.ParseUint(name[1:], 16, 8)
		if err != nil {
			return nil, r.errorf("invalid character #\\%s", name)
		}
		return value.Char(byte(b)), nil
	default:
		return nil, r.errorf("invalid character #\\%s", name)
	}
}

func (r *reader) bytes() (value.Value, error) {
	var sb strings.Builder
	for {
		if r.pos >= len(r.src) {
			return nil, r.errorf("unterminated byte string")
		}
		c := r.src[r.pos]
		r.pos++
		switch c {
		case '"':
			return value.Bytes(sb.String()), nil
		case '\n':
			r.line++
			sb.WriteByte(c)
		case '\\':
			if r.pos >= len(r.src) {
				return nil, r.errorf("unterminated escape")
			}
			e := r.src[r.pos]
			r.pos++
			switch e {
			case '\\', '"':
				sb.WriteByte(e)
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'x':
				if r.pos+2 > len(r.src) {
					return nil, r.errorf("truncated \\x escape")
				}
				b, err := strconv.ParseUint(r.src[r.pos:r.pos+2], 16, 8)
				if err != nil {
					return nil, r.errorf("invalid \\x escape")
				}
				r.pos += 2
				sb.WriteByte(byte(b))
			default:
				return nil, r.errorf("unknown escape \\%c", e)
			}
		default:
			sb.WriteByte(c)
		}
	}
}

func (r *reader) atom(tok string) (value.Value, error) {
	if tok == "" {
		return nil, r.errorf("unexpected character %q", r.src[r.pos])
	}
	n, numeric, err := value.ParseNumber(tok)
	if numeric {
		if err != nil {
			return nil, r.errorf("%v", err)
		}
		return n, nil
	}
	if err := CheckSymbol(tok); err != nil {
		return nil, r.errorf("%v", err)
	}
	return value.Symbol(tok), nil
}
