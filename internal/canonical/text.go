package canonical

import (
	"fmt"
	"strings"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// VoidText is the text spelling of the unspecified value.
const VoidText = "#!void"

// FormatText returns the canonical text form of v. Like Encode it rejects
// values that have no canonical form.
func FormatText(v value.Value) (string, error) {
	var sb strings.Builder
	if err := writeText(&sb, v, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// MustFormatText is like FormatText but panics on error.
// Use only in tests or when v is known to be encodable.
func MustFormatText(v value.Value) string {
	s, err := FormatText(v)
	if err != nil {
		panic(err)
	}
	return s
}

func writeText(sb *strings.Builder, v value.Value, depth int) error {
	switch x := v.(type) {
	case value.Null:
		sb.WriteString("()")
	case value.Bool:
		if x {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case value.Void:
		sb.WriteString(VoidText)
	case *value.Number:
		sb.WriteString(x.String())
	case value.Symbol:
		if err := CheckSymbol(string(x)); err != nil {
			return halt.Unsupported("unprintable symbol: %v", err)
		}
		sb.WriteString(string(x))
	case value.Bytes:
		writeBytes(sb, string(x))
	case value.Char:
		writeChar(sb, byte(x))
	case *value.Pair:
		if depth >= MaxDepth {
			return halt.Unsupported("nesting exceeds %d", MaxDepth)
		}
		if quoted, ok := quoteForm(x); ok {
			sb.WriteByte('\'')
			return writeText(sb, quoted, depth+1)
		}
		items, tail := value.SplitList(x)
		sb.WriteByte('(')
		for i, item := range items {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if err := writeText(sb, item, depth+1); err != nil {
				return err
			}
		}
		if _, isNull := tail.(value.Null); !isNull {
			sb.WriteString(" . ")
			if err := writeText(sb, tail, depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	case *value.Vector:
		if depth >= MaxDepth {
			return halt.Unsupported("nesting exceeds %d", MaxDepth)
		}
		sb.WriteString("#(")
		for i := 0; i < x.Len(); i++ {
			if i > 0 {
				sb.WriteByte(' ')
			}
			if err := writeText(sb, x.Ref(i), depth+1); err != nil {
				return err
			}
		}
		sb.WriteByte(')')
	default:
		return halt.Unsupported("%s has no canonical form", value.TypeName(v))
	}
	return nil
}

// quoteForm recognizes (quote x), which prints as 'x.
func quoteForm(p *value.Pair) (value.Value, bool) {
	if p.Car() != value.Symbol("quote") {
		return nil, false
	}
	rest, ok := p.Cdr().(*value.Pair)
	if !ok {
		return nil, false
	}
	if _, end := rest.Cdr().(value.Null); !end {
		return nil, false
	}
	return rest.Car(), true
}

func writeBytes(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch b := s[i]; b {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if b < 0x20 || b >= 0x7f {
				fmt.Fprintf(sb, `\x%02x`, b)
			} else {
				sb.WriteByte(b)
			}
		}
	}
	sb.WriteByte('"')
}

func writeChar(sb *strings.Builder, b byte) {
	switch {
	case b == ' ':
		sb.WriteString(`#\space`)
	case b == '\n':
		sb.WriteString(`#\newline`)
	case b > 0x20 && b < 0x7f:
		sb.WriteString(`#\`)
		sb.WriteByte(b)
	default:
		fmt.Fprintf(sb, `#\x%02x`, b)
	}
}
