package canonical

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/smarm/internal/halt"
	"github.com/roach88/smarm/internal/value"
)

// delimiters end a token in the text form.
const delimiters = "()\";'"

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == '\v'
}

func isDelimiter(b byte) bool {
	return isSpace(b) || strings.IndexByte(delimiters, b) >= 0
}

// CheckSymbol returns a MalformedInput halt unless name is a symbol that
// reads back as itself: non-empty NFC UTF-8 without control characters,
// whitespace or delimiters, not numeric, not ".", and not starting with
// "#" unless it is a keyword.
func CheckSymbol(name string) error {
	if name == "" {
		return halt.Malformed("empty symbol")
	}
	if !utf8.ValidString(name) {
		return halt.Malformed("symbol is not valid UTF-8")
	}
	if !norm.NFC.IsNormalString(name) {
		return halt.Malformed("symbol %q is not NFC normalized", name)
	}
	for i := 0; i < len(name); i++ {
		b := name[i]
		if b < 0x20 || b == 0x7f || isDelimiter(b) {
			return halt.Malformed("symbol %q contains a reserved character", name)
		}
	}
	if name == "." {
		return halt.Malformed("\".\" is not a symbol")
	}
	if strings.HasPrefix(name, "#") && !(strings.HasPrefix(name, value.KeywordPrefix) && len(name) > len(value.KeywordPrefix)) {
		return halt.Malformed("symbol %q starts with #", name)
	}
	if _, numeric, _ := value.ParseNumber(name); numeric {
		return halt.Malformed("symbol %q has numeric syntax", name)
	}
	return nil
}
