// Package canonical implements the Smarm canonical forms.
//
// Two encodings are defined for every representable value:
//
//   - Binary: a length-prefixed tagged format. This is the interchange and
//     hashing surface. Encode(a) == Encode(b) iff value.Equal(a, b), and
//     Decode accepts exactly the bytes Encode produces; anything else is a
//     MalformedInput (or UnsupportedType for an unknown tag) halt.
//   - Text: the S-expression form used by tooling. FormatText prints one
//     spelling per value and ParseText reads it back.
//
// Content IDs are domain-separated SHA-256 hashes over binary encodings.
//
// Cells, procedures and sealed objects have no canonical form.
package canonical

// Binary tags. The table is closed: adding a tag is a format version bump.
const (
	TagNull     byte = 0x01
	TagFalse    byte = 0x02
	TagTrue     byte = 0x03
	TagVoid     byte = 0x04
	TagPosInt   byte = 0x10
	TagNegInt   byte = 0x11
	TagRational byte = 0x12
	TagReal     byte = 0x13
	TagSymbol   byte = 0x20
	TagBytes    byte = 0x21
	TagChar     byte = 0x22
	TagList     byte = 0x30
	TagVector   byte = 0x31
)

// MaxDepth bounds the nesting of lists and vectors in both encodings.
const MaxDepth = 1024
