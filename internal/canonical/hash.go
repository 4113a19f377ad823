package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/smarm/internal/value"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for a future encoding migration.
const (
	DomainProgram  = "smarm/program/v1"
	DomainResult   = "smarm/result/v1"
	DomainManifest = "smarm/manifest/v1"
)

// ID computes a SHA-256 hash of data with domain separation.
// Format: SHA256(domain + 0x00 + data), hex encoded.
// The null separator keeps the domain/data boundary unambiguous.
func ID(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramID identifies canonical program bytes.
func ProgramID(program []byte) string {
	return ID(DomainProgram, program)
}

// ResultID identifies canonical result bytes.
func ResultID(result []byte) string {
	return ID(DomainResult, result)
}

// ValueID encodes v and hashes it under domain.
func ValueID(domain string, v value.Value) (string, error) {
	data, err := Encode(v)
	if err != nil {
		return "", fmt.Errorf("ValueID: failed to encode: %w", err)
	}
	return ID(domain, data), nil
}
