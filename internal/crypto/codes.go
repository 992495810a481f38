// Package crypto generates invite codes and hashes them for storage.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/crypto/blake2b"
)

// CodeAlphabet avoids look-alike characters (0/O, 1/I/L) so codes survive being read aloud.
const CodeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// DefaultCodeLength is used when no length is configured.
const DefaultCodeLength = 8

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// CodeGenerator returns fresh invite codes of a fixed length.
func CodeGenerator(length int) func() (string, error) {
	if length <= 0 {
		length = DefaultCodeLength
	}
	return func() (string, error) { return gonanoid.Generate(CodeAlphabet, length) }
}

// NormalizeCode upper-cases a user-entered code and drops separators.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

// CodeHasher computes keyed BLAKE2b-256 digests of invite codes.
type CodeHasher struct{ key []byte }

// NewCodeHasher builds a hasher keyed with pepper (at most 64 bytes).
func NewCodeHasher(pepper []byte) (*CodeHasher, error) {
	if len(pepper) > blake2b.Size {
		return nil, errors.New("crypto: pepper longer than 64 bytes")
	}
	return &CodeHasher{key: append([]byte(nil), pepper...)}, nil
}

// Hash returns the digest of the normalized code.
func (h *CodeHasher) Hash(code string) []byte {
	mac, err := blake2b.New256(h.key)
	if err != nil {
		// key length is checked in NewCodeHasher
		panic(err)
	}
	mac.Write([]byte(NormalizeCode(code)))
	return mac.Sum(nil)
}

// Verify reports whether code hashes to expected, in constant time.
func (h *CodeHasher) Verify(code string, expected []byte) bool {
	return subtle.ConstantTimeCompare(h.Hash(code), expected) == 1
}
