package crypto

import (
	"bytes"
	"strings"
	"testing"
)

func TestRandBytes_LengthAndUniqueness(t *testing.T) {
	t.Parallel()

	const n = 64
	a, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes: %v", err)
	}
	if len(a) != n {
		t.Fatalf("len=%d, want=%d", len(a), n)
	}
	b, err := RandBytes(n)
	if err != nil {
		t.Fatalf("RandBytes(2): %v", err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two subsequent RandBytes(%d) are equal, looks non-random", n)
	}
}

func TestCodeGenerator_AlphabetAndLength(t *testing.T) {
	t.Parallel()

	gen := CodeGenerator(10)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		c, err := gen()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(c) != 10 {
			t.Fatalf("len=%d, want 10", len(c))
		}
		for _, r := range c {
			if !strings.ContainsRune(CodeAlphabet, r) {
				t.Fatalf("rune %q outside alphabet", r)
			}
		}
		seen[c] = true
	}
	if len(seen) < 49 {
		t.Fatalf("too many duplicates: %d unique of 50", len(seen))
	}

	c, err := CodeGenerator(0)()
	if err != nil || len(c) != DefaultCodeLength {
		t.Fatalf("default length: %q %v", c, err)
	}
}

func TestCodeHasher_NormalizesAndKeys(t *testing.T) {
	t.Parallel()

	h, err := NewCodeHasher([]byte("pepper"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	a := h.Hash("ABC123")
	if len(a) != 32 {
		t.Fatalf("digest len=%d", len(a))
	}
	if !bytes.Equal(a, h.Hash(" abc-123 ")) {
		t.Fatalf("hash must ignore case and separators")
	}
	if !h.Verify("abc123", a) || h.Verify("ABC124", a) {
		t.Fatalf("verify mismatch")
	}

	other, _ := NewCodeHasher([]byte("salt"))
	if bytes.Equal(a, other.Hash("ABC123")) {
		t.Fatalf("different peppers must give different digests")
	}

	if _, err := NewCodeHasher(bytes.Repeat([]byte{1}, 65)); err == nil {
		t.Fatalf("want error for long pepper")
	}
}
