package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := NewPasswordHasherWithCost(bcrypt.MinCost)

	digest, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if digest == "correct horse battery staple" {
		t.Fatal("digest must not equal plaintext")
	}

	if !h.Verify("correct horse battery staple", digest) {
		t.Fatal("expected matching password to verify")
	}
	if h.Verify("wrong password", digest) {
		t.Fatal("expected mismatching password to fail verification")
	}
}

func TestPasswordHasher_SamePasswordDifferentDigests(t *testing.T) {
	h := NewPasswordHasherWithCost(bcrypt.MinCost)

	a, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("secret")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("bcrypt digests must differ between calls (random salt)")
	}
}

func TestPasswordHasher_RejectsOverlongPassword(t *testing.T) {
	h := NewPasswordHasherWithCost(bcrypt.MinCost)

	if _, err := h.Hash(strings.Repeat("a", 73)); err == nil {
		t.Fatal("expected error for password longer than 72 bytes")
	}
}

func TestPasswordHasher_VerifyGarbageDigest(t *testing.T) {
	h := NewPasswordHasherWithCost(bcrypt.MinCost)

	if h.Verify("anything", "not-a-bcrypt-digest") {
		t.Fatal("garbage digest must not verify")
	}
}
