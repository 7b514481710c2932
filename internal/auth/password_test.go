package auth

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash == "secret" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if err := ComparePassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestPasswordHashingSaltsDigests(t *testing.T) {
	first, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	second, err := HashPassword("secret", 4)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if first == second {
		t.Fatalf("expected salted digests to differ")
	}
}

func TestPasswordHashingInvalidCostFallsBack(t *testing.T) {
	hash, err := HashPassword("secret", -1)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := ComparePassword(hash, "secret"); err != nil {
		t.Fatalf("expected password to match")
	}
}
