package crypto

import "testing"

func TestPINHashing(t *testing.T) {
	hash, err := HashPIN("4821")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}

	if !IsBcryptHash(hash) {
		t.Fatal("expected bcrypt hash")
	}
	if !VerifyPIN(hash, "4821") {
		t.Fatal("expected pin verification to succeed")
	}
	if VerifyPIN(hash, "0000") {
		t.Fatal("expected pin verification to fail")
	}
	if VerifyPIN(hash, "") {
		t.Fatal("expected empty pin to fail")
	}
}

func TestHashPINRejectsEmpty(t *testing.T) {
	if _, err := HashPIN("   "); err == nil {
		t.Fatal("expected error for blank pin")
	}
}

func TestIsBcryptHashPlainValue(t *testing.T) {
	if IsBcryptHash("1234") {
		t.Fatal("plain pin must not be treated as a hash")
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	b, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
	if len(a) != 43 {
		t.Fatalf("expected 43 characters, got %d", len(a))
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("abc", "abc") {
		t.Fatal("expected equal strings to match")
	}
	if ConstantTimeEqual("abc", "abd") || ConstantTimeEqual("", "") || ConstantTimeEqual("ab", "abc") {
		t.Fatal("expected mismatches")
	}
}
