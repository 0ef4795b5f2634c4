package security

import (
	"regexp"
	"testing"
)

func TestGenerateSecureTokenShape(t *testing.T) {
	token, err := GenerateSecureToken(OpaqueTokenBytes)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if len(token) != 43 {
		t.Fatalf("token length = %d, want 43", len(token))
	}
	if !regexp.MustCompile(`^[A-Za-z0-9_-]+$`).MatchString(token) {
		t.Fatalf("token is not base64url: %s", token)
	}

	other, err := GenerateSecureToken(OpaqueTokenBytes)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if token == other {
		t.Fatal("consecutive tokens must differ")
	}
}

func TestGenerateSecureTokenRejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateSecureToken(0); err == nil {
		t.Fatal("expected error for zero length")
	}
	if _, err := GenerateSecureToken(-1); err == nil {
		t.Fatal("expected error for negative length")
	}
}

func TestHashToken(t *testing.T) {
	sum := HashToken("opaque-token")
	if len(sum) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(sum))
	}
	if sum != HashToken("opaque-token") {
		t.Fatal("hashing must be deterministic")
	}
	if sum == HashToken("other-token") {
		t.Fatal("different inputs must hash differently")
	}
}

func TestUUIDGenerator(t *testing.T) {
	gen := NewUUIDGenerator()

	uuidPattern := regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	sortable := gen.NewSortableID()
	if !uuidPattern.MatchString(sortable) {
		t.Fatalf("sortable id is not a uuid: %s", sortable)
	}
	random := gen.NewRandomID()
	if !uuidPattern.MatchString(random) {
		t.Fatalf("random id is not a uuid: %s", random)
	}
	if gen.NewSortableID() == sortable || gen.NewRandomID() == random {
		t.Fatal("generated ids must be unique")
	}
}

func TestRecoveryCodeFormat(t *testing.T) {
	source := NewRecoveryCodeSource()
	pattern := regexp.MustCompile(`^[A-Z0-9]{4}-[A-Z0-9]{4}$`)

	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		code, err := source.Generate()
		if err != nil {
			t.Fatalf("Generate returned error: %v", err)
		}
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match XXXX-XXXX", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes must not repeat")
	}
}
