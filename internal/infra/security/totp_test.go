package security

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestTOTPGenerateAndVerify(t *testing.T) {
	service := NewTOTPService("auth-service")

	secret, url, err := service.Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if secret == "" {
		t.Fatal("missing secret")
	}
	if !strings.HasPrefix(url, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning url: %s", url)
	}
	if !strings.Contains(url, "auth-service") {
		t.Fatalf("issuer missing from url: %s", url)
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("GenerateCode returned error: %v", err)
	}
	if !service.Verify(secret, code) {
		t.Fatal("current-step code must verify")
	}
}

func TestTOTPVerifyRejectsWrongCode(t *testing.T) {
	service := NewTOTPService("auth-service")

	secret, _, err := service.Generate("alice@example.com")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if service.Verify(secret, "000000") && service.Verify(secret, "999999") {
		t.Fatal("two arbitrary codes cannot both verify")
	}
	if service.Verify(secret, "not-a-code") {
		t.Fatal("non-numeric input must not verify")
	}
}

func TestAESGCMEncryptorRoundTrip(t *testing.T) {
	key := strings.Repeat("ab", 32)
	encryptor, err := NewAESGCMEncryptor(key)
	if err != nil {
		t.Fatalf("NewAESGCMEncryptor returned error: %v", err)
	}

	ciphertext, err := encryptor.Encrypt("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if ciphertext == "JBSWY3DPEHPK3PXP" {
		t.Fatal("ciphertext must differ from plaintext")
	}

	plaintext, err := encryptor.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt returned error: %v", err)
	}
	if plaintext != "JBSWY3DPEHPK3PXP" {
		t.Fatalf("round trip = %q", plaintext)
	}

	// Fresh nonces make repeated encryptions of the same value distinct.
	second, err := encryptor.Encrypt("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if second == ciphertext {
		t.Fatal("two encryptions must not share a nonce")
	}
}

func TestAESGCMEncryptorRejectsTamperedCiphertext(t *testing.T) {
	key := strings.Repeat("cd", 32)
	encryptor, err := NewAESGCMEncryptor(key)
	if err != nil {
		t.Fatalf("NewAESGCMEncryptor returned error: %v", err)
	}

	ciphertext, err := encryptor.Encrypt("secret")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	tampered := []byte(ciphertext)
	tampered[len(tampered)-1] ^= 1
	if _, err := encryptor.Decrypt(string(tampered)); err == nil {
		t.Fatal("tampered ciphertext must not decrypt")
	}

	if _, err := encryptor.Decrypt("AA"); err == nil {
		t.Fatal("truncated ciphertext must not decrypt")
	}
}

func TestAESGCMEncryptorKeyValidation(t *testing.T) {
	if _, err := NewAESGCMEncryptor("not-hex"); err == nil {
		t.Fatal("expected error for non-hex key")
	}
	if _, err := NewAESGCMEncryptor("abcd"); err == nil {
		t.Fatal("expected error for short key")
	}
}
