package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
)

var errCiphertextTooShort = errors.New("encryptor: ciphertext too short")

// AESGCMEncryptor protects two-factor secrets at rest with AES-256-GCM.
// Ciphertexts are base64-encoded nonce||sealed payloads.
type AESGCMEncryptor struct {
	aead cipher.AEAD
}

// NewAESGCMEncryptor builds an encryptor from a hex-encoded 32-byte key.
func NewAESGCMEncryptor(hexKey string) (*AESGCMEncryptor, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("encryptor: decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryptor: key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("encryptor: init cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("encryptor: init gcm: %w", err)
	}

	return &AESGCMEncryptor{aead: aead}, nil
}

// Encrypt seals the plaintext under a fresh random nonce.
func (e *AESGCMEncryptor) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("encryptor: generate nonce: %w", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawStdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a ciphertext produced by Encrypt.
func (e *AESGCMEncryptor) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("encryptor: decode ciphertext: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", errCiphertextTooShort
	}

	plaintext, err := e.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("encryptor: open ciphertext: %w", err)
	}

	return string(plaintext), nil
}
