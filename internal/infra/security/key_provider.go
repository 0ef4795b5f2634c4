package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrKeyNotFound indicates a supplied kid is unknown to the provider.
var ErrKeyNotFound = errors.New("key not found")

// KeyProvider supplies the RSA material for access-token signing and
// verification.
type KeyProvider interface {
	SigningKID() string
	GetSigningKey() (*rsa.PrivateKey, error)
	GetVerificationKey(kid string) (*rsa.PublicKey, error)
}

// FileKeyProvider loads PEM-encoded RSA keys from a directory. The first
// private key found signs; every key's public half verifies, keyed by the
// file name without extension.
type FileKeyProvider struct {
	keys       map[string]*rsa.PublicKey
	signingKey *rsa.PrivateKey
	signingKID string
}

// NewFileKeyProvider scans the directory and builds the key set.
func NewFileKeyProvider(keyDir string) (*FileKeyProvider, error) {
	files, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("read key directory: %w", err)
	}

	provider := &FileKeyProvider{keys: make(map[string]*rsa.PublicKey)}

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		path := filepath.Join(keyDir, file.Name())
		keyData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read key file %s: %w", path, err)
		}

		block, _ := pem.Decode(keyData)
		if block == nil {
			return nil, fmt.Errorf("decode PEM block from %s", path)
		}

		kid := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))

		if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
			provider.registerPrivate(kid, key)
			continue
		}

		if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
			if rsaKey, ok := key.(*rsa.PrivateKey); ok {
				provider.registerPrivate(kid, rsaKey)
				continue
			}
		}

		if key, err := x509.ParsePKCS1PublicKey(block.Bytes); err == nil {
			provider.keys[kid] = key
			continue
		}

		if key, err := x509.ParsePKIXPublicKey(block.Bytes); err == nil {
			if rsaKey, ok := key.(*rsa.PublicKey); ok {
				provider.keys[kid] = rsaKey
				continue
			}
		}

		return nil, fmt.Errorf("parse key from file %s", path)
	}

	if provider.signingKey == nil {
		return nil, errors.New("no private key found for signing")
	}

	return provider, nil
}

func (p *FileKeyProvider) registerPrivate(kid string, key *rsa.PrivateKey) {
	if p.signingKey == nil {
		p.signingKey = key
		p.signingKID = kid
	}
	p.keys[kid] = &key.PublicKey
}

// SigningKID returns the kid placed into token headers.
func (p *FileKeyProvider) SigningKID() string {
	return p.signingKID
}

// GetSigningKey returns the private key for signing tokens.
func (p *FileKeyProvider) GetSigningKey() (*rsa.PrivateKey, error) {
	return p.signingKey, nil
}

// GetVerificationKey returns the public key registered under the kid.
func (p *FileKeyProvider) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	key, ok := p.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}
