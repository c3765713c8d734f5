package main

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// fileKeyProvider serves one RSA private key loaded from a PEM file at
// startup. The key never appears in logs or responses.
type fileKeyProvider struct {
	key *rsa.PrivateKey
}

func newFileKeyProvider(path string) (*fileKeyProvider, error) {
	if path == "" {
		return nil, fmt.Errorf("keys: SIGNING_KEY_PATH is required")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keys: read %s: %w", path, err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("keys: no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return &fileKeyProvider{key: key}, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("keys: parse private key: %w", err)
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("keys: %s does not contain an RSA key", path)
	}
	return &fileKeyProvider{key: key}, nil
}

func (p *fileKeyProvider) PrivateKey(ctx context.Context, principal string) (*rsa.PrivateKey, error) {
	return p.key, nil
}
