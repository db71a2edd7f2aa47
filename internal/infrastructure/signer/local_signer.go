// Package signer provides the file-backed local wallet signer. It exists for
// headless deployments; browser wallets sign through their own extension and
// never expose key material to the daemon.
package signer

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/veil-network/veil-daemon/internal/core/ports"
)

var (
	// ErrMalformedKeyFile ...
	ErrMalformedKeyFile = errors.New(
		"key file must contain a base58 encoded ed25519 seed or private key",
	)
)

type localSigner struct {
	priv ed25519.PrivateKey
	pub  string
}

// NewLocalSigner loads the wallet key from the given file. The file holds the
// base58 encoding of either a 32-byte seed or a full 64-byte private key. If
// the file does not exist a fresh key is generated and persisted with
// owner-only permissions.
func NewLocalSigner(keyPath string) (ports.Signer, error) {
	raw, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		return generateKey(keyPath)
	}
	if err != nil {
		return nil, fmt.Errorf("error on reading key file: %w", err)
	}

	decoded, err := base58.Decode(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, ErrMalformedKeyFile
	}

	var priv ed25519.PrivateKey
	switch len(decoded) {
	case ed25519.SeedSize:
		priv = ed25519.NewKeyFromSeed(decoded)
	case ed25519.PrivateKeySize:
		priv = ed25519.PrivateKey(decoded)
	default:
		return nil, ErrMalformedKeyFile
	}

	return newSigner(priv), nil
}

func generateKey(keyPath string) (ports.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(keyPath), 0700); err != nil {
		return nil, fmt.Errorf("error on creating key dir: %w", err)
	}
	encoded := base58.Encode(priv.Seed())
	if err := os.WriteFile(keyPath, []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("error on persisting key file: %w", err)
	}

	return newSigner(priv), nil
}

func newSigner(priv ed25519.PrivateKey) ports.Signer {
	return &localSigner{
		priv: priv,
		pub:  base58.Encode(priv.Public().(ed25519.PublicKey)),
	}
}

func (s *localSigner) PublicKey() string {
	return s.pub
}

// SignMessage is deterministic, ed25519 derives its nonce from the key and
// the message. Challenge-based derivation relies on this.
func (s *localSigner) SignMessage(
	_ context.Context, message []byte,
) ([]byte, error) {
	return ed25519.Sign(s.priv, message), nil
}

func (s *localSigner) SignTransaction(
	_ context.Context, message []byte,
) (string, error) {
	return base58.Encode(ed25519.Sign(s.priv, message)), nil
}
