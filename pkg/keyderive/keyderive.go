package keyderive

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

var (
	// ErrEmptySignature is thrown when deriving from a null signature
	ErrEmptySignature = errors.New("base signature must not be null")
	// ErrShortSignature is thrown when the base signature is shorter than 32 bytes
	ErrShortSignature = errors.New("base signature must be at least 32 bytes long")
	// ErrMalformedSeed ...
	ErrMalformedSeed = errors.New("derived seed has unexpected length")
)

// Keypair wraps an ed25519 signing key along with its base58 encoded address.
type Keypair struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// Derive deterministically maps a wallet signature and a small index to a
// signing keypair. The seed is the Keccak-256 digest of the first 32 bytes of
// the signature concatenated with the big-endian encoding of the index, so the
// same (signature, index) pair always yields the same keypair while distinct
// indexes separate into unrelated keys.
//
// Determinism holds only if the caller obtains the signature by signing a
// fixed challenge message with a deterministic signer. See ports.Signer.
func Derive(baseSignature []byte, index uint32) (*Keypair, error) {
	if len(baseSignature) == 0 {
		return nil, ErrEmptySignature
	}
	if len(baseSignature) < 32 {
		return nil, ErrShortSignature
	}

	buf := make([]byte, 0, 36)
	buf = append(buf, baseSignature[:32]...)
	buf = binary.BigEndian.AppendUint32(buf, index)

	hash := sha3.NewLegacyKeccak256()
	hash.Write(buf)
	seed := hash.Sum(nil)

	// the digest is fixed-length by construction, but a wrong seed silently
	// derives a key nobody controls, so check anyway
	if len(seed) != ed25519.SeedSize {
		return nil, ErrMalformedSeed
	}

	priv := ed25519.NewKeyFromSeed(seed)
	return &Keypair{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// NewEphemeral returns a random single-use keypair. Callers must Zero it once
// the keypair has served its purpose.
func NewEphemeral() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &Keypair{priv: priv, pub: pub}, nil
}

// Address returns the base58 encoding of the public key.
func (k *Keypair) Address() string {
	return base58.Encode(k.pub)
}

// PublicKey returns the raw public key bytes.
func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.pub
}

// Sign signs the given message with the private key.
func (k *Keypair) Sign(message []byte) []byte {
	return ed25519.Sign(k.priv, message)
}

// Zero wipes the private key material. The keypair must not be used afterwards.
func (k *Keypair) Zero() {
	for i := range k.priv {
		k.priv[i] = 0
	}
	k.priv = nil
}
