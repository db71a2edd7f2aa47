package ports

import "context"

// Signer is the wallet-signing collaborator. The daemon derives its
// sub-address families from signatures over fixed challenge messages.
//
// Derivation correctness relies on SignMessage being deterministic for a
// given message. The local file-backed signer satisfies this (ed25519 over a
// fixed message is deterministic in the standard library), but external
// hardware or extension signers may randomize nonces or refuse to re-sign an
// identical message; implementations that cannot guarantee determinism must
// cache the signature of each challenge instead of re-signing.
type Signer interface {
	// PublicKey returns the base58 encoded wallet public key.
	PublicKey() string
	// SignMessage signs an arbitrary message with the wallet key.
	SignMessage(ctx context.Context, message []byte) ([]byte, error)
	// SignTransaction signs the serialized transaction message and returns
	// the base58 signature.
	SignTransaction(ctx context.Context, message []byte) (string, error)
}
