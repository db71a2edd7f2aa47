package keyderive_test

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veil-network/veil-daemon/pkg/keyderive"
)

var testSignature = bytes.Repeat([]byte{0xab}, 64)

func TestDeriveIsDeterministic(t *testing.T) {
	t.Parallel()

	first, err := keyderive.Derive(testSignature, 0)
	require.NoError(t, err)

	second, err := keyderive.Derive(testSignature, 0)
	require.NoError(t, err)

	require.Equal(t, first.Address(), second.Address())
	require.Equal(t, first.PublicKey(), second.PublicKey())

	msg := []byte("challenge")
	require.Equal(t, first.Sign(msg), second.Sign(msg))
}

func TestDeriveSeparatesIndexes(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for index := uint32(0); index < 16; index++ {
		kp, err := keyderive.Derive(testSignature, index)
		require.NoError(t, err)

		_, found := seen[kp.Address()]
		require.False(t, found, "index %d collided", index)
		seen[kp.Address()] = struct{}{}
	}
}

func TestDeriveIgnoresSignatureTail(t *testing.T) {
	t.Parallel()

	extended := append(append([]byte{}, testSignature...), 0xff, 0xee)
	a, err := keyderive.Derive(testSignature, 7)
	require.NoError(t, err)
	b, err := keyderive.Derive(extended, 7)
	require.NoError(t, err)

	require.Equal(t, a.Address(), b.Address())
}

func TestFailingDerive(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		signature     []byte
		expectedError error
	}{
		{
			name:          "empty_signature",
			signature:     nil,
			expectedError: keyderive.ErrEmptySignature,
		},
		{
			name:          "short_signature",
			signature:     bytes.Repeat([]byte{0x01}, 31),
			expectedError: keyderive.ErrShortSignature,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kp, err := keyderive.Derive(tt.signature, 0)
			require.Nil(t, kp)
			require.EqualError(t, err, tt.expectedError.Error())
		})
	}
}

func TestEphemeralZero(t *testing.T) {
	t.Parallel()

	kp, err := keyderive.NewEphemeral()
	require.NoError(t, err)
	require.Len(t, kp.PublicKey(), ed25519.PublicKeySize)
	require.NotEmpty(t, kp.Address())

	other, err := keyderive.NewEphemeral()
	require.NoError(t, err)
	require.NotEqual(t, kp.Address(), other.Address())

	kp.Zero()
	other.Zero()
}
