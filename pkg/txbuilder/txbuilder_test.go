package txbuilder_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/veil-network/veil-daemon/pkg/keyderive"
	"github.com/veil-network/veil-daemon/pkg/txbuilder"
)

func TestNewMessagePrefixesComputeBudget(t *testing.T) {
	t.Parallel()

	transfer := txbuilder.NewTransferInstruction("frompk", "topk", 42)
	message, err := txbuilder.NewMessage("frompk", "blockhash111", transfer)
	require.NoError(t, err)

	require.Len(t, message.Instructions, 2)
	require.Equal(
		t, txbuilder.ComputeBudgetProgramID, message.Instructions[0].ProgramID,
	)
	require.Equal(t, transfer, message.Instructions[1])
}

func TestFailingNewMessage(t *testing.T) {
	t.Parallel()

	transfer := txbuilder.NewTransferInstruction("frompk", "topk", 42)

	tests := []struct {
		name          string
		payer         string
		blockhash     string
		instructions  []txbuilder.Instruction
		expectedError error
	}{
		{
			name:          "missing_payer",
			blockhash:     "blockhash111",
			instructions:  []txbuilder.Instruction{transfer},
			expectedError: txbuilder.ErrMissingPayer,
		},
		{
			name:          "missing_blockhash",
			payer:         "frompk",
			instructions:  []txbuilder.Instruction{transfer},
			expectedError: txbuilder.ErrMissingBlockhash,
		},
		{
			name:          "no_instructions",
			payer:         "frompk",
			blockhash:     "blockhash111",
			expectedError: txbuilder.ErrNoInstructions,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			message, err := txbuilder.NewMessage(
				tt.payer, tt.blockhash, tt.instructions...,
			)
			require.Nil(t, message)
			require.ErrorIs(t, err, tt.expectedError)
		})
	}
}

func TestSignAndSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	payer, err := keyderive.Derive(bytes.Repeat([]byte{0x11}, 64), 0)
	require.NoError(t, err)

	shield := txbuilder.NewShieldInstruction(payer.Address(), 1_000_000)
	message, err := txbuilder.NewMessage(payer.Address(), "blockhash111", shield)
	require.NoError(t, err)

	tx := txbuilder.NewTransaction(message)
	require.NoError(t, tx.Sign(payer))
	require.NotEmpty(t, tx.Signature())

	encoded, err := tx.Serialize()
	require.NoError(t, err)

	decoded, err := txbuilder.Deserialize(encoded)
	require.NoError(t, err)
	require.Equal(t, tx.Message.Payer, decoded.Message.Payer)
	require.Equal(t, tx.Signatures, decoded.Signatures)
}

func TestRelayCoSignKeepsRelaySignature(t *testing.T) {
	t.Parallel()

	relay, err := keyderive.Derive(bytes.Repeat([]byte{0x22}, 64), 0)
	require.NoError(t, err)
	user, err := keyderive.Derive(bytes.Repeat([]byte{0x33}, 64), 0)
	require.NoError(t, err)

	// the relay is the fee payer and first signer
	unshield := txbuilder.NewUnshieldInstruction(
		user.Address(), "recipient", 5_000_000, []byte("proof"),
	)
	message, err := txbuilder.NewMessage(relay.Address(), "blockhash111", unshield)
	require.NoError(t, err)

	tx := txbuilder.NewTransaction(message)
	require.NoError(t, tx.Sign(relay))
	partial, err := tx.Serialize()
	require.NoError(t, err)

	// the caller co-signs the partially-signed transaction
	received, err := txbuilder.Deserialize(partial)
	require.NoError(t, err)
	require.NoError(t, received.Sign(user))

	require.Len(t, received.Signatures, 2)
	require.Equal(t, tx.Signatures[relay.Address()], received.Signatures[relay.Address()])
	require.Equal(t, received.Signature(), received.Signatures[relay.Address()])
}

func TestInstructionDataEncodesAmount(t *testing.T) {
	t.Parallel()

	shield := txbuilder.NewShieldInstruction("payerpk", 0x0102030405060708)
	require.Len(t, shield.Data, 9)
	require.Equal(
		t,
		[]byte{0x01, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01},
		shield.Data,
	)
}

func TestTokenTransferInstructionCarriesMintAndProof(t *testing.T) {
	t.Parallel()

	transfer := txbuilder.NewTokenTransferInstruction(
		"ownerpk", "recipientpk", "mintpk", 42, []byte("proof"),
	)
	require.Len(t, transfer.Accounts, 3)
	require.Equal(t, "mintpk", transfer.Accounts[2].PublicKey)
	require.True(t, transfer.Accounts[0].IsSigner)
	// opcode, little-endian amount, opaque proof tail
	require.Equal(t, byte(0x03), transfer.Data[0])
	require.Equal(t, []byte("proof"), transfer.Data[9:])
}
