// Package txbuilder assembles and signs the transactions submitted to the
// ledger. The message layout is owned by the ledger programs; this package
// only guarantees a deterministic serialization the relay and the ledger both
// accept.
package txbuilder

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"

	"github.com/mr-tron/base58"
)

// Program identifiers of the instructions the daemon assembles.
const (
	ComputeBudgetProgramID = "ComputeBudget111111111111111111111111111111"
	SystemProgramID        = "11111111111111111111111111111111"
	CompressionProgramID   = "VeiLcmp1111111111111111111111111111111111111"
)

// ComputeUnitLimit is the fixed compute budget requested by every transaction.
const ComputeUnitLimit = uint32(1_000_000)

// instruction opcodes of the compression program
const (
	opShield   = byte(0x01)
	opUnshield = byte(0x02)
	opTransfer = byte(0x03)
)

var (
	// ErrMissingBlockhash ...
	ErrMissingBlockhash = errors.New("transaction requires a recent blockhash")
	// ErrMissingPayer ...
	ErrMissingPayer = errors.New("transaction requires a fee payer")
	// ErrNoInstructions ...
	ErrNoInstructions = errors.New("transaction requires at least one instruction")
)

// AccountMeta references an account touched by an instruction.
type AccountMeta struct {
	PublicKey  string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID string        `json:"programId"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// NewComputeUnitLimitInstruction caps the compute units of the transaction.
func NewComputeUnitLimitInstruction(units uint32) Instruction {
	data := make([]byte, 5)
	data[0] = 0x02
	binary.LittleEndian.PutUint32(data[1:], units)
	return Instruction{
		ProgramID: ComputeBudgetProgramID,
		Data:      data,
	}
}

// NewTransferInstruction moves lamports between two transparent accounts.
func NewTransferInstruction(from, to string, lamports uint64) Instruction {
	data := make([]byte, 9)
	data[0] = 0x02
	binary.LittleEndian.PutUint64(data[1:], lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{PublicKey: from, IsSigner: true, IsWritable: true},
			{PublicKey: to, IsWritable: true},
		},
		Data: data,
	}
}

// NewShieldInstruction moves lamports from the payer's transparent account
// into the shielded pool.
func NewShieldInstruction(payer string, lamports uint64) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
		},
		Data: encodeAmountData(opShield, lamports, nil),
	}
}

// NewUnshieldInstruction moves lamports out of the shielded pool to a
// transparent recipient. The validity proof is carried opaque.
func NewUnshieldInstruction(
	owner, recipient string, lamports uint64, proof []byte,
) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: recipient, IsWritable: true},
		},
		Data: encodeAmountData(opUnshield, lamports, proof),
	}
}

// NewShieldToInstruction shields lamports from the payer's transparent
// account crediting the note to a different owner.
func NewShieldToInstruction(payer, recipient string, lamports uint64) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: recipient, IsWritable: true},
		},
		Data: encodeAmountData(opShield, lamports, nil),
	}
}

// NewShieldTokenInstruction shields a token amount from the payer's
// transparent token account crediting the note to the recipient.
func NewShieldTokenInstruction(
	payer, recipient, mint string, amount uint64,
) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: payer, IsSigner: true, IsWritable: true},
			{PublicKey: recipient, IsWritable: true},
			{PublicKey: mint},
		},
		Data: encodeAmountData(opShield, amount, nil),
	}
}

// NewTokenUnshieldInstruction moves a token amount out of the shielded pool
// to a transparent recipient.
func NewTokenUnshieldInstruction(
	owner, recipient, mint string, amount uint64, proof []byte,
) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: recipient, IsWritable: true},
			{PublicKey: mint},
		},
		Data: encodeAmountData(opUnshield, amount, proof),
	}
}

// NewTokenTransferInstruction moves a token amount between two shielded
// owners.
func NewTokenTransferInstruction(
	owner, recipient, mint string, amount uint64, proof []byte,
) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: recipient, IsWritable: true},
			{PublicKey: mint},
		},
		Data: encodeAmountData(opTransfer, amount, proof),
	}
}

// NewShieldedTransferInstruction moves lamports between two shielded owners.
func NewShieldedTransferInstruction(
	owner, recipient string, lamports uint64, proof []byte,
) Instruction {
	return Instruction{
		ProgramID: CompressionProgramID,
		Accounts: []AccountMeta{
			{PublicKey: owner, IsSigner: true, IsWritable: true},
			{PublicKey: recipient, IsWritable: true},
		},
		Data: encodeAmountData(opTransfer, lamports, proof),
	}
}

func encodeAmountData(op byte, amount uint64, tail []byte) []byte {
	data := make([]byte, 9, 9+len(tail))
	data[0] = op
	binary.LittleEndian.PutUint64(data[1:], amount)
	return append(data, tail...)
}

// Message is the signable payload of a transaction. Instructions are always
// prefixed with the fixed compute-unit-limit instruction.
type Message struct {
	Payer        string        `json:"payer"`
	Blockhash    string        `json:"recentBlockhash"`
	Instructions []Instruction `json:"instructions"`
}

// NewMessage builds a message from the given instruction list.
func NewMessage(
	payer, blockhash string, instructions ...Instruction,
) (*Message, error) {
	if payer == "" {
		return nil, ErrMissingPayer
	}
	if blockhash == "" {
		return nil, ErrMissingBlockhash
	}
	if len(instructions) == 0 {
		return nil, ErrNoInstructions
	}

	prefixed := make([]Instruction, 0, len(instructions)+1)
	prefixed = append(prefixed, NewComputeUnitLimitInstruction(ComputeUnitLimit))
	prefixed = append(prefixed, instructions...)

	return &Message{
		Payer:        payer,
		Blockhash:    blockhash,
		Instructions: prefixed,
	}, nil
}

// Serialize returns the canonical byte encoding signatures are computed over.
func (m *Message) Serialize() ([]byte, error) {
	return json.Marshal(m)
}

// Transaction is a message plus the signatures collected so far, keyed by the
// base58 public key of each signer.
type Transaction struct {
	Message    *Message          `json:"message"`
	Signatures map[string]string `json:"signatures"`
}

// NewTransaction wraps a message into an unsigned transaction.
func NewTransaction(message *Message) *Transaction {
	return &Transaction{
		Message:    message,
		Signatures: map[string]string{},
	}
}

// MessageSigner produces a signature over raw message bytes. It is satisfied
// by keyderive.Keypair and by the ports.Signer adapters.
type MessageSigner interface {
	Address() string
	Sign(message []byte) []byte
}

// Sign adds the signer's signature over the serialized message.
func (t *Transaction) Sign(signer MessageSigner) error {
	payload, err := t.Message.Serialize()
	if err != nil {
		return err
	}
	t.Signatures[signer.Address()] = base58.Encode(signer.Sign(payload))
	return nil
}

// Signature returns the fee payer's signature, the handle callers keep once
// the transaction is submitted.
func (t *Transaction) Signature() string {
	return t.Signatures[t.Message.Payer]
}

// Serialize returns the base64 encoding used for submission and relay
// transport.
func (t *Transaction) Serialize() (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Deserialize decodes a base64 transaction, typically a partially-signed one
// returned by the relay.
func Deserialize(encoded string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	tx := &Transaction{}
	if err := json.Unmarshal(raw, tx); err != nil {
		return nil, err
	}
	if tx.Signatures == nil {
		tx.Signatures = map[string]string{}
	}
	return tx, nil
}
