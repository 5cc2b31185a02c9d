package solana

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
	ErrInvalidKeyLength     = errors.New("invalid key length")
)

// AccountMeta represents an account referenced by an instruction, along
// with the role it plays in it.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// Instruction represents a program invocation. Account order is significant
// and is never changed once the instruction is built.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// Validate checks that every key referenced by the instruction is a well
// formed 32 byte address.
func (i Instruction) Validate() error {
	if len(i.Program) != ed25519.PublicKeySize {
		return errors.Wrapf(ErrInvalidKeyLength, "program key is %d bytes", len(i.Program))
	}

	for idx, account := range i.Accounts {
		if len(account.PublicKey) != ed25519.PublicKeySize {
			return errors.Wrapf(ErrInvalidKeyLength, "account %d is %d bytes", idx, len(account.PublicKey))
		}
	}

	return nil
}

// AccountAddresses returns the base58 encoded addresses of the instruction's
// accounts, in order.
func (i Instruction) AccountAddresses() []string {
	addresses := make([]string, len(i.Accounts))
	for idx, account := range i.Accounts {
		addresses[idx] = base58.Encode(account.PublicKey)
	}
	return addresses
}
