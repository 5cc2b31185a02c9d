// Package instruction builds the Solana instructions exposed by the
// instruction server from validated accounts.
package instruction

import (
	"github.com/pkg/errors"

	"github.com/code-payments/code-instruction-server/pkg/code/common"
	"github.com/code-payments/code-instruction-server/pkg/solana"
	"github.com/code-payments/code-instruction-server/pkg/solana/system"
	"github.com/code-payments/code-instruction-server/pkg/solana/token"
)

var (
	ErrZeroAmount  = errors.New("amount must be greater than zero")
	ErrSameAccount = errors.New("source and destination accounts are the same")
)

// NewInitializeMintInstruction initializes mint with the provided authority
// and decimal precision. No freeze authority is set.
func NewInitializeMintInstruction(mint, mintAuthority *common.Account, decimals uint8) (*solana.Instruction, error) {
	if err := validateAccounts(mint, mintAuthority); err != nil {
		return nil, err
	}

	ixn := token.InitializeMint(
		mint.PublicKey().ToBytes(),
		mintAuthority.PublicKey().ToBytes(),
		nil,
		decimals,
	)
	return finalize(ixn)
}

// NewMintToInstruction mints amount tokens of mint into destination, signed
// by authority. Zero amounts are encoded as-is.
func NewMintToInstruction(mint, destination, authority *common.Account, amount uint64) (*solana.Instruction, error) {
	if err := validateAccounts(mint, destination, authority); err != nil {
		return nil, err
	}

	ixn := token.MintTo(
		mint.PublicKey().ToBytes(),
		destination.PublicKey().ToBytes(),
		authority.PublicKey().ToBytes(),
		amount,
	)
	return finalize(ixn)
}

// NewSolTransferInstruction transfers lamports from one system account to
// another.
func NewSolTransferInstruction(from, to *common.Account, lamports uint64) (*solana.Instruction, error) {
	if err := validateAccounts(from, to); err != nil {
		return nil, err
	}
	if lamports == 0 {
		return nil, ErrZeroAmount
	}
	if from.Equals(to) {
		return nil, ErrSameAccount
	}

	ixn := system.Transfer(
		from.PublicKey().ToBytes(),
		to.PublicKey().ToBytes(),
		lamports,
	)
	return finalize(ixn)
}

// NewTokenTransferInstruction transfers amount tokens of mint between the
// associated token accounts of owner and destination. owner signs.
func NewTokenTransferInstruction(destination, mint, owner *common.Account, amount uint64) (*solana.Instruction, error) {
	if err := validateAccounts(destination, mint, owner); err != nil {
		return nil, err
	}
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if owner.Equals(destination) {
		return nil, ErrSameAccount
	}

	source, err := owner.ToAssociatedTokenAccount(mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving source token account")
	}

	destinationAta, err := destination.ToAssociatedTokenAccount(mint)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving destination token account")
	}

	ixn := token.Transfer(
		source.PublicKey().ToBytes(),
		destinationAta.PublicKey().ToBytes(),
		owner.PublicKey().ToBytes(),
		amount,
	)
	return finalize(ixn)
}

func validateAccounts(accounts ...*common.Account) error {
	for i, account := range accounts {
		if err := account.Validate(); err != nil {
			return errors.Wrapf(err, "invalid account at index %d", i)
		}
	}
	return nil
}

func finalize(ixn solana.Instruction) (*solana.Instruction, error) {
	if err := ixn.Validate(); err != nil {
		return nil, errors.Wrap(err, "error encoding instruction")
	}
	return &ixn, nil
}
