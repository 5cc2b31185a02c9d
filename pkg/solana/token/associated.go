package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-instruction-server/pkg/solana"
)

// AssociatedTokenAccountProgramKey is the address of the associated token
// account program, ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL.
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

// GetAssociatedAccount derives the token account owned by wallet for mint.
// The address is a program address of the associated token account program
// seeded with [wallet, token program, mint].
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	if len(wallet) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(solana.ErrInvalidKeyLength, "wallet is %d bytes", len(wallet))
	}
	if len(mint) != ed25519.PublicKeySize {
		return nil, errors.Wrapf(solana.ErrInvalidKeyLength, "mint is %d bytes", len(mint))
	}

	return solana.FindProgramAddress(AssociatedTokenAccountProgramKey, wallet, ProgramKey, mint)
}
