package solana

import (
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	maxSeeds      = 16
	maxSeedLength = 32

	programAddressMarker = "ProgramDerivedAddress"
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")

	ErrInvalidPublicKey      = errors.New("invalid public key")
	ErrNoValidProgramAddress = errors.New("unable to find a valid program address")
	ErrInvalidProgramKey     = errors.New("program key must be 32 bytes")
)

var (
	programHashCtor = sha256.New
)

// CreateProgramAddress mirrors the implementation of the Solana SDK's CreateProgramAddress.
//
// Program addresses are public keys that _do not_ lie on the ed25519 curve, so
// that no private key can exist for them. If the program and seeds hash to a
// valid curve point, ErrInvalidPublicKey is returned.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(program) != ed25519.PublicKeySize {
		return nil, ErrInvalidProgramKey
	}
	if len(seeds) > maxSeeds {
		return nil, ErrTooManySeeds
	}

	for _, seed := range seeds {
		if len(seed) > maxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}
	}

	pub, err := hashProgramAddress(program, seeds)
	if err != nil {
		return nil, err
	}

	// golang.org/x/crypto keeps its EdwardsPoint internal, so the decompression
	// check is done with the standalone edwards25519 package. A successful
	// decompression means the hash is on the curve and must be rejected.
	//
	// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L182-L187
	var A edwards25519.ExtendedGroupElement
	if A.FromBytes(&pub) {
		return nil, ErrInvalidPublicKey
	}

	return pub[:], nil
}

// hashProgramAddress computes sha256(seeds || program || marker), the
// candidate address before the curve check.
func hashProgramAddress(program ed25519.PublicKey, seeds [][]byte) ([32]byte, error) {
	var pub [32]byte

	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, seeds...)
	parts = append(parts, program, []byte(programAddressMarker))

	h := programHashCtor()
	for _, v := range parts {
		if _, err := h.Write(v); err != nil {
			return pub, errors.Wrap(err, "failed to hash seed")
		}
	}

	copy(pub[:], h.Sum(nil))
	return pub, nil
}

// FindProgramAddressAndBump mirrors the implementation of the Solana SDK's
// FindProgramAddress. It returns the address and bump seed.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	bumpSeed := []byte{math.MaxUint8}
	for i := 0; i < math.MaxUint8; i++ {
		pub, err := CreateProgramAddress(program, append(seeds, bumpSeed)...)
		if err == nil {
			return pub, bumpSeed[0], nil
		}
		if err != ErrInvalidPublicKey {
			return nil, 0, err
		}

		bumpSeed[0]--
	}

	return nil, 0, ErrNoValidProgramAddress
}

// FindProgramAddress is FindProgramAddressAndBump without the bump seed.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	pub, _, err := FindProgramAddressAndBump(program, seeds...)
	return pub, err
}
