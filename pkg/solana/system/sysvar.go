package system

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

// RentSysVar is the address of the Rent sysvar account, which the token
// program reads when initializing a mint.
//
// Source: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/sysvar/rent.rs#L11
var RentSysVar = mustDecodeAddress("SysvarRent111111111111111111111111111111111")

func mustDecodeAddress(address string) ed25519.PublicKey {
	decoded, err := base58.Decode(address)
	if err != nil {
		panic(err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		panic("invalid address length: " + address)
	}
	return decoded
}
