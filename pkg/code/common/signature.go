package common

import (
	"crypto/ed25519"
	"encoding/base64"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Signature is a raw ed25519 signature.
type Signature [ed25519.SignatureSize]byte

// NewSignatureFromBase64 decodes a standard, padded base64 signature that
// must be exactly 64 bytes.
func NewSignatureFromBase64(value string) (Signature, error) {
	var sig Signature

	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return sig, errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if len(decoded) != len(sig) {
		return sig, errors.Wrapf(ErrInvalidSignature, "got %d bytes", len(decoded))
	}

	copy(sig[:], decoded)
	return sig, nil
}

func NewSignatureFromBytes(value []byte) (Signature, error) {
	var sig Signature
	if len(value) != len(sig) {
		return sig, errors.Wrapf(ErrInvalidSignature, "got %d bytes", len(value))
	}

	copy(sig[:], value)
	return sig, nil
}

func (s Signature) ToBytes() []byte {
	return s[:]
}

func (s Signature) ToBase64() string {
	return base64.StdEncoding.EncodeToString(s[:])
}

func (s Signature) ToBase58() string {
	return base58.Encode(s[:])
}
