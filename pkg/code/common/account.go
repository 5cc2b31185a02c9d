package common

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/code-instruction-server/pkg/solana/token"
)

// Account is a Solana account identified by its public key. The private key
// is only present for key pairs supplied by, or generated for, the caller.
type Account struct {
	publicKey  *Key
	privateKey *Key // Optional
}

func NewAccountFromPublicKey(publicKey *Key) (*Account, error) {
	account := &Account{
		publicKey: publicKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPublicKeyBytes(publicKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

// NewAccountFromPublicKeyString parses a base58 address into an account.
func NewAccountFromPublicKeyString(publicKey string) (*Account, error) {
	key, err := NewPublicKeyFromString(publicKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKey(key)
}

// NewAccountFromPrivateKey builds a key pair account. The public key is always
// derived from the seed half; a secret whose trailing public half disagrees
// with that derivation is rejected.
func NewAccountFromPrivateKey(privateKey *Key) (*Account, error) {
	if privateKey == nil || privateKey.IsPublic() {
		return nil, errors.Wrap(ErrInvalidPrivateKey, "key is not a private key")
	}

	derived := ed25519.NewKeyFromSeed(privateKey.ToBytes()[:ed25519.SeedSize])
	if !bytes.Equal(derived, privateKey.ToBytes()) {
		return nil, errors.Wrap(ErrInvalidPrivateKey, "public key does not match seed")
	}

	publicKey, err := NewKeyFromBytes(derived.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, errors.Wrap(err, "error creating public key from private key")
	}

	account := &Account{
		publicKey:  publicKey,
		privateKey: privateKey,
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}
	return account, nil
}

func NewAccountFromPrivateKeyBytes(privateKey []byte) (*Account, error) {
	key, err := NewKeyFromBytes(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

// NewAccountFromPrivateKeyString parses a base58 encoded 64 byte secret into a
// key pair account.
func NewAccountFromPrivateKeyString(privateKey string) (*Account, error) {
	key, err := NewPrivateKeyFromString(privateKey)
	if err != nil {
		return nil, err
	}

	return NewAccountFromPrivateKey(key)
}

// NewRandomAccount generates a fresh key pair from the system entropy source.
func NewRandomAccount() (*Account, error) {
	key, err := NewRandomKey()
	if err != nil {
		return nil, err
	}

	account, err := NewAccountFromPrivateKey(key)
	if err != nil {
		return nil, errors.Wrap(err, "invalid account")
	}

	return account, nil
}

func (a *Account) PublicKey() *Key {
	return a.publicKey
}

func (a *Account) PrivateKey() *Key {
	return a.privateKey
}

func (a *Account) Sign(message []byte) (Signature, error) {
	var signature Signature
	if a.privateKey == nil {
		return signature, errors.New("private key not available")
	}

	copy(signature[:], ed25519.Sign(a.privateKey.ToBytes(), message))
	return signature, nil
}

// Verify reports whether signature is a valid signature of message by this
// account. It never fails; any mismatch is reported as false.
func (a *Account) Verify(message []byte, signature Signature) bool {
	return Verify(a.publicKey, message, signature)
}

// Verify reports whether signature is a valid ed25519 signature of message
// under publicKey.
func Verify(publicKey *Key, message []byte, signature Signature) bool {
	if publicKey == nil || !publicKey.IsPublic() {
		return false
	}
	return ed25519.Verify(publicKey.ToBytes(), message, signature[:])
}

func (a *Account) ToAssociatedTokenAccount(mint *Account) (*Account, error) {
	if err := a.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating owner account")
	}
	if err := mint.Validate(); err != nil {
		return nil, errors.Wrap(err, "error validating mint account")
	}

	ata, err := token.GetAssociatedAccount(a.PublicKey().ToBytes(), mint.PublicKey().ToBytes())
	if err != nil {
		return nil, err
	}

	return NewAccountFromPublicKeyBytes(ata)
}

func (a *Account) Equals(other *Account) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.publicKey.Equals(other.publicKey)
}

func (a *Account) Validate() error {
	if a == nil {
		return errors.New("account is nil")
	}

	if a.publicKey == nil {
		return errors.New("public key is nil")
	}

	if err := a.publicKey.Validate(); err != nil {
		return errors.Wrap(err, "error validating public key")
	}

	if !a.publicKey.IsPublic() {
		return errors.New("public key isn't a public key")
	}

	if a.privateKey != nil {
		if err := a.privateKey.Validate(); err != nil {
			return errors.Wrap(err, "error validating private key")
		}

		if a.privateKey.IsPublic() {
			return errors.New("private key isn't a private key")
		}

		expectedPublicKey := ed25519.PrivateKey(a.privateKey.ToBytes()).Public().(ed25519.PublicKey)
		if !bytes.Equal(expectedPublicKey, a.publicKey.ToBytes()) {
			return errors.New("private key doesn't map to public key")
		}
	}

	return nil
}
