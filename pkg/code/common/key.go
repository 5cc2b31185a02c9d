package common

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidPublicKey  = errors.New("invalid public key")
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// Key is an ed25519 public or private key alongside its base58 encoding.
type Key struct {
	bytesValue  []byte
	stringValue string
}

func NewKeyFromBytes(value []byte) (*Key, error) {
	k := &Key{
		bytesValue:  value,
		stringValue: base58.Encode(value),
	}

	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func NewKeyFromString(value string) (*Key, error) {
	bytesValue, err := base58.Decode(value)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding string as base58")
	}

	k := &Key{
		bytesValue:  bytesValue,
		stringValue: value,
	}

	if err := k.Validate(); err != nil {
		return nil, err
	}
	return k, nil
}

// NewPublicKeyFromString decodes a base58 address that must be exactly 32 bytes.
func NewPublicKeyFromString(value string) (*Key, error) {
	k, err := NewKeyFromString(value)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPublicKey, err.Error())
	}
	if !k.IsPublic() {
		return nil, errors.Wrapf(ErrInvalidPublicKey, "got %d bytes", len(k.bytesValue))
	}
	return k, nil
}

// NewPrivateKeyFromString decodes a base58 secret that must be exactly 64
// bytes: the 32 byte seed followed by the 32 byte public key.
func NewPrivateKeyFromString(value string) (*Key, error) {
	k, err := NewKeyFromString(value)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidPrivateKey, err.Error())
	}
	if k.IsPublic() {
		return nil, errors.Wrapf(ErrInvalidPrivateKey, "got %d bytes", len(k.bytesValue))
	}
	return k, nil
}

func NewRandomKey() (*Key, error) {
	_, privateKeyBytes, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, errors.Wrap(err, "error generating private key")
	}

	return NewKeyFromBytes(privateKeyBytes)
}

func (k *Key) ToBytes() []byte {
	return k.bytesValue
}

func (k *Key) ToBase58() string {
	return k.stringValue
}

func (k *Key) IsPublic() bool {
	return len(k.bytesValue) == ed25519.PublicKeySize
}

func (k *Key) Equals(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.stringValue == other.stringValue
}

func (k *Key) Validate() error {
	if k == nil {
		return errors.New("key is nil")
	}

	if len(k.bytesValue) != ed25519.PublicKeySize && len(k.bytesValue) != ed25519.PrivateKeySize {
		return errors.New("key must be an ed25519 public or private key")
	}

	if base58.Encode(k.bytesValue) != k.stringValue {
		return errors.New("bytes and string representation don't match")
	}

	return nil
}
