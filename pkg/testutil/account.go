package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-instruction-server/pkg/code/common"
)

// NewRandomAccount returns a fresh key pair account
func NewRandomAccount(t *testing.T) *common.Account {
	account, err := common.NewRandomAccount()
	require.NoError(t, err)

	return account
}

// NewRandomPublicAccount returns an account for a fresh address whose private
// key is discarded, as when an address is supplied by a caller.
func NewRandomPublicAccount(t *testing.T) *common.Account {
	account, err := common.NewAccountFromPublicKey(NewRandomAccount(t).PublicKey())
	require.NoError(t, err)

	return account
}
