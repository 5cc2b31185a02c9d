package instruction

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-instruction-server/pkg/code/common"
	"github.com/code-payments/code-instruction-server/pkg/solana/system"
	"github.com/code-payments/code-instruction-server/pkg/solana/token"
	"github.com/code-payments/code-instruction-server/pkg/testutil"
)

const (
	systemProgramAddress = "11111111111111111111111111111111"
	tokenProgramAddress  = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	rentSysVarAddress    = "SysvarRent111111111111111111111111111111111"
)

type testEnv struct {
	server   *Server
	handlers map[string]http.HandlerFunc
}

type testResponse struct {
	statusCode int
	header     http.Header
	body       map[string]any
}

func (r *testResponse) success() bool {
	success, _ := r.body["success"].(bool)
	return success
}

func (r *testResponse) errorText() string {
	text, _ := r.body["error"].(string)
	return text
}

func (r *testResponse) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func setup(t *testing.T, overrides *testOverrides) *testEnv {
	if overrides == nil {
		overrides = &testOverrides{}
	}

	server := NewInstructionServer(withManualTestOverrides(overrides))
	return &testEnv{
		server:   server,
		handlers: server.GetHandlers(),
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *testResponse {
	var raw []byte
	switch typed := body.(type) {
	case nil:
	case string:
		raw = []byte(typed)
	default:
		var err error
		raw, err = json.Marshal(typed)
		require.NoError(t, err)
	}

	handler, ok := e.handlers[path]
	require.True(t, ok, "no handler for %s", path)

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	recorder := httptest.NewRecorder()
	handler(recorder, req)

	resp := &testResponse{
		statusCode: recorder.Code,
		header:     recorder.Header(),
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp.body))
	return resp
}

func (e *testEnv) post(t *testing.T, path string, body any) *testResponse {
	return e.do(t, http.MethodPost, path, body)
}

func newTestAddress(t *testing.T) string {
	return testutil.NewRandomPublicAccount(t).PublicKey().ToBase58()
}

func decodeInstructionData(t *testing.T, resp *testResponse) []byte {
	decoded, err := base64.StdEncoding.DecodeString(resp.data()["instruction_data"].(string))
	require.NoError(t, err)
	return decoded
}

func assertFailure(t *testing.T, resp *testResponse, kind error) {
	assert.False(t, resp.success())
	assert.Nil(t, resp.body["data"])
	assert.True(t, strings.HasPrefix(resp.errorText(), kind.Error()), "unexpected error %q", resp.errorText())
}

func assertAccountMeta(t *testing.T, raw any, address string, isSigner, isWritable bool, signerKey, writableKey string) {
	meta, ok := raw.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, address, meta["pubkey"])
	assert.Equal(t, isSigner, meta[signerKey])
	assert.Equal(t, isWritable, meta[writableKey])
	assert.Len(t, meta, 3)
}

func TestRootHandler(t *testing.T) {
	env := setup(t, nil)
	handler := env.handlers[rootPath]

	recorder := httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "Hello World", recorder.Body.String())

	recorder = httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodGet, "/unknown", nil))
	assert.Equal(t, http.StatusNotFound, recorder.Code)

	recorder = httptest.NewRecorder()
	handler(recorder, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}

func TestKeypair(t *testing.T) {
	env := setup(t, nil)

	first := env.post(t, keypairPath, nil)
	second := env.post(t, keypairPath, nil)

	for _, resp := range []*testResponse{first, second} {
		require.True(t, resp.success())
		assert.Equal(t, http.StatusOK, resp.statusCode)
		assert.Equal(t, jsonContentTypeHeaderValue, resp.header.Get(contentTypeHeaderName))

		pubkey, err := base58.Decode(resp.data()["pubkey"].(string))
		require.NoError(t, err)
		secret, err := base58.Decode(resp.data()["secret"].(string))
		require.NoError(t, err)

		require.Len(t, pubkey, ed25519.PublicKeySize)
		require.Len(t, secret, ed25519.PrivateKeySize)
		assert.Equal(t, pubkey, secret[ed25519.SeedSize:])

		account, err := common.NewAccountFromPrivateKeyString(resp.data()["secret"].(string))
		require.NoError(t, err)
		assert.Equal(t, resp.data()["pubkey"], account.PublicKey().ToBase58())
	}

	assert.NotEqual(t, first.data()["pubkey"], second.data()["pubkey"])
	assert.NotEqual(t, first.data()["secret"], second.data()["secret"])
	assert.NotEqual(t, first.header.Get(requestIdHeaderName), second.header.Get(requestIdHeaderName))
}

func TestSignAndVerify(t *testing.T) {
	env := setup(t, nil)
	signer := testutil.NewRandomAccount(t)

	signResp := env.post(t, signMessagePath, map[string]string{
		"message": "hello",
		"secret":  signer.PrivateKey().ToBase58(),
	})
	require.True(t, signResp.success())
	assert.Equal(t, signer.PublicKey().ToBase58(), signResp.data()["public_key"])
	assert.Equal(t, "hello", signResp.data()["message"])

	signature := signResp.data()["signature"].(string)
	decodedSignature, err := base64.StdEncoding.DecodeString(signature)
	require.NoError(t, err)
	require.Len(t, decodedSignature, ed25519.SignatureSize)

	// Signing is deterministic
	again := env.post(t, signMessagePath, map[string]string{
		"message": "hello",
		"secret":  signer.PrivateKey().ToBase58(),
	})
	assert.Equal(t, signature, again.data()["signature"])

	verify := func(message, signature, pubkey string) *testResponse {
		return env.post(t, verifyMessagePath, map[string]string{
			"message":   message,
			"signature": signature,
			"pubkey":    pubkey,
		})
	}

	resp := verify("hello", signature, signResp.data()["public_key"].(string))
	require.True(t, resp.success())
	assert.Equal(t, true, resp.data()["valid"])
	assert.Equal(t, "hello", resp.data()["message"])
	assert.Equal(t, signer.PublicKey().ToBase58(), resp.data()["pubkey"])

	resp = verify("hellx", signature, signer.PublicKey().ToBase58())
	require.True(t, resp.success())
	assert.Equal(t, false, resp.data()["valid"])

	tampered := append([]byte{}, decodedSignature...)
	tampered[10] ^= 0xff
	resp = verify("hello", base64.StdEncoding.EncodeToString(tampered), signer.PublicKey().ToBase58())
	require.True(t, resp.success())
	assert.Equal(t, false, resp.data()["valid"])

	resp = verify("hello", signature, newTestAddress(t))
	require.True(t, resp.success())
	assert.Equal(t, false, resp.data()["valid"])
}

func TestSignMessage_Validation(t *testing.T) {
	env := setup(t, nil)
	signer := testutil.NewRandomAccount(t)

	resp := env.post(t, signMessagePath, map[string]string{"secret": signer.PrivateKey().ToBase58()})
	assertFailure(t, resp, ErrMissingField)
	assert.Contains(t, resp.errorText(), "message")

	resp = env.post(t, signMessagePath, map[string]string{"message": " \t\n", "secret": signer.PrivateKey().ToBase58()})
	assertFailure(t, resp, ErrMissingField)

	resp = env.post(t, signMessagePath, map[string]string{"message": "hello", "secret": signer.PublicKey().ToBase58()})
	assertFailure(t, resp, ErrInvalidSecret)

	resp = env.post(t, signMessagePath, map[string]string{"message": "hello", "secret": "0OIl"})
	assertFailure(t, resp, ErrInvalidSecret)

	// The public half must match the seed
	mismatched := append([]byte{}, signer.PrivateKey().ToBytes()[:ed25519.SeedSize]...)
	mismatched = append(mismatched, testutil.NewRandomAccount(t).PublicKey().ToBytes()...)
	resp = env.post(t, signMessagePath, map[string]string{"message": "hello", "secret": base58.Encode(mismatched)})
	assertFailure(t, resp, ErrInvalidSecret)
}

func TestVerifyMessage_Validation(t *testing.T) {
	env := setup(t, nil)
	signer := testutil.NewRandomAccount(t)

	signature, err := signer.Sign([]byte("hello"))
	require.NoError(t, err)

	resp := env.post(t, verifyMessagePath, map[string]string{
		"message":   "hello",
		"signature": signature.ToBase64(),
	})
	assertFailure(t, resp, ErrMissingField)
	assert.Contains(t, resp.errorText(), "pubkey")

	// The pubkey is parsed before the signature
	resp = env.post(t, verifyMessagePath, map[string]string{
		"message":   "hello",
		"signature": "not base64!",
		"pubkey":    "not base58!",
	})
	assertFailure(t, resp, ErrInvalidAddress)

	resp = env.post(t, verifyMessagePath, map[string]string{
		"message":   "hello",
		"signature": "not base64!",
		"pubkey":    signer.PublicKey().ToBase58(),
	})
	assertFailure(t, resp, ErrInvalidSignatureFormat)

	resp = env.post(t, verifyMessagePath, map[string]string{
		"message":   "hello",
		"signature": base64.StdEncoding.EncodeToString(signature[:63]),
		"pubkey":    signer.PublicKey().ToBase58(),
	})
	assertFailure(t, resp, ErrInvalidSignatureFormat)

	resp = env.post(t, verifyMessagePath, map[string]string{
		"message":   "hello",
		"signature": signature.ToBase58(),
		"pubkey":    signer.PublicKey().ToBase58(),
	})
	assertFailure(t, resp, ErrInvalidSignatureFormat)
}

func TestCreateToken(t *testing.T) {
	env := setup(t, nil)
	mintAuthority := testutil.NewRandomAccount(t)
	mint := newTestAddress(t)

	resp := env.post(t, createTokenPath, map[string]any{
		"mintAuthority": mintAuthority.PublicKey().ToBase58(),
		"mint":          mint,
		"decimals":      6,
	})
	require.True(t, resp.success())

	assert.Equal(t, tokenProgramAddress, resp.data()["program_id"])

	accounts := resp.data()["accounts"].([]any)
	require.Len(t, accounts, 2)
	assertAccountMeta(t, accounts[0], mint, false, true, "is_signer", "is_writable")
	assertAccountMeta(t, accounts[1], rentSysVarAddress, false, false, "is_signer", "is_writable")

	data := decodeInstructionData(t, resp)
	require.Len(t, data, 35)
	assert.EqualValues(t, token.CommandInitializeMint, data[0])
	assert.EqualValues(t, 6, data[1])
	assert.Equal(t, mintAuthority.PublicKey().ToBytes(), data[2:34])
	assert.EqualValues(t, 0, data[34])

	resp = env.post(t, createTokenPath, map[string]any{
		"mintAuthority": mintAuthority.PublicKey().ToBase58(),
		"mint":          mint,
		"decimals":      0,
	})
	require.True(t, resp.success())
	assert.EqualValues(t, 0, decodeInstructionData(t, resp)[1])
}

func TestCreateToken_Validation(t *testing.T) {
	env := setup(t, nil)
	address := newTestAddress(t)

	resp := env.post(t, createTokenPath, map[string]any{"mintAuthority": address, "mint": newTestAddress(t)})
	assertFailure(t, resp, ErrMissingField)
	assert.Contains(t, resp.errorText(), "decimals")

	resp = env.post(t, createTokenPath, map[string]any{"mintAuthority": address, "mint": newTestAddress(t), "decimals": 256})
	assertFailure(t, resp, ErrInvalidRequestBody)

	resp = env.post(t, createTokenPath, map[string]any{"mintAuthority": "bad", "mint": "bad", "decimals": 6})
	assertFailure(t, resp, ErrInvalidAddress)
	assert.Equal(t, "invalid pubkey: mint", resp.errorText())

	resp = env.post(t, createTokenPath, map[string]any{"mintAuthority": "bad", "mint": address, "decimals": 6})
	assertFailure(t, resp, ErrInvalidAddress)
	assert.Equal(t, "invalid pubkey: mintAuthority", resp.errorText())
}

func TestMintToken(t *testing.T) {
	env := setup(t, nil)
	mint := newTestAddress(t)
	destination := newTestAddress(t)
	authority := newTestAddress(t)

	resp := env.post(t, mintTokenPath, map[string]any{
		"mint":        mint,
		"destination": destination,
		"authority":   authority,
		"amount":      uint64(1_000_000),
	})
	require.True(t, resp.success())
	assert.Equal(t, tokenProgramAddress, resp.data()["program_id"])

	accounts := resp.data()["accounts"].([]any)
	require.Len(t, accounts, 3)
	assertAccountMeta(t, accounts[0], mint, false, true, "is_signer", "is_writable")
	assertAccountMeta(t, accounts[1], destination, false, true, "is_signer", "is_writable")
	assertAccountMeta(t, accounts[2], authority, true, false, "is_signer", "is_writable")

	data := decodeInstructionData(t, resp)
	require.Len(t, data, 9)
	assert.EqualValues(t, token.CommandMintTo, data[0])
	assert.EqualValues(t, 1_000_000, binary.LittleEndian.Uint64(data[1:]))

	resp = env.post(t, mintTokenPath, map[string]any{
		"mint":        mint,
		"destination": "bad",
		"authority":   "bad",
		"amount":      uint64(1),
	})
	assertFailure(t, resp, ErrInvalidAddress)
	assert.Contains(t, resp.errorText(), "destination")

	resp = env.post(t, mintTokenPath, map[string]any{
		"mint":        mint,
		"destination": destination,
		"authority":   authority,
		"amount":      -1,
	})
	assertFailure(t, resp, ErrInvalidRequestBody)
}

func TestSendSol(t *testing.T) {
	env := setup(t, nil)
	from := newTestAddress(t)
	to := newTestAddress(t)

	resp := env.post(t, sendSolPath, map[string]any{"from": from, "to": to, "lamports": uint64(5)})
	require.True(t, resp.success())

	assert.Equal(t, systemProgramAddress, resp.data()["program_id"])
	assert.Equal(t, []any{from, to}, resp.data()["accounts"])

	data := decodeInstructionData(t, resp)
	require.Len(t, data, 12)
	assert.EqualValues(t, 2, binary.LittleEndian.Uint32(data[:4]))
	assert.EqualValues(t, 5, binary.LittleEndian.Uint64(data[4:]))

	fromBytes, err := base58.Decode(from)
	require.NoError(t, err)
	toBytes, err := base58.Decode(to)
	require.NoError(t, err)

	decompiled, err := system.DecompileTransfer(system.Transfer(fromBytes, toBytes, 5))
	require.NoError(t, err)
	assert.EqualValues(t, 5, decompiled.Lamports)
	assert.Equal(t, system.Transfer(fromBytes, toBytes, 5).Data, data)
}

func TestSendSol_Validation(t *testing.T) {
	env := setup(t, nil)
	address := newTestAddress(t)

	// Identical sender and recipient
	resp := env.post(t, sendSolPath, map[string]any{"from": address, "to": address, "lamports": uint64(5)})
	assertFailure(t, resp, ErrSameAddress)

	// Zero lamports
	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": newTestAddress(t), "lamports": uint64(0)})
	assertFailure(t, resp, ErrAmountMustBePositive)

	// A missing field is reported before an invalid amount
	resp = env.post(t, sendSolPath, map[string]any{"from": "", "to": newTestAddress(t), "lamports": uint64(0)})
	assertFailure(t, resp, ErrMissingField)
	assert.Contains(t, resp.errorText(), "from")

	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": newTestAddress(t)})
	assertFailure(t, resp, ErrMissingField)
	assert.Contains(t, resp.errorText(), "lamports")

	// An invalid address is reported before an invalid amount
	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": "bad", "lamports": uint64(0)})
	assertFailure(t, resp, ErrInvalidAddress)

	// An invalid amount is reported before identical parties
	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": address, "lamports": uint64(0)})
	assertFailure(t, resp, ErrAmountMustBePositive)

	// Addresses must be exactly 32 bytes
	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": base58.Encode(make([]byte, 31)), "lamports": uint64(5)})
	assertFailure(t, resp, ErrInvalidAddress)
}

func TestSendToken(t *testing.T) {
	env := setup(t, nil)
	owner := testutil.NewRandomAccount(t)
	destination := testutil.NewRandomAccount(t)
	mint := testutil.NewRandomAccount(t)

	request := map[string]any{
		"destination": destination.PublicKey().ToBase58(),
		"mint":        mint.PublicKey().ToBase58(),
		"owner":       owner.PublicKey().ToBase58(),
		"amount":      uint64(42),
	}

	resp := env.post(t, sendTokenPath, request)
	require.True(t, resp.success())
	assert.Equal(t, tokenProgramAddress, resp.data()["program_id"])

	source, err := owner.ToAssociatedTokenAccount(mint)
	require.NoError(t, err)
	destinationAta, err := destination.ToAssociatedTokenAccount(mint)
	require.NoError(t, err)

	accounts := resp.data()["accounts"].([]any)
	require.Len(t, accounts, 3)
	assertAccountMeta(t, accounts[0], source.PublicKey().ToBase58(), false, true, "isSigner", "isWritable")
	assertAccountMeta(t, accounts[1], destinationAta.PublicKey().ToBase58(), false, true, "isSigner", "isWritable")
	assertAccountMeta(t, accounts[2], owner.PublicKey().ToBase58(), true, false, "isSigner", "isWritable")

	data := decodeInstructionData(t, resp)
	require.Len(t, data, 9)
	assert.EqualValues(t, token.CommandTransfer, data[0])
	assert.EqualValues(t, 42, binary.LittleEndian.Uint64(data[1:]))

	// Identical inputs produce identical instructions
	again := env.post(t, sendTokenPath, request)
	require.True(t, again.success())
	assert.Equal(t, resp.data(), again.data())
}

func TestSendToken_Validation(t *testing.T) {
	env := setup(t, nil)
	owner := newTestAddress(t)
	mint := newTestAddress(t)

	resp := env.post(t, sendTokenPath, map[string]any{"destination": owner, "mint": mint, "owner": owner, "amount": uint64(1)})
	assertFailure(t, resp, ErrSameAddress)

	resp = env.post(t, sendTokenPath, map[string]any{"destination": newTestAddress(t), "mint": mint, "owner": owner, "amount": uint64(0)})
	assertFailure(t, resp, ErrAmountMustBePositive)

	resp = env.post(t, sendTokenPath, map[string]any{"destination": newTestAddress(t), "owner": owner, "amount": uint64(0)})
	assertFailure(t, resp, ErrMissingField)
	assert.Contains(t, resp.errorText(), "mint")

	// mint, owner then destination
	resp = env.post(t, sendTokenPath, map[string]any{"destination": "bad", "mint": mint, "owner": "bad", "amount": uint64(1)})
	assertFailure(t, resp, ErrInvalidAddress)
	assert.Contains(t, resp.errorText(), "owner")
}

func TestInvalidRequestBody(t *testing.T) {
	env := setup(t, nil)

	for _, path := range []string{createTokenPath, mintTokenPath, signMessagePath, verifyMessagePath, sendSolPath, sendTokenPath} {
		resp := env.post(t, path, "{not json")
		assertFailure(t, resp, ErrInvalidRequestBody)
		assert.Equal(t, http.StatusOK, resp.statusCode)

		resp = env.post(t, path, "{}")
		assertFailure(t, resp, ErrMissingField)
	}
}

func TestRequestBodyLimit(t *testing.T) {
	env := setup(t, &testOverrides{maxRequestBodyBytes: 16})

	resp := env.post(t, signMessagePath, map[string]string{
		"message": strings.Repeat("a", 64),
		"secret":  testutil.NewRandomAccount(t).PrivateKey().ToBase58(),
	})
	assertFailure(t, resp, ErrInvalidRequestBody)
}

func TestPostExpected(t *testing.T) {
	env := setup(t, nil)

	resp := env.do(t, http.MethodGet, keypairPath, nil)
	assert.Equal(t, http.StatusOK, resp.statusCode)
	assert.False(t, resp.success())
	assert.Equal(t, errHttpPostExpected.Error(), resp.errorText())
}

func TestHttpErrorStatus(t *testing.T) {
	env := setup(t, &testOverrides{useHttpErrorStatus: true})
	address := newTestAddress(t)

	resp := env.do(t, http.MethodGet, keypairPath, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.statusCode)

	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": address, "lamports": uint64(5)})
	assert.Equal(t, http.StatusBadRequest, resp.statusCode)
	assertFailure(t, resp, ErrSameAddress)

	resp = env.post(t, sendSolPath, map[string]any{"from": address, "to": newTestAddress(t), "lamports": uint64(5)})
	assert.Equal(t, http.StatusOK, resp.statusCode)
	assert.True(t, resp.success())
}

func TestHttpStatusForError(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, httpStatusForError(newRequestError(ErrMissingField, "mint")))
	assert.Equal(t, http.StatusBadRequest, httpStatusForError(ErrSameAddress))
	assert.Equal(t, http.StatusInternalServerError, httpStatusForError(newBuildFailure(assert.AnError)))
}
