package instruction

import (
	"encoding/base64"
	"encoding/json"

	"github.com/mr-tron/base58"

	"github.com/code-payments/code-instruction-server/pkg/code/common"
	"github.com/code-payments/code-instruction-server/pkg/solana"
)

const (
	successJsonKey = "success"
	dataJsonKey    = "data"
	errorJsonKey   = "error"
)

// GenericApiResponseBody is the envelope every route responds with
type GenericApiResponseBody map[string]any

func NewSuccessResponseBody(data any) GenericApiResponseBody {
	return map[string]any{
		successJsonKey: true,
		dataJsonKey:    data,
	}
}

func NewFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}
}

func (b GenericApiResponseBody) IsSuccess() bool {
	success, _ := b[successJsonKey].(bool)
	return success
}

func (b GenericApiResponseBody) ToBytes() []byte {
	marshalled, _ := json.Marshal(b)
	return marshalled
}

type keypairData struct {
	Pubkey string `json:"pubkey"`
	Secret string `json:"secret"`
}

func newKeypairData(account *common.Account) *keypairData {
	return &keypairData{
		Pubkey: account.PublicKey().ToBase58(),
		Secret: account.PrivateKey().ToBase58(),
	}
}

type accountMetaData struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"is_signer"`
	IsWritable bool   `json:"is_writable"`
}

type instructionData struct {
	ProgramId       string            `json:"program_id"`
	Accounts        []accountMetaData `json:"accounts"`
	InstructionData string            `json:"instruction_data"`
}

func newInstructionData(ixn *solana.Instruction) *instructionData {
	accounts := make([]accountMetaData, len(ixn.Accounts))
	for i, account := range ixn.Accounts {
		accounts[i] = accountMetaData{
			Pubkey:     base58.Encode(account.PublicKey),
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		}
	}

	return &instructionData{
		ProgramId:       base58.Encode(ixn.Program),
		Accounts:        accounts,
		InstructionData: base64.StdEncoding.EncodeToString(ixn.Data),
	}
}

type solTransferData struct {
	ProgramId       string   `json:"program_id"`
	Accounts        []string `json:"accounts"`
	InstructionData string   `json:"instruction_data"`
}

func newSolTransferData(ixn *solana.Instruction) *solTransferData {
	return &solTransferData{
		ProgramId:       base58.Encode(ixn.Program),
		Accounts:        ixn.AccountAddresses(),
		InstructionData: base64.StdEncoding.EncodeToString(ixn.Data),
	}
}

// Token transfers historically report account roles in camel case.
type tokenTransferAccountData struct {
	Pubkey     string `json:"pubkey"`
	IsSigner   bool   `json:"isSigner"`
	IsWritable bool   `json:"isWritable"`
}

type tokenTransferData struct {
	ProgramId       string                     `json:"program_id"`
	Accounts        []tokenTransferAccountData `json:"accounts"`
	InstructionData string                     `json:"instruction_data"`
}

func newTokenTransferData(ixn *solana.Instruction) *tokenTransferData {
	accounts := make([]tokenTransferAccountData, len(ixn.Accounts))
	for i, account := range ixn.Accounts {
		accounts[i] = tokenTransferAccountData{
			Pubkey:     base58.Encode(account.PublicKey),
			IsSigner:   account.IsSigner,
			IsWritable: account.IsWritable,
		}
	}

	return &tokenTransferData{
		ProgramId:       base58.Encode(ixn.Program),
		Accounts:        accounts,
		InstructionData: base64.StdEncoding.EncodeToString(ixn.Data),
	}
}

type signMessageData struct {
	Signature string `json:"signature"`
	PublicKey string `json:"public_key"`
	Message   string `json:"message"`
}

type verifyMessageData struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
	Pubkey  string `json:"pubkey"`
}
