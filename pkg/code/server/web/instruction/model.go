package instruction

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/code-payments/code-instruction-server/pkg/code/common"
)

type createTokenRequest struct {
	MintAuthority string `json:"mintAuthority"`
	Mint          string `json:"mint"`
	Decimals      *uint8 `json:"decimals"`
}

type createTokenArgs struct {
	mint          *common.Account
	mintAuthority *common.Account
	decimals      uint8
}

func (r *createTokenRequest) validate() (*createTokenArgs, error) {
	err := requireFields(
		textField("mintAuthority", r.MintAuthority),
		textField("mint", r.Mint),
		numericField("decimals", r.Decimals != nil),
	)
	if err != nil {
		return nil, err
	}

	mint, err := parseAddress("mint", r.Mint)
	if err != nil {
		return nil, err
	}
	mintAuthority, err := parseAddress("mintAuthority", r.MintAuthority)
	if err != nil {
		return nil, err
	}

	return &createTokenArgs{
		mint:          mint,
		mintAuthority: mintAuthority,
		decimals:      *r.Decimals,
	}, nil
}

type mintTokenRequest struct {
	Mint        string  `json:"mint"`
	Destination string  `json:"destination"`
	Authority   string  `json:"authority"`
	Amount      *uint64 `json:"amount"`
}

type mintTokenArgs struct {
	mint        *common.Account
	destination *common.Account
	authority   *common.Account
	amount      uint64
}

func (r *mintTokenRequest) validate() (*mintTokenArgs, error) {
	err := requireFields(
		textField("mint", r.Mint),
		textField("destination", r.Destination),
		textField("authority", r.Authority),
		numericField("amount", r.Amount != nil),
	)
	if err != nil {
		return nil, err
	}

	mint, err := parseAddress("mint", r.Mint)
	if err != nil {
		return nil, err
	}
	destination, err := parseAddress("destination", r.Destination)
	if err != nil {
		return nil, err
	}
	authority, err := parseAddress("authority", r.Authority)
	if err != nil {
		return nil, err
	}

	return &mintTokenArgs{
		mint:        mint,
		destination: destination,
		authority:   authority,
		amount:      *r.Amount,
	}, nil
}

type signMessageRequest struct {
	Message string `json:"message"`
	Secret  string `json:"secret"`
}

type signMessageArgs struct {
	message []byte
	signer  *common.Account
}

func (r *signMessageRequest) validate() (*signMessageArgs, error) {
	err := requireFields(
		textField("message", r.Message),
		textField("secret", r.Secret),
	)
	if err != nil {
		return nil, err
	}

	signer, err := common.NewAccountFromPrivateKeyString(r.Secret)
	if err != nil {
		return nil, newRequestError(ErrInvalidSecret, "secret")
	}

	return &signMessageArgs{
		message: []byte(r.Message),
		signer:  signer,
	}, nil
}

type verifyMessageRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Pubkey    string `json:"pubkey"`
}

type verifyMessageArgs struct {
	message   []byte
	signature common.Signature
	verifier  *common.Account
}

func (r *verifyMessageRequest) validate() (*verifyMessageArgs, error) {
	err := requireFields(
		textField("message", r.Message),
		textField("signature", r.Signature),
		textField("pubkey", r.Pubkey),
	)
	if err != nil {
		return nil, err
	}

	verifier, err := parseAddress("pubkey", r.Pubkey)
	if err != nil {
		return nil, err
	}

	signature, err := common.NewSignatureFromBase64(r.Signature)
	if err != nil {
		return nil, newRequestError(ErrInvalidSignatureFormat, "signature")
	}

	return &verifyMessageArgs{
		message:   []byte(r.Message),
		signature: signature,
		verifier:  verifier,
	}, nil
}

type sendSolRequest struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	Lamports *uint64 `json:"lamports"`
}

type sendSolArgs struct {
	from     *common.Account
	to       *common.Account
	lamports uint64
}

func (r *sendSolRequest) validate() (*sendSolArgs, error) {
	err := requireFields(
		textField("from", r.From),
		textField("to", r.To),
		numericField("lamports", r.Lamports != nil),
	)
	if err != nil {
		return nil, err
	}

	from, err := parseAddress("from", r.From)
	if err != nil {
		return nil, err
	}
	to, err := parseAddress("to", r.To)
	if err != nil {
		return nil, err
	}

	if *r.Lamports == 0 {
		return nil, newRequestError(ErrAmountMustBePositive, "lamports")
	}

	if from.Equals(to) {
		return nil, newRequestError(ErrSameAddress, "from and to")
	}

	return &sendSolArgs{
		from:     from,
		to:       to,
		lamports: *r.Lamports,
	}, nil
}

type sendTokenRequest struct {
	Destination string  `json:"destination"`
	Mint        string  `json:"mint"`
	Owner       string  `json:"owner"`
	Amount      *uint64 `json:"amount"`
}

type sendTokenArgs struct {
	destination *common.Account
	mint        *common.Account
	owner       *common.Account
	amount      uint64
}

func (r *sendTokenRequest) validate() (*sendTokenArgs, error) {
	err := requireFields(
		textField("destination", r.Destination),
		textField("mint", r.Mint),
		textField("owner", r.Owner),
		numericField("amount", r.Amount != nil),
	)
	if err != nil {
		return nil, err
	}

	mint, err := parseAddress("mint", r.Mint)
	if err != nil {
		return nil, err
	}
	owner, err := parseAddress("owner", r.Owner)
	if err != nil {
		return nil, err
	}
	destination, err := parseAddress("destination", r.Destination)
	if err != nil {
		return nil, err
	}

	if *r.Amount == 0 {
		return nil, newRequestError(ErrAmountMustBePositive, "amount")
	}

	if owner.Equals(destination) {
		return nil, newRequestError(ErrSameAddress, "owner and destination")
	}

	return &sendTokenArgs{
		destination: destination,
		mint:        mint,
		owner:       owner,
		amount:      *r.Amount,
	}, nil
}

type requiredField struct {
	name    string
	present bool
}

func textField(name, value string) requiredField {
	return requiredField{name: name, present: len(strings.TrimSpace(value)) > 0}
}

func numericField(name string, present bool) requiredField {
	return requiredField{name: name, present: present}
}

func requireFields(fields ...requiredField) error {
	for _, field := range fields {
		if !field.present {
			return newRequestError(ErrMissingField, field.name)
		}
	}
	return nil
}

func parseAddress(name, value string) (*common.Account, error) {
	account, err := common.NewAccountFromPublicKeyString(value)
	if err != nil {
		return nil, newRequestError(ErrInvalidAddress, name)
	}
	return account, nil
}

// decodeRequestBody reads at most maxBytes of the request body and decodes it
// as JSON into dst. Unknown fields are ignored.
func decodeRequestBody(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return newRequestError(ErrInvalidRequestBody, err.Error())
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return newRequestError(ErrInvalidRequestBody, err.Error())
	}
	return nil
}
