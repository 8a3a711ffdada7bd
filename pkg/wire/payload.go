package wire

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aegis-sign/walletbridge/pkg/validator"
)

const (
	// ProtocolName 是 getAppInfo 返回的协议名。
	ProtocolName = "Scatter Plugin"
	// ProtocolVersion 是 getAppInfo 返回的协议版本。
	ProtocolVersion = "1.0.0"
)

// Payload 是响应载荷，与操作集合一一对应，另有错误载荷。
type Payload interface {
	isPayload()
}

// AppInfo 是应用信息。
type AppInfo struct {
	App        string
	AppVersion string
}

// Language 是钱包语言。
type Language string

// Balance 是账户余额。
type Balance struct {
	Account  string
	Contract string
	Amount   decimal.Decimal
	Symbol   string
}

// WalletWithAccount 是当前钱包与账户信息。
type WalletWithAccount struct {
	Account    string
	UID        string
	WalletName string
	Image      string
}

// Transaction 是 pushActions/pushTransfer 的结果。
type Transaction struct {
	TxID     string
	BlockNum uint64
}

// TransactionSignature 是交易签名结果；ReturnedFields 不会被编码。
type TransactionSignature struct {
	Signatures     []string
	ReturnedFields map[string]any
}

// Signature 是消息签名或 authenticate 的结果。
type Signature string

// IdentityAccount 是身份下的单个账户。
type IdentityAccount struct {
	Name       string
	Authority  string
	PublicKey  string
	Blockchain string
	IsHardware bool
}

// Identity 是身份信息。
type Identity struct {
	Hash      string
	PublicKey string
	Name      string
	KYC       bool
	Accounts  []IdentityAccount
}

// ErrorPayload 携带失败原因。
type ErrorPayload struct {
	Err error
}

func (AppInfo) isPayload()              {}
func (Language) isPayload()             {}
func (Balance) isPayload()              {}
func (WalletWithAccount) isPayload()    {}
func (Transaction) isPayload()          {}
func (TransactionSignature) isPayload() {}
func (Signature) isPayload()            {}
func (Identity) isPayload()             {}
func (ErrorPayload) isPayload()         {}

// PayloadMatch 判断载荷类型能否作为该操作的成功结果。
func PayloadMatch(op Operation, p Payload) bool {
	switch p.(type) {
	case AppInfo:
		return op == OpGetAppInfo
	case Language:
		return op == OpWalletLanguage
	case Balance:
		return op == OpGetEosBalance
	case WalletWithAccount:
		return op == OpGetWalletWithAccount
	case Transaction:
		return op == OpPushActions || op == OpPushTransfer
	case TransactionSignature:
		return op == OpRequestSignature
	case Signature:
		return op == OpAuthenticate || op == OpGetArbitrarySignature || op == OpRequestArbitrarySignature
	case Identity:
		return op == OpIdentityFromPermissions || op == OpGetOrRequestIdentity
	default:
		return false
	}
}

type appInfoJSON struct {
	App             string `json:"app"`
	AppVersion      string `json:"app_version"`
	ProtocolName    string `json:"protocol_name"`
	ProtocolVersion string `json:"protocol_version"`
}

type balanceJSON struct {
	Balance  string `json:"balance"`
	Contract string `json:"contract"`
	Account  string `json:"account"`
}

type walletJSON struct {
	Account    string `json:"account"`
	UID        string `json:"uid"`
	WalletName string `json:"wallet_name"`
	Image      string `json:"image"`
}

type transactionJSON struct {
	TxID         string `json:"txid"`
	BlockNum     uint64 `json:"block_num"`
	SerialNumber string `json:"serialNumber"`
}

type signatureJSON struct {
	Signatures     []string       `json:"signatures"`
	ReturnedFields map[string]any `json:"returnedFields"`
}

type identityAccountJSON struct {
	Name       string `json:"name"`
	Authority  string `json:"authority"`
	PublicKey  string `json:"publicKey"`
	Blockchain string `json:"blockchain"`
	IsHardware bool   `json:"isHardware"`
}

type identityJSON struct {
	Hash      string                `json:"hash"`
	PublicKey string                `json:"publicKey"`
	Name      string                `json:"name"`
	KYC       bool                  `json:"kyc"`
	Accounts  []identityAccountJSON `json:"accounts"`
}

// encodePayload 将成功载荷转换为可直接序列化的结构，并校验必填字段。
func encodePayload(p Payload) (any, error) {
	switch v := p.(type) {
	case AppInfo:
		if v.App == "" {
			return nil, errors.New("app info requires app name")
		}
		return appInfoJSON{App: v.App, AppVersion: v.AppVersion, ProtocolName: ProtocolName, ProtocolVersion: ProtocolVersion}, nil
	case Language:
		return string(v), nil
	case Balance:
		if v.Symbol == "" {
			return nil, errors.New("balance requires symbol")
		}
		return balanceJSON{Balance: validator.FormatQuantity(v.Amount, v.Symbol), Contract: v.Contract, Account: v.Account}, nil
	case WalletWithAccount:
		if v.Account == "" {
			return nil, errors.New("wallet requires account")
		}
		return walletJSON(v), nil
	case Transaction:
		if v.TxID == "" {
			return nil, errors.New("transaction requires txid")
		}
		return transactionJSON{TxID: v.TxID, BlockNum: v.BlockNum, SerialNumber: uuid.NewString()}, nil
	case TransactionSignature:
		if len(v.Signatures) == 0 {
			return nil, errors.New("transaction signature requires at least one signature")
		}
		return signatureJSON{Signatures: v.Signatures, ReturnedFields: map[string]any{}}, nil
	case Signature:
		if v == "" {
			return nil, errors.New("signature is empty")
		}
		return string(v), nil
	case Identity:
		out := identityJSON{Hash: v.Hash, PublicKey: v.PublicKey, Name: v.Name, KYC: v.KYC, Accounts: make([]identityAccountJSON, 0, len(v.Accounts))}
		for _, a := range v.Accounts {
			out.Accounts = append(out.Accounts, identityAccountJSON(a))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
}
