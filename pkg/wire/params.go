package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aegis-sign/walletbridge/pkg/validator"
)

// Params 是按操作区分的请求参数。
type Params interface {
	isParams()
}

type AppInfoParams struct{}

type WalletLanguageParams struct{}

type WalletWithAccountParams struct{}

// IdentityParams 用于 identityFromPermissions 与 getOrRequestIdentity。
type IdentityParams struct{}

// BalanceParams 是余额查询参数。
type BalanceParams struct {
	Account  string
	Contract string
}

// TransferParams 是转账参数，Contract 缺省时为空。
type TransferParams struct {
	From     string
	To       string
	Quantity validator.Quantity
	Memo     string
	Contract string
}

// Action 是 pushActions 中的单个 action。
type Action struct {
	Account string
	Name    string
	Data    map[string]any
}

// ActionsParams 是 pushActions 参数。
type ActionsParams struct {
	Actions []Action
}

// RawTransaction 是 "交易 + 签名 buffer" 形态。
type RawTransaction struct {
	Transaction map[string]any
	Buffer      []byte
}

// SerializedTransaction 是 "序列化交易 + chainId" 形态。
type SerializedTransaction struct {
	ChainID               string
	SerializedTransaction string
}

// TransactionSignatureParams 是 requestSignature 参数，Raw 与 Serialized 二选一。
type TransactionSignatureParams struct {
	Raw        *RawTransaction
	Serialized *SerializedTransaction
}

// MessageSignatureParams 是任意消息签名参数。
type MessageSignatureParams struct {
	PublicKey string
	Data      string
	WhatFor   string
	IsHash    bool
}

// AuthenticateParams 是 authenticate 参数，字段与消息签名一致。
type AuthenticateParams struct {
	MessageSignatureParams
}

func (AppInfoParams) isParams()              {}
func (WalletLanguageParams) isParams()       {}
func (WalletWithAccountParams) isParams()    {}
func (IdentityParams) isParams()             {}
func (BalanceParams) isParams()              {}
func (TransferParams) isParams()             {}
func (ActionsParams) isParams()              {}
func (TransactionSignatureParams) isParams() {}
func (MessageSignatureParams) isParams()     {}
func (AuthenticateParams) isParams()         {}

// ParamsMatch 判断参数类型与操作是否一致。
func ParamsMatch(op Operation, p Params) bool {
	switch p.(type) {
	case AppInfoParams:
		return op == OpGetAppInfo
	case WalletLanguageParams:
		return op == OpWalletLanguage
	case WalletWithAccountParams:
		return op == OpGetWalletWithAccount
	case IdentityParams:
		return op == OpIdentityFromPermissions || op == OpGetOrRequestIdentity
	case BalanceParams:
		return op == OpGetEosBalance
	case TransferParams:
		return op == OpPushTransfer
	case ActionsParams:
		return op == OpPushActions
	case TransactionSignatureParams:
		return op == OpRequestSignature
	case MessageSignatureParams:
		return op == OpGetArbitrarySignature || op == OpRequestArbitrarySignature
	case AuthenticateParams:
		return op == OpAuthenticate
	default:
		return false
	}
}

func decodeParams(op Operation, raw json.RawMessage) (Params, error) {
	switch op {
	case OpGetAppInfo:
		return AppInfoParams{}, nil
	case OpWalletLanguage:
		return WalletLanguageParams{}, nil
	case OpGetWalletWithAccount:
		return WalletWithAccountParams{}, nil
	case OpIdentityFromPermissions, OpGetOrRequestIdentity:
		return IdentityParams{}, nil
	case OpGetEosBalance:
		return decodeBalance(raw)
	case OpPushTransfer:
		return decodeTransfer(raw)
	case OpPushActions:
		return decodeActions(raw)
	case OpRequestSignature:
		return firstOf[Params](raw, decodeRawTransaction, decodeSerializedTransaction)
	case OpGetArbitrarySignature, OpRequestArbitrarySignature:
		return decodeMessageSignature(raw)
	case OpAuthenticate:
		msg, err := decodeMessageSignature(raw)
		if err != nil {
			return nil, err
		}
		return AuthenticateParams{MessageSignatureParams: msg}, nil
	default:
		return nil, fmt.Errorf("operation %q carries no params", op)
	}
}

func decodeBalance(raw json.RawMessage) (Params, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	var p BalanceParams
	if p.Account, err = f.RequiredString("account"); err != nil {
		return nil, err
	}
	if p.Contract, err = f.RequiredString("contract"); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeTransfer(raw json.RawMessage) (Params, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	var p TransferParams
	if p.From, err = f.RequiredString("from"); err != nil {
		return nil, err
	}
	if p.To, err = f.RequiredString("to"); err != nil {
		return nil, err
	}
	quantity, err := f.RequiredString("quantity")
	if err != nil {
		return nil, err
	}
	if p.Quantity, err = validator.ParseQuantity(quantity); err != nil {
		return nil, err
	}
	if p.Memo, err = f.OptionalString("memo"); err != nil {
		return nil, err
	}
	if p.Contract, err = f.OptionalString("contract"); err != nil {
		return nil, err
	}
	return p, nil
}

func decodeActions(raw json.RawMessage) (Params, error) {
	encoded, err := decodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("actions payload: %w", err)
	}
	f, err := DecodeFields(json.RawMessage(encoded))
	if err != nil {
		return nil, fmt.Errorf("actions payload: %w", err)
	}
	if !f.Has("actions") {
		return nil, errors.New("missing field \"actions\"")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(f["actions"], &items); err != nil {
		return nil, fmt.Errorf("field \"actions\": %w", err)
	}
	actions := make([]Action, 0, len(items))
	for i, item := range items {
		action, err := decodeAction(item)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	return ActionsParams{Actions: actions}, nil
}

func decodeAction(raw json.RawMessage) (Action, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return Action{}, err
	}
	var a Action
	if a.Account, err = f.RequiredString("account"); err != nil {
		return Action{}, err
	}
	if a.Name, err = f.RequiredString("name"); err != nil {
		return Action{}, err
	}
	a.Data = map[string]any{}
	if f.Has("data") {
		if err := json.Unmarshal(f["data"], &a.Data); err != nil {
			return Action{}, fmt.Errorf("field \"data\": %w", err)
		}
	}
	return a, nil
}

func decodeRawTransaction(raw json.RawMessage) (Params, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	if !f.Has("transaction") {
		return nil, errors.New("missing field \"transaction\"")
	}
	var tx map[string]any
	if err := json.Unmarshal(f["transaction"], &tx); err != nil {
		return nil, fmt.Errorf("field \"transaction\": %w", err)
	}
	buf, err := f.RequiredObject("buf")
	if err != nil {
		return nil, err
	}
	kind, err := buf.RequiredString("type")
	if err != nil {
		return nil, err
	}
	if kind != "Buffer" {
		return nil, fmt.Errorf("unexpected buf type %q", kind)
	}
	if !buf.Has("data") {
		return nil, errors.New("missing field \"data\"")
	}
	var octets []int
	if err := json.Unmarshal(buf["data"], &octets); err != nil {
		return nil, fmt.Errorf("field \"data\": %w", err)
	}
	data := make([]byte, len(octets))
	for i, o := range octets {
		if o < 0 || o > 255 {
			return nil, fmt.Errorf("buffer byte %d out of range: %d", i, o)
		}
		data[i] = byte(o)
	}
	return TransactionSignatureParams{Raw: &RawTransaction{Transaction: tx, Buffer: data}}, nil
}

func decodeSerializedTransaction(raw json.RawMessage) (Params, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return nil, err
	}
	tx, err := f.RequiredObject("transaction")
	if err != nil {
		return nil, err
	}
	var s SerializedTransaction
	if s.ChainID, err = tx.RequiredString("chainId"); err != nil {
		return nil, err
	}
	if s.SerializedTransaction, err = tx.RequiredString("serializedTransaction"); err != nil {
		return nil, err
	}
	return TransactionSignatureParams{Serialized: &s}, nil
}

func decodeMessageSignature(raw json.RawMessage) (MessageSignatureParams, error) {
	f, err := DecodeFields(raw)
	if err != nil {
		return MessageSignatureParams{}, err
	}
	var p MessageSignatureParams
	if p.PublicKey, err = f.RequiredString("publicKey"); err != nil {
		return MessageSignatureParams{}, err
	}
	if p.Data, err = f.RequiredString("data"); err != nil {
		return MessageSignatureParams{}, err
	}
	if p.WhatFor, err = f.OptionalString("whatFor"); err != nil {
		return MessageSignatureParams{}, err
	}
	if p.IsHash, err = f.RequiredBool("isHash"); err != nil {
		return MessageSignatureParams{}, err
	}
	return p, nil
}
