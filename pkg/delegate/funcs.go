package delegate

import (
	"context"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// Funcs 以函数字段实现全部能力，未设置的字段返回 unimplemented 错误。
type Funcs struct {
	AppInfoFunc           func(ctx context.Context, done Callback[wire.AppInfo]) error
	WalletLanguageFunc    func(ctx context.Context, done Callback[wire.Language]) error
	BalanceFunc           func(ctx context.Context, params wire.BalanceParams, done Callback[wire.Balance]) error
	WalletWithAccountFunc func(ctx context.Context, done Callback[wire.WalletWithAccount]) error
	PushActionsFunc       func(ctx context.Context, params wire.ActionsParams, done Callback[wire.Transaction]) error
	PushTransferFunc      func(ctx context.Context, params wire.TransferParams, done Callback[wire.Transaction]) error
	SignTransactionFunc   func(ctx context.Context, params wire.TransactionSignatureParams, done Callback[wire.TransactionSignature]) error
	SignMessageFunc       func(ctx context.Context, params wire.MessageSignatureParams, done Callback[wire.Signature]) error
	AuthenticateFunc      func(ctx context.Context, params wire.AuthenticateParams, done Callback[wire.Signature]) error
	IdentityFunc          func(ctx context.Context, params wire.IdentityParams, done Callback[wire.Identity]) error
}

func (f Funcs) AppInfo(ctx context.Context, done Callback[wire.AppInfo]) error {
	if f.AppInfoFunc == nil {
		return apierrors.Unimplemented("AppInfo")
	}
	return f.AppInfoFunc(ctx, done)
}

func (f Funcs) WalletLanguage(ctx context.Context, done Callback[wire.Language]) error {
	if f.WalletLanguageFunc == nil {
		return apierrors.Unimplemented("WalletLanguage")
	}
	return f.WalletLanguageFunc(ctx, done)
}

func (f Funcs) Balance(ctx context.Context, params wire.BalanceParams, done Callback[wire.Balance]) error {
	if f.BalanceFunc == nil {
		return apierrors.Unimplemented("Balance")
	}
	return f.BalanceFunc(ctx, params, done)
}

func (f Funcs) WalletWithAccount(ctx context.Context, done Callback[wire.WalletWithAccount]) error {
	if f.WalletWithAccountFunc == nil {
		return apierrors.Unimplemented("WalletWithAccount")
	}
	return f.WalletWithAccountFunc(ctx, done)
}

func (f Funcs) PushActions(ctx context.Context, params wire.ActionsParams, done Callback[wire.Transaction]) error {
	if f.PushActionsFunc == nil {
		return apierrors.Unimplemented("PushActions")
	}
	return f.PushActionsFunc(ctx, params, done)
}

func (f Funcs) PushTransfer(ctx context.Context, params wire.TransferParams, done Callback[wire.Transaction]) error {
	if f.PushTransferFunc == nil {
		return apierrors.Unimplemented("PushTransfer")
	}
	return f.PushTransferFunc(ctx, params, done)
}

func (f Funcs) SignTransaction(ctx context.Context, params wire.TransactionSignatureParams, done Callback[wire.TransactionSignature]) error {
	if f.SignTransactionFunc == nil {
		return apierrors.Unimplemented("SignTransaction")
	}
	return f.SignTransactionFunc(ctx, params, done)
}

func (f Funcs) SignMessage(ctx context.Context, params wire.MessageSignatureParams, done Callback[wire.Signature]) error {
	if f.SignMessageFunc == nil {
		return apierrors.Unimplemented("SignMessage")
	}
	return f.SignMessageFunc(ctx, params, done)
}

func (f Funcs) Authenticate(ctx context.Context, params wire.AuthenticateParams, done Callback[wire.Signature]) error {
	if f.AuthenticateFunc == nil {
		return apierrors.Unimplemented("Authenticate")
	}
	return f.AuthenticateFunc(ctx, params, done)
}

func (f Funcs) Identity(ctx context.Context, params wire.IdentityParams, done Callback[wire.Identity]) error {
	if f.IdentityFunc == nil {
		return apierrors.Unimplemented("Identity")
	}
	return f.IdentityFunc(ctx, params, done)
}
