package delegate

import (
	"context"

	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// Callback 是 delegate 完成时调用的单次回调。
type Callback[T any] func(T, error)

// Delegate 是任意实现了部分能力接口的业务对象。
type Delegate any

// AppInfoProvider 处理 getAppInfo。
type AppInfoProvider interface {
	AppInfo(ctx context.Context, done Callback[wire.AppInfo]) error
}

// LanguageProvider 处理 walletLanguage。
type LanguageProvider interface {
	WalletLanguage(ctx context.Context, done Callback[wire.Language]) error
}

// BalanceProvider 处理 getEosBalance。
type BalanceProvider interface {
	Balance(ctx context.Context, params wire.BalanceParams, done Callback[wire.Balance]) error
}

// AccountProvider 处理 getWalletWithAccount。
type AccountProvider interface {
	WalletWithAccount(ctx context.Context, done Callback[wire.WalletWithAccount]) error
}

// ActionsPusher 处理 pushActions。
type ActionsPusher interface {
	PushActions(ctx context.Context, params wire.ActionsParams, done Callback[wire.Transaction]) error
}

// TransferPusher 处理 pushTransfer。
type TransferPusher interface {
	PushTransfer(ctx context.Context, params wire.TransferParams, done Callback[wire.Transaction]) error
}

// TransactionSigner 处理 requestSignature。
type TransactionSigner interface {
	SignTransaction(ctx context.Context, params wire.TransactionSignatureParams, done Callback[wire.TransactionSignature]) error
}

// MessageSigner 处理 getArbitrarySignature 与 requestArbitrarySignature。
type MessageSigner interface {
	SignMessage(ctx context.Context, params wire.MessageSignatureParams, done Callback[wire.Signature]) error
}

// Authenticator 处理 authenticate。
type Authenticator interface {
	Authenticate(ctx context.Context, params wire.AuthenticateParams, done Callback[wire.Signature]) error
}

// IdentityProvider 处理 identityFromPermissions 与 getOrRequestIdentity。
type IdentityProvider interface {
	Identity(ctx context.Context, params wire.IdentityParams, done Callback[wire.Identity]) error
}
