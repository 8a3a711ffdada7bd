package stub

import (
	"context"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// Delegate 是一个默认的占位实现，只回答应用信息与语言，提示使用者接入真实钱包。
type Delegate struct {
	app      wire.AppInfo
	language wire.Language
}

// New 返回一个占位 delegate。
func New(appName, appVersion, language string) *Delegate {
	return &Delegate{
		app:      wire.AppInfo{App: appName, AppVersion: appVersion},
		language: wire.Language(language),
	}
}

func (d *Delegate) AppInfo(_ context.Context, done delegate.Callback[wire.AppInfo]) error {
	done(d.app, nil)
	return nil
}

func (d *Delegate) WalletLanguage(_ context.Context, done delegate.Callback[wire.Language]) error {
	done(d.language, nil)
	return nil
}

// WalletWithAccount 当前仅返回锁定错误，提醒尚未接入真实钱包。
func (d *Delegate) WalletWithAccount(context.Context, delegate.Callback[wire.WalletWithAccount]) error {
	return apierrors.New(apierrors.CodeLocked, apierrors.KindLocked, "stub delegate: implement getWalletWithAccount")
}

// SignTransaction 当前仅返回拒签错误，提醒尚未接入真实钱包。
func (d *Delegate) SignTransaction(context.Context, wire.TransactionSignatureParams, delegate.Callback[wire.TransactionSignature]) error {
	return apierrors.New(apierrors.CodeNoSignature, apierrors.KindSignatureRejected, "stub delegate: implement requestSignature")
}

// SignMessage 当前仅返回拒签错误，提醒尚未接入真实钱包。
func (d *Delegate) SignMessage(context.Context, wire.MessageSignatureParams, delegate.Callback[wire.Signature]) error {
	return apierrors.New(apierrors.CodeNoSignature, apierrors.KindSignatureRejected, "stub delegate: implement requestArbitrarySignature")
}
