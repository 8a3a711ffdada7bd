package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

type completion func(wire.Payload, error)

// invokeDelegate 将请求映射到 delegate 的对应能力；缺少能力时返回 unimplemented 错误。
func invokeDelegate(ctx context.Context, d delegate.Delegate, req wire.Request, done completion) (err error) {
	op := req.Operation()
	missing := apierrors.Unimplemented(op.String())
	// 同一能力服务多个操作，错误信息以请求的操作为准。
	defer func() {
		if errors.Is(err, apierrors.ErrUnimplemented) {
			err = missing
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delegate panicked: %v", r)
		}
	}()
	switch p := req.Params().(type) {
	case wire.AppInfoParams:
		c, ok := d.(delegate.AppInfoProvider)
		if !ok {
			return missing
		}
		return c.AppInfo(ctx, adapt[wire.AppInfo](done))
	case wire.WalletLanguageParams:
		c, ok := d.(delegate.LanguageProvider)
		if !ok {
			return missing
		}
		return c.WalletLanguage(ctx, adapt[wire.Language](done))
	case wire.BalanceParams:
		c, ok := d.(delegate.BalanceProvider)
		if !ok {
			return missing
		}
		return c.Balance(ctx, p, adapt[wire.Balance](done))
	case wire.WalletWithAccountParams:
		c, ok := d.(delegate.AccountProvider)
		if !ok {
			return missing
		}
		return c.WalletWithAccount(ctx, adapt[wire.WalletWithAccount](done))
	case wire.ActionsParams:
		c, ok := d.(delegate.ActionsPusher)
		if !ok {
			return missing
		}
		return c.PushActions(ctx, p, adapt[wire.Transaction](done))
	case wire.TransferParams:
		c, ok := d.(delegate.TransferPusher)
		if !ok {
			return missing
		}
		return c.PushTransfer(ctx, p, adapt[wire.Transaction](done))
	case wire.TransactionSignatureParams:
		c, ok := d.(delegate.TransactionSigner)
		if !ok {
			return missing
		}
		return c.SignTransaction(ctx, p, adapt[wire.TransactionSignature](done))
	case wire.MessageSignatureParams:
		c, ok := d.(delegate.MessageSigner)
		if !ok {
			return missing
		}
		return c.SignMessage(ctx, p, adapt[wire.Signature](done))
	case wire.AuthenticateParams:
		c, ok := d.(delegate.Authenticator)
		if !ok {
			return missing
		}
		return c.Authenticate(ctx, p, adapt[wire.Signature](done))
	case wire.IdentityParams:
		c, ok := d.(delegate.IdentityProvider)
		if !ok {
			return missing
		}
		return c.Identity(ctx, p, adapt[wire.Identity](done))
	default:
		return fmt.Errorf("%w: no params for %s", apierrors.ErrParse, op)
	}
}

func adapt[T wire.Payload](done completion) delegate.Callback[T] {
	return func(v T, err error) {
		if err != nil {
			done(nil, err)
			return
		}
		done(v, nil)
	}
}
