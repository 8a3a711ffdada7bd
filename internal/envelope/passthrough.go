package envelope

import (
	"encoding/json"

	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// PassthroughAdapter 直接使用 wire 模型作为完整消息，信封上下文即请求本身。
type PassthroughAdapter struct{}

func (PassthroughAdapter) Dialect() Dialect { return Passthrough }

func (PassthroughAdapter) Unwrap(raw []byte) (wire.Request, wire.Request, error) {
	req, err := wire.DecodeRequest(raw)
	if err != nil {
		return wire.Request{}, wire.Request{}, err
	}
	return req, req, nil
}

func (PassthroughAdapter) Wrap(resp wire.Response, req wire.Request) (Frame, error) {
	body, err := json.Marshal(resp)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Callback: req.Callback(), Body: body}, nil
}

func (PassthroughAdapter) WrapError(err error, req wire.Request) (Frame, error) {
	body, mErr := json.Marshal(wire.EncodeError(err))
	if mErr != nil {
		return Frame{}, mErr
	}
	return Frame{Callback: req.Callback(), Body: body}, nil
}
