package envelope

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

const (
	// HeaderConnect 是连接握手的 header。
	HeaderConnect = "40/scatter"
	// HeaderEvent 是事件消息的 header。
	HeaderEvent = "42/scatter"
	// TypeAPI 是唯一可路由的消息类型，同时作为响应的判别标签。
	TypeAPI = "api"
)

// Session 是桌面方言的信封上下文。
type Session struct {
	ID        string
	AppKey    string
	Nonce     string
	NextNonce string
	Plugin    string
	Header    string
	Type      string
	Callback  string
}

type correlatedResult struct {
	ID     string          `json:"id"`
	Result json.RawMessage `json:"result"`
}

// CorrelatedAdapter 处理 {header,type,request:{data,plugin},callback} 信封。
type CorrelatedAdapter struct{}

func (CorrelatedAdapter) Dialect() Dialect { return Correlated }

func (CorrelatedAdapter) Unwrap(raw []byte) (wire.Request, Session, error) {
	s, data, err := decodeSession(raw)
	if err != nil {
		return wire.Request{}, Session{}, err
	}
	method, err := data.OptionalString("type")
	if err != nil {
		method = ""
	}
	req, err := wire.ParseRequest(method, data["payload"], s.Callback)
	if err != nil {
		return wire.Request{}, Session{}, err
	}
	return req, s, nil
}

func decodeSession(raw []byte) (Session, wire.Fields, error) {
	var s Session
	outer, err := wire.DecodeFields(raw)
	if err != nil {
		return s, nil, decodeErr(err)
	}
	if s.Header, err = outer.RequiredString("header"); err != nil {
		return s, nil, decodeErr(err)
	}
	if s.Type, err = outer.RequiredString("type"); err != nil {
		return s, nil, decodeErr(err)
	}
	if s.Header != HeaderEvent || s.Type != TypeAPI {
		return s, nil, fmt.Errorf("%w: %w: header=%q type=%q", apierrors.ErrDecode, apierrors.ErrUnsupportedKind, s.Header, s.Type)
	}
	if s.Callback, err = outer.RequiredString("callback"); err != nil {
		return s, nil, decodeErr(err)
	}
	request, err := outer.RequiredObject("request")
	if err != nil {
		return s, nil, decodeErr(err)
	}
	if s.Plugin, err = request.OptionalString("plugin"); err != nil {
		return s, nil, decodeErr(err)
	}
	data, err := request.RequiredObject("data")
	if err != nil {
		return s, nil, decodeErr(err)
	}
	if s.ID, err = data.RequiredString("id"); err != nil {
		return s, nil, decodeErr(err)
	}
	if s.AppKey, err = data.RequiredString("appkey"); err != nil {
		return s, nil, decodeErr(err)
	}
	if s.Nonce, err = data.FlexString("nonce"); err != nil {
		return s, nil, decodeErr(err)
	}
	if s.NextNonce, err = data.FlexString("nextNonce"); err != nil {
		return s, nil, decodeErr(err)
	}
	return s, data, nil
}

func (CorrelatedAdapter) Wrap(resp wire.Response, s Session) (Frame, error) {
	result, err := resp.Result()
	if err != nil {
		return Frame{}, err
	}
	return frameFor(s, result)
}

func (CorrelatedAdapter) WrapError(err error, s Session) (Frame, error) {
	result, mErr := json.Marshal(wire.EncodeError(err))
	if mErr != nil {
		return Frame{}, mErr
	}
	return frameFor(s, result)
}

func frameFor(s Session, result json.RawMessage) (Frame, error) {
	body, err := json.Marshal([2]any{TypeAPI, correlatedResult{ID: s.ID, Result: result}})
	if err != nil {
		return Frame{}, err
	}
	return Frame{Callback: s.Callback, Header: s.Header, Body: body}, nil
}

func decodeErr(err error) error {
	return fmt.Errorf("%w: %v", apierrors.ErrDecode, err)
}

// LogValue 实现 slog.LogValuer。
func (s Session) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", s.ID),
		slog.String("appkey", s.AppKey),
		slog.String("nonce", s.Nonce),
		slog.String("next_nonce", s.NextNonce),
		slog.String("plugin", s.Plugin),
		slog.String("callback", s.Callback),
	)
}
