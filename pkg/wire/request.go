package wire

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/validator"
)

// Request 是解码后的请求，构造后不可变。
type Request struct {
	operation Operation
	params    Params
	paramsErr error
	callback  string
}

// NewRequest 构造请求并校验参数与操作一致。
func NewRequest(op Operation, params Params, callback string) (Request, error) {
	if err := validator.ValidateCallback(callback); err != nil {
		return Request{}, err
	}
	if op != OpUnknown && ParseOperation(string(op)) == OpUnknown {
		return Request{}, fmt.Errorf("unknown operation %q", op)
	}
	if params != nil && (op == OpUnknown || !ParamsMatch(op, params)) {
		return Request{}, fmt.Errorf("params %T do not match operation %q", params, op)
	}
	return Request{operation: op, params: params, callback: callback}, nil
}

// ParseRequest 根据方法名、参数与回调构造请求；参数解码失败时 Params 为 nil。
func ParseRequest(method string, params json.RawMessage, callback string) (Request, error) {
	if err := validator.ValidateCallback(callback); err != nil {
		return Request{}, fmt.Errorf("%w: %v", apierrors.ErrDecode, err)
	}
	req := Request{operation: ParseOperation(method), callback: callback}
	if req.operation == OpUnknown {
		req.paramsErr = fmt.Errorf("unknown operation %q", method)
		return req, nil
	}
	req.params, req.paramsErr = decodeParams(req.operation, params)
	return req, nil
}

// DecodeRequest 解码浏览器插件格式的请求 {methodName, params, callback}。
func DecodeRequest(data []byte) (Request, error) {
	f, err := DecodeFields(data)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", apierrors.ErrDecode, err)
	}
	callback, err := f.RequiredString("callback")
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", apierrors.ErrDecode, err)
	}
	method, err := f.OptionalString("methodName")
	if err != nil {
		method = ""
	}
	return ParseRequest(method, f["params"], callback)
}

// Operation 返回操作标签。
func (r Request) Operation() Operation { return r.operation }

// Params 返回参数，解码失败或未知操作时为 nil。
func (r Request) Params() Params { return r.params }

// ParamsErr 返回参数解码失败的原因。
func (r Request) ParamsErr() error { return r.paramsErr }

// Callback 返回回调标识。
func (r Request) Callback() string { return r.callback }

// LogValue 实现 slog.LogValuer。
func (r Request) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("operation", r.operation.String()),
		slog.String("callback", r.callback),
		slog.Bool("params", r.params != nil),
	)
}
