package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
)

// Status 是响应状态码。
type Status int

const (
	StatusSuccess Status = 0
	StatusError   Status = 1
)

const successMessage = "success"

// Response 是一次请求对应的唯一响应。
type Response struct {
	request Request
	status  Status
	payload Payload
	message string
	data    any
}

// ErrorFields 是错误响应的编码字段。
type ErrorFields struct {
	Code    apierrors.Code `json:"code"`
	Message string         `json:"message"`
	IsError bool           `json:"isError"`
	Type    apierrors.Kind `json:"type,omitempty"`
}

// NewSuccess 将 delegate 结果转换为成功响应，结果无法映射时返回 ErrParse。
func NewSuccess(req Request, p Payload) (Response, error) {
	if p == nil {
		return Response{}, fmt.Errorf("%w: nil payload for %s", apierrors.ErrParse, req.operation)
	}
	if _, isErr := p.(ErrorPayload); isErr {
		return Response{}, errors.New("error payload passed to NewSuccess")
	}
	if !PayloadMatch(req.operation, p) {
		return Response{}, fmt.Errorf("%w: payload %T does not match %s", apierrors.ErrParse, p, req.operation)
	}
	data, err := encodePayload(p)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", apierrors.ErrParse, err)
	}
	return Response{request: req, status: StatusSuccess, payload: p, message: successMessage, data: data}, nil
}

// NewErrorResponse 构造错误响应。
func NewErrorResponse(req Request, err error) Response {
	if err == nil {
		err = errors.New("unknown error")
	}
	return Response{request: req, status: StatusError, payload: ErrorPayload{Err: err}, message: err.Error()}
}

// Request 返回来源请求。
func (r Response) Request() Request { return r.request }

// Status 返回响应状态。
func (r Response) Status() Status { return r.status }

// Payload 返回响应载荷。
func (r Response) Payload() Payload { return r.payload }

// Message 返回可读的摘要。
func (r Response) Message() string { return r.message }

// Err 返回错误响应中的错误，成功响应返回 nil。
func (r Response) Err() error {
	if p, ok := r.payload.(ErrorPayload); ok {
		return p.Err
	}
	return nil
}

// EncodeError 按错误分类生成错误字段。
func EncodeError(err error) ErrorFields {
	c := apierrors.Describe(err)
	return ErrorFields{Code: c.Code, Message: c.Message, IsError: true, Type: c.Kind}
}

// Result 返回成功时的载荷或失败时的错误字段，供信封嵌入。
func (r Response) Result() (json.RawMessage, error) {
	if p, ok := r.payload.(ErrorPayload); ok {
		return json.Marshal(EncodeError(p.Err))
	}
	return json.Marshal(r.data)
}

type successFrame struct {
	Code    Status `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// MarshalJSON 输出完整响应：成功为 {code,message,data}，失败只输出错误字段。
func (r Response) MarshalJSON() ([]byte, error) {
	if p, ok := r.payload.(ErrorPayload); ok {
		return json.Marshal(EncodeError(p.Err))
	}
	return json.Marshal(successFrame{Code: r.status, Message: r.message, Data: r.data})
}
