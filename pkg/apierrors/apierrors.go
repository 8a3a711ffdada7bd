package apierrors

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Code 表示钱包协议中的错误码。
type Code int

const (
	// CodeGeneric 是未分类错误的默认错误码。
	CodeGeneric         Code = 1
	CodeNoSignature     Code = 402
	CodeForbidden       Code = 403
	CodeTimedOut        Code = 408
	CodeLocked          Code = 423
	CodeUpgradeRequired Code = 426
	CodeTooManyRequests Code = 429
)

// Kind 表示错误类型，对应响应中的 type 字段。
type Kind string

const (
	KindMalicious         Kind = "malicious"
	KindLocked            Kind = "locked"
	KindPromptClosed      Kind = "prompt_closed"
	KindUpgradeRequired   Kind = "upgrade_required"
	KindSignatureRejected Kind = "signature_rejected"
	KindIdentityRejected  Kind = "identity_rejected"
	KindNoNetwork         Kind = "no_network"
)

var (
	// ErrDecode 表示入站消息无法解析，消息会被丢弃。
	ErrDecode = errors.New("unable to decode message")
	// ErrUnsupportedKind 表示信封的 header/type 组合不被接受。
	ErrUnsupportedKind = errors.New("unsupported message kind")
	// ErrParse 表示参数或 delegate 结果无法映射到响应模型。
	ErrParse = errors.New("unable to parse model")
	// ErrUnimplemented 表示 delegate 未实现对应能力。
	ErrUnimplemented = errors.New("delegate capability not implemented")
)

var grpcCodeMap = map[codes.Code]Classification{
	codes.PermissionDenied:   {Code: CodeForbidden, Kind: KindMalicious},
	codes.Unauthenticated:    {Code: CodeForbidden, Kind: KindIdentityRejected},
	codes.DeadlineExceeded:   {Code: CodeTimedOut},
	codes.ResourceExhausted:  {Code: CodeTooManyRequests},
	codes.FailedPrecondition: {Code: CodeLocked, Kind: KindLocked},
	codes.Unimplemented:      {Code: CodeUpgradeRequired, Kind: KindUpgradeRequired},
	codes.Unavailable:        {Code: CodeGeneric, Kind: KindNoNetwork},
	codes.Canceled:           {Code: CodeGeneric, Kind: KindPromptClosed},
}

// Classifier 由调用方的错误类型实现，用于携带错误码与类型。
type Classifier interface {
	ErrorCode() Code
	ErrorKind() Kind
	ErrorMessage() string
}

// Classification 是错误编码所需的字段。
type Classification struct {
	Code    Code
	Kind    Kind
	Message string
}

// Error 表示带错误码的钱包错误。
type Error struct {
	Code    Code
	Kind    Kind
	Message string
	cause   error
}

// New 创建一个新的钱包错误。
func New(code Code, kind Kind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message}
}

// Wrap 创建一个包裹 cause 的钱包错误。
func Wrap(cause error, code Code, kind Kind, message string) *Error {
	return &Error{Code: code, Kind: kind, Message: message, cause: cause}
}

// Error 实现 error 接口。
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != "" {
		return string(e.Kind)
	}
	if e.cause != nil {
		return e.cause.Error()
	}
	return "wallet error"
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) ErrorCode() Code { return e.Code }

func (e *Error) ErrorKind() Kind { return e.Kind }

func (e *Error) ErrorMessage() string { return e.Error() }

// FromError 尝试从通用 error 中解析钱包错误。
func FromError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Unimplemented 返回 delegate 缺少某个能力时的错误。
func Unimplemented(operation string) *Error {
	return Wrap(ErrUnimplemented, CodeUpgradeRequired, KindUpgradeRequired, "delegate does not implement "+operation)
}

// Classify 返回错误的分类，ok 为 false 时表示错误未分类。
func Classify(err error) (Classification, bool) {
	if err == nil {
		return Classification{}, false
	}
	var classifier Classifier
	if errors.As(err, &classifier) {
		return Classification{
			Code:    classifier.ErrorCode(),
			Kind:    classifier.ErrorKind(),
			Message: classifier.ErrorMessage(),
		}, true
	}
	if st, ok := status.FromError(err); ok && st.Code() != codes.OK && st.Code() != codes.Unknown {
		if c, found := grpcCodeMap[st.Code()]; found {
			c.Message = st.Message()
			return c, true
		}
	}
	return Classification{}, false
}

// Describe 返回错误编码使用的字段，未分类错误使用 CodeGeneric 和错误文本。
func Describe(err error) Classification {
	if c, ok := Classify(err); ok {
		if c.Code == 0 {
			c.Code = CodeGeneric
		}
		if c.Message == "" && err != nil {
			c.Message = err.Error()
		}
		return c
	}
	c := Classification{Code: CodeGeneric}
	if err != nil {
		c.Message = err.Error()
	}
	return c
}
