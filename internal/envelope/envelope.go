package envelope

import "github.com/aegis-sign/walletbridge/pkg/wire"

// Dialect 表示线协议方言。
type Dialect string

const (
	// Passthrough 是浏览器插件方言，请求/响应不加外层信封。
	Passthrough Dialect = "browser"
	// Correlated 是桌面应用方言，带 id/appkey/nonce 信封。
	Correlated Dialect = "desktop"
)

// Frame 是已编码、待投递的响应。
type Frame struct {
	Callback string
	Header   string
	Body     []byte
}

// Args 返回回调函数的字符串参数。
func (f Frame) Args() []string {
	if f.Header == "" {
		return []string{string(f.Body)}
	}
	return []string{"message", f.Header + "," + string(f.Body)}
}

// Adapter 是方言信封的统一契约，C 为解包时得到的信封上下文。
type Adapter[C any] interface {
	Dialect() Dialect
	Unwrap(raw []byte) (wire.Request, C, error)
	Wrap(resp wire.Response, c C) (Frame, error)
	WrapError(err error, c C) (Frame, error)
}
