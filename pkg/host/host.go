package host

import (
	"context"
	"errors"
)

// ErrHandlerExists 表示通道名已被占用。
var ErrHandlerExists = errors.New("message handler already registered")

// InjectAt 表示脚本注入时机。
type InjectAt int

const (
	// AtDocumentStart 在页面脚本执行前注入。
	AtDocumentStart InjectAt = iota
	// AtDocumentEnd 在文档解析完成后注入。
	AtDocumentEnd
)

// UserScript 是注入到内容宿主的静态脚本。
type UserScript struct {
	Source        string
	InjectAt      InjectAt
	MainFrameOnly bool
}

// Handler 处理页面推送到通道的字符串消息。
type Handler interface {
	HandleMessage(body string)
}

// HandlerFunc 将函数适配为 Handler。
type HandlerFunc func(body string)

// HandleMessage 调用 f(body)。
func (f HandlerFunc) HandleMessage(body string) { f(body) }

// ContentHost 是承载网页内容的宿主，负责消息通道、脚本注入与脚本执行。
type ContentHost interface {
	AddMessageHandler(name string, h Handler) error
	RemoveMessageHandler(name string)
	AddUserScript(script UserScript) error
	Evaluate(ctx context.Context, script string) error
	ClientIdentity() string
}
