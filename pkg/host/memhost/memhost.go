package memhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/aegis-sign/walletbridge/pkg/host"
)

// Host 是进程内的内容宿主，记录注入的脚本与执行的回调。
type Host struct {
	identity string

	mu          sync.Mutex
	handlers    map[string]host.Handler
	scripts     []host.UserScript
	evaluations []string
	evalErr     error
	evaluated   chan string
}

// New 创建内存宿主，identity 为宿主声明的客户端标识。
func New(identity string) *Host {
	return &Host{
		identity:  identity,
		handlers:  make(map[string]host.Handler),
		evaluated: make(chan string, 256),
	}
}

func (h *Host) AddMessageHandler(name string, handler host.Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.handlers[name]; ok {
		return fmt.Errorf("%w: %s", host.ErrHandlerExists, name)
	}
	h.handlers[name] = handler
	return nil
}

func (h *Host) RemoveMessageHandler(name string) {
	h.mu.Lock()
	delete(h.handlers, name)
	h.mu.Unlock()
}

func (h *Host) AddUserScript(script host.UserScript) error {
	h.mu.Lock()
	h.scripts = append(h.scripts, script)
	h.mu.Unlock()
	return nil
}

func (h *Host) Evaluate(_ context.Context, script string) error {
	h.mu.Lock()
	err := h.evalErr
	h.evaluations = append(h.evaluations, script)
	h.mu.Unlock()
	select {
	case h.evaluated <- script:
	default:
	}
	return err
}

func (h *Host) ClientIdentity() string { return h.identity }

// Post 模拟页面向 name 通道推送消息，通道未注册时返回 false。
func (h *Host) Post(name, body string) bool {
	h.mu.Lock()
	handler, ok := h.handlers[name]
	h.mu.Unlock()
	if !ok {
		return false
	}
	handler.HandleMessage(body)
	return true
}

// HasHandler 判断 name 通道是否已注册。
func (h *Host) HasHandler(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.handlers[name]
	return ok
}

// Scripts 返回已注入脚本的副本。
func (h *Host) Scripts() []host.UserScript {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.UserScript(nil), h.scripts...)
}

// Evaluations 返回已执行脚本的副本。
func (h *Host) Evaluations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.evaluations...)
}

// Evaluated 返回按执行顺序推送脚本的通道。
func (h *Host) Evaluated() <-chan string { return h.evaluated }

// FailEvaluations 使后续 Evaluate 返回 err。
func (h *Host) FailEvaluations(err error) {
	h.mu.Lock()
	h.evalErr = err
	h.mu.Unlock()
}
