// Package cdphost 通过 Chrome DevTools Protocol 把 Chrome 标签页作为内容宿主。
package cdphost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/aegis-sign/walletbridge/pkg/host"
)

// ErrClosed 表示宿主已关闭。
var ErrClosed = errors.New("cdp host closed")

// Config 是 chromedp 宿主配置。
type Config struct {
	// RemoteURL 非空时连接远端 Chrome，否则启动本地实例。
	RemoteURL string
	Headless  bool
	// Identity 同时作为标签页的 User-Agent。
	Identity string
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Host 实现 host.ContentHost，页面通过 CDP binding 推送消息。
type Host struct {
	cfg    Config
	logger *slog.Logger

	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	tabCtx        context.Context
	tabCancel     context.CancelFunc

	mu       sync.RWMutex
	handlers map[string]host.Handler
	closed   bool
}

// New 启动（或连接）浏览器并打开一个标签页。
func New(cfg Config) (*Host, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	h := &Host{cfg: cfg, logger: cfg.Logger, handlers: make(map[string]host.Handler)}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		allocCtx, h.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		h.logger.Info("chromedp connecting to remote browser", "url", cfg.RemoteURL)
	} else {
		opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
		copy(opts, chromedp.DefaultExecAllocatorOptions[:])
		opts = append(opts,
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
		)
		if cfg.Identity != "" {
			opts = append(opts, chromedp.UserAgent(cfg.Identity))
		}
		allocCtx, h.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		h.logger.Info("chromedp launching local browser", "headless", cfg.Headless)
	}

	var browserCtx context.Context
	browserCtx, h.browserCancel = chromedp.NewContext(allocCtx)
	h.tabCtx, h.tabCancel = chromedp.NewContext(browserCtx)

	chromedp.ListenTarget(h.tabCtx, h.onEvent)

	// tabCtx 绑定了 CDP 会话，不能包一层超时再首次 Run。
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(h.tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
			if cfg.Identity == "" {
				return nil
			}
			return emulation.SetUserAgentOverride(cfg.Identity).Do(ctx)
		}))
	}()
	select {
	case err := <-started:
		if err != nil {
			h.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-time.After(cfg.Timeout):
		h.Close()
		return nil, fmt.Errorf("start browser: timed out after %v", cfg.Timeout)
	}
	h.logger.Info("chromedp browser started")
	return h, nil
}

func (h *Host) onEvent(ev any) {
	called, ok := ev.(*runtime.EventBindingCalled)
	if !ok {
		return
	}
	h.mu.RLock()
	handler, found := h.handlers[called.Name]
	h.mu.RUnlock()
	if !found {
		return
	}
	handler.HandleMessage(called.Payload)
}

func (h *Host) run(ctx context.Context, actions ...chromedp.Action) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	tctx, cancel := context.WithTimeout(h.tabCtx, h.cfg.Timeout)
	defer cancel()
	if ctx != nil {
		stop := context.AfterFunc(ctx, cancel)
		defer stop()
	}
	return chromedp.Run(tctx, actions...)
}

// AddMessageHandler 以 name 在页面上注册全局 binding 函数。
func (h *Host) AddMessageHandler(name string, handler host.Handler) error {
	h.mu.Lock()
	if _, ok := h.handlers[name]; ok {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", host.ErrHandlerExists, name)
	}
	h.handlers[name] = handler
	h.mu.Unlock()

	err := h.run(context.Background(), chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.AddBinding(name).Do(ctx)
	}))
	if err != nil {
		h.RemoveMessageHandler(name)
		return fmt.Errorf("add binding %s: %w", name, err)
	}
	return nil
}

// RemoveMessageHandler 停止分发 name 通道的消息，并尽力移除页面 binding。
func (h *Host) RemoveMessageHandler(name string) {
	h.mu.Lock()
	_, existed := h.handlers[name]
	delete(h.handlers, name)
	h.mu.Unlock()
	if !existed {
		return
	}
	err := h.run(context.Background(), chromedp.ActionFunc(func(ctx context.Context) error {
		return runtime.RemoveBinding(name).Do(ctx)
	}))
	if err != nil && !errors.Is(err, ErrClosed) {
		h.logger.Debug("remove binding failed", "name", name, "error", err)
	}
}

// AddUserScript 注册在每个新文档中执行的脚本。
func (h *Host) AddUserScript(script host.UserScript) error {
	source := WrapScript(script)
	return h.run(context.Background(), chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(source).Do(ctx)
		return err
	}))
}

// Evaluate 在当前文档中执行脚本，忽略返回值。
func (h *Host) Evaluate(ctx context.Context, script string) error {
	return h.run(ctx, chromedp.Evaluate(script, nil))
}

func (h *Host) ClientIdentity() string { return h.cfg.Identity }

// Navigate 打开 url 并等待 body 就绪。
func (h *Host) Navigate(ctx context.Context, url string) error {
	return h.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body"))
}

// Close 关闭标签页与浏览器。
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.mu.Unlock()
	if h.tabCancel != nil {
		h.tabCancel()
	}
	if h.browserCancel != nil {
		h.browserCancel()
	}
	if h.allocCancel != nil {
		h.allocCancel()
	}
}

// WrapScript 按注入时机与主框架限制包装脚本源码。
func WrapScript(s host.UserScript) string {
	source := s.Source
	if s.InjectAt == host.AtDocumentEnd {
		var b strings.Builder
		b.WriteString("(function(){var run=function(){\n")
		b.WriteString(source)
		b.WriteString("\n};if(document.readyState==='loading'){document.addEventListener('DOMContentLoaded',run,{once:true});}else{run();}})();")
		source = b.String()
	}
	if s.MainFrameOnly {
		source = "if(window.top===window){\n" + source + "\n}"
	}
	return source
}
