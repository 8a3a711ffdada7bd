// Package wshost 通过 WebSocket 把远端页面作为内容宿主接入。
package wshost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aegis-sign/walletbridge/pkg/host"
)

// ErrNoClients 表示没有可执行脚本的页面连接。
var ErrNoClients = errors.New("no page connected")

// ErrPageConnected 表示宿主已有页面连接，回调只能投递给发出请求的页面。
var ErrPageConnected = errors.New("a page is already connected")

const (
	TypeScript   = "script"
	TypeEvaluate = "evaluate"
)

const defaultWriteTimeout = 5 * time.Second

// Inbound 是页面发往宿主的通道消息。
type Inbound struct {
	Channel string `json:"channel"`
	Body    string `json:"body"`
}

// Outbound 是宿主下发到页面的脚本。
type Outbound struct {
	Type          string `json:"type"`
	Source        string `json:"source"`
	InjectAt      string `json:"injectAt,omitempty"`
	MainFrameOnly bool   `json:"mainFrameOnly,omitempty"`
}

type clientConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *clientConn) write(ctx context.Context, v Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}
	_ = c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(v)
}

// Host 实现 host.ContentHost，同一时刻只承载一个 WebSocket 页面。
type Host struct {
	identity string
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu       sync.RWMutex
	handlers map[string]host.Handler
	scripts  []host.UserScript
	client   *clientConn
	// pending 表示页面已占用连接槽位但尚未完成升级。
	pending bool
}

// New 创建 WebSocket 宿主。
func New(identity string, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		identity: identity,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
		handlers: make(map[string]host.Handler),
	}
}

// Register 把宿主挂载到 mux 的 path 上。
func (h *Host) Register(mux *http.ServeMux, path string) {
	mux.Handle(path, h)
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.client != nil || h.pending {
		h.mu.Unlock()
		h.logger.Warn("page rejected", "remote", r.RemoteAddr, "error", ErrPageConnected)
		http.Error(w, ErrPageConnected.Error(), http.StatusConflict)
		return
	}
	h.pending = true
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.mu.Lock()
		h.pending = false
		h.mu.Unlock()
		h.logger.Warn("upgrade page websocket failed", "error", err)
		return
	}
	client := &clientConn{conn: conn}

	h.mu.Lock()
	h.pending = false
	h.client = client
	scripts := append([]host.UserScript(nil), h.scripts...)
	h.mu.Unlock()
	h.logger.Info("page connected", "remote", r.RemoteAddr)

	for _, s := range scripts {
		if err := client.write(r.Context(), scriptMessage(s)); err != nil {
			h.logger.Warn("inject user script failed", "error", err)
			h.drop(client)
			return
		}
	}
	h.read(client)
}

func (h *Host) read(client *clientConn) {
	defer h.drop(client)
	for {
		var msg Inbound
		if err := client.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read page message failed", "error", err)
			}
			return
		}
		h.mu.RLock()
		handler, ok := h.handlers[msg.Channel]
		h.mu.RUnlock()
		if !ok {
			h.logger.Debug("message on unknown channel", "channel", msg.Channel)
			continue
		}
		handler.HandleMessage(msg.Body)
	}
}

func (h *Host) drop(client *clientConn) {
	h.mu.Lock()
	if h.client == client {
		h.client = nil
	}
	h.mu.Unlock()
	_ = client.conn.Close()
	h.logger.Info("page disconnected")
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

// AddUserScript 记录脚本供后续连接注入，并推送给已连接页面。
func (h *Host) AddUserScript(script host.UserScript) error {
	h.mu.Lock()
	h.scripts = append(h.scripts, script)
	h.mu.Unlock()
	_ = h.send(context.Background(), scriptMessage(script))
	return nil
}

// Evaluate 在已连接页面执行脚本，没有连接时返回 ErrNoClients。
func (h *Host) Evaluate(ctx context.Context, script string) error {
	return h.send(ctx, Outbound{Type: TypeEvaluate, Source: script})
}

func (h *Host) ClientIdentity() string { return h.identity }

// Connected 判断是否有页面连接。
func (h *Host) Connected() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.client != nil
}

func (h *Host) send(ctx context.Context, msg Outbound) error {
	h.mu.RLock()
	client := h.client
	h.mu.RUnlock()
	if client == nil {
		return ErrNoClients
	}
	return client.write(ctx, msg)
}

func scriptMessage(s host.UserScript) Outbound {
	at := "document_start"
	if s.InjectAt == host.AtDocumentEnd {
		at = "document_end"
	}
	return Outbound{Type: TypeScript, Source: s.Source, InjectAt: at, MainFrameOnly: s.MainFrameOnly}
}
