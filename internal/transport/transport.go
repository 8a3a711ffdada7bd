package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"weak"

	"golang.org/x/time/rate"

	"github.com/aegis-sign/walletbridge/internal/envelope"
	"github.com/aegis-sign/walletbridge/internal/router"
	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/host"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// ErrClosed 表示 Transport 已关闭。
var ErrClosed = errors.New("transport closed")

// Transport 是字符串消息与类型化管线之间的唯一边界。
type Transport[C any] struct {
	cfg     Config
	host    host.ContentHost
	adapter envelope.Adapter[C]
	router  *router.Router[C]
	dialect string
	logger  *slog.Logger
	metrics *Metrics

	limiter   atomic.Pointer[rate.Limiter]
	closed    atomic.Bool
	closeOnce sync.Once
}

// forwarder 是注册到宿主的处理器，只持有 Transport 的弱引用。
type forwarder[C any] struct {
	target weak.Pointer[Transport[C]]
}

func (f *forwarder[C]) HandleMessage(body string) {
	t := f.target.Value()
	if t == nil {
		return
	}
	t.Receive(body)
}

// New 创建 Transport，注册入站通道并注入一次初始化脚本。
func New[C any](h host.ContentHost, adapter envelope.Adapter[C], cfg Config) (*Transport[C], error) {
	if h == nil {
		return nil, errors.New("content host is required")
	}
	if adapter == nil {
		return nil, errors.New("envelope adapter is required")
	}
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	dialect := string(adapter.Dialect())
	t := &Transport[C]{
		cfg:     normalized,
		host:    h,
		adapter: adapter,
		dialect: dialect,
		logger:  normalized.Logger.With(slog.String("dialect", dialect), slog.String("channel", normalized.Channel)),
		metrics: normalized.Metrics,
	}
	t.router, err = router.New[C](router.Config{
		Dialect:    dialect,
		Background: normalized.Background,
		Delegate:   normalized.Delegate,
		Logger:     normalized.Logger,
		Metrics:    normalized.Router,
		Tracer:     normalized.Tracer,
	}, t)
	if err != nil {
		return nil, err
	}
	if normalized.RateLimit > 0 {
		t.limiter.Store(rate.NewLimiter(rate.Limit(normalized.RateLimit), normalized.RateBurst))
	}
	if err := h.AddMessageHandler(normalized.Channel, &forwarder[C]{target: weak.Make(t)}); err != nil {
		return nil, fmt.Errorf("register channel %q: %w", normalized.Channel, err)
	}
	if err := h.AddUserScript(normalized.Setup); err != nil {
		h.RemoveMessageHandler(normalized.Channel)
		return nil, fmt.Errorf("inject setup script: %w", err)
	}
	return t, nil
}

// Receive 处理一条入站消息；解码在后台执行器上进行，失败时只记录日志。
func (t *Transport[C]) Receive(body string) {
	if t.closed.Load() {
		return
	}
	if limiter := t.limiter.Load(); limiter != nil && !limiter.Allow() {
		t.metrics.incDiscarded(t.dialect, "rate_limited")
		t.logger.Warn("inbound message rate limited")
		return
	}
	t.metrics.incReceived(t.dialect)
	if err := t.cfg.Background.Submit(func() { t.handle(body) }); err != nil {
		t.metrics.incDiscarded(t.dialect, "background_rejected")
		t.logger.Error("background executor rejected inbound message", slog.Any("err", err))
	}
}

func (t *Transport[C]) handle(body string) {
	req, c, err := t.adapter.Unwrap([]byte(body))
	if err != nil {
		reason := "decode"
		if errors.Is(err, apierrors.ErrUnsupportedKind) {
			reason = "unsupported_kind"
		}
		t.metrics.incDiscarded(t.dialect, reason)
		t.logger.Warn("inbound message discarded", slog.String("reason", reason), slog.Any("err", err))
		return
	}
	t.logger.Debug("inbound message decoded", slog.Any("envelope", c))
	t.router.Route(req, c)
}

// Deliver 实现 router.Sink：封装响应并在投递执行器上执行回调脚本。
func (t *Transport[C]) Deliver(resp wire.Response, c C) {
	frame, err := t.adapter.Wrap(resp, c)
	if err != nil {
		t.logger.Warn("response wrap failed, delivering error", slog.String("operation", resp.Request().Operation().String()), slog.Any("err", err))
		frame, err = t.adapter.WrapError(fmt.Errorf("%w: %v", apierrors.ErrParse, err), c)
	}
	if err != nil {
		t.metrics.incDelivery(t.dialect, "encode_failed")
		t.logger.Error("response could not be encoded", slog.Any("err", err))
		return
	}
	script := host.Invocation(frame.Callback, frame.Args()...)
	submitErr := t.cfg.Delivery.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.EvalTimeout)
		defer cancel()
		if err := t.host.Evaluate(ctx, script); err != nil {
			t.metrics.incDelivery(t.dialect, "failed")
			t.logger.Warn("callback evaluation failed", slog.String("callback", frame.Callback), slog.Any("err", err))
			return
		}
		t.metrics.incDelivery(t.dialect, "ok")
	})
	if submitErr != nil {
		t.metrics.incDelivery(t.dialect, "rejected")
		t.logger.Error("delivery executor rejected response", slog.String("callback", frame.Callback), slog.Any("err", submitErr))
	}
}

// SetDelegate 绑定 delegate。
func (t *Transport[C]) SetDelegate(d delegate.Delegate) { t.router.SetDelegate(d) }

// Delegate 返回当前绑定的 delegate。
func (t *Transport[C]) Delegate() delegate.Delegate { return t.router.Delegate() }

// Dialect 返回方言。
func (t *Transport[C]) Dialect() envelope.Dialect { return t.adapter.Dialect() }

// Channel 返回入站通道名。
func (t *Transport[C]) Channel() string { return t.cfg.Channel }

// InFlight 返回等待 delegate 回调的请求。
func (t *Transport[C]) InFlight() []router.Pending { return t.router.InFlight() }

// UpdateRateLimit 热更新入站速率限制。
func (t *Transport[C]) UpdateRateLimit(rateValue float64) {
	if rateValue <= 0 {
		t.limiter.Store(nil)
		return
	}
	t.limiter.Store(rate.NewLimiter(rate.Limit(rateValue), t.cfg.RateBurst))
}

// RateLimit 返回当前速率限制，0 表示不限制。
func (t *Transport[C]) RateLimit() float64 {
	if limiter := t.limiter.Load(); limiter != nil {
		return float64(limiter.Limit())
	}
	return 0
}

// Close 注销入站通道，之后收到的消息被忽略。
func (t *Transport[C]) Close() {
	t.closeOnce.Do(func() {
		t.closed.Store(true)
		t.host.RemoveMessageHandler(t.cfg.Channel)
	})
}
