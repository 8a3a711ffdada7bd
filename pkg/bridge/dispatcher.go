package bridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aegis-sign/walletbridge/internal/assets"
	"github.com/aegis-sign/walletbridge/internal/envelope"
	"github.com/aegis-sign/walletbridge/internal/router"
	"github.com/aegis-sign/walletbridge/internal/transport"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/executor"
	"github.com/aegis-sign/walletbridge/pkg/host"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// Dispatcher 持有每个方言的管线，并统一绑定 delegate。
type Dispatcher struct {
	cfg  Config
	host host.ContentHost

	browser *transport.Transport[wire.Request]
	desktop *transport.Transport[envelope.Session]
	owned   []*executor.Pool

	mu       sync.Mutex
	delegate delegate.Delegate
	closed   bool
}

// New 为 cfg.Dialects 中的每个方言创建管线并注册到宿主。
func New(h host.ContentHost, cfg Config) (*Dispatcher, error) {
	if h == nil {
		return nil, errors.New("content host is required")
	}
	normalized := cfg.normalize()
	d := &Dispatcher{cfg: normalized, host: h}

	execMetrics := executor.NewMetrics(normalized.Registerer)
	transportMetrics := transport.NewMetrics(normalized.Registerer)
	routerMetrics := router.NewMetrics(normalized.Registerer)

	pool := func(name string, workers int) *executor.Pool {
		p := executor.NewPool(executor.Config{
			Name:     name,
			Workers:  workers,
			MaxQueue: normalized.QueueSize,
			Logger:   normalized.Logger,
			Metrics:  execMetrics,
		})
		d.owned = append(d.owned, p)
		return p
	}
	delegateExec := normalized.Delegate
	if delegateExec == nil {
		delegateExec = pool("delegate", 1)
	}
	deliveryExec := normalized.Delivery
	if deliveryExec == nil {
		deliveryExec = pool("delivery", 1)
	}
	sharedBackground := normalized.Background
	background := func(dialect envelope.Dialect) executor.Executor {
		if normalized.DedicatedBackground {
			return pool("background-"+string(dialect), normalized.BackgroundWorkers)
		}
		if sharedBackground == nil {
			sharedBackground = pool("background", normalized.BackgroundWorkers)
		}
		return sharedBackground
	}
	base := func(dialect envelope.Dialect, channel string) (transport.Config, error) {
		setup, err := assets.SetupScript(dialect, channel, h.ClientIdentity(), normalized.ScriptTimeout)
		if err != nil {
			return transport.Config{}, err
		}
		return transport.Config{
			Channel:     channel,
			Setup:       setup,
			Background:  background(dialect),
			Delegate:    delegateExec,
			Delivery:    deliveryExec,
			RateLimit:   normalized.RateLimit,
			RateBurst:   normalized.RateBurst,
			EvalTimeout: normalized.EvalTimeout,
			Logger:      normalized.Logger,
			Metrics:     transportMetrics,
			Router:      routerMetrics,
			Tracer:      normalized.Tracer,
		}, nil
	}

	if normalized.Dialects.Has(BrowserExtension) {
		tc, err := base(envelope.Passthrough, normalized.BrowserChannel)
		if err == nil {
			d.browser, err = transport.New[wire.Request](h, envelope.PassthroughAdapter{}, tc)
		}
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("browser pipeline: %w", err)
		}
	}
	if normalized.Dialects.Has(DesktopApplication) {
		tc, err := base(envelope.Correlated, normalized.DesktopChannel)
		if err == nil {
			d.desktop, err = transport.New[envelope.Session](h, envelope.CorrelatedAdapter{}, tc)
		}
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("desktop pipeline: %w", err)
		}
	}
	normalized.Logger.Info("wallet bridge ready",
		"browser", d.browser != nil,
		"desktop", d.desktop != nil,
		"client_identity", h.ClientIdentity())
	return d, nil
}

// SetDelegate 在同一临界区内把 delegate 绑定到所有管线，nil 表示解绑。
func (d *Dispatcher) SetDelegate(dg delegate.Delegate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delegate = dg
	if d.browser != nil {
		d.browser.SetDelegate(dg)
	}
	if d.desktop != nil {
		d.desktop.SetDelegate(dg)
	}
}

// Delegate 返回当前绑定的 delegate。
func (d *Dispatcher) Delegate() delegate.Delegate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.delegate
}

// ClientIdentity 返回宿主声明的客户端标识。
func (d *Dispatcher) ClientIdentity() string { return d.host.ClientIdentity() }

// UpdateRateLimit 热更新所有管线的入站速率限制。
func (d *Dispatcher) UpdateRateLimit(rateValue float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser != nil {
		d.browser.UpdateRateLimit(rateValue)
	}
	if d.desktop != nil {
		d.desktop.UpdateRateLimit(rateValue)
	}
}

// Close 先注销所有入站通道，再关闭自有执行器。
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.browser != nil {
		d.browser.Close()
	}
	if d.desktop != nil {
		d.desktop.Close()
	}
	d.mu.Unlock()
	for _, p := range d.owned {
		p.Close()
	}
}
