package router

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

// Sink 接收路由层生成的响应，c 为请求解包时的信封上下文。
type Sink[C any] interface {
	Deliver(resp wire.Response, c C)
}

// Pending 描述一个等待 delegate 回调的请求。
type Pending struct {
	ID        uint64        `json:"id"`
	Operation string        `json:"operation"`
	Callback  string        `json:"callback"`
	Age       time.Duration `json:"age"`
}

type pending struct {
	id         uint64
	operation  wire.Operation
	callback   string
	generation uint64
	started    time.Time
}

// Router 将请求分发给 delegate，并把唯一一次回调结果转换为响应。
type Router[C any] struct {
	cfg     Config
	sink    Sink[C]
	logger  *slog.Logger
	metrics *Metrics

	mu         sync.Mutex
	delegate   delegate.Delegate
	generation uint64
	inFlight   map[uint64]*pending

	seq atomic.Uint64
}

// New 创建 Router。
func New[C any](cfg Config, sink Sink[C]) (*Router[C], error) {
	if sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}
	return &Router[C]{
		cfg:      normalized,
		sink:     sink,
		logger:   normalized.Logger.With(slog.String("dialect", normalized.Dialect)),
		metrics:  normalized.Metrics,
		inFlight: make(map[uint64]*pending),
	}, nil
}

// SetDelegate 绑定新的 delegate（可为 nil），旧绑定下未完成的请求将不再产生响应。
func (r *Router[C]) SetDelegate(d delegate.Delegate) {
	r.mu.Lock()
	r.delegate = d
	r.generation++
	orphaned := len(r.inFlight)
	r.inFlight = make(map[uint64]*pending)
	r.mu.Unlock()
	if orphaned > 0 {
		r.metrics.addInFlight(r.cfg.Dialect, -float64(orphaned))
		r.logger.Info("delegate rebound with requests in flight", slog.Int("orphaned", orphaned))
	}
}

// Delegate 返回当前绑定的 delegate。
func (r *Router[C]) Delegate() delegate.Delegate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.delegate
}

// InFlight 返回等待回调的请求快照。
func (r *Router[C]) InFlight() []Pending {
	now := time.Now()
	r.mu.Lock()
	out := make([]Pending, 0, len(r.inFlight))
	for _, p := range r.inFlight {
		out = append(out, Pending{ID: p.id, Operation: p.operation.String(), Callback: p.callback, Age: now.Sub(p.started)})
	}
	r.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Route 在后台上下文中调用：参数缺失时立即返回解析错误，否则交给 delegate 执行器。
func (r *Router[C]) Route(req wire.Request, c C) {
	op := req.Operation()
	r.metrics.incRequest(r.cfg.Dialect, op.String())
	ctx, span := r.cfg.Tracer.Start(context.Background(), "walletbridge.route",
		trace.WithAttributes(
			attribute.String("walletbridge.dialect", r.cfg.Dialect),
			attribute.String("walletbridge.operation", op.String()),
		))

	if req.Params() == nil {
		cause := req.ParamsErr()
		if cause == nil {
			cause = fmt.Errorf("no params for %s", op)
		}
		r.respond(span, wire.NewErrorResponse(req, fmt.Errorf("%w: %v", apierrors.ErrParse, cause)), c)
		return
	}

	r.mu.Lock()
	d := r.delegate
	generation := r.generation
	if d == nil {
		r.mu.Unlock()
		r.metrics.incDropped(r.cfg.Dialect, "no_delegate")
		r.logger.Warn("request dropped without delegate", slog.String("operation", op.String()), slog.String("callback", req.Callback()))
		span.SetStatus(codes.Error, "no delegate")
		span.End()
		return
	}
	p := &pending{id: r.seq.Add(1), operation: op, callback: req.Callback(), generation: generation, started: time.Now()}
	r.inFlight[p.id] = p
	r.mu.Unlock()
	r.metrics.addInFlight(r.cfg.Dialect, 1)

	done := r.completion(span, p, req, c)
	err := r.cfg.Delegate.Submit(func() {
		if err := invokeDelegate(ctx, d, req, done); err != nil {
			done(nil, err)
		}
	})
	if err != nil {
		r.logger.Warn("delegate executor rejected request", slog.String("operation", op.String()), slog.Any("err", err))
		if r.release(p) {
			r.respond(span, wire.NewErrorResponse(req, apierrors.Wrap(err, apierrors.CodeTooManyRequests, "", "wallet is busy")), c)
		}
	}
}

// completion 返回单次生效的回调，回调结果在后台执行器上转换为响应。
func (r *Router[C]) completion(span trace.Span, p *pending, req wire.Request, c C) completion {
	var fired atomic.Bool
	return func(payload wire.Payload, err error) {
		if !fired.CompareAndSwap(false, true) {
			r.logger.Warn("delegate callback invoked more than once", slog.String("operation", p.operation.String()), slog.Uint64("id", p.id))
			return
		}
		r.metrics.observeLatency(r.cfg.Dialect, p.operation.String(), float64(time.Since(p.started).Milliseconds()))
		submitErr := r.cfg.Background.Submit(func() {
			if !r.release(p) {
				r.metrics.incDropped(r.cfg.Dialect, "delegate_rebound")
				r.logger.Info("delegate result discarded after rebind", slog.String("operation", p.operation.String()), slog.Uint64("id", p.id))
				span.SetStatus(codes.Error, "delegate rebound")
				span.End()
				return
			}
			if err != nil {
				r.respond(span, wire.NewErrorResponse(req, err), c)
				return
			}
			resp, buildErr := wire.NewSuccess(req, payload)
			if buildErr != nil {
				r.respond(span, wire.NewErrorResponse(req, buildErr), c)
				return
			}
			r.respond(span, resp, c)
		})
		if submitErr != nil {
			r.release(p)
			r.metrics.incDropped(r.cfg.Dialect, "background_rejected")
			r.logger.Error("background executor rejected delegate result", slog.String("operation", p.operation.String()), slog.Any("err", submitErr))
			span.SetStatus(codes.Error, submitErr.Error())
			span.End()
		}
	}
}

// release 移除在途记录；请求属于旧的 delegate 绑定时返回 false。
func (r *Router[C]) release(p *pending) bool {
	r.mu.Lock()
	_, ok := r.inFlight[p.id]
	current := ok && p.generation == r.generation
	if ok {
		delete(r.inFlight, p.id)
	}
	r.mu.Unlock()
	if ok {
		r.metrics.addInFlight(r.cfg.Dialect, -1)
	}
	return current
}

func (r *Router[C]) respond(span trace.Span, resp wire.Response, c C) {
	status := "success"
	if resp.Status() == wire.StatusError {
		status = "error"
		span.RecordError(resp.Err())
		span.SetStatus(codes.Error, resp.Message())
	}
	r.metrics.incResponse(r.cfg.Dialect, resp.Request().Operation().String(), status)
	span.End()
	r.sink.Deliver(resp, c)
}
