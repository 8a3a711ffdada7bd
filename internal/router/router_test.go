package router

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/aegis-sign/walletbridge/pkg/apierrors"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/executor"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

type delivered struct {
	resp wire.Response
	tag  string
}

type recordingSink struct {
	ch chan delivered
}

func newSink() *recordingSink { return &recordingSink{ch: make(chan delivered, 16)} }

func (s *recordingSink) Deliver(resp wire.Response, tag string) {
	s.ch <- delivered{resp: resp, tag: tag}
}

func (s *recordingSink) next(t *testing.T) delivered {
	t.Helper()
	select {
	case d := <-s.ch:
		return d
	case <-time.After(time.Second):
		t.Fatal("no response delivered")
		return delivered{}
	}
}

func newRouter(t *testing.T, sink *recordingSink, delegateExec executor.Executor) (*Router[string], *Metrics) {
	t.Helper()
	bg := executor.NewPool(executor.Config{Name: "bg", Workers: 2, Metrics: executor.NewMetrics(prometheus.NewRegistry())})
	t.Cleanup(bg.Close)
	if delegateExec == nil {
		main := executor.NewPool(executor.Config{Name: "main", Workers: 1, Metrics: executor.NewMetrics(prometheus.NewRegistry())})
		t.Cleanup(main.Close)
		delegateExec = main
	}
	metrics := NewMetrics(prometheus.NewRegistry())
	r, err := New[string](Config{Dialect: "browser", Background: bg, Delegate: delegateExec, Metrics: metrics}, sink)
	require.NoError(t, err)
	return r, metrics
}

func request(t *testing.T, frame string) wire.Request {
	t.Helper()
	req, err := wire.DecodeRequest([]byte(frame))
	require.NoError(t, err)
	return req
}

const balanceFrame = `{"methodName":"getEosBalance","params":{"account":"alice","contract":"eosio.token"},"callback":"cb"}`

func TestRouteMissingParamsSkipsDelegate(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, nil)
	var calls atomic.Int64
	r.SetDelegate(delegate.Funcs{BalanceFunc: func(context.Context, wire.BalanceParams, delegate.Callback[wire.Balance]) error {
		calls.Add(1)
		return nil
	}})

	r.Route(request(t, `{"methodName":"getEosBalance","params":{"account":"alice"},"callback":"cb"}`), "a")
	got := sink.next(t)
	require.Equal(t, wire.StatusError, got.resp.Status())
	require.ErrorIs(t, got.resp.Err(), apierrors.ErrParse)

	r.Route(request(t, `{"methodName":"launchMissiles","callback":"cb"}`), "b")
	got = sink.next(t)
	require.Equal(t, "b", got.tag)
	require.ErrorIs(t, got.resp.Err(), apierrors.ErrParse)
	require.Zero(t, calls.Load())
}

func TestRouteSuccess(t *testing.T) {
	sink := newSink()
	r, metrics := newRouter(t, sink, nil)
	r.SetDelegate(delegate.Funcs{BalanceFunc: func(_ context.Context, p wire.BalanceParams, done delegate.Callback[wire.Balance]) error {
		go done(wire.Balance{Account: p.Account, Contract: p.Contract, Symbol: "EOS"}, nil)
		return nil
	}})

	r.Route(request(t, balanceFrame), "tag")
	got := sink.next(t)
	require.Equal(t, "tag", got.tag)
	require.Equal(t, wire.StatusSuccess, got.resp.Status())
	require.Equal(t, wire.Balance{Account: "alice", Contract: "eosio.token", Symbol: "EOS"}, got.resp.Payload())
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.responses.WithLabelValues("browser", "getEosBalance", "success")))
	require.Empty(t, r.InFlight())
}

type appInfoOnly struct{}

func (appInfoOnly) AppInfo(_ context.Context, done delegate.Callback[wire.AppInfo]) error {
	done(wire.AppInfo{App: "wallet"}, nil)
	return nil
}

func TestRouteMissingCapability(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, nil)
	r.SetDelegate(appInfoOnly{})

	r.Route(request(t, balanceFrame), "x")
	got := sink.next(t)
	require.ErrorIs(t, got.resp.Err(), apierrors.ErrUnimplemented)

	r.Route(request(t, `{"methodName":"getAppInfo","callback":"cb"}`), "y")
	got = sink.next(t)
	require.Equal(t, wire.StatusSuccess, got.resp.Status())
}

func TestRouteUnimplementedNamesRequestedOperation(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, nil)
	r.SetDelegate(delegate.Funcs{})

	r.Route(request(t, `{"methodName":"requestArbitrarySignature","params":{"publicKey":"EOS6abc","data":"hello","isHash":false},"callback":"cb"}`), "sig")
	got := sink.next(t)
	require.ErrorIs(t, got.resp.Err(), apierrors.ErrUnimplemented)
	require.Equal(t, "delegate does not implement requestArbitrarySignature", apierrors.Describe(got.resp.Err()).Message)

	r.Route(request(t, `{"methodName":"identityFromPermissions","callback":"cb"}`), "id")
	got = sink.next(t)
	require.Equal(t, "delegate does not implement identityFromPermissions", apierrors.Describe(got.resp.Err()).Message)
	require.Equal(t, apierrors.CodeUpgradeRequired, apierrors.Describe(got.resp.Err()).Code)
}

func TestRouteDelegateErrors(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, nil)
	flagged := apierrors.New(apierrors.CodeForbidden, apierrors.KindMalicious, "malicious")
	r.SetDelegate(delegate.Funcs{
		BalanceFunc: func(context.Context, wire.BalanceParams, delegate.Callback[wire.Balance]) error {
			return errors.New("sync failure")
		},
		WalletLanguageFunc: func(context.Context, delegate.Callback[wire.Language]) error {
			panic("delegate bug")
		},
		AppInfoFunc: func(_ context.Context, done delegate.Callback[wire.AppInfo]) error {
			done(wire.AppInfo{}, flagged)
			return nil
		},
		SignTransactionFunc: func(_ context.Context, _ wire.TransactionSignatureParams, done delegate.Callback[wire.TransactionSignature]) error {
			done(wire.TransactionSignature{}, nil)
			return nil
		},
	})

	r.Route(request(t, balanceFrame), "sync")
	require.EqualError(t, sink.next(t).resp.Err(), "sync failure")

	r.Route(request(t, `{"methodName":"walletLanguage","callback":"cb"}`), "panic")
	require.ErrorContains(t, sink.next(t).resp.Err(), "delegate panicked")

	r.Route(request(t, `{"methodName":"getAppInfo","callback":"cb"}`), "flagged")
	require.Equal(t, flagged, sink.next(t).resp.Err())

	r.Route(request(t, `{"methodName":"requestSignature","params":{"transaction":{"chainId":"c","serializedTransaction":"00"}},"callback":"cb"}`), "transform")
	require.ErrorIs(t, sink.next(t).resp.Err(), apierrors.ErrParse)
}

func TestRouteDeliversInCompletionOrder(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, nil)
	var mu sync.Mutex
	pendingCallbacks := map[string]delegate.Callback[wire.Balance]{}
	r.SetDelegate(delegate.Funcs{BalanceFunc: func(_ context.Context, p wire.BalanceParams, done delegate.Callback[wire.Balance]) error {
		mu.Lock()
		pendingCallbacks[p.Account] = done
		mu.Unlock()
		return nil
	}})

	r.Route(request(t, `{"methodName":"getEosBalance","params":{"account":"first","contract":"c"},"callback":"cbFirst"}`), "first")
	r.Route(request(t, `{"methodName":"getEosBalance","params":{"account":"second","contract":"c"},"callback":"cbSecond"}`), "second")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(pendingCallbacks) == 2
	}, time.Second, 5*time.Millisecond)
	require.Len(t, r.InFlight(), 2)

	mu.Lock()
	second, first := pendingCallbacks["second"], pendingCallbacks["first"]
	mu.Unlock()
	second(wire.Balance{Account: "second", Symbol: "EOS"}, nil)
	require.Equal(t, "second", sink.next(t).tag)
	first(wire.Balance{Account: "first", Symbol: "EOS"}, nil)
	require.Equal(t, "first", sink.next(t).tag)
}

func TestRouteClearedDelegateNeverResponds(t *testing.T) {
	sink := newSink()
	r, metrics := newRouter(t, sink, nil)
	callbacks := make(chan delegate.Callback[wire.Balance], 1)
	r.SetDelegate(delegate.Funcs{BalanceFunc: func(_ context.Context, _ wire.BalanceParams, done delegate.Callback[wire.Balance]) error {
		callbacks <- done
		return nil
	}})

	r.Route(request(t, balanceFrame), "orphan")
	done := <-callbacks
	r.SetDelegate(nil)
	require.Empty(t, r.InFlight())
	require.Nil(t, r.Delegate())

	done(wire.Balance{Account: "alice", Symbol: "EOS"}, nil)
	require.Never(t, func() bool { return len(sink.ch) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.dropped.WithLabelValues("browser", "delegate_rebound")) == 1
	}, time.Second, 5*time.Millisecond)

	r.Route(request(t, balanceFrame), "unbound")
	require.Never(t, func() bool { return len(sink.ch) > 0 }, 50*time.Millisecond, 10*time.Millisecond)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.dropped.WithLabelValues("browser", "no_delegate")))
}

func TestRouteCallbackIsSingleFire(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, nil)
	r.SetDelegate(delegate.Funcs{AppInfoFunc: func(_ context.Context, done delegate.Callback[wire.AppInfo]) error {
		done(wire.AppInfo{App: "wallet"}, nil)
		done(wire.AppInfo{}, errors.New("late"))
		return errors.New("also late")
	}})

	r.Route(request(t, `{"methodName":"getAppInfo","callback":"cb"}`), "once")
	require.Equal(t, wire.StatusSuccess, sink.next(t).resp.Status())
	require.Never(t, func() bool { return len(sink.ch) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

type rejectingExecutor struct{}

func (rejectingExecutor) Submit(func()) error { return executor.ErrQueueFull }

func TestRouteDelegateQueueFull(t *testing.T) {
	sink := newSink()
	r, _ := newRouter(t, sink, rejectingExecutor{})
	r.SetDelegate(delegate.Funcs{})

	r.Route(request(t, balanceFrame), "busy")
	got := sink.next(t)
	apiErr, ok := apierrors.FromError(got.resp.Err())
	require.True(t, ok)
	require.Equal(t, apierrors.CodeTooManyRequests, apiErr.Code)
	require.ErrorIs(t, got.resp.Err(), executor.ErrQueueFull)
	require.Empty(t, r.InFlight())
}

func TestRouteRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	sink := newSink()
	r, err := New[string](Config{
		Dialect:    "desktop",
		Background: executor.Inline{},
		Delegate:   executor.Inline{},
		Tracer:     tp.Tracer("test"),
	}, sink)
	require.NoError(t, err)
	r.SetDelegate(appInfoOnly{})

	r.Route(request(t, `{"methodName":"getAppInfo","callback":"cb"}`), "span")
	sink.next(t)
	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "walletbridge.route", ended[0].Name())
}

func TestNewRequiresExecutors(t *testing.T) {
	_, err := New[string](Config{}, newSink())
	require.Error(t, err)
	_, err = New[string](Config{Background: executor.Inline{}, Delegate: executor.Inline{}}, nil)
	require.Error(t, err)
}
