package transport

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
	"weak"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sign/walletbridge/internal/envelope"
	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/executor"
	"github.com/aegis-sign/walletbridge/pkg/host"
	"github.com/aegis-sign/walletbridge/pkg/host/memhost"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

func testConfig(channel string, metrics *Metrics) Config {
	return Config{
		Channel:    channel,
		Setup:      host.UserScript{Source: "var setup = true;"},
		Background: executor.Inline{},
		Delegate:   executor.Inline{},
		Delivery:   executor.Inline{},
		Metrics:    metrics,
	}
}

func appInfoDelegate() delegate.Funcs {
	return delegate.Funcs{AppInfoFunc: func(_ context.Context, done delegate.Callback[wire.AppInfo]) error {
		done(wire.AppInfo{App: "wallet", AppVersion: "1.2"}, nil)
		return nil
	}}
}

func nextEvaluation(t *testing.T, h *memhost.Host) string {
	t.Helper()
	select {
	case s := <-h.Evaluated():
		return s
	case <-time.After(time.Second):
		t.Fatal("no evaluation")
		return ""
	}
}

func TestTransportRegistersChannelOnce(t *testing.T) {
	h := memhost.New("agent")
	tr, err := New[wire.Request](h, envelope.PassthroughAdapter{}, testConfig("pushMessage", nil))
	require.NoError(t, err)
	require.True(t, h.HasHandler("pushMessage"))
	require.Len(t, h.Scripts(), 1)
	require.Equal(t, "pushMessage", tr.Channel())
	require.Equal(t, envelope.Passthrough, tr.Dialect())

	_, err = New[wire.Request](h, envelope.PassthroughAdapter{}, testConfig("pushMessage", nil))
	require.ErrorIs(t, err, host.ErrHandlerExists)
	require.Len(t, h.Scripts(), 1)

	tr.Close()
	tr.Close()
	require.False(t, h.HasHandler("pushMessage"))
}

func TestTransportBrowserRoundTrip(t *testing.T) {
	h := memhost.New("agent")
	tr, err := New[wire.Request](h, envelope.PassthroughAdapter{}, testConfig("pushMessage", NewMetrics(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	tr.SetDelegate(appInfoDelegate())

	require.True(t, h.Post("pushMessage", `{"methodName":"getAppInfo","callback":"window.cb"}`))
	script := nextEvaluation(t, h)
	require.Equal(t, `window.cb('{"code":0,"message":"success","data":{"app":"wallet","app_version":"1.2","protocol_name":"Scatter Plugin","protocol_version":"1.0.0"}}')`, script)
}

func TestTransportDesktopRoundTrip(t *testing.T) {
	h := memhost.New("agent")
	tr, err := New[envelope.Session](h, envelope.CorrelatedAdapter{}, testConfig("scatterKit", NewMetrics(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	tr.SetDelegate(appInfoDelegate())

	frame := `{"header":"42/scatter","type":"api","request":{"data":{"id":"abc","appkey":"k","nonce":1,"nextNonce":"2","type":"getAppInfo","payload":{}}},"callback":"desk.cb"}`
	require.True(t, h.Post("scatterKit", frame))
	script := nextEvaluation(t, h)
	require.Equal(t, `desk.cb('message','42/scatter,["api",{"id":"abc","result":{"app":"wallet","app_version":"1.2","protocol_name":"Scatter Plugin","protocol_version":"1.0.0"}}]')`, script)
}

func TestTransportDiscardsMalformedMessages(t *testing.T) {
	h := memhost.New("agent")
	metrics := NewMetrics(prometheus.NewRegistry())
	tr, err := New[envelope.Session](h, envelope.CorrelatedAdapter{}, testConfig("scatterKit", metrics))
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	tr.SetDelegate(appInfoDelegate())

	h.Post("scatterKit", `not json`)
	h.Post("scatterKit", `{"header":"40/scatter","type":"api","callback":"cb"}`)
	require.Empty(t, h.Evaluations())
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.discarded.WithLabelValues("desktop", "decode")))
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.discarded.WithLabelValues("desktop", "unsupported_kind")))
}

func TestTransportEvaluationFailureIsLoggedOnly(t *testing.T) {
	h := memhost.New("agent")
	h.FailEvaluations(errors.New("page gone"))
	metrics := NewMetrics(prometheus.NewRegistry())
	tr, err := New[wire.Request](h, envelope.PassthroughAdapter{}, testConfig("pushMessage", metrics))
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	tr.SetDelegate(appInfoDelegate())

	h.Post("pushMessage", `{"methodName":"getAppInfo","callback":"cb"}`)
	nextEvaluation(t, h)
	require.Len(t, h.Evaluations(), 1)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.deliveries.WithLabelValues("browser", "failed")))
}

func TestTransportRateLimit(t *testing.T) {
	h := memhost.New("agent")
	metrics := NewMetrics(prometheus.NewRegistry())
	cfg := testConfig("pushMessage", metrics)
	cfg.RateLimit = 0.001
	tr, err := New[wire.Request](h, envelope.PassthroughAdapter{}, cfg)
	require.NoError(t, err)
	t.Cleanup(tr.Close)
	tr.SetDelegate(appInfoDelegate())

	h.Post("pushMessage", `{"methodName":"getAppInfo","callback":"cb"}`)
	h.Post("pushMessage", `{"methodName":"getAppInfo","callback":"cb"}`)
	require.Len(t, h.Evaluations(), 1)
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.discarded.WithLabelValues("browser", "rate_limited")))

	tr.UpdateRateLimit(0)
	require.Zero(t, tr.RateLimit())
	h.Post("pushMessage", `{"methodName":"getAppInfo","callback":"cb"}`)
	require.Len(t, h.Evaluations(), 2)
}

func TestTransportIgnoresMessagesAfterClose(t *testing.T) {
	h := memhost.New("agent")
	tr, err := New[wire.Request](h, envelope.PassthroughAdapter{}, testConfig("pushMessage", nil))
	require.NoError(t, err)
	tr.SetDelegate(appInfoDelegate())
	tr.Close()

	tr.Receive(`{"methodName":"getAppInfo","callback":"cb"}`)
	require.Empty(t, h.Evaluations())
}

func TestForwarderDoesNotRetainTransport(t *testing.T) {
	h := memhost.New("agent")
	tr, err := New[wire.Request](h, envelope.PassthroughAdapter{}, testConfig("pushMessage", nil))
	require.NoError(t, err)
	fwd := &forwarder[wire.Request]{target: weak.Make(tr)}
	tr = nil

	require.Eventually(t, func() bool {
		runtime.GC()
		return fwd.target.Value() == nil
	}, 2*time.Second, 10*time.Millisecond)
	fwd.HandleMessage(`{"methodName":"getAppInfo","callback":"cb"}`)
	require.Empty(t, h.Evaluations())
}

func TestNewValidatesConfig(t *testing.T) {
	h := memhost.New("agent")
	_, err := New[wire.Request](h, envelope.PassthroughAdapter{}, Config{})
	require.Error(t, err)
	_, err = New[wire.Request](nil, envelope.PassthroughAdapter{}, testConfig("c", nil))
	require.Error(t, err)
}
