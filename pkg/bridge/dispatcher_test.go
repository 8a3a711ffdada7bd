package bridge

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sign/walletbridge/pkg/delegate"
	"github.com/aegis-sign/walletbridge/pkg/host"
	"github.com/aegis-sign/walletbridge/pkg/host/memhost"
	"github.com/aegis-sign/walletbridge/pkg/wire"
)

func newDispatcher(t *testing.T, h *memhost.Host, dialects Dialect) *Dispatcher {
	t.Helper()
	d, err := New(h, Config{Dialects: dialects, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	return d
}

func languageDelegate(lang string) delegate.Funcs {
	return delegate.Funcs{WalletLanguageFunc: func(_ context.Context, done delegate.Callback[wire.Language]) error {
		done(wire.Language(lang), nil)
		return nil
	}}
}

func waitEvaluation(t *testing.T, h *memhost.Host) string {
	t.Helper()
	select {
	case s := <-h.Evaluated():
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no evaluation")
		return ""
	}
}

const desktopLanguage = `{"header":"42/scatter","type":"api","request":{"data":{"id":"d1","appkey":"k","nonce":"1","nextNonce":2,"type":"walletLanguage","payload":{}}},"callback":"desk.cb"}`

func TestDispatcherRegistersBothDialects(t *testing.T) {
	h := memhost.New("Wallet/2.0")
	d := newDispatcher(t, h, BrowserExtension|DesktopApplication)
	require.True(t, h.HasHandler(DefaultBrowserChannel))
	require.True(t, h.HasHandler(DefaultDesktopChannel))

	scripts := h.Scripts()
	require.Len(t, scripts, 2)
	require.Equal(t, host.AtDocumentEnd, scripts[0].InjectAt)
	require.Equal(t, host.AtDocumentStart, scripts[1].InjectAt)
	require.Contains(t, scripts[0].Source, "'Wallet/2.0'")

	d.SetDelegate(languageDelegate("en"))
	h.Post(DefaultBrowserChannel, `{"methodName":"walletLanguage","callback":"cb"}`)
	require.Equal(t, `cb('{"code":0,"message":"success","data":"en"}')`, waitEvaluation(t, h))

	h.Post(DefaultDesktopChannel, desktopLanguage)
	require.Equal(t, `desk.cb('message','42/scatter,["api",{"id":"d1","result":"en"}]')`, waitEvaluation(t, h))
}

func TestDispatcherSingleDialect(t *testing.T) {
	h := memhost.New("agent")
	newDispatcher(t, h, DesktopApplication)
	require.False(t, h.HasHandler(DefaultBrowserChannel))
	require.True(t, h.HasHandler(DefaultDesktopChannel))
	require.Len(t, h.Scripts(), 1)
}

func TestDispatcherClearDelegate(t *testing.T) {
	h := memhost.New("agent")
	d := newDispatcher(t, h, BrowserExtension|DesktopApplication)
	d.SetDelegate(languageDelegate("en"))
	require.NotNil(t, d.Delegate())
	d.SetDelegate(nil)
	require.Nil(t, d.Delegate())

	h.Post(DefaultBrowserChannel, `{"methodName":"walletLanguage","callback":"cb"}`)
	h.Post(DefaultDesktopChannel, desktopLanguage)
	require.Never(t, func() bool { return len(h.Evaluations()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestDispatcherRebindIsAtomicAcrossPipelines(t *testing.T) {
	h := memhost.New("agent")
	d := newDispatcher(t, h, BrowserExtension|DesktopApplication)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if (i+j)%2 == 0 {
					d.SetDelegate(languageDelegate("en"))
				} else {
					d.SetDelegate(nil)
				}
				_ = d.Delegate()
			}
		}(i)
	}
	wg.Wait()

	final := languageDelegate("fr")
	d.SetDelegate(final)
	require.NotNil(t, d.browser.Delegate())
	require.NotNil(t, d.desktop.Delegate())
	h.Post(DefaultBrowserChannel, `{"methodName":"walletLanguage","callback":"cb"}`)
	require.Contains(t, waitEvaluation(t, h), `"data":"fr"`)
}

func TestDispatcherCloseUnregisters(t *testing.T) {
	h := memhost.New("agent")
	d, err := New(h, Config{Dialects: BrowserExtension | DesktopApplication, Registerer: prometheus.NewRegistry()})
	require.NoError(t, err)
	d.Close()
	d.Close()
	require.False(t, h.HasHandler(DefaultBrowserChannel))
	require.False(t, h.HasHandler(DefaultDesktopChannel))
}

func TestDispatcherChannelConflict(t *testing.T) {
	h := memhost.New("agent")
	_, err := New(h, Config{
		Dialects:       BrowserExtension | DesktopApplication,
		BrowserChannel: "same",
		DesktopChannel: "same",
		Registerer:     prometheus.NewRegistry(),
	})
	require.Error(t, err)
	require.False(t, h.HasHandler("same"))
}

func TestDispatcherDebugHandler(t *testing.T) {
	h := memhost.New("agent")
	d := newDispatcher(t, h, BrowserExtension|DesktopApplication)
	d.SetDelegate(delegate.Funcs{WalletLanguageFunc: func(context.Context, delegate.Callback[wire.Language]) error {
		return nil
	}})
	h.Post(DefaultBrowserChannel, `{"methodName":"walletLanguage","callback":"cb"}`)

	var snap debugSnapshot
	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		d.DebugHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/debug/bridge", nil))
		if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
			return false
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			return false
		}
		return len(snap.Pipelines) == 2 && len(snap.Pipelines[0].InFlight) == 1
	}, time.Second, 10*time.Millisecond)
	require.True(t, snap.DelegateBound)
	require.Equal(t, "browser", snap.Pipelines[0].Dialect)
	require.Equal(t, "walletLanguage", snap.Pipelines[0].InFlight[0].Operation)
	require.Len(t, snap.Executors, 3)
}
