package bridge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aegis-sign/walletbridge/internal/router"
)

// DebugHandler 返回 /debug/bridge 所需的 handler。
func (d *Dispatcher) DebugHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := d.snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snapshot)
	})
}

type pipelineSnapshot struct {
	Dialect   string           `json:"dialect"`
	Channel   string           `json:"channel"`
	RateLimit float64          `json:"rateLimit"`
	InFlight  []router.Pending `json:"inFlight"`
}

type executorSnapshot struct {
	Name       string `json:"name"`
	QueueDepth int    `json:"queueDepth"`
	Workers    int    `json:"workers"`
}

type debugSnapshot struct {
	ClientIdentity string             `json:"clientIdentity"`
	DelegateBound  bool               `json:"delegateBound"`
	Pipelines      []pipelineSnapshot `json:"pipelines"`
	Executors      []executorSnapshot `json:"executors"`
	Timestamp      time.Time          `json:"timestamp"`
}

func (d *Dispatcher) snapshot() debugSnapshot {
	snap := debugSnapshot{
		ClientIdentity: d.host.ClientIdentity(),
		Pipelines:      []pipelineSnapshot{},
		Executors:      []executorSnapshot{},
		Timestamp:      time.Now(),
	}
	d.mu.Lock()
	snap.DelegateBound = d.delegate != nil
	if d.browser != nil {
		snap.Pipelines = append(snap.Pipelines, pipelineSnapshot{
			Dialect:   string(d.browser.Dialect()),
			Channel:   d.browser.Channel(),
			RateLimit: d.browser.RateLimit(),
			InFlight:  d.browser.InFlight(),
		})
	}
	if d.desktop != nil {
		snap.Pipelines = append(snap.Pipelines, pipelineSnapshot{
			Dialect:   string(d.desktop.Dialect()),
			Channel:   d.desktop.Channel(),
			RateLimit: d.desktop.RateLimit(),
			InFlight:  d.desktop.InFlight(),
		})
	}
	d.mu.Unlock()
	for _, p := range d.owned {
		snap.Executors = append(snap.Executors, executorSnapshot{Name: p.Name(), QueueDepth: p.Depth(), Workers: p.Workers()})
	}
	return snap
}
