package gate

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"mindcascade/internal/domain"
	"mindcascade/internal/logger"
)

// Reason names the rule that produced a decision.
type Reason string

const (
	ReasonBatteryFull   Reason = "battery_full"
	ReasonVPNActive     Reason = "vpn_active"
	ReasonBadProbeURL   Reason = "bad_probe_url"
	ReasonProbeNotFound Reason = "probe_not_found"
	ReasonProbeStatus   Reason = "probe_status"
	ReasonProbeError    Reason = "probe_error"
)

// SignalSource provides the device snapshot read at launch.
type SignalSource interface {
	Signals() domain.DeviceSignals
}

// StaticSignals is a SignalSource over a fixed snapshot.
type StaticSignals domain.DeviceSignals

func (s StaticSignals) Signals() domain.DeviceSignals { return domain.DeviceSignals(s) }

// Transport issues the probe request. It reports the response status code,
// or an error when no response arrived.
type Transport interface {
	Get(ctx context.Context, url string) (int, error)
}

// Gate resolves the launch decision once. The zero value is not usable; use New.
type Gate struct {
	signals   SignalSource
	transport Transport
	probeURL  string

	once     sync.Once
	mu       sync.RWMutex
	resolved bool
	decision domain.Decision
	reason   Reason
}

func New(signals SignalSource, transport Transport, probeURL string) *Gate {
	return &Gate{
		signals:   signals,
		transport: transport,
		probeURL:  probeURL,
	}
}

// Resolve evaluates the gate on first call and returns the stored decision on
// every later call. The probe is not tied to ctx cancellation: a caller that
// goes away simply never sees the result.
func (g *Gate) Resolve(ctx context.Context) domain.Decision {
	g.once.Do(func() {
		d, r := g.evaluate(context.WithoutCancel(ctx))

		g.mu.Lock()
		g.decision, g.reason, g.resolved = d, r, true
		g.mu.Unlock()

		decisionsTotal.WithLabelValues(string(d), string(r)).Inc()
		logger.Info("launch gate resolved", "decision", d, "reason", r)
	})

	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.decision
}

// Start resolves the gate on a new goroutine and hands the decision to fn
// exactly once.
func (g *Gate) Start(ctx context.Context, fn func(domain.Decision)) {
	go func() {
		d := g.Resolve(ctx)
		if fn != nil {
			fn(d)
		}
	}()
}

// Decision reports the decision and whether the gate has resolved.
func (g *Gate) Decision() (domain.Decision, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.decision, g.resolved
}

// Reason reports which rule fired. Empty until resolved.
func (g *Gate) Reason() Reason {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reason
}

func (g *Gate) evaluate(ctx context.Context) (domain.Decision, Reason) {
	sig := g.signals.Signals()
	if sig.BatteryLevel == 100 {
		return domain.DecisionNormal, ReasonBatteryFull
	}
	if sig.VPNActive {
		return domain.DecisionNormal, ReasonVPNActive
	}

	if !validProbeURL(g.probeURL) {
		logger.Warn("launch gate: probe url not usable", "url", g.probeURL)
		return domain.DecisionNormal, ReasonBadProbeURL
	}

	start := time.Now()
	res := probe(ctx, g.transport, g.probeURL)
	probeDuration.Observe(time.Since(start).Seconds())

	return decide(res)
}

func probe(ctx context.Context, t Transport, u string) domain.ProbeResult {
	code, err := t.Get(ctx, u)
	if err != nil {
		logger.Debug("launch gate: probe failed", "error", err)
		return domain.ProbeResult{Err: err}
	}
	return domain.ProbeResult{StatusCode: code}
}

// decide maps a probe outcome onto a decision. Only a 404 keeps the normal flow.
func decide(res domain.ProbeResult) (domain.Decision, Reason) {
	switch {
	case res.Err != nil:
		return domain.DecisionAlternate, ReasonProbeError
	case res.StatusCode == http.StatusNotFound:
		return domain.DecisionNormal, ReasonProbeNotFound
	default:
		return domain.DecisionAlternate, ReasonProbeStatus
	}
}

func validProbeURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
