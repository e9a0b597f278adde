package core

import (
	"context"
	"sync"
	"sync/atomic"

	glog "github.com/goliatone/go-logger/glog"
)

// ConnectivityGate tracks home-server reachability. It binds an active
// probe only while the host process is foregrounded and at least one
// listener is registered: Unbound -> Bound on the first listener while
// foregrounded, Bound -> Unbound on the last removal or on backgrounding.
type ConnectivityGate struct {
	probe   ReachabilityProbe
	monitor NetworkMonitor
	logger  Logger
	config  ProbeConfig

	hasInternet atomic.Bool

	mu         sync.Mutex
	listeners  map[ConnectivityListener]struct{}
	foreground bool
	bound      bool
	closed     bool
}

func NewConnectivityGate(probe ReachabilityProbe, monitor NetworkMonitor, logger Logger, config ProbeConfig) *ConnectivityGate {
	return &ConnectivityGate{
		probe:     probe,
		monitor:   monitor,
		logger:    glog.Ensure(logger),
		config:    config,
		listeners: map[ConnectivityListener]struct{}{},
	}
}

// AddListener registers a reachability observer. Registration is
// idempotent; the first listener binds the gate when foregrounded.
func (g *ConnectivityGate) AddListener(listener ConnectivityListener) {
	if g == nil || listener == nil {
		return
	}
	g.mu.Lock()
	g.listeners[listener] = struct{}{}
	action := g.evaluateLocked()
	g.mu.Unlock()
	g.apply(action)
}

// RemoveListener unregisters an observer; removing the last one unbinds.
func (g *ConnectivityGate) RemoveListener(listener ConnectivityListener) {
	if g == nil || listener == nil {
		return
	}
	g.mu.Lock()
	delete(g.listeners, listener)
	action := g.evaluateLocked()
	g.mu.Unlock()
	g.apply(action)
}

// SetForeground records host process visibility. A backgrounded process
// keeps its listener set but releases the network callback and probe.
func (g *ConnectivityGate) SetForeground(foreground bool) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.foreground = foreground
	action := g.evaluateLocked()
	g.mu.Unlock()
	g.apply(action)
}

// Shutdown unbinds permanently; the gate ignores further transitions.
func (g *ConnectivityGate) Shutdown() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.closed = true
	action := g.evaluateLocked()
	g.mu.Unlock()
	g.apply(action)
}

// reopen clears the closed flag so a restarted manager can rebind using
// the surviving listener set and foreground state.
func (g *ConnectivityGate) reopen() {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.closed = false
	action := g.evaluateLocked()
	g.mu.Unlock()
	g.apply(action)
}

type gateAction int

const (
	gateNoop gateAction = iota
	gateBind
	gateUnbind
)

func (g *ConnectivityGate) evaluateLocked() gateAction {
	want := !g.closed && g.foreground && len(g.listeners) > 0
	switch {
	case want && !g.bound:
		g.bound = true
		return gateBind
	case !want && g.bound:
		g.bound = false
		return gateUnbind
	}
	return gateNoop
}

// apply performs the monitor calls decided under the lock. They run
// unlocked: platform monitors may deliver the current network state
// synchronously from Register, which re-enters onNetworkChange.
func (g *ConnectivityGate) apply(action gateAction) {
	switch action {
	case gateBind:
		if g.monitor != nil {
			if err := g.monitor.Register(g.onNetworkChange); err != nil {
				g.logger.Error("network monitor registration failed", "error", err.Error())
				g.mu.Lock()
				g.bound = false
				g.mu.Unlock()
				return
			}
		}
		go g.refresh()
	case gateUnbind:
		if g.monitor != nil {
			g.monitor.Unregister()
		}
	}
}

func (g *ConnectivityGate) onNetworkChange() {
	g.mu.Lock()
	bound := g.bound
	g.mu.Unlock()
	if !bound {
		return
	}
	go g.refresh()
}

// refresh probes asynchronously and updates the cached flag.
func (g *ConnectivityGate) refresh() {
	ctx := context.Background()
	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}
	g.probeAndRecord(ctx)
}

func (g *ConnectivityGate) probeAndRecord(ctx context.Context) bool {
	reachable := false
	if g.probe != nil {
		reachable = g.probe.Ping(ctx) == nil
	}
	previous := g.hasInternet.Swap(reachable)
	if previous != reachable {
		g.notifyStatus(reachable)
	}
	return reachable
}

// HasInternetAccess returns reachability. With forcePing the caller pays
// for a fresh blocking probe; without it the last cached value is returned
// with no I/O, for low-latency callers.
func (g *ConnectivityGate) HasInternetAccess(ctx context.Context, forcePing bool) bool {
	if g == nil {
		return false
	}
	if !forcePing {
		return g.hasInternet.Load()
	}
	return g.probeAndRecord(ctx)
}

func (g *ConnectivityGate) notifyStatus(hasInternet bool) {
	g.mu.Lock()
	snapshot := make([]ConnectivityListener, 0, len(g.listeners))
	for listener := range g.listeners {
		snapshot = append(snapshot, listener)
	}
	g.mu.Unlock()

	for _, listener := range snapshot {
		func() {
			defer func() {
				if recovered := recover(); recovered != nil {
					g.logger.Error("connectivity listener failed", "panic", recovered)
				}
			}()
			listener.OnNetworkStatusChanged(hasInternet)
		}()
	}
}
