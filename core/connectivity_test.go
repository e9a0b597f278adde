package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

type recordingConnListener struct {
	statuses chan bool
}

func newRecordingConnListener() *recordingConnListener {
	return &recordingConnListener{statuses: make(chan bool, 16)}
}

func (l *recordingConnListener) OnNetworkStatusChanged(hasInternet bool) {
	l.statuses <- hasInternet
}

func TestGateBindsOnFirstListenerWhileForegrounded(t *testing.T) {
	monitor := &fakeMonitor{}
	gate := NewConnectivityGate(&fakeProbe{}, monitor, nil, ProbeConfig{})

	gate.SetForeground(true)
	if monitor.bound() {
		t.Fatal("gate bound without listeners")
	}

	first := newRecordingConnListener()
	second := newRecordingConnListener()
	gate.AddListener(first)
	if !monitor.bound() {
		t.Fatal("first listener while foregrounded should bind")
	}
	gate.AddListener(second)
	if monitor.registers != 1 {
		t.Fatalf("second listener rebound the monitor: registers = %d", monitor.registers)
	}

	gate.RemoveListener(first)
	if !monitor.bound() {
		t.Fatal("gate unbound while a listener remains")
	}
	gate.RemoveListener(second)
	if monitor.bound() {
		t.Fatal("last listener removal should unbind")
	}
}

// reentrantMonitor reports the current network state synchronously from
// Register, the way platform connectivity APIs do.
type reentrantMonitor struct {
	fakeMonitor
}

func (m *reentrantMonitor) Register(onChange func()) error {
	onChange()
	return m.fakeMonitor.Register(onChange)
}

func TestGateBindsWithMonitorFiringDuringRegister(t *testing.T) {
	monitor := &reentrantMonitor{}
	gate := NewConnectivityGate(&fakeProbe{}, monitor, nil, ProbeConfig{})
	gate.SetForeground(true)

	done := make(chan struct{})
	go func() {
		gate.AddListener(newRecordingConnListener())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("AddListener blocked on a monitor that reports state during Register")
	}
	if !monitor.bound() {
		t.Fatal("gate should be bound after the synchronous callback")
	}
}

func TestGateRegisterFailureLeavesUnbound(t *testing.T) {
	monitor := &fakeMonitor{err: errors.New("no callbacks here")}
	gate := NewConnectivityGate(&fakeProbe{}, monitor, nil, ProbeConfig{})
	gate.SetForeground(true)
	gate.AddListener(newRecordingConnListener())
	if monitor.bound() {
		t.Fatal("failed registration must leave the gate unbound")
	}

	// A later transition retries the registration.
	monitor.mu.Lock()
	monitor.err = nil
	monitor.mu.Unlock()
	gate.SetForeground(false)
	gate.SetForeground(true)
	if !monitor.bound() {
		t.Fatal("recovered monitor should bind on the next transition")
	}
}

func TestGateListenersWithoutForegroundStayUnbound(t *testing.T) {
	monitor := &fakeMonitor{}
	gate := NewConnectivityGate(&fakeProbe{}, monitor, nil, ProbeConfig{})

	gate.AddListener(newRecordingConnListener())
	if monitor.bound() {
		t.Fatal("backgrounded gate must not bind")
	}

	gate.SetForeground(true)
	if !monitor.bound() {
		t.Fatal("foregrounding with listeners should bind")
	}
	gate.SetForeground(false)
	if monitor.bound() {
		t.Fatal("backgrounding should release the monitor")
	}
	gate.SetForeground(true)
	if !monitor.bound() {
		t.Fatal("re-foregrounding should rebind")
	}
}

func TestGateShutdownIsPermanent(t *testing.T) {
	monitor := &fakeMonitor{}
	gate := NewConnectivityGate(&fakeProbe{}, monitor, nil, ProbeConfig{})
	gate.SetForeground(true)
	gate.AddListener(newRecordingConnListener())
	if !monitor.bound() {
		t.Fatal("gate should be bound before shutdown")
	}

	gate.Shutdown()
	if monitor.bound() {
		t.Fatal("shutdown should unbind")
	}

	gate.AddListener(newRecordingConnListener())
	gate.SetForeground(true)
	if monitor.bound() {
		t.Fatal("closed gate must ignore further transitions")
	}
}

func TestHasInternetAccessForcePingAndCache(t *testing.T) {
	probe := &fakeProbe{}
	gate := NewConnectivityGate(probe, nil, nil, ProbeConfig{})
	ctx := context.Background()

	// Nothing probed yet: the cached value is pessimistic.
	if gate.HasInternetAccess(ctx, false) {
		t.Fatal("unprobed gate should report offline")
	}
	if probe.pings() != 0 {
		t.Fatalf("cached read issued probes: %d", probe.pings())
	}

	if !gate.HasInternetAccess(ctx, true) {
		t.Fatal("forced ping against healthy probe should report online")
	}
	if probe.pings() != 1 {
		t.Fatalf("forced ping count = %d, want 1", probe.pings())
	}

	// The forced result is now cached.
	if !gate.HasInternetAccess(ctx, false) {
		t.Fatal("cached value should reflect the last probe")
	}
	if probe.pings() != 1 {
		t.Fatalf("cached read issued probes: %d", probe.pings())
	}

	probe.setErr(errors.New("unreachable"))
	if gate.HasInternetAccess(ctx, true) {
		t.Fatal("forced ping against failing probe should report offline")
	}
}

func TestGateNotifiesOnTransitionsOnly(t *testing.T) {
	probe := &fakeProbe{}
	gate := NewConnectivityGate(probe, nil, nil, ProbeConfig{})
	listener := newRecordingConnListener()
	gate.AddListener(listener)
	ctx := context.Background()

	gate.HasInternetAccess(ctx, true)
	if got := waitFor(t, listener.statuses, "connectivity notification"); !got {
		t.Fatalf("first transition = %v, want online", got)
	}

	gate.HasInternetAccess(ctx, true)
	expectQuiet(t, listener.statuses, "repeat-status notification")

	probe.setErr(errors.New("unreachable"))
	gate.HasInternetAccess(ctx, true)
	if got := waitFor(t, listener.statuses, "connectivity notification"); got {
		t.Fatalf("offline transition = %v, want offline", got)
	}
}

type panickingConnListener struct{}

func (panickingConnListener) OnNetworkStatusChanged(bool) { panic("listener bug") }

func TestGateIsolatesListenerPanics(t *testing.T) {
	probe := &fakeProbe{}
	gate := NewConnectivityGate(probe, nil, nil, ProbeConfig{})
	healthy := newRecordingConnListener()
	gate.AddListener(panickingConnListener{})
	gate.AddListener(healthy)

	gate.HasInternetAccess(context.Background(), true)
	if got := waitFor(t, healthy.statuses, "connectivity notification"); !got {
		t.Fatalf("healthy listener missed the transition: %v", got)
	}
}

func TestGateNilReceiver(t *testing.T) {
	var gate *ConnectivityGate
	gate.AddListener(newRecordingConnListener())
	gate.SetForeground(true)
	gate.Shutdown()
	if gate.HasInternetAccess(context.Background(), true) {
		t.Fatal("nil gate should report offline")
	}
}
