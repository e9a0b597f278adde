package core

import (
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

// ListenerRegistry is a thread-safe set of change listeners. Membership is
// idempotent and broadcast never holds the lock while invoking a listener,
// so listeners may register or unregister themselves during delivery.
type ListenerRegistry struct {
	mu        sync.Mutex
	logger    Logger
	listeners map[ChangeListener]struct{}
}

func NewListenerRegistry(logger Logger) *ListenerRegistry {
	return &ListenerRegistry{
		logger:    glog.Ensure(logger),
		listeners: map[ChangeListener]struct{}{},
	}
}

func (r *ListenerRegistry) Add(listener ChangeListener) {
	if r == nil || listener == nil {
		return
	}
	r.mu.Lock()
	r.listeners[listener] = struct{}{}
	r.mu.Unlock()
}

func (r *ListenerRegistry) Remove(listener ChangeListener) {
	if r == nil || listener == nil {
		return
	}
	r.mu.Lock()
	delete(r.listeners, listener)
	r.mu.Unlock()
}

func (r *ListenerRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners)
}

// snapshot copies the set so delivery operates on a point-in-time view.
func (r *ListenerRegistry) snapshot() []ChangeListener {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	out := make([]ChangeListener, 0, len(r.listeners))
	for listener := range r.listeners {
		out = append(out, listener)
	}
	r.mu.Unlock()
	return out
}

func (r *ListenerRegistry) NotifyConfigurationChanged(config *IntegrationManagerConfig) {
	for _, listener := range r.snapshot() {
		r.invoke("configuration", func() {
			listener.OnConfigurationChanged(config)
		})
	}
}

func (r *ListenerRegistry) NotifyAllowedWidgetsChanged(content AllowedWidgetsContent) {
	for _, listener := range r.snapshot() {
		r.invoke("allowed_widgets", func() {
			listener.OnAllowedWidgetsChanged(content)
		})
	}
}

func (r *ListenerRegistry) NotifyProvisioningChanged(enabled bool) {
	for _, listener := range r.snapshot() {
		r.invoke("provisioning", func() {
			listener.OnProvisioningChanged(enabled)
		})
	}
}

func (r *ListenerRegistry) NotifyIdentityServerChanged(url *string) {
	for _, listener := range r.snapshot() {
		r.invoke("identity_server", func() {
			listener.OnIdentityServerChanged(url)
		})
	}
}

// invoke isolates listener faults: a panicking listener is logged and the
// remaining listeners still receive the notification.
func (r *ListenerRegistry) invoke(slot string, deliver func()) {
	defer func() {
		if recovered := recover(); recovered != nil {
			r.logger.Error("listener notification failed", "slot", slot, "panic", recovered)
		}
	}()
	deliver()
}
