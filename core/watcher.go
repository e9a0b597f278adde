package core

import (
	"context"
	"sync"
)

// accountDataWatcher owns the long-lived account-data subscription for one
// manager instance. It decodes the four reserved types, suppresses echoes
// and duplicate values, and forwards real changes to the listener
// registry. One goroutine drains the stream, so notifications for a single
// type reach listeners in observation order.
type accountDataWatcher struct {
	m      *Manager
	stream AccountDataStream
	cancel context.CancelFunc
	done   chan struct{}

	stopOnce sync.Once

	mu                sync.Mutex
	lastManagerConfig *IntegrationManagerConfig
	haveManagerConfig bool
	lastAllowed       *AllowedWidgetsContent
	lastProvisioning  *IntegrationProvisioningContent
}

var watchedAccountDataTypes = []string{
	AccountDataTypeWidgets,
	AccountDataTypeAllowedWidgets,
	AccountDataTypeIntegrationProvisioning,
	AccountDataTypeIdentityServer,
}

func newAccountDataWatcher(m *Manager) *accountDataWatcher {
	return &accountDataWatcher{
		m:    m,
		done: make(chan struct{}),
	}
}

func (w *accountDataWatcher) Start(ctx context.Context) error {
	w.seedManagerConfig(ctx)

	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := w.m.accountData.Subscribe(streamCtx, watchedAccountDataTypes)
	if err != nil {
		cancel()
		return err
	}
	w.stream = stream
	w.cancel = cancel
	go w.run(streamCtx)
	return nil
}

// Stop closes the stream and joins the worker. After Stop returns the
// watcher is inert: buffered events are drained without delivery because
// the context is already cancelled.
func (w *accountDataWatcher) Stop() {
	w.stopOnce.Do(func() {
		w.cancel()
		if w.stream != nil {
			_ = w.stream.Close()
		}
		<-w.done
	})
}

// seedManagerConfig establishes the integration-manager baseline from a
// point-in-time read so the subscription's replay of current state is not
// reported as a change. On read failure the baseline stays unset and the
// first stream event notifies.
func (w *accountDataWatcher) seedManagerConfig(ctx context.Context) {
	event, err := w.m.accountData.Get(ctx, AccountDataTypeWidgets)
	if err != nil {
		w.m.logger.Error("widgets baseline read failed", "error", err.Error())
		return
	}
	var config *IntegrationManagerConfig
	if event != nil {
		config = ExtractIntegrationManagerConfig(event.Content)
	}
	w.mu.Lock()
	w.lastManagerConfig = config
	w.haveManagerConfig = true
	w.mu.Unlock()
}

func (w *accountDataWatcher) run(ctx context.Context) {
	defer close(w.done)
	events := w.stream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			w.handle(ctx, event)
		}
	}
}

func (w *accountDataWatcher) handle(ctx context.Context, event AccountDataEvent) {
	switch event.Type {
	case AccountDataTypeWidgets:
		w.handleWidgets(event.Content)
	case AccountDataTypeAllowedWidgets:
		w.handleAllowedWidgets(event.Content)
	case AccountDataTypeIntegrationProvisioning:
		w.handleProvisioning(event.Content)
	case AccountDataTypeIdentityServer:
		w.handleIdentityServer(ctx, event.Content)
	}
}

func (w *accountDataWatcher) handleWidgets(content map[string]any) {
	config := ExtractIntegrationManagerConfig(content)

	w.mu.Lock()
	same := w.haveManagerConfig && integrationManagerConfigEqual(w.lastManagerConfig, config)
	if !same {
		w.lastManagerConfig = config
		w.haveManagerConfig = true
	}
	w.mu.Unlock()

	if same {
		return
	}
	w.m.registry.NotifyConfigurationChanged(config)
}

func (w *accountDataWatcher) handleAllowedWidgets(content map[string]any) {
	decoded := ExtractAllowedWidgets(content)
	if decoded == nil {
		return
	}

	w.mu.Lock()
	same := w.lastAllowed != nil && w.lastAllowed.Equal(*decoded)
	if !same {
		w.lastAllowed = decoded
	}
	w.mu.Unlock()

	if same {
		return
	}
	w.m.registry.NotifyAllowedWidgetsChanged(decoded.Clone())
}

func (w *accountDataWatcher) handleProvisioning(content map[string]any) {
	decoded := ExtractIntegrationProvisioning(content)
	if decoded == nil {
		return
	}

	w.mu.Lock()
	same := w.lastProvisioning != nil && w.lastProvisioning.Enabled == decoded.Enabled
	if !same {
		w.lastProvisioning = decoded
	}
	w.mu.Unlock()

	if same {
		return
	}
	w.m.registry.NotifyProvisioningChanged(decoded.Enabled)
}

// handleIdentityServer applies echo suppression: when the observed URL
// equals the locally stored one, the event is the round-trip of a write
// this manager just performed and must not re-enter the mutation + notify
// path, which would loop the update through the sync forever.
func (w *accountDataWatcher) handleIdentityServer(ctx context.Context, content map[string]any) {
	observed := ExtractIdentityServerURL(content)
	if observed == nil {
		return
	}

	stored, err := w.m.tokenStore.GetIdentityConfig(ctx)
	if err != nil {
		w.m.logger.Error("identity config read failed during sync", "error", err.Error())
		return
	}
	storedURL := ""
	if stored.HasURL() {
		storedURL = CanonicalizeServerURL(*stored.URL)
	}
	if *observed == storedURL {
		return
	}

	next := IdentityServerConfig{}
	var notifyURL *string
	if *observed != "" {
		next.URL = observed
		notifyURL = observed
	}
	if err := w.m.tokenStore.SetIdentityConfig(ctx, next); err != nil {
		w.m.logger.Error("identity config update failed during sync", "error", err.Error())
		return
	}
	w.m.registry.NotifyIdentityServerChanged(notifyURL)
}

func (w *accountDataWatcher) cachedManagerConfig() (*IntegrationManagerConfig, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.haveManagerConfig {
		return nil, false
	}
	if w.lastManagerConfig == nil {
		return nil, true
	}
	copied := *w.lastManagerConfig
	return &copied, true
}

func integrationManagerConfigEqual(a, b *IntegrationManagerConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// GetIntegrationManagerConfig returns the current derived config, serving
// from the watcher cache when the manager is running and falling back to a
// point-in-time account-data read otherwise. A nil config with nil error
// means no integration manager is configured.
func (m *Manager) GetIntegrationManagerConfig(ctx context.Context) (*IntegrationManagerConfig, error) {
	if m == nil {
		return nil, ErrNotConfigured
	}

	m.mu.Lock()
	watcher := m.watcher
	m.mu.Unlock()
	if watcher != nil {
		if config, ok := watcher.cachedManagerConfig(); ok {
			return config, nil
		}
	}

	if m.accountData == nil {
		return nil, m.mapError(ErrNotConfigured)
	}
	event, err := m.accountData.Get(ctx, AccountDataTypeWidgets)
	if err != nil {
		return nil, m.mapError(err)
	}
	if event == nil {
		return nil, nil
	}
	return ExtractIntegrationManagerConfig(event.Content), nil
}
