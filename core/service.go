package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrAlreadyStarted = errors.New("core: session manager already started")
	ErrNotConfigured  = errors.New("core: session manager is not configured")
)

// Manager is the session-scoped trust engine. All state is owned by one
// Manager instance; there is no process-wide singleton. Start and Stop
// bracket the account-data subscription lifetime.
type Manager struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver

	accountData     AccountDataClient
	openIDIssuer    OpenIDIssuer
	capabilityGuard CapabilityGuard
	identityAPI     IdentityAPI
	scalarAPI       ScalarAPI
	tokenStore      TokenStore

	registry *ListenerRegistry
	gate     *ConnectivityGate

	identityTokens *tokenSource
	scalarTokens   *tokenSource

	mu      sync.Mutex
	watcher *accountDataWatcher
	started bool
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	builder := defaultManagerBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("trust", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("trust"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.tokenStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.tokenStore = storeProvider.TokenStore()
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			builder.tokenStore = storeProvider.TokenStore()
		}
	}
	if builder.tokenStore == nil {
		builder.tokenStore = NewMemoryTokenStore()
	}

	m := &Manager{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		accountData:     builder.accountData,
		openIDIssuer:    builder.openIDIssuer,
		capabilityGuard: builder.capabilityGuard,
		identityAPI:     builder.identityAPI,
		scalarAPI:       builder.scalarAPI,
		tokenStore:      builder.tokenStore,
		registry:        NewListenerRegistry(logger),
	}
	m.gate = NewConnectivityGate(builder.probe, builder.networkMonitor, logger, finalConfig.Probe)
	m.identityTokens = newIdentityTokenSource(m)
	m.scalarTokens = newScalarTokenSource(m)
	return m, nil
}

func Setup(cfg Config, opts ...Option) (*Manager, error) {
	return NewManager(cfg, opts...)
}

// Config returns the resolved runtime configuration.
func (m *Manager) Config() Config {
	if m == nil {
		return Config{}
	}
	return m.config
}

// Listeners exposes the change-listener registry.
func (m *Manager) Listeners() *ListenerRegistry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Connectivity exposes the home-server reachability gate.
func (m *Manager) Connectivity() *ConnectivityGate {
	if m == nil {
		return nil
	}
	return m.gate
}

// Start opens the account-data subscription and begins forwarding change
// notifications. It is an error to start a running manager.
func (m *Manager) Start(ctx context.Context) error {
	if m == nil {
		return ErrNotConfigured
	}
	if m.accountData == nil {
		return m.mapError(fmt.Errorf("core: account-data client is required"))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return m.mapError(ErrAlreadyStarted)
	}

	watcher := newAccountDataWatcher(m)
	if err := watcher.Start(ctx); err != nil {
		return m.mapError(err)
	}
	m.watcher = watcher
	m.started = true
	m.gate.reopen()
	m.logger.Info("session trust manager started", "service", m.config.ServiceName)
	return nil
}

// Stop terminates the subscription and leaves the manager inert. Further
// stream events are ignored and the worker goroutine is joined before
// Stop returns. Stopping a stopped manager is a no-op.
func (m *Manager) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	watcher := m.watcher
	m.watcher = nil
	wasStarted := m.started
	m.started = false
	m.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}
	m.gate.Shutdown()
	if wasStarted {
		m.logger.Info("session trust manager stopped", "service", m.config.ServiceName)
	}
}

func (m *Manager) mapError(err error) error {
	if err == nil {
		return nil
	}
	if m == nil || m.errorMapper == nil {
		return err
	}
	mapped := m.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
