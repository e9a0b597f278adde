package core

import (
	"context"

	glog "github.com/goliatone/go-logger/glog"
)

// AccountDataStream is a long-lived subscription to typed account-data
// records. Events for a single type arrive in observation order; ordering
// across types is not guaranteed.
type AccountDataStream interface {
	Events() <-chan AccountDataEvent
	Close() error
}

// AccountDataClient is the home-server account-data capability consumed by
// the watcher and the mutation operations.
type AccountDataClient interface {
	Get(ctx context.Context, dataType string) (*AccountDataEvent, error)
	Update(ctx context.Context, dataType string, content map[string]any) error
	Subscribe(ctx context.Context, dataTypes []string) (AccountDataStream, error)
}

// OpenIDIssuer mints one-time OpenID assertions from the home server.
type OpenIDIssuer interface {
	GetOpenIDToken(ctx context.Context) (OpenIDToken, error)
}

// CapabilityGuard gates token exchange on home-server support. The check
// runs before any network I/O so outdated servers fail fast and typed.
type CapabilityGuard interface {
	CanExchangeOpenID(ctx context.Context) (bool, error)
}

// AllowAllCapabilityGuard is the default guard for servers known to
// support OpenID exchange.
type AllowAllCapabilityGuard struct{}

func (AllowAllCapabilityGuard) CanExchangeOpenID(context.Context) (bool, error) {
	return true, nil
}

// IdentityAPI is the wire surface of an identity server. Implementations
// translate HTTP failures into typed errors via the trust error envelope.
type IdentityAPI interface {
	Register(ctx context.Context, baseURL string, openID OpenIDToken) (string, error)
	Account(ctx context.Context, baseURL, token string) error
	Lookup(ctx context.Context, baseURL, token string, pids []ThreePid) ([]FoundThreePid, error)
	RequestBind(ctx context.Context, baseURL, token string, binding PendingBinding) (string, error)
	FinalizeBind(ctx context.Context, baseURL, token string, binding PendingBinding) error
	Unbind(ctx context.Context, baseURL, token string, pid ThreePid) error
	Logout(ctx context.Context, baseURL, token string) error
	Ping(ctx context.Context, baseURL string) error
}

// ScalarAPI is the wire surface of an integration manager.
type ScalarAPI interface {
	Register(ctx context.Context, apiURL string, openID OpenIDToken, apiVersion string) (string, error)
	ValidateToken(ctx context.Context, apiURL, token, apiVersion string) error
}

// ReachabilityProbe answers whether the home server is reachable right now.
type ReachabilityProbe interface {
	Ping(ctx context.Context) error
}

// NetworkMonitor delivers connectivity-change callbacks from the host
// platform. Register/Unregister bracket the gate's bound state.
type NetworkMonitor interface {
	Register(onChange func()) error
	Unregister()
}

// TokenStore is the durable per-server credential cache. Implementations
// must never expose torn state: every read-modify-write runs under a lock,
// and a cleared token is indistinguishable from one never fetched.
type TokenStore interface {
	GetIdentityConfig(ctx context.Context) (IdentityServerConfig, error)
	SetIdentityConfig(ctx context.Context, config IdentityServerConfig) error
	SetIdentityToken(ctx context.Context, token string) error
	ClearIdentityToken(ctx context.Context) error

	GetScalarToken(ctx context.Context, apiURL string) (string, error)
	SetScalarToken(ctx context.Context, apiURL, token string) error
	ClearScalarToken(ctx context.Context, apiURL string) error

	GetPendingBinding(ctx context.Context, pid ThreePid) (PendingBinding, bool, error)
	SavePendingBinding(ctx context.Context, binding PendingBinding) error
	DeletePendingBinding(ctx context.Context, pid ThreePid) error
}

// StoreProvider exposes the token store built by a repository factory.
type StoreProvider interface {
	TokenStore() TokenStore
}

// RepositoryStoreFactory builds stores from an opaque persistence client.
type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// ChangeListener observes configuration and permission changes. Every
// callback receives a value the listener may retain; faults thrown by one
// listener never reach the others.
type ChangeListener interface {
	OnConfigurationChanged(config *IntegrationManagerConfig)
	OnAllowedWidgetsChanged(content AllowedWidgetsContent)
	OnProvisioningChanged(enabled bool)
	OnIdentityServerChanged(url *string)
}

// ChangeListenerFuncs adapts bare funcs to ChangeListener; nil fields are
// skipped.
type ChangeListenerFuncs struct {
	ConfigurationChanged  func(config *IntegrationManagerConfig)
	AllowedWidgetsChanged func(content AllowedWidgetsContent)
	ProvisioningChanged   func(enabled bool)
	IdentityServerChanged func(url *string)
}

func (f *ChangeListenerFuncs) OnConfigurationChanged(config *IntegrationManagerConfig) {
	if f != nil && f.ConfigurationChanged != nil {
		f.ConfigurationChanged(config)
	}
}

func (f *ChangeListenerFuncs) OnAllowedWidgetsChanged(content AllowedWidgetsContent) {
	if f != nil && f.AllowedWidgetsChanged != nil {
		f.AllowedWidgetsChanged(content)
	}
}

func (f *ChangeListenerFuncs) OnProvisioningChanged(enabled bool) {
	if f != nil && f.ProvisioningChanged != nil {
		f.ProvisioningChanged(enabled)
	}
}

func (f *ChangeListenerFuncs) OnIdentityServerChanged(url *string) {
	if f != nil && f.IdentityServerChanged != nil {
		f.IdentityServerChanged(url)
	}
}

// ConnectivityListener observes home-server reachability transitions.
type ConnectivityListener interface {
	OnNetworkStatusChanged(hasInternet bool)
}

// TrustService is the full surface the command/query layers and the root
// facade depend on, asserted against *Manager at compile time.
type TrustService interface {
	Start(ctx context.Context) error
	Stop()

	GetIdentityServerURL(ctx context.Context) (*string, error)
	SetIdentityServer(ctx context.Context, rawURL string) error
	DisconnectIdentityServer(ctx context.Context) error
	EnsureIdentityToken(ctx context.Context) (string, error)
	ValidateIdentityToken(ctx context.Context) error
	Lookup(ctx context.Context, pids []ThreePid) ([]FoundThreePid, error)
	StartBind(ctx context.Context, pid ThreePid) (PendingBinding, error)
	CancelBind(ctx context.Context, pid ThreePid) error
	FinalizeBind(ctx context.Context, pid ThreePid) error
	UnbindThreePid(ctx context.Context, pid ThreePid) error

	GetIntegrationManagerConfig(ctx context.Context) (*IntegrationManagerConfig, error)
	EnsureScalarToken(ctx context.Context) (string, error)
	ValidateScalarToken(ctx context.Context) error

	GetAllowedWidgets(ctx context.Context) (AllowedWidgetsContent, error)
	SetWidgetAllowed(ctx context.Context, stateEventID string, allowed bool) error
	SetNativeWidgetDomainAllowed(ctx context.Context, widgetType, domain string, allowed bool) error
	IsIntegrationEnabled(ctx context.Context) (bool, error)
	SetIntegrationEnabled(ctx context.Context, enable bool) error
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
