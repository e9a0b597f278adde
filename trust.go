package trust

import "github.com/goliatone/go-trust/core"

type Config = core.Config

type ScalarConfig = core.ScalarConfig

type ProbeConfig = core.ProbeConfig

type Option = core.Option

type Manager = core.Manager

type TrustService = core.TrustService

type ThreePid = core.ThreePid
type FoundThreePid = core.FoundThreePid
type PendingBinding = core.PendingBinding
type OpenIDToken = core.OpenIDToken
type IdentityServerConfig = core.IdentityServerConfig
type IntegrationManagerConfig = core.IntegrationManagerConfig
type AllowedWidgetsContent = core.AllowedWidgetsContent

type TokenStore = core.TokenStore
type IdentityAPI = core.IdentityAPI
type ScalarAPI = core.ScalarAPI
type AccountDataClient = core.AccountDataClient
type AccountDataStream = core.AccountDataStream
type AccountDataEvent = core.AccountDataEvent
type OpenIDIssuer = core.OpenIDIssuer
type CapabilityGuard = core.CapabilityGuard
type ReachabilityProbe = core.ReachabilityProbe
type NetworkMonitor = core.NetworkMonitor
type MetricsRecorder = core.MetricsRecorder

type ChangeListener = core.ChangeListener
type ChangeListenerFuncs = core.ChangeListenerFuncs
type ConnectivityListener = core.ConnectivityListener
type ListenerRegistry = core.ListenerRegistry
type ConnectivityGate = core.ConnectivityGate

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorFactory    = core.WithErrorFactory
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver

	WithPersistenceClient = core.WithPersistenceClient
	WithRepositoryFactory = core.WithRepositoryFactory
	WithTokenStore        = core.WithTokenStore

	WithAccountDataClient = core.WithAccountDataClient
	WithOpenIDIssuer      = core.WithOpenIDIssuer
	WithCapabilityGuard   = core.WithCapabilityGuard
	WithIdentityAPI       = core.WithIdentityAPI
	WithScalarAPI         = core.WithScalarAPI
	WithReachabilityProbe = core.WithReachabilityProbe
	WithNetworkMonitor    = core.WithNetworkMonitor
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	return core.NewManager(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Manager, error) {
	return core.Setup(cfg, opts...)
}
