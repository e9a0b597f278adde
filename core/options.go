package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type managerBuilder struct {
	runtimeConfig     Config
	logger            Logger
	loggerProvider    LoggerProvider
	metricsRecorder   MetricsRecorder
	errorFactory      ErrorFactory
	errorMapper       ErrorMapper
	configProvider    ConfigProvider
	optionsResolver   OptionsResolver
	persistenceClient any
	repositoryFactory any
	accountData       AccountDataClient
	openIDIssuer      OpenIDIssuer
	capabilityGuard   CapabilityGuard
	identityAPI       IdentityAPI
	scalarAPI         ScalarAPI
	tokenStore        TokenStore
	probe             ReachabilityProbe
	networkMonitor    NetworkMonitor
}

type Option func(*managerBuilder)

func WithLogger(logger Logger) Option {
	return func(b *managerBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *managerBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *managerBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *managerBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *managerBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *managerBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *managerBuilder) {
		b.optionsResolver = resolver
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *managerBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *managerBuilder) {
		b.repositoryFactory = factory
	}
}

func WithAccountDataClient(client AccountDataClient) Option {
	return func(b *managerBuilder) {
		b.accountData = client
	}
}

func WithOpenIDIssuer(issuer OpenIDIssuer) Option {
	return func(b *managerBuilder) {
		b.openIDIssuer = issuer
	}
}

func WithCapabilityGuard(guard CapabilityGuard) Option {
	return func(b *managerBuilder) {
		b.capabilityGuard = guard
	}
}

func WithIdentityAPI(api IdentityAPI) Option {
	return func(b *managerBuilder) {
		b.identityAPI = api
	}
}

func WithScalarAPI(api ScalarAPI) Option {
	return func(b *managerBuilder) {
		b.scalarAPI = api
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(b *managerBuilder) {
		b.tokenStore = store
	}
}

func WithReachabilityProbe(probe ReachabilityProbe) Option {
	return func(b *managerBuilder) {
		b.probe = probe
	}
}

func WithNetworkMonitor(monitor NetworkMonitor) Option {
	return func(b *managerBuilder) {
		b.networkMonitor = monitor
	}
}

func defaultManagerBuilder(runtime Config) managerBuilder {
	loggerProvider, logger := glog.Resolve("trust", nil, nil)
	return managerBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		capabilityGuard: AllowAllCapabilityGuard{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return trustErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.HomeServerURL) != "" {
		layer["home_server_url"] = cfg.HomeServerURL
	}
	if includeZero || strings.TrimSpace(cfg.IdentityServer) != "" {
		layer["identity_server"] = cfg.IdentityServer
	}
	if includeZero || strings.TrimSpace(cfg.Scalar.APIVersion) != "" {
		layer["scalar"] = map[string]any{
			"api_version": cfg.Scalar.APIVersion,
		}
	}
	if includeZero || cfg.Probe.Timeout > 0 || cfg.Probe.Interval > 0 {
		probe := map[string]any{}
		if includeZero || cfg.Probe.Timeout > 0 {
			probe["timeout"] = cfg.Probe.Timeout
		}
		if includeZero || cfg.Probe.Interval > 0 {
			probe["interval"] = cfg.Probe.Interval
		}
		layer["probe"] = probe
	}
	return layer
}
