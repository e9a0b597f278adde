package gocommand

import (
	"context"
	"fmt"
	"strings"

	trustcommand "github.com/goliatone/go-trust/command"
	"github.com/goliatone/go-trust/core"
	trustquery "github.com/goliatone/go-trust/query"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// TrustBackend is the session-manager surface the dispatcher wiring needs:
// every mutation plus the synchronous readers.
type TrustBackend interface {
	trustcommand.MutatingService
	trustquery.IdentityReader
	trustquery.ManagerConfigReader
	trustquery.WidgetPermissionReader
}

// SubscribeTrustHandlers registers and subscribes every trust command and
// query on the dispatcher. On any registration failure the subscriptions
// made so far are unwound before the error is returned.
func SubscribeTrustHandlers(
	adapter *RegistryAdapter,
	backend TrustBackend,
	connectivity trustquery.ConnectivityReader,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if backend == nil {
		return nil, fmt.Errorf("gocommand: trust backend is required")
	}
	if connectivity == nil {
		return nil, fmt.Errorf("gocommand: connectivity reader is required")
	}

	var subscriptions []commanddispatcher.Subscription
	unwind := func() {
		for _, sub := range subscriptions {
			if sub != nil {
				sub.Unsubscribe()
			}
		}
	}

	register := func(handler any, sub commanddispatcher.Subscription) error {
		if err := adapter.RegisterCommand(handler); err != nil {
			if sub != nil {
				sub.Unsubscribe()
			}
			unwind()
			return err
		}
		subscriptions = append(subscriptions, sub)
		return nil
	}

	setIdentity := trustcommand.NewSetIdentityServerCommand(backend)
	if err := register(setIdentity, SubscribeCommand[trustcommand.SetIdentityServerMessage](setIdentity, runnerOpts...)); err != nil {
		return nil, err
	}
	disconnect := trustcommand.NewDisconnectIdentityServerCommand(backend)
	if err := register(disconnect, SubscribeCommand[trustcommand.DisconnectIdentityServerMessage](disconnect, runnerOpts...)); err != nil {
		return nil, err
	}
	startBind := trustcommand.NewStartBindCommand(backend)
	if err := register(startBind, SubscribeCommand[trustcommand.StartBindMessage](startBind, runnerOpts...)); err != nil {
		return nil, err
	}
	cancelBind := trustcommand.NewCancelBindCommand(backend)
	if err := register(cancelBind, SubscribeCommand[trustcommand.CancelBindMessage](cancelBind, runnerOpts...)); err != nil {
		return nil, err
	}
	finalizeBind := trustcommand.NewFinalizeBindCommand(backend)
	if err := register(finalizeBind, SubscribeCommand[trustcommand.FinalizeBindMessage](finalizeBind, runnerOpts...)); err != nil {
		return nil, err
	}
	unbind := trustcommand.NewUnbindThreePidCommand(backend)
	if err := register(unbind, SubscribeCommand[trustcommand.UnbindThreePidMessage](unbind, runnerOpts...)); err != nil {
		return nil, err
	}
	setWidget := trustcommand.NewSetWidgetAllowedCommand(backend)
	if err := register(setWidget, SubscribeCommand[trustcommand.SetWidgetAllowedMessage](setWidget, runnerOpts...)); err != nil {
		return nil, err
	}
	setNativeWidget := trustcommand.NewSetNativeWidgetDomainAllowedCommand(backend)
	if err := register(setNativeWidget, SubscribeCommand[trustcommand.SetNativeWidgetDomainAllowedMessage](setNativeWidget, runnerOpts...)); err != nil {
		return nil, err
	}
	setProvisioning := trustcommand.NewSetIntegrationEnabledCommand(backend)
	if err := register(setProvisioning, SubscribeCommand[trustcommand.SetIntegrationEnabledMessage](setProvisioning, runnerOpts...)); err != nil {
		return nil, err
	}

	getIdentityURL := trustquery.NewGetIdentityServerURLQuery(backend)
	if err := register(getIdentityURL, SubscribeQuery[trustquery.GetIdentityServerURLMessage, *string](getIdentityURL, runnerOpts...)); err != nil {
		return nil, err
	}
	getManagerConfig := trustquery.NewGetIntegrationManagerConfigQuery(backend)
	if err := register(getManagerConfig, SubscribeQuery[trustquery.GetIntegrationManagerConfigMessage, *core.IntegrationManagerConfig](getManagerConfig, runnerOpts...)); err != nil {
		return nil, err
	}
	getAllowedWidgets := trustquery.NewGetAllowedWidgetsQuery(backend)
	if err := register(getAllowedWidgets, SubscribeQuery[trustquery.GetAllowedWidgetsMessage, core.AllowedWidgetsContent](getAllowedWidgets, runnerOpts...)); err != nil {
		return nil, err
	}
	isWidgetAllowed := trustquery.NewIsWidgetAllowedQuery(backend)
	if err := register(isWidgetAllowed, SubscribeQuery[trustquery.IsWidgetAllowedMessage, bool](isWidgetAllowed, runnerOpts...)); err != nil {
		return nil, err
	}
	isEnabled := trustquery.NewIsIntegrationEnabledQuery(backend)
	if err := register(isEnabled, SubscribeQuery[trustquery.IsIntegrationEnabledMessage, bool](isEnabled, runnerOpts...)); err != nil {
		return nil, err
	}
	hasInternet := trustquery.NewHasInternetAccessQuery(connectivity)
	if err := register(hasInternet, SubscribeQuery[trustquery.HasInternetAccessMessage, bool](hasInternet, runnerOpts...)); err != nil {
		return nil, err
	}

	return subscriptions, nil
}
