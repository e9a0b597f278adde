package trust

import (
	"fmt"

	trustcommand "github.com/goliatone/go-trust/command"
	"github.com/goliatone/go-trust/core"
	trustquery "github.com/goliatone/go-trust/query"
)

// CommandQueryService is what the facade needs from a session manager:
// every mutation plus the synchronous readers. *core.Manager satisfies it.
type CommandQueryService interface {
	trustcommand.MutatingService
	trustquery.IdentityReader
	trustquery.ManagerConfigReader
	trustquery.WidgetPermissionReader
}

type Commands struct {
	SetIdentityServer       *trustcommand.SetIdentityServerCommand
	DisconnectIdentity      *trustcommand.DisconnectIdentityServerCommand
	StartBind               *trustcommand.StartBindCommand
	CancelBind              *trustcommand.CancelBindCommand
	FinalizeBind            *trustcommand.FinalizeBindCommand
	UnbindThreePid          *trustcommand.UnbindThreePidCommand
	SetWidgetAllowed        *trustcommand.SetWidgetAllowedCommand
	SetNativeWidgetAllowed  *trustcommand.SetNativeWidgetDomainAllowedCommand
	SetIntegrationProvision *trustcommand.SetIntegrationEnabledCommand
}

type Queries struct {
	GetIdentityServerURL        *trustquery.GetIdentityServerURLQuery
	GetIntegrationManagerConfig *trustquery.GetIntegrationManagerConfigQuery
	GetAllowedWidgets           *trustquery.GetAllowedWidgetsQuery
	IsWidgetAllowed             *trustquery.IsWidgetAllowedQuery
	IsIntegrationEnabled        *trustquery.IsIntegrationEnabledQuery
	HasInternetAccess           *trustquery.HasInternetAccessQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	connectivity trustquery.ConnectivityReader
}

// WithConnectivityReader overrides the gate used by the connectivity query.
func WithConnectivityReader(reader trustquery.ConnectivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.connectivity = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("trust: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	connectivity := cfg.connectivity
	if connectivity == nil {
		connectivity = resolveConnectivityReader(service)
	}
	if connectivity == nil {
		return nil, fmt.Errorf("trust: connectivity reader is required; pass WithConnectivityReader or a manager exposing Connectivity()")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		SetIdentityServer:       trustcommand.NewSetIdentityServerCommand(service),
		DisconnectIdentity:      trustcommand.NewDisconnectIdentityServerCommand(service),
		StartBind:               trustcommand.NewStartBindCommand(service),
		CancelBind:              trustcommand.NewCancelBindCommand(service),
		FinalizeBind:            trustcommand.NewFinalizeBindCommand(service),
		UnbindThreePid:          trustcommand.NewUnbindThreePidCommand(service),
		SetWidgetAllowed:        trustcommand.NewSetWidgetAllowedCommand(service),
		SetNativeWidgetAllowed:  trustcommand.NewSetNativeWidgetDomainAllowedCommand(service),
		SetIntegrationProvision: trustcommand.NewSetIntegrationEnabledCommand(service),
	}
	facade.queries = Queries{
		GetIdentityServerURL:        trustquery.NewGetIdentityServerURLQuery(service),
		GetIntegrationManagerConfig: trustquery.NewGetIntegrationManagerConfigQuery(service),
		GetAllowedWidgets:           trustquery.NewGetAllowedWidgetsQuery(service),
		IsWidgetAllowed:             trustquery.NewIsWidgetAllowedQuery(service),
		IsIntegrationEnabled:        trustquery.NewIsIntegrationEnabledQuery(service),
		HasInternetAccess:           trustquery.NewHasInternetAccessQuery(connectivity),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

// resolveConnectivityReader prefers a service that answers connectivity
// itself, then one that exposes its gate.
func resolveConnectivityReader(service CommandQueryService) trustquery.ConnectivityReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(trustquery.ConnectivityReader); ok {
		return reader
	}
	provider, ok := service.(interface {
		Connectivity() *core.ConnectivityGate
	})
	if !ok {
		return nil
	}
	gate := provider.Connectivity()
	if gate == nil {
		return nil
	}
	return gate
}

var _ CommandQueryService = (*core.Manager)(nil)
