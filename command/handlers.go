package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-trust/core"
)

type MutatingService interface {
	SetIdentityServer(ctx context.Context, rawURL string) error
	DisconnectIdentityServer(ctx context.Context) error
	StartBind(ctx context.Context, pid core.ThreePid) (core.PendingBinding, error)
	CancelBind(ctx context.Context, pid core.ThreePid) error
	FinalizeBind(ctx context.Context, pid core.ThreePid) error
	UnbindThreePid(ctx context.Context, pid core.ThreePid) error
	SetWidgetAllowed(ctx context.Context, stateEventID string, allowed bool) error
	SetNativeWidgetDomainAllowed(ctx context.Context, widgetType, domain string, allowed bool) error
	SetIntegrationEnabled(ctx context.Context, enable bool) error
}

type SetIdentityServerCommand struct {
	service MutatingService
}

func NewSetIdentityServerCommand(service MutatingService) *SetIdentityServerCommand {
	return &SetIdentityServerCommand{service: service}
}

func (c *SetIdentityServerCommand) Execute(ctx context.Context, msg SetIdentityServerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: identity server service is required")
	}
	return c.service.SetIdentityServer(ctx, msg.RawURL)
}

type DisconnectIdentityServerCommand struct {
	service MutatingService
}

func NewDisconnectIdentityServerCommand(service MutatingService) *DisconnectIdentityServerCommand {
	return &DisconnectIdentityServerCommand{service: service}
}

func (c *DisconnectIdentityServerCommand) Execute(ctx context.Context, _ DisconnectIdentityServerMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: identity server service is required")
	}
	return c.service.DisconnectIdentityServer(ctx)
}

type StartBindCommand struct {
	service MutatingService
}

func NewStartBindCommand(service MutatingService) *StartBindCommand {
	return &StartBindCommand{service: service}
}

func (c *StartBindCommand) Execute(ctx context.Context, msg StartBindMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bind service is required")
	}
	out, err := c.service.StartBind(ctx, msg.ThreePid)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CancelBindCommand struct {
	service MutatingService
}

func NewCancelBindCommand(service MutatingService) *CancelBindCommand {
	return &CancelBindCommand{service: service}
}

func (c *CancelBindCommand) Execute(ctx context.Context, msg CancelBindMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bind service is required")
	}
	return c.service.CancelBind(ctx, msg.ThreePid)
}

type FinalizeBindCommand struct {
	service MutatingService
}

func NewFinalizeBindCommand(service MutatingService) *FinalizeBindCommand {
	return &FinalizeBindCommand{service: service}
}

func (c *FinalizeBindCommand) Execute(ctx context.Context, msg FinalizeBindMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: bind service is required")
	}
	return c.service.FinalizeBind(ctx, msg.ThreePid)
}

type UnbindThreePidCommand struct {
	service MutatingService
}

func NewUnbindThreePidCommand(service MutatingService) *UnbindThreePidCommand {
	return &UnbindThreePidCommand{service: service}
}

func (c *UnbindThreePidCommand) Execute(ctx context.Context, msg UnbindThreePidMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: unbind service is required")
	}
	return c.service.UnbindThreePid(ctx, msg.ThreePid)
}

type SetWidgetAllowedCommand struct {
	service MutatingService
}

func NewSetWidgetAllowedCommand(service MutatingService) *SetWidgetAllowedCommand {
	return &SetWidgetAllowedCommand{service: service}
}

func (c *SetWidgetAllowedCommand) Execute(ctx context.Context, msg SetWidgetAllowedMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: widget permission service is required")
	}
	return c.service.SetWidgetAllowed(ctx, msg.StateEventID, msg.Allowed)
}

type SetNativeWidgetDomainAllowedCommand struct {
	service MutatingService
}

func NewSetNativeWidgetDomainAllowedCommand(service MutatingService) *SetNativeWidgetDomainAllowedCommand {
	return &SetNativeWidgetDomainAllowedCommand{service: service}
}

func (c *SetNativeWidgetDomainAllowedCommand) Execute(ctx context.Context, msg SetNativeWidgetDomainAllowedMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: widget permission service is required")
	}
	return c.service.SetNativeWidgetDomainAllowed(ctx, msg.WidgetType, msg.Domain, msg.Allowed)
}

type SetIntegrationEnabledCommand struct {
	service MutatingService
}

func NewSetIntegrationEnabledCommand(service MutatingService) *SetIntegrationEnabledCommand {
	return &SetIntegrationEnabledCommand{service: service}
}

func (c *SetIntegrationEnabledCommand) Execute(ctx context.Context, msg SetIntegrationEnabledMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: provisioning service is required")
	}
	return c.service.SetIntegrationEnabled(ctx, msg.Enable)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
