package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-trust/core"
)

const (
	TypeSetIdentityServer            = "trust.command.identity.set_server"
	TypeDisconnectIdentityServer     = "trust.command.identity.disconnect"
	TypeStartBind                    = "trust.command.identity.bind.start"
	TypeCancelBind                   = "trust.command.identity.bind.cancel"
	TypeFinalizeBind                 = "trust.command.identity.bind.finalize"
	TypeUnbindThreePid               = "trust.command.identity.unbind"
	TypeSetWidgetAllowed             = "trust.command.widgets.set_allowed"
	TypeSetNativeWidgetDomainAllowed = "trust.command.widgets.set_native_domain_allowed"
	TypeSetIntegrationEnabled        = "trust.command.widgets.set_provisioning"
)

type SetIdentityServerMessage struct {
	RawURL string
}

func (SetIdentityServerMessage) Type() string { return TypeSetIdentityServer }

func (m SetIdentityServerMessage) Validate() error {
	if strings.TrimSpace(m.RawURL) == "" {
		return fmt.Errorf("command: identity server url is required")
	}
	return nil
}

type DisconnectIdentityServerMessage struct{}

func (DisconnectIdentityServerMessage) Type() string { return TypeDisconnectIdentityServer }

func (DisconnectIdentityServerMessage) Validate() error { return nil }

type StartBindMessage struct {
	ThreePid core.ThreePid
}

func (StartBindMessage) Type() string { return TypeStartBind }

func (m StartBindMessage) Validate() error {
	return validateThreePid(m.ThreePid)
}

type CancelBindMessage struct {
	ThreePid core.ThreePid
}

func (CancelBindMessage) Type() string { return TypeCancelBind }

func (m CancelBindMessage) Validate() error {
	return validateThreePid(m.ThreePid)
}

type FinalizeBindMessage struct {
	ThreePid core.ThreePid
}

func (FinalizeBindMessage) Type() string { return TypeFinalizeBind }

func (m FinalizeBindMessage) Validate() error {
	return validateThreePid(m.ThreePid)
}

type UnbindThreePidMessage struct {
	ThreePid core.ThreePid
}

func (UnbindThreePidMessage) Type() string { return TypeUnbindThreePid }

func (m UnbindThreePidMessage) Validate() error {
	return validateThreePid(m.ThreePid)
}

type SetWidgetAllowedMessage struct {
	StateEventID string
	Allowed      bool
}

func (SetWidgetAllowedMessage) Type() string { return TypeSetWidgetAllowed }

func (m SetWidgetAllowedMessage) Validate() error {
	if strings.TrimSpace(m.StateEventID) == "" {
		return fmt.Errorf("command: widget state event id is required")
	}
	return nil
}

type SetNativeWidgetDomainAllowedMessage struct {
	WidgetType string
	Domain     string
	Allowed    bool
}

func (SetNativeWidgetDomainAllowedMessage) Type() string { return TypeSetNativeWidgetDomainAllowed }

func (m SetNativeWidgetDomainAllowedMessage) Validate() error {
	if strings.TrimSpace(m.WidgetType) == "" {
		return fmt.Errorf("command: widget type is required")
	}
	if strings.TrimSpace(m.Domain) == "" {
		return fmt.Errorf("command: widget domain is required")
	}
	return nil
}

type SetIntegrationEnabledMessage struct {
	Enable bool
}

func (SetIntegrationEnabledMessage) Type() string { return TypeSetIntegrationEnabled }

func (SetIntegrationEnabledMessage) Validate() error { return nil }

func validateThreePid(pid core.ThreePid) error {
	if err := pid.Validate(); err != nil {
		return fmt.Errorf("command: %w", err)
	}
	return nil
}
