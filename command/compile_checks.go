package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[SetIdentityServerMessage]            = (*SetIdentityServerCommand)(nil)
	_ gocmd.Commander[DisconnectIdentityServerMessage]     = (*DisconnectIdentityServerCommand)(nil)
	_ gocmd.Commander[StartBindMessage]                    = (*StartBindCommand)(nil)
	_ gocmd.Commander[CancelBindMessage]                   = (*CancelBindCommand)(nil)
	_ gocmd.Commander[FinalizeBindMessage]                 = (*FinalizeBindCommand)(nil)
	_ gocmd.Commander[UnbindThreePidMessage]               = (*UnbindThreePidCommand)(nil)
	_ gocmd.Commander[SetWidgetAllowedMessage]             = (*SetWidgetAllowedCommand)(nil)
	_ gocmd.Commander[SetNativeWidgetDomainAllowedMessage] = (*SetNativeWidgetDomainAllowedCommand)(nil)
	_ gocmd.Commander[SetIntegrationEnabledMessage]        = (*SetIntegrationEnabledCommand)(nil)
)
