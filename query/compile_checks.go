package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-trust/core"
)

var (
	_ gocmd.Querier[GetIdentityServerURLMessage, *string]                               = (*GetIdentityServerURLQuery)(nil)
	_ gocmd.Querier[GetIntegrationManagerConfigMessage, *core.IntegrationManagerConfig] = (*GetIntegrationManagerConfigQuery)(nil)
	_ gocmd.Querier[GetAllowedWidgetsMessage, core.AllowedWidgetsContent]               = (*GetAllowedWidgetsQuery)(nil)
	_ gocmd.Querier[IsWidgetAllowedMessage, bool]                                       = (*IsWidgetAllowedQuery)(nil)
	_ gocmd.Querier[IsIntegrationEnabledMessage, bool]                                  = (*IsIntegrationEnabledQuery)(nil)
	_ gocmd.Querier[HasInternetAccessMessage, bool]                                     = (*HasInternetAccessQuery)(nil)
)
