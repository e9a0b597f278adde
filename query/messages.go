package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetIdentityServerURL        = "trust.query.identity.server_url"
	TypeGetIntegrationManagerConfig = "trust.query.manager.config"
	TypeGetAllowedWidgets           = "trust.query.widgets.allowed"
	TypeIsWidgetAllowed             = "trust.query.widgets.is_allowed"
	TypeIsIntegrationEnabled        = "trust.query.widgets.provisioning"
	TypeHasInternetAccess           = "trust.query.connectivity.has_internet"
)

type GetIdentityServerURLMessage struct{}

func (GetIdentityServerURLMessage) Type() string { return TypeGetIdentityServerURL }

func (GetIdentityServerURLMessage) Validate() error { return nil }

type GetIntegrationManagerConfigMessage struct{}

func (GetIntegrationManagerConfigMessage) Type() string { return TypeGetIntegrationManagerConfig }

func (GetIntegrationManagerConfigMessage) Validate() error { return nil }

type GetAllowedWidgetsMessage struct{}

func (GetAllowedWidgetsMessage) Type() string { return TypeGetAllowedWidgets }

func (GetAllowedWidgetsMessage) Validate() error { return nil }

type IsWidgetAllowedMessage struct {
	StateEventID string
}

func (IsWidgetAllowedMessage) Type() string { return TypeIsWidgetAllowed }

func (m IsWidgetAllowedMessage) Validate() error {
	if strings.TrimSpace(m.StateEventID) == "" {
		return fmt.Errorf("query: widget state event id is required")
	}
	return nil
}

type IsIntegrationEnabledMessage struct{}

func (IsIntegrationEnabledMessage) Type() string { return TypeIsIntegrationEnabled }

func (IsIntegrationEnabledMessage) Validate() error { return nil }

type HasInternetAccessMessage struct {
	ForcePing bool
}

func (HasInternetAccessMessage) Type() string { return TypeHasInternetAccess }

func (HasInternetAccessMessage) Validate() error { return nil }
