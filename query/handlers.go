package query

import (
	"context"

	"github.com/goliatone/go-trust/core"
)

type IdentityReader interface {
	GetIdentityServerURL(ctx context.Context) (*string, error)
}

type ManagerConfigReader interface {
	GetIntegrationManagerConfig(ctx context.Context) (*core.IntegrationManagerConfig, error)
}

type WidgetPermissionReader interface {
	GetAllowedWidgets(ctx context.Context) (core.AllowedWidgetsContent, error)
	IsWidgetAllowed(ctx context.Context, stateEventID string) (bool, error)
	IsIntegrationEnabled(ctx context.Context) (bool, error)
}

type ConnectivityReader interface {
	HasInternetAccess(ctx context.Context, forcePing bool) bool
}

type GetIdentityServerURLQuery struct {
	reader IdentityReader
}

func NewGetIdentityServerURLQuery(reader IdentityReader) *GetIdentityServerURLQuery {
	return &GetIdentityServerURLQuery{reader: reader}
}

func (q *GetIdentityServerURLQuery) Query(ctx context.Context, _ GetIdentityServerURLMessage) (*string, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: identity reader is required")
	}
	return q.reader.GetIdentityServerURL(ctx)
}

type GetIntegrationManagerConfigQuery struct {
	reader ManagerConfigReader
}

func NewGetIntegrationManagerConfigQuery(reader ManagerConfigReader) *GetIntegrationManagerConfigQuery {
	return &GetIntegrationManagerConfigQuery{reader: reader}
}

func (q *GetIntegrationManagerConfigQuery) Query(
	ctx context.Context,
	_ GetIntegrationManagerConfigMessage,
) (*core.IntegrationManagerConfig, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: manager config reader is required")
	}
	return q.reader.GetIntegrationManagerConfig(ctx)
}

type GetAllowedWidgetsQuery struct {
	reader WidgetPermissionReader
}

func NewGetAllowedWidgetsQuery(reader WidgetPermissionReader) *GetAllowedWidgetsQuery {
	return &GetAllowedWidgetsQuery{reader: reader}
}

func (q *GetAllowedWidgetsQuery) Query(
	ctx context.Context,
	_ GetAllowedWidgetsMessage,
) (core.AllowedWidgetsContent, error) {
	if q == nil || q.reader == nil {
		return core.AllowedWidgetsContent{}, queryDependencyError("query: widget permission reader is required")
	}
	return q.reader.GetAllowedWidgets(ctx)
}

type IsWidgetAllowedQuery struct {
	reader WidgetPermissionReader
}

func NewIsWidgetAllowedQuery(reader WidgetPermissionReader) *IsWidgetAllowedQuery {
	return &IsWidgetAllowedQuery{reader: reader}
}

func (q *IsWidgetAllowedQuery) Query(ctx context.Context, msg IsWidgetAllowedMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: widget permission reader is required")
	}
	return q.reader.IsWidgetAllowed(ctx, msg.StateEventID)
}

type IsIntegrationEnabledQuery struct {
	reader WidgetPermissionReader
}

func NewIsIntegrationEnabledQuery(reader WidgetPermissionReader) *IsIntegrationEnabledQuery {
	return &IsIntegrationEnabledQuery{reader: reader}
}

func (q *IsIntegrationEnabledQuery) Query(ctx context.Context, _ IsIntegrationEnabledMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: widget permission reader is required")
	}
	return q.reader.IsIntegrationEnabled(ctx)
}

type HasInternetAccessQuery struct {
	reader ConnectivityReader
}

func NewHasInternetAccessQuery(reader ConnectivityReader) *HasInternetAccessQuery {
	return &HasInternetAccessQuery{reader: reader}
}

func (q *HasInternetAccessQuery) Query(ctx context.Context, msg HasInternetAccessMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: connectivity reader is required")
	}
	return q.reader.HasInternetAccess(ctx, msg.ForcePing), nil
}
