package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// GetAllowedWidgets returns the current permission grants, treating a
// missing record as empty.
func (m *Manager) GetAllowedWidgets(ctx context.Context) (AllowedWidgetsContent, error) {
	empty := AllowedWidgetsContent{
		Widgets: map[string]bool{},
		Native:  map[string]map[string]bool{},
	}
	if m == nil || m.accountData == nil {
		return empty, ErrNotConfigured
	}
	event, err := m.accountData.Get(ctx, AccountDataTypeAllowedWidgets)
	if err != nil {
		return empty, m.mapError(err)
	}
	if event == nil {
		return empty, nil
	}
	decoded := ExtractAllowedWidgets(event.Content)
	if decoded == nil {
		return empty, nil
	}
	return *decoded, nil
}

// IsWidgetAllowed reports whether the widget state event has been granted.
func (m *Manager) IsWidgetAllowed(ctx context.Context, stateEventID string) (bool, error) {
	allowed, err := m.GetAllowedWidgets(ctx)
	if err != nil {
		return false, err
	}
	return allowed.Widgets[strings.TrimSpace(stateEventID)], nil
}

// IsNativeWidgetDomainAllowed reports whether the domain has been granted
// for the native widget type.
func (m *Manager) IsNativeWidgetDomainAllowed(ctx context.Context, widgetType, domain string) (bool, error) {
	allowed, err := m.GetAllowedWidgets(ctx)
	if err != nil {
		return false, err
	}
	domains, ok := allowed.Native[strings.TrimSpace(widgetType)]
	if !ok {
		return false, nil
	}
	return domains[strings.TrimSpace(domain)], nil
}

// SetWidgetAllowed grants or revokes one widget by state event id through
// a copy-on-write merge: sibling keys are preserved. The operation writes
// account data only; it never requires the integration-manager token.
func (m *Manager) SetWidgetAllowed(ctx context.Context, stateEventID string, allowed bool) error {
	stateEventID = strings.TrimSpace(stateEventID)
	if stateEventID == "" {
		return m.mapError(fmt.Errorf("core: widget state event id is required"))
	}
	current, err := m.GetAllowedWidgets(ctx)
	if err != nil {
		return err
	}
	next := current.Clone()
	next.Widgets[stateEventID] = allowed
	return m.writeAllowedWidgets(ctx, next)
}

// SetNativeWidgetDomainAllowed grants or revokes one domain under a native
// widget type with the same copy-on-write discipline on the nested map.
func (m *Manager) SetNativeWidgetDomainAllowed(ctx context.Context, widgetType, domain string, allowed bool) error {
	widgetType = strings.TrimSpace(widgetType)
	domain = strings.TrimSpace(domain)
	if widgetType == "" || domain == "" {
		return m.mapError(fmt.Errorf("core: widget type and domain are required"))
	}
	current, err := m.GetAllowedWidgets(ctx)
	if err != nil {
		return err
	}
	next := current.Clone()
	domains, ok := next.Native[widgetType]
	if !ok {
		domains = map[string]bool{}
		next.Native[widgetType] = domains
	}
	domains[domain] = allowed
	return m.writeAllowedWidgets(ctx, next)
}

func (m *Manager) writeAllowedWidgets(ctx context.Context, content AllowedWidgetsContent) error {
	if m.accountData == nil {
		return m.mapError(ErrNotConfigured)
	}
	err := m.accountData.Update(ctx, AccountDataTypeAllowedWidgets, AllowedWidgetsToContent(content))
	return m.mapError(err)
}

// IsIntegrationEnabled reports the provisioning toggle; a missing record
// means integrations default to enabled.
func (m *Manager) IsIntegrationEnabled(ctx context.Context) (bool, error) {
	if m == nil || m.accountData == nil {
		return false, ErrNotConfigured
	}
	event, err := m.accountData.Get(ctx, AccountDataTypeIntegrationProvisioning)
	if err != nil {
		return false, m.mapError(err)
	}
	if event == nil {
		return true, nil
	}
	decoded := ExtractIntegrationProvisioning(event.Content)
	if decoded == nil {
		return true, nil
	}
	return decoded.Enabled, nil
}

// SetIntegrationEnabled flips the provisioning toggle. When the account is
// already at the requested value the call is a no-op success: no
// account-data write is issued and no notification fires.
func (m *Manager) SetIntegrationEnabled(ctx context.Context, enable bool) (err error) {
	startedAt := time.Now()
	defer func() {
		m.observeOperation(ctx, startedAt, "widgets.set_integration_enabled", err, map[string]any{
			"enabled": enable,
		})
	}()
	current, err := m.IsIntegrationEnabled(ctx)
	if err != nil {
		return err
	}
	if current == enable {
		return nil
	}
	err = m.accountData.Update(ctx, AccountDataTypeIntegrationProvisioning, map[string]any{
		"enabled": enable,
	})
	return m.mapError(err)
}
