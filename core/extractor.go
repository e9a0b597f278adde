package core

import "strings"

// ExtractIntegrationManagerConfig scans m.widgets content for the first
// widget definition declaring the integration-manager widget type and
// builds the derived config. A missing or empty widget URL yields nil, not
// an error: "no integration manager configured" is a valid state.
//
// The server may send several integration-manager widgets; the first match
// by iteration order wins and callers must not assume a specific order.
func ExtractIntegrationManagerConfig(content map[string]any) *IntegrationManagerConfig {
	if len(content) == 0 {
		return nil
	}
	for _, raw := range content {
		widget, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		definition := widgetDefinition(widget)
		if definition == nil {
			continue
		}
		if widgetType(definition) != WidgetTypeIntegrationManager {
			continue
		}
		uiURL := strings.TrimSpace(stringField(definition, "url"))
		if uiURL == "" {
			continue
		}
		apiURL := uiURL
		if data, ok := definition["data"].(map[string]any); ok {
			if declared := strings.TrimSpace(stringField(data, "api_url")); declared != "" {
				apiURL = declared
			}
		}
		return &IntegrationManagerConfig{UIURL: uiURL, APIURL: apiURL}
	}
	return nil
}

// widgetDefinition unwraps the state-event envelope around a widget: the
// account-data record stores full events keyed by state event id, with the
// widget fields under "content". Bare definitions are accepted too.
func widgetDefinition(widget map[string]any) map[string]any {
	if inner, ok := widget["content"].(map[string]any); ok {
		return inner
	}
	if _, ok := widget["url"]; ok {
		return widget
	}
	if _, ok := widget["type"]; ok {
		return widget
	}
	return nil
}

func widgetType(definition map[string]any) string {
	return strings.TrimSpace(stringField(definition, "type"))
}

func stringField(m map[string]any, key string) string {
	value, ok := m[key].(string)
	if !ok {
		return ""
	}
	return value
}

// ExtractAllowedWidgets decodes im.vector.setting.allowed_widgets content.
// Malformed content decodes to nil so the watcher can ignore the event.
func ExtractAllowedWidgets(content map[string]any) *AllowedWidgetsContent {
	if content == nil {
		return nil
	}
	out := AllowedWidgetsContent{
		Widgets: map[string]bool{},
		Native:  map[string]map[string]bool{},
	}
	if widgets, ok := content["widgets"].(map[string]any); ok {
		for eventID, raw := range widgets {
			allowed, ok := raw.(bool)
			if !ok {
				continue
			}
			out.Widgets[eventID] = allowed
		}
	}
	if native, ok := content["native_widgets"].(map[string]any); ok {
		for widgetKind, raw := range native {
			domains, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			decoded := map[string]bool{}
			for domain, rawAllowed := range domains {
				allowed, ok := rawAllowed.(bool)
				if !ok {
					continue
				}
				decoded[domain] = allowed
			}
			out.Native[widgetKind] = decoded
		}
	}
	return &out
}

// ExtractIntegrationProvisioning decodes the provisioning toggle. Content
// without a boolean "enabled" field is malformed and decodes to nil.
func ExtractIntegrationProvisioning(content map[string]any) *IntegrationProvisioningContent {
	if content == nil {
		return nil
	}
	enabled, ok := content["enabled"].(bool)
	if !ok {
		return nil
	}
	return &IntegrationProvisioningContent{Enabled: enabled}
}

// ExtractIdentityServerURL decodes m.identity_server content. Content with
// no base_url key means the account explicitly has no identity server and
// decodes to an empty canonical URL; a base_url of the wrong type is
// malformed and decodes to nil so the event can be ignored.
func ExtractIdentityServerURL(content map[string]any) *string {
	if content == nil {
		return nil
	}
	raw, exists := content["base_url"]
	if !exists {
		empty := ""
		return &empty
	}
	value, ok := raw.(string)
	if !ok {
		return nil
	}
	canonical := CanonicalizeServerURL(value)
	return &canonical
}

// AllowedWidgetsToContent serializes permission state back into the
// account-data wire shape.
func AllowedWidgetsToContent(allowed AllowedWidgetsContent) map[string]any {
	widgets := make(map[string]any, len(allowed.Widgets))
	for eventID, ok := range allowed.Widgets {
		widgets[eventID] = ok
	}
	native := make(map[string]any, len(allowed.Native))
	for widgetKind, domains := range allowed.Native {
		encoded := make(map[string]any, len(domains))
		for domain, ok := range domains {
			encoded[domain] = ok
		}
		native[widgetKind] = encoded
	}
	return map[string]any{
		"widgets":        widgets,
		"native_widgets": native,
	}
}
