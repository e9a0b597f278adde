package core

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	ErrInvalidThreePidMedium = errors.New("core: invalid three-pid medium")
	ErrBindingAlreadyPending = errors.New("core: binding already pending for three-pid")
	ErrBindingNotFound       = errors.New("core: no pending binding for three-pid")
)

// Reserved account-data type identifiers. These are wire-protocol strings
// and must match the home server exactly.
const (
	AccountDataTypeWidgets                 = "m.widgets"
	AccountDataTypeAllowedWidgets          = "im.vector.setting.allowed_widgets"
	AccountDataTypeIntegrationProvisioning = "im.vector.setting.integration_provisioning"
	AccountDataTypeIdentityServer          = "m.identity_server"
)

// WidgetTypeIntegrationManager marks the widget definition that declares the
// account's integration manager inside m.widgets content.
const WidgetTypeIntegrationManager = "m.integration_manager"

// AccountDataEvent is one typed per-user record synchronized by the home
// server. Records are replaced per type, never appended.
type AccountDataEvent struct {
	Type    string
	Content map[string]any
}

// IdentityServerConfig is the canonical identity-server binding for a
// session. A nil URL means no identity server is configured.
type IdentityServerConfig struct {
	URL   *string
	Token *string
}

func (c IdentityServerConfig) HasURL() bool {
	return c.URL != nil && strings.TrimSpace(*c.URL) != ""
}

func (c IdentityServerConfig) HasToken() bool {
	return c.Token != nil && strings.TrimSpace(*c.Token) != ""
}

// IntegrationManagerConfig is a derived, immutable value recomputed on every
// relevant account-data change. Two configs are equal iff both fields match.
type IntegrationManagerConfig struct {
	UIURL  string
	APIURL string
}

// AllowedWidgetsContent carries per-widget and per-native-widget permission
// grants. Updates merge: setting one key never erases sibling keys.
type AllowedWidgetsContent struct {
	Widgets map[string]bool
	Native  map[string]map[string]bool
}

func (c AllowedWidgetsContent) Clone() AllowedWidgetsContent {
	out := AllowedWidgetsContent{
		Widgets: make(map[string]bool, len(c.Widgets)),
		Native:  make(map[string]map[string]bool, len(c.Native)),
	}
	for id, allowed := range c.Widgets {
		out.Widgets[id] = allowed
	}
	for widgetType, domains := range c.Native {
		copied := make(map[string]bool, len(domains))
		for domain, allowed := range domains {
			copied[domain] = allowed
		}
		out.Native[widgetType] = copied
	}
	return out
}

func (c AllowedWidgetsContent) Equal(other AllowedWidgetsContent) bool {
	if len(c.Widgets) != len(other.Widgets) || len(c.Native) != len(other.Native) {
		return false
	}
	for id, allowed := range c.Widgets {
		if got, ok := other.Widgets[id]; !ok || got != allowed {
			return false
		}
	}
	for widgetType, domains := range c.Native {
		otherDomains, ok := other.Native[widgetType]
		if !ok || len(domains) != len(otherDomains) {
			return false
		}
		for domain, allowed := range domains {
			if got, ok := otherDomains[domain]; !ok || got != allowed {
				return false
			}
		}
	}
	return true
}

// IntegrationProvisioningContent toggles whether integrations may be
// provisioned for the account at all.
type IntegrationProvisioningContent struct {
	Enabled bool
}

const (
	MediumEmail  = "email"
	MediumMSISDN = "msisdn"
)

// ThreePid is a third-party identifier such as an email address or an
// MSISDN phone number.
type ThreePid struct {
	Medium  string
	Address string
}

func (p ThreePid) Validate() error {
	medium := strings.TrimSpace(strings.ToLower(p.Medium))
	if medium != MediumEmail && medium != MediumMSISDN {
		return fmt.Errorf("%w: %q", ErrInvalidThreePidMedium, p.Medium)
	}
	if strings.TrimSpace(p.Address) == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidThreePidMedium)
	}
	return nil
}

// FoundThreePid is a successful directory match from a bulk lookup.
type FoundThreePid struct {
	ThreePid
	UserID string
}

// PendingBinding tracks an in-flight three-pid bind. A ThreePid has at most
// one pending binding at a time; the record is created on bind-start and
// deleted on bind-cancel or bind-finalize.
type PendingBinding struct {
	ThreePid     ThreePid
	ClientSecret string
	SID          string
	SendAttempt  int
	CreatedAt    time.Time
}

// CanonicalizeServerURL normalizes an identity/integration server URL so
// that formatting-only differences (trailing slash, scheme/host case) do
// not desync the local store from account data. Invalid URLs are returned
// trimmed so the caller can still compare raw values.
func CanonicalizeServerURL(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	trimmed = strings.TrimSuffix(trimmed, "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return trimmed
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String()
}

// OpenIDToken is a short-lived assertion issued by the home server and
// exchanged with a third-party service for a service-specific token.
type OpenIDToken struct {
	AccessToken      string
	TokenType        string
	MatrixServerName string
	ExpiresIn        int64
}

func (t OpenIDToken) Validate() error {
	if strings.TrimSpace(t.AccessToken) == "" {
		return fmt.Errorf("core: openid access token is required")
	}
	return nil
}
