package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GetIdentityServerURL returns the canonical configured identity server,
// or nil when none is set.
func (m *Manager) GetIdentityServerURL(ctx context.Context) (*string, error) {
	if m == nil || m.tokenStore == nil {
		return nil, ErrNotConfigured
	}
	config, err := m.tokenStore.GetIdentityConfig(ctx)
	if err != nil {
		return nil, m.mapError(err)
	}
	if !config.HasURL() {
		return nil, nil
	}
	canonical := CanonicalizeServerURL(*config.URL)
	return &canonical, nil
}

// SetIdentityServer switches the session to a new identity server. The
// new server is pinged before any state changes; the previous server is
// logged out best-effort, with failures deliberately ignored because the
// disconnect is advisory cleanup. Setting the already-configured URL is a
// no-op success.
func (m *Manager) SetIdentityServer(ctx context.Context, rawURL string) (err error) {
	if m == nil || m.tokenStore == nil {
		return ErrNotConfigured
	}
	startedAt := time.Now()
	defer func() {
		m.observeOperation(ctx, startedAt, "identity.set_server", err, map[string]any{
			"server": CanonicalizeServerURL(rawURL),
		})
	}()
	canonical := CanonicalizeServerURL(rawURL)
	if canonical == "" {
		return m.mapError(fmt.Errorf("core: identity server url is required"))
	}

	current, err := m.tokenStore.GetIdentityConfig(ctx)
	if err != nil {
		return m.mapError(err)
	}
	if current.HasURL() && CanonicalizeServerURL(*current.URL) == canonical {
		return nil
	}

	if m.identityAPI != nil {
		if err := m.identityAPI.Ping(ctx, canonical); err != nil {
			return m.mapError(err)
		}
	}

	m.disconnectPrevious(ctx, current)

	next := IdentityServerConfig{URL: &canonical}
	if err := m.tokenStore.SetIdentityConfig(ctx, next); err != nil {
		return m.mapError(err)
	}
	if m.accountData != nil {
		err := m.accountData.Update(ctx, AccountDataTypeIdentityServer, map[string]any{
			"base_url": canonical,
		})
		if err != nil {
			return m.mapError(err)
		}
	}
	m.registry.NotifyIdentityServerChanged(&canonical)
	return nil
}

// DisconnectIdentityServer logs out of the current identity server, clears
// the stored binding, and writes the explicit "no identity server"
// account-data record. Disconnecting when none is configured is a no-op.
func (m *Manager) DisconnectIdentityServer(ctx context.Context) error {
	if m == nil || m.tokenStore == nil {
		return ErrNotConfigured
	}
	current, err := m.tokenStore.GetIdentityConfig(ctx)
	if err != nil {
		return m.mapError(err)
	}
	if !current.HasURL() {
		return nil
	}

	m.disconnectPrevious(ctx, current)

	if err := m.tokenStore.SetIdentityConfig(ctx, IdentityServerConfig{}); err != nil {
		return m.mapError(err)
	}
	if m.accountData != nil {
		if err := m.accountData.Update(ctx, AccountDataTypeIdentityServer, map[string]any{}); err != nil {
			return m.mapError(err)
		}
	}
	m.registry.NotifyIdentityServerChanged(nil)
	return nil
}

// disconnectPrevious is best-effort: a dead previous server must not block
// the switch, so failures are logged and dropped.
func (m *Manager) disconnectPrevious(ctx context.Context, previous IdentityServerConfig) {
	if m.identityAPI == nil || !previous.HasURL() || !previous.HasToken() {
		return
	}
	baseURL := CanonicalizeServerURL(*previous.URL)
	if err := m.identityAPI.Logout(ctx, baseURL, *previous.Token); err != nil {
		m.logger.Info("identity server logout skipped", "server", baseURL, "error", err.Error())
	}
}

// StartBind begins (or re-sends) a three-pid bind. A pid with a pending
// binding keeps its client secret and gets an incremented send attempt, so
// at most one binding record exists per pid.
func (m *Manager) StartBind(ctx context.Context, pid ThreePid) (binding PendingBinding, err error) {
	if m == nil || m.tokenStore == nil {
		return PendingBinding{}, ErrNotConfigured
	}
	startedAt := time.Now()
	defer func() {
		m.observeOperation(ctx, startedAt, "identity.bind_start", err, map[string]any{
			"medium": pid.Medium,
		})
	}()
	if err := pid.Validate(); err != nil {
		return PendingBinding{}, m.mapError(err)
	}
	baseURL, err := m.identityBaseURL(ctx)
	if err != nil {
		return PendingBinding{}, m.mapError(err)
	}
	if m.identityAPI == nil {
		return PendingBinding{}, m.mapError(fmt.Errorf("core: identity api client is required"))
	}

	binding, exists, err := m.tokenStore.GetPendingBinding(ctx, pid)
	if err != nil {
		return PendingBinding{}, m.mapError(err)
	}
	if exists {
		binding.SendAttempt++
	} else {
		binding = PendingBinding{
			ThreePid:     pid,
			ClientSecret: uuid.NewString(),
			SendAttempt:  1,
			CreatedAt:    time.Now().UTC(),
		}
	}

	err = m.identityTokens.WithToken(ctx, baseURL, func(ctx context.Context, token string) error {
		sid, requestErr := m.identityAPI.RequestBind(ctx, baseURL, token, binding)
		if requestErr != nil {
			return requestErr
		}
		binding.SID = sid
		return nil
	})
	if err != nil {
		return PendingBinding{}, m.mapError(err)
	}

	if err := m.tokenStore.SavePendingBinding(ctx, binding); err != nil {
		return PendingBinding{}, m.mapError(err)
	}
	return binding, nil
}

// CancelBind discards the pending binding for a pid.
func (m *Manager) CancelBind(ctx context.Context, pid ThreePid) error {
	if m == nil || m.tokenStore == nil {
		return ErrNotConfigured
	}
	_, exists, err := m.tokenStore.GetPendingBinding(ctx, pid)
	if err != nil {
		return m.mapError(err)
	}
	if !exists {
		return m.mapError(ErrBindingNotFound)
	}
	return m.mapError(m.tokenStore.DeletePendingBinding(ctx, pid))
}

// FinalizeBind completes a validated bind and deletes the pending record.
func (m *Manager) FinalizeBind(ctx context.Context, pid ThreePid) error {
	if m == nil || m.tokenStore == nil {
		return ErrNotConfigured
	}
	binding, exists, err := m.tokenStore.GetPendingBinding(ctx, pid)
	if err != nil {
		return m.mapError(err)
	}
	if !exists {
		return m.mapError(ErrBindingNotFound)
	}
	baseURL, err := m.identityBaseURL(ctx)
	if err != nil {
		return m.mapError(err)
	}
	if m.identityAPI == nil {
		return m.mapError(fmt.Errorf("core: identity api client is required"))
	}

	err = m.identityTokens.WithToken(ctx, baseURL, func(ctx context.Context, token string) error {
		return m.identityAPI.FinalizeBind(ctx, baseURL, token, binding)
	})
	if err != nil {
		return m.mapError(err)
	}
	return m.mapError(m.tokenStore.DeletePendingBinding(ctx, pid))
}

// UnbindThreePid removes an established binding from the identity server.
func (m *Manager) UnbindThreePid(ctx context.Context, pid ThreePid) error {
	if m == nil {
		return ErrNotConfigured
	}
	if err := pid.Validate(); err != nil {
		return m.mapError(err)
	}
	baseURL, err := m.identityBaseURL(ctx)
	if err != nil {
		return m.mapError(err)
	}
	if m.identityAPI == nil {
		return m.mapError(fmt.Errorf("core: identity api client is required"))
	}
	err = m.identityTokens.WithToken(ctx, baseURL, func(ctx context.Context, token string) error {
		return m.identityAPI.Unbind(ctx, baseURL, token, pid)
	})
	return m.mapError(err)
}
