package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// tokenSource drives the NoToken -> Acquiring -> Valid -> Invalid ->
// Acquiring lifecycle for one token purpose. The identity-server and
// integration-manager ("scalar") tokens are two instances of the same
// pattern, differing only in how they register and persist.
type tokenSource struct {
	purpose  string
	logger   Logger
	guard    CapabilityGuard
	issuer   OpenIDIssuer
	register func(ctx context.Context, serverURL string, openID OpenIDToken) (string, error)
	load     func(ctx context.Context, serverURL string) (string, error)
	save     func(ctx context.Context, serverURL, token string) error
	clear    func(ctx context.Context, serverURL string) error

	// serializes acquisition so concurrent callers share one exchange
	mu sync.Mutex
}

// Ensure returns the cached token or acquires a fresh one: OpenID
// assertion from the home server, exchanged with the target service,
// persisted before return. The capability guard runs before any network
// I/O.
func (s *tokenSource) Ensure(ctx context.Context, serverURL string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: token source is not configured")
	}
	serverURL = strings.TrimSpace(serverURL)
	if serverURL == "" {
		return "", ErrNoIdentityServer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	token, err := s.load(ctx, serverURL)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) != "" {
		return token, nil
	}
	return s.acquireLocked(ctx, serverURL)
}

func (s *tokenSource) acquireLocked(ctx context.Context, serverURL string) (string, error) {
	if s.guard != nil {
		supported, err := s.guard.CanExchangeOpenID(ctx)
		if err != nil {
			return "", err
		}
		if !supported {
			return "", ErrOutdatedHomeServer
		}
	}
	if s.issuer == nil {
		return "", fmt.Errorf("core: openid issuer is required")
	}

	openID, err := s.issuer.GetOpenIDToken(ctx)
	if err != nil {
		return "", err
	}
	if err := openID.Validate(); err != nil {
		return "", err
	}

	token, err := s.register(ctx, serverURL, openID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("core: %s service returned an empty token", s.purpose)
	}
	if err := s.save(ctx, serverURL, token); err != nil {
		return "", err
	}
	s.logger.Debug("service token acquired", "purpose", s.purpose, "server", serverURL)
	return token, nil
}

// Invalidate clears the cached token so the next Ensure re-acquires. A
// cleared token is indistinguishable from one never fetched.
func (s *tokenSource) Invalidate(ctx context.Context, serverURL string) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clear(ctx, strings.TrimSpace(serverURL))
}

// WithToken runs call with a valid token, applying the one-shot
// retry-on-auth-failure policy: a 401 (or 403 carrying the token marker)
// clears the token and retries the whole call exactly once with a fresh
// token; a second failure is surfaced, never retried again. The
// terms-not-signed 403 is terminal and bypasses the refresh entirely.
// The retried flag bounds the loop; there is no recursion.
func (s *tokenSource) WithToken(ctx context.Context, serverURL string, call func(ctx context.Context, token string) error) error {
	retried := false
	for {
		token, err := s.Ensure(ctx, serverURL)
		if err != nil {
			return err
		}
		err = call(ctx, token)
		if err == nil {
			return nil
		}
		if IsTermsNotSigned(err) {
			return err
		}
		if !IsAuthTokenInvalid(err) || retried {
			return err
		}
		retried = true
		if clearErr := s.Invalidate(ctx, serverURL); clearErr != nil {
			return clearErr
		}
		s.logger.Info("service token rejected, re-acquiring once", "purpose", s.purpose, "server", serverURL)
	}
}

func newIdentityTokenSource(m *Manager) *tokenSource {
	return &tokenSource{
		purpose: "identity",
		logger:  m.logger,
		guard:   m.capabilityGuard,
		issuer:  m.openIDIssuer,
		register: func(ctx context.Context, serverURL string, openID OpenIDToken) (string, error) {
			if m.identityAPI == nil {
				return "", fmt.Errorf("core: identity api client is required")
			}
			return m.identityAPI.Register(ctx, serverURL, openID)
		},
		load: func(ctx context.Context, serverURL string) (string, error) {
			config, err := m.tokenStore.GetIdentityConfig(ctx)
			if err != nil {
				return "", err
			}
			if !config.HasURL() || CanonicalizeServerURL(*config.URL) != CanonicalizeServerURL(serverURL) {
				return "", nil
			}
			if !config.HasToken() {
				return "", nil
			}
			return *config.Token, nil
		},
		save: func(ctx context.Context, _ string, token string) error {
			return m.tokenStore.SetIdentityToken(ctx, token)
		},
		clear: func(ctx context.Context, _ string) error {
			return m.tokenStore.ClearIdentityToken(ctx)
		},
	}
}

func newScalarTokenSource(m *Manager) *tokenSource {
	return &tokenSource{
		purpose: "scalar",
		logger:  m.logger,
		guard:   m.capabilityGuard,
		issuer:  m.openIDIssuer,
		register: func(ctx context.Context, apiURL string, openID OpenIDToken) (string, error) {
			if m.scalarAPI == nil {
				return "", fmt.Errorf("core: scalar api client is required")
			}
			return m.scalarAPI.Register(ctx, apiURL, openID, m.config.Scalar.APIVersion)
		},
		load: func(ctx context.Context, apiURL string) (string, error) {
			return m.tokenStore.GetScalarToken(ctx, apiURL)
		},
		save: func(ctx context.Context, apiURL, token string) error {
			return m.tokenStore.SetScalarToken(ctx, apiURL, token)
		},
		clear: func(ctx context.Context, apiURL string) error {
			return m.tokenStore.ClearScalarToken(ctx, apiURL)
		},
	}
}

// identityBaseURL resolves the configured identity server or fails with
// the terminal no-identity-server error.
func (m *Manager) identityBaseURL(ctx context.Context) (string, error) {
	config, err := m.tokenStore.GetIdentityConfig(ctx)
	if err != nil {
		return "", err
	}
	if !config.HasURL() {
		return "", ErrNoIdentityServer
	}
	return CanonicalizeServerURL(*config.URL), nil
}

// EnsureIdentityToken returns a valid identity-server access token,
// acquiring one when none is cached.
func (m *Manager) EnsureIdentityToken(ctx context.Context) (string, error) {
	baseURL, err := m.identityBaseURL(ctx)
	if err != nil {
		return "", m.mapError(err)
	}
	token, err := m.identityTokens.Ensure(ctx, baseURL)
	if err != nil {
		return "", m.mapError(err)
	}
	return token, nil
}

// ValidateIdentityToken checks the cached token against the identity
// server's account endpoint, transparently refreshing once on an
// authorization-class failure.
func (m *Manager) ValidateIdentityToken(ctx context.Context) error {
	baseURL, err := m.identityBaseURL(ctx)
	if err != nil {
		return m.mapError(err)
	}
	if m.identityAPI == nil {
		return m.mapError(fmt.Errorf("core: identity api client is required"))
	}
	err = m.identityTokens.WithToken(ctx, baseURL, func(ctx context.Context, token string) error {
		return m.identityAPI.Account(ctx, baseURL, token)
	})
	return m.mapError(err)
}

// Lookup resolves three-pids to directory entries through the identity
// server with the standard one-shot token refresh contract. A terms-not-
// signed 403 surfaces as the dedicated terminal error without refresh.
func (m *Manager) Lookup(ctx context.Context, pids []ThreePid) (found []FoundThreePid, err error) {
	startedAt := time.Now()
	defer func() {
		m.observeOperation(ctx, startedAt, "identity.lookup", err, map[string]any{
			"pids":    len(pids),
			"matches": len(found),
		})
	}()
	if len(pids) == 0 {
		return nil, nil
	}
	for _, pid := range pids {
		if err := pid.Validate(); err != nil {
			return nil, m.mapError(err)
		}
	}
	baseURL, err := m.identityBaseURL(ctx)
	if err != nil {
		return nil, m.mapError(err)
	}
	if m.identityAPI == nil {
		return nil, m.mapError(fmt.Errorf("core: identity api client is required"))
	}

	err = m.identityTokens.WithToken(ctx, baseURL, func(ctx context.Context, token string) error {
		matches, lookupErr := m.identityAPI.Lookup(ctx, baseURL, token, pids)
		if lookupErr != nil {
			return lookupErr
		}
		found = matches
		return nil
	})
	if err != nil {
		return nil, m.mapError(err)
	}
	return found, nil
}

// EnsureScalarToken returns a valid integration-manager token for the
// configured manager's API URL.
func (m *Manager) EnsureScalarToken(ctx context.Context) (string, error) {
	config, err := m.GetIntegrationManagerConfig(ctx)
	if err != nil {
		return "", err
	}
	if config == nil {
		return "", m.mapError(fmt.Errorf("core: no integration manager configured"))
	}
	token, err := m.scalarTokens.Ensure(ctx, config.APIURL)
	if err != nil {
		return "", m.mapError(err)
	}
	return token, nil
}

// ValidateScalarToken checks the cached scalar token, refreshing once on
// 401 or on the 403-with-marker failure.
func (m *Manager) ValidateScalarToken(ctx context.Context) error {
	config, err := m.GetIntegrationManagerConfig(ctx)
	if err != nil {
		return err
	}
	if config == nil {
		return m.mapError(fmt.Errorf("core: no integration manager configured"))
	}
	if m.scalarAPI == nil {
		return m.mapError(fmt.Errorf("core: scalar api client is required"))
	}
	err = m.scalarTokens.WithToken(ctx, config.APIURL, func(ctx context.Context, token string) error {
		return m.scalarAPI.ValidateToken(ctx, config.APIURL, token, m.config.Scalar.APIVersion)
	})
	return m.mapError(err)
}
