package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryTokenStore is the default TokenStore. Every read-modify-write runs
// under one mutex so callers never observe torn state; reads return copies.
type MemoryTokenStore struct {
	mu       sync.Mutex
	identity IdentityServerConfig
	scalar   map[string]string
	bindings map[ThreePid]PendingBinding
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		scalar:   map[string]string{},
		bindings: map[ThreePid]PendingBinding{},
	}
}

func (s *MemoryTokenStore) GetIdentityConfig(context.Context) (IdentityServerConfig, error) {
	if s == nil {
		return IdentityServerConfig{}, fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneIdentityConfig(s.identity), nil
}

func (s *MemoryTokenStore) SetIdentityConfig(_ context.Context, config IdentityServerConfig) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	s.identity = cloneIdentityConfig(config)
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) SetIdentityToken(_ context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	token = strings.TrimSpace(token)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.identity.HasURL() {
		return ErrNoIdentityServer
	}
	s.identity.Token = &token
	return nil
}

func (s *MemoryTokenStore) ClearIdentityToken(context.Context) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	s.identity.Token = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) GetScalarToken(_ context.Context, apiURL string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scalar[CanonicalizeServerURL(apiURL)], nil
}

func (s *MemoryTokenStore) SetScalarToken(_ context.Context, apiURL, token string) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	key := CanonicalizeServerURL(apiURL)
	if key == "" {
		return fmt.Errorf("core: scalar api url is required")
	}
	s.mu.Lock()
	s.scalar[key] = strings.TrimSpace(token)
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) ClearScalarToken(_ context.Context, apiURL string) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	delete(s.scalar, CanonicalizeServerURL(apiURL))
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) GetPendingBinding(_ context.Context, pid ThreePid) (PendingBinding, bool, error) {
	if s == nil {
		return PendingBinding{}, false, fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	binding, ok := s.bindings[normalizePid(pid)]
	s.mu.Unlock()
	return binding, ok, nil
}

func (s *MemoryTokenStore) SavePendingBinding(_ context.Context, binding PendingBinding) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	if err := binding.ThreePid.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.bindings[normalizePid(binding.ThreePid)] = binding
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) DeletePendingBinding(_ context.Context, pid ThreePid) error {
	if s == nil {
		return fmt.Errorf("core: token store is not configured")
	}
	s.mu.Lock()
	delete(s.bindings, normalizePid(pid))
	s.mu.Unlock()
	return nil
}

func normalizePid(pid ThreePid) ThreePid {
	return ThreePid{
		Medium:  strings.TrimSpace(strings.ToLower(pid.Medium)),
		Address: strings.TrimSpace(pid.Address),
	}
}

func cloneIdentityConfig(config IdentityServerConfig) IdentityServerConfig {
	out := IdentityServerConfig{}
	if config.URL != nil {
		url := *config.URL
		out.URL = &url
	}
	if config.Token != nil {
		token := *config.Token
		out.Token = &token
	}
	return out
}

var _ TokenStore = (*MemoryTokenStore)(nil)
