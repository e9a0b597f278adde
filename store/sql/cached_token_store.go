package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-trust/core"
)

const (
	identityConfigCacheKey    = "go-trust::identity_config::v1"
	scalarTokenCacheKeyPrefix = "go-trust::scalar_token::v1"
)

// CachedTokenStore layers a read-through cache over a base token store.
// Reads on the token hot path (every authenticated API call loads the
// stored token first) hit the cache; every write invalidates the affected
// key before returning. Pending bindings are not cached, bind flows are
// rare and always want fresh state.
type CachedTokenStore struct {
	base  core.TokenStore
	cache repositorycache.CacheService
}

func NewCachedTokenStore(base core.TokenStore, cacheService repositorycache.CacheService) (*CachedTokenStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token cache service is required")
	}
	return &CachedTokenStore{base: base, cache: cacheService}, nil
}

// ScalarTokenCacheKey returns the deterministic cache key contract for
// scalar token reads: go-trust::scalar_token::v1::<canonical-api-url>
// with the URL segment path escaped.
func ScalarTokenCacheKey(apiURL string) string {
	canonical := core.CanonicalizeServerURL(apiURL)
	return strings.Join([]string{scalarTokenCacheKeyPrefix, url.PathEscape(canonical)}, "::")
}

func (s *CachedTokenStore) GetIdentityConfig(ctx context.Context) (core.IdentityServerConfig, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.IdentityServerConfig{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	config, err := repositorycache.GetOrFetch(ctx, s.cache, identityConfigCacheKey, func(ctx context.Context) (core.IdentityServerConfig, error) {
		return s.base.GetIdentityConfig(ctx)
	})
	if err != nil {
		return core.IdentityServerConfig{}, err
	}
	return cloneIdentityConfig(config), nil
}

func (s *CachedTokenStore) SetIdentityConfig(ctx context.Context, config core.IdentityServerConfig) error {
	if err := s.base.SetIdentityConfig(ctx, config); err != nil {
		return err
	}
	return s.cache.Delete(ctx, identityConfigCacheKey)
}

func (s *CachedTokenStore) SetIdentityToken(ctx context.Context, token string) error {
	if err := s.base.SetIdentityToken(ctx, token); err != nil {
		return err
	}
	return s.cache.Delete(ctx, identityConfigCacheKey)
}

func (s *CachedTokenStore) ClearIdentityToken(ctx context.Context) error {
	if err := s.base.ClearIdentityToken(ctx); err != nil {
		return err
	}
	return s.cache.Delete(ctx, identityConfigCacheKey)
}

func (s *CachedTokenStore) GetScalarToken(ctx context.Context, apiURL string) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached token store is not configured")
	}
	return repositorycache.GetOrFetch(ctx, s.cache, ScalarTokenCacheKey(apiURL), func(ctx context.Context) (string, error) {
		return s.base.GetScalarToken(ctx, apiURL)
	})
}

func (s *CachedTokenStore) SetScalarToken(ctx context.Context, apiURL, token string) error {
	if err := s.base.SetScalarToken(ctx, apiURL, token); err != nil {
		return err
	}
	return s.cache.Delete(ctx, ScalarTokenCacheKey(apiURL))
}

func (s *CachedTokenStore) ClearScalarToken(ctx context.Context, apiURL string) error {
	if err := s.base.ClearScalarToken(ctx, apiURL); err != nil {
		return err
	}
	return s.cache.Delete(ctx, ScalarTokenCacheKey(apiURL))
}

func (s *CachedTokenStore) GetPendingBinding(ctx context.Context, pid core.ThreePid) (core.PendingBinding, bool, error) {
	return s.base.GetPendingBinding(ctx, pid)
}

func (s *CachedTokenStore) SavePendingBinding(ctx context.Context, binding core.PendingBinding) error {
	return s.base.SavePendingBinding(ctx, binding)
}

func (s *CachedTokenStore) DeletePendingBinding(ctx context.Context, pid core.ThreePid) error {
	return s.base.DeletePendingBinding(ctx, pid)
}

func cloneIdentityConfig(config core.IdentityServerConfig) core.IdentityServerConfig {
	out := core.IdentityServerConfig{}
	if config.URL != nil {
		value := *config.URL
		out.URL = &value
	}
	if config.Token != nil {
		value := *config.Token
		out.Token = &value
	}
	return out
}
