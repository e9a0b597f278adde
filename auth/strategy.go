package auth

import "strings"

// Auth placement kinds for outbound service calls.
const (
	KindBearer = "bearer"
	KindQuery  = "query"
)

// TokenPlacement describes where a request token goes: headers, query
// parameters, or both.
type TokenPlacement struct {
	Headers map[string]string
	Query   map[string]string
}

// TokenStrategy maps an opaque access token onto the transport surface a
// given service expects. Strategies are stateless and safe for concurrent
// use.
type TokenStrategy interface {
	Type() string
	Place(token string) TokenPlacement
}

// BearerHeaderConfig customizes header-based placement. Zero values fall
// back to the standard Authorization/Bearer pair.
type BearerHeaderConfig struct {
	Header string
	Scheme string
}

type BearerHeaderStrategy struct {
	config BearerHeaderConfig
}

func NewBearerHeaderStrategy() *BearerHeaderStrategy {
	return NewBearerHeaderStrategyWithConfig(BearerHeaderConfig{})
}

func NewBearerHeaderStrategyWithConfig(cfg BearerHeaderConfig) *BearerHeaderStrategy {
	header := strings.TrimSpace(cfg.Header)
	if header == "" {
		header = "Authorization"
	}
	scheme := strings.TrimSpace(cfg.Scheme)
	if scheme == "" {
		scheme = "Bearer"
	}
	return &BearerHeaderStrategy{config: BearerHeaderConfig{Header: header, Scheme: scheme}}
}

func (*BearerHeaderStrategy) Type() string { return KindBearer }

func (s *BearerHeaderStrategy) Place(token string) TokenPlacement {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return TokenPlacement{}
	}
	return TokenPlacement{
		Headers: map[string]string{
			s.config.Header: s.config.Scheme + " " + trimmed,
		},
	}
}

// QueryParamStrategy attaches the token as a query parameter, the form
// legacy integration-manager APIs expect.
type QueryParamStrategy struct {
	param string
}

func NewQueryParamStrategy(param string) *QueryParamStrategy {
	trimmed := strings.TrimSpace(param)
	if trimmed == "" {
		trimmed = "access_token"
	}
	return &QueryParamStrategy{param: trimmed}
}

func (*QueryParamStrategy) Type() string { return KindQuery }

func (s *QueryParamStrategy) Place(token string) TokenPlacement {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return TokenPlacement{}
	}
	return TokenPlacement{
		Query: map[string]string{s.param: trimmed},
	}
}

var (
	_ TokenStrategy = (*BearerHeaderStrategy)(nil)
	_ TokenStrategy = (*QueryParamStrategy)(nil)
)
