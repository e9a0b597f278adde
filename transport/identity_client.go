package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-trust/auth"
	"github.com/goliatone/go-trust/core"
)

const identityAPIPrefix = "_matrix/identity/v2"

// IdentityClient speaks the identity-server v2 REST API. Authenticated
// calls carry the access token per the configured signing strategy, a
// bearer Authorization header by default.
type IdentityClient struct {
	rest   restClient
	signer auth.TokenStrategy
}

func NewIdentityClient(client HTTPDoer) *IdentityClient {
	return &IdentityClient{
		rest:   newRESTClient(client, "identity"),
		signer: auth.NewBearerHeaderStrategy(),
	}
}

// NewIdentityClientWithSigner overrides how the access token is attached,
// for identity servers fronted by gateways with bespoke auth placement.
func NewIdentityClientWithSigner(client HTTPDoer, signer auth.TokenStrategy) *IdentityClient {
	c := NewIdentityClient(client)
	if signer != nil {
		c.signer = signer
	}
	return c
}

type identityRegisterRequest struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	MatrixServerName string `json:"matrix_server_name,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
}

type identityRegisterResponse struct {
	Token string `json:"token"`
}

func (c *IdentityClient) Register(ctx context.Context, baseURL string, openID core.OpenIDToken) (string, error) {
	if err := openID.Validate(); err != nil {
		return "", err
	}
	var out identityRegisterResponse
	err := c.rest.doJSON(ctx, restRequest{
		Method: http.MethodPost,
		URL:    joinURL(baseURL, identityAPIPrefix, "account/register"),
		Body: identityRegisterRequest{
			AccessToken:      openID.AccessToken,
			TokenType:        openID.TokenType,
			MatrixServerName: openID.MatrixServerName,
			ExpiresIn:        openID.ExpiresIn,
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", fmt.Errorf("transport: identity server returned an empty token")
	}
	return out.Token, nil
}

func (c *IdentityClient) Account(ctx context.Context, baseURL, token string) error {
	req := restRequest{
		Method: http.MethodGet,
		URL:    joinURL(baseURL, identityAPIPrefix, "account"),
	}
	c.sign(&req, token)
	return c.rest.doJSON(ctx, req, nil)
}

type identityLookupRequest struct {
	Addresses []string `json:"addresses"`
	Algorithm string   `json:"algorithm"`
	Pepper    string   `json:"pepper"`
}

type identityLookupResponse struct {
	Mappings map[string]string `json:"mappings"`
}

// Lookup performs a bulk three-pid lookup using the unhashed v2 form:
// each address is encoded as "<address> <medium>".
func (c *IdentityClient) Lookup(ctx context.Context, baseURL, token string, pids []core.ThreePid) ([]core.FoundThreePid, error) {
	addresses := make([]string, 0, len(pids))
	for _, pid := range pids {
		addresses = append(addresses, lookupAddress(pid))
	}
	req := restRequest{
		Method: http.MethodPost,
		URL:    joinURL(baseURL, identityAPIPrefix, "lookup"),
		Body: identityLookupRequest{
			Addresses: addresses,
			Algorithm: "none",
		},
	}
	c.sign(&req, token)

	var out identityLookupResponse
	if err := c.rest.doJSON(ctx, req, &out); err != nil {
		return nil, err
	}

	found := make([]core.FoundThreePid, 0, len(out.Mappings))
	for _, pid := range pids {
		userID, ok := out.Mappings[lookupAddress(pid)]
		if !ok || strings.TrimSpace(userID) == "" {
			continue
		}
		found = append(found, core.FoundThreePid{ThreePid: pid, UserID: userID})
	}
	return found, nil
}

func lookupAddress(pid core.ThreePid) string {
	address := strings.TrimSpace(pid.Address)
	if strings.EqualFold(pid.Medium, core.MediumEmail) {
		address = strings.ToLower(address)
	}
	return address + " " + strings.ToLower(strings.TrimSpace(pid.Medium))
}

type identityRequestTokenRequest struct {
	ClientSecret string `json:"client_secret"`
	Email        string `json:"email,omitempty"`
	PhoneNumber  string `json:"phone_number,omitempty"`
	Country      string `json:"country,omitempty"`
	SendAttempt  int    `json:"send_attempt"`
}

type identityRequestTokenResponse struct {
	SID string `json:"sid"`
}

// RequestBind starts (or re-sends) ownership validation for a three-pid
// and returns the session id.
func (c *IdentityClient) RequestBind(ctx context.Context, baseURL, token string, binding core.PendingBinding) (string, error) {
	body := identityRequestTokenRequest{
		ClientSecret: binding.ClientSecret,
		SendAttempt:  binding.SendAttempt,
	}
	endpoint := "validate/email/requestToken"
	if strings.EqualFold(binding.ThreePid.Medium, core.MediumMSISDN) {
		endpoint = "validate/msisdn/requestToken"
		body.PhoneNumber = binding.ThreePid.Address
	} else {
		body.Email = binding.ThreePid.Address
	}

	req := restRequest{
		Method: http.MethodPost,
		URL:    joinURL(baseURL, identityAPIPrefix, endpoint),
		Body:   body,
	}
	c.sign(&req, token)

	var out identityRequestTokenResponse
	if err := c.rest.doJSON(ctx, req, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.SID) == "" {
		return "", fmt.Errorf("transport: identity server returned an empty session id")
	}
	return out.SID, nil
}

type identityBindRequest struct {
	SID          string `json:"sid"`
	ClientSecret string `json:"client_secret"`
}

func (c *IdentityClient) FinalizeBind(ctx context.Context, baseURL, token string, binding core.PendingBinding) error {
	req := restRequest{
		Method: http.MethodPost,
		URL:    joinURL(baseURL, identityAPIPrefix, "3pid/bind"),
		Body: identityBindRequest{
			SID:          binding.SID,
			ClientSecret: binding.ClientSecret,
		},
	}
	c.sign(&req, token)
	return c.rest.doJSON(ctx, req, nil)
}

type identityUnbindRequest struct {
	Medium  string `json:"medium"`
	Address string `json:"address"`
}

func (c *IdentityClient) Unbind(ctx context.Context, baseURL, token string, pid core.ThreePid) error {
	req := restRequest{
		Method: http.MethodPost,
		URL:    joinURL(baseURL, identityAPIPrefix, "3pid/unbind"),
		Body: identityUnbindRequest{
			Medium:  strings.ToLower(strings.TrimSpace(pid.Medium)),
			Address: strings.TrimSpace(pid.Address),
		},
	}
	c.sign(&req, token)
	return c.rest.doJSON(ctx, req, nil)
}

func (c *IdentityClient) Logout(ctx context.Context, baseURL, token string) error {
	req := restRequest{
		Method: http.MethodPost,
		URL:    joinURL(baseURL, identityAPIPrefix, "account/logout"),
	}
	c.sign(&req, token)
	return c.rest.doJSON(ctx, req, nil)
}

// Ping checks the identity server advertises the v2 API.
func (c *IdentityClient) Ping(ctx context.Context, baseURL string) error {
	return c.rest.doJSON(ctx, restRequest{
		Method: http.MethodGet,
		URL:    joinURL(baseURL, identityAPIPrefix),
	}, nil)
}

func (c *IdentityClient) sign(req *restRequest, token string) {
	placement := c.signer.Place(token)
	if len(placement.Headers) > 0 {
		if req.Headers == nil {
			req.Headers = map[string]string{}
		}
		for key, value := range placement.Headers {
			req.Headers[key] = value
		}
	}
	if len(placement.Query) > 0 {
		if req.Query == nil {
			req.Query = map[string]string{}
		}
		for key, value := range placement.Query {
			req.Query[key] = value
		}
	}
}

var _ core.IdentityAPI = (*IdentityClient)(nil)
