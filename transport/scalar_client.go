package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-trust/auth"
	"github.com/goliatone/go-trust/core"
)

// ScalarClient speaks the integration-manager REST API. The scalar token
// rides as a query parameter on authenticated calls.
type ScalarClient struct {
	rest   restClient
	signer auth.TokenStrategy
}

func NewScalarClient(client HTTPDoer) *ScalarClient {
	return &ScalarClient{
		rest:   newRESTClient(client, "scalar"),
		signer: auth.NewQueryParamStrategy("scalar_token"),
	}
}

type scalarRegisterRequest struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type,omitempty"`
	MatrixServerName string `json:"matrix_server_name,omitempty"`
	ExpiresIn        int64  `json:"expires_in,omitempty"`
}

type scalarRegisterResponse struct {
	ScalarToken string `json:"scalar_token"`
}

func (c *ScalarClient) Register(ctx context.Context, apiURL string, openID core.OpenIDToken, apiVersion string) (string, error) {
	if err := openID.Validate(); err != nil {
		return "", err
	}
	var out scalarRegisterResponse
	err := c.rest.doJSON(ctx, restRequest{
		Method: http.MethodPost,
		URL:    joinURL(apiURL, "register"),
		Query:  map[string]string{"v": apiVersion},
		Body: scalarRegisterRequest{
			AccessToken:      openID.AccessToken,
			TokenType:        openID.TokenType,
			MatrixServerName: openID.MatrixServerName,
			ExpiresIn:        openID.ExpiresIn,
		},
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.ScalarToken) == "" {
		return "", fmt.Errorf("transport: integration manager returned an empty scalar token")
	}
	return out.ScalarToken, nil
}

// ValidateToken checks the stored scalar token against the account
// endpoint. Integration managers reject stale tokens with a plain 403, so
// the request is marked token specific.
func (c *ScalarClient) ValidateToken(ctx context.Context, apiURL, token, apiVersion string) error {
	query := map[string]string{"v": apiVersion}
	for key, value := range c.signer.Place(token).Query {
		query[key] = value
	}
	return c.rest.doJSON(ctx, restRequest{
		Method:           http.MethodGet,
		URL:              joinURL(apiURL, "account"),
		Query:            query,
		TokenSpecific403: true,
	}, nil)
}

var _ core.ScalarAPI = (*ScalarClient)(nil)
