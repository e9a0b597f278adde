package transport

import (
	"context"
	"net/http"

	"github.com/goliatone/go-trust/core"
)

// HomeServerProbe answers reachability checks by hitting the home server's
// unauthenticated versions endpoint.
type HomeServerProbe struct {
	rest          restClient
	homeServerURL string
}

func NewHomeServerProbe(client HTTPDoer, homeServerURL string) *HomeServerProbe {
	return &HomeServerProbe{
		rest:          newRESTClient(client, "homeserver"),
		homeServerURL: homeServerURL,
	}
}

func (p *HomeServerProbe) Ping(ctx context.Context) error {
	return p.rest.doJSON(ctx, restRequest{
		Method: http.MethodGet,
		URL:    joinURL(p.homeServerURL, "_matrix/client/versions"),
	}, nil)
}

var _ core.ReachabilityProbe = (*HomeServerProbe)(nil)
