package trust

import (
	"github.com/goliatone/go-trust/auth"
	"github.com/goliatone/go-trust/core"
	sqlstore "github.com/goliatone/go-trust/store/sql"
	"github.com/goliatone/go-trust/transport"
)

// Root-level constructors so embedders can wire a session without importing
// the transport and store packages directly.

func IdentityClient(client transport.HTTPDoer) core.IdentityAPI {
	return transport.NewIdentityClient(client)
}

func IdentityClientWithSigner(client transport.HTTPDoer, signer auth.TokenStrategy) core.IdentityAPI {
	return transport.NewIdentityClientWithSigner(client, signer)
}

func ScalarClient(client transport.HTTPDoer) core.ScalarAPI {
	return transport.NewScalarClient(client)
}

func HomeServerProbe(client transport.HTTPDoer, homeServerURL string) core.ReachabilityProbe {
	return transport.NewHomeServerProbe(client, homeServerURL)
}

func MemoryTokenStore() core.TokenStore {
	return core.NewMemoryTokenStore()
}

// SQLRepositoryFactory builds the bun-backed store factory; pass it to
// NewManager via WithRepositoryFactory together with a persistence client.
func SQLRepositoryFactory() core.RepositoryStoreFactory {
	return sqlstore.NewRepositoryFactory()
}
