package provision

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stackmesh/appsyncctl/internal/compiler"
)

// ProbeOIDCIssuers fetches the discovery document of every OPENID_CONNECT
// issuer in the composed auth configuration. An unreachable or misconfigured
// issuer fails here instead of surfacing as opaque auth failures after the
// API is live.
func ProbeOIDCIssuers(ctx context.Context, auth compiler.AuthConfig) error {
	for _, block := range authBlocks(auth) {
		if block.Type != compiler.AuthOIDC || block.OpenIDConnect == nil {
			continue
		}
		if _, err := oidc.NewProvider(ctx, block.OpenIDConnect.Issuer); err != nil {
			return fmt.Errorf("OIDC issuer %s is not reachable: %w", block.OpenIDConnect.Issuer, err)
		}
	}
	return nil
}

// authBlocks flattens primary and additional blocks for iteration.
func authBlocks(auth compiler.AuthConfig) []compiler.AuthBlock {
	blocks := make([]compiler.AuthBlock, 0, 1+len(auth.Additional))
	if auth.Primary != nil {
		blocks = append(blocks, *auth.Primary)
	}
	return append(blocks, auth.Additional...)
}
