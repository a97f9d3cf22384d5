package httpclient

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/compute/metadata"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/jwt"
)

// JWTBearerToken fetches a fresh access token for a JWT-bearer consumer
// (e.g. a Google service-account key configured on the consumer object),
// per §4.5's "JWT bearer" auth mode.
func JWTBearerToken(ctx context.Context, cfg *jwt.Config) (*oauth2.Token, error) {
	ts := cfg.TokenSource(ctx)
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("httpclient: jwt bearer token: %w", err)
	}
	return tok, nil
}

// GCPInstanceToken fetches an access token for the given scope from the GCP
// instance metadata service, for consumers running on GCE without a
// service-account key on file (§4.5's "GCE metadata" auth mode).
func GCPInstanceToken(ctx context.Context, scope string) (string, error) {
	c := metadata.NewClient(MetadataClient())
	path := "instance/service-accounts/default/token"
	if scope != "" {
		path += "?scopes=" + scope
	}
	tok, err := c.GetWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("httpclient: gcp instance metadata token: %w", err)
	}
	return tok, nil
}

// OnGCE reports whether the agent is running on a GCE instance, used to
// decide which of the two token-acquisition paths above applies.
func OnGCE(ctx context.Context) bool {
	return metadata.NewClient(MetadataClient()).OnGCEWithContext(ctx)
}

// ApplyBearer sets the Authorization header on req using token.
func ApplyBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}
