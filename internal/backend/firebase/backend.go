package firebase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Options configures the Firebase backend.
type Options struct {
	APIKey    string
	ProjectID string
	Database  string

	// SessionPath is the session file shared with the rest of the application.
	SessionPath string

	// Timeout bounds each remote call.
	Timeout time.Duration

	// HTTPClient is the base client for token refreshes and Firestore calls. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Endpoint overrides, used against emulators and test servers.
	IdentityEndpoint  string
	TokenEndpoint     string
	FirestoreEndpoint string
}

// New creates the identity and document services sharing one token store.
func New(ctx context.Context, opts Options) (*Identity, *Firestore, error) {
	if opts.APIKey == "" || opts.ProjectID == "" {
		return nil, nil, fmt.Errorf("firebase api key and project id are required")
	}

	base := opts.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	// Refreshes outlive any single request, so they get their own context.
	refreshCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	tokenURL := opts.TokenEndpoint
	if tokenURL == "" {
		tokenURL = DefaultTokenEndpoint
	}
	tokenURL += "?key=" + url.QueryEscape(opts.APIKey)
	tokens := newTokenStore(refreshCtx, opts.SessionPath, tokenURL)

	identity, err := newIdentity(ctx, opts, tokens)
	if err != nil {
		return nil, nil, err
	}

	// tokens caches and rotates by itself; oauth2.NewClient would add a second cache
	// that outlives sign-out.
	authorized := &http.Client{Transport: &oauth2.Transport{Source: tokens, Base: base.Transport}}
	docs, err := newFirestore(ctx, opts, authorized)
	if err != nil {
		return nil, nil, err
	}
	return identity, docs, nil
}
