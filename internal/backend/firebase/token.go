package firebase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"todo/internal/service"
	"todo/internal/session"
)

// DefaultTokenEndpoint exchanges refresh tokens for fresh ID tokens.
const DefaultTokenEndpoint = "https://securetoken.googleapis.com/v1/token"

// idTokenLifetime is assumed when an ID token carries no readable exp claim.
const idTokenLifetime = time.Hour

// tokenStore holds the signed-in session and hands out ID tokens,
// refreshing them through the secure token endpoint and persisting rotations.
type tokenStore struct {
	mu   sync.Mutex
	path string
	conf *oauth2.Config
	ctx  context.Context // carries the oauth2.HTTPClient used for refreshes
	data *session.Data

	// onRevoked runs (outside the lock) when the refresh token is rejected.
	onRevoked func()
}

func newTokenStore(ctx context.Context, path, tokenURL string) *tokenStore {
	return &tokenStore{
		path: path,
		ctx:  ctx,
		conf: &oauth2.Config{
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// set replaces the session and persists it. A nil session removes the file.
func (s *tokenStore) set(d *session.Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
	if d == nil {
		return session.Remove(s.path)
	}
	return session.Save(s.path, d)
}

// Token implements oauth2.TokenSource. The access token is the Firebase ID token.
func (s *tokenStore) Token() (*oauth2.Token, error) {
	tok, revoked, err := s.token()
	if revoked && s.onRevoked != nil {
		s.onRevoked()
	}
	return tok, err
}

func (s *tokenStore) token() (*oauth2.Token, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return nil, false, service.ErrUnauthenticated
	}
	current := &oauth2.Token{
		AccessToken:  s.data.IDToken,
		TokenType:    "Bearer",
		RefreshToken: s.data.RefreshToken,
		Expiry:       s.data.Expiry,
	}
	if current.Valid() {
		return current, false, nil
	}
	if current.RefreshToken == "" {
		return nil, false, fmt.Errorf("%w: session expired (run: todo login)", service.ErrUnauthenticated)
	}

	fresh, err := s.conf.TokenSource(s.ctx, current).Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil && rerr.Response.StatusCode < 500 {
			s.data = nil
			_ = session.Remove(s.path)
			return nil, true, fmt.Errorf("%w: session expired (run: todo login)", service.ErrUnauthenticated)
		}
		return nil, false, err
	}

	idToken := fresh.AccessToken
	if v, ok := fresh.Extra("id_token").(string); ok && v != "" {
		idToken = v
	}
	next := *s.data
	next.IDToken = idToken
	if fresh.RefreshToken != "" {
		next.RefreshToken = fresh.RefreshToken
	}
	next.Expiry = tokenExpiry(idToken, fresh.Expiry)
	if err := session.Save(s.path, &next); err != nil {
		return nil, false, fmt.Errorf("save session: %w", err)
	}
	s.data = &next

	return &oauth2.Token{AccessToken: idToken, TokenType: "Bearer", Expiry: next.Expiry}, false, nil
}

// tokenExpiry reads the exp claim of an ID token without verifying it; the
// provider verifies tokens on every call.
func tokenExpiry(idToken string, fallback time.Time) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Now().Add(idTokenLifetime).UTC()
}
