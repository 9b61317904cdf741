// Package firebase implements service.Identity and service.Documents against
// Firebase Authentication (Identity Toolkit) and Cloud Firestore REST APIs.
package firebase

import (
	"context"
	"fmt"
	"time"

	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	"todo/internal/service"
	"todo/internal/session"
)

// Backend is the name recorded in session files issued here.
const Backend = "firebase"

// Identity implements service.Identity with email/password accounts.
type Identity struct {
	session.Hub

	svc     *identitytoolkit.Service
	tokens  *tokenStore
	timeout time.Duration
}

func newIdentity(ctx context.Context, opts Options, tokens *tokenStore) (*Identity, error) {
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.IdentityEndpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.IdentityEndpoint))
	}
	svc, err := identitytoolkit.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity service: %w", err)
	}

	id := &Identity{svc: svc, tokens: tokens, timeout: opts.Timeout}
	tokens.onRevoked = func() { id.Publish(nil) }

	data, err := session.Load(tokens.path)
	if err != nil {
		return nil, err
	}
	if data != nil && data.Backend == Backend {
		tokens.mu.Lock()
		tokens.data = data
		tokens.mu.Unlock()
		id.Publish(data.Account())
	}
	return id, nil
}

// CreateUser registers the account, then signs in to obtain tokens.
func (i *Identity) CreateUser(ctx context.Context, creds service.Credentials) (service.Account, error) {
	creds = creds.Normalize()

	callCtx, cancel := i.withTimeout(ctx)
	_, err := i.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    creds.Email,
		Password: creds.Password,
	}).Context(callCtx).Do()
	cancel()
	if err != nil {
		return service.Account{}, wrapError(err)
	}

	return i.SignIn(ctx, creds)
}

// SignIn verifies the password and stores the returned tokens.
func (i *Identity) SignIn(ctx context.Context, creds service.Credentials) (service.Account, error) {
	creds = creds.Normalize()

	ctx, cancel := i.withTimeout(ctx)
	defer cancel()

	resp, err := i.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             creds.Email,
		Password:          creds.Password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return service.Account{}, wrapError(err)
	}
	if resp.LocalId == "" || resp.IdToken == "" {
		return service.Account{}, fmt.Errorf("sign-in response missing account or token")
	}

	acct := service.Account{ID: resp.LocalId, Email: resp.Email}
	if acct.Email == "" {
		acct.Email = creds.Email
	}
	data := &session.Data{
		Backend:      Backend,
		UserID:       acct.ID,
		Email:        acct.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		Expiry:       tokenExpiry(resp.IdToken, time.Time{}),
	}
	if err := i.tokens.set(data); err != nil {
		return service.Account{}, fmt.Errorf("save session: %w", err)
	}
	i.Publish(&acct)
	return acct, nil
}

// SignOut forgets the tokens locally. Firebase ID tokens cannot be revoked client-side.
func (i *Identity) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := i.tokens.set(nil); err != nil {
		return err
	}
	i.Publish(nil)
	return nil
}

func (i *Identity) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if i.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, i.timeout)
}
