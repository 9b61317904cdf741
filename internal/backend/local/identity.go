package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"todo/internal/service"
	"todo/internal/session"
)

const (
	// Backend is the name recorded in session files issued here.
	Backend = "local"

	// SessionTTL is how long a local session token stays valid.
	SessionTTL = 30 * 24 * time.Hour

	issuer = "todo-local"

	// minPasswordLength mirrors the hosted provider's rule.
	minPasswordLength = 6
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Identity implements service.Identity with bcrypt-hashed accounts and HS256 session tokens.
type Identity struct {
	session.Hub

	store       *Store
	secret      []byte
	sessionPath string
	now         func() time.Time
}

// NewIdentity creates the local identity service and restores a saved session, if any.
// An expired, foreign or tampered session file is discarded.
// If secret is empty the store's generated key is used.
func NewIdentity(ctx context.Context, store *Store, secret, sessionPath string) (*Identity, error) {
	id := &Identity{store: store, sessionPath: sessionPath, now: time.Now}
	if secret != "" {
		id.secret = []byte(secret)
	} else {
		key, err := store.Secret(ctx)
		if err != nil {
			return nil, err
		}
		id.secret = key
	}

	data, err := session.Load(sessionPath)
	if err != nil {
		return nil, err
	}
	if data == nil || data.Backend != Backend {
		return id, nil
	}
	acct, err := id.verify(ctx, data.IDToken)
	if err != nil {
		_ = session.Remove(sessionPath)
		return id, nil
	}
	id.Publish(&acct)
	return id, nil
}

// CreateUser registers a new account and signs it in.
func (i *Identity) CreateUser(ctx context.Context, creds service.Credentials) (service.Account, error) {
	creds = creds.Normalize()
	if len(creds.Password) < minPasswordLength {
		return service.Account{}, service.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), bcrypt.DefaultCost)
	if err != nil {
		return service.Account{}, fmt.Errorf("hash password: %w", err)
	}

	acct := service.Account{ID: uuid.NewString(), Email: creds.Email}
	_, err = i.store.db.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		acct.ID, acct.Email, string(hash), toMillis(i.now()))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return service.Account{}, service.ErrEmailTaken
		}
		return service.Account{}, fmt.Errorf("create user: %w", err)
	}

	if err := i.startSession(acct); err != nil {
		return service.Account{}, err
	}
	return acct, nil
}

// SignIn checks the password against the stored hash.
// Unknown emails and wrong passwords produce the same error.
func (i *Identity) SignIn(ctx context.Context, creds service.Credentials) (service.Account, error) {
	creds = creds.Normalize()

	var acct service.Account
	var hash string
	err := i.store.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash FROM users WHERE email = ?", creds.Email).
		Scan(&acct.ID, &acct.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Account{}, service.ErrInvalidCredentials
	}
	if err != nil {
		return service.Account{}, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(creds.Password)) != nil {
		return service.Account{}, service.ErrInvalidCredentials
	}

	if err := i.startSession(acct); err != nil {
		return service.Account{}, err
	}
	return acct, nil
}

// SignOut removes the session file and notifies subscribers.
func (i *Identity) SignOut(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := session.Remove(i.sessionPath); err != nil {
		return err
	}
	i.Publish(nil)
	return nil
}

func (i *Identity) startSession(acct service.Account) error {
	token, expiry, err := i.issue(acct)
	if err != nil {
		return err
	}
	data := &session.Data{
		Backend: Backend,
		UserID:  acct.ID,
		Email:   acct.Email,
		IDToken: token,
		Expiry:  expiry,
	}
	if err := session.Save(i.sessionPath, data); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	i.Publish(&acct)
	return nil
}

func (i *Identity) issue(acct service.Account) (string, time.Time, error) {
	now := i.now().UTC()
	expiry := now.Add(SessionTTL)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   acct.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
		Email: acct.Email,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return token, expiry, nil
}

// verify checks the token signature and expiry and that the account still exists.
func (i *Identity) verify(ctx context.Context, token string) (service.Account, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return service.Account{}, fmt.Errorf("%w: %v", service.ErrUnauthenticated, err)
	}

	var acct service.Account
	err = i.store.db.QueryRowContext(ctx, "SELECT id, email FROM users WHERE id = ?", claims.Subject).
		Scan(&acct.ID, &acct.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return service.Account{}, service.ErrUnauthenticated
	}
	if err != nil {
		return service.Account{}, fmt.Errorf("look up user: %w", err)
	}
	return acct, nil
}
