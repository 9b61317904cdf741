// Package service defines the backend-agnostic interfaces for identity and document operations.
package service

import "context"

// Identity defines the interface for identity provider operations.
// All Firebase Auth (or local account) calls go through this interface.
// The state layer never imports a provider SDK directly.
type Identity interface {
	// CreateUser registers a new account and signs it in.
	CreateUser(ctx context.Context, creds Credentials) (Account, error)

	// SignIn authenticates an existing account.
	SignIn(ctx context.Context, creds Credentials) (Account, error)

	// SignOut forgets the current account. Signing out while signed out is not an error.
	SignOut(ctx context.Context) error

	// Subscribe registers handler for auth-state changes.
	// The handler is called once with the current state (nil when signed out),
	// then after every sign-in, registration and sign-out.
	// The returned function releases the subscription; it is safe to call more than once.
	Subscribe(handler func(*Account)) (unsubscribe func())
}

// Documents defines the interface for document store operations.
// Records are schemaless; callers decode them into typed values.
type Documents interface {
	// Query returns all records in collection whose field equals the filter value.
	// Results are in store order.
	Query(ctx context.Context, collection string, filter Filter) ([]Record, error)

	// Insert creates a record and returns the store-assigned ID.
	Insert(ctx context.Context, collection string, fields Fields) (string, error)

	// UpdateFields overwrites only the given fields of an existing record.
	// Returns ErrNotFound if the record does not exist.
	UpdateFields(ctx context.Context, collection, id string, fields Fields) error

	// Delete removes a record by ID.
	Delete(ctx context.Context, collection, id string) error
}

// Backend bundles the two collaborators a session needs.
type Backend struct {
	Identity  Identity
	Documents Documents

	// Close releases backend resources (database handles, idle connections). May be nil.
	Close func() error
}
