// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"todo/internal/service"
	"todo/internal/session"
)

// FakeIdentity is an in-memory implementation of service.Identity for testing.
type FakeIdentity struct {
	session.Hub

	mu       sync.Mutex
	accounts map[string]fakeAccount // email -> account
	nextID   int

	// Error injection for testing
	CreateUserErr error
	SignInErr     error
	SignOutErr    error

	// Call counters
	SignInCalls  int
	SignOutCalls int
}

type fakeAccount struct {
	id       string
	password string
}

// NewFakeIdentity creates a new FakeIdentity with no accounts and nobody signed in.
func NewFakeIdentity() *FakeIdentity {
	return &FakeIdentity{accounts: make(map[string]fakeAccount)}
}

// AddAccount registers an account without signing it in and returns its ID.
func (f *FakeIdentity) AddAccount(email, password string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(email, password)
}

func (f *FakeIdentity) addLocked(email, password string) string {
	f.nextID++
	id := fmt.Sprintf("user-%d", f.nextID)
	f.accounts[strings.ToLower(email)] = fakeAccount{id: id, password: password}
	return id
}

// SetCurrent publishes acct as the signed-in account, as a restored session would.
func (f *FakeIdentity) SetCurrent(acct *service.Account) {
	f.Publish(acct)
}

// CreateUser implements service.Identity.
func (f *FakeIdentity) CreateUser(ctx context.Context, creds service.Credentials) (service.Account, error) {
	if f.CreateUserErr != nil {
		return service.Account{}, f.CreateUserErr
	}
	f.mu.Lock()
	key := strings.ToLower(creds.Email)
	if _, ok := f.accounts[key]; ok {
		f.mu.Unlock()
		return service.Account{}, service.ErrEmailTaken
	}
	id := f.addLocked(creds.Email, creds.Password)
	f.mu.Unlock()

	acct := service.Account{ID: id, Email: creds.Email}
	f.Publish(&acct)
	return acct, nil
}

// SignIn implements service.Identity.
func (f *FakeIdentity) SignIn(ctx context.Context, creds service.Credentials) (service.Account, error) {
	f.mu.Lock()
	f.SignInCalls++
	if f.SignInErr != nil {
		f.mu.Unlock()
		return service.Account{}, f.SignInErr
	}
	a, ok := f.accounts[strings.ToLower(creds.Email)]
	f.mu.Unlock()
	if !ok || a.password != creds.Password {
		return service.Account{}, service.ErrInvalidCredentials
	}

	acct := service.Account{ID: a.id, Email: creds.Email}
	f.Publish(&acct)
	return acct, nil
}

// SignOut implements service.Identity.
func (f *FakeIdentity) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.SignOutCalls++
	err := f.SignOutErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.Publish(nil)
	return nil
}

// FakeDocuments is an in-memory implementation of service.Documents for testing.
type FakeDocuments struct {
	mu      sync.RWMutex
	records map[string]map[string]service.Fields // collection -> id -> fields
	order   map[string][]string                  // collection -> ids in insert order
	nextID  int

	// Error injection for testing
	QueryErr  error
	InsertErr error
	UpdateErr error
	DeleteErr error

	// Block, when set, is received from before each call returns. Tests use it
	// to hold a request in flight.
	Block chan struct{}
}

// NewFakeDocuments creates an empty FakeDocuments.
func NewFakeDocuments() *FakeDocuments {
	return &FakeDocuments{
		records: make(map[string]map[string]service.Fields),
		order:   make(map[string][]string),
	}
}

// Put stores a record with a fixed ID, replacing any existing one.
func (f *FakeDocuments) Put(collection, id string, fields service.Fields) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putLocked(collection, id, fields)
}

func (f *FakeDocuments) putLocked(collection, id string, fields service.Fields) {
	if f.records[collection] == nil {
		f.records[collection] = make(map[string]service.Fields)
	}
	if _, exists := f.records[collection][id]; !exists {
		f.order[collection] = append(f.order[collection], id)
	}
	f.records[collection][id] = copyFields(fields)
}

// Get returns a copy of a stored record.
func (f *FakeDocuments) Get(collection, id string) (service.Fields, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	fields, ok := f.records[collection][id]
	return copyFields(fields), ok
}

// Count returns the number of records in a collection.
func (f *FakeDocuments) Count(collection string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.records[collection])
}

func (f *FakeDocuments) wait(ctx context.Context) error {
	if f.Block == nil {
		return nil
	}
	select {
	case <-f.Block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Query implements service.Documents.
func (f *FakeDocuments) Query(ctx context.Context, collection string, filter service.Filter) ([]service.Record, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	var result []service.Record
	for _, id := range f.order[collection] {
		fields, ok := f.records[collection][id]
		if !ok {
			continue
		}
		if filter.Field != "" && fields[filter.Field] != filter.Value {
			continue
		}
		result = append(result, service.Record{ID: id, Fields: copyFields(fields)})
	}
	return result, nil
}

// Insert implements service.Documents.
func (f *FakeDocuments) Insert(ctx context.Context, collection string, fields service.Fields) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", err
	}
	if f.InsertErr != nil {
		return "", f.InsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := fmt.Sprintf("doc-%d", f.nextID)
	f.putLocked(collection, id, fields)
	return id, nil
}

// UpdateFields implements service.Documents.
func (f *FakeDocuments) UpdateFields(ctx context.Context, collection, id string, fields service.Fields) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	existing, ok := f.records[collection][id]
	if !ok {
		return service.ErrNotFound
	}
	for k, v := range fields {
		existing[k] = v
	}
	return nil
}

// Delete implements service.Documents.
func (f *FakeDocuments) Delete(ctx context.Context, collection, id string) error {
	if err := f.wait(ctx); err != nil {
		return err
	}
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.records[collection][id]; !ok {
		return service.ErrNotFound
	}
	delete(f.records[collection], id)
	ids := f.order[collection][:0]
	for _, other := range f.order[collection] {
		if other != id {
			ids = append(ids, other)
		}
	}
	f.order[collection] = ids
	return nil
}

// IDs returns the record IDs of a collection, sorted.
func (f *FakeDocuments) IDs(collection string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ids := make([]string, 0, len(f.records[collection]))
	for id := range f.records[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func copyFields(in service.Fields) service.Fields {
	if in == nil {
		return nil
	}
	out := make(service.Fields, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
