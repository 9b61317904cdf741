package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"todo/internal/logging"
	"todo/internal/service"
	"todo/internal/task"
)

// ErrValidation marks form input rejected before any remote call.
var ErrValidation = errors.New("invalid input")

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 6

// State is a snapshot of both slices.
type State struct {
	Identity Identity
	Tasks    Tasks
}

// Store owns the application state.
//
// The store has a single writer: Update and every action method must be called from
// the same goroutine (the bubbletea event loop, or the command goroutine in CLI mode).
// Actions never block. They mark the slice as loading and return a tea.Cmd that performs
// the remote call and yields a settlement message for Update.
type Store struct {
	identity service.Identity
	docs     service.Documents
	logger   *log.Logger
	now      func() time.Time

	// ctx bounds every request issued by the store; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	state  State
	closed bool

	observations chan *service.Account
	unsubscribe  func()
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for request lifecycle events.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for client-side timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a store bound to ctx. Cancelling ctx has the same effect on in-flight
// requests as Close, but only Close releases the auth subscription.
func New(ctx context.Context, identity service.Identity, docs service.Documents, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(ctx)
	s := &Store{
		identity: identity,
		docs:     docs,
		logger:   logging.Discard(),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot. The returned Items slice is a copy.
func (s *Store) State() State {
	st := s.state
	st.Tasks.Items = append([]task.Task(nil), s.state.Tasks.Items...)
	if sess := s.state.Identity.Session; sess != nil {
		c := *sess
		st.Identity.Session = &c
	}
	return st
}

// Identity returns the identity slice.
func (s *Store) Identity() Identity { return s.State().Identity }

// Tasks returns the task slice.
func (s *Store) Tasks() Tasks { return s.State().Tasks }

// Route applies the route guard to the current identity slice.
func (s *Store) Route() Route { return Guard(s.state.Identity) }

// Closed reports whether Close has been called.
func (s *Store) Closed() bool { return s.closed }

// Close cancels in-flight requests, releases the auth subscription and makes the
// store ignore any settlement that arrives afterwards. It is idempotent.
func (s *Store) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Observe subscribes to auth-state changes (once) and returns a command that waits
// for the next observation. Update re-arms the wait after every SessionObserved.
func (s *Store) Observe() tea.Cmd {
	if s.closed {
		return nil
	}
	if s.unsubscribe == nil {
		ch := make(chan *service.Account, 1)
		s.observations = ch
		s.unsubscribe = s.identity.Subscribe(func(acct *service.Account) {
			// Only the latest auth state matters: replace an undelivered one.
			for {
				select {
				case ch <- acct:
					return
				default:
				}
				select {
				case <-ch:
				default:
				}
			}
		})
	}
	return s.waitObservation()
}

func (s *Store) waitObservation() tea.Cmd {
	ch, ctx := s.observations, s.ctx
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case acct := <-ch:
			return SessionObserved{Session: sessionFrom(acct)}
		case <-ctx.Done():
			return nil
		}
	}
}

// Initialize subscribes and applies the first observation on the calling goroutine.
// The command surface uses it in place of an event loop.
func (s *Store) Initialize() {
	s.Settle(s.Observe())
}

// Settle runs cmd on the calling goroutine, applies the message it yields and
// returns the settlement's error. Follow-up commands returned by Update are not run.
func (s *Store) Settle(cmd tea.Cmd) error {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if msg == nil {
		return nil
	}
	s.Update(msg)
	return settlementErr(msg)
}

func settlementErr(msg tea.Msg) error {
	switch msg := msg.(type) {
	case SessionSettled:
		return msg.Err
	case SessionEnded:
		return msg.Err
	case TasksLoaded:
		return msg.Err
	case TaskCreated:
		return msg.Err
	case TaskUpdated:
		return msg.Err
	case TaskDeleted:
		return msg.Err
	}
	return nil
}

// BeginSession signs in with the given credentials.
func (s *Store) BeginSession(creds service.Credentials) (tea.Cmd, error) {
	return s.startSession(OpSignIn, creds)
}

// CreateSession registers a new account and signs it in.
func (s *Store) CreateSession(creds service.Credentials) (tea.Cmd, error) {
	return s.startSession(OpRegister, creds)
}

func (s *Store) startSession(op SessionOp, creds service.Credentials) (tea.Cmd, error) {
	creds = creds.Normalize()
	if err := ValidateCredentials(creds, op == OpRegister); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, context.Canceled
	}

	s.state.Identity = s.state.Identity.pending()
	s.logger.Debug("request started", "action", op.String(), "email", creds.Email)

	ctx, identity := s.ctx, s.identity
	return func() tea.Msg {
		var acct service.Account
		var err error
		if op == OpRegister {
			acct, err = identity.CreateUser(ctx, creds)
		} else {
			acct, err = identity.SignIn(ctx, creds)
		}
		if err != nil {
			return SessionSettled{Op: op, Err: err}
		}
		return SessionSettled{Op: op, Session: sessionFrom(&acct)}
	}, nil
}

// EndSession signs out.
func (s *Store) EndSession() tea.Cmd {
	if s.closed {
		return nil
	}
	s.state.Identity = s.state.Identity.pending()
	s.logger.Debug("request started", "action", "auth/logout")

	ctx, identity := s.ctx, s.identity
	return func() tea.Msg {
		return SessionEnded{Err: identity.SignOut(ctx)}
	}
}

// LoadAll replaces the task list with every task owned by ownerID.
func (s *Store) LoadAll(ownerID string) tea.Cmd {
	if s.closed {
		return nil
	}
	s.state.Tasks = s.state.Tasks.pending()
	s.logger.Debug("request started", "action", "tasks/loadAll", "owner", ownerID)

	ctx, docs := s.ctx, s.docs
	return func() tea.Msg {
		recs, err := docs.Query(ctx, task.Collection, service.Filter{Field: task.FieldOwner, Value: ownerID})
		if err != nil {
			return TasksLoaded{OwnerID: ownerID, Err: err}
		}
		items, err := task.DecodeOwned(recs, ownerID)
		if err != nil {
			return TasksLoaded{OwnerID: ownerID, Err: err}
		}
		task.SortNewestFirst(items)
		return TasksLoaded{OwnerID: ownerID, Items: items}
	}
}

// Reload loads the signed-in account's tasks. It returns nil when nobody is signed in.
func (s *Store) Reload() tea.Cmd {
	id := s.state.Identity.SessionID()
	if id == "" {
		return nil
	}
	return s.LoadAll(id)
}

// CreateTask inserts a task for the signed-in account. The local list changes only
// after the insert succeeds.
func (s *Store) CreateTask(d task.Draft) (tea.Cmd, error) {
	d = d.Normalize()
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	owner := s.state.Identity.SessionID()
	if owner == "" {
		return nil, service.ErrUnauthenticated
	}
	if s.closed {
		return nil, context.Canceled
	}

	s.state.Tasks = s.state.Tasks.pending()
	s.logger.Debug("request started", "action", "tasks/create", "title", d.Title)

	now := service.Timestamp(s.now())
	ctx, docs := s.ctx, s.docs
	return func() tea.Msg {
		id, err := docs.Insert(ctx, task.Collection, task.Encode(d, owner, now))
		if err != nil {
			return TaskCreated{OwnerID: owner, Err: err}
		}
		return TaskCreated{OwnerID: owner, Task: task.Task{
			ID:          id,
			Title:       d.Title,
			Description: d.Description,
			Completed:   false,
			Priority:    d.Priority,
			CreatedAt:   &now,
			UpdatedAt:   &now,
			OwnerID:     owner,
		}}
	}, nil
}

// UpdateTask applies a partial update. The local copy is merged only after the
// remote update succeeds, and only the patched fields change.
func (s *Store) UpdateTask(id string, p task.Patch) (tea.Cmd, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: task id required", ErrValidation)
	}
	if p.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	owner := s.state.Identity.SessionID()
	if owner == "" {
		return nil, service.ErrUnauthenticated
	}
	if s.closed {
		return nil, context.Canceled
	}

	s.state.Tasks = s.state.Tasks.pending()
	s.logger.Debug("request started", "action", "tasks/update", "id", id)

	fields := task.EncodePatch(p, s.now())
	ctx, docs := s.ctx, s.docs
	return func() tea.Msg {
		if err := docs.UpdateFields(ctx, task.Collection, id, fields); err != nil {
			return TaskUpdated{OwnerID: owner, ID: id, Err: err}
		}
		return TaskUpdated{OwnerID: owner, ID: id, Patch: p}
	}, nil
}

// DeleteTask removes a task. The local copy is removed only after the remote delete succeeds.
func (s *Store) DeleteTask(id string) (tea.Cmd, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: task id required", ErrValidation)
	}
	owner := s.state.Identity.SessionID()
	if owner == "" {
		return nil, service.ErrUnauthenticated
	}
	if s.closed {
		return nil, context.Canceled
	}

	s.state.Tasks = s.state.Tasks.pending()
	s.logger.Debug("request started", "action", "tasks/delete", "id", id)

	ctx, docs := s.ctx, s.docs
	return func() tea.Msg {
		if err := docs.Delete(ctx, task.Collection, id); err != nil {
			return TaskDeleted{OwnerID: owner, ID: id, Err: err}
		}
		return TaskDeleted{OwnerID: owner, ID: id}
	}, nil
}

// ClearTasks empties the task slice.
func (s *Store) ClearTasks() {
	s.state.Tasks = Tasks{}
}

// Update applies a settlement message. It is the only place remote results reach
// the state. Messages arriving after Close are dropped. The returned command, if
// any, must be run by the caller's event loop.
func (s *Store) Update(msg tea.Msg) tea.Cmd {
	if s.closed {
		return nil
	}

	switch msg := msg.(type) {
	case SessionObserved:
		if msg.Session == nil {
			s.state.Identity = s.state.Identity.ObservedNone()
		} else {
			s.state.Identity = s.state.Identity.Observed(*msg.Session)
		}
		s.dropForeignTasks()
		s.logger.Debug("auth state observed", "user", s.state.Identity.SessionID())
		return s.waitObservation()

	case SessionSettled:
		s.state.Identity = s.state.Identity.settled(msg.Session, msg.Err)
		if msg.Err == nil {
			s.state.Identity.Initialized = true
			s.dropForeignTasks()
		}
		s.logSettled(msg.Op.String(), msg.Err)

	case SessionEnded:
		s.state.Identity = s.state.Identity.ended(msg.Err)
		if msg.Err == nil {
			s.ClearTasks()
		}
		s.logSettled("auth/logout", msg.Err)

	case TasksLoaded:
		if s.stale("tasks/loadAll", msg.OwnerID) {
			return nil
		}
		if msg.Err != nil {
			s.state.Tasks = s.state.Tasks.failed(msg.Err)
		} else {
			s.state.Tasks = s.state.Tasks.loaded(msg.OwnerID, msg.Items)
		}
		s.logSettled("tasks/loadAll", msg.Err)

	case TaskCreated:
		if s.stale("tasks/create", msg.OwnerID) {
			return nil
		}
		if msg.Err != nil {
			s.state.Tasks = s.state.Tasks.failed(msg.Err)
		} else {
			s.state.Tasks = s.state.Tasks.created(msg.Task)
		}
		s.logSettled("tasks/create", msg.Err)

	case TaskUpdated:
		if s.stale("tasks/update", msg.OwnerID) {
			return nil
		}
		if msg.Err != nil {
			s.state.Tasks = s.state.Tasks.failed(msg.Err)
		} else {
			s.state.Tasks = s.state.Tasks.updated(msg.ID, msg.Patch)
		}
		s.logSettled("tasks/update", msg.Err)

	case TaskDeleted:
		if s.stale("tasks/delete", msg.OwnerID) {
			return nil
		}
		if msg.Err != nil {
			s.state.Tasks = s.state.Tasks.failed(msg.Err)
		} else {
			s.state.Tasks = s.state.Tasks.deleted(msg.ID)
		}
		s.logSettled("tasks/delete", msg.Err)
	}
	return nil
}

// stale reports whether a task result was issued for an account that is no longer
// signed in. Such results are dropped.
func (s *Store) stale(action, owner string) bool {
	if owner == s.state.Identity.SessionID() {
		return false
	}
	s.logger.Debug("stale result dropped", "action", action, "owner", owner)
	return true
}

// dropForeignTasks clears tasks loaded for an account other than the current one.
func (s *Store) dropForeignTasks() {
	owner := s.state.Tasks.Owner
	if owner != "" && owner != s.state.Identity.SessionID() {
		s.ClearTasks()
	}
}

func (s *Store) logSettled(action string, err error) {
	if err != nil {
		s.logger.Debug("request failed", "action", action, "err", err)
		return
	}
	s.logger.Debug("request succeeded", "action", action)
}

// ValidateCredentials checks sign-in and registration input.
func ValidateCredentials(creds service.Credentials, registering bool) error {
	email := strings.TrimSpace(creds.Email)
	switch {
	case email == "":
		return fmt.Errorf("%w: email required", ErrValidation)
	case !strings.Contains(email, "@") || strings.HasPrefix(email, "@") || strings.HasSuffix(email, "@"):
		return fmt.Errorf("%w: invalid email: %s", ErrValidation, email)
	case creds.Password == "":
		return fmt.Errorf("%w: password required", ErrValidation)
	case registering && len(creds.Password) < MinPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MinPasswordLength)
	}
	return nil
}
