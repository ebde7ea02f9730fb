// Package session is the single source of truth for who is signed in. The
// Service is created once per process and injected into the views; it
// keeps the current profile in step with the backend session and its auth
// event stream.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/hongminglow/farmconnect/internal/apperr"
	"github.com/hongminglow/farmconnect/internal/backend"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/notify"
)

// State is the session lifecycle state.
type State int

const (
	Initializing State = iota
	Anonymous
	Authenticated
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	}
	return "unknown"
}

// Auth is the part of the backend client the service depends on.
type Auth interface {
	Current() *models.Session
	GetSession(ctx context.Context) (*models.Session, error)
	Subscribe() (<-chan backend.AuthEvent, func())
	SignInWithPassword(ctx context.Context, email, password string) (models.Session, error)
	SignUp(ctx context.Context, email, password string) (models.Identity, error)
	SignOut(ctx context.Context) error
	RecordOrphanedIdentity(ctx context.Context, identity models.Identity, fields models.ProfileFields, cause error) error
	ResolveOrphanedIdentity(ctx context.Context, identityID string) error
}

// Profiles reads and writes profile rows.
type Profiles interface {
	Get(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, id, email string, fields models.ProfileFields) (models.User, error)
	Update(ctx context.Context, id string, patch models.ProfileUpdate) (models.User, error)
}

// Snapshot is a consistent view of the service state.
type Snapshot struct {
	State   State
	User    *models.User
	Loading bool
}

// Service tracks the signed-in user.
type Service struct {
	auth     Auth
	profiles Profiles
	notifier notify.Notifier
	logger   *slog.Logger

	mu      sync.RWMutex
	state   State
	user    *models.User
	pending int
	// gen advances on every change to user.
	gen uint64

	lifecycle   sync.Mutex
	started     bool
	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
}

// New returns a service in the Initializing state. Call Start to sync it.
func New(auth Auth, profiles Profiles, notifier notify.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		auth:     auth,
		profiles: profiles,
		notifier: notifier,
		logger:   logger.With("component", "session"),
		state:    Initializing,
	}
}

// Start subscribes to auth events and restores any existing session. It
// never fails: a session that cannot be restored leaves the service
// Anonymous. Calling Start twice is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.lifecycle.Lock()
	if s.started {
		s.lifecycle.Unlock()
		return
	}
	s.started = true
	events, unsubscribe := s.auth.Subscribe()
	loopCtx, cancel := context.WithCancel(context.Background())
	s.unsubscribe, s.cancel, s.done = unsubscribe, cancel, make(chan struct{})
	s.lifecycle.Unlock()

	go s.listen(loopCtx, events, s.done)
	s.bootstrap(ctx)
}

// Close stops listening for auth events and waits for the listener to exit.
func (s *Service) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if !s.started || s.cancel == nil {
		return
	}
	s.cancel()
	s.unsubscribe()
	<-s.done
	s.cancel = nil
}

func (s *Service) bootstrap(ctx context.Context) {
	var user *models.User
	sess, err := s.auth.GetSession(ctx)
	switch {
	case err != nil:
		s.logger.Error("error setting up session", "error", err)
	case sess != nil:
		u, err := s.profiles.Get(ctx, sess.User.ID)
		if err != nil {
			s.logger.Error("error setting up session", "user_id", sess.User.ID, "error", err)
			break
		}
		user = &u
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// An auth event may already have settled the state.
	if s.state != Initializing {
		return
	}
	s.setLocked(user)
}

func (s *Service) listen(ctx context.Context, events <-chan backend.AuthEvent, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handle(ctx, ev)
		}
	}
}

func (s *Service) handle(ctx context.Context, ev backend.AuthEvent) {
	switch ev.Type {
	case backend.SignedIn:
		if ev.Session == nil {
			return
		}
		id := ev.Session.User.ID
		s.mu.RLock()
		gen := s.gen
		s.mu.RUnlock()
		user, err := s.profiles.Get(ctx, id)
		if err != nil {
			// Expected during sign-up, before the profile row exists.
			s.logger.Debug("no profile for signed-in identity yet", "user_id", id, "error", err)
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur := s.auth.Current(); cur == nil || cur.User.ID != id {
			s.logger.Debug("dropping stale sign-in event", "user_id", id)
			return
		}
		if s.gen != gen {
			s.logger.Debug("dropping sign-in event overtaken by a newer profile", "user_id", id)
			return
		}
		s.setLocked(&user)
	case backend.SignedOut:
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.auth.Current() != nil {
			s.logger.Debug("dropping stale sign-out event")
			return
		}
		s.setLocked(nil)
	}
}

// setLocked must run with s.mu held.
func (s *Service) setLocked(user *models.User) {
	s.gen++
	if user == nil {
		s.user = nil
		s.state = Anonymous
		return
	}
	u := *user
	s.user = &u
	s.state = Authenticated
}

func (s *Service) publish(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(&user)
}

func (s *Service) begin() {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()
}

func (s *Service) end() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
}

// Snapshot returns the current state, user and loading flag together.
func (s *Service) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{State: s.state, Loading: s.state == Initializing || s.pending > 0}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	return snap
}

// User returns the signed-in profile, if any.
func (s *Service) User() (models.User, bool) {
	snap := s.Snapshot()
	if snap.User == nil {
		return models.User{}, false
	}
	return *snap.User, true
}

// Loading reports whether the service is initializing or an operation is
// in flight.
func (s *Service) Loading() bool {
	return s.Snapshot().Loading
}

// State returns the lifecycle state.
func (s *Service) State() State {
	return s.Snapshot().State
}

// SignIn authenticates, fetches the profile and publishes it before
// returning.
func (s *Service) SignIn(ctx context.Context, email, password string) (models.User, error) {
	s.begin()
	defer s.end()

	sess, err := s.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return models.User{}, s.fail("Failed to sign in", "sign in", err)
	}
	user, err := s.profiles.Get(ctx, sess.User.ID)
	if err != nil {
		return models.User{}, s.fail("Failed to sign in", "fetch profile", err)
	}
	s.publish(user)
	s.notifier.Success("Signed in successfully!")
	return user, nil
}

// SignUp creates an identity, then its profile row, then publishes the
// profile. When the profile insert fails the identity is left in place,
// recorded in the sign-up outbox, and a *apperr.PersistenceError is
// returned; ResumeSignUp can finish it later.
func (s *Service) SignUp(ctx context.Context, email, password string, fields models.ProfileFields) (models.User, error) {
	s.begin()
	defer s.end()

	if !fields.UserType.Valid() {
		err := &apperr.AuthError{Code: apperr.CodeInvalidInput, Message: "user_type must be farmer or buyer"}
		return models.User{}, s.fail("Failed to create account", "sign up", err)
	}
	identity, err := s.auth.SignUp(ctx, email, password)
	if err != nil {
		return models.User{}, s.fail("Failed to create account", "sign up", err)
	}
	user, err := s.profiles.Create(ctx, identity.ID, identity.Email, fields)
	if err != nil {
		if recErr := s.auth.RecordOrphanedIdentity(ctx, identity, fields, err); recErr != nil {
			s.logger.Error("record orphaned identity", "user_id", identity.ID, "error", recErr)
		}
		perr := &apperr.PersistenceError{IdentityID: identity.ID, Email: identity.Email, Err: err}
		return models.User{}, s.fail("Failed to create account", "create profile", perr)
	}
	s.publish(user)
	s.notifier.Success("Account created successfully!")
	return user, nil
}

// ResumeSignUp creates the missing profile of the signed-in identity after
// a sign-up whose profile insert failed.
func (s *Service) ResumeSignUp(ctx context.Context, fields models.ProfileFields) (models.User, error) {
	s.begin()
	defer s.end()

	sess := s.auth.Current()
	if sess == nil {
		return models.User{}, s.fail("Failed to finish sign-up", "resume sign up", apperr.NoUser("resume sign up"))
	}
	if _, ok := s.User(); ok {
		err := &apperr.PreconditionError{Op: "resume sign up", Reason: "profile already exists"}
		return models.User{}, s.fail("Failed to finish sign-up", "resume sign up", err)
	}
	if !fields.UserType.Valid() {
		err := &apperr.AuthError{Code: apperr.CodeInvalidInput, Message: "user_type must be farmer or buyer"}
		return models.User{}, s.fail("Failed to finish sign-up", "resume sign up", err)
	}
	user, err := s.profiles.Create(ctx, sess.User.ID, sess.User.Email, fields)
	if err != nil {
		perr := &apperr.PersistenceError{IdentityID: sess.User.ID, Email: sess.User.Email, Err: err}
		return models.User{}, s.fail("Failed to finish sign-up", "create profile", perr)
	}
	if err := s.auth.ResolveOrphanedIdentity(ctx, sess.User.ID); err != nil {
		s.logger.Warn("resolve orphaned identity", "user_id", sess.User.ID, "error", err)
	}
	s.publish(user)
	s.notifier.Success("Account created successfully!")
	return user, nil
}

// SignOut ends the backend session and always clears the local user.
// Failures are reported and logged, never returned.
func (s *Service) SignOut(ctx context.Context) {
	s.begin()
	defer s.end()

	err := s.auth.SignOut(ctx)
	s.mu.Lock()
	s.setLocked(nil)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("sign out", "error", err)
		s.notifier.Error("Failed to sign out", err)
		return
	}
	s.notifier.Success("Signed out successfully")
}

// UpdateProfile writes patch to the signed-in user's profile and merges it
// into the local copy once the write succeeds.
func (s *Service) UpdateProfile(ctx context.Context, patch models.ProfileUpdate) (models.User, error) {
	s.begin()
	defer s.end()

	current, ok := s.User()
	if !ok {
		return models.User{}, s.fail("Failed to update profile", "update profile", apperr.NoUser("update profile"))
	}
	if patch.Empty() {
		return current, nil
	}
	if _, err := s.profiles.Update(ctx, current.ID, patch); err != nil {
		return models.User{}, s.fail("Failed to update profile", "update profile", err)
	}

	s.mu.Lock()
	if s.user != nil && s.user.ID == current.ID {
		merged := patch.Apply(*s.user)
		s.user = &merged
		s.gen++
		current = merged
	}
	s.mu.Unlock()

	s.notifier.Success("Profile updated successfully")
	return current, nil
}

func (s *Service) fail(notice, op string, err error) error {
	level := slog.LevelError
	var authErr *apperr.AuthError
	if errors.As(err, &authErr) && authErr.Code == apperr.CodeInvalidCredentials {
		level = slog.LevelWarn
	}
	s.logger.Log(context.Background(), level, op+" failed", "error", err)
	s.notifier.Error(notice, err)
	return err
}
