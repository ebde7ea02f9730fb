// Package backend is the thin client SDK the UI talks to: it holds the
// process-wide session, authenticates identities, publishes auth state
// events and runs table operations under row-level policies.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/hongminglow/farmconnect/internal/apperr"
	"github.com/hongminglow/farmconnect/internal/auth"
	"github.com/hongminglow/farmconnect/internal/cache"
	"github.com/hongminglow/farmconnect/internal/metrics"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/storage"
)

// MinPasswordLength is the shortest password accepted at sign-up.
const MinPasswordLength = 8

// Client is the process-wide backend handle. It is safe for concurrent use.
type Client struct {
	identities storage.IdentityStore
	tables     storage.TableStore
	tokens     *auth.TokenManager
	sessions   cache.SessionStore
	logger     *slog.Logger
	now        func() time.Time
	hashCost   int

	mu      sync.RWMutex
	current *models.Session
	events  *broadcaster
}

// Option customises a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithHashCost sets the bcrypt cost used at sign-up.
func WithHashCost(cost int) Option {
	return func(c *Client) { c.hashCost = cost }
}

// New wires a client over the given stores.
func New(identities storage.IdentityStore, tables storage.TableStore, tokens *auth.TokenManager, sessions cache.SessionStore, opts ...Option) *Client {
	c := &Client{
		identities: identities,
		tables:     tables,
		tokens:     tokens,
		sessions:   sessions,
		logger:     slog.Default(),
		now:        time.Now,
		hashCost:   bcrypt.DefaultCost,
		events:     newBroadcaster(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.events.logger = c.logger
	return c
}

// Current returns the session held in memory without touching persistence.
func (c *Client) Current() *models.Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return nil
	}
	s := *c.current
	return &s
}

// GetSession returns the current session, restoring a persisted token if
// none is held. It returns nil without error when nobody is signed in.
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	start := time.Now()
	sess, err := c.getSession(ctx)
	metrics.ObserveBackend("get_session", "", start, err)
	return sess, err
}

func (c *Client) getSession(ctx context.Context) (*models.Session, error) {
	if sess := c.Current(); sess != nil {
		if !sess.Expired(c.now()) {
			return sess, nil
		}
		c.logger.Info("session expired", "user_id", sess.User.ID)
		if err := c.drop(ctx); err != nil {
			c.logger.Warn("drop expired session", "error", err)
		}
		return nil, nil
	}

	token, err := c.sessions.Load(ctx)
	if errors.Is(err, cache.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, &apperr.AuthError{Code: apperr.CodeAuthUnavailable, Message: "could not restore session", Err: err}
	}

	claims, err := c.tokens.Parse(token)
	if err != nil {
		c.logger.Info("discarding persisted session", "error", err)
		if clearErr := c.sessions.Clear(ctx); clearErr != nil {
			c.logger.Warn("clear persisted session", "error", clearErr)
		}
		return nil, nil
	}
	identity, err := c.identities.FindIdentityByID(ctx, claims.Subject)
	if errors.Is(err, storage.ErrNotFound) {
		_ = c.sessions.Clear(ctx)
		return nil, nil
	}
	if err != nil {
		return nil, &apperr.AuthError{Code: apperr.CodeAuthUnavailable, Message: "could not restore session", Err: err}
	}

	sess := &models.Session{AccessToken: token, ExpiresAt: claims.ExpiresAt, User: publicIdentity(identity)}
	c.mu.Lock()
	if c.current == nil {
		c.current = sess
	}
	out := *c.current
	c.mu.Unlock()
	return &out, nil
}

// SignInWithPassword verifies credentials and establishes a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (models.Session, error) {
	start := time.Now()
	sess, err := c.signIn(ctx, email, password)
	metrics.ObserveBackend("sign_in", "", start, err)
	return sess, err
}

func (c *Client) signIn(ctx context.Context, email, password string) (models.Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Session{}, &apperr.AuthError{Code: apperr.CodeInvalidInput, Message: "email and password are required"}
	}
	identity, err := c.identities.FindIdentityByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return models.Session{}, &apperr.AuthError{Code: apperr.CodeInvalidCredentials, Message: "invalid login credentials"}
		}
		return models.Session{}, &apperr.AuthError{Code: apperr.CodeAuthUnavailable, Message: "failed to fetch identity", Err: err}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return models.Session{}, &apperr.AuthError{Code: apperr.CodeInvalidCredentials, Message: "invalid login credentials"}
	}
	return c.establish(ctx, identity)
}

// SignUp creates an identity and signs it in. The returned identity carries
// the backend-assigned id.
func (c *Client) SignUp(ctx context.Context, email, password string) (models.Identity, error) {
	start := time.Now()
	identity, err := c.signUp(ctx, email, password)
	metrics.ObserveBackend("sign_up", "", start, err)
	return identity, err
}

func (c *Client) signUp(ctx context.Context, email, password string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateCredentials(email, password); err != nil {
		return models.Identity{}, &apperr.AuthError{Code: apperr.CodeInvalidInput, Message: err.Error()}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), c.hashCost)
	if err != nil {
		return models.Identity{}, &apperr.AuthError{Code: apperr.CodeAuthUnavailable, Message: "failed to hash password", Err: err}
	}
	identity, err := c.identities.CreateIdentity(ctx, email, string(hash))
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return models.Identity{}, &apperr.AuthError{Code: apperr.CodeUserExists, Message: "user already registered"}
		}
		return models.Identity{}, &apperr.AuthError{Code: apperr.CodeAuthUnavailable, Message: "failed to create identity", Err: err}
	}
	if _, err := c.establish(ctx, identity); err != nil {
		return models.Identity{}, err
	}
	return publicIdentity(identity), nil
}

// SignOut ends the session. Local state is cleared even when clearing the
// persisted token fails; that failure is still returned.
func (c *Client) SignOut(ctx context.Context) error {
	start := time.Now()
	err := c.drop(ctx)
	metrics.ObserveBackend("sign_out", "", start, err)
	return err
}

func (c *Client) establish(ctx context.Context, identity models.Identity) (models.Session, error) {
	token, expires, err := c.tokens.Generate(identity)
	if err != nil {
		return models.Session{}, &apperr.AuthError{Code: apperr.CodeAuthUnavailable, Message: "failed to issue session", Err: err}
	}
	sess := models.Session{AccessToken: token, ExpiresAt: expires, User: publicIdentity(identity)}
	if err := c.sessions.Save(ctx, token, c.tokens.TTL()); err != nil {
		c.logger.Warn("persist session", "user_id", identity.ID, "error", err)
	}

	c.mu.Lock()
	c.current = &sess
	c.mu.Unlock()

	c.events.publish(AuthEvent{Type: SignedIn, Session: &sess})
	return sess, nil
}

func (c *Client) drop(ctx context.Context) error {
	c.mu.Lock()
	had := c.current != nil
	c.current = nil
	c.mu.Unlock()

	var err error
	if clearErr := c.sessions.Clear(ctx); clearErr != nil {
		err = &apperr.AuthError{Code: apperr.CodeSignOutFailed, Message: "failed to sign out", Err: clearErr}
	}
	if had {
		c.events.publish(AuthEvent{Type: SignedOut})
	}
	return err
}

// uid returns the signed-in identity id, or "" for anonymous callers.
func (c *Client) uid() string {
	sess := c.Current()
	if sess == nil || sess.Expired(c.now()) {
		return ""
	}
	return sess.User.ID
}

func publicIdentity(identity models.Identity) models.Identity {
	identity.PasswordHash = ""
	return identity
}

func validateCredentials(email, password string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("a valid email is required")
	}
	if len(strings.TrimSpace(password)) < MinPasswordLength || !utf8.ValidString(password) {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	return nil
}
