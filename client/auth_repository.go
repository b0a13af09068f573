package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-fintrack/authstate"
	"github.com/goliatone/go-fintrack/logging"
)

const repositoryLoggerName = "client.auth"

// AuthRepository owns the signed in session of a client: it signs users in
// and out against the API, persists the token in a SessionStore and streams
// every change to its listeners. It implements authstate.Source.
//
// Listeners run with the delivery lock held and must not call SignIn,
// SignOut, Register or Reload synchronously.
type AuthRepository struct {
	client  *Client
	store   SessionStore
	logger  logging.Logger
	timeout time.Duration

	deliver sync.Mutex

	mu        sync.Mutex
	current   authstate.Session
	restored  bool
	restoring bool
	listeners map[uint64]func(authstate.Session)
	nextID    uint64

	ctx    context.Context
	cancel context.CancelFunc
}

// NewAuthRepository binds client and store.
func NewAuthRepository(client *Client, store SessionStore) *AuthRepository {
	ctx, cancel := context.WithCancel(context.Background())
	_, logger := logging.ResolveLogger(repositoryLoggerName, nil, nil)
	return &AuthRepository{
		client:    client,
		store:     store,
		logger:    logger,
		timeout:   10 * time.Second,
		current:   authstate.SignedOut(),
		listeners: make(map[uint64]func(authstate.Session)),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// WithLogger sets the logger.
func (r *AuthRepository) WithLogger(logger logging.Logger) *AuthRepository {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithRestoreTimeout bounds the session check run on first subscription.
func (r *AuthRepository) WithRestoreTimeout(d time.Duration) *AuthRepository {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// OnSessionChanged registers fn. The persisted session is restored in the
// background on the first registration; later registrations receive the
// current session asynchronously once it is known.
func (r *AuthRepository) OnSessionChanged(fn func(authstate.Session)) func() {
	if fn == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = fn
	restored := r.restored
	startRestore := !r.restored && !r.restoring
	if startRestore {
		r.restoring = true
	}
	r.mu.Unlock()

	switch {
	case startRestore:
		go r.restore()
	case restored:
		go r.replay(id)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.listeners, id)
			r.mu.Unlock()
		})
	}
}

// Current returns the last known session.
func (r *AuthRepository) Current() authstate.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// SignIn logs in with email and password.
func (r *AuthRepository) SignIn(ctx context.Context, email, password string) (authstate.Record, error) {
	resp, err := r.client.Login(ctx, email, password)
	if err != nil {
		return authstate.Record{}, err
	}
	return r.accept(resp.Token, resp.User)
}

// Register creates an account and signs it in.
func (r *AuthRepository) Register(ctx context.Context, displayName, email, password string) (authstate.Record, error) {
	resp, err := r.client.Register(ctx, displayName, email, password)
	if err != nil {
		return authstate.Record{}, err
	}
	return r.accept(resp.Token, resp.User)
}

// CompleteSocial finishes an OAuth flow and signs the user in.
func (r *AuthRepository) CompleteSocial(ctx context.Context, provider, code, state string) (authstate.Record, error) {
	resp, err := r.client.CompleteSocial(ctx, provider, code, state)
	if err != nil {
		return authstate.Record{}, err
	}
	return r.accept(resp.Token, resp.User)
}

// SignInWithToken adopts a token issued elsewhere, e.g. by the OAuth
// callback page, after checking it with the API.
func (r *AuthRepository) SignInWithToken(ctx context.Context, token string) (authstate.Record, error) {
	record, err := r.client.MeWithToken(ctx, token)
	if err != nil {
		return authstate.Record{}, err
	}
	return r.accept(token, record)
}

// SignOut revokes the token when the API is reachable and always forgets
// the local session.
func (r *AuthRepository) SignOut(ctx context.Context) error {
	var remoteErr error
	if r.client.Token() != "" {
		if err := r.client.Logout(ctx); err != nil && !IsStatus(err, http.StatusUnauthorized) {
			remoteErr = err
			r.logger.Warn("logout request failed", "error", err)
		}
	}

	r.client.SetToken("")
	if err := r.store.Clear(); err != nil {
		return err
	}
	r.publish(authstate.SignedOut())
	return remoteErr
}

// Reload re-reads the store, e.g. after another process changed it.
func (r *AuthRepository) Reload(ctx context.Context) error {
	stored, err := r.store.Load()
	if err != nil && !errors.Is(err, ErrNoSession) {
		return err
	}

	if stored == nil {
		r.client.SetToken("")
		r.publish(authstate.SignedOut())
		return nil
	}

	r.client.SetToken(stored.Token)
	r.publish(authstate.SignedIn(stored.User))
	return nil
}

// Close stops a pending restore.
func (r *AuthRepository) Close() {
	r.cancel()
}

func (r *AuthRepository) accept(token string, record authstate.Record) (authstate.Record, error) {
	if err := r.store.Save(&StoredSession{Token: token, User: record}); err != nil {
		return authstate.Record{}, err
	}
	r.client.SetToken(token)
	r.publish(authstate.SignedIn(record))
	return record, nil
}

// restoreResult is the outcome of checking the persisted session. It is only
// applied when no sign in or out happened while the check was running.
type restoreResult struct {
	session authstate.Session
	token   string
	refresh *StoredSession
	clear   bool
}

func (r *AuthRepository) restore() {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	result := r.resolveStored(ctx)

	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	r.restoring = false
	superseded := r.restored
	r.mu.Unlock()

	// A sign in or out during the restore wins over the stored session.
	if superseded || r.ctx.Err() != nil {
		return
	}

	switch {
	case result.clear:
		if err := r.store.Clear(); err != nil {
			r.logger.Warn("cannot clear persisted session", "error", err)
		}
	case result.refresh != nil:
		if err := r.store.Save(result.refresh); err != nil {
			r.logger.Warn("cannot refresh persisted session", "error", err)
		}
	}
	r.client.SetToken(result.token)
	r.publishLocked(result.session)
}

func (r *AuthRepository) resolveStored(ctx context.Context) restoreResult {
	stored, err := r.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoSession) {
			r.logger.Warn("cannot read persisted session", "error", err)
		}
		return restoreResult{session: authstate.SignedOut()}
	}

	record, err := r.client.MeWithToken(ctx, stored.Token)
	switch {
	case err == nil:
		result := restoreResult{session: authstate.SignedIn(record), token: stored.Token}
		if record != stored.User {
			result.refresh = &StoredSession{Token: stored.Token, User: record}
		}
		return result
	case IsStatus(err, http.StatusUnauthorized):
		r.logger.Info("persisted session was rejected, signing out")
		return restoreResult{session: authstate.SignedOut(), clear: true}
	default:
		r.logger.Warn("cannot verify persisted session, using cached user", "error", err)
		return restoreResult{session: authstate.SignedIn(stored.User), token: stored.Token}
	}
}

func (r *AuthRepository) replay(id uint64) {
	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	fn, ok := r.listeners[id]
	session := r.current
	r.mu.Unlock()

	if ok {
		fn(session)
	}
}

func (r *AuthRepository) publish(session authstate.Session) {
	r.deliver.Lock()
	defer r.deliver.Unlock()
	r.publishLocked(session)
}

func (r *AuthRepository) publishLocked(session authstate.Session) {
	r.mu.Lock()
	if r.restored && r.current.Equal(session) {
		r.mu.Unlock()
		return
	}
	r.current = session
	r.restored = true
	listeners := make([]func(authstate.Session), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(session)
	}
}

var _ authstate.Source = (*AuthRepository)(nil)
