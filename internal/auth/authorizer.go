package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// TeamSnap OAuth endpoints.
const (
	AuthURL  = "https://auth.teamsnap.com/oauth/authorize"
	TokenURL = "https://auth.teamsnap.com/oauth/token"
)

const (
	// DefaultScope is requested when the caller does not name one.
	DefaultScope = "read write"

	// defaultTokenLifetime is assumed when the token endpoint omits
	// expires_in. TeamSnap tokens last two hours.
	defaultTokenLifetime = 2 * time.Hour
)

// State is the authorizer's position in the out-of-band flow.
type State int

const (
	// Unauthenticated: no usable TokenRecord exists.
	Unauthenticated State = iota

	// AuthorizationPending: an authorization URL has been handed to the
	// user and the flow is waiting for the pasted code. The OOB flow
	// has no callback server, so this wait is an explicit, resumable
	// state rather than a blocking call.
	AuthorizationPending

	// Authenticated: a TokenRecord with an access token is held.
	Authenticated
)

func (s State) String() string {
	switch s {
	case AuthorizationPending:
		return "authorization_pending"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Authorizer drives the authorization-code and refresh-token exchanges
// and owns the persisted TokenRecord. It is safe for concurrent use;
// the mutex guards only the in-memory record swap, so concurrent
// callers that both see an expired token may refresh redundantly
// (last write wins, which the OAuth server treats as benign).
type Authorizer struct {
	store  *FileStore
	logger *slog.Logger
	conf   oauth2.Config

	// httpClient, when set, is injected into exchanges via the
	// oauth2.HTTPClient context key. Tests point it at httptest.
	httpClient *http.Client

	now func() time.Time

	mu     sync.Mutex
	state  State
	record *TokenRecord
}

// New creates an Authorizer for the given credentials and store. Any
// previously persisted token is loaded, resuming the Authenticated
// state across process restarts. A scope of "" means DefaultScope.
func New(creds *Credentials, store *FileStore, scope string, logger *slog.Logger) *Authorizer {
	if scope == "" {
		scope = DefaultScope
	}

	redirect := creds.RedirectURI
	if redirect == "" {
		redirect = RedirectOOB
	}

	a := &Authorizer{
		store:  store,
		logger: logger,
		conf: oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  redirect,
			Scopes:       strings.Fields(scope),
			Endpoint: oauth2.Endpoint{
				AuthURL:  AuthURL,
				TokenURL: TokenURL,
			},
		},
		now:   time.Now,
		state: Unauthenticated,
	}

	rec, err := store.Load()
	if err != nil {
		// An unreadable store counts as absent for load only. The next
		// Save will surface the underlying problem.
		logger.Warn("could not load persisted token, starting unauthenticated",
			slog.String("error", err.Error()))
	} else if rec != nil {
		a.record = rec
		a.state = Authenticated
	}

	return a
}

// State returns the current flow state.
func (a *Authorizer) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.state
}

// BeginAuthorization builds the authorization URL the user must visit.
// TeamSnap renders the resulting code in the browser for manual copy.
// Idempotent; calling it again simply returns the same URL.
func (a *Authorizer) BeginAuthorization() string {
	a.mu.Lock()
	a.state = AuthorizationPending
	a.mu.Unlock()

	return a.conf.AuthCodeURL("")
}

// CompleteAuthorization exchanges the user-supplied code for tokens,
// persists the resulting TokenRecord and transitions to Authenticated.
// On failure the state stays AuthorizationPending so the user can
// retry with a fresh code.
func (a *Authorizer) CompleteAuthorization(ctx context.Context, code string) error {
	if code == "" {
		return &AuthorizationError{Err: fmt.Errorf("no authorization code provided")}
	}

	tok, err := a.conf.Exchange(a.exchangeContext(ctx), code)
	if err != nil {
		return &AuthorizationError{Err: err}
	}

	rec := a.recordFromToken(tok)
	if err := a.store.Save(rec); err != nil {
		return err
	}

	a.mu.Lock()
	a.record = rec
	a.state = Authenticated
	a.mu.Unlock()

	a.logger.Info("authorization complete, token persisted",
		slog.String("file", a.store.Path()),
		slog.Time("expires_at", rec.ExpiresAt))

	return nil
}

// EnsureValidToken returns a usable access token. When the held token
// has not expired this costs nothing: no network call, no disk read.
// An expired token with a refresh token triggers exactly one refresh
// exchange; a failed refresh drops to Unauthenticated and the caller
// must re-run the interactive flow.
func (a *Authorizer) EnsureValidToken(ctx context.Context) (string, error) {
	a.mu.Lock()
	state, rec := a.state, a.record
	a.mu.Unlock()

	if state != Authenticated || rec == nil {
		return "", ErrAuthenticationRequired
	}

	if !rec.Expired(a.now()) {
		return rec.AccessToken, nil
	}

	return a.refresh(ctx, rec)
}

// Token implements the client's TokenProvider contract.
func (a *Authorizer) Token(ctx context.Context) (string, error) {
	return a.EnsureValidToken(ctx)
}

// Refresh forces one refresh exchange regardless of the recorded
// expiry. The API client uses it to absorb a token that expired
// between EnsureValidToken and the server's own check (a 401).
func (a *Authorizer) Refresh(ctx context.Context) (string, error) {
	a.mu.Lock()
	state, rec := a.state, a.record
	a.mu.Unlock()

	if state != Authenticated || rec == nil {
		return "", ErrAuthenticationRequired
	}

	return a.refresh(ctx, rec)
}

// refresh runs the refresh-token exchange outside the lock, persists
// the new record and swaps it in. Concurrent refreshes race benignly.
func (a *Authorizer) refresh(ctx context.Context, rec *TokenRecord) (string, error) {
	if rec.RefreshToken == "" {
		a.drop()
		return "", fmt.Errorf("%w: token expired and no refresh token held", ErrAuthenticationExpired)
	}

	src := a.conf.TokenSource(a.exchangeContext(ctx), &oauth2.Token{
		RefreshToken: rec.RefreshToken,
		// Force the source to refresh instead of reusing the token.
		Expiry: a.now().Add(-time.Minute),
	})

	tok, err := src.Token()
	if err != nil {
		a.drop()
		return "", fmt.Errorf("%w: refresh exchange failed: %v", ErrAuthenticationExpired, err)
	}

	fresh := a.recordFromToken(tok)
	if fresh.RefreshToken == "" {
		// Servers may omit the refresh token on refresh; keep the old one.
		fresh.RefreshToken = rec.RefreshToken
	}

	if err := a.store.Save(fresh); err != nil {
		return "", err
	}

	a.mu.Lock()
	a.record = fresh
	a.state = Authenticated
	a.mu.Unlock()

	a.logger.Debug("access token refreshed", slog.Time("expires_at", fresh.ExpiresAt))

	return fresh.AccessToken, nil
}

// drop transitions to Unauthenticated after a failed refresh.
func (a *Authorizer) drop() {
	a.mu.Lock()
	a.state = Unauthenticated
	a.record = nil
	a.mu.Unlock()
}

// Reload re-reads the persisted TokenRecord, picking up a token
// written by another process (the interactive auth CLI). Used by the
// credentials watcher.
func (a *Authorizer) Reload() error {
	rec, err := a.store.Load()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if rec == nil {
		a.state = Unauthenticated
		a.record = nil

		return nil
	}

	a.record = rec
	a.state = Authenticated

	return nil
}

func (a *Authorizer) recordFromToken(tok *oauth2.Token) *TokenRecord {
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = a.now().Add(defaultTokenLifetime)
	}

	return &TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiry,
	}
}

func (a *Authorizer) exchangeContext(ctx context.Context) context.Context {
	if a.httpClient == nil {
		return ctx
	}

	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}
