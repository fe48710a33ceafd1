package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/tokens"
)

const (
	LoginPath   = "/api/admin/login"
	RefreshPath = "/api/admin/refresh-token"
	LogoutPath  = "/api/admin/logout"

	defaultRefreshTimeout = 10 * time.Second
	maxErrorBody          = 1 << 10
)

type State int

const (
	Idle State = iota
	Refreshing
	LoggedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Refreshing:
		return "refreshing"
	case LoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Doer sends a single request. *http.Client satisfies it. The refresh cookie
// lives in the Doer's cookie jar.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Session attaches the access token to requests and refreshes it when the
// server answers 401. Concurrent 401s share one refresh call and each request
// is replayed at most once.
//
// The Doer must not route back through the Session.
type Session struct {
	BaseURL string
	Doer    Doer
	Store   TokenStore
	Now     func() time.Time
	// OnLogout runs after the session drops its credentials because of a
	// failed refresh or a 403, before the failing request returns. It is not
	// called for an explicit Logout.
	OnLogout       func(err error)
	RefreshTimeout time.Duration

	mu       sync.Mutex
	state    State
	gen      uint64
	inflight *refreshCall
}

// refreshCall is shared by every request waiting on the same refresh. gen is
// the session generation it started in; Login and logouts move it forward.
type refreshCall struct {
	gen   uint64
	done  chan struct{}
	token string
	err   error
}

// NewSession returns a session backed by an http.Client with a cookie jar and
// an in-memory token store.
func NewSession(baseURL string) (*Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Doer: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		Store: &MemoryStore{},
	}, nil
}

// Client returns an http.Client that sends every request through the session.
func (s *Session) Client() *http.Client {
	return &http.Client{Transport: s}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Session) token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Token()
}

// RoundTrip implements http.RoundTripper.
func (s *Session) RoundTrip(req *http.Request) (*http.Response, error) {
	return s.Do(req)
}

func (s *Session) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	getBody, err := replayableBody(req)
	if err != nil {
		return nil, err
	}

	token, err := s.token()
	if err != nil {
		return nil, err
	}
	if token != "" && s.expired(token) {
		if token, err = s.refresh(ctx, token); err != nil {
			return nil, err
		}
	}

	resp, err := s.send(req, getBody, token)
	if err != nil {
		return nil, err
	}

	if s.forbidden(ctx, resp) || resp.StatusCode != http.StatusUnauthorized || s.State() == LoggedOut {
		return resp, nil
	}
	drain(resp)

	fresh, err := s.refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	resp, err = s.send(req, getBody, fresh)
	if err != nil {
		return nil, err
	}
	s.forbidden(ctx, resp)
	return resp, nil
}

// forbidden logs the session out when the server answered 403.
func (s *Session) forbidden(ctx context.Context, resp *http.Response) bool {
	if resp.StatusCode != http.StatusForbidden {
		return false
	}
	s.logout(ctx, fmt.Errorf("%w: server answered 403", ErrLoggedOut))
	return true
}

func (s *Session) expired(token string) bool {
	exp, ok := tokens.ExpiryUnverified(token)
	return ok && !s.now().Before(exp)
}

func (s *Session) send(req *http.Request, getBody func() (io.ReadCloser, error), token string) (*http.Response, error) {
	r := req.Clone(req.Context())
	if getBody != nil {
		body, err := getBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		r.Body = body
		r.GetBody = getBody
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	} else {
		r.Header.Del("Authorization")
	}
	return s.Doer.Do(r)
}

// refresh returns a token newer than stale, starting a refresh only if none is
// running and nobody replaced stale yet.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	if s.state == LoggedOut {
		s.mu.Unlock()
		return "", ErrLoggedOut
	}
	call := s.inflight
	if call == nil {
		current, err := s.Store.Token()
		if err != nil {
			s.mu.Unlock()
			return "", err
		}
		if current != "" && current != stale {
			s.mu.Unlock()
			return current, nil
		}
		call = &refreshCall{gen: s.gen, done: make(chan struct{})}
		s.inflight = call
		s.state = Refreshing
		go s.runRefresh(ctx, call)
	}
	s.mu.Unlock()

	select {
	case <-call.done:
		return call.token, call.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Session) runRefresh(parent context.Context, call *refreshCall) {
	timeout := s.RefreshTimeout
	if timeout <= 0 {
		timeout = defaultRefreshTimeout
	}
	// Waiters share the call, so one caller's cancellation must not abort it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), timeout)
	defer cancel()

	token, err := s.requestRefresh(ctx)

	s.mu.Lock()
	if call.gen != s.gen {
		// A logout or a new login happened while the call was running. Its
		// result belongs to the old session; waiters get whatever the
		// current session holds.
		call.token, call.err = s.discarded()
		s.mu.Unlock()
		close(call.done)
		return
	}
	if err == nil {
		err = s.Store.SetToken(token)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("token_refresh_failed", "error", err)
		err = fmt.Errorf("%w: %w: %w", ErrLoggedOut, ErrRefreshFailed, err)
		token = ""
		if clearErr := s.Store.Clear(); clearErr != nil {
			logging.FromContext(ctx).Warn("token_clear_failed", "error", clearErr)
		}
		s.reset(LoggedOut)
	} else {
		s.state = Idle
		s.inflight = nil
	}
	call.token, call.err = token, err
	hook := s.OnLogout
	s.mu.Unlock()

	if err != nil && hook != nil {
		hook(err)
	}
	close(call.done)
}

func (s *Session) requestRefresh(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+RefreshPath, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := s.Doer.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError("refresh", resp)
	}
	return decodeAccessToken(resp.Body)
}

// discarded reports the token a waiter on a stale refresh should use. Callers
// hold s.mu.
func (s *Session) discarded() (string, error) {
	if s.state == LoggedOut {
		return "", ErrLoggedOut
	}
	token, err := s.Store.Token()
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrLoggedOut
	}
	return token, nil
}

// reset starts a new session generation. Callers hold s.mu.
func (s *Session) reset(state State) {
	s.gen++
	s.inflight = nil
	s.state = state
}

func (s *Session) logout(ctx context.Context, cause error) {
	s.mu.Lock()
	if err := s.Store.Clear(); err != nil {
		logging.FromContext(ctx).Warn("token_clear_failed", "error", err)
	}
	already := s.state == LoggedOut
	s.reset(LoggedOut)
	hook := s.OnLogout
	s.mu.Unlock()

	if !already && hook != nil {
		hook(cause)
	}
}

// Login exchanges credentials for an access token. The refresh cookie is
// kept by the Doer's jar.
func (s *Session) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Doer.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("login", resp)
	}
	token, err := decodeAccessToken(resp.Body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Store.SetToken(token); err != nil {
		return err
	}
	s.reset(Idle)
	return nil
}

// Logout revokes the refresh cookie on the server and forgets the token. The
// local state is cleared even when the server call fails.
func (s *Session) Logout(ctx context.Context) error {
	var callErr error
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+LogoutPath, nil)
	if err != nil {
		callErr = fmt.Errorf("create request: %w", err)
	} else if resp, err := s.Doer.Do(req); err != nil {
		callErr = fmt.Errorf("do request: %w", err)
	} else {
		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			callErr = statusError("logout", resp)
		}
		drain(resp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(LoggedOut)
	if err := s.Store.Clear(); err != nil {
		return errors.Join(callErr, err)
	}
	return callErr
}

func decodeAccessToken(r io.Reader) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.AccessToken == "" {
		return "", errors.New("decode response: empty accessToken")
	}
	return out.AccessToken, nil
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Detail: strings.TrimSpace(string(b))}
}

// replayableBody makes sure the body can be sent twice.
func replayableBody(req *http.Request) (func() (io.ReadCloser, error), error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	if req.GetBody != nil {
		req.Body.Close()
		return req.GetBody, nil
	}
	b, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("buffer request body: %w", err)
	}
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	}, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	resp.Body.Close()
}
