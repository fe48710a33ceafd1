package authclient

import (
	"errors"
	"fmt"
)

var (
	// ErrLoggedOut means the session has no usable credentials: a refresh
	// failed or the server answered 403. Call Login again.
	ErrLoggedOut     = errors.New("session logged out")
	ErrRefreshFailed = errors.New("token refresh failed")
)

// StatusError reports an unexpected status from an auth endpoint.
type StatusError struct {
	Op     string
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Code, e.Detail)
}
