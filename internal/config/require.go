package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// Validate reports every required key that is unset in one error. The two
// JWT secrets must differ or a refresh token would verify as an access token.
func (c Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(c.JWTAccessSecret) == 0 {
		missing = append(missing, "JWT_SECRET")
	}
	if len(c.JWTRefreshSecret) == 0 {
		missing = append(missing, "JWT_REFRESH_SECRET")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("missing required env %s", strings.Join(missing, ", ")))
	}
	if len(c.JWTAccessSecret) > 0 && bytes.Equal(c.JWTAccessSecret, c.JWTRefreshSecret) {
		errs = append(errs, errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ"))
	}
	return errors.Join(errs...)
}
