package httpserver

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/service"
)

// statusFor maps service sentinels onto a status code and a public message.
// Validation and conflict messages are safe to expose; everything else gets a
// fixed text so storage details stay in the log.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, service.ErrMissingToken):
		return http.StatusUnauthorized, "missing token"
	case errors.Is(err, service.ErrExpiredToken):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, service.ErrInvalidRefreshToken):
		return http.StatusForbidden, "invalid or reused refresh token"
	case errors.Is(err, service.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "too many login attempts"
	case errors.Is(err, service.ErrServerConfig):
		return http.StatusInternalServerError, "server is misconfigured"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// fail logs err under event and converts it to an *echo.HTTPError.
func fail(c echo.Context, l *slog.Logger, event string, err error) error {
	code, msg := statusFor(err)

	var ra *service.RetryAfterError
	if errors.As(err, &ra) && ra.RetryAfter > 0 {
		secs := int(math.Ceil(ra.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
	}

	if code >= http.StatusInternalServerError {
		l.Error(event, "status", code, "error", err)
	} else {
		l.Warn(event, "status", code, "error", err)
	}
	return echo.NewHTTPError(code, msg)
}

func badRequest(l *slog.Logger, event, reason string, err error) error {
	l.Warn(event, "status", 400, "reason", reason, "error", err)
	return echo.NewHTTPError(http.StatusBadRequest, reason)
}
