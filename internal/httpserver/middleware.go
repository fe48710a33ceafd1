package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/tokens"
)

const ctxClaims = "admin_claims"

// RequestLogger puts a request-scoped logger into the request context and
// writes one line per request.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = c.Response().Header().Get(echo.HeaderXRequestID)
			}

			l := base.With(
				"method", c.Request().Method,
				"path", c.Path(),
				"url", c.Request().URL.Path,
				"remote_ip", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
			)
			if rid != "" {
				l = l.With("request_id", rid)
				c.Response().Header().Set(echo.HeaderXRequestID, rid)
			}

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)
			status := c.Response().Status

			if err != nil {
				c.Echo().HTTPErrorHandler(err, c)
				status = c.Response().Status
			}
			if claims := claimsFrom(c); claims != nil {
				l = l.With("admin_id", claims.AdminID)
			}

			switch {
			case status >= 500:
				l.Error("request completed", "status", status, "duration_ms", dur.Milliseconds(), "error", errStr(err))
			case status >= 400:
				l.Warn("request completed", "status", status, "duration_ms", dur.Milliseconds())
			default:
				l.Info("request completed", "status", status, "duration_ms", dur.Milliseconds(), "bytes", c.Response().Size)
			}
			return nil
		}
	}
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("%v", err)
}

// RequireAccessToken validates the bearer access token and stores its claims
// on the context. Every failure is a 401 except a missing secret.
func RequireAccessToken(auth *service.AuthService) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup: "header:Authorization:Bearer ",
		ContextKey:  ctxClaims,
		ParseTokenFunc: func(c echo.Context, raw string) (interface{}, error) {
			return auth.Verify(c.Request().Context(), raw)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			l := logging.FromContext(c.Request().Context()).With("middleware", "access_token")

			var extractErr *echojwt.TokenExtractionError
			if errors.As(err, &extractErr) {
				return fail(c, l, "auth_rejected", service.ErrMissingToken)
			}
			var parseErr *echojwt.TokenParsingError
			if errors.As(err, &parseErr) {
				return fail(c, l, "auth_rejected", parseErr.Err)
			}
			return fail(c, l, "auth_rejected", fmt.Errorf("%w: %v", service.ErrInvalidToken, err))
		},
	})
}

// RequireRole must run after RequireAccessToken.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := claimsFrom(c)
			if claims == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
			}
			if !slices.Contains(roles, claims.Role) {
				logging.FromContext(c.Request().Context()).Warn("auth_rejected", "status", 403, "reason", "role not allowed", "role", claims.Role)
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
			return next(c)
		}
	}
}

func claimsFrom(c echo.Context) *tokens.AccessClaims {
	claims, _ := c.Get(ctxClaims).(*tokens.AccessClaims)
	return claims
}
