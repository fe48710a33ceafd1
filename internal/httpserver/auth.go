package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/transport"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "login_failed", "invalid body", err)
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return fail(c, l, "login_failed", err)
	}

	c.SetCookie(CreateCookie(pair.RefreshToken, pair.RefreshExp, h.CookieSecure))
	return c.JSON(http.StatusOK, transport.TokenResponse{AccessToken: pair.AccessToken})
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	cookie, err := c.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		return fail(c, l, "refresh_failed", service.ErrMissingToken)
	}

	pair, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			c.SetCookie(DeleteCookie(h.CookieSecure))
		}
		return fail(c, l, "refresh_failed", err)
	}

	c.SetCookie(CreateCookie(pair.RefreshToken, pair.RefreshExp, h.CookieSecure))
	return c.JSON(http.StatusOK, transport.TokenResponse{AccessToken: pair.AccessToken})
}

// Logout always clears the cookie. Only storage failures are reported.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	c.SetCookie(DeleteCookie(h.CookieSecure))

	cookie, err := c.Cookie(RefreshCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.Svc.Logout(ctx, cookie.Value); err != nil {
			return fail(c, l, "logout_failed", err)
		}
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) VerifyToken(c echo.Context) error {
	claims := claimsFrom(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	return c.JSON(http.StatusOK, transport.VerifyResponse{
		Valid:   true,
		AdminID: claims.AdminID,
		Role:    claims.Role,
	})
}

func (h *AuthHTTP) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.change_password")

	claims := claimsFrom(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}
	adminID, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return fail(c, l, "change_password_failed", service.ErrInvalidToken)
	}

	var req transport.ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "change_password_failed", "invalid body", err)
	}

	if err := h.Svc.ChangePassword(ctx, adminID, req.OldPassword, req.NewPassword); err != nil {
		return fail(c, l, "change_password_failed", err)
	}

	c.SetCookie(DeleteCookie(h.CookieSecure))
	l.Info("password_changed", "admin_id", adminID.String())
	return c.NoContent(http.StatusNoContent)
}
