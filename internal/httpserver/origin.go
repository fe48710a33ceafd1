package httpserver

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/logging"
)

// OriginGuard rejects cookie-authenticated requests sent from a foreign
// origin. Requests without Origin or Referer (CLIs, server-to-server) pass.
func OriginGuard(allowed []string) echo.MiddlewareFunc {
	allow := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		allow[strings.ToLower(strings.TrimRight(o, "/"))] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			origin := requestOrigin(req)
			if origin == "" {
				return next(c)
			}
			if _, ok := allow[origin]; ok || origin == selfOrigin(req) {
				return next(c)
			}
			logging.FromContext(req.Context()).Warn("origin_rejected", "status", 403, "origin", origin)
			return echo.NewHTTPError(http.StatusForbidden, "invalid origin")
		}
	}
}

func requestOrigin(r *http.Request) string {
	raw := r.Header.Get(echo.HeaderOrigin)
	if raw == "" || raw == "null" {
		raw = r.Header.Get("Referer")
	}
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func selfOrigin(r *http.Request) string {
	return strings.ToLower(schemeOf(r) + "://" + r.Host)
}

func schemeOf(r *http.Request) string {
	if p := r.Header.Get(echo.HeaderXForwardedProto); p != "" {
		return p
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
