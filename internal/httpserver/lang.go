package httpserver

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/polyglot_blog/internal/service"
)

// requestLang prefers ?lang=, then the first Accept-Language tag.
func requestLang(c echo.Context, def string) string {
	if q := c.QueryParam("lang"); q != "" {
		return service.NormalizeLang(q, def)
	}
	al := c.Request().Header.Get("Accept-Language")
	if al == "" {
		return def
	}
	first, _, _ := strings.Cut(al, ",")
	first, _, _ = strings.Cut(first, ";")
	if first == "*" {
		return def
	}
	return service.NormalizeLang(first, def)
}
