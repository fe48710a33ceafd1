package httpserver

import (
	"net/http"
	"time"
)

const (
	RefreshCookieName = "refreshToken"
	RefreshCookiePath = "/api/admin"
)

// CreateCookie builds the refresh cookie. Login and refresh share it so the
// attributes never drift; it lives exactly as long as the token inside.
func CreateCookie(value string, exp time.Time, secure bool) *http.Cookie {
	maxAge := int(time.Until(exp).Round(time.Second).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     RefreshCookiePath,
		MaxAge:   maxAge,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}
