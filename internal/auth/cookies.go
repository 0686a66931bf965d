package auth

import (
	"net/http"
	"time"

	"github.com/mpratt/folio-api/internal/authclient"
)

const (
	// AccessCookie holds the short-lived access token.
	AccessCookie = "folio_at"
	// RefreshCookie holds the long-lived refresh token.
	RefreshCookie = "folio_rt"
)

// CookieWriter stamps auth cookies with consistent attributes: HttpOnly,
// SameSite=Strict, path /. Secure only outside local development.
type CookieWriter struct {
	Secure     bool
	RefreshTTL time.Duration
}

func (cw CookieWriter) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cw.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetSession writes both token cookies. The access cookie expires with the
// token the service issued; the refresh cookie gets the configured TTL.
func (cw CookieWriter) SetSession(w http.ResponseWriter, pair *authclient.TokenPair) {
	http.SetCookie(w, cw.cookie(AccessCookie, pair.AccessToken, pair.ExpiresIn))
	if pair.RefreshToken != "" {
		http.SetCookie(w, cw.cookie(RefreshCookie, pair.RefreshToken, int(cw.RefreshTTL.Seconds())))
	}
}

// ClearSession drops both cookies unconditionally.
func (cw CookieWriter) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, cw.cookie(AccessCookie, "", -1))
	http.SetCookie(w, cw.cookie(RefreshCookie, "", -1))
}

// ReadAccessToken returns the access token cookie value, or "".
func ReadAccessToken(r *http.Request) string {
	c, err := r.Cookie(AccessCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// ReadRefreshToken returns the refresh token cookie value, or "".
func ReadRefreshToken(r *http.Request) string {
	c, err := r.Cookie(RefreshCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
