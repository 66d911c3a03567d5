package authapi

import (
	"net/http"
	"strings"
	"time"
)

// refreshTokenFromCookie returns the raw refresh token, if the client sent one.
func (h *Handler) refreshTokenFromCookie(r *http.Request) (string, bool) {
	c, err := r.Cookie(h.cfg.CookieName)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	return v, v != ""
}

func (h *Handler) setRefreshCookie(w http.ResponseWriter, value string, exp time.Time) {
	c := h.refreshCookie(value)
	c.Expires = exp
	http.SetCookie(w, c)
}

// expireRefreshCookie tells the client to drop the cookie. It is sent even
// when no session was found so logout is always clean.
func (h *Handler) expireRefreshCookie(w http.ResponseWriter) {
	c := h.refreshCookie("")
	c.Expires = time.Unix(0, 0).UTC()
	c.MaxAge = -1
	http.SetCookie(w, c)
}

func (h *Handler) refreshCookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    value,
		Path:     h.cfg.CookiePath,
		Domain:   h.cfg.CookieDomain,
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: h.cfg.cookieSameSite(),
	}
}
