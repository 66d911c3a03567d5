package authapi

import (
	"net/http"
	"strings"
	"time"

	"warden/cmd/internal/validation"
)

// RefreshCookieName is the cookie carrying the refresh token.
const RefreshCookieName = "refresh_token"

// Config controls auth API behavior. It is built by the app layer; this
// package never reads the environment.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	CookieName   string
	CookiePath   string
	CookieDomain string
	CookieSecure bool

	// LoginRatePerSecond <= 0 disables the login limiter.
	LoginRatePerSecond float64
	LoginRateBurst     int
	LoginRateIdleTTL   time.Duration

	Password validation.PasswordBounds
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:       1 << 20, // 1 MiB
		CookieName:         RefreshCookieName,
		CookiePath:         "/",
		LoginRatePerSecond: 1,
		LoginRateBurst:     10,
		LoginRateIdleTTL:   10 * time.Minute,
		Password:           validation.DefaultPasswordBounds(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = def.MaxBodyBytes
	}
	if strings.TrimSpace(c.CookieName) == "" {
		c.CookieName = def.CookieName
	}
	if strings.TrimSpace(c.CookiePath) == "" {
		c.CookiePath = def.CookiePath
	}
	if c.LoginRateBurst <= 0 {
		c.LoginRateBurst = def.LoginRateBurst
	}
	if c.LoginRateIdleTTL <= 0 {
		c.LoginRateIdleTTL = def.LoginRateIdleTTL
	}
	if c.Password.Min <= 0 && c.Password.Max <= 0 {
		c.Password = def.Password
	}
	return c
}

func (c Config) cookieSameSite() http.SameSite { return http.SameSiteLaxMode }
