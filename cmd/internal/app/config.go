package app

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"

	authapi "warden/cmd/internal/auth/api"
	"warden/cmd/internal/auth/session"
	"warden/cmd/internal/validation"
	"warden/cmd/security/password"
)

// Config contains all runtime configuration. It is decoded from the
// environment once by LoadConfig and passed down explicitly.
type Config struct {
	HTTPAddr  string `env:"WARDEN_HTTP_ADDR,default=0.0.0.0:8080"`
	LogLevel  string `env:"WARDEN_LOG_LEVEL,default=info"`
	LogFormat string `env:"WARDEN_LOG_FORMAT,default=json"`
	LogColor  bool   `env:"WARDEN_LOG_COLOR,default=false"`

	ReadHeaderTimeout time.Duration `env:"WARDEN_HTTP_READ_HEADER_TIMEOUT,default=5s"`
	ReadTimeout       time.Duration `env:"WARDEN_HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout      time.Duration `env:"WARDEN_HTTP_WRITE_TIMEOUT,default=15s"`
	IdleTimeout       time.Duration `env:"WARDEN_HTTP_IDLE_TIMEOUT,default=60s"`
	ShutdownTimeout   time.Duration `env:"WARDEN_HTTP_SHUTDOWN_TIMEOUT,default=10s"`
	MaxHeaderBytes    int           `env:"WARDEN_HTTP_MAX_HEADER_BYTES,default=1048576"`
	MaxBodyBytes      int64         `env:"WARDEN_HTTP_MAX_BODY_BYTES,default=1048576"`

	DatabaseURL   string `env:"WARDEN_DATABASE_URL"`
	DBMaxConns    int32  `env:"WARDEN_DB_MAX_CONNS,default=10"`
	DBMinConns    int32  `env:"WARDEN_DB_MIN_CONNS,default=0"`
	DBAutoMigrate bool   `env:"WARDEN_DB_AUTO_MIGRATE,default=false"`

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool `env:"WARDEN_READINESS_REQUIRE_DB,default=false"`

	JWTSecretKey       string `env:"WARDEN_JWT_SECRET_KEY"`
	AccessTokenMinutes int    `env:"WARDEN_JWT_ACCESS_TOKEN_EXPIRATION,default=15"`
	RefreshTokenDays   int    `env:"WARDEN_JWT_REFRESH_TOKEN_EXPIRATION,default=21"`

	// If true, WARDEN_TOKEN_HMAC_KEY must be set (>= 32 bytes).
	TokenHMACKey     string `env:"WARDEN_TOKEN_HMAC_KEY"`
	RequireTokenHMAC bool   `env:"WARDEN_REQUIRE_TOKEN_HMAC,default=false"`

	PasswordAlgorithm string `env:"WARDEN_PASSWORD_ALGORITHM,default=argon2id"`
	BcryptCost        int    `env:"WARDEN_BCRYPT_COST,default=12"`
	Argon2Iterations  int    `env:"WARDEN_ARGON2_ITERATIONS,default=3"`
	Argon2MemoryKiB   int    `env:"WARDEN_ARGON2_MEMORY_KIB,default=65536"`
	PasswordMinLength int    `env:"WARDEN_PASSWORD_MIN_LENGTH,default=10"`
	PasswordMaxLength int    `env:"WARDEN_PASSWORD_MAX_LENGTH,default=64"`

	TrustProxy         bool    `env:"WARDEN_TRUST_PROXY,default=false"`
	CookieSecure       bool    `env:"WARDEN_COOKIE_SECURE,default=false"`
	CookieDomain       string  `env:"WARDEN_COOKIE_DOMAIN"`
	LoginRatePerSecond float64 `env:"WARDEN_LOGIN_RATE_PER_SECOND,default=1"`
	LoginRateBurst     int     `env:"WARDEN_LOGIN_RATE_BURST,default=10"`

	// Comma-separated; "*" is allowed as the port of an origin.
	CORSOrigins          string `env:"WARDEN_CORS_ALLOWED_ORIGINS"`
	CORSAllowCredentials bool   `env:"WARDEN_CORS_ALLOW_CREDENTIALS,default=true"`
	CORSMaxAgeSeconds    int    `env:"WARDEN_CORS_MAX_AGE_SECONDS,default=600"`

	// Derived from CORSOrigins by LoadConfig.
	CORSAllowedOrigins []string
}

// LoadConfig decodes Config from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.CORSAllowedOrigins = splitList(cfg.CORSOrigins)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that tags cannot express.
func (c Config) Validate() error {
	var errs []error
	if len(strings.TrimSpace(c.JWTSecretKey)) < 32 {
		errs = append(errs, errors.New("WARDEN_JWT_SECRET_KEY must be at least 32 bytes"))
	}
	if c.AccessTokenMinutes < 1 {
		errs = append(errs, errors.New("WARDEN_JWT_ACCESS_TOKEN_EXPIRATION must be >= 1 minute"))
	}
	if c.RefreshTokenDays < 1 {
		errs = append(errs, errors.New("WARDEN_JWT_REFRESH_TOKEN_EXPIRATION must be >= 1 day"))
	}
	switch strings.ToLower(strings.TrimSpace(c.LogFormat)) {
	case "", "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("WARDEN_LOG_FORMAT must be json or pretty, got %q", c.LogFormat))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, errors.New("WARDEN_DB_MIN_CONNS exceeds WARDEN_DB_MAX_CONNS"))
	}
	if c.LoginRatePerSecond < 0 {
		errs = append(errs, errors.New("WARDEN_LOGIN_RATE_PER_SECOND must be >= 0"))
	}
	if _, err := c.PasswordConfig(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SessionConfig derives the session manager settings.
func (c Config) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.AccessTTL = time.Duration(c.AccessTokenMinutes) * time.Minute
	cfg.RefreshTTL = time.Duration(c.RefreshTokenDays) * 24 * time.Hour
	cfg.Secret = []byte(strings.TrimSpace(c.JWTSecretKey))
	return cfg
}

// PasswordConfig derives and checks the password hashing settings.
func (c Config) PasswordConfig() (password.Config, error) {
	cfg := password.DefaultConfig()
	alg, err := password.ParseAlgorithm(c.PasswordAlgorithm)
	if err != nil {
		return password.Config{}, err
	}
	cfg.Algorithm = alg
	if c.BcryptCost > 0 {
		cfg.BcryptCost = c.BcryptCost
	}
	if c.Argon2Iterations > 0 {
		cfg.Params.Iterations = clampUint32(c.Argon2Iterations)
	}
	if c.Argon2MemoryKiB > 0 {
		cfg.Params.MemoryKiB = clampUint32(c.Argon2MemoryKiB)
	}
	if c.PasswordMinLength > 0 {
		cfg.Policy.MinLength = c.PasswordMinLength
	}
	if c.PasswordMaxLength > 0 {
		cfg.Policy.MaxLength = c.PasswordMaxLength
	}
	if err := cfg.Check(); err != nil {
		return password.Config{}, err
	}
	return cfg, nil
}

// AuthConfig derives the HTTP auth settings.
func (c Config) AuthConfig(pw password.Config) authapi.Config {
	cfg := authapi.DefaultConfig()
	cfg.TrustProxy = c.TrustProxy
	if c.MaxBodyBytes > 0 {
		cfg.MaxBodyBytes = c.MaxBodyBytes
	}
	cfg.CookieSecure = c.CookieSecure
	cfg.CookieDomain = strings.TrimSpace(c.CookieDomain)
	cfg.LoginRatePerSecond = c.LoginRatePerSecond
	if c.LoginRateBurst > 0 {
		cfg.LoginRateBurst = c.LoginRateBurst
	}
	cfg.Password = validation.PasswordBounds{
		Min:      pw.Policy.MinLength,
		Max:      pw.Policy.MaxLength,
		MaxBytes: pw.MaxInputBytes(),
	}
	return cfg
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func clampUint32(n int) uint32 {
	if int64(n) > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n) // #nosec G115 -- bounded above.
}
