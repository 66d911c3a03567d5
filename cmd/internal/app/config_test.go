package app

import (
	"strings"
	"testing"
	"time"

	"warden/cmd/security/password"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("WARDEN_JWT_SECRET_KEY", strings.Repeat("x", 32))
	t.Setenv("WARDEN_CORS_ALLOWED_ORIGINS", " https://app.example.com, ,http://127.0.0.1:* ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.HTTPAddr != "0.0.0.0:8080" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected defaults: addr=%q format=%q", cfg.HTTPAddr, cfg.LogFormat)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.MaxBodyBytes != 1<<20 {
		t.Fatalf("unexpected http defaults: %v %d", cfg.ReadHeaderTimeout, cfg.MaxBodyBytes)
	}
	want := []string{"https://app.example.com", "http://127.0.0.1:*"}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[0] != want[0] || cfg.CORSAllowedOrigins[1] != want[1] {
		t.Fatalf("CORSAllowedOrigins=%v want=%v", cfg.CORSAllowedOrigins, want)
	}

	sc := cfg.SessionConfig()
	if sc.AccessTTL != 15*time.Minute || sc.RefreshTTL != 21*24*time.Hour {
		t.Fatalf("session ttl: access=%v refresh=%v", sc.AccessTTL, sc.RefreshTTL)
	}
	if err := sc.Check(); err != nil {
		t.Fatalf("session config: %v", err)
	}

	pw, err := cfg.PasswordConfig()
	if err != nil {
		t.Fatalf("PasswordConfig: %v", err)
	}
	if pw.Algorithm != password.AlgorithmArgon2id || pw.Policy.MinLength != 10 || pw.Policy.MaxLength != 64 {
		t.Fatalf("unexpected password config: %+v", pw)
	}

	ac := cfg.AuthConfig(pw)
	if ac.Password.Min != 10 || ac.Password.Max != 64 || ac.Password.MaxBytes != 0 || ac.LoginRateBurst != 10 {
		t.Fatalf("unexpected auth config: %+v", ac)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("WARDEN_JWT_SECRET_KEY", strings.Repeat("x", 40))
	t.Setenv("WARDEN_JWT_ACCESS_TOKEN_EXPIRATION", "5")
	t.Setenv("WARDEN_JWT_REFRESH_TOKEN_EXPIRATION", "7")
	t.Setenv("WARDEN_PASSWORD_ALGORITHM", "bcrypt")
	t.Setenv("WARDEN_BCRYPT_COST", "10")
	t.Setenv("WARDEN_PASSWORD_MIN_LENGTH", "12")
	t.Setenv("WARDEN_COOKIE_SECURE", "true")
	t.Setenv("WARDEN_LOGIN_RATE_PER_SECOND", "0.5")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	sc := cfg.SessionConfig()
	if sc.AccessTTL != 5*time.Minute || sc.RefreshTTL != 7*24*time.Hour {
		t.Fatalf("session ttl: access=%v refresh=%v", sc.AccessTTL, sc.RefreshTTL)
	}
	pw, err := cfg.PasswordConfig()
	if err != nil {
		t.Fatalf("PasswordConfig: %v", err)
	}
	if pw.Algorithm != password.AlgorithmBcrypt || pw.BcryptCost != 10 || pw.Policy.MinLength != 12 {
		t.Fatalf("unexpected password config: %+v", pw)
	}
	ac := cfg.AuthConfig(pw)
	if !ac.CookieSecure || ac.LoginRatePerSecond != 0.5 || ac.Password.Min != 12 || ac.Password.MaxBytes != password.BcryptMaxBytes {
		t.Fatalf("unexpected auth config: %+v", ac)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	base := Config{
		JWTSecretKey:       strings.Repeat("x", 32),
		AccessTokenMinutes: 15,
		RefreshTokenDays:   21,
		LogFormat:          "json",
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "short secret", mutate: func(c *Config) { c.JWTSecretKey = "short" }, want: "WARDEN_JWT_SECRET_KEY"},
		{name: "zero access ttl", mutate: func(c *Config) { c.AccessTokenMinutes = 0 }, want: "WARDEN_JWT_ACCESS_TOKEN_EXPIRATION"},
		{name: "zero refresh ttl", mutate: func(c *Config) { c.RefreshTokenDays = 0 }, want: "WARDEN_JWT_REFRESH_TOKEN_EXPIRATION"},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }, want: "WARDEN_LOG_FORMAT"},
		{name: "db conns", mutate: func(c *Config) { c.DBMinConns, c.DBMaxConns = 5, 2 }, want: "WARDEN_DB_MIN_CONNS"},
		{name: "algorithm", mutate: func(c *Config) { c.PasswordAlgorithm = "md5" }, want: "unknown algorithm"},
		{name: "password bounds", mutate: func(c *Config) { c.PasswordMinLength, c.PasswordMaxLength = 70, 64 }, want: "min_len"},
	}

	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		err := cfg.Validate()
		if tc.want == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.name, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want substring %q", tc.name, err, tc.want)
		}
	}
}

func TestNewTokenHasher(t *testing.T) {
	t.Parallel()

	h, err := newTokenHasher(Config{})
	if err != nil || h.HMACEnabled() {
		t.Fatalf("blank key without policy: hmac=%v err=%v", h.HMACEnabled(), err)
	}

	if _, err := newTokenHasher(Config{RequireTokenHMAC: true}); err == nil {
		t.Fatalf("expected missing-key error")
	}
	if _, err := newTokenHasher(Config{TokenHMACKey: "short"}); err == nil {
		t.Fatalf("expected short-key error")
	}

	h, err = newTokenHasher(Config{TokenHMACKey: strings.Repeat("k", 32), RequireTokenHMAC: true})
	if err != nil || !h.HMACEnabled() {
		t.Fatalf("valid key: hmac=%v err=%v", h.HMACEnabled(), err)
	}
}
