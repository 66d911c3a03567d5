package session

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testSecret() []byte { return []byte(strings.Repeat("s", 32)) }

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.AccessTTL != 15*time.Minute {
		t.Fatalf("access ttl=%v", cfg.AccessTTL)
	}
	if cfg.RefreshTTL != 21*24*time.Hour {
		t.Fatalf("refresh ttl=%v", cfg.RefreshTTL)
	}
	if cfg.TokenLength != 64 {
		t.Fatalf("token length=%d", cfg.TokenLength)
	}
	if err := cfg.Check(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig without secret, got %v", err)
	}
}

func TestConfig_Check(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "valid", mutate: func(*Config) {}, ok: true},
		{name: "short secret", mutate: func(c *Config) { c.Secret = []byte("short") }},
		{name: "zero access", mutate: func(c *Config) { c.AccessTTL = 0 }},
		{name: "refresh below access", mutate: func(c *Config) { c.RefreshTTL = time.Minute }},
		{name: "token too short", mutate: func(c *Config) { c.TokenLength = 16 }},
		{name: "token too long", mutate: func(c *Config) { c.TokenLength = 129 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Secret = testSecret()
			tc.mutate(&cfg)
			err := cfg.Check()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrConfig) {
				t.Fatalf("expected ErrConfig, got %v", err)
			}
		})
	}
}
