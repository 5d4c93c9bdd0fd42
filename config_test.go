package goSession

import (
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/credential"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "base url valid",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "https://api.example.com/v1"
			},
			wantValid: true,
		},
		{
			name: "base url relative invalid",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "/v1"
			},
			wantValid: false,
		},
		{
			name: "base url scheme invalid",
			mutate: func(c *Config) {
				c.Transport.BaseURL = "ftp://example.com"
			},
			wantValid: false,
		},
		{
			name: "negative timeout invalid",
			mutate: func(c *Config) {
				c.Transport.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "blank auth header invalid",
			mutate: func(c *Config) {
				c.Transport.AuthHeader = "  "
			},
			wantValid: false,
		},
		{
			name: "request id header clashes with auth header",
			mutate: func(c *Config) {
				c.Transport.RequestIDHeader = "authorization"
			},
			wantValid: false,
		},
		{
			name: "request id disabled valid",
			mutate: func(c *Config) {
				c.Transport.RequestIDHeader = ""
			},
			wantValid: true,
		},
		{
			name: "raw token scheme valid",
			mutate: func(c *Config) {
				c.Transport.AuthScheme = ""
			},
			wantValid: true,
		},
		{
			name: "multi-word scheme invalid",
			mutate: func(c *Config) {
				c.Transport.AuthScheme = "Bearer token"
			},
			wantValid: false,
		},
		{
			name: "refresh path relative invalid",
			mutate: func(c *Config) {
				c.Refresh.Path = "sessions/refresh-token"
			},
			wantValid: false,
		},
		{
			name: "no auth codes invalid",
			mutate: func(c *Config) {
				c.Refresh.AuthErrorCodes = nil
			},
			wantValid: false,
		},
		{
			name: "blank auth code invalid",
			mutate: func(c *Config) {
				c.Refresh.AuthErrorCodes = []string{"token.expired", ""}
			},
			wantValid: false,
		},
		{
			name: "negative refresh timeout invalid",
			mutate: func(c *Config) {
				c.Refresh.Timeout = -time.Second
			},
			wantValid: false,
		},
		{
			name: "sign-in path invalid",
			mutate: func(c *Config) {
				c.SignIn.Path = ""
			},
			wantValid: false,
		},
		{
			name: "audit zero buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
			if err != nil && err.Error() != strings.ToLower(err.Error()[:1])+err.Error()[1:] {
				t.Fatalf("error string must start lowercase, got %q", err)
			}
		})
	}
}

func TestCloneConfigCopiesAuthCodes(t *testing.T) {
	cfg := DefaultConfig()
	out := cloneConfig(cfg)
	out.Refresh.AuthErrorCodes[0] = "mutated"
	if cfg.Refresh.AuthErrorCodes[0] != "token.expired" {
		t.Fatal("clone must not share the auth code slice")
	}
}

func TestBuilderRequirements(t *testing.T) {
	if _, err := New().Build(); err == nil || !strings.Contains(err.Error(), "store") {
		t.Fatalf("expected missing store error, got %v", err)
	}

	_, err := New().WithStore(credential.NewMemoryStore(nil)).Build()
	if err == nil || err.Error() != "transport base URL required when no transport is supplied" {
		t.Fatalf("expected missing base url error, got %v", err)
	}

	b := New().WithStore(credential.NewMemoryStore(nil)).WithConfig(func() Config {
		cfg := DefaultConfig()
		cfg.Transport.BaseURL = "http://127.0.0.1:1"
		return cfg
	}())
	c, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()
	if _, err := b.Build(); err == nil {
		t.Fatal("expected builder reuse to fail")
	}
}

func TestBuilderCustomAuthCodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Refresh.AuthErrorCodes = []string{"jwt_expired"}
	c, err := New().WithConfig(cfg).WithStore(credential.NewMemoryStore(nil)).WithTransport(newFakeAPI()).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer c.Close()

	cfg.Refresh.AuthErrorCodes[0] = "changed-after-build"
	if _, ok := c.authCodes["jwt_expired"]; !ok {
		t.Fatal("client must keep its own copy of the auth codes")
	}
	if _, ok := c.authCodes["token.expired"]; ok {
		t.Fatal("default codes must be replaced, not merged")
	}
}
