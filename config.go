package goSession

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds every tunable of a [Client]. Build it with [Builder]; the
// client treats its copy as immutable.
type Config struct {
	Transport TransportConfig
	Refresh   RefreshConfig
	SignIn    SignInConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig controls the default HTTP transport and request stamping.
type TransportConfig struct {
	// BaseURL is required unless a transport is supplied with Builder.WithTransport.
	BaseURL         string
	Timeout         time.Duration
	UserAgent       string
	AuthHeader      string
	AuthScheme      string
	RequestIDHeader string // empty disables request IDs
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig controls expiry detection and the refresh endpoint.
type RefreshConfig struct {
	Path string
	// AuthErrorCodes lists the server codes (or messages when no code is sent)
	// that mark a 401 reply as an expired credential.
	AuthErrorCodes []string
	// SignOutOnUnauthorized signs the owner out on a 401 reply whose code is
	// not in AuthErrorCodes.
	SignOutOnUnauthorized bool
	// Timeout bounds one refresh cycle; zero disables the bound.
	Timeout time.Duration
}

// SignInConfig controls Client.SignIn.
type SignInConfig struct {
	Path string
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used by [New].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Transport: TransportConfig{
			Timeout:         30 * time.Second,
			UserAgent:       "goSession/1",
			AuthHeader:      "Authorization",
			AuthScheme:      "Bearer",
			RequestIDHeader: "X-Request-ID",
		},
		Refresh: RefreshConfig{
			Path:                  "/sessions/refresh-token",
			AuthErrorCodes:        []string{"token.expired", "token.invalid"},
			SignOutOnUnauthorized: true,
			Timeout:               15 * time.Second,
		},
		SignIn: SignInConfig{
			Path: "/sessions",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Refresh.AuthErrorCodes = append([]string(nil), cfg.Refresh.AuthErrorCodes...)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid setting in c.
func (c *Config) Validate() error {
	if c.Transport.BaseURL != "" {
		u, err := url.Parse(c.Transport.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.New("transport base URL must be an absolute http(s) URL")
		}
	}
	if c.Transport.Timeout < 0 {
		return errors.New("transport timeout must be >= 0")
	}
	if strings.TrimSpace(c.Transport.AuthHeader) == "" {
		return errors.New("transport auth header is required")
	}
	if http.CanonicalHeaderKey(c.Transport.AuthHeader) == http.CanonicalHeaderKey(c.Transport.RequestIDHeader) {
		return errors.New("transport request id header must differ from auth header")
	}
	if strings.ContainsAny(c.Transport.AuthScheme, " \t") {
		return errors.New("transport auth scheme must be a single token")
	}

	if !strings.HasPrefix(c.Refresh.Path, "/") {
		return errors.New("refresh path must start with '/'")
	}
	if len(c.Refresh.AuthErrorCodes) == 0 {
		return errors.New("refresh auth error codes must not be empty")
	}
	for _, code := range c.Refresh.AuthErrorCodes {
		if strings.TrimSpace(code) == "" {
			return errors.New("refresh auth error codes must not contain blank codes")
		}
	}
	if c.Refresh.Timeout < 0 {
		return errors.New("refresh timeout must be >= 0")
	}

	if !strings.HasPrefix(c.SignIn.Path, "/") {
		return errors.New("sign-in path must start with '/'")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be > 0 when audit is enabled")
	}
	return nil
}
