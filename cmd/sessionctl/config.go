package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	goSession "github.com/MrEthical07/goSession"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SESSIONCTL_"

// fileConfig is the on-disk shape shared by the TOML and YAML loaders.
type fileConfig struct {
	BaseURL        string        `toml:"base_url" yaml:"base_url" mapstructure:"base_url"`
	Timeout        time.Duration `toml:"timeout" yaml:"timeout" mapstructure:"timeout"`
	AuthScheme     string        `toml:"auth_scheme" yaml:"auth_scheme" mapstructure:"auth_scheme"`
	SignInPath     string        `toml:"sign_in_path" yaml:"sign_in_path" mapstructure:"sign_in_path"`
	RefreshPath    string        `toml:"refresh_path" yaml:"refresh_path" mapstructure:"refresh_path"`
	AuthErrorCodes []string      `toml:"auth_error_codes" yaml:"auth_error_codes" mapstructure:"auth_error_codes"`
	Audit          bool          `toml:"audit" yaml:"audit" mapstructure:"audit"`
	Store          storeConfig   `toml:"store" yaml:"store" mapstructure:"store"`
}

type storeConfig struct {
	Backend     string        `toml:"backend" yaml:"backend" mapstructure:"backend"`
	Name        string        `toml:"name" yaml:"name" mapstructure:"name"`
	RedisAddr   string        `toml:"redis_addr" yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPrefix string        `toml:"redis_prefix" yaml:"redis_prefix" mapstructure:"redis_prefix"`
	RedisTTL    time.Duration `toml:"redis_ttl" yaml:"redis_ttl" mapstructure:"redis_ttl"`
	PostgresDSN string        `toml:"postgres_dsn" yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
}

func defaultFileConfig() fileConfig {
	d := goSession.DefaultConfig()
	return fileConfig{
		BaseURL:        d.Transport.BaseURL,
		Timeout:        d.Transport.Timeout,
		AuthScheme:     d.Transport.AuthScheme,
		SignInPath:     d.SignIn.Path,
		RefreshPath:    d.Refresh.Path,
		AuthErrorCodes: d.Refresh.AuthErrorCodes,
		Store:          storeConfig{Backend: "memory", Name: "default", RedisPrefix: "cs"},
	}
}

// loadFileConfig overlays path, when set, on the defaults. The format follows
// the file extension.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return fileConfig{}, fmt.Errorf("load %s: %w", path, err)
		}
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fileConfig{}, fmt.Errorf("load %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fileConfig{}, fmt.Errorf("load %s: %w", path, err)
		}
	default:
		return fileConfig{}, fmt.Errorf("load %s: unsupported config format %q", path, filepath.Ext(path))
	}
	return cfg, nil
}

// envOverrides collects SESSIONCTL_* variables, e.g. SESSIONCTL_STORE_BACKEND
// for store.backend.
func envOverrides() map[string]string {
	keys := []string{
		"base_url", "timeout", "auth_scheme", "sign_in_path", "refresh_path",
		"auth_error_codes", "audit",
		"store.backend", "store.name", "store.redis_addr", "store.redis_prefix",
		"store.redis_ttl", "store.postgres_dsn",
	}
	out := map[string]string{}
	for _, key := range keys {
		env := envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if v, ok := os.LookupEnv(env); ok {
			out[key] = v
		}
	}
	return out
}

// parseSetFlags turns repeated --set key=value pairs into a flat map.
func parseSetFlags(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}

// applyOverrides decodes dotted keys onto cfg. Only the keys present are
// touched.
func applyOverrides(cfg *fileConfig, flat map[string]string) error {
	if len(flat) == 0 {
		return nil
	}
	nested := map[string]any{}
	for key, value := range flat {
		parent, child, ok := strings.Cut(key, ".")
		if !ok {
			nested[key] = value
			continue
		}
		sub, _ := nested[parent].(map[string]any)
		if sub == nil {
			sub = map[string]any{}
			nested[parent] = sub
		}
		sub[child] = value
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return err
	}
	// mapstructure decodes into an existing slice element by element.
	if _, ok := flat["auth_error_codes"]; ok {
		cfg.AuthErrorCodes = nil
	}
	if err := dec.Decode(nested); err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	return nil
}

// clientConfig maps the CLI settings onto a client config.
func (f fileConfig) clientConfig() goSession.Config {
	cfg := goSession.DefaultConfig()
	cfg.Transport.BaseURL = strings.TrimSpace(f.BaseURL)
	cfg.Transport.Timeout = f.Timeout
	cfg.Transport.AuthScheme = f.AuthScheme
	cfg.Transport.UserAgent = "sessionctl/1"
	cfg.SignIn.Path = f.SignInPath
	cfg.Refresh.Path = f.RefreshPath
	cfg.Refresh.AuthErrorCodes = append([]string(nil), f.AuthErrorCodes...)
	cfg.Audit.Enabled = f.Audit
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}
