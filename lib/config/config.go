// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the sidecar's configuration.
type Config struct {
	// ListenAddress is the inbound HTTP listen address, e.g.
	// "127.0.0.1:8443" or "unix:/run/vac/sidecar.sock".
	ListenAddress string `yaml:"listen_address"`

	// UpstreamURL is the base URL requests are forwarded to once
	// authorized.
	UpstreamURL string `yaml:"upstream_url"`

	// RootPublicKeyHex is the hex-encoded Ed25519 public key that
	// anchors every root credential and delegation token.
	RootPublicKeyHex string `yaml:"root_public_key"`

	// APIKey is injected into the Authorization header of every
	// forwarded request. Never logged, never echoed back.
	APIKey string `yaml:"api_key"`

	// ControlPlaneURL is the base URL of the heartbeat control plane.
	ControlPlaneURL string `yaml:"control_plane_url"`

	// HeartbeatIntervalSeconds is the interval between heartbeat polls.
	HeartbeatIntervalSeconds int `yaml:"heartbeat_interval_secs"`

	// RotationIntervalSeconds is the interval between session key
	// rotations.
	RotationIntervalSeconds int `yaml:"rotation_interval_secs"`

	// AdaptersDir, if set, is scanned at startup for .wasm adapter
	// modules, each indexed by the SHA-256 of its bytes.
	AdaptersDir string `yaml:"adapters_dir"`

	// RateLimitRequestsPerSecond and RateLimitBurst configure the
	// per-path token bucket guarding the proxy endpoint.
	RateLimitRequestsPerSecond float64 `yaml:"rate_limit_requests_per_second"`
	RateLimitBurst             int     `yaml:"rate_limit_burst"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`
}

// Default returns a Config with sensible zero-values for every field
// except the four security-sensitive fields, which are intentionally
// left empty — [Config.Validate] rejects an empty RootPublicKeyHex or
// APIKey so the sidecar refuses to start half-configured rather than
// silently running open.
func Default() *Config {
	return &Config{
		ListenAddress:              "127.0.0.1:8443",
		HeartbeatIntervalSeconds:   60,
		RotationIntervalSeconds:    300,
		RateLimitRequestsPerSecond: 100,
		RateLimitBurst:             200,
		LogLevel:                   "info",
		LogFormat:                  "text",
	}
}

// Load loads configuration from the VAC_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks for the file location — if VAC_CONFIG is not
// set, this fails.
func Load() (*Config, error) {
	path := os.Getenv("VAC_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("VAC_CONFIG environment variable not set; " +
			"set it to the path of your sidecar config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, then applies
// the environment-variable overrides for the security-sensitive fields
// and expands ${VAR} references in path-like fields.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvOverrides lets the four security-sensitive fields be set (or
// overridden) by environment variables, regardless of what the config
// file contains.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VAC_ROOT_PUBLIC_KEY"); v != "" {
		c.RootPublicKeyHex = v
	}
	if v := os.Getenv("VAC_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("VAC_UPSTREAM_URL"); v != "" {
		c.UpstreamURL = v
	}
	if v := os.Getenv("VAC_CONTROL_PLANE_URL"); v != "" {
		c.ControlPlaneURL = v
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in the
// adapters directory path, the one field a deploy might template.
func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.AdaptersDir = expandVars(c.AdaptersDir, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. The sidecar must crash
// rather than start if the root public key or API key is missing —
// either one means every request would be either unverifiable or
// forwarded without credentials.
func (c *Config) Validate() error {
	var errs []error

	if c.ListenAddress == "" {
		errs = append(errs, fmt.Errorf("listen_address is required"))
	}
	if c.UpstreamURL == "" {
		errs = append(errs, fmt.Errorf("upstream_url is required"))
	}
	if c.RootPublicKeyHex == "" {
		errs = append(errs, fmt.Errorf("root_public_key is required (set VAC_ROOT_PUBLIC_KEY or the config file field)"))
	} else if _, err := hex.DecodeString(c.RootPublicKeyHex); err != nil {
		errs = append(errs, fmt.Errorf("root_public_key is not valid hex: %w", err))
	}
	if c.APIKey == "" {
		errs = append(errs, fmt.Errorf("api_key is required (set VAC_API_KEY or the config file field)"))
	}
	if c.ControlPlaneURL == "" {
		errs = append(errs, fmt.Errorf("control_plane_url is required"))
	}
	if c.HeartbeatIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("heartbeat_interval_secs must be positive"))
	}
	if c.RotationIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("rotation_interval_secs must be positive"))
	}

	logLevels := []string{"debug", "info", "warn", "error"}
	if !contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", logLevels))
	}
	logFormats := []string{"text", "json"}
	if !contains(logFormats, c.LogFormat) {
		errs = append(errs, fmt.Errorf("log_format must be one of: %v", logFormats))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
