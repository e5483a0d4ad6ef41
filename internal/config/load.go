package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultIdleTimeout    = 60 * time.Second
	defaultHeaderTimeout  = 10 * time.Second
	defaultWriteStall     = 30 * time.Second
	defaultCGITimeout     = 30 * time.Second
	defaultCGIKillGrace   = 2 * time.Second
	defaultShutdownGrace  = 5 * time.Second
	defaultMaxHeaderBytes = 16 << 10
	defaultMaxConnections = 1024
	defaultMaxCGIChildren = 64
	defaultHighWaterMark  = 1 << 20
	defaultLowWaterMark   = 256 << 10
	defaultSessionCookie  = "SESSIONID"
	defaultRedirectStatus = 301
)

// Load reads and validates the configuration file at path. Any error here
// is fatal to the process (exit code 1): one invalid server block fails the
// whole load rather than starting with a partial configuration.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: reading %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parsing %s", path)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, errors.Wrapf(err, "config: validating %s", path)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.HeaderTimeout == 0 {
		cfg.HeaderTimeout = defaultHeaderTimeout
	}
	if cfg.WriteStallTime == 0 {
		cfg.WriteStallTime = defaultWriteStall
	}
	if cfg.CGITimeout == 0 {
		cfg.CGITimeout = defaultCGITimeout
	}
	if cfg.CGIKillGrace == 0 {
		cfg.CGIKillGrace = defaultCGIKillGrace
	}
	if cfg.ShutdownGrace == 0 {
		cfg.ShutdownGrace = defaultShutdownGrace
	}
	if cfg.MaxHeaderBytes == 0 {
		cfg.MaxHeaderBytes = defaultMaxHeaderBytes
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = defaultMaxConnections
	}
	if cfg.MaxCGIChildren == 0 {
		cfg.MaxCGIChildren = defaultMaxCGIChildren
	}
	if cfg.WriteHighWaterMk == 0 {
		cfg.WriteHighWaterMk = defaultHighWaterMark
	}
	if cfg.WriteLowWaterMk == 0 {
		cfg.WriteLowWaterMk = defaultLowWaterMark
	}
	for _, sb := range cfg.Servers {
		if sb.SessionCookie == "" {
			sb.SessionCookie = defaultSessionCookie
		}
		if sb.MaxBodySize == 0 {
			sb.MaxBodySize = 10 << 20
		}
		for _, r := range sb.Routes {
			if r.RedirectTarget != "" && r.RedirectStatus == 0 {
				r.RedirectStatus = defaultRedirectStatus
			}
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Servers) == 0 {
		return fmt.Errorf("no server blocks defined")
	}
	for i, sb := range cfg.Servers {
		if len(sb.Listen) == 0 {
			return fmt.Errorf("server[%d]: no listen endpoints", i)
		}
		for _, ep := range sb.Listen {
			if ep.Port <= 0 || ep.Port > 65535 {
				return fmt.Errorf("server[%d]: invalid port %d", i, ep.Port)
			}
		}
		for j, r := range sb.Routes {
			if r.Prefix == "" || r.Prefix[0] != '/' {
				return fmt.Errorf("server[%d].route[%d]: prefix must begin with /", i, j)
			}
			if r.RedirectTarget == "" && r.Root == "" && !r.UploadEnabled {
				return fmt.Errorf("server[%d].route[%d]: needs root, redirect or upload_enabled", i, j)
			}
		}
	}
	return nil
}
