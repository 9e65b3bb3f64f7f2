// Package config loads and validates duwop's process configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Defaults mirror the original duwop implementation's app_defaults.
const (
	DefaultDNSPort        = 9053
	DefaultHTTPPort       = 80
	DefaultHTTPSPort      = 443
	DefaultManagementPort = 9054
	DefaultLogSpec        = "duwop:info"
	stateDirRelative      = ".duwop/state"
	logDirRelative        = ".duwop/logs"
	configRelative        = ".duwop/config.json"
	caDirRelative         = ".duwop/ca"
)

// Config holds everything the supervisor needs to start the service.
type Config struct {
	DNSPort        int    `json:"dns_port"`
	HTTPPort       int    `json:"http_port"`
	HTTPSPort      int    `json:"https_port"`
	ManagementPort int    `json:"management_port"`
	StateDir       string `json:"state_dir"`
	LogDir         string `json:"log_dir"`
	LogToStderr    bool   `json:"log_to_stderr"`
	DisableTLS     bool   `json:"disable_tls"`
	InheritSockets bool   `json:"inherit_sockets"`
	CAKeyPath      string `json:"ca_key_path"`
	CACertPath     string `json:"ca_cert_path"`
	DefaultLogSpec string `json:"default_log_spec"`
	// MetricsAddr, when non-empty, starts a debug-only Prometheus exposition
	// listener. Empty (the default) means metrics are tracked in-process but
	// never exposed over the network.
	MetricsAddr string `json:"metrics_addr,omitempty"`
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

// ConfigPath returns the on-disk location of the JSON config file.
func ConfigPath() string { return filepath.Join(homeDir(), configRelative) }

// Default returns a Config populated with duwop's documented defaults.
func Default() Config {
	home := homeDir()
	return Config{
		DNSPort:        DefaultDNSPort,
		HTTPPort:       DefaultHTTPPort,
		HTTPSPort:      DefaultHTTPSPort,
		ManagementPort: DefaultManagementPort,
		StateDir:       filepath.Join(home, stateDirRelative),
		LogDir:         filepath.Join(home, logDirRelative),
		DefaultLogSpec: DefaultLogSpec,
		CAKeyPath:      filepath.Join(home, caDirRelative, "ca.key"),
		CACertPath:     filepath.Join(home, caDirRelative, "ca.crt"),
	}
}

// Load reads the JSON config file if present, falling back to Default, then
// applies DUWOP_* environment overrides on top. This two-layer approach
// (file, then env escape hatches) mirrors the teacher's own config loading.
func Load() (Config, error) {
	cfg := Default()
	if b, err := os.ReadFile(ConfigPath()); err == nil {
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", ConfigPath(), err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read %s: %w", ConfigPath(), err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the config back to its canonical path.
func Save(cfg Config) error {
	dir := filepath.Dir(ConfigPath())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), b, 0o600)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DUWOP_DNS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.DNSPort = p
		}
	}
	if v := os.Getenv("DUWOP_HTTP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTPPort = p
		}
	}
	if v := os.Getenv("DUWOP_HTTPS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTPSPort = p
		}
	}
	if v := os.Getenv("DUWOP_MANAGEMENT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.ManagementPort = p
		}
	}
	if v := os.Getenv("DUWOP_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("DUWOP_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if os.Getenv("DUWOP_LOG_TO_STDERR") == "1" {
		cfg.LogToStderr = true
	}
	if os.Getenv("DUWOP_DISABLE_TLS") == "1" {
		cfg.DisableTLS = true
	}
	if os.Getenv("DUWOP_INHERIT_SOCKETS") == "1" {
		cfg.InheritSockets = true
	}
	if v := os.Getenv("DUWOP_CA_KEY"); v != "" {
		cfg.CAKeyPath = v
	}
	if v := os.Getenv("DUWOP_CA_CERT"); v != "" {
		cfg.CACertPath = v
	}
	if v := os.Getenv("DUWOP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// Validate checks invariants the supervisor relies on before it starts
// binding listeners.
func (c Config) Validate() error {
	if c.StateDir == "" {
		return fmt.Errorf("state_dir required")
	}
	for name, port := range map[string]int{
		"dns_port":        c.DNSPort,
		"http_port":       c.HTTPPort,
		"https_port":      c.HTTPSPort,
		"management_port": c.ManagementPort,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("%s out of range: %d", name, port)
		}
	}
	if !c.DisableTLS {
		if c.CAKeyPath == "" || c.CACertPath == "" {
			return fmt.Errorf("ca_key_path and ca_cert_path required unless disable_tls is set")
		}
	}
	return nil
}
