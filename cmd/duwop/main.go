// Command duwop is the local-dev service entry point: it loads
// configuration, initializes logging, builds the service registry and
// root CA, and hands off to the supervisor for the process lifetime.
//
// Grounded on the teacher's cmd/hostapp/main.go, whose main() loads
// config, builds a logger, constructs its dependencies, and calls into
// a run loop that blocks until a terminate signal — the same shape,
// generalized from Guild's tailscale/k8s wiring to duwop's registry/CA
// wiring.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/docxology/duwop/internal/ca"
	"github.com/docxology/duwop/internal/diagnostics"
	"github.com/docxology/duwop/internal/logctl"
	"github.com/docxology/duwop/internal/metrics"
	"github.com/docxology/duwop/internal/registry"
	"github.com/docxology/duwop/internal/supervisor"
	"github.com/docxology/duwop/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "duwop:", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	spec := cfg.DefaultLogSpec
	if spec == "" {
		spec = config.DefaultLogSpec
	}
	if err := logctl.Init(spec, cfg.LogToStderr, cfg.LogDir); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	logger := logctl.L()
	defer logger.Sync() //nolint:errcheck

	if err := os.MkdirAll(cfg.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	reg := registry.New(cfg.StateDir)

	diag, err := diagnostics.Open(cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open diagnostics: %w", err)
	}

	var root *ca.RootCA
	if !cfg.DisableTLS {
		root, err = ca.Load(cfg.CACertPath, cfg.CAKeyPath)
		if err != nil {
			return fmt.Errorf("load root ca: %w", err)
		}
		if !root.Freshness(0) {
			logger.Warn("root ca is expired or about to expire",
				zap.String("cert_path", cfg.CACertPath))
		}
	}

	if cfg.MetricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()
	sup := supervisor.New(&cfg, logger, reg, diag, root)
	return sup.Run(ctx)
}
