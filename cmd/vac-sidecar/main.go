// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// vac-sidecar is the capability-authorization proxy: it binds an
// inbound HTTP listener, verifies every request's capability token and
// policy against a control-plane-driven liveness state machine, and
// forwards accepted requests upstream with the real API key attached.
package main

import (
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vac-sidecar/sidecar/lib/clock"
	"github.com/vac-sidecar/sidecar/lib/config"
	"github.com/vac-sidecar/sidecar/lib/controlplane"
	"github.com/vac-sidecar/sidecar/lib/ratelimit"
	"github.com/vac-sidecar/sidecar/lib/sessionkey"
	"github.com/vac-sidecar/sidecar/lib/vactoken"
	"github.com/vac-sidecar/sidecar/proxy"
	"github.com/vac-sidecar/sidecar/state"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", "", "path to config file (overrides VAC_CONFIG)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("vac-sidecar dev")
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()

	st, err := state.New(ctx, cfg, clk)
	if err != nil {
		return fmt.Errorf("building sidecar state: %w", err)
	}
	defer st.Close(context.Background())

	logger.Info("vac-sidecar starting",
		"sidecar_id", st.SidecarID,
		"upstream_url", cfg.UpstreamURL,
		"control_plane_url", cfg.ControlPlaneURL,
	)

	limiter := ratelimit.New(cfg.RateLimitRequestsPerSecond, cfg.RateLimitBurst)
	handler, err := proxy.NewHandler(st, limiter, clk, cfg.UpstreamURL, logger)
	if err != nil {
		return fmt.Errorf("building request handler: %w", err)
	}

	server := proxy.NewServer(cfg.ListenAddress, handler, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	rotator := sessionkey.NewRotator(st.Sessions, clk, time.Duration(cfg.RotationIntervalSeconds)*time.Second, logger)
	go rotator.Run(ctx)

	startHeartbeatMonitor(ctx, cfg, st, clk, rotator, logger)

	<-ctx.Done()
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// loadConfig loads from -config if given, otherwise falls back to
// VAC_CONFIG via config.Load — flag takes precedence over
// environment, matching the documented CLI > env > file precedence.
func loadConfig(configPath string) (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// startHeartbeatMonitor wires the control-plane heartbeat loop: on
// success it merges revocations and, if the sidecar was in lockdown,
// exits lockdown and triggers an out-of-cadence key rotation; on
// failure or an explicit unhealthy response it enters lockdown.
func startHeartbeatMonitor(ctx context.Context, cfg *config.Config, st *state.State, clk clock.Clock, rotator *sessionkey.Rotator, logger *slog.Logger) *controlplane.Monitor {
	client := controlplane.NewClient(cfg.ControlPlaneURL, st.SidecarID, &http.Client{Timeout: controlplane.HeartbeatDeadline + 5*time.Second})
	monitor := controlplane.NewMonitor(client, clk, time.Duration(cfg.HeartbeatIntervalSeconds)*time.Second, logger)
	monitor.SessionPublicKey = func() ed25519.PublicKey {
		return st.Sessions.Current().Public
	}

	monitor.OnRevoked = func(ids []vactoken.ID) {
		st.Revocations.Merge(ids)
	}
	monitor.OnSuccess = func() {
		st.RecordHeartbeat(clk.Now())
	}
	monitor.OnFailure = func(err error) {
		st.RecordHeartbeatFailure()
	}
	monitor.OnLockdownEnter = func() {
		st.EnterLockdown()
		logger.Warn("sidecar entering lockdown")
	}
	monitor.OnLockdownExit = func() {
		st.ExitLockdown()
		logger.Info("sidecar exiting lockdown, rotating session key")
		rotator.RotateNow()
	}

	go monitor.Run(ctx)
	return monitor
}
