// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// Server binds the sidecar's inbound listener — TCP by default, or a
// Unix socket when listen_address carries a "unix:" prefix — and
// serves Handler on it until Shutdown is called. Modeled on the
// teacher's proxy.Server, trimmed to the single listener this sidecar
// needs (no separate admin socket: every endpoint here is the one
// proxy path, there is no agent/daemon trust split to mirror).
type Server struct {
	listenAddress string
	httpServer    *http.Server
	listener      net.Listener
	logger        *slog.Logger
}

// NewServer builds a Server that serves handler on listenAddress.
func NewServer(listenAddress string, handler http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()
	mux.Handle("/", handler)

	return &Server{
		listenAddress: listenAddress,
		logger:        logger,
		httpServer: &http.Server{
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 5 * time.Minute, // accommodate long upstream calls
		},
	}
}

// Start begins listening and serving in a background goroutine. It
// returns once the listener is bound, mirroring the teacher's
// Start/Serve split so callers can rely on the socket existing (or
// the port being held) by the time Start returns.
func (s *Server) Start() error {
	network, address := parseListenAddress(s.listenAddress)

	if network == "unix" {
		if err := os.Remove(address); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing socket: %w", err)
		}
	}

	listener, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("listening on %s %s: %w", network, address, err)
	}
	s.listener = listener

	if network == "unix" {
		if err := os.Chmod(address, 0o660); err != nil {
			listener.Close()
			return fmt.Errorf("chmod socket: %w", err)
		}
	}

	s.logger.Info("vac sidecar listening", "network", network, "address", address)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("proxy server error", "error", err)
		}
	}()

	notifySystemd("READY=1")
	return nil
}

// Shutdown gracefully drains in-flight requests and closes the
// listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down vac sidecar")
	err := s.httpServer.Shutdown(ctx)
	if network, address := parseListenAddress(s.listenAddress); network == "unix" {
		os.Remove(address)
	}
	return err
}

// parseListenAddress splits a config listen_address of the form
// "unix:/path/to.sock" or "host:port" into its network and address.
func parseListenAddress(listenAddress string) (network, address string) {
	if rest, ok := strings.CutPrefix(listenAddress, "unix:"); ok {
		return "unix", rest
	}
	return "tcp", listenAddress
}

// notifySystemd signals readiness to systemd's sd_notify socket, a
// no-op when NOTIFY_SOCKET is unset.
func notifySystemd(state string) {
	socketPath := os.Getenv("NOTIFY_SOCKET")
	if socketPath == "" {
		return
	}
	conn, err := net.Dial("unixgram", socketPath)
	if err != nil {
		return
	}
	defer conn.Close()
	conn.Write([]byte(state))
}
