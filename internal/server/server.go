// Package server owns the HTTP listener and the gin engine in front of the API.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/celerix-dev/celerix-contacts/internal/logging"
)

// Server serves an http.Handler over plain TCP or TLS.
type Server struct {
	handler http.Handler
	logger  *zap.Logger
	cert    *tls.Certificate

	mu       sync.Mutex
	listener net.Listener
	srv      *http.Server
	stopped  bool
}

func New(handler http.Handler, logger *zap.Logger) *Server {
	return &Server{handler: handler, logger: logging.Component(logger, "server")}
}

// SetCertificate enables TLS for subsequent calls to Listen.
func (s *Server) SetCertificate(cert tls.Certificate) {
	s.cert = &cert
}

// Listen serves on addr until Stop is called. It returns nil after a clean stop,
// including a Stop that came first.
func (s *Server) Listen(addr string) error {
	var (
		listener net.Listener
		err      error
	)
	if s.cert != nil {
		cfg := &tls.Config{Certificates: []tls.Certificate{*s.cert}, MinVersion: tls.VersionTLS12}
		listener, err = tls.Listen("tcp", addr, cfg)
	} else {
		listener, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       5 * time.Minute,
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return listener.Close()
	}
	s.listener = listener
	s.srv = srv
	s.mu.Unlock()

	s.logger.Info("listening", zap.String("addr", listener.Addr().String()), zap.Bool("tls", s.cert != nil))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr is the bound address, or "" before Listen has bound.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop drains in-flight requests until ctx expires. A Listen that has not bound
// yet returns as soon as it does.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	srv := s.srv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
