// Package app assembles the auth and trip-access core into a runnable HTTP
// service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/tripfolio/tripfolio/internal/api/web"
	"github.com/tripfolio/tripfolio/internal/auth/ceremony"
	"github.com/tripfolio/tripfolio/internal/auth/passkey"
	"github.com/tripfolio/tripfolio/internal/auth/session"
	"github.com/tripfolio/tripfolio/internal/storage/sqlite"
	"github.com/tripfolio/tripfolio/internal/trips/access"
	"github.com/tripfolio/tripfolio/internal/trips/invite"
)

// Config holds the service-level settings not owned by a subsystem.
type Config struct {
	HTTPAddr string `env:"TRIPFOLIO_HTTP_ADDR" envDefault:":8094"`
	DBPath   string `env:"TRIPFOLIO_DB_PATH"   envDefault:"data/tripfolio.db"`
}

// LoadConfigFromEnv reads service configuration with defaults.
func LoadConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse app env: %w", err)
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		return Config{}, fmt.Errorf("TRIPFOLIO_HTTP_ADDR is required")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return Config{}, fmt.Errorf("TRIPFOLIO_DB_PATH is required")
	}
	return cfg, nil
}

// Server hosts the HTTP service and owns its store.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
	ceremonies *ceremony.Service
	sweepEvery time.Duration
}

// New creates a configured server listening on the configured address.
func New(cfg Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	sessionConfig, err := session.LoadConfigFromEnv()
	if err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	passkeyConfig := passkey.LoadConfigFromEnv()
	ceremonies := ceremony.NewService(store, store, store, passkeyConfig)
	sessions := session.NewIssuer(sessionConfig)
	resolver := access.NewResolver(store)
	ledger := invite.NewLedger(store)

	handler := web.NewServer(web.Config{
		Ceremonies: ceremonies,
		Sessions:   sessions,
		Resolver:   resolver,
		Ledger:     ledger,
		Accounts:   store,
		Trips:      store,
		Grants:     store,
		SessionTTL: sessionConfig.TTL,
	}).Handler()

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: handler},
		store:      store,
		ceremonies: ceremonies,
		sweepEvery: passkeyConfig.CeremonyTTL,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the server and blocks until it stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeStore()

	s.startSweep(serverCtx)

	log.Printf("server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
	}

	select {
	case <-ctx.Done():
		shutdown()
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// startSweep evicts expired ceremony challenges on a fixed cadence. The sweep
// is housekeeping only; an unswept expired challenge still fails consumption.
func (s *Server) startSweep(ctx context.Context) {
	interval := s.sweepEvery
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.ceremonies.SweepExpired(ctx); err != nil {
					log.Printf("sweep expired ceremonies: %v", err)
				}
			}
		}
	}()
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
}
