// Package app assembles and serves the election service.
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

	"github.com/aptsaicuf/election-service/internal/api"
	"github.com/aptsaicuf/election-service/internal/election"
	"github.com/aptsaicuf/election-service/internal/passkey"
	platformotel "github.com/aptsaicuf/election-service/internal/platform/otel"
	"github.com/aptsaicuf/election-service/internal/session"
	"github.com/aptsaicuf/election-service/internal/storage/sqlite"
)

// Server hosts the election HTTP service.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *sqlite.Store
}

// New creates a configured election server listening on addr.
//
// Configuration errors, including a missing session secret, fail here at
// startup rather than on the first request.
func New(addr string) (*Server, error) {
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	sessionConfig, err := session.LoadConfigFromEnv()
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	sessions, err := session.NewManager(sessionConfig)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	passkeys, err := passkey.NewService(passkey.LoadConfigFromEnv(), store, store, sqlite.NewChallengeStore(store))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	ballots, err := election.NewBallotService(store, store, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	apiServer, err := api.NewServer(passkeys, sessions, ballots, store, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: apiServer.Handler()},
		store:      store,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an election server until the context ends.
func Run(ctx context.Context, addr string) error {
	server, err := New(addr)
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
	defer s.closeStore()

	otelShutdown, err := platformotel.Setup(ctx, "election-service")
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Printf("shutdown tracing: %v", err)
		}
	}()

	log.Printf("election server listening at %v", s.listener.Addr())
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

func openStore() (*sqlite.Store, error) {
	path := strings.TrimSpace(os.Getenv("ELECTION_DB_PATH"))
	if path == "" {
		path = filepath.Join("data", "election.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open election sqlite store: %w", err)
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
