// Package api exposes the election service over HTTP JSON endpoints.
package api

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aptsaicuf/election-service/internal/election"
	"github.com/aptsaicuf/election-service/internal/passkey"
	"github.com/aptsaicuf/election-service/internal/platform/config"
	"github.com/aptsaicuf/election-service/internal/session"
	"github.com/aptsaicuf/election-service/internal/storage"
)

// Config holds the HTTP listener settings.
type Config struct {
	Addr string `env:"ELECTION_HTTP_ADDR" envDefault:":8080"`
}

// LoadConfigFromEnv returns HTTP configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{Addr: ":8080"}
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	return cfg
}

// Server routes election HTTP requests to the domain services.
type Server struct {
	passkeys    *passkey.Service
	sessions    *session.Manager
	ballots     *election.BallotService
	voters      storage.VoterStore
	nominations storage.NominationStore
	logger      *log.Logger
	tracer      trace.Tracer
	clock       func() time.Time
}

// NewServer wires the HTTP surface over the domain services.
func NewServer(passkeys *passkey.Service, sessions *session.Manager, ballots *election.BallotService, voters storage.VoterStore, nominations storage.NominationStore) (*Server, error) {
	if passkeys == nil {
		return nil, fmt.Errorf("passkey service is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if ballots == nil {
		return nil, fmt.Errorf("ballot service is required")
	}
	if voters == nil {
		return nil, fmt.Errorf("voter store is required")
	}
	if nominations == nil {
		return nil, fmt.Errorf("nomination store is required")
	}
	return &Server{
		passkeys:    passkeys,
		sessions:    sessions,
		ballots:     ballots,
		voters:      voters,
		nominations: nominations,
		logger:      log.Default(),
		tracer:      otel.Tracer("election-service/api"),
		clock:       time.Now,
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/voter/register", s.handleVoterRegister)
	mux.HandleFunc("POST /api/auth/passkey/voter/register", s.handlePasskeyRegister)
	mux.HandleFunc("POST /api/auth/passkey/voter/login", s.handlePasskeyLogin)
	mux.HandleFunc("GET /api/election/options", s.handleElectionOptions)
	mux.HandleFunc("POST /api/vote/cast", s.handleVoteCast)
	return s.traced(mux)
}

// traced wraps the handler in a per-request span.
func (s *Server) traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
