package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/artifacts"
	"github.com/LABCoasty/SATOR-Ops-sub000/pkg/verifier"
)

// Server exposes address derivation, record reads and verification over HTTP.
type Server struct {
	verifier *verifier.Verifier
	packets  artifacts.Store
	limiter  *RateLimiter
	health   func(context.Context) error
	logger   *slog.Logger
}

type Option func(*Server)

// WithPacketStore enables POST /v1/packets.
func WithPacketStore(s artifacts.Store) Option {
	return func(srv *Server) { srv.packets = s }
}

func WithRateLimiter(rl *RateLimiter) Option {
	return func(srv *Server) { srv.limiter = rl }
}

// WithHealthCheck adds a ledger check to /healthz.
func WithHealthCheck(fn func(context.Context) error) Option {
	return func(srv *Server) { srv.health = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

func NewServer(v *verifier.Verifier, opts ...Option) *Server {
	s := &Server{
		verifier: v,
		logger:   slog.Default().With("component", "api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog(s.logger))
	if s.limiter != nil {
		r.Use(s.limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "The HTTP method is not supported for this endpoint")
	})

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(api chi.Router) {
		api.Route("/incidents/{id}", func(inc chi.Router) {
			inc.Get("/address", s.handleAddress)
			inc.Get("/anchor", s.handleAnchor)
			inc.Post("/verify", s.handleVerify)
			inc.Get("/verify", s.handleVerifyPacket)
		})
		api.Post("/artifacts/hash", s.handleHash)
		api.Post("/packets", s.handlePublish)
	})
	return r
}
