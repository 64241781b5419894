// Package apiServer exposes MedVault verification over HTTP: a public
// redacted verification endpoint, and token-protected endpoints for full
// record verification and per-patient summaries.
package apiServer

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/nazeerbasha7/Med-Vault/pkg/dashboard"
	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
	"github.com/nazeerbasha7/Med-Vault/pkg/verify"
)

// Engine is the verification surface the server serves.
type Engine interface {
	VerifyRecord(ctx context.Context, id ledger.RecordID, patient ledger.Address, file []byte) (verify.Report, error)
	VerifyPublic(ctx context.Context, id ledger.RecordID) (verify.PublicReport, error)
}

// Summarizer computes per-patient dashboards.
type Summarizer interface {
	Summarize(ctx context.Context, patient ledger.Address) (dashboard.Summary, error)
}

// Server is the HTTP front of the verification core.
type Server struct {
	mux        *http.ServeMux
	engine     Engine
	summarizer Summarizer
	auth       AuthFunc
	log        *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithAuth replaces the token validator. The default rejects everything,
// so deployments must configure one (see JWTAuth).
func WithAuth(auth AuthFunc) Option {
	return func(s *Server) { s.auth = auth }
}

// New builds a server around a verification engine and a summarizer.
func New(engine Engine, summarizer Summarizer, opts ...Option) *Server {
	s := &Server{
		mux:        http.NewServeMux(),
		engine:     engine,
		summarizer: summarizer,
		auth:       denyAll,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /verify/{recordId}", s.handleVerifyPublic)
	s.mux.HandleFunc("POST /records/{recordId}/verify", s.requireAuth(s.handleVerifyRecord))
	s.mux.HandleFunc("GET /summary/{patient}", s.requireAuth(s.handleSummary))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	} else {
		w.Header().Set("Vary", "Origin")
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
	w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	w.Header().Set("Access-Control-Max-Age", "86400")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	s.mux.ServeHTTP(w, r)
}
