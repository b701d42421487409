// Package web exposes the auth and trip-access core over HTTP JSON endpoints.
package web

import (
	"log"
	"net/http"
	"time"

	"github.com/tripfolio/tripfolio/internal/auth/ceremony"
	"github.com/tripfolio/tripfolio/internal/auth/session"
	"github.com/tripfolio/tripfolio/internal/platform/id"
	"github.com/tripfolio/tripfolio/internal/storage"
	"github.com/tripfolio/tripfolio/internal/trips/access"
	"github.com/tripfolio/tripfolio/internal/trips/invite"
)

// Server wires the ceremony, session, access, and invite services behind HTTP
// handlers. It holds no state of its own; everything lives in the services and
// their stores.
type Server struct {
	ceremonies *ceremony.Service
	sessions   *session.Issuer
	resolver   *access.Resolver
	ledger     *invite.Ledger
	accounts   storage.AccountStore
	trips      storage.TripStore
	grants     storage.GrantStore

	sessionTTL  time.Duration
	clock       func() time.Time
	idGenerator func() (string, error)
	logger      *log.Logger
}

// Config carries the server's collaborators.
type Config struct {
	Ceremonies *ceremony.Service
	Sessions   *session.Issuer
	Resolver   *access.Resolver
	Ledger     *invite.Ledger
	Accounts   storage.AccountStore
	Trips      storage.TripStore
	Grants     storage.GrantStore
	SessionTTL time.Duration
	Logger     *log.Logger
}

// NewServer builds the HTTP server over the given services.
func NewServer(config Config) *Server {
	logger := config.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		ceremonies:  config.Ceremonies,
		sessions:    config.Sessions,
		resolver:    config.Resolver,
		ledger:      config.Ledger,
		accounts:    config.Accounts,
		trips:       config.Trips,
		grants:      config.Grants,
		sessionTTL:  config.SessionTTL,
		clock:       time.Now,
		idGenerator: id.NewID,
		logger:      logger,
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register/begin", s.handleRegisterBegin)
	mux.HandleFunc("POST /auth/register/finish", s.handleRegisterFinish)
	mux.HandleFunc("POST /auth/login/begin", s.handleLoginBegin)
	mux.HandleFunc("POST /auth/login/finish", s.handleLoginFinish)

	mux.Handle("GET /me", s.requireSession(http.HandlerFunc(s.handleMe)))
	mux.Handle("GET /me/credentials", s.requireSession(http.HandlerFunc(s.handleMyCredentials)))
	mux.Handle("GET /me/grants", s.requireSession(http.HandlerFunc(s.handleMyGrants)))

	mux.Handle("POST /invites", s.requireSession(http.HandlerFunc(s.handleCreateInvite)))
	mux.Handle("POST /invites/redeem", s.requireSession(http.HandlerFunc(s.handleRedeemInvite)))

	mux.Handle("POST /trips", s.requireSession(http.HandlerFunc(s.handleCreateTrip)))
	mux.Handle("GET /trips/{trip}", s.requireSession(http.HandlerFunc(s.handleGetTrip)))
	mux.Handle("PATCH /trips/{trip}", s.requireSession(http.HandlerFunc(s.handleUpdateTrip)))
	mux.Handle("POST /trips/{trip}/grants", s.requireSession(http.HandlerFunc(s.handleUpsertGrant)))

	return mux
}
