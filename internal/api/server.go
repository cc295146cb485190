package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/dreamware/herald/internal/chat"
	"github.com/dreamware/herald/internal/failover"
	"github.com/dreamware/herald/internal/membership"
	"github.com/dreamware/herald/internal/notify"
)

// ShutdownGrace bounds how long ListenAndServe waits for in-flight
// requests after its context is cancelled.
const ShutdownGrace = 5 * time.Second

// Deps are the components a Server routes requests to. Every field is
// required.
type Deps struct {
	Registry    *notify.Registry
	Dispatcher  *notify.Dispatcher
	Waiter      *notify.Waiter
	Members     *membership.Store
	State       *failover.State
	Coordinator *failover.Coordinator
	Chat        *chat.Repository
	Log         logrus.FieldLogger
}

// Server is the HTTP front end of one herald instance.
type Server struct {
	reg     *notify.Registry
	disp    *notify.Dispatcher
	waiter  *notify.Waiter
	members *membership.Store
	state   *failover.State
	coord   *failover.Coordinator
	chat    *chat.Repository
	log     logrus.FieldLogger
	router  *mux.Router
	srv     *http.Server
}

// New builds the router for d.
func New(d Deps) *Server {
	s := &Server{
		reg:     d.Registry,
		disp:    d.Dispatcher,
		waiter:  d.Waiter,
		members: d.Members,
		state:   d.State,
		coord:   d.Coordinator,
		chat:    d.Chat,
		log:     d.Log.WithField("component", "api"),
		router:  mux.NewRouter(),
	}
	s.routes()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	// Control endpoints answer even when the node is marked down.
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/fall", s.handleFall).Methods(http.MethodPost)
	r.HandleFunc("/revive", s.handleRevive).Methods(http.MethodPost)

	r.HandleFunc("/subscribe/status", s.gated(s.handleSubscribeStatus)).Methods(http.MethodGet)
	r.HandleFunc("/subscribe/user", s.gated(s.handleSubscribeUser)).Methods(http.MethodGet)
	r.HandleFunc("/notify/{group}", s.gated(s.handleNotify)).Methods(http.MethodPost)
	r.HandleFunc("/groups", s.gated(s.handleListGroups)).Methods(http.MethodGet)

	r.HandleFunc("/users", s.gated(s.handleListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/user/{id}/groups", s.gated(s.handleGetUserGroups)).Methods(http.MethodGet)
	r.HandleFunc("/user/{id}/groups", s.gated(s.handleSetUserGroups)).Methods(http.MethodPost)
	r.HandleFunc("/user/{id}/groups/{group}", s.gated(s.handleAddUserGroup)).Methods(http.MethodPost)
	r.HandleFunc("/user/{id}/groups/{group}", s.gated(s.handleRemoveUserGroup)).Methods(http.MethodDelete)

	r.HandleFunc("/login", s.gated(s.handleLogin)).Methods(http.MethodPost)
	r.HandleFunc("/create-chat", s.gated(s.handleCreateChat)).Methods(http.MethodPost)
	r.HandleFunc("/chats", s.gated(s.handleChats)).Methods(http.MethodGet)
	r.HandleFunc("/send", s.gated(s.handleSend)).Methods(http.MethodPost)
	r.HandleFunc("/messages", s.gated(s.handleMessages)).Methods(http.MethodGet)
	r.HandleFunc("/group-users", s.gated(s.handleGroupUsers)).Methods(http.MethodGet)
}

// Handler returns the full middleware chain around the router. CORS sits
// outermost so that preflight requests never reach route matching.
func (s *Server) Handler() http.Handler {
	return cors(s.requestLog(s.router))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// with ShutdownGrace.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.log.WithField("addr", l.Addr().String()).Info("listening")

	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(cctx); err != nil {
			s.log.WithError(err).Warn("graceful shutdown incomplete")
			_ = s.srv.Close()
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
