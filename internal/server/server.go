package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/orchestrator"
	"github.com/five82/arenaview/internal/state"
)

// Commander applies consumer commands. *orchestrator.Orchestrator satisfies it.
type Commander interface {
	CycleArt(key card.Key, dir orchestrator.Direction) (state.Snapshot, bool)
	ResetArt(key card.Key) (state.Snapshot, bool)
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address, e.g. "127.0.0.1:7777".
	Addr string
	// EmitInterval throttles snapshot forwarding.
	EmitInterval time.Duration
	// AllowedOrigins lists extra browser origins for /ws. Requests without an
	// Origin header and loopback origins are always accepted. "*" accepts all.
	AllowedOrigins []string
}

// Server exposes the snapshot feed over HTTP and WebSocket.
type Server struct {
	opts      Options
	store     *state.Store
	commands  Commander
	hub       *Hub
	forwarder *Forwarder
	upgrader  websocket.Upgrader
	router    chi.Router
	logger    zerolog.Logger
}

// New builds the server and its routes. Nothing listens until Serve.
func New(store *state.Store, commands Commander, opts Options) *Server {
	if opts.EmitInterval == 0 {
		opts.EmitInterval = DefaultEmitInterval
	}
	hub := NewHub()
	s := &Server{
		opts:      opts,
		store:     store,
		commands:  commands,
		hub:       hub,
		forwarder: NewForwarder(store, hub, opts.EmitInterval),
		logger:    logging.WithComponent("server"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

// Hub returns the client hub. Serve it alongside the server.
func (s *Server) Hub() *Hub { return s.hub }

// Forwarder returns the snapshot forwarder. Serve it alongside the server.
func (s *Server) Forwarder() *Forwarder { return s.forwarder }

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on Options.Addr until ctx ends, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("http server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn().Err(err).Msg("http shutdown")
	}
	return ctx.Err()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/snapshot", s.handleSnapshot)
	r.Get("/ws", s.handleWebSocket)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/cards/{key}", func(r chi.Router) {
		r.Post("/cycle", s.handleCycle)
		r.Delete("/art", s.handleResetArt)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"updateId": s.store.Version(),
		"clients":  s.hub.ClientCount(),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Snapshot())
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	c := newClient(s.hub, conn, s.execute)
	if !s.hub.join(c, func() Message { return snapshotMessage(s.store.Snapshot()) }) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}
	c.start()
}

func (s *Server) handleCycle(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}
	dir, err := orchestrator.ParseDirection(r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, changed := s.commands.CycleArt(key, dir)
	writeJSON(w, http.StatusOK, Ack{Command: TypeCycleArt, Changed: changed, UpdateID: snap.UpdateID})
}

func (s *Server) handleResetArt(w http.ResponseWriter, r *http.Request) {
	key, ok := keyParam(w, r)
	if !ok {
		return
	}
	snap, changed := s.commands.ResetArt(key)
	writeJSON(w, http.StatusOK, Ack{Command: TypeResetArt, Changed: changed, UpdateID: snap.UpdateID})
}

// execute runs a WebSocket command and builds the reply.
func (s *Server) execute(cmd Command) Message {
	fail := func(msg string) Message {
		return Message{Type: TypeError, Data: ErrorData{RequestID: cmd.RequestID, Message: msg}}
	}
	if strings.TrimSpace(cmd.Key) == "" && (cmd.Type == TypeCycleArt || cmd.Type == TypeResetArt) {
		return fail("missing key")
	}
	key := card.Key(cmd.Key)

	switch cmd.Type {
	case TypeCycleArt:
		dir, err := orchestrator.ParseDirection(cmd.Dir)
		if err != nil {
			return fail(err.Error())
		}
		snap, changed := s.commands.CycleArt(key, dir)
		return Message{Type: TypeAck, Data: Ack{RequestID: cmd.RequestID, Command: cmd.Type, Changed: changed, UpdateID: snap.UpdateID}}
	case TypeResetArt:
		snap, changed := s.commands.ResetArt(key)
		return Message{Type: TypeAck, Data: Ack{RequestID: cmd.RequestID, Command: cmd.Type, Changed: changed, UpdateID: snap.UpdateID}}
	default:
		return fail(fmt.Sprintf("unknown command %q", cmd.Type))
	}
}

func keyParam(w http.ResponseWriter, r *http.Request) (card.Key, bool) {
	raw, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil || strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "invalid card key")
		return "", false
	}
	return card.Key(raw), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "encoding failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
