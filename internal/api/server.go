package api

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server is the tracker's HTTP API server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewRouter builds the API routes for tracker.
func NewRouter(tracker Tracker, logger zerolog.Logger) *mux.Router {
	h := NewHandler(tracker, logger)

	r := mux.NewRouter()
	r.Use(loggingMiddleware(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet).Name("health")

	r.HandleFunc("/api/message", h.Message).Methods(http.MethodPost).Name("message")
	r.HandleFunc("/api/sites", h.Sites).Methods(http.MethodGet).Name("sites")
	r.HandleFunc("/api/sites/{date}", h.Day).Methods(http.MethodGet).Name("day")
	r.HandleFunc("/api/active", h.Active).Methods(http.MethodGet).Name("active")
	r.HandleFunc("/api/events/activated", h.TabActivated).Methods(http.MethodPost).Name("activated")
	r.HandleFunc("/api/events/updated", h.TabUpdated).Methods(http.MethodPost).Name("updated")

	return r
}

// NewServer creates a new API server
func NewServer(addr string, tracker Tracker, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(tracker, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting API server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()
	return nil
}

// Stop gracefully stops the API server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping API server")
	return s.server.Shutdown(ctx)
}
