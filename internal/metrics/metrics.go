package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Accrual metrics
	SecondsAccrued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitetime_seconds_accrued_total",
			Help: "Total seconds accrued across all domains",
		},
	)

	FlushesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetime_flushes_total",
			Help: "Accrual flush attempts by result",
		},
		[]string{"result"}, // "accrued", "skipped", "error"
	)

	// Focus metrics
	FocusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetime_focus_changes_total",
			Help: "Tab focus changes received",
		},
		[]string{"source", "tracked"},
	)

	ActiveSession = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitetime_active_session",
			Help: "1 when a trackable tab is focused, 0 otherwise",
		},
	)

	// Day metrics
	DayRollovers = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitetime_day_rollovers_total",
			Help: "Calendar day rollovers detected",
		},
	)

	DayCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitetime_day_cache_hits_total",
			Help: "Closed-day cache hits",
		},
	)

	DayCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sitetime_day_cache_misses_total",
			Help: "Closed-day cache misses",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitetime_api_requests_total",
			Help: "API requests handled",
		},
		[]string{"action", "code"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		SecondsAccrued,
		FlushesTotal,
		FocusChanges,
		ActiveSession,
		DayRollovers,
		DayCacheHits,
		DayCacheMisses,
		APIRequestsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
