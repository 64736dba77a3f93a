// Package metrics exports controller state to Prometheus
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sysspeed/core"
	"sysspeed/host/mcu"
)

var (
	// Load metrics
	LoadPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sysspeed_load_percent",
			Help: "Share of cycles spent awake in the last valid sample",
		},
	)

	AwakeCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sysspeed_awake_cycles_total",
			Help: "Cycles spent awake, summed over load samples",
		},
	)

	AsleepCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sysspeed_asleep_cycles_total",
			Help: "Cycles spent asleep, summed over load samples",
		},
	)

	LoadSamples = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sysspeed_load_samples_total",
			Help: "Load samples received",
		},
		[]string{"valid"},
	)

	// Clock metrics
	ClockHz = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sysspeed_clock_hz",
			Help: "Core clock frequency",
		},
	)

	PLLField = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sysspeed_pll_field",
			Help: "PLL configuration register fields",
		},
		[]string{"field"},
	)

	PLLSwitches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sysspeed_pll_switches_total",
			Help: "PLL reconfiguration requests by outcome",
		},
		[]string{"status"},
	)

	// Link metrics
	LinkErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sysspeed_link_errors_total",
			Help: "Failed queries to the controller",
		},
	)

	Shutdown = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sysspeed_mcu_shutdown",
			Help: "1 while the controller reports shutdown",
		},
	)
)

func init() {
	prometheus.MustRegister(
		LoadPercent,
		AwakeCycles,
		AsleepCycles,
		LoadSamples,
		ClockHz,
		PLLField,
		PLLSwitches,
		LinkErrors,
		Shutdown,
	)
}

// ObserveLoad records one load report. An empty epoch only bumps the
// invalid sample counter.
func ObserveLoad(r mcu.LoadReport) {
	if !r.Valid {
		LoadSamples.WithLabelValues("false").Inc()
		return
	}
	LoadSamples.WithLabelValues("true").Inc()
	LoadPercent.Set(r.Percent)
	AwakeCycles.Add(float64(r.AwakeCycles))
	AsleepCycles.Add(float64(r.AsleepCycles))
}

// ObserveClock records the core clock
func ObserveClock(hz uint32) {
	ClockHz.Set(float64(hz))
}

// ObservePLL records the PLL register fields
func ObservePLL(cfg core.PLLConfig) {
	PLLField.WithLabelValues("m").Set(float64(cfg.M))
	PLLField.WithLabelValues("n").Set(float64(cfg.N))
	PLLField.WithLabelValues("p").Set(float64(cfg.P))
	PLLField.WithLabelValues("q").Set(float64(cfg.Q))
	PLLField.WithLabelValues("r").Set(float64(cfg.R))
}

// ObservePLLResult records a reconfiguration outcome and the new clock
func ObservePLLResult(res mcu.PLLResult) {
	PLLSwitches.WithLabelValues(res.Status).Inc()
	ObserveClock(res.ClockHz)
}

// ObserveShutdown records the controller's shutdown state
func ObserveShutdown(down bool) {
	if down {
		Shutdown.Set(1)
		return
	}
	Shutdown.Set(0)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // optional, from systemd socket activation
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

// Start serves in the background
func (s *Server) Start() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.server.Addr)
		if err != nil {
			return err
		}
		s.listener = ln
	}
	s.logger.Info().Str("addr", s.listener.Addr().String()).Msg("Starting metrics server")
	go func() {
		if err := s.server.Serve(s.listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
