// Package observability exposes a debug HTTP server over a running
// kitchen: a health probe, a JSON dump of the action log, and Prometheus
// metrics, served by a router bound to an *http.Server that is started
// and stopped through fx's lifecycle hooks.
package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/GabrielNunesIT/go-libs/metrics"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"kitchen-challenge/kitchen"
)

// Metrics is the set of Prometheus instruments this run publishes.
type Metrics struct {
	registry  *metrics.Registry
	actions   *prometheus.CounterVec
	occupancy *prometheus.GaugeVec
	ready     atomic.Bool
}

// NewMetrics builds a Registry and the instruments this package publishes.
func NewMetrics() *Metrics {
	reg := metrics.New(
		metrics.WithNamespace("kitchen_challenge"),
		metrics.WithGoCollector(),
		metrics.WithProcessCollector(),
	)
	return &Metrics{
		registry:  reg,
		actions:   reg.NewCounterVec("actions_total", "Count of kitchen actions recorded, by kind and target.", []string{"kind", "target"}),
		occupancy: reg.NewGaugeVec("storage_occupancy", "Current order count per storage location.", []string{"location"}),
	}
}

// Observe records one action and refreshes the occupancy gauges from a
// snapshot taken right after it, so the counters and the gauges stay
// consistent with each other.
func (m *Metrics) Observe(a kitchen.Action, occupancy map[kitchen.StorageLocation]int) {
	m.actions.WithLabelValues(string(a.Kind), string(a.Target)).Inc()
	for location, count := range occupancy {
		m.occupancy.WithLabelValues(string(location)).Set(float64(count))
	}
}

// MarkReady flips the readiness gate healthHandler reports.
func (m *Metrics) MarkReady() { m.ready.Store(true) }

// Server is the debug HTTP server for one run.
type Server struct {
	router  *mux.Router
	server  *http.Server
	kitchen *kitchen.Kitchen
	metrics *Metrics
	addr    string
}

// New builds a Server bound to addr, publishing k's state and m's
// metrics. It does not start listening until Start's OnStart hook runs.
func New(addr string, k *kitchen.Kitchen, m *Metrics) *Server {
	k.OnAction(func(a kitchen.Action) {
		m.Observe(a, k.Occupancy())
	})
	s := &Server{kitchen: k, metrics: m, addr: addr}
	s.router = mux.NewRouter()
	s.router.HandleFunc("/healthz", s.healthHandler).Methods(http.MethodGet)
	s.router.HandleFunc("/actions", s.actionsHandler).Methods(http.MethodGet)
	s.router.Handle("/metrics", m.registry.Handler()).Methods(http.MethodGet)
	s.server = &http.Server{Addr: addr, Handler: s.router}
	return s
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if !s.metrics.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
		return
	}
	w.Write([]byte("ok"))
}

type actionResponse struct {
	TimestampMicros int64  `json:"timestamp_micros"`
	OrderID         string `json:"order_id"`
	Action          string `json:"action"`
	Target          string `json:"target"`
}

func (s *Server) actionsHandler(w http.ResponseWriter, r *http.Request) {
	actions := s.kitchen.GetActions()
	out := make([]actionResponse, len(actions))
	for i, a := range actions {
		out[i] = actionResponse{
			TimestampMicros: a.TimestampMicros,
			OrderID:         a.OrderID,
			Action:          string(a.Kind),
			Target:          string(a.Target),
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Start registers lifecycle hooks that bring the server up on
// application start and shut it down gracefully on stop. An empty
// address leaves the server disabled: nothing listens.
func Start(lifecycle fx.Lifecycle, server *Server) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if server.addr == "" {
				return nil
			}
			go func() {
				if err := server.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					fmt.Printf("observability server error: %v\n", err)
				}
			}()
			server.metrics.MarkReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.server.Shutdown(ctx)
		},
	})
}
