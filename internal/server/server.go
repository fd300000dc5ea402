// Package server exposes the agent's state and the report submission path over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/proximity-agent/internal/models"
	"github.com/benmeehan/proximity-agent/pkg/location"
	"github.com/benmeehan/proximity-agent/pkg/mqtt"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// ReportView is the read side of the pipeline plus the reset operation.
type ReportView interface {
	Reports() []models.Report
	Position() (location.Coordinate, bool)
	DistanceTo(c location.Coordinate) (float64, bool)
	AlertRadius() float64
	Alerted(id string) bool
	RequestClear() error
}

// Options configures the HTTP server.
type Options struct {
	Address      string
	CorsOrigins  []string
	SubmitTopic  string
	SubmitQOS    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
	logger zerolog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

// NewServer creates a new HTTP server
func NewServer(opts Options, view ReportView, mqttClient mqtt.MQTTClient, metricsHandler http.Handler, logger zerolog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(30 * time.Second))

	if len(opts.CorsOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CorsOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	reports := newReportHandler(view, mqttClient, opts.SubmitTopic, opts.SubmitQOS, logger)

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			r.Route("/reports", func(r chi.Router) {
				r.Get("/", reports.ListReports)
				r.Post("/", reports.SubmitReport)
			})
			r.Post("/alerts/clear", reports.ClearAlerts)
		})
	})

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}

	return &Server{
		server: &http.Server{
			Addr:         opts.Address,
			Handler:      router,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		router: router,
		logger: logger,
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves HTTP in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("http server is already running")
	}
	s.running = true
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		s.logger.Info().Str("address", s.server.Addr).Msg("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return errors.New("http server is not running")
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	<-s.done
	return err
}
