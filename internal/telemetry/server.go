package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"robobot-mission/internal/logger"
	"robobot-mission/internal/types"
)

// StatusSource provides the current mission snapshot.
type StatusSource interface {
	Status() types.MissionStatus
}

// NewRouter serves /metrics, /status and /healthz.
func NewRouter(m *Metrics, src StatusSource, l *logger.Logger) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(src.Status()); err != nil {
			l.Warnf("Status encode error: %v", err)
		}
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	return r
}

type Server struct {
	srv    *http.Server
	logger *logger.Logger
}

func NewServer(addr string, handler http.Handler, l *logger.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: l,
	}
}

// Start listens in the background. Listener errors are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Infof("Serving status on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("Status server error: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warnf("Graceful shutdown did not complete: %v", err)
		return s.srv.Close()
	}
	return nil
}
