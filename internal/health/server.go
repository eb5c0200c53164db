// Package health serves GET /healthz for container probes. The report names
// the active store driver and, when the store is reachable, the size of the
// diary.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"kcal_tracker_bot/internal/logging"
)

const (
	storeCheckTimeout = 2 * time.Second
	readHeaderTimeout = 2 * time.Second

	statusOK       = "ok"
	statusDegraded = "degraded"
)

// Store is the part of a persistence gateway the probe needs.
type Store interface {
	Ping(ctx context.Context) error
	CountUsers(ctx context.Context) (int64, error)
	CountConsumed(ctx context.Context) (int64, error)
}

// Server hosts the health endpoint and owns the underlying HTTP server.
type Server struct {
	server *http.Server
	logger *logrus.Entry
	store  Store
	driver string
}

// Report is the JSON body of /healthz.
type Report struct {
	Status string `json:"status"`
	Driver string `json:"driver,omitempty"`
	Store  string `json:"store"`
	Users  *int64 `json:"users,omitempty"`
	Items  *int64 `json:"items,omitempty"`
}

// NewServer constructs a health server on port for store, labelled with the
// configured driver name.
func NewServer(port int, driver string, store Store, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger: logger.WithField("component", "health"),
		store:  store,
		driver: driver,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// ListenAndServe blocks until Shutdown. A closed server is not an error.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event":  "health_listen",
		"addr":   s.server.Addr,
		"driver": s.driver,
	}).Info("starting health server")

	err := s.server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("health server listen: %w", err)
	}

	s.logger.WithField("event", "health_stopped").Info("health server stopped")
	return nil
}

// Shutdown gracefully stops the health server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

// Check probes the store and fills in diary counts when it answers.
func (s *Server) Check(ctx context.Context) Report {
	report := Report{Status: statusOK, Driver: s.driver, Store: statusOK}

	if s.store == nil {
		s.logger.WithField("event", "health_store_missing").Warn("no store configured for health endpoint")
		return degrade(report, "missing")
	}

	ctx, cancel := context.WithTimeout(ctx, storeCheckTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.WithFields(logging.Fields{
			"event":  "health_store_error",
			"driver": s.driver,
		}).WithError(err).Warn("store ping failed during health check")
		return degrade(report, "error")
	}

	users, err := s.store.CountUsers(ctx)
	if err != nil {
		s.logger.WithField("event", "health_count_error").WithError(err).Warn("count users failed during health check")
		return degrade(report, "error")
	}
	items, err := s.store.CountConsumed(ctx)
	if err != nil {
		s.logger.WithField("event", "health_count_error").WithError(err).Warn("count consumed items failed during health check")
		return degrade(report, "error")
	}

	report.Users = &users
	report.Items = &items
	return report
}

func degrade(report Report, store string) Report {
	report.Status = statusDegraded
	report.Store = store
	return report
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Status != statusOK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(report); err != nil {
		s.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}
