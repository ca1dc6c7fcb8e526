package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oriser/roomies/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// UserHeader carries the acting user. Authentication happens in front of this server.
const UserHeader = "X-User-ID"

type Config struct {
	Port                       uint          `env:"API_PORT" envDefault:"8080"`
	MaxConcurrentExpenseEvents int           `env:"API_MAX_CONCURRENT_EXPENSE_EVENTS" envDefault:"16"`
	EnqueueTimeout             time.Duration `env:"API_ENQUEUE_TIMEOUT" envDefault:"1s"`
	ShutdownTimeout            time.Duration `env:"API_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

type Server struct {
	service         *service.Service
	cfg             Config
	router          *mux.Router
	expenseEventsCh chan *expenseEvent
}

func New(cfg Config, svc *service.Service) *Server {
	s := &Server{
		service:         svc,
		cfg:             cfg,
		router:          mux.NewRouter(),
		expenseEventsCh: make(chan *expenseEvent),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(logRequests)

	s.router.HandleFunc("/profiles", s.addProfile).Methods(http.MethodPost)
	s.router.HandleFunc("/roommates", s.addRoommate).Methods(http.MethodPost)
	s.router.HandleFunc("/roommates", s.listRoommates).Methods(http.MethodGet)
	s.router.HandleFunc("/expenses", s.addExpense).Methods(http.MethodPost)
	s.router.HandleFunc("/expenses", s.listExpenses).Methods(http.MethodGet)
	s.router.HandleFunc("/events/expense-added", s.expenseAddedEvent).Methods(http.MethodPost)
	s.router.HandleFunc("/settlements", s.createSettlement).Methods(http.MethodPost)
	s.router.HandleFunc("/settlements", s.fetchSettlements).Methods(http.MethodGet)
	s.router.HandleFunc("/settlements/{group_id}/status", s.updateStatus).Methods(http.MethodPatch)
	s.router.HandleFunc("/settlements/{group_id}", s.deleteGroup).Methods(http.MethodDelete)
	s.router.HandleFunc("/commands/add-roommate", s.addRoommateCommand).Methods(http.MethodPost)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.service.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// Handler serves HTTP/1.1 and cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.router, &http2.Server{})
}

// StartWorkers starts the expense event workers. They stop when ctx is done.
func (s *Server) StartWorkers(ctx context.Context) {
	for i := 0; i < s.cfg.MaxConcurrentExpenseEvents; i++ {
		go s.expenseEventsWorker(ctx)
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve blocks until ctx is done or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.StartWorkers(ctx)

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
