package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"restock-watcher/internal/types"
	"restock-watcher/monitor"
	"restock-watcher/store"
)

// Runner runs poll cycles
type Runner interface {
	RunCycle(ctx context.Context) (*monitor.CycleReport, error)
	Targets() []types.MonitorTarget
}

// APIResponse represents the response envelope of every endpoint
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusData is the body of GET /status
type StatusData struct {
	Targets   []types.MonitorTarget `json:"targets"`
	LastCycle *monitor.CycleReport  `json:"last_cycle,omitempty"`
	Records   []store.Record        `json:"records,omitempty"`
}

// Server holds the API server state
type Server struct {
	logger types.Logger
	runner Runner
	store  store.StatusStore

	// running serializes cycles; the page session is not shared
	running sync.Mutex

	mu   sync.RWMutex
	last *monitor.CycleReport
}

// NewServer creates a new API server. statusStore may be nil.
func NewServer(runner Runner, statusStore store.StatusStore, logger types.Logger) *Server {
	return &Server{
		logger: logger,
		runner: runner,
		store:  statusStore,
	}
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Post("/check", s.handleCheck)

	return r
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.send(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	data := StatusData{Targets: s.runner.Targets()}

	s.mu.RLock()
	data.LastCycle = s.last
	s.mu.RUnlock()

	if s.store != nil {
		records, err := s.store.List(r.Context())
		if err != nil {
			s.logger.Errorf("Failed to list statuses: %v", err)
			s.sendError(w, "failed to read status store", http.StatusInternalServerError)
			return
		}
		data.Records = records
	}

	s.send(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

// handleCheck runs one cycle synchronously
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if !s.running.TryLock() {
		s.sendError(w, "a check is already running", http.StatusConflict)
		return
	}
	defer s.running.Unlock()

	s.logger.Info("API check requested")
	report, err := s.runner.RunCycle(r.Context())
	if err != nil {
		s.logger.Errorf("Check failed: %v", err)
		s.sendError(w, err.Error(), http.StatusBadGateway)
		return
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	s.send(w, http.StatusOK, APIResponse{Success: true, Data: report})
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	s.send(w, statusCode, APIResponse{Success: false, Error: message})
}

func (s *Server) send(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Errorf("Failed to encode response: %v", err)
	}
}
