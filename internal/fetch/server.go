package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yomu-app/yomu/internal/uilog"
)

// Server exposes the fetch queue over HTTP: job CRUD, a progress
// WebSocket, and Prometheus metrics.
type Server struct {
	queue  *Queue
	addr   string
	router chi.Router
}

// NewServer creates a server for queue listening on addr.
func NewServer(queue *Queue, addr string) *Server {
	s := &Server{queue: queue, addr: addr}
	s.router = s.setupRouter()
	return s
}

// setupRouter configures all routes.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleAddJob)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Delete("/jobs/{jobID}", s.handleCancelJob)
		r.Get("/jobs/{jobID}/ws", s.handleJobWS)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}

// Router returns the chi router for tests and embedding.
func (s *Server) Router() chi.Router {
	return s.router
}

// Addr returns the server address.
func (s *Server) Addr() string { return s.addr }

// ListenAndServe starts the HTTP server and blocks until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Fetch queue running at http://%s\n", ln.Addr())
	return srv.Serve(ln)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.queue.List()
	SortJobs(jobs)
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Chapter string `json:"chapter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "Failed to parse request body")
		return
	}
	if req.Chapter == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "chapter is required")
		return
	}
	job, err := s.queue.Add(req.Chapter)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "queue_full", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.queue.Get(chi.URLParam(r, "jobID"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no such job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	if !s.queue.Cancel(id) {
		writeError(w, http.StatusConflict, "not_cancelable", "job is finished or unknown")
		return
	}
	job, _ := s.queue.Get(id)
	writeJSON(w, http.StatusOK, job)
}

// handleJobWS upgrades to WebSocket and streams a job's progress events.
func (s *Server) handleJobWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, ok := s.queue.Get(jobID); !ok {
		writeError(w, http.StatusNotFound, "not_found", "no such job")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // local companion service
	})
	if err != nil {
		uilog.Log.Error("WebSocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	ch, unsub := s.queue.Subscribe(jobID)
	defer unsub()

	wsConnectionsActive.Inc()
	defer wsConnectionsActive.Dec()
	uilog.Log.Info("WebSocket client connected", "job_id", jobID)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "server shutting down")
			return
		case p, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "subscription closed")
				return
			}
			data, err := json.Marshal(p)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				uilog.Log.Debug("WS write failed", "job_id", jobID, "error", err)
				return
			}
			// Terminal states end the stream.
			if p.Status == StatusDone || p.Status == StatusFailed || p.Status == StatusCanceled {
				conn.Close(websocket.StatusNormalClosure, "job finished")
				return
			}
		}
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is an API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, msg string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: msg})
}
