// Package web is the localhost control plane: a JSON API over the run store
// and the tool catalog, asynchronous run submission, and a websocket stream
// of loop events.
package web

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/codefionn/agentwerk/internal/memory"
	"github.com/codefionn/agentwerk/internal/orchestrator"
	"github.com/codefionn/agentwerk/internal/task"
	"github.com/codefionn/agentwerk/internal/tools"
)

const (
	defaultAddr     = "localhost:8936"
	authTokenLength = 32
	shutdownWait    = 5 * time.Second
	listRunsLimit   = 50
	maxBodyBytes    = 1 << 20
)

// Runner executes submitted runs. *orchestrator.Loop satisfies it.
type Runner interface {
	Execute(ctx context.Context, req orchestrator.Request) *task.Run
}

// RunStore is the slice of the persistence layer the API reads.
type RunStore interface {
	GetRun(id string) (*task.Run, error)
	ListRuns(limit int) ([]*task.Run, error)
}

// Options configures the control plane. Runner and Registry are required;
// Hub defaults to a fresh hub and Store may be nil when persistence is
// disabled. An empty AuthToken means a random one is generated at startup.
type Options struct {
	Addr      string
	AuthToken string
	Runner    Runner
	Store     RunStore
	Registry  *tools.Registry
	Hub       *Hub
	Logger    *zap.Logger
}

// Server is the control plane. Every /api and /ws request must carry the
// startup bearer token; /health is open.
type Server struct {
	addr     string
	token    string
	runner   Runner
	store    RunStore
	registry *tools.Registry
	hub      *Hub
	logger   *zap.Logger

	httpServer *http.Server
	upgrader   websocket.Upgrader

	runCtx     context.Context
	cancelRuns context.CancelFunc

	mu     sync.Mutex
	active map[string]pendingRun
}

// pendingRun tracks a submitted run until it lands in the store.
type pendingRun struct {
	Input     string
	StartedAt time.Time
}

func NewServer(opts Options) (*Server, error) {
	addr := opts.Addr
	if addr == "" {
		addr = defaultAddr
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := opts.Hub
	if hub == nil {
		hub = NewHub(logger)
	}

	token := opts.AuthToken
	if token == "" {
		generated, err := generateAuthToken()
		if err != nil {
			return nil, fmt.Errorf("generate auth token: %w", err)
		}
		token = generated
	}

	runCtx, cancelRuns := context.WithCancel(context.Background())
	s := &Server{
		addr:     addr,
		token:    token,
		runner:   opts.Runner,
		store:    opts.Store,
		registry: opts.Registry,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The token authorizes the dial; an origin check would only
			// block local pages.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		runCtx:     runCtx,
		cancelRuns: cancelRuns,
		active:     make(map[string]pendingRun),
	}

	router := httprouter.New()
	router.GET("/health", s.handleHealth)
	router.GET("/api/v1/tools", s.auth(s.handleTools))
	router.GET("/api/v1/runs", s.auth(s.handleListRuns))
	router.GET("/api/v1/runs/:id", s.auth(s.handleGetRun))
	router.POST("/api/v1/runs", s.auth(s.handleSubmitRun))
	router.GET("/ws", s.auth(s.handleWebSocket))

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start binds the listener and serves in the background. The bind is
// synchronous so port conflicts surface here.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	go s.hub.Run()
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("control plane server failed", zap.Error(err))
		}
	}()

	// The token appears in the log exactly once.
	s.logger.Info("control plane listening",
		zap.String("addr", s.addr),
		zap.String("token", s.token))
	return nil
}

// Stop cancels in-flight runs, disconnects websocket clients and shuts the
// HTTP server down gracefully. Cancelled runs fold the cancellation into
// their terminal status and persist before their goroutines exit.
func (s *Server) Stop() error {
	s.cancelRuns()
	s.hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the bound address, available after Start.
func (s *Server) Addr() string { return s.addr }

// Token returns the bearer token clients must present.
func (s *Server) Token() string { return s.token }

// auth rejects requests without the startup token. Browsers cannot set
// headers on websocket dials, so the ?token= query form is accepted too.
func (s *Server) auth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		if !s.authorized(r) {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r, ps)
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
	}
	query := r.URL.Query().Get("token")
	return query != "" && subtle.ConstantTimeCompare([]byte(query), []byte(s.token)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.Specs()})
}

func (s *Server) handleListRuns(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "memory store is disabled")
		return
	}
	runs, err := s.store.ListRuns(listRunsLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*task.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")

	if s.store != nil {
		run, err := s.store.GetRun(id)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, run)
			return
		case !errors.Is(err, memory.ErrRunNotFound):
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	// Runs land in the store on completion; until then they are known only
	// to the submission tracker.
	s.mu.Lock()
	pending, ok := s.active[id]
	s.mu.Unlock()
	if ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"id":         id,
			"user_input": pending.Input,
			"status":     string(task.StatusRunning),
			"started_at": pending.StartedAt,
		})
		return
	}

	writeError(w, http.StatusNotFound, "run not found: "+id)
}

func (s *Server) handleSubmitRun(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req struct {
		Input string `json:"input"`
		Model string `json:"model"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		writeError(w, http.StatusBadRequest, "input is required")
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.active[id] = pendingRun{Input: req.Input, StartedAt: time.Now()}
	s.mu.Unlock()

	s.logger.Info("run submitted",
		zap.String("run_id", id),
		zap.String("model", req.Model))

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.active, id)
			s.mu.Unlock()
		}()
		s.runner.Execute(s.runCtx, orchestrator.Request{
			UserInput: req.Input,
			Model:     req.Model,
			RunID:     id,
		})
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := newWSClient(s.hub, conn, s.logger)
	if !s.hub.add(client) {
		conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func generateAuthToken() (string, error) {
	bytes := make([]byte, authTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
