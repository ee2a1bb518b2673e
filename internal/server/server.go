// Package server serves the map inspector over WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/steamtunnels/internal/command"
	"github.com/lawnchairsociety/steamtunnels/internal/config"
	"github.com/lawnchairsociety/steamtunnels/internal/database"
	"github.com/lawnchairsociety/steamtunnels/internal/logger"
)

// Server hosts inspector sessions. Each WebSocket connection gets its own
// workspace; sessions never share a map.
type Server struct {
	cfg          *config.Config
	db           *database.Database
	sessions     map[string]*session
	mu           sync.RWMutex
	connLimiter  *ConnLimiter
	rateLimiter  *CommandRateLimiter
	httpServer   *http.Server
	shutdown     chan struct{}
	shutdownOnce sync.Once
	StartTime    time.Time
}

type session struct {
	id     string
	ip     string
	client *WebSocketClient
	ws     *command.Workspace
	log    *slog.Logger
}

// response is a command result tagged with its session.
type response struct {
	Session string `json:"session"`
	command.Result
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    make(map[string]*session),
		connLimiter: NewConnLimiter(cfg.Inspector.Connections),
		rateLimiter: NewCommandRateLimiter(cfg.Inspector.RateLimit),
		shutdown:    make(chan struct{}),
		StartTime:   time.Now(),
	}
}

// SetDatabase enables the archive command and the /layouts endpoint.
func (s *Server) SetDatabase(db *database.Database) {
	s.db = db
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Handler returns the HTTP routes of the inspector.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocketUpgrade)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /layouts", s.handleLayouts)
	return mux
}

// ListenAndServe serves until ctx is cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.cfg.Inspector.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		select {
		case <-ctx.Done():
			s.Shutdown()
		case <-s.shutdown:
		}
	}()

	logger.Info("Inspector listening", "address", s.cfg.Inspector.Address)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting connections and closes every session. It is safe
// to call more than once.
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdown)
		s.rateLimiter.Stop()

		if s.httpServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				logger.Warning("Inspector shutdown incomplete", "error", err)
			}
		}

		s.mu.RLock()
		for _, sess := range s.sessions {
			sess.client.CloseWithReason(websocket.CloseGoingAway, "server shutting down")
		}
		s.mu.RUnlock()
		logger.Info("Inspector stopped", "uptime", time.Since(s.StartTime).Round(time.Second))
	})
}

func (s *Server) isShuttingDown() bool {
	select {
	case <-s.shutdown:
		return true
	default:
		return false
	}
}

// handleWebSocketUpgrade upgrades an HTTP connection to WebSocket.
func (s *Server) handleWebSocketUpgrade(w http.ResponseWriter, r *http.Request) {
	if s.isShuttingDown() {
		http.Error(w, "Server is shutting down.", http.StatusServiceUnavailable)
		return
	}

	ip := clientIP(r, s.cfg.Inspector.Connections.TrustProxyHeaders)

	// Check connection limits before upgrading
	if !s.connLimiter.TryAcquire(ip) {
		logger.Warning("WebSocket connection rejected - limit exceeded",
			"remote_addr", r.RemoteAddr,
			"client_ip", ip)
		http.Error(w, "Too many connections. Please try again later.", http.StatusTooManyRequests)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			allowed := s.cfg.Inspector.WebSocket.IsOriginAllowed(origin, r.Host)
			if !allowed {
				logger.Warning("WebSocket connection rejected - origin not allowed",
					"origin", origin,
					"host", r.Host,
					"remote_addr", r.RemoteAddr)
			}
			return allowed
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", "error", err)
		s.connLimiter.Release(ip)
		return
	}

	go s.handleWebSocketConnection(r.Context(), wsConn, ip)
}

// handleWebSocketConnection runs one inspector session until the client quits
// or disconnects.
func (s *Server) handleWebSocketConnection(reqCtx context.Context, wsConn *websocket.Conn, clientIP string) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(reqCtx))
	defer cancel()
	go func() {
		select {
		case <-s.shutdown:
			cancel()
		case <-ctx.Done():
		}
	}()

	client := NewWebSocketClient(wsConn, s.cfg.Inspector.WebSocket.MaxMessageSize)
	defer func() {
		s.connLimiter.Release(clientIP)
		client.Close()
	}()

	var archive command.Archiver
	if s.db != nil {
		archive = s.db
	}

	sess := &session{
		id:     uuid.NewString(),
		ip:     clientIP,
		client: client,
	}
	sess.log = logger.With("session", sess.id, "client_ip", clientIP)

	ws, err := command.NewWorkspace(ctx, s.cfg.MapConfig(), s.cfg.Schedule(), archive)
	if err != nil {
		sess.log.Error("Failed to generate the first map", "error", err)
		client.WriteJSON(response{Session: sess.id, Result: command.Result{Command: "hello", Error: err.Error()}})
		return
	}
	ws.SetMaxWaves(s.cfg.Limits.MaxWavesPerCommand)
	sess.ws = ws

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		sess.log.Info("Inspector session closed")
	}()

	sess.log.Info("Inspector session opened")
	snap := ws.Snapshot()
	hello := command.Result{
		Command:  "hello",
		OK:       true,
		Message:  "Connected. Type 'help' for available commands.",
		Snapshot: &snap,
	}
	if err := client.WriteJSON(response{Session: sess.id, Result: hello}); err != nil {
		return
	}

	s.serveSession(ctx, sess)
}

func (s *Server) serveSession(ctx context.Context, sess *session) {
	for {
		line, err := sess.client.ReadLine()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && !s.isShuttingDown() {
				sess.log.Debug("Inspector read ended", "error", err)
			}
			return
		}

		cmd := command.ParseCommand(line)
		if cmd.Name == "" {
			continue
		}

		if ok, wait := s.rateLimiter.Allow(sess.ip); !ok {
			sess.log.Warn("Inspector command rate limited", "command", cmd.Name, "retry_after", wait)
			limited := command.Result{
				Command: cmd.Name,
				Error:   fmt.Sprintf("too many commands, retry in %s", wait.Round(time.Second)),
			}
			if err := sess.client.WriteJSON(response{Session: sess.id, Result: limited}); err != nil {
				return
			}
			continue
		}

		start := time.Now()
		result := cmd.Execute(ctx, sess.ws)
		sess.log.Debug("Inspector command", "command", cmd.Name, "ok", result.OK, "elapsed", time.Since(start))

		if err := sess.client.WriteJSON(response{Session: sess.id, Result: result}); err != nil {
			return
		}
		if result.Quit {
			sess.client.CloseWithReason(websocket.CloseNormalClosure, "bye")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"sessions":    s.SessionCount(),
		"connections": s.connLimiter.Stats(),
		"archive":     s.db != nil,
		"uptime":      time.Since(s.StartTime).Round(time.Second).String(),
	})
}

// layoutSummary is the /layouts listing entry. Rows are left out.
type layoutSummary struct {
	ID         int64     `json:"id"`
	Digest     string    `json:"digest"`
	Label      string    `json:"label"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Difficulty int       `json:"difficulty"`
	Seed       int64     `json:"seed"`
	Waves      int       `json:"waves"`
	Spawns     int       `json:"spawns"`
	Goals      int       `json:"goals"`
	CreatedAt  time.Time `json:"created_at"`
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": command.ErrNoArchive.Error()})
		return
	}

	difficulty, _ := strconv.Atoi(r.URL.Query().Get("difficulty"))
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}

	layouts, err := s.db.ListLayouts(difficulty, limit)
	if err != nil {
		logger.Error("Failed to list layouts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list layouts"})
		return
	}

	out := make([]layoutSummary, 0, len(layouts))
	for _, l := range layouts {
		out = append(out, layoutSummary{
			ID: l.ID, Digest: l.Digest, Label: l.Label,
			Width: l.Width, Height: l.Height, Difficulty: l.Difficulty, Seed: l.Seed,
			Waves: l.Waves, Spawns: l.Spawns, Goals: l.Goals, CreatedAt: l.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
