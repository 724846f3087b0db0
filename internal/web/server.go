// Package web serves the browser console and the JSON API over a wired
// controller. Every state-changing route goes through the same pipeline
// the CLI uses.
package web

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/controller"
	"github.com/proxmox-nli/internal/logging"
	"github.com/proxmox-nli/internal/proxmox"
)

//go:embed static/*
var staticFiles embed.FS

// GetStaticFS returns the embedded static file system for use by the
// Lambda handler.
func GetStaticFS() fs.FS {
	return staticFiles
}

// askRateLimit bounds how many utterances one IP may send per minute.
const askRateLimit = 60

// Server hosts the JSON API and the embedded browser console.
type Server struct {
	port    int
	logger  *logging.Logger
	cfg     *config.Config
	ctrl    *controller.Controller
	limiter *RateLimiter
}

// NewServer creates a web server over an already wired controller.
func NewServer(ctrl *controller.Controller, port int) *Server {
	cfg := config.Get()

	logger, err := logging.New(logging.Config{
		Level:       logging.ParseLevel(cfg.Logging.Level),
		LogDir:      cfg.Logging.LogDir,
		EnableFile:  cfg.Logging.EnableFile,
		EnableJSON:  cfg.Logging.EnableJSON,
		EnableColor: cfg.Logging.EnableColor,
		Component:   "web",
	})
	if err != nil || logger == nil {
		logger = logging.GetDefault()
	}
	return &Server{
		port:    port,
		logger:  logger,
		cfg:     cfg,
		ctrl:    ctrl,
		limiter: NewRateLimiter(askRateLimit, time.Minute),
	}
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		s.logger.Error("Failed to load static files: %v", err)
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", s.logRequest(http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/api/ask", s.limiter.Middleware(s.handleAsk))
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/intents", s.handleIntents)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/session/reset", s.handleSessionReset)
	mux.HandleFunc("/api/cache/status", s.handleCacheStatus)
	mux.HandleFunc("/api/cache/refresh", s.handleCacheRefresh)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      mux,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	s.logger.Info("Starting web console at http://localhost%s (backend=%s)", srv.Addr, s.ctrl.Backend())
	fmt.Printf("🌐 Proxmox console ready at http://localhost%s\n", srv.Addr)
	return srv.ListenAndServe()
}

// logRequest wraps a handler with request logging
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	if r.Method == "OPTIONS" {
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		return
	}

	if r.Method != "POST" {
		s.logger.Warn("Invalid method: %s for /api/ask", r.Method)
		json.NewEncoder(w).Encode(controller.AskResponse{Success: false, Error: "Method not allowed"})
		return
	}

	var req controller.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Error("Failed to decode ask request: %v", err)
		json.NewEncoder(w).Encode(controller.AskResponse{Success: false, Error: "Invalid request"})
		return
	}

	resp, err := s.ctrl.Ask(r.Context(), req)
	if err != nil {
		json.NewEncoder(w).Encode(controller.AskResponse{Success: false, Error: err.Error()})
		return
	}

	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	checks := map[string]string{
		"proxmox_backend": s.ctrl.Backend(),
		"session_backend": s.cfg.Session.Backend,
	}
	if n, err := s.ctrl.Sessions(r.Context()); err == nil {
		checks["sessions"] = strconv.Itoa(n)
	} else {
		checks["sessions"] = "unavailable"
	}
	if s.cfg.History.Enabled {
		checks["history"] = "enabled"
	} else {
		checks["history"] = "disabled"
	}

	json.NewEncoder(w).Encode(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   "1.0.0",
		Checks:    checks,
	})
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	json.NewEncoder(w).Encode(s.ctrl.Intents())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			limit = n
		}
	}

	resp, err := s.ctrl.History(r.Context(), limit)
	if err != nil {
		json.NewEncoder(w).Encode(controller.HistoryResponse{Success: false, Error: err.Error()})
		return
	}

	json.NewEncoder(w).Encode(resp)
}

// SessionResetRequest identifies the session to forget.
type SessionResetRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

	if r.Method == "OPTIONS" {
		return
	}

	if r.Method != "POST" {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "Method not allowed, use POST",
		})
		return
	}

	var req SessionResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "Invalid request",
		})
		return
	}

	if err := s.ctrl.ResetSession(r.Context(), req.SessionID); err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	s.logger.Info("Session %s reset via API", req.SessionID)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("Session %s has been reset", req.SessionID),
	})
}

// CacheStatusResponse represents cache status
type CacheStatusResponse struct {
	Hits        int64    `json:"hits"`
	Misses      int64    `json:"misses"`
	Items       int      `json:"items"`
	Keys        []string `json:"keys,omitempty"`
	LastRefresh string   `json:"lastRefresh"`
	TTLSeconds  float64  `json:"ttlSeconds"`
}

// handleCacheStatus returns current cache statistics
func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	cache := proxmox.GetCacheManager()
	stats := cache.GetStats()

	lastRefresh := cache.GetLastRefresh()
	lastRefreshStr := "never"
	if !lastRefresh.IsZero() {
		lastRefreshStr = lastRefresh.Format(time.RFC3339)
	}

	resp := CacheStatusResponse{
		Hits:        stats.Hits,
		Misses:      stats.Misses,
		Items:       stats.Items,
		Keys:        cache.Keys(),
		LastRefresh: lastRefreshStr,
		TTLSeconds:  cache.GetTTL().Seconds(),
	}

	s.logger.Info("Cache status: items=%d hits=%d misses=%d", stats.Items, stats.Hits, stats.Misses)
	json.NewEncoder(w).Encode(resp)
}

// handleCacheRefresh clears the cache forcing fresh data on next request
func (s *Server) handleCacheRefresh(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")

	if r.Method == "OPTIONS" {
		return
	}

	if r.Method != "POST" {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "Method not allowed, use POST",
		})
		return
	}

	itemsCleared, err := s.ctrl.RefreshCache()
	if err != nil {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":      true,
		"message":      fmt.Sprintf("Cache cleared: %d items removed", itemsCleared),
		"itemsCleared": itemsCleared,
		"refreshTime":  time.Now().Format(time.RFC3339),
	})
}
