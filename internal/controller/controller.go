// Package controller provides programmatic access to the Proxmox NLI.
// It exposes the same operations as the web API but for direct Go code
// integration, and owns the wiring of the interpreter stack.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/proxmox-nli/internal/command"
	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/history"
	"github.com/proxmox-nli/internal/logging"
	"github.com/proxmox-nli/internal/proxmox"
	"github.com/proxmox-nli/internal/session"

	// Register the simulated cluster backend.
	_ "github.com/proxmox-nli/internal/proxmox/sim"
)

// Controller wires the interpreter stack: Proxmox client, dispatcher,
// responder, session manager and audit history.
type Controller struct {
	cfg     *config.Config
	logger  *logging.Logger
	manager *session.Manager
	history *history.Store
	backend string
}

// New builds a controller from the global configuration.
func New() (*Controller, error) {
	logger, err := logging.New(logging.Config{
		Level:       logging.ParseLevel(config.Get().Logging.Level),
		LogDir:      config.Get().Logging.LogDir,
		EnableFile:  config.Get().Logging.EnableFile,
		EnableJSON:  config.Get().Logging.EnableJSON,
		EnableColor: config.Get().Logging.EnableColor,
		Component:   "controller",
	})
	if err != nil || logger == nil {
		// Fallback to default logger
		logger = logging.GetDefault()
	}

	cfg := config.Get()

	client, backend, err := proxmox.NewFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create proxmox client: %w", err)
	}

	dispatcher := command.NewDispatcher(client, cfg.Proxmox.DefaultNode)
	responder := command.NewResponder()

	manager, err := session.NewManager(cfg.Session, dispatcher, responder)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	c := &Controller{
		cfg:     cfg,
		logger:  logger,
		manager: manager,
		backend: backend,
	}

	if cfg.History.Enabled {
		store, err := history.Open(config.HistoryPath())
		if err != nil {
			// Degrade rather than fail: the console works without auditing.
			logger.Warn("History store unavailable, auditing disabled: %v", err)
		} else {
			c.history = store
			manager.SetRecorder(store)
		}
	}

	logger.Info("Controller ready: backend=%s session_backend=%s history=%v",
		backend, cfg.Session.Backend, c.history != nil)

	return c, nil
}

// Close releases the session store and the history database.
func (c *Controller) Close() error {
	err := c.manager.Close()
	if c.history != nil {
		if herr := c.history.Close(); err == nil {
			err = herr
		}
	}
	return err
}

// Backend returns the resolved Proxmox backend name (api or sim).
func (c *Controller) Backend() string {
	return c.backend
}

// AskRequest is one utterance for a session.
type AskRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text"`
}

// AskResponse is the pipeline's answer to one utterance.
type AskResponse struct {
	Success    bool                 `json:"success"`
	SessionID  string               `json:"sessionId"`
	Intent     string               `json:"intent"`
	Reply      string               `json:"reply"`
	Result     domain.CommandResult `json:"result"`
	DurationMS int64                `json:"durationMs"`
	Error      string               `json:"error,omitempty"`
}

// IntentInfo describes one supported intent for reference listings.
type IntentInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
	RequiresVM  bool     `json:"requiresVm"`
}

// HistoryRecord is one audit entry in API form.
type HistoryRecord struct {
	ID         string `json:"id"`
	SessionID  string `json:"sessionId"`
	Timestamp  string `json:"timestamp"`
	Input      string `json:"input"`
	Intent     string `json:"intent"`
	VMID       string `json:"vmid,omitempty"`
	Node       string `json:"node,omitempty"`
	Success    bool   `json:"success"`
	Reply      string `json:"reply"`
	DurationMS int64  `json:"durationMs"`
}

// HistoryResponse carries recent audit entries, newest first.
type HistoryResponse struct {
	Success bool            `json:"success"`
	Records []HistoryRecord `json:"records"`
	Error   string          `json:"error,omitempty"`
}

// CacheStatus represents API cache statistics.
type CacheStatus struct {
	Items      int     `json:"items"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	TTLSeconds float64 `json:"ttlSeconds"`
}

// Ask runs one utterance through the pipeline. Validation failures return
// an error; command failures surface in the response.
func (c *Controller) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	startTime := time.Now()

	if req.Text == "" {
		c.logger.Warn("Ask request without text")
		return nil, fmt.Errorf("text is required")
	}

	sessionID, ex, err := c.manager.Ask(ctx, req.SessionID, req.Text)
	if err != nil {
		c.logger.Error("Ask failed for session %s: %v", sessionID, err)
		return &AskResponse{Success: false, SessionID: sessionID, Error: err.Error()}, nil
	}

	resp := &AskResponse{
		Success:    ex.Result.Success,
		SessionID:  sessionID,
		Intent:     ex.Intent.String(),
		Reply:      ex.Reply,
		Result:     ex.Result,
		DurationMS: ex.Elapsed.Milliseconds(),
	}

	duration := time.Since(startTime)
	c.logger.WithFields(logging.Fields{
		"duration_ms": duration.Milliseconds(),
		"session":     sessionID,
		"intent":      resp.Intent,
		"success":     resp.Success,
	}).Info("Processed %q in %v", req.Text, duration)

	return resp, nil
}

// Intents returns the supported intent vocabulary with examples, unknown
// excluded.
func (c *Controller) Intents() []IntentInfo {
	intents := make([]IntentInfo, 0, len(domain.AllIntents()))
	for _, intent := range domain.AllIntents() {
		if intent == domain.IntentUnknown {
			continue
		}
		intents = append(intents, IntentInfo{
			Name:        intent.String(),
			Description: intent.Description(),
			Examples:    intent.Examples(),
			RequiresVM:  intent.RequiresVM(),
		})
	}
	return intents
}

// History returns up to limit recent audit records, newest first.
func (c *Controller) History(ctx context.Context, limit int) (*HistoryResponse, error) {
	if c.history == nil {
		return &HistoryResponse{Success: false, Error: "command history is disabled"}, nil
	}
	if limit <= 0 {
		limit = c.cfg.History.DefaultLimit
	}

	records, err := c.history.Recent(limit)
	if err != nil {
		c.logger.Error("History read failed: %v", err)
		return &HistoryResponse{Success: false, Error: err.Error()}, nil
	}

	resp := &HistoryResponse{
		Success: true,
		Records: make([]HistoryRecord, 0, len(records)),
	}
	for _, rec := range records {
		resp.Records = append(resp.Records, HistoryRecord{
			ID:         rec.ID,
			SessionID:  rec.SessionID,
			Timestamp:  rec.Timestamp.Format(time.RFC3339),
			Input:      rec.Input,
			Intent:     rec.Intent,
			VMID:       rec.VMID,
			Node:       rec.Node,
			Success:    rec.Success,
			Reply:      rec.Reply,
			DurationMS: rec.DurationMS,
		})
	}

	return resp, nil
}

// ResetSession forgets a session's conversation context.
func (c *Controller) ResetSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionId is required")
	}

	c.logger.Info("Resetting session %s", sessionID)
	return c.manager.Reset(ctx, sessionID)
}

// Sessions reports how many live sessions the store holds.
func (c *Controller) Sessions(ctx context.Context) (int, error) {
	return c.manager.Sessions(ctx)
}

// GetCacheStatus returns current API cache statistics.
func (c *Controller) GetCacheStatus() CacheStatus {
	cache := proxmox.GetCacheManager()
	stats := cache.GetStats()

	return CacheStatus{
		Items:      stats.Items,
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		TTLSeconds: cache.GetTTL().Seconds(),
	}
}

// RefreshCache clears the API cache and reports how many entries it held.
func (c *Controller) RefreshCache() (int, error) {
	cache := proxmox.GetCacheManager()
	itemsBefore := cache.GetStats().Items
	cache.Clear()

	c.logger.WithFields(logging.Fields{
		"items_cleared": itemsBefore,
	}).Info("Cache cleared")

	return itemsBefore, nil
}
