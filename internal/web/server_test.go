package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/controller"
)

// newTestServer wires a server over the simulated cluster.
func newTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := config.Get()
	cfg.Proxmox.Backend = "sim"
	cfg.Session.Backend = "memory"
	cfg.History.Enabled = true
	cfg.History.Dir = t.TempDir()

	ctrl, err := controller.New()
	if err != nil {
		t.Fatalf("controller.New() error = %v", err)
	}
	t.Cleanup(func() { ctrl.Close() })

	return NewServer(ctrl, 8000)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t)

	req, err := http.NewRequest("GET", "/api/health", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleHealth)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Errorf("Failed to decode response: %v", err)
	}

	if resp.Status != "healthy" {
		t.Errorf("Status = %v, want healthy", resp.Status)
	}
	if resp.Checks == nil {
		t.Fatal("Checks should not be nil")
	}
	if resp.Checks["proxmox_backend"] != "sim" {
		t.Errorf("proxmox_backend check = %v, want sim", resp.Checks["proxmox_backend"])
	}
}

func TestAskEndpoint(t *testing.T) {
	server := newTestServer(t)

	body, _ := json.Marshal(controller.AskRequest{Text: "list all vms"})
	req, _ := http.NewRequest("POST", "/api/ask", bytes.NewBuffer(body))
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleAsk)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp controller.AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if !resp.Success {
		t.Fatalf("ask failed: %v", resp.Error)
	}
	if resp.Intent != "list_vms" {
		t.Errorf("Intent = %v, want list_vms", resp.Intent)
	}
	if resp.SessionID == "" {
		t.Error("SessionID should be assigned")
	}
	if !strings.Contains(resp.Reply, "virtual machines") {
		t.Errorf("Reply = %q, want mention of virtual machines", resp.Reply)
	}
}

func TestAskEndpointValidation(t *testing.T) {
	server := newTestServer(t)

	// Test wrong method
	req, _ := http.NewRequest("GET", "/api/ask", nil)
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleAsk)
	handler.ServeHTTP(rr, req)

	var resp controller.AskResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Success {
		t.Error("GET request should not succeed")
	}

	// Test invalid JSON
	req, _ = http.NewRequest("POST", "/api/ask", bytes.NewBuffer([]byte("invalid json")))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Success {
		t.Error("Invalid JSON request should not succeed")
	}

	// Test empty text
	req, _ = http.NewRequest("POST", "/api/ask", bytes.NewBuffer([]byte(`{"text":""}`)))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Success {
		t.Error("Empty text should not succeed")
	}
}

func TestIntentsEndpoint(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest("GET", "/api/intents", nil)
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleIntents)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var intents []controller.IntentInfo
	if err := json.NewDecoder(rr.Body).Decode(&intents); err != nil {
		t.Errorf("Failed to decode intents: %v", err)
	}

	if len(intents) == 0 {
		t.Error("Intents should not be empty")
	}
	for _, intent := range intents {
		if intent.Name == "" {
			t.Error("Intent without a name")
		}
	}
}

func TestHistoryEndpoint(t *testing.T) {
	server := newTestServer(t)

	// Record one command first
	body, _ := json.Marshal(controller.AskRequest{Text: "cluster status"})
	askReq, _ := http.NewRequest("POST", "/api/ask", bytes.NewBuffer(body))
	askRR := httptest.NewRecorder()
	http.HandlerFunc(server.handleAsk).ServeHTTP(askRR, askReq)

	req, _ := http.NewRequest("GET", "/api/history?limit=5", nil)
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleHistory)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp controller.HistoryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode history: %v", err)
	}

	if !resp.Success {
		t.Fatalf("history failed: %v", resp.Error)
	}
	if len(resp.Records) == 0 {
		t.Fatal("History should contain the recorded command")
	}
	if resp.Records[0].Input != "cluster status" {
		t.Errorf("record input = %q, want %q", resp.Records[0].Input, "cluster status")
	}
}

func TestSessionResetEndpoint(t *testing.T) {
	server := newTestServer(t)

	// Create a session
	body, _ := json.Marshal(controller.AskRequest{Text: "start vm 102"})
	askReq, _ := http.NewRequest("POST", "/api/ask", bytes.NewBuffer(body))
	askRR := httptest.NewRecorder()
	http.HandlerFunc(server.handleAsk).ServeHTTP(askRR, askReq)

	var askResp controller.AskResponse
	json.NewDecoder(askRR.Body).Decode(&askResp)
	if askResp.SessionID == "" {
		t.Fatal("ask should assign a session id")
	}

	resetBody, _ := json.Marshal(SessionResetRequest{SessionID: askResp.SessionID})
	req, _ := http.NewRequest("POST", "/api/session/reset", bytes.NewBuffer(resetBody))
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleSessionReset)
	handler.ServeHTTP(rr, req)

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("reset = %v, want success", resp)
	}

	// Wrong method is rejected
	req, _ = http.NewRequest("GET", "/api/session/reset", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["success"] != false {
		t.Error("GET reset should not succeed")
	}
}

func TestCacheStatusEndpoint(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest("GET", "/api/cache/status", nil)
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleCacheStatus)
	handler.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}

	var resp CacheStatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Errorf("Failed to decode cache status: %v", err)
	}
	if resp.TTLSeconds <= 0 {
		t.Errorf("TTLSeconds = %v, want > 0", resp.TTLSeconds)
	}
}

func TestCacheRefreshEndpoint(t *testing.T) {
	server := newTestServer(t)

	req, _ := http.NewRequest("POST", "/api/cache/refresh", nil)
	rr := httptest.NewRecorder()
	handler := http.HandlerFunc(server.handleCacheRefresh)
	handler.ServeHTTP(rr, req)

	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["success"] != true {
		t.Errorf("refresh = %v, want success", resp)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)

	// First 5 requests should be allowed
	for i := 0; i < 5; i++ {
		if !rl.Allow("192.168.1.1") {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied
	if rl.Allow("192.168.1.1") {
		t.Error("6th request should be denied")
	}

	// Different IP should be allowed
	if !rl.Allow("192.168.1.2") {
		t.Error("Request from different IP should be allowed")
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)

	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}

	wrapped := rl.Middleware(handler)

	// First 2 requests should pass
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.RemoteAddr = "192.168.1.1:1234"
		rr := httptest.NewRecorder()
		wrapped(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("Request %d should return 200, got %d", i+1, rr.Code)
		}
	}

	// 3rd request should be rate limited
	req := httptest.NewRequest("GET", "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	rr := httptest.NewRecorder()
	wrapped(rr, req)
	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("3rd request should return 429, got %d", rr.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name          string
		xForwardedFor string
		xRealIP       string
		remoteAddr    string
		expectedIP    string
	}{
		{
			name:          "X-Forwarded-For header",
			xForwardedFor: "10.0.0.1, 192.168.1.1",
			remoteAddr:    "127.0.0.1:8080",
			expectedIP:    "10.0.0.1",
		},
		{
			name:       "X-Real-IP header",
			xRealIP:    "10.0.0.2",
			remoteAddr: "127.0.0.1:8080",
			expectedIP: "10.0.0.2",
		},
		{
			name:       "RemoteAddr fallback",
			remoteAddr: "192.168.1.100:54321",
			expectedIP: "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			remoteAddr: "192.168.1.100",
			expectedIP: "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			if tt.xForwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.xForwardedFor)
			}
			if tt.xRealIP != "" {
				req.Header.Set("X-Real-IP", tt.xRealIP)
			}
			req.RemoteAddr = tt.remoteAddr

			ip := getClientIP(req)
			if ip != tt.expectedIP {
				t.Errorf("getClientIP() = %v, want %v", ip, tt.expectedIP)
			}
		})
	}
}
