package controller

import (
	"context"
	"strings"
	"testing"

	"github.com/proxmox-nli/internal/config"
	"github.com/proxmox-nli/internal/domain"
)

// testController builds a controller against the simulated cluster with
// in-memory sessions and history in a throwaway directory.
func testController(t *testing.T) *Controller {
	t.Helper()

	cfg := config.Get()
	cfg.Proxmox.Backend = "sim"
	cfg.Session.Backend = "memory"
	cfg.History.Enabled = true
	cfg.History.Dir = t.TempDir()

	ctrl, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { ctrl.Close() })
	return ctrl
}

func TestNewResolvesSimBackend(t *testing.T) {
	ctrl := testController(t)

	if got := ctrl.Backend(); got != "sim" {
		t.Errorf("Backend() = %q, want %q", got, "sim")
	}
}

func TestAskRequiresText(t *testing.T) {
	ctrl := testController(t)

	if _, err := ctrl.Ask(context.Background(), AskRequest{}); err == nil {
		t.Error("Ask with empty text should return an error")
	}
}

func TestAskListVMs(t *testing.T) {
	ctrl := testController(t)

	resp, err := ctrl.Ask(context.Background(), AskRequest{Text: "list all vms"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("Ask() success = false, error = %q", resp.Error)
	}
	if resp.SessionID == "" {
		t.Error("Ask() should assign a session id")
	}
	if resp.Intent != domain.IntentListVMs.String() {
		t.Errorf("Ask() intent = %q, want %q", resp.Intent, domain.IntentListVMs)
	}
	if !strings.Contains(resp.Reply, "virtual machines") {
		t.Errorf("Ask() reply = %q, want mention of virtual machines", resp.Reply)
	}
	if len(resp.Result.VMs) != 4 {
		t.Errorf("Ask() returned %d VMs, want 4", len(resp.Result.VMs))
	}
}

func TestAskCarriesContext(t *testing.T) {
	ctrl := testController(t)
	ctx := context.Background()

	first, err := ctrl.Ask(ctx, AskRequest{Text: "start vm 102"})
	if err != nil {
		t.Fatalf("Ask(start) error = %v", err)
	}
	if !first.Success {
		t.Fatalf("Ask(start) failed: %q", first.Error)
	}

	second, err := ctrl.Ask(ctx, AskRequest{SessionID: first.SessionID, Text: "stop it"})
	if err != nil {
		t.Fatalf("Ask(stop it) error = %v", err)
	}
	if second.Intent != domain.IntentStopVM.String() {
		t.Errorf("follow-up intent = %q, want %q", second.Intent, domain.IntentStopVM)
	}
	if !strings.Contains(second.Reply, "102") {
		t.Errorf("follow-up reply = %q, want reference to VM 102", second.Reply)
	}
}

func TestIntentsExcludesUnknown(t *testing.T) {
	ctrl := testController(t)

	intents := ctrl.Intents()
	if len(intents) != len(domain.AllIntents())-1 {
		t.Fatalf("Intents() returned %d entries, want %d", len(intents), len(domain.AllIntents())-1)
	}

	byName := make(map[string]IntentInfo, len(intents))
	for _, info := range intents {
		byName[info.Name] = info
		if info.Description == "" {
			t.Errorf("intent %s has no description", info.Name)
		}
	}
	if _, ok := byName["unknown"]; ok {
		t.Error("Intents() should not list the unknown intent")
	}
	if info, ok := byName["start_vm"]; !ok || !info.RequiresVM {
		t.Error("start_vm should be listed with RequiresVM true")
	}
	if info, ok := byName["list_vms"]; !ok || info.RequiresVM {
		t.Error("list_vms should be listed with RequiresVM false")
	}
}

func TestHistoryRecordsCommands(t *testing.T) {
	ctrl := testController(t)
	ctx := context.Background()

	if _, err := ctrl.Ask(ctx, AskRequest{Text: "list all vms"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	resp, err := ctrl.History(ctx, 10)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("History() success = false, error = %q", resp.Error)
	}
	if len(resp.Records) != 1 {
		t.Fatalf("History() returned %d records, want 1", len(resp.Records))
	}
	rec := resp.Records[0]
	if rec.Input != "list all vms" {
		t.Errorf("record input = %q, want %q", rec.Input, "list all vms")
	}
	if rec.Intent != domain.IntentListVMs.String() {
		t.Errorf("record intent = %q, want %q", rec.Intent, domain.IntentListVMs)
	}
	if !rec.Success {
		t.Error("record should be marked successful")
	}
	if rec.Timestamp == "" {
		t.Error("record timestamp should be set")
	}
}

func TestHistoryDisabled(t *testing.T) {
	cfg := config.Get()
	cfg.Proxmox.Backend = "sim"
	cfg.Session.Backend = "memory"
	cfg.History.Enabled = false

	ctrl, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { ctrl.Close() })

	resp, err := ctrl.History(context.Background(), 5)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if resp.Success {
		t.Error("History() should report failure when auditing is disabled")
	}
	if !strings.Contains(resp.Error, "disabled") {
		t.Errorf("History() error = %q, want mention of disabled", resp.Error)
	}
}

func TestResetSession(t *testing.T) {
	ctrl := testController(t)
	ctx := context.Background()

	if err := ctrl.ResetSession(ctx, ""); err == nil {
		t.Error("ResetSession with empty id should return an error")
	}

	resp, err := ctrl.Ask(ctx, AskRequest{Text: "start vm 102"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	if n, err := ctrl.Sessions(ctx); err != nil || n != 1 {
		t.Fatalf("Sessions() = %d, %v, want 1, nil", n, err)
	}

	if err := ctrl.ResetSession(ctx, resp.SessionID); err != nil {
		t.Fatalf("ResetSession() error = %v", err)
	}

	if n, err := ctrl.Sessions(ctx); err != nil || n != 0 {
		t.Errorf("Sessions() after reset = %d, %v, want 0, nil", n, err)
	}

	// The pronoun no longer resolves once the context is gone.
	followUp, err := ctrl.Ask(ctx, AskRequest{SessionID: resp.SessionID, Text: "stop it"})
	if err != nil {
		t.Fatalf("Ask(stop it) error = %v", err)
	}
	if followUp.Intent != domain.IntentUnknown.String() {
		t.Errorf("follow-up intent after reset = %q, want %q", followUp.Intent, domain.IntentUnknown)
	}
}

func TestCacheStatusAndRefresh(t *testing.T) {
	ctrl := testController(t)

	status := ctrl.GetCacheStatus()
	if status.TTLSeconds <= 0 {
		t.Errorf("cache TTL = %v, want > 0", status.TTLSeconds)
	}
	if status.Items < 0 {
		t.Errorf("cache items = %d, want >= 0", status.Items)
	}

	cleared, err := ctrl.RefreshCache()
	if err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if cleared < 0 {
		t.Errorf("RefreshCache() cleared = %d, want >= 0", cleared)
	}
	if got := ctrl.GetCacheStatus().Items; got != 0 {
		t.Errorf("cache items after refresh = %d, want 0", got)
	}
}
