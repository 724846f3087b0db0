package domain

import (
	"testing"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Intent
	}{
		{"ListVMs", "list_vms", IntentListVMs},
		{"StartVM", "start_vm", IntentStartVM},
		{"StopVM", "stop_vm", IntentStopVM},
		{"CreateVM", "create_vm", IntentCreateVM},
		{"Help", "help", IntentHelp},
		{"Unknown", "unknown", IntentUnknown},
		{"Garbage", "make_coffee", IntentUnknown},
		{"Empty", "", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseIntent(tt.input)
			if result != tt.expected {
				t.Errorf("ParseIntent(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIntentIsValid(t *testing.T) {
	for _, intent := range AllIntents() {
		if !intent.IsValid() {
			t.Errorf("intent %s should be valid", intent)
		}
	}
	if Intent("reticulate_splines").IsValid() {
		t.Error("arbitrary intent should not be valid")
	}
}

func TestIntentRequiresVM(t *testing.T) {
	tests := []struct {
		intent   Intent
		expected bool
	}{
		{IntentStartVM, true},
		{IntentStopVM, true},
		{IntentRestartVM, true},
		{IntentVMStatus, true},
		{IntentDeleteVM, true},
		{IntentListVMs, false},
		{IntentCreateVM, false},
		{IntentClusterStatus, false},
		{IntentHelp, false},
		{IntentUnknown, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			if got := tt.intent.RequiresVM(); got != tt.expected {
				t.Errorf("%s.RequiresVM() = %v, want %v", tt.intent, got, tt.expected)
			}
		})
	}
}

func TestIntentDescriptions(t *testing.T) {
	for _, intent := range AllIntents() {
		if intent.Description() == "" {
			t.Errorf("intent %s has no description", intent)
		}
	}
}

func TestEntityMap(t *testing.T) {
	e := NewEntityMap()
	if e.Len() != 0 {
		t.Errorf("new entity map length = %d, want 0", e.Len())
	}

	e.Set(EntityVMID, "101")
	e.Set(EntityNode, "pve1")

	if v, ok := e.VMID(); !ok || v != "101" {
		t.Errorf("VMID() = %q, %v, want 101, true", v, ok)
	}
	if v, ok := e.Node(); !ok || v != "pve1" {
		t.Errorf("Node() = %q, %v, want pve1, true", v, ok)
	}
	if !e.Has(EntityVMID) {
		t.Error("Has(EntityVMID) = false, want true")
	}
	if e.Has("CARDINAL") {
		t.Error("Has(CARDINAL) = true, want false")
	}
	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}

	params := DefaultCreateParams()
	e.Params = &params
	if e.Len() != 3 {
		t.Errorf("Len() with params = %d, want 3", e.Len())
	}
}

func TestEntityMapSetOnZeroValue(t *testing.T) {
	var e EntityMap
	e.Set(EntityVMID, "200")
	if v, ok := e.VMID(); !ok || v != "200" {
		t.Errorf("VMID() after Set on zero value = %q, %v, want 200, true", v, ok)
	}
}

func TestDefaultCreateParams(t *testing.T) {
	p := DefaultCreateParams()
	if p.MemoryMB != 1024 {
		t.Errorf("MemoryMB = %d, want 1024", p.MemoryMB)
	}
	if p.Cores != 1 {
		t.Errorf("Cores = %d, want 1", p.Cores)
	}
	if p.DiskGB != 10 {
		t.Errorf("DiskGB = %d, want 10", p.DiskGB)
	}
	if p.Template != "ubuntu" {
		t.Errorf("Template = %q, want ubuntu", p.Template)
	}
}

func TestVMSummaryIsRunning(t *testing.T) {
	running := VMSummary{VMID: 101, Status: "running"}
	stopped := VMSummary{VMID: 102, Status: "stopped"}

	if !running.IsRunning() {
		t.Error("running guest reported as not running")
	}
	if stopped.IsRunning() {
		t.Error("stopped guest reported as running")
	}
}

func TestStoragePoolUsedPercent(t *testing.T) {
	tests := []struct {
		name     string
		pool     StoragePool
		expected float64
	}{
		{"Half", StoragePool{TotalBytes: 200, UsedBytes: 100}, 50},
		{"Empty", StoragePool{TotalBytes: 100, UsedBytes: 0}, 0},
		{"ZeroTotal", StoragePool{TotalBytes: 0, UsedBytes: 10}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pool.UsedPercent(); got != tt.expected {
				t.Errorf("UsedPercent() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFailure(t *testing.T) {
	r := Failure("boom")
	if r.Success {
		t.Error("Failure() result marked successful")
	}
	if r.Message != "boom" {
		t.Errorf("Message = %q, want boom", r.Message)
	}
}
