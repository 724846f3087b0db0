package command

import (
	"context"
	"testing"

	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/nli"
)

// End-to-end coverage of the conversational scenarios: raw utterance in,
// exactly the right client call out.
func TestPipelineScenarios(t *testing.T) {
	newEngine := func(client *fakeClient) *nli.Engine {
		return nli.NewEngine(nli.DefaultResources(), NewDispatcher(client, ""), NewResponder())
	}
	ctx := context.Background()

	t.Run("list all vms", func(t *testing.T) {
		client := &fakeClient{vms: []domain.VMSummary{{VMID: 100, Name: "web01", Status: "running"}}}
		engine := newEngine(client)

		ex := engine.Process(ctx, "list all vms")

		if ex.Intent != domain.IntentListVMs {
			t.Errorf("intent = %s, want %s", ex.Intent, domain.IntentListVMs)
		}
		if len(ex.Captured) != 0 {
			t.Errorf("captured = %v, want none", ex.Captured)
		}
		if client.count("ListVMs") != 1 {
			t.Errorf("ListVMs calls = %d, want 1", client.count("ListVMs"))
		}
	})

	t.Run("start vm 101", func(t *testing.T) {
		client := &fakeClient{}
		engine := newEngine(client)

		ex := engine.Process(ctx, "start vm 101")

		if ex.Intent != domain.IntentStartVM {
			t.Errorf("intent = %s, want %s", ex.Intent, domain.IntentStartVM)
		}
		if client.count("StartVM") != 1 || client.lastVM != "101" {
			t.Errorf("StartVM calls = %d with %q, want 1 with %q",
				client.count("StartVM"), client.lastVM, "101")
		}
	})

	t.Run("start it resolves from focus", func(t *testing.T) {
		client := &fakeClient{status: &domain.VMStatus{VMID: 101, Name: "web01", Status: "running"}}
		engine := newEngine(client)

		engine.Process(ctx, "status of vm 101")
		ex := engine.Process(ctx, "start it")

		if ex.Intent != domain.IntentStartVM {
			t.Errorf("intent = %s, want %s", ex.Intent, domain.IntentStartVM)
		}
		if vm, _ := ex.Entities.VMID(); vm != "101" {
			t.Errorf("resolved VM_ID = %q, want %q", vm, "101")
		}
		if client.count("StartVM") != 1 || client.lastVM != "101" {
			t.Errorf("StartVM calls = %d with %q, want 1 with %q",
				client.count("StartVM"), client.lastVM, "101")
		}
	})

	t.Run("create with sizes", func(t *testing.T) {
		client := &fakeClient{created: &domain.CreateInfo{VMID: 300, Name: "ubuntu-300", Node: "pve1"}}
		engine := newEngine(client)

		ex := engine.Process(ctx, "create a vm with 2 GB of RAM and 2 cores using ubuntu")

		if ex.Intent != domain.IntentCreateVM {
			t.Errorf("intent = %s, want %s", ex.Intent, domain.IntentCreateVM)
		}
		got := client.lastCreate
		if got.MemoryMB != 2048 {
			t.Errorf("MemoryMB = %d, want 2048 (GB normalized to MB)", got.MemoryMB)
		}
		if got.Cores != 2 {
			t.Errorf("Cores = %d, want 2", got.Cores)
		}
		if got.Template != "ubuntu" {
			t.Errorf("Template = %q, want %q", got.Template, "ubuntu")
		}
		if got.DiskGB != 10 {
			t.Errorf("DiskGB = %d, want default 10", got.DiskGB)
		}
	})

	t.Run("guard reply reaches the user", func(t *testing.T) {
		client := &fakeClient{}
		engine := newEngine(client)

		ex := engine.Process(ctx, "start the thing")

		if len(client.calls) != 0 {
			t.Errorf("client was called %d times, want 0", len(client.calls))
		}
		if ex.Reply == "" {
			t.Error("empty reply for unresolvable utterance")
		}
	})
}
