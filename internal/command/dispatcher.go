// Package command routes classified intents to Proxmox operations and
// renders command results as natural-language replies.
package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/proxmox-nli/internal/domain"
)

const (
	msgNeedVMID = "Please specify a VM ID"
	msgNeedNode = "Please specify a node name"
	msgUnknown  = `I did not catch that. Say "help" to see what I understand.`
)

// Dispatcher maps a resolved intent to exactly one Proxmox client call.
// Local validation happens before the call; everything else, including
// failures, passes through from the client unchanged. No retries.
type Dispatcher struct {
	client      domain.Client
	defaultNode string
}

// NewDispatcher creates a dispatcher over the given client. defaultNode is
// the fallback for node-scoped intents when the utterance names none.
func NewDispatcher(client domain.Client, defaultNode string) *Dispatcher {
	return &Dispatcher{client: client, defaultNode: defaultNode}
}

// Execute routes one classified utterance. Exactly one handler runs per
// intent; help and unknown are answered locally without touching the
// client.
func (d *Dispatcher) Execute(ctx context.Context, intent domain.Intent, captured []string, entities domain.EntityMap) domain.CommandResult {
	switch intent {
	case domain.IntentListVMs:
		return d.listVMs(ctx)
	case domain.IntentStartVM:
		return d.startVM(ctx, captured, entities)
	case domain.IntentStopVM:
		return d.stopVM(ctx, captured, entities)
	case domain.IntentRestartVM:
		return d.restartVM(ctx, captured, entities)
	case domain.IntentVMStatus:
		return d.vmStatus(ctx, captured, entities)
	case domain.IntentCreateVM:
		return d.createVM(ctx, entities)
	case domain.IntentDeleteVM:
		return d.deleteVM(ctx, captured, entities)
	case domain.IntentListContainers:
		return d.listContainers(ctx)
	case domain.IntentClusterStatus:
		return d.clusterStatus(ctx)
	case domain.IntentNodeStatus:
		return d.nodeStatus(ctx, captured, entities)
	case domain.IntentStorageInfo:
		return d.storageInfo(ctx)
	case domain.IntentHelp:
		return d.help()
	default:
		return domain.CommandResult{Success: true, Message: msgUnknown}
	}
}

// vmRef resolves the guest reference for VM-scoped intents: the first
// captured group wins, then the extracted VM_ID entity.
func vmRef(captured []string, entities domain.EntityMap) string {
	if len(captured) > 0 && captured[0] != "" {
		return captured[0]
	}
	if vm, ok := entities.VMID(); ok {
		return vm
	}
	return ""
}

func (d *Dispatcher) listVMs(ctx context.Context) domain.CommandResult {
	vms, err := d.client.ListVMs(ctx)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, VMs: vms}
}

func (d *Dispatcher) listContainers(ctx context.Context) domain.CommandResult {
	cts, err := d.client.ListContainers(ctx)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, Containers: cts}
}

func (d *Dispatcher) startVM(ctx context.Context, captured []string, entities domain.EntityMap) domain.CommandResult {
	vm := vmRef(captured, entities)
	if vm == "" {
		return domain.Failure(msgNeedVMID)
	}
	task, err := d.client.StartVM(ctx, vm)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{
		Success: true,
		Message: fmt.Sprintf("VM %s is starting.", vm),
		Task:    task,
	}
}

func (d *Dispatcher) stopVM(ctx context.Context, captured []string, entities domain.EntityMap) domain.CommandResult {
	vm := vmRef(captured, entities)
	if vm == "" {
		return domain.Failure(msgNeedVMID)
	}
	task, err := d.client.StopVM(ctx, vm)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{
		Success: true,
		Message: fmt.Sprintf("VM %s is shutting down.", vm),
		Task:    task,
	}
}

func (d *Dispatcher) restartVM(ctx context.Context, captured []string, entities domain.EntityMap) domain.CommandResult {
	vm := vmRef(captured, entities)
	if vm == "" {
		return domain.Failure(msgNeedVMID)
	}
	task, err := d.client.RestartVM(ctx, vm)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{
		Success: true,
		Message: fmt.Sprintf("VM %s is restarting.", vm),
		Task:    task,
	}
}

func (d *Dispatcher) vmStatus(ctx context.Context, captured []string, entities domain.EntityMap) domain.CommandResult {
	vm := vmRef(captured, entities)
	if vm == "" {
		return domain.Failure(msgNeedVMID)
	}
	status, err := d.client.VMStatus(ctx, vm)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, Status: status}
}

func (d *Dispatcher) deleteVM(ctx context.Context, captured []string, entities domain.EntityMap) domain.CommandResult {
	vm := vmRef(captured, entities)
	if vm == "" {
		return domain.Failure(msgNeedVMID)
	}
	task, err := d.client.DeleteVM(ctx, vm)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{
		Success: true,
		Message: fmt.Sprintf("VM %s has been deleted.", vm),
		Task:    task,
	}
}

// createVM fills documented defaults field by field where the utterance
// left a parameter unspecified, then makes the one client call.
func (d *Dispatcher) createVM(ctx context.Context, entities domain.EntityMap) domain.CommandResult {
	params := domain.DefaultCreateParams()
	if p := entities.Params; p != nil {
		if p.MemoryMB > 0 {
			params.MemoryMB = p.MemoryMB
		}
		if p.Cores > 0 {
			params.Cores = p.Cores
		}
		if p.DiskGB > 0 {
			params.DiskGB = p.DiskGB
		}
		if p.Template != "" {
			params.Template = strings.ToLower(p.Template)
		}
		if p.Name != "" {
			params.Name = p.Name
		}
	}
	if node, ok := entities.Node(); ok {
		params.Node = node
	} else {
		params.Node = d.defaultNode
	}

	info, err := d.client.CreateVM(ctx, params)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, Created: info, Task: info.Task}
}

func (d *Dispatcher) clusterStatus(ctx context.Context) domain.CommandResult {
	cluster, err := d.client.ClusterStatus(ctx)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, Cluster: cluster}
}

func (d *Dispatcher) nodeStatus(ctx context.Context, captured []string, entities domain.EntityMap) domain.CommandResult {
	node := ""
	switch {
	case len(captured) > 0 && captured[0] != "":
		node = captured[0]
	case entities.Has(domain.EntityNode):
		node, _ = entities.Node()
	default:
		node = d.defaultNode
	}
	if node == "" {
		return domain.Failure(msgNeedNode)
	}

	status, err := d.client.NodeStatus(ctx, node)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, Node: status}
}

func (d *Dispatcher) storageInfo(ctx context.Context) domain.CommandResult {
	storages, err := d.client.StorageInfo(ctx)
	if err != nil {
		return domain.Failure(err.Error())
	}
	return domain.CommandResult{Success: true, Storages: storages}
}

func (d *Dispatcher) help() domain.CommandResult {
	return domain.CommandResult{Success: true, Message: helpText()}
}

// helpText lists every capability with an example phrasing.
func helpText() string {
	var b strings.Builder
	b.WriteString("Here is what I understand:\n")
	for _, intent := range domain.AllIntents() {
		if intent == domain.IntentUnknown {
			continue
		}
		if examples := intent.Examples(); len(examples) > 0 {
			fmt.Fprintf(&b, "  - %s (e.g. %q)\n", intent.Description(), examples[0])
		} else {
			fmt.Fprintf(&b, "  - %s\n", intent.Description())
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
