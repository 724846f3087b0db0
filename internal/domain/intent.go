// Package domain contains the shared types of the Proxmox NLI: the intent
// vocabulary, extracted entities, cluster models and the contracts between
// the interpreter, the dispatcher and the Proxmox client.
package domain

// Intent is the fixed-vocabulary action tag assigned to an utterance.
// The set is closed and defined at startup; the classifier never invents
// new tags.
type Intent string

const (
	IntentListVMs        Intent = "list_vms"
	IntentStartVM        Intent = "start_vm"
	IntentStopVM         Intent = "stop_vm"
	IntentRestartVM      Intent = "restart_vm"
	IntentVMStatus       Intent = "vm_status"
	IntentCreateVM       Intent = "create_vm"
	IntentDeleteVM       Intent = "delete_vm"
	IntentListContainers Intent = "list_containers"
	IntentClusterStatus  Intent = "cluster_status"
	IntentNodeStatus     Intent = "node_status"
	IntentStorageInfo    Intent = "storage_info"
	IntentHelp           Intent = "help"
	IntentUnknown        Intent = "unknown"
)

// AllIntents returns the full vocabulary in declaration order, unknown last.
func AllIntents() []Intent {
	return []Intent{
		IntentListVMs,
		IntentStartVM,
		IntentStopVM,
		IntentRestartVM,
		IntentVMStatus,
		IntentCreateVM,
		IntentDeleteVM,
		IntentListContainers,
		IntentClusterStatus,
		IntentNodeStatus,
		IntentStorageInfo,
		IntentHelp,
		IntentUnknown,
	}
}

// ParseIntent converts a string to an Intent, defaulting to unknown.
func ParseIntent(s string) Intent {
	for _, intent := range AllIntents() {
		if string(intent) == s {
			return intent
		}
	}
	return IntentUnknown
}

// String returns the wire representation of the intent.
func (i Intent) String() string {
	return string(i)
}

// IsValid checks if the intent is part of the vocabulary.
func (i Intent) IsValid() bool {
	for _, intent := range AllIntents() {
		if i == intent {
			return true
		}
	}
	return false
}

// RequiresVM reports whether the intent needs a resolvable VM identifier
// before dispatch.
func (i Intent) RequiresVM() bool {
	switch i {
	case IntentStartVM, IntentStopVM, IntentRestartVM, IntentVMStatus, IntentDeleteVM:
		return true
	default:
		return false
	}
}

// Description returns a short human-readable summary of the intent.
func (i Intent) Description() string {
	switch i {
	case IntentListVMs:
		return "List all virtual machines in the cluster"
	case IntentStartVM:
		return "Start a virtual machine"
	case IntentStopVM:
		return "Stop a virtual machine"
	case IntentRestartVM:
		return "Restart a virtual machine"
	case IntentVMStatus:
		return "Show the current status of a virtual machine"
	case IntentCreateVM:
		return "Create a new virtual machine"
	case IntentDeleteVM:
		return "Delete a virtual machine"
	case IntentListContainers:
		return "List all LXC containers in the cluster"
	case IntentClusterStatus:
		return "Show cluster health and quorum"
	case IntentNodeStatus:
		return "Show the status of a cluster node"
	case IntentStorageInfo:
		return "Show storage pool usage"
	case IntentHelp:
		return "Show what the console understands"
	case IntentUnknown:
		return "Unrecognized input"
	default:
		return "Unrecognized input"
	}
}

// Examples returns sample phrasings for the intent, used by the intents
// command and the web reference endpoint.
func (i Intent) Examples() []string {
	switch i {
	case IntentListVMs:
		return []string{"list all vms", "show my virtual machines"}
	case IntentStartVM:
		return []string{"start vm 101", "boot the machine web01"}
	case IntentStopVM:
		return []string{"stop vm 101", "shut down vm 204"}
	case IntentRestartVM:
		return []string{"restart vm 101", "reboot it"}
	case IntentVMStatus:
		return []string{"status of vm 101", "check vm 204"}
	case IntentCreateVM:
		return []string{"create a vm with 2 GB of RAM and 2 cores using ubuntu"}
	case IntentDeleteVM:
		return []string{"delete vm 105", "destroy vm 105"}
	case IntentListContainers:
		return []string{"list containers", "show my lxc containers"}
	case IntentClusterStatus:
		return []string{"cluster status", "is the cluster healthy"}
	case IntentNodeStatus:
		return []string{"status of node pve1", "check node pve2"}
	case IntentStorageInfo:
		return []string{"storage info", "how much disk space is left"}
	case IntentHelp:
		return []string{"help"}
	default:
		return nil
	}
}
