package command

import (
	"fmt"
	"strings"

	"github.com/proxmox-nli/internal/domain"
)

// Responder turns command results into the console's natural-language
// replies. Pure formatting, one branch per intent; absent payloads render
// as neutral sentences instead of crashing.
type Responder struct{}

// NewResponder creates the response generator.
func NewResponder() *Responder {
	return &Responder{}
}

// Generate renders one result. Failures come back as the generic error
// sentence regardless of intent.
func (r *Responder) Generate(intent domain.Intent, result domain.CommandResult) string {
	if !result.Success {
		return "Sorry, there was an error: " + result.Message
	}

	switch intent {
	case domain.IntentListVMs:
		return formatVMList(result.VMs)
	case domain.IntentListContainers:
		return formatContainerList(result.Containers)
	case domain.IntentVMStatus:
		return formatVMStatus(result.Status)
	case domain.IntentClusterStatus:
		return formatCluster(result.Cluster)
	case domain.IntentNodeStatus:
		return formatNode(result.Node)
	case domain.IntentStorageInfo:
		return formatStorages(result.Storages)
	case domain.IntentCreateVM:
		return formatCreated(result.Created, result.Message)
	case domain.IntentStartVM, domain.IntentStopVM, domain.IntentRestartVM, domain.IntentDeleteVM:
		return lifecycleReply(result)
	default:
		return result.Message
	}
}

func formatVMList(vms []domain.VMSummary) string {
	if len(vms) == 0 {
		return "There are no virtual machines in the cluster."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d virtual machine%s:\n", len(vms), plural(len(vms)))
	for _, vm := range vms {
		fmt.Fprintf(&b, "  - VM %d (%s) on %s: %s, %d CPU%s, %s of %s memory, %s disk\n",
			vm.VMID, vm.Name, vm.Node, vm.Status, vm.CPUs, plural(vm.CPUs),
			humanBytes(vm.MemBytes), humanBytes(vm.MaxMem), humanBytes(vm.MaxDisk))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatContainerList(cts []domain.ContainerSummary) string {
	if len(cts) == 0 {
		return "There are no containers in the cluster."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d container%s:\n", len(cts), plural(len(cts)))
	for _, ct := range cts {
		fmt.Fprintf(&b, "  - CT %d (%s) on %s: %s, %d CPU%s, %s of %s memory\n",
			ct.VMID, ct.Name, ct.Node, ct.Status, ct.CPUs, plural(ct.CPUs),
			humanBytes(ct.MemBytes), humanBytes(ct.MaxMem))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatVMStatus(s *domain.VMStatus) string {
	if s == nil {
		return "No status information came back."
	}
	if s.Status != "running" {
		return fmt.Sprintf("VM %d (%s) on %s is %s.", s.VMID, s.Name, s.Node, s.Status)
	}
	return fmt.Sprintf("VM %d (%s) on %s is running: %d CPU%s at %.1f%%, %s of %s memory, up %s.",
		s.VMID, s.Name, s.Node, s.CPUs, plural(s.CPUs), s.CPUUsage*100,
		humanBytes(s.MemBytes), humanBytes(s.MaxMem), humanUptime(s.Uptime))
}

func formatCluster(c *domain.ClusterStatus) string {
	if c == nil {
		return "No cluster information came back."
	}

	quorum := "has quorum"
	if !c.Quorate {
		quorum = "has NO quorum"
	}
	reply := fmt.Sprintf("Cluster %s %s: %d of %d nodes online.",
		c.Name, quorum, c.NodesOnline, c.NodesTotal)

	var offline []string
	for _, n := range c.Nodes {
		if !n.Online {
			offline = append(offline, n.Name)
		}
	}
	if len(offline) > 0 {
		reply += " Offline: " + strings.Join(offline, ", ") + "."
	}
	return reply
}

func formatNode(n *domain.NodeStatus) string {
	if n == nil {
		return "No node information came back."
	}
	reply := fmt.Sprintf("Node %s: %d CPU%s at %.1f%%, memory %s of %s used, root disk %s of %s used, up %s.",
		n.Name, n.CPUs, plural(n.CPUs), n.CPUUsage*100,
		humanBytes(n.MemoryUsed), humanBytes(n.MemoryTotal),
		humanBytes(n.RootUsed), humanBytes(n.RootTotal), humanUptime(n.Uptime))
	if len(n.LoadAvg) > 0 {
		reply += " Load: " + strings.Join(n.LoadAvg, " / ") + "."
	}
	return reply
}

func formatStorages(pools []domain.StoragePool) string {
	if len(pools) == 0 {
		return "There are no storage pools to report."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d storage pool%s:\n", len(pools), plural(len(pools)))
	for _, p := range pools {
		fmt.Fprintf(&b, "  - %s (%s): %s of %s used (%.1f%%)\n",
			p.Name, p.Type, humanBytes(p.UsedBytes), humanBytes(p.TotalBytes), p.UsedPercent())
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatCreated(info *domain.CreateInfo, fallback string) string {
	if info == nil {
		if fallback != "" {
			return fallback
		}
		return "The VM was created."
	}
	reply := fmt.Sprintf("Created VM %d (%s) on node %s.", info.VMID, info.Name, info.Node)
	if info.Task != "" {
		reply += fmt.Sprintf(" Task %s is running.", info.Task)
	}
	return reply
}

func lifecycleReply(result domain.CommandResult) string {
	reply := result.Message
	if reply == "" {
		reply = "Done."
	}
	if result.Task != "" {
		reply += fmt.Sprintf(" (task %s)", result.Task)
	}
	return reply
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// humanBytes renders a byte count in the largest sensible 1024 unit.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// humanUptime renders an uptime in seconds as days, hours and minutes.
func humanUptime(seconds int64) string {
	if seconds <= 0 {
		return "not running"
	}
	d := seconds / 86400
	h := (seconds % 86400) / 3600
	m := (seconds % 3600) / 60
	switch {
	case d > 0:
		return fmt.Sprintf("%dd %dh %dm", d, h, m)
	case h > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	default:
		return fmt.Sprintf("%dm", m)
	}
}
