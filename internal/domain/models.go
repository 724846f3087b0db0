// Package domain contains the core domain models for the Proxmox NLI: the
// intent vocabulary, extracted entities, cluster resources and the result
// shape shared by the dispatcher, the response generator and the web layer.
package domain

// Well-known entity keys produced by the extractor. Recognizer labels
// (CARDINAL, QUANTITY, ...) pass through alongside these unmodified.
const (
	EntityVMID = "VM_ID"
	EntityNode = "NODE"
)

// EntityMap holds everything extracted from a single utterance. Flat string
// entities live in Values under their label; VM creation parameters are
// typed. Built fresh per utterance and merged with context-derived defaults
// when pronouns are resolved.
type EntityMap struct {
	Values map[string]string `json:"values,omitempty"`
	Params *CreateParams     `json:"params,omitempty"`
}

// NewEntityMap returns an empty, ready-to-fill entity map.
func NewEntityMap() EntityMap {
	return EntityMap{Values: make(map[string]string)}
}

// Set stores a flat entity value under its label.
func (e *EntityMap) Set(key, value string) {
	if e.Values == nil {
		e.Values = make(map[string]string)
	}
	e.Values[key] = value
}

// Get returns the value for a label and whether it was present.
func (e EntityMap) Get(key string) (string, bool) {
	v, ok := e.Values[key]
	return v, ok
}

// Has reports whether a label was extracted.
func (e EntityMap) Has(key string) bool {
	_, ok := e.Values[key]
	return ok
}

// VMID returns the extracted VM identifier, if any.
func (e EntityMap) VMID() (string, bool) {
	return e.Get(EntityVMID)
}

// Node returns the extracted node name, if any.
func (e EntityMap) Node() (string, bool) {
	return e.Get(EntityNode)
}

// Len counts flat entities plus the params block when present.
func (e EntityMap) Len() int {
	n := len(e.Values)
	if e.Params != nil {
		n++
	}
	return n
}

// VMSummary is one row of the cluster VM inventory.
type VMSummary struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Node     string  `json:"node"`
	Status   string  `json:"status"`
	CPUs     int     `json:"cpus"`
	CPUUsage float64 `json:"cpu_usage"`
	MemBytes int64   `json:"mem_bytes"`
	MaxMem   int64   `json:"max_mem_bytes"`
	Disk     int64   `json:"disk_bytes"`
	MaxDisk  int64   `json:"max_disk_bytes"`
	Uptime   int64   `json:"uptime_seconds"`
}

// IsRunning reports whether the guest is currently running.
func (v VMSummary) IsRunning() bool {
	return v.Status == "running"
}

// ContainerSummary is one row of the LXC container inventory.
type ContainerSummary struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Node     string  `json:"node"`
	Status   string  `json:"status"`
	CPUs     int     `json:"cpus"`
	CPUUsage float64 `json:"cpu_usage"`
	MemBytes int64   `json:"mem_bytes"`
	MaxMem   int64   `json:"max_mem_bytes"`
	Uptime   int64   `json:"uptime_seconds"`
}

// VMStatus is the detailed state of a single guest.
type VMStatus struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Node     string  `json:"node"`
	Status   string  `json:"status"`
	CPUs     int     `json:"cpus"`
	CPUUsage float64 `json:"cpu_usage"`
	MemBytes int64   `json:"mem_bytes"`
	MaxMem   int64   `json:"max_mem_bytes"`
	Disk     int64   `json:"disk_bytes"`
	MaxDisk  int64   `json:"max_disk_bytes"`
	Uptime   int64   `json:"uptime_seconds"`
}

// ClusterNode is one member in the cluster status listing.
type ClusterNode struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
	IP     string `json:"ip,omitempty"`
	Local  bool   `json:"local,omitempty"`
}

// ClusterStatus summarizes cluster membership and quorum.
type ClusterStatus struct {
	Name        string        `json:"name"`
	Quorate     bool          `json:"quorate"`
	NodesOnline int           `json:"nodes_online"`
	NodesTotal  int           `json:"nodes_total"`
	Nodes       []ClusterNode `json:"nodes"`
}

// NodeStatus is the resource state of a single cluster node.
type NodeStatus struct {
	Name        string   `json:"name"`
	CPUs        int      `json:"cpus"`
	CPUModel    string   `json:"cpu_model,omitempty"`
	CPUUsage    float64  `json:"cpu_usage"`
	MemoryTotal int64    `json:"memory_total_bytes"`
	MemoryUsed  int64    `json:"memory_used_bytes"`
	RootTotal   int64    `json:"root_total_bytes"`
	RootUsed    int64    `json:"root_used_bytes"`
	Uptime      int64    `json:"uptime_seconds"`
	LoadAvg     []string `json:"load_avg,omitempty"`
}

// StoragePool is one storage entry of the cluster inventory.
type StoragePool struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Node       string `json:"node,omitempty"`
	TotalBytes int64  `json:"total_bytes"`
	UsedBytes  int64  `json:"used_bytes"`
	AvailBytes int64  `json:"avail_bytes"`
	Enabled    bool   `json:"enabled"`
	Shared     bool   `json:"shared,omitempty"`
	Content    string `json:"content,omitempty"`
}

// UsedPercent returns storage utilization in the 0-100 range.
func (s StoragePool) UsedPercent() float64 {
	if s.TotalBytes <= 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.TotalBytes) * 100
}

// KnownTemplates is the OS template vocabulary the create parser accepts.
// Anything else in an utterance is ignored.
var KnownTemplates = []string{"ubuntu", "debian", "centos", "fedora", "windows", "alpine"}

// CreateParams are the VM creation parameters extracted from an utterance.
// Memory is MB, disk is GB; zero fields fall back to defaults at dispatch.
type CreateParams struct {
	VMID     int    `json:"vmid,omitempty"`
	Name     string `json:"name,omitempty"`
	Node     string `json:"node,omitempty"`
	Storage  string `json:"storage,omitempty"`
	MemoryMB int    `json:"memory_mb,omitempty"`
	Cores    int    `json:"cores,omitempty"`
	DiskGB   int    `json:"disk_gb,omitempty"`
	Template string `json:"template,omitempty"`
}

// DefaultCreateParams returns the creation defaults applied field by field
// where the utterance left a parameter unspecified.
func DefaultCreateParams() CreateParams {
	return CreateParams{
		MemoryMB: 1024,
		Cores:    1,
		DiskGB:   10,
		Template: "ubuntu",
	}
}

// CreateInfo describes a guest that was just provisioned.
type CreateInfo struct {
	VMID int    `json:"vmid"`
	Name string `json:"name"`
	Node string `json:"node"`
	Task string `json:"task,omitempty"`
}

// CommandResult is the dispatcher's answer for one utterance: a success
// flag, a message, and at most one typed payload depending on the intent.
// Absent payloads stay zero-valued; the response generator guards them.
type CommandResult struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message,omitempty"`
	VMs        []VMSummary        `json:"vms,omitempty"`
	Containers []ContainerSummary `json:"containers,omitempty"`
	Status     *VMStatus          `json:"status,omitempty"`
	Cluster    *ClusterStatus     `json:"cluster,omitempty"`
	Node       *NodeStatus        `json:"node,omitempty"`
	Storages   []StoragePool      `json:"storages,omitempty"`
	Created    *CreateInfo        `json:"created,omitempty"`
	Task       string             `json:"task,omitempty"`
}

// Failure builds an unsuccessful result carrying only a message.
func Failure(message string) CommandResult {
	return CommandResult{Success: false, Message: message}
}
