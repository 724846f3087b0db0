package proxmox

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/logging"
)

// clusterResource is one entry of GET /cluster/resources
type clusterResource struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	VMID    int     `json:"vmid"`
	Name    string  `json:"name"`
	Node    string  `json:"node"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  int     `json:"maxcpu"`
	Mem     int64   `json:"mem"`
	MaxMem  int64   `json:"maxmem"`
	Disk    int64   `json:"disk"`
	MaxDisk int64   `json:"maxdisk"`
	Uptime  int64   `json:"uptime"`
}

// guestStatus is the payload of GET /nodes/{node}/qemu/{vmid}/status/current
type guestStatus struct {
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	CPUs    float64 `json:"cpus"`
	CPU     float64 `json:"cpu"`
	Mem     int64   `json:"mem"`
	MaxMem  int64   `json:"maxmem"`
	Disk    int64   `json:"disk"`
	MaxDisk int64   `json:"maxdisk"`
	Uptime  int64   `json:"uptime"`
}

// guestResources fetches the cluster resource list for VMs and containers
func (c *Client) guestResources(ctx context.Context) ([]clusterResource, error) {
	if cached, ok := c.cacheGet("px:resources"); ok {
		if resources, ok := cached.([]clusterResource); ok {
			return resources, nil
		}
	}

	var resources []clusterResource
	if err := c.get(ctx, "/cluster/resources?type=vm", &resources); err != nil {
		return nil, err
	}

	c.cacheSet("px:resources", resources)
	return resources, nil
}

// ListVMs returns every QEMU guest visible across the cluster
func (c *Client) ListVMs(ctx context.Context) ([]domain.VMSummary, error) {
	resources, err := c.guestResources(ctx)
	if err != nil {
		return nil, err
	}

	vms := make([]domain.VMSummary, 0, len(resources))
	for _, r := range resources {
		if r.Type != "qemu" {
			continue
		}
		vms = append(vms, domain.VMSummary{
			VMID:     r.VMID,
			Name:     r.Name,
			Node:     r.Node,
			Status:   r.Status,
			CPUs:     r.MaxCPU,
			CPUUsage: r.CPU,
			MemBytes: r.Mem,
			MaxMem:   r.MaxMem,
			Disk:     r.Disk,
			MaxDisk:  r.MaxDisk,
			Uptime:   r.Uptime,
		})
	}

	sort.Slice(vms, func(i, j int) bool { return vms[i].VMID < vms[j].VMID })
	return vms, nil
}

// ListContainers returns every LXC container visible across the cluster
func (c *Client) ListContainers(ctx context.Context) ([]domain.ContainerSummary, error) {
	resources, err := c.guestResources(ctx)
	if err != nil {
		return nil, err
	}

	cts := make([]domain.ContainerSummary, 0)
	for _, r := range resources {
		if r.Type != "lxc" {
			continue
		}
		cts = append(cts, domain.ContainerSummary{
			VMID:     r.VMID,
			Name:     r.Name,
			Node:     r.Node,
			Status:   r.Status,
			CPUs:     r.MaxCPU,
			CPUUsage: r.CPU,
			MemBytes: r.Mem,
			MaxMem:   r.MaxMem,
			Uptime:   r.Uptime,
		})
	}

	sort.Slice(cts, func(i, j int) bool { return cts[i].VMID < cts[j].VMID })
	return cts, nil
}

// resolveVM maps a VM reference (numeric id or name) to its node and vmid
func (c *Client) resolveVM(ctx context.Context, ref string) (string, int, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", 0, fmt.Errorf("%w: vm reference", domain.ErrMissingArgument)
	}

	resources, err := c.guestResources(ctx)
	if err != nil {
		return "", 0, err
	}

	if id, err := strconv.Atoi(ref); err == nil {
		for _, r := range resources {
			if r.Type == "qemu" && r.VMID == id {
				return r.Node, r.VMID, nil
			}
		}
		return "", 0, fmt.Errorf("%w: vm %s", domain.ErrNotFound, ref)
	}

	for _, r := range resources {
		if r.Type == "qemu" && strings.EqualFold(r.Name, ref) {
			return r.Node, r.VMID, nil
		}
	}
	return "", 0, fmt.Errorf("%w: vm %s", domain.ErrNotFound, ref)
}

// StartVM powers on a guest
func (c *Client) StartVM(ctx context.Context, vm string) (string, error) {
	node, vmid, err := c.resolveVM(ctx, vm)
	if err != nil {
		return "", err
	}

	task, err := c.postForm(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/start", node, vmid), nil)
	if err != nil {
		return "", err
	}

	logging.Info("Started VM %d on node %s (task %s)", vmid, node, task)
	c.invalidate()
	return task, nil
}

// StopVM powers off a guest
func (c *Client) StopVM(ctx context.Context, vm string) (string, error) {
	node, vmid, err := c.resolveVM(ctx, vm)
	if err != nil {
		return "", err
	}

	task, err := c.postForm(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/stop", node, vmid), nil)
	if err != nil {
		return "", err
	}

	logging.Info("Stopped VM %d on node %s (task %s)", vmid, node, task)
	c.invalidate()
	return task, nil
}

// RestartVM reboots a guest
func (c *Client) RestartVM(ctx context.Context, vm string) (string, error) {
	node, vmid, err := c.resolveVM(ctx, vm)
	if err != nil {
		return "", err
	}

	task, err := c.postForm(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/reboot", node, vmid), nil)
	if err != nil {
		return "", err
	}

	logging.Info("Restarted VM %d on node %s (task %s)", vmid, node, task)
	c.invalidate()
	return task, nil
}

// VMStatus returns the detailed state of a single guest
func (c *Client) VMStatus(ctx context.Context, vm string) (*domain.VMStatus, error) {
	node, vmid, err := c.resolveVM(ctx, vm)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("px:status:%d", vmid)
	if cached, ok := c.cacheGet(key); ok {
		if status, ok := cached.(*domain.VMStatus); ok {
			return status, nil
		}
	}

	var gs guestStatus
	if err := c.get(ctx, fmt.Sprintf("/nodes/%s/qemu/%d/status/current", node, vmid), &gs); err != nil {
		return nil, err
	}

	status := &domain.VMStatus{
		VMID:     vmid,
		Name:     gs.Name,
		Node:     node,
		Status:   gs.Status,
		CPUs:     int(gs.CPUs),
		CPUUsage: gs.CPU,
		MemBytes: gs.Mem,
		MaxMem:   gs.MaxMem,
		Disk:     gs.Disk,
		MaxDisk:  gs.MaxDisk,
		Uptime:   gs.Uptime,
	}

	c.cacheSet(key, status)
	return status, nil
}

// NextID asks the cluster for the next free VM id
func (c *Client) NextID(ctx context.Context) (int, error) {
	// The API returns the id as a JSON string
	var raw string
	if err := c.get(ctx, "/cluster/nextid", &raw); err != nil {
		return 0, err
	}

	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("unexpected nextid %q: %w", raw, err)
	}
	return id, nil
}

// CreateVM provisions a new guest, filling unspecified parameters with
// defaults. The target node falls back to the configured default node and
// then to the first online node.
func (c *Client) CreateVM(ctx context.Context, params domain.CreateParams) (*domain.CreateInfo, error) {
	defaults := domain.DefaultCreateParams()
	if params.MemoryMB <= 0 {
		params.MemoryMB = defaults.MemoryMB
	}
	if params.Cores <= 0 {
		params.Cores = defaults.Cores
	}
	if params.DiskGB <= 0 {
		params.DiskGB = defaults.DiskGB
	}
	if params.Template == "" {
		params.Template = defaults.Template
	}
	params.Template = strings.ToLower(params.Template)
	if params.Storage == "" {
		params.Storage = "local-lvm"
	}

	node := params.Node
	if node == "" {
		node = c.defaultNode
	}
	if node == "" {
		names, err := c.onlineNodes(ctx)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: no online node for vm creation", domain.ErrNotFound)
		}
		node = names[0]
	}

	vmid := params.VMID
	if vmid <= 0 {
		id, err := c.NextID(ctx)
		if err != nil {
			return nil, err
		}
		vmid = id
	}

	name := params.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", params.Template, vmid)
	}

	form := url.Values{}
	form.Set("vmid", strconv.Itoa(vmid))
	form.Set("name", name)
	form.Set("memory", strconv.Itoa(params.MemoryMB))
	form.Set("cores", strconv.Itoa(params.Cores))
	form.Set("sockets", "1")
	form.Set("ostype", osType(params.Template))
	form.Set("scsihw", "virtio-scsi-pci")
	form.Set("scsi0", fmt.Sprintf("%s:%d", params.Storage, params.DiskGB))
	form.Set("net0", "virtio,bridge=vmbr0")

	task, err := c.postForm(ctx, fmt.Sprintf("/nodes/%s/qemu", node), form)
	if err != nil {
		return nil, err
	}

	logging.Info("Created VM %d (%s) on node %s (task %s)", vmid, name, node, task)
	c.invalidate()

	return &domain.CreateInfo{VMID: vmid, Name: name, Node: node, Task: task}, nil
}

// DeleteVM removes a guest. Proxmox rejects the call while the guest runs.
func (c *Client) DeleteVM(ctx context.Context, vm string) (string, error) {
	node, vmid, err := c.resolveVM(ctx, vm)
	if err != nil {
		return "", err
	}

	task, err := c.del(ctx, fmt.Sprintf("/nodes/%s/qemu/%d", node, vmid))
	if err != nil {
		return "", err
	}

	logging.Info("Deleted VM %d on node %s (task %s)", vmid, node, task)
	c.invalidate()
	return task, nil
}

// osType maps a template name to the Proxmox ostype value
func osType(template string) string {
	if template == "windows" {
		return "win11"
	}
	return "l26"
}
