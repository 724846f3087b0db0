// Package sim provides an in-memory Proxmox cluster used for demos and
// tests. It implements domain.Client against a seeded three node cluster,
// so the whole pipeline runs without touching a real API.
package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/proxmox-nli/internal/domain"
	"github.com/proxmox-nli/internal/proxmox"
)

func init() {
	proxmox.Register("sim", func() (domain.Client, error) {
		return New(), nil
	})
}

type guest struct {
	vmid      int
	name      string
	node      string
	kind      string // qemu or lxc
	status    string
	cpus      int
	maxMem    int64
	maxDisk   int64
	startedAt time.Time
}

// Cluster is a simulated Proxmox cluster
type Cluster struct {
	mu      sync.RWMutex
	name    string
	nodes   []string
	guests  map[int]*guest
	nextID  int
	taskSeq int
	booted  time.Time
}

// New returns a cluster seeded with three nodes and a handful of guests
func New() *Cluster {
	c := &Cluster{
		name:   "demo",
		nodes:  []string{"pve1", "pve2", "pve3"},
		guests: make(map[int]*guest),
		nextID: 300,
		booted: time.Now(),
	}

	now := time.Now()
	seed := []*guest{
		{vmid: 100, name: "web01", node: "pve1", kind: "qemu", status: "running", cpus: 2, maxMem: 4 << 30, maxDisk: 32 << 30, startedAt: now.Add(-36 * time.Hour)},
		{vmid: 101, name: "db01", node: "pve1", kind: "qemu", status: "running", cpus: 4, maxMem: 8 << 30, maxDisk: 64 << 30, startedAt: now.Add(-12 * time.Hour)},
		{vmid: 102, name: "test01", node: "pve2", kind: "qemu", status: "stopped", cpus: 1, maxMem: 2 << 30, maxDisk: 16 << 30},
		{vmid: 103, name: "backup01", node: "pve3", kind: "qemu", status: "stopped", cpus: 2, maxMem: 4 << 30, maxDisk: 128 << 30},
		{vmid: 200, name: "proxy01", node: "pve1", kind: "lxc", status: "running", cpus: 1, maxMem: 1 << 30, maxDisk: 8 << 30, startedAt: now.Add(-72 * time.Hour)},
		{vmid: 201, name: "dns01", node: "pve2", kind: "lxc", status: "running", cpus: 1, maxMem: 512 << 20, maxDisk: 4 << 30, startedAt: now.Add(-72 * time.Hour)},
	}
	for _, g := range seed {
		c.guests[g.vmid] = g
	}

	return c
}

// newTask fabricates a UPID in the shape real task ids have
func (c *Cluster) newTask(action, node string, vmid int) string {
	c.taskSeq++
	return fmt.Sprintf("UPID:%s:%08X:%08X:%08X:%s:%d:root@pam!nli:",
		node, c.taskSeq, rand.Int31(), time.Now().Unix(), action, vmid)
}

func (g *guest) uptime() int64 {
	if g.status != "running" || g.startedAt.IsZero() {
		return 0
	}
	return int64(time.Since(g.startedAt).Seconds())
}

func (g *guest) cpuUsage() float64 {
	if g.status != "running" {
		return 0
	}
	return 0.02 + rand.Float64()*0.1
}

func (g *guest) memUsage() int64 {
	if g.status != "running" {
		return 0
	}
	return g.maxMem / 3
}

// resolve maps a numeric id or name to a QEMU guest
func (c *Cluster) resolve(ref string) (*guest, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: vm reference", domain.ErrMissingArgument)
	}

	if id, err := strconv.Atoi(ref); err == nil {
		if g, ok := c.guests[id]; ok && g.kind == "qemu" {
			return g, nil
		}
		return nil, fmt.Errorf("%w: vm %s", domain.ErrNotFound, ref)
	}

	for _, g := range c.guests {
		if g.kind == "qemu" && strings.EqualFold(g.name, ref) {
			return g, nil
		}
	}
	return nil, fmt.Errorf("%w: vm %s", domain.ErrNotFound, ref)
}

// ListVMs returns every simulated QEMU guest
func (c *Cluster) ListVMs(ctx context.Context) ([]domain.VMSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	vms := make([]domain.VMSummary, 0, len(c.guests))
	for _, g := range c.guests {
		if g.kind != "qemu" {
			continue
		}
		vms = append(vms, domain.VMSummary{
			VMID:     g.vmid,
			Name:     g.name,
			Node:     g.node,
			Status:   g.status,
			CPUs:     g.cpus,
			CPUUsage: g.cpuUsage(),
			MemBytes: g.memUsage(),
			MaxMem:   g.maxMem,
			Disk:     g.maxDisk / 4,
			MaxDisk:  g.maxDisk,
			Uptime:   g.uptime(),
		})
	}

	sort.Slice(vms, func(i, j int) bool { return vms[i].VMID < vms[j].VMID })
	return vms, nil
}

// ListContainers returns every simulated LXC container
func (c *Cluster) ListContainers(ctx context.Context) ([]domain.ContainerSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cts := make([]domain.ContainerSummary, 0)
	for _, g := range c.guests {
		if g.kind != "lxc" {
			continue
		}
		cts = append(cts, domain.ContainerSummary{
			VMID:     g.vmid,
			Name:     g.name,
			Node:     g.node,
			Status:   g.status,
			CPUs:     g.cpus,
			CPUUsage: g.cpuUsage(),
			MemBytes: g.memUsage(),
			MaxMem:   g.maxMem,
			Uptime:   g.uptime(),
		})
	}

	sort.Slice(cts, func(i, j int) bool { return cts[i].VMID < cts[j].VMID })
	return cts, nil
}

// StartVM powers on a simulated guest
func (c *Cluster) StartVM(ctx context.Context, vm string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.resolve(vm)
	if err != nil {
		return "", err
	}
	if g.status == "running" {
		return "", fmt.Errorf("vm %d is already running", g.vmid)
	}

	g.status = "running"
	g.startedAt = time.Now()
	return c.newTask("qmstart", g.node, g.vmid), nil
}

// StopVM powers off a simulated guest
func (c *Cluster) StopVM(ctx context.Context, vm string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.resolve(vm)
	if err != nil {
		return "", err
	}
	if g.status != "running" {
		return "", fmt.Errorf("vm %d is not running", g.vmid)
	}

	g.status = "stopped"
	g.startedAt = time.Time{}
	return c.newTask("qmstop", g.node, g.vmid), nil
}

// RestartVM reboots a simulated guest
func (c *Cluster) RestartVM(ctx context.Context, vm string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.resolve(vm)
	if err != nil {
		return "", err
	}
	if g.status != "running" {
		return "", fmt.Errorf("vm %d is not running", g.vmid)
	}

	g.startedAt = time.Now()
	return c.newTask("qmreboot", g.node, g.vmid), nil
}

// VMStatus returns the detailed state of a simulated guest
func (c *Cluster) VMStatus(ctx context.Context, vm string) (*domain.VMStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	g, err := c.resolve(vm)
	if err != nil {
		return nil, err
	}

	return &domain.VMStatus{
		VMID:     g.vmid,
		Name:     g.name,
		Node:     g.node,
		Status:   g.status,
		CPUs:     g.cpus,
		CPUUsage: g.cpuUsage(),
		MemBytes: g.memUsage(),
		MaxMem:   g.maxMem,
		Disk:     g.maxDisk / 4,
		MaxDisk:  g.maxDisk,
		Uptime:   g.uptime(),
	}, nil
}

// CreateVM provisions a new stopped guest on the least used node
func (c *Cluster) CreateVM(ctx context.Context, params domain.CreateParams) (*domain.CreateInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

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

	node := params.Node
	if node == "" {
		node = c.leastLoadedNode()
	}
	if !c.hasNode(node) {
		return nil, fmt.Errorf("%w: node %s", domain.ErrNotFound, node)
	}

	vmid := params.VMID
	if vmid <= 0 {
		vmid = c.nextID
		c.nextID++
	}
	if _, exists := c.guests[vmid]; exists {
		return nil, fmt.Errorf("vm %d already exists", vmid)
	}

	name := params.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", params.Template, vmid)
	}

	c.guests[vmid] = &guest{
		vmid:    vmid,
		name:    name,
		node:    node,
		kind:    "qemu",
		status:  "stopped",
		cpus:    params.Cores,
		maxMem:  int64(params.MemoryMB) << 20,
		maxDisk: int64(params.DiskGB) << 30,
	}

	return &domain.CreateInfo{
		VMID: vmid,
		Name: name,
		Node: node,
		Task: c.newTask("qmcreate", node, vmid),
	}, nil
}

// DeleteVM removes a stopped guest
func (c *Cluster) DeleteVM(ctx context.Context, vm string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, err := c.resolve(vm)
	if err != nil {
		return "", err
	}
	if g.status == "running" {
		return "", fmt.Errorf("vm %d is running, stop it first", g.vmid)
	}

	delete(c.guests, g.vmid)
	return c.newTask("qmdestroy", g.node, g.vmid), nil
}

// ClusterStatus reports the simulated membership, always quorate
func (c *Cluster) ClusterStatus(ctx context.Context) (*domain.ClusterStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &domain.ClusterStatus{
		Name:       c.name,
		Quorate:    true,
		NodesTotal: len(c.nodes),
	}
	for i, name := range c.nodes {
		status.NodesOnline++
		status.Nodes = append(status.Nodes, domain.ClusterNode{
			Name:   name,
			Online: true,
			IP:     fmt.Sprintf("192.168.1.%d", 10+i),
			Local:  i == 0,
		})
	}
	return status, nil
}

// NodeStatus reports synthetic utilization for one node
func (c *Cluster) NodeStatus(ctx context.Context, node string) (*domain.NodeStatus, error) {
	node = strings.TrimSpace(node)
	if node == "" {
		return nil, fmt.Errorf("%w: node name", domain.ErrMissingArgument)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasNode(node) {
		return nil, fmt.Errorf("%w: node %s", domain.ErrNotFound, node)
	}

	var usedMem int64
	var cpus int
	for _, g := range c.guests {
		if g.node == node && g.status == "running" {
			usedMem += g.memUsage()
			cpus += g.cpus
		}
	}

	total := int64(32) << 30
	return &domain.NodeStatus{
		Name:        node,
		CPUs:        16,
		CPUModel:    "Simulated EPYC 7302P",
		CPUUsage:    0.05 + float64(cpus)*0.02,
		MemoryTotal: total,
		MemoryUsed:  usedMem + (4 << 30),
		RootTotal:   256 << 30,
		RootUsed:    64 << 30,
		Uptime:      int64(time.Since(c.booted).Seconds()) + 86400*14,
		LoadAvg:     []string{"0.42", "0.36", "0.30"},
	}, nil
}

// StorageInfo reports per node local pools plus one shared pool
func (c *Cluster) StorageInfo(ctx context.Context) ([]domain.StoragePool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pools := []domain.StoragePool{
		{Name: "ceph-pool", Type: "rbd", TotalBytes: 2 << 40, UsedBytes: 800 << 30, AvailBytes: (2 << 40) - (800 << 30), Enabled: true, Shared: true, Content: "images,rootdir"},
	}
	for _, node := range c.nodes {
		pools = append(pools,
			domain.StoragePool{Name: "local", Type: "dir", Node: node, TotalBytes: 100 << 30, UsedBytes: 20 << 30, AvailBytes: 80 << 30, Enabled: true, Content: "iso,vztmpl,backup"},
			domain.StoragePool{Name: "local-lvm", Type: "lvmthin", Node: node, TotalBytes: 150 << 30, UsedBytes: 60 << 30, AvailBytes: 90 << 30, Enabled: true, Content: "images,rootdir"},
		)
	}

	sort.Slice(pools, func(i, j int) bool {
		if pools[i].Name != pools[j].Name {
			return pools[i].Name < pools[j].Name
		}
		return pools[i].Node < pools[j].Node
	})
	return pools, nil
}

func (c *Cluster) hasNode(name string) bool {
	for _, n := range c.nodes {
		if n == name {
			return true
		}
	}
	return false
}

// leastLoadedNode picks the node hosting the fewest guests
func (c *Cluster) leastLoadedNode() string {
	counts := make(map[string]int, len(c.nodes))
	for _, g := range c.guests {
		counts[g.node]++
	}

	best := c.nodes[0]
	for _, n := range c.nodes[1:] {
		if counts[n] < counts[best] {
			best = n
		}
	}
	return best
}
